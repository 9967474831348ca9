package server

import (
	"sort"
	"sync"
)

// RoomStore 管理多个房间的生命周期；由服务启动时创建并注入
type RoomStore struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	reap     bool
	settings *Settings
	metrics  *RoomMetrics
}

// NewRoomStore 创建房间表；reap 为 true 时最后一名成员离开即回收房间
func NewRoomStore(reap bool, settings *Settings, metrics *RoomMetrics) *RoomStore {
	if metrics == nil {
		metrics = newRoomMetrics(nil)
	}
	return &RoomStore{
		rooms:    make(map[string]*Room),
		reap:     reap,
		settings: settings,
		metrics:  metrics,
	}
}

// GetOrCreateRoom 获取或创建房间，并确保事件循环已启动
func (s *RoomStore) GetOrCreateRoom(id string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(id)
}

func (s *RoomStore) getOrCreateLocked(id string) *Room {
	r, ok := s.rooms[id]
	if !ok {
		r = NewRoom(id, s.settings, s.metrics)
		s.rooms[id] = r
		r.Start()
		Log.Debugf("room %s created", id)
	}
	return r
}

// Get 查询房间，不存在时不创建
func (s *RoomStore) Get(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

// Join 加入房间（必要时创建）；与回收在同一把锁下，不会加入已停止的房间
func (s *RoomStore) Join(roomID string, id ConnID, out Sender) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.getOrCreateLocked(roomID)
	r.Join(id, out)
	return r
}

// Leave 离开房间；房间变空且开启回收时停止并删除
// 离开与广播在房间自己的循环中完成，不占用全局锁；回收前在锁内重新确认房间为空
func (s *RoomStore) Leave(roomID string, id ConnID) bool {
	r, ok := s.Get(roomID)
	if !ok {
		return false
	}
	remaining, left := r.Leave(id)
	if s.reap && remaining == 0 {
		s.reapIfEmpty(roomID, r)
	}
	return left
}

// reapIfEmpty Join 持有同一把锁，确认为空后不会再有成员加入
func (s *RoomStore) reapIfEmpty(roomID string, r *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.rooms[roomID]; !ok || cur != r || r.Len() != 0 {
		return
	}
	r.Stop()
	delete(s.rooms, roomID)
	Log.Debugf("room %s reaped", roomID)
}

// Len 房间数
func (s *RoomStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Rooms 按 id 排序的房间概要
func (s *RoomStore) Rooms() []RoomInfo {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.Unlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		if info, ok := r.Info(false); ok {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close 停止所有房间
func (s *RoomStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.rooms {
		r.Stop()
		delete(s.rooms, id)
	}
}
