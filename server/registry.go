package server

import "sync"

// Registry 记录在线连接及其所属房间；房间在连接生命周期内固定
type Registry struct {
	mu          sync.RWMutex
	defaultRoom string
	conns       map[ConnID]string
}

// NewRegistry 创建连接表；defaultRoom 用于未指定房间的连接
func NewRegistry(defaultRoom string) *Registry {
	if defaultRoom == "" {
		defaultRoom = "default"
	}
	return &Registry{defaultRoom: defaultRoom, conns: make(map[ConnID]string)}
}

// Join 登记连接并返回实际使用的房间 id
func (r *Registry) Join(id ConnID, roomID string) string {
	if roomID == "" {
		roomID = r.defaultRoom
	}
	r.mu.Lock()
	r.conns[id] = roomID
	r.mu.Unlock()
	return roomID
}

// Leave 移除连接，重复调用无副作用
func (r *Registry) Leave(id ConnID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roomID, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	return roomID, ok
}

// Lookup 查询连接所在房间
func (r *Registry) Lookup(id ConnID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.conns[id]
	return roomID, ok
}

// Count 在线连接数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
