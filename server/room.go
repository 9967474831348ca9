package server

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
)

// ErrNotHost 开启房主校验时，非房主发送 ghost 事件
var ErrNotHost = errors.New("only the room host may write ghosts")

// Sender 连接的出站端；Enqueue 不得阻塞，返回 false 表示未投递
type Sender interface {
	Enqueue(b []byte) bool
}

// Room 房间：成员、玩家记录与幽魂记录只在房间自己的事件循环中读写
type Room struct {
	ID string

	members map[ConnID]Sender
	players map[ConnID]State
	ghosts  map[string]State
	host    ConnID

	settings *Settings
	metrics  *RoomMetrics

	cmds     chan func()
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// RoomInfo 房间概要（管理接口）
type RoomInfo struct {
	ID          string           `json:"id"`
	Members     int              `json:"members"`
	Host        ConnID           `json:"host,omitempty"`
	Ghosts      int              `json:"ghosts"`
	Players     map[ConnID]State `json:"players,omitempty"`
	GhostStates map[string]State `json:"ghostStates,omitempty"`
}

// NewRoom 创建房间，初始化数据结构；需调用 Start 启动事件循环
func NewRoom(id string, settings *Settings, parent *RoomMetrics) *Room {
	if settings == nil {
		settings = NewSettings(DefaultConfig())
	}
	return &Room{
		ID:       id,
		members:  make(map[ConnID]Sender),
		players:  make(map[ConnID]State),
		ghosts:   make(map[string]State),
		settings: settings,
		metrics:  newRoomMetrics(parent),
		cmds:     make(chan func()),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Metrics 房间指标
func (r *Room) Metrics() *RoomMetrics { return r.metrics }

// Join 将连接加入房间：先发快照（不含自己），再写入空记录
func (r *Room) Join(id ConnID, out Sender) bool {
	return r.do(func() {
		players := make(map[ConnID]State, len(r.players))
		for pid, st := range r.players {
			if pid != id {
				players[pid] = st.Clone()
			}
		}
		ghosts := make(map[string]State, len(r.ghosts))
		for gid, st := range r.ghosts {
			ghosts[gid] = st.Clone()
		}
		r.send(out, EventPlayers, players)
		r.send(out, EventGhosts, ghosts)

		r.members[id] = out
		r.players[id] = State{}
		r.metrics.IncJoins()
		if !r.electHost() {
			// 房主未变时广播不会发生，单独告知新成员当前房主
			r.send(out, EventHost, HostMessage{ID: string(r.host)})
		}
	})
}

// Leave 移除连接记录并通知其他成员；返回剩余成员数
func (r *Room) Leave(id ConnID) (remaining int, ok bool) {
	r.do(func() {
		if _, ok = r.members[id]; !ok {
			remaining = len(r.members)
			return
		}
		delete(r.members, id)
		delete(r.players, id)
		r.metrics.IncLeaves()
		r.broadcast(id, EventPlayerDisconnect, string(id))
		r.electHost()
		remaining = len(r.members)
	})
	return remaining, ok
}

// MergeState 合并 update 并广播给其他成员；非成员的更新被忽略
func (r *Room) MergeState(id ConnID, partial State) (merged State, ok bool) {
	r.do(func() {
		if _, ok = r.members[id]; !ok {
			return
		}
		merged = Merge(r.players[id], partial)
		r.players[id] = merged
		r.metrics.IncUpdatesMerged()
		r.broadcast(id, EventPlayerUpdate, PlayerUpdateMessage{ID: string(id), State: merged})
	})
	return merged, ok
}

// Host 当前房主：成员中字典序最小的连接 id
func (r *Room) Host() ConnID {
	var host ConnID
	r.do(func() { host = r.host })
	return host
}

// Len 成员数
func (r *Room) Len() int {
	n := 0
	r.do(func() { n = len(r.members) })
	return n
}

// Player 查询单个玩家记录
func (r *Room) Player(id ConnID) (State, bool) {
	var st State
	var ok bool
	r.do(func() {
		st, ok = r.players[id]
		st = st.Clone()
	})
	return st, ok
}

// Info 房间概要；detail 为 true 时包含全部记录
func (r *Room) Info(detail bool) (RoomInfo, bool) {
	var info RoomInfo
	ok := r.do(func() {
		info = RoomInfo{ID: r.ID, Members: len(r.members), Host: r.host, Ghosts: len(r.ghosts)}
		if !detail {
			return
		}
		info.Players = make(map[ConnID]State, len(r.players))
		for pid, st := range r.players {
			info.Players[pid] = st.Clone()
		}
		info.GhostStates = make(map[string]State, len(r.ghosts))
		for gid, st := range r.ghosts {
			info.GhostStates[gid] = st.Clone()
		}
	})
	return info, ok
}

// electHost 重新选举房主，变化时通知全体成员并返回 true
func (r *Room) electHost() bool {
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	var next ConnID
	if len(ids) > 0 {
		next = ConnID(ids[0])
	}
	if next == r.host {
		return false
	}
	r.host = next
	if next != "" {
		r.broadcast("", EventHost, HostMessage{ID: string(next)})
	}
	return true
}

// broadcast 编码一次，发给除 exclude 外的所有成员；投递失败直接计数忽略
func (r *Room) broadcast(exclude ConnID, event string, payload any) {
	b, err := encodeEvent(event, payload)
	if err != nil {
		Log.Errorf("room %s: %v", r.ID, err)
		return
	}
	r.fanout(exclude, b)
}

// relay 原样转发已校验的负载
func (r *Room) relay(exclude ConnID, event string, data json.RawMessage) {
	b, err := json.Marshal(Envelope{Type: event, Data: data})
	if err != nil {
		Log.Errorf("room %s: relay %s: %v", r.ID, event, err)
		return
	}
	r.fanout(exclude, b)
}

func (r *Room) fanout(exclude ConnID, b []byte) {
	var sent, dropped int64
	for id, out := range r.members {
		if id == exclude {
			continue
		}
		if out.Enqueue(b) {
			sent++
		} else {
			dropped++
		}
	}
	r.metrics.AddFramesSent(sent)
	if dropped > 0 {
		r.metrics.AddFramesDropped(dropped)
	}
}

func (r *Room) send(out Sender, event string, payload any) {
	b, err := encodeEvent(event, payload)
	if err != nil {
		Log.Errorf("room %s: %v", r.ID, err)
		return
	}
	if out.Enqueue(b) {
		r.metrics.AddFramesSent(1)
	} else {
		r.metrics.AddFramesDropped(1)
	}
}
