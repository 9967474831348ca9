package server

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// SessionState 连接状态：Connecting → Joined → Disconnected（终态）
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateJoined
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Conn 会话持有的连接：可发送，也可被服务端主动关闭
type Conn interface {
	Sender
	CloseWith(code int, reason string)
}

// Session 单个连接的生命周期
type Session struct {
	ID   ConnID
	Room string

	out        Conn
	state      atomic.Int32
	violations atomic.Int64
}

// State 当前状态
func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Hub 服务入口：持有连接表、房间表与运行参数
type Hub struct {
	cfg      Config
	settings *Settings
	registry *Registry
	store    *RoomStore
	metrics  *RoomMetrics
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[ConnID]*Session
}

// NewHub 按配置创建 Hub
func NewHub(cfg Config) *Hub {
	settings := NewSettings(cfg)
	metrics := newRoomMetrics(nil)
	return &Hub{
		cfg:      cfg,
		settings: settings,
		registry: NewRegistry(cfg.DefaultRoom),
		store:    NewRoomStore(cfg.ReapEmptyRooms, settings, metrics),
		metrics:  metrics,
		upgrader: newUpgrader(),
		sessions: make(map[ConnID]*Session),
	}
}

func (h *Hub) Store() *RoomStore { return h.store }
func (h *Hub) Registry() *Registry { return h.registry }
func (h *Hub) Settings() *Settings { return h.settings }
func (h *Hub) Metrics() *RoomMetrics { return h.metrics }

// Close 向所有在线连接发送 going away 关闭帧，再停止所有房间（进程退出前调用）
func (h *Hub) Close() {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.out.CloseWith(websocket.CloseGoingAway, "server shutting down")
	}
	h.store.Close()
}

// Connect 分配 id、登记房间、发送 welcome 与快照
func (h *Hub) Connect(roomID string, out Conn) *Session {
	s := &Session{ID: ConnID(uuid.NewString()), out: out}
	s.state.Store(int32(StateConnecting))
	s.Room = h.registry.Join(s.ID, roomID)

	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	if b, err := encodeEvent(EventWelcome, WelcomeMessage{ID: string(s.ID), Room: s.Room}); err == nil {
		out.Enqueue(b)
	}
	h.store.Join(s.Room, s.ID, out)
	s.state.Store(int32(StateJoined))
	Log.Infof("player %s connected to room %s", s.ID, s.Room)
	return s
}

// Disconnect 删除记录、通知同房间成员；可重复调用
func (h *Hub) Disconnect(id ConnID) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return
	}
	s.state.Store(int32(StateDisconnected))

	roomID, ok := h.registry.Leave(id)
	if !ok {
		return
	}
	h.store.Leave(roomID, id)
	Log.Infof("player %s disconnected from room %s", id, roomID)
}

// Session 查询会话
func (h *Hub) Session(id ConnID) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

// Dispatch 处理一条入站帧；校验失败时回 error 事件，违规过多则断开
func (h *Hub) Dispatch(id ConnID, frame []byte) error {
	s, ok := h.Session(id)
	if !ok || s.State() != StateJoined {
		return nil
	}
	roomID, ok := h.registry.Lookup(id)
	if !ok {
		return nil
	}
	room, ok := h.store.Get(roomID)
	if !ok {
		return nil
	}

	err := h.route(room, id, frame)
	var perr *ProtocolError
	if errors.As(err, &perr) {
		h.reject(s, room, perr)
	}
	return err
}

func (h *Hub) route(room *Room, id ConnID, frame []byte) error {
	env, err := DecodeEnvelope(frame)
	if err != nil {
		return err
	}
	switch env.Type {
	case EventUpdate:
		partial, err := ParseUpdate(env.Data)
		if err != nil {
			return err
		}
		room.MergeState(id, partial)
	case EventMagicBall:
		bullet, err := ParseBullet(env.Data)
		if err != nil {
			return err
		}
		room.Fire(id, bullet)
	case EventGhostSpawn, EventGhostUpdate:
		ghostID, st, err := ParseGhost(env.Type, env.Data)
		if err != nil {
			return err
		}
		if env.Type == EventGhostSpawn {
			err = room.GhostSpawn(id, ghostID, st, env.Data)
		} else {
			err = room.GhostUpdate(id, ghostID, st, env.Data)
		}
		return notHost(env.Type, err)
	case EventGhostDead:
		ghostID, err := ParseGhostID(env.Data)
		if err != nil {
			return err
		}
		return notHost(env.Type, room.GhostDeath(id, ghostID))
	default:
		return &ProtocolError{Code: CodeUnknownEvent, Event: env.Type, Message: "unknown event type"}
	}
	return nil
}

func notHost(event string, err error) error {
	if errors.Is(err, ErrNotHost) {
		return &ProtocolError{Code: CodeNotHost, Event: event, Message: err.Error()}
	}
	return err
}

func (h *Hub) reject(s *Session, room *Room, perr *ProtocolError) {
	room.Metrics().IncViolations()
	n := s.violations.Add(1)
	Log.Debugf("player %s: %v", s.ID, perr)

	if b, err := encodeEvent(EventError, ErrorMessage{Code: perr.Code, Message: perr.Message, Event: perr.Event}); err == nil {
		s.out.Enqueue(b)
	}
	if limit := h.settings.MaxViolations(); limit > 0 && n >= int64(limit) {
		Log.Warnf("player %s closed after %d protocol violations", s.ID, n)
		s.out.CloseWith(websocket.ClosePolicyViolation, "too many protocol violations")
	}
}
