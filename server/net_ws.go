package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws       *websocket.Conn
	send     chan []byte
	overflow OverflowPolicy
	ping     time.Duration
	pongWait time.Duration
	metrics  *RoomMetrics

	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string
}

func NewClientConn(ws *websocket.Conn, cfg Config, metrics *RoomMetrics) *ClientConn {
	def := DefaultConfig()
	queue := cfg.SendQueue
	if queue <= 0 {
		queue = def.SendQueue
	}
	if cfg.PingInterval <= 0 || cfg.PongWait <= cfg.PingInterval {
		cfg.PingInterval, cfg.PongWait = def.PingInterval, def.PongWait
	}
	return &ClientConn{
		ws:        ws,
		send:      make(chan []byte, queue),
		overflow:  cfg.Overflow,
		ping:      cfg.PingInterval,
		pongWait:  cfg.PongWait,
		metrics:   metrics,
		closeCode: websocket.CloseNormalClosure,
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞）
// 队列满时按策略丢弃最旧的消息，或直接断开连接
func (c *ClientConn) Enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
	}
	if c.overflow == OverflowDisconnect {
		c.closeLocked(websocket.ClosePolicyViolation, "send queue overflow")
		return false
	}
	select {
	case <-c.send:
		if c.metrics != nil {
			c.metrics.AddFramesDropped(1)
		}
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close 正常关闭
func (c *ClientConn) Close() {
	c.CloseWith(websocket.CloseNormalClosure, "")
}

// CloseWith 关闭发送队列，写协程发出关闭帧后断开底层连接
func (c *ClientConn) CloseWith(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked(code, reason)
}

func (c *ClientConn) closeLocked(code int, reason string) {
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode, c.closeReason = code, reason
	close(c.send)
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(c.ping)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.mu.Lock()
				frame := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
				c.mu.Unlock()
				_ = c.ws.WriteMessage(websocket.CloseMessage, frame)
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息并交给 Hub 分发；退出时走断开流程
func (c *ClientConn) readPump(h *Hub, s *Session) {
	defer c.ws.Close()
	defer c.Close()
	defer h.Disconnect(s.ID)
	c.ws.SetReadLimit(h.cfg.MaxMessageBytes)
	c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(c.pongWait)); return nil })

	for {
		kind, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				Log.Debugf("read %s: %v", s.ID, err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		_ = h.Dispatch(s.ID, payload)
	}
}

// HandleWS WebSocket 接入：/ws?room=r1（缺省为默认房间）
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	client := NewClientConn(ws, h.cfg, h.metrics)
	go client.writePump()
	s := h.Connect(roomID, client)
	go client.readPump(h, s)
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// 与原前端一致：允许所有来源
			return true
		},
	}
}
