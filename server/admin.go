package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"
)

// Settings 可在运行时通过 /admin/config 修改的参数
type Settings struct {
	enforceGhostHost atomic.Bool
	maxViolations    atomic.Int64
}

// NewSettings 以启动配置初始化运行时参数
func NewSettings(cfg Config) *Settings {
	s := &Settings{}
	s.enforceGhostHost.Store(cfg.EnforceGhostHost)
	s.maxViolations.Store(int64(cfg.MaxViolations))
	return s
}

func (s *Settings) EnforceGhostHost() bool { return s.enforceGhostHost.Load() }
func (s *Settings) SetEnforceGhostHost(v bool) { s.enforceGhostHost.Store(v) }
func (s *Settings) MaxViolations() int { return int(s.maxViolations.Load()) }
func (s *Settings) SetMaxViolations(n int) { s.maxViolations.Store(int64(n)) }

// HandleAdminConfig 运行时参数的读取与更新
// GET /admin/config  返回当前配置
// POST /admin/config 以 JSON 载荷更新部分字段
func (h *Hub) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		EnforceGhostHost *bool `json:"enforceGhostHost,omitempty"`
		MaxViolations    *int  `json:"maxViolations,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		enforce, limit := h.settings.EnforceGhostHost(), h.settings.MaxViolations()
		writeJSON(w, http.StatusOK, cfg{EnforceGhostHost: &enforce, MaxViolations: &limit})
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.MaxViolations != nil && *body.MaxViolations < 0 {
			http.Error(w, "maxViolations must be >= 0", http.StatusBadRequest)
			return
		}
		if body.EnforceGhostHost != nil {
			h.settings.SetEnforceGhostHost(*body.EnforceGhostHost)
		}
		if body.MaxViolations != nil {
			h.settings.SetMaxViolations(*body.MaxViolations)
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		Log.Infof("config updated: enforceGhostHost=%t maxViolations=%d",
			h.settings.EnforceGhostHost(), h.settings.MaxViolations())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics 输出运行指标
// GET /metrics           全局
// GET /metrics?room=r1   指定房间
func (h *Hub) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"connections": h.registry.Count(),
			"rooms":       h.store.Len(),
			"metrics":     h.metrics.Snapshot(),
		})
		return
	}
	room, ok := h.store.Get(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room":    roomID,
		"metrics": room.Metrics().Snapshot(),
	})
}

// HandleRooms GET /admin/rooms 房间列表
func (h *Hub) HandleRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Rooms())
}

// HandleRoom GET /admin/rooms/{room} 房间详情（含全部记录）
func (h *Hub) HandleRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := h.store.Get(mux.Vars(r)["room"])
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	info, ok := room.Info(true)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
