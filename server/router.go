package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter 注册全部 HTTP 路由；staticDir 非空时将 / 映射到前端静态资源
func NewRouter(h *Hub, staticDir string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", h.HandleWS).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/metrics", h.HandleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/admin/config", h.HandleAdminConfig).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/admin/rooms", h.HandleRooms).Methods(http.MethodGet)
	r.HandleFunc("/admin/rooms/{room}", h.HandleRoom).Methods(http.MethodGet)
	if staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}
	return r
}
