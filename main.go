package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ghostrelay/server"
)

// ghostrelay 入口：启动 HTTP + WebSocket 服务，按房间转发玩家与幽魂状态
func main() {
	cfg := server.LoadConfig()

	var addr, static string
	flag.StringVar(&addr, "addr", net.JoinHostPort("", cfg.Port), "server listen address, e.g. :4000 (default from PORT)")
	flag.StringVar(&static, "static", "", "directory served at / (disabled when empty)")
	flag.Parse()

	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	hub := server.NewHub(cfg)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(hub, static),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		server.Log.Infof("ghostrelay listening on %s (default room %q)", addr, cfg.DefaultRoom)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnf("shutdown: %v", err)
	}
	hub.Close()
}
