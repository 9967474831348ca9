package server

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OverflowPolicy 发送队列满时的处理策略
type OverflowPolicy string

const (
	OverflowDropOldest OverflowPolicy = "drop-oldest"
	OverflowDisconnect OverflowPolicy = "disconnect"
)

// Config 服务运行参数，全部来自环境变量（可选 .env）
type Config struct {
	Port        string
	LogFile     string
	LogLevel    string
	DefaultRoom string

	SendQueue       int
	Overflow        OverflowPolicy
	PingInterval    time.Duration
	PongWait        time.Duration
	MaxMessageBytes int64

	MaxViolations    int
	EnforceGhostHost bool
	ReapEmptyRooms   bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Port:             "4000",
		LogFile:          "app.log",
		LogLevel:         "debug",
		DefaultRoom:      "default",
		SendQueue:        64,
		Overflow:         OverflowDropOldest,
		PingInterval:     25 * time.Second,
		PongWait:         60 * time.Second,
		MaxMessageBytes:  64 << 10,
		MaxViolations:    20,
		EnforceGhostHost: false,
		ReapEmptyRooms:   true,
	}
}

// LoadConfig 读取 .env（不存在则忽略）后从环境变量构建配置
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		Log.Warnf("failed to load .env: %v", err)
	}
	return configFromEnv(os.LookupEnv)
}

func configFromEnv(lookup func(string) (string, bool)) Config {
	cfg := DefaultConfig()
	cfg.Port = getEnv(lookup, "PORT", cfg.Port)
	cfg.LogFile = getEnv(lookup, "LOG_FILE", cfg.LogFile)
	cfg.LogLevel = getEnv(lookup, "LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultRoom = getEnv(lookup, "DEFAULT_ROOM", cfg.DefaultRoom)
	if cfg.DefaultRoom == "" {
		cfg.DefaultRoom = "default"
	}

	cfg.SendQueue = getEnvInt(lookup, "SEND_QUEUE", cfg.SendQueue, 1)
	switch p := OverflowPolicy(strings.ToLower(getEnv(lookup, "OVERFLOW_POLICY", string(cfg.Overflow)))); p {
	case OverflowDropOldest, OverflowDisconnect:
		cfg.Overflow = p
	default:
		Log.Warnf("invalid OVERFLOW_POLICY %q, using %s", p, cfg.Overflow)
	}
	cfg.PingInterval = getEnvDuration(lookup, "PING_INTERVAL", cfg.PingInterval)
	cfg.PongWait = getEnvDuration(lookup, "PONG_WAIT", cfg.PongWait)
	if cfg.PingInterval >= cfg.PongWait {
		Log.Warnf("PING_INTERVAL %s must be shorter than PONG_WAIT %s, using defaults", cfg.PingInterval, cfg.PongWait)
		def := DefaultConfig()
		cfg.PingInterval, cfg.PongWait = def.PingInterval, def.PongWait
	}
	cfg.MaxMessageBytes = int64(getEnvInt(lookup, "MAX_MESSAGE_BYTES", int(cfg.MaxMessageBytes), 1))

	cfg.MaxViolations = getEnvInt(lookup, "MAX_VIOLATIONS", cfg.MaxViolations, 0)
	cfg.EnforceGhostHost = getEnvBool(lookup, "ENFORCE_GHOST_HOST", cfg.EnforceGhostHost)
	cfg.ReapEmptyRooms = getEnvBool(lookup, "REAP_EMPTY_ROOMS", cfg.ReapEmptyRooms)
	return cfg
}

// getEnv reads an environment variable and returns its value or a default value
func getEnv(lookup func(string) (string, bool), key, defaultValue string) string {
	value, exists := lookup(key)
	if !exists {
		return defaultValue
	}
	return value
}

// getEnvInt 小于 minValue 的值视为非法；MAX_VIOLATIONS 允许 0（不限制）
func getEnvInt(lookup func(string) (string, bool), key string, defaultValue, minValue int) int {
	raw, exists := lookup(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < minValue {
		Log.Warnf("invalid %s %q, using default value: %d", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(lookup func(string) (string, bool), key string, defaultValue bool) bool {
	raw, exists := lookup(key)
	if !exists {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		Log.Warnf("invalid %s %q, using default value: %t", key, raw, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(lookup func(string) (string, bool), key string, defaultValue time.Duration) time.Duration {
	raw, exists := lookup(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		Log.Warnf("invalid %s %q, using default value: %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}
