package server

import (
	"testing"
	"time"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := configFromEnv(lookupFrom(nil))
	if cfg.Port != "4000" || cfg.DefaultRoom != "default" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Overflow != OverflowDropOldest || !cfg.ReapEmptyRooms || cfg.EnforceGhostHost {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestConfigFromEnv(t *testing.T) {
	cfg := configFromEnv(lookupFrom(map[string]string{
		"PORT":               "9000",
		"DEFAULT_ROOM":       "lobby",
		"SEND_QUEUE":         "8",
		"OVERFLOW_POLICY":    "Disconnect",
		"PING_INTERVAL":      "5s",
		"PONG_WAIT":          "15s",
		"MAX_VIOLATIONS":     "3",
		"ENFORCE_GHOST_HOST": "true",
		"REAP_EMPTY_ROOMS":   "false",
		"LOG_FILE":           "",
	}))
	if cfg.Port != "9000" || cfg.DefaultRoom != "lobby" || cfg.SendQueue != 8 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Overflow != OverflowDisconnect || cfg.PingInterval != 5*time.Second || cfg.PongWait != 15*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.MaxViolations != 3 || !cfg.EnforceGhostHost || cfg.ReapEmptyRooms || cfg.LogFile != "" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConfigZeroMaxViolationsDisablesLimit(t *testing.T) {
	def := DefaultConfig()
	cfg := configFromEnv(lookupFrom(map[string]string{
		"MAX_VIOLATIONS":    "0",
		"SEND_QUEUE":        "0",
		"MAX_MESSAGE_BYTES": "0",
	}))
	if cfg.MaxViolations != 0 {
		t.Fatalf("MAX_VIOLATIONS=0 must disable the limit, got %d", cfg.MaxViolations)
	}
	if cfg.SendQueue != def.SendQueue || cfg.MaxMessageBytes != def.MaxMessageBytes {
		t.Fatalf("zero queue/message size must fall back to defaults, got %+v", cfg)
	}
}

func TestConfigInvalidValuesFallBack(t *testing.T) {
	def := DefaultConfig()
	cfg := configFromEnv(lookupFrom(map[string]string{
		"SEND_QUEUE":         "-1",
		"OVERFLOW_POLICY":    "block",
		"PING_INTERVAL":      "90s",
		"MAX_VIOLATIONS":     "many",
		"ENFORCE_GHOST_HOST": "maybe",
		"DEFAULT_ROOM":       "",
	}))
	if cfg.SendQueue != def.SendQueue || cfg.Overflow != def.Overflow || cfg.MaxViolations != def.MaxViolations {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.PingInterval != def.PingInterval || cfg.PongWait != def.PongWait {
		t.Fatalf("ping interval longer than pong wait must reset, got %+v", cfg)
	}
	if cfg.EnforceGhostHost || cfg.DefaultRoom != "default" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
