package configs

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"CHAT_ENV", "CHAT_LOG_FILE", "CHAT_WRITE_TIMEOUT", "CHAT_MAX_CONNS", "CHAT_MSG_RATE", "CHAT_MSG_BURST",
		"CHAT_JOIN_RATE", "CHAT_JOIN_BURST", "CHAT_GATEWAY_ADDR", "CHAT_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if !cfg.IsDevelopment() {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
	if cfg.LogFile != "chat.log" {
		t.Errorf("LogFile = %q, want chat.log", cfg.LogFile)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", cfg.WriteTimeout)
	}
	if cfg.MaxConns != 0 {
		t.Errorf("MaxConns = %d, want 0 (unlimited)", cfg.MaxConns)
	}
	if cfg.MsgRate != 0 || cfg.JoinRate != 0 {
		t.Errorf("rate limits should be disabled by default, got msg=%v join=%v", cfg.MsgRate, cfg.JoinRate)
	}
	if cfg.GatewayAddr != "" {
		t.Errorf("GatewayAddr = %q, want empty", cfg.GatewayAddr)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Errorf("AllowedOrigins = %v, want empty", cfg.AllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("CHAT_ENV", "production")
	t.Setenv("CHAT_WRITE_TIMEOUT", "250ms")
	t.Setenv("CHAT_MAX_CONNS", "50")
	t.Setenv("CHAT_MSG_RATE", "2.5")
	t.Setenv("CHAT_MSG_BURST", "3")
	t.Setenv("CHAT_GATEWAY_ADDR", " :9090 ")
	t.Setenv("CHAT_ALLOWED_ORIGINS", "http://a.example, ,http://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.IsDevelopment() {
		t.Error("expected production environment")
	}
	if cfg.WriteTimeout != 250*time.Millisecond {
		t.Errorf("WriteTimeout = %v, want 250ms", cfg.WriteTimeout)
	}
	if cfg.MaxConns != 50 {
		t.Errorf("MaxConns = %d, want 50", cfg.MaxConns)
	}
	if cfg.MsgRate != 2.5 || cfg.MsgBurst != 3 {
		t.Errorf("msg limit = %v/%d, want 2.5/3", cfg.MsgRate, cfg.MsgBurst)
	}
	if cfg.GatewayAddr != ":9090" {
		t.Errorf("GatewayAddr = %q, want :9090", cfg.GatewayAddr)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v, want 2 entries", cfg.AllowedOrigins)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"BadTimeout", "CHAT_WRITE_TIMEOUT", "soon"},
		{"NegativeTimeout", "CHAT_WRITE_TIMEOUT", "-1s"},
		{"BadMaxConns", "CHAT_MAX_CONNS", "many"},
		{"NegativeMaxConns", "CHAT_MAX_CONNS", "-3"},
		{"BadRate", "CHAT_MSG_RATE", "fast"},
		{"NegativeRate", "CHAT_JOIN_RATE", "-2"},
		{"ZeroBurst", "CHAT_MSG_BURST", "0"},
		{"NonNumericBurst", "CHAT_JOIN_BURST", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
