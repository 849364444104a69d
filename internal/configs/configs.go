/*
Package configs is responsible for loading and parsing the application's configuration settings.

Everything is read from environment variables. The defaults leave the chat protocol behaviour
untouched: no rate limits, no gateway, and the log file used by the terminal client.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Settings
	Environment string
	LogFile     string

	// Connection Settings
	WriteTimeout time.Duration
	MaxConns     int // zero means unlimited

	// Rate Limit Settings (a zero rate disables the limiter)
	MsgRate   float64
	MsgBurst  int
	JoinRate  float64
	JoinBurst int

	// Gateway Settings
	GatewayAddr    string
	AllowedOrigins []string
}

// IsDevelopment reports whether the application runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads and parses the application configuration from environment variables.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Settings ---
	cfg.Environment = os.Getenv("CHAT_ENV")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.LogFile = os.Getenv("CHAT_LOG_FILE")
	if cfg.LogFile == "" {
		cfg.LogFile = "chat.log"
	}

	// --- Connection Settings ---
	timeoutStr := os.Getenv("CHAT_WRITE_TIMEOUT")
	if timeoutStr == "" {
		timeoutStr = "10s"
	}
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAT_WRITE_TIMEOUT environment variable: %w", err)
	}
	if timeout < 0 {
		return nil, fmt.Errorf("CHAT_WRITE_TIMEOUT must not be negative, got %s", timeout)
	}
	cfg.WriteTimeout = timeout

	if maxStr := os.Getenv("CHAT_MAX_CONNS"); maxStr != "" {
		if cfg.MaxConns, err = strconv.Atoi(maxStr); err != nil {
			return nil, fmt.Errorf("invalid CHAT_MAX_CONNS environment variable: %w", err)
		}
		if cfg.MaxConns < 0 {
			return nil, fmt.Errorf("CHAT_MAX_CONNS must not be negative, got %d", cfg.MaxConns)
		}
	}

	// --- Rate Limit Settings ---
	if cfg.MsgRate, err = floatEnv("CHAT_MSG_RATE"); err != nil {
		return nil, err
	}
	if cfg.MsgBurst, err = intEnv("CHAT_MSG_BURST", 5); err != nil {
		return nil, err
	}
	if cfg.JoinRate, err = floatEnv("CHAT_JOIN_RATE"); err != nil {
		return nil, err
	}
	if cfg.JoinBurst, err = intEnv("CHAT_JOIN_BURST", 5); err != nil {
		return nil, err
	}

	// --- Gateway Settings ---
	cfg.GatewayAddr = strings.TrimSpace(os.Getenv("CHAT_GATEWAY_ADDR"))

	originsStr := os.Getenv("CHAT_ALLOWED_ORIGINS")
	cfg.AllowedOrigins = []string{}
	if originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	return cfg, nil
}

func floatEnv(key string) (float64, error) {
	str := os.Getenv(key)
	if str == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %v", key, v)
	}
	return v, nil
}

func intEnv(key string, def int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return def, nil
	}
	v, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if v < 1 {
		return 0, fmt.Errorf("%s must be at least 1, got %d", key, v)
	}
	return v, nil
}
