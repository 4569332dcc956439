package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/morezero/plex-mcp-server/pkg/permission"
)

var envVars = []string{
	"PLEX_URL", "PLEX_TOKEN", "PLEX_USERNAME", "PLEX_TV_URL", "PLEX_MIN_VERSION",
	"PERMISSIONS", "TRANSPORT", "HOST", "PORT", "DEBUG", "LOG_LEVEL",
	"REQUEST_TIMEOUT", "CONNECTION_TIMEOUT", "SESSION_TIMEOUT", "HEALTH_CHECK_TIMEOUT",
	"COMMS_URL", "COMMS_SUBJECT", "COMMS_EVENT_SUBJECT", "SERVICE_NAME",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envVars {
		// t.Setenv restores the previous value when the test ends.
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	if cfg.PlexTVURL != "https://plex.tv" {
		t.Errorf("config:config_test - PlexTVURL = %q, want %q", cfg.PlexTVURL, "https://plex.tv")
	}
	if cfg.Permissions != "read" {
		t.Errorf("config:config_test - Permissions = %q, want read", cfg.Permissions)
	}
	if cfg.Transport != TransportSSE || cfg.Host != "0.0.0.0" || cfg.Port != 8000 {
		t.Errorf("config:config_test - transport = %s %s:%d, want sse 0.0.0.0:8000", cfg.Transport, cfg.Host, cfg.Port)
	}
	if cfg.Debug || cfg.LogLevel != "info" {
		t.Errorf("config:config_test - Debug = %v, LogLevel = %q", cfg.Debug, cfg.LogLevel)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("config:config_test - RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.ConnectionTimeout != 5*time.Second {
		t.Errorf("config:config_test - ConnectionTimeout = %v, want 5s", cfg.ConnectionTimeout)
	}
	if cfg.SessionTimeout != 30*time.Minute {
		t.Errorf("config:config_test - SessionTimeout = %v, want 30m", cfg.SessionTimeout)
	}
	if cfg.HealthCheckTimeout != 5*time.Second {
		t.Errorf("config:config_test - HealthCheckTimeout = %v, want 5s", cfg.HealthCheckTimeout)
	}
	if cfg.COMMSURL != "" {
		t.Errorf("config:config_test - COMMSURL = %q, want empty", cfg.COMMSURL)
	}
	if cfg.COMMSSubject != "plex.commands" || cfg.COMMSEventSubject != "plex.events" {
		t.Errorf("config:config_test - subjects = %q %q", cfg.COMMSSubject, cfg.COMMSEventSubject)
	}
	if cfg.ServiceName != "plex-mcp-server" {
		t.Errorf("config:config_test - ServiceName = %q, want plex-mcp-server", cfg.ServiceName)
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	overrides := map[string]string{
		"PLEX_URL":         "http://10.0.0.5:32400",
		"PLEX_TOKEN":       "secret-token",
		"PLEX_MIN_VERSION": "1.32.0",
		"PERMISSIONS":      "delete",
		"TRANSPORT":        "stdio",
		"PORT":             "9090",
		"DEBUG":            "true",
		"REQUEST_TIMEOUT":  "10s",
		"SESSION_TIMEOUT":  "1h",
		"COMMS_URL":        "nats://127.0.0.1:4222",
		"SERVICE_NAME":     "den-plex",
	}
	for key, val := range overrides {
		t.Setenv(key, val)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}
	if cfg.PlexURL != "http://10.0.0.5:32400" || cfg.PlexToken != "secret-token" {
		t.Errorf("config:config_test - plex = %q %q", cfg.PlexURL, cfg.PlexToken)
	}
	if cfg.Transport != TransportStdio || cfg.Port != 9090 || !cfg.Debug {
		t.Errorf("config:config_test - cfg = %+v", cfg)
	}
	if cfg.RequestTimeout != 10*time.Second || cfg.SessionTimeout != time.Hour {
		t.Errorf("config:config_test - timeouts = %v %v", cfg.RequestTimeout, cfg.SessionTimeout)
	}
	if cfg.COMMSURL != "nats://127.0.0.1:4222" || cfg.ServiceName != "den-plex" {
		t.Errorf("config:config_test - comms = %q %q", cfg.COMMSURL, cfg.ServiceName)
	}
	if tier, err := cfg.Tier(); err != nil || tier != permission.Delete {
		t.Errorf("config:config_test - Tier() = %v, %v", tier, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		t.Errorf("config:config_test - ValidateForServe: %v", err)
	}
}

func TestLoadConfig_BadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("REQUEST_TIMEOUT", "soon")
	if _, err := LoadConfig(); err == nil {
		t.Error("config:config_test - expected error for unparseable duration")
	}
}

func validConfig() *Config {
	return &Config{
		PlexURL:            "https://plex.local:32400",
		PlexToken:          "abcdef123",
		Permissions:        "read",
		Transport:          TransportSSE,
		Port:               8000,
		RequestTimeout:     30 * time.Second,
		ConnectionTimeout:  5 * time.Second,
		SessionTimeout:     30 * time.Minute,
		HealthCheckTimeout: 5 * time.Second,
		COMMSSubject:       "plex.commands",
	}
}

func TestValidateForServe(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.PlexURL = "" }, want: "PLEX_URL is required"},
		{name: "bad scheme", mutate: func(c *Config) { c.PlexURL = "ftp://plex.local" }, want: "PLEX_URL must be an http(s) URL"},
		{name: "no host", mutate: func(c *Config) { c.PlexURL = "http://" }, want: "PLEX_URL must be an http(s) URL"},
		{name: "missing token", mutate: func(c *Config) { c.PlexToken = "" }, want: "PLEX_TOKEN is required"},
		{name: "bad tier", mutate: func(c *Config) { c.Permissions = "admin" }, want: "PERMISSIONS"},
		{name: "bad transport", mutate: func(c *Config) { c.Transport = "websocket" }, want: "TRANSPORT must be"},
		{name: "bad port", mutate: func(c *Config) { c.Port = 70000 }, want: "PORT must be between"},
		{name: "zero timeout", mutate: func(c *Config) { c.SessionTimeout = 0 }, want: "SESSION_TIMEOUT must be positive"},
		{name: "bad min version", mutate: func(c *Config) { c.PlexMinVersion = "newest please" }, want: "PLEX_MIN_VERSION"},
		{name: "comms without subject", mutate: func(c *Config) { c.COMMSURL = "nats://x:4222"; c.COMMSSubject = "" }, want: "COMMS_SUBJECT is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.ValidateForServe()
			if tt.want == "" {
				if err != nil {
					t.Errorf("config:config_test - unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("config:config_test - error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		want  slog.Level
	}{
		{level: "debug", want: slog.LevelDebug},
		{level: "INFO", want: slog.LevelInfo},
		{level: "warn", want: slog.LevelWarn},
		{level: "error", want: slog.LevelError},
		{level: "verbose", want: slog.LevelInfo},
		{level: "error", debug: true, want: slog.LevelDebug},
	}
	for _, tt := range tests {
		c := &Config{LogLevel: tt.level, Debug: tt.debug}
		if got := c.Level(); got != tt.want {
			t.Errorf("config:config_test - Level(%q, debug=%v) = %v, want %v", tt.level, tt.debug, got, tt.want)
		}
	}
}

func TestMaskedToken(t *testing.T) {
	for token, want := range map[string]string{"abcdef123": "abcd****", "abc": "***", "": ""} {
		c := &Config{PlexToken: token}
		if got := c.MaskedToken(); got != want {
			t.Errorf("config:config_test - MaskedToken(%q) = %q, want %q", token, got, want)
		}
	}
}
