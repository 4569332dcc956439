// Package config provides server configuration loaded from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/morezero/plex-mcp-server/pkg/permission"
	"github.com/morezero/plex-mcp-server/pkg/semver"
)

const logPrefix = "config:LoadConfig"

// Transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Config holds plex-mcp-server configuration.
type Config struct {
	// Plex Media Server
	PlexURL      string `envconfig:"PLEX_URL"`
	PlexToken    string `envconfig:"PLEX_TOKEN"`
	PlexUsername string `envconfig:"PLEX_USERNAME"`
	PlexTVURL    string `envconfig:"PLEX_TV_URL" default:"https://plex.tv"`
	// PlexMinVersion is an optional semver constraint on the server version.
	PlexMinVersion string `envconfig:"PLEX_MIN_VERSION"`

	// Permissions is the granted tier: read, write or delete.
	Permissions string `envconfig:"PERMISSIONS" default:"read"`

	// MCP transport
	Transport string `envconfig:"TRANSPORT" default:"sse"`
	Host      string `envconfig:"HOST" default:"0.0.0.0"`
	Port      int    `envconfig:"PORT" default:"8000"`

	// Logging
	Debug    bool   `envconfig:"DEBUG" default:"false"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Timeouts
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ConnectionTimeout  time.Duration `envconfig:"CONNECTION_TIMEOUT" default:"5s"`
	SessionTimeout     time.Duration `envconfig:"SESSION_TIMEOUT" default:"30m"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// COMMS: optional NATS request/reply surface. Empty COMMSURL disables it.
	COMMSURL          string `envconfig:"COMMS_URL"`
	COMMSSubject      string `envconfig:"COMMS_SUBJECT" default:"plex.commands"`
	COMMSEventSubject string `envconfig:"COMMS_EVENT_SUBJECT" default:"plex.events"`
	ServiceName       string `envconfig:"SERVICE_NAME" default:"plex-mcp-server"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateForServe checks required config when running the server.
func (c *Config) ValidateForServe() error {
	if c.PlexURL == "" {
		return fmt.Errorf("%s - PLEX_URL is required for serve", logPrefix)
	}
	u, err := url.Parse(c.PlexURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s - PLEX_URL must be an http(s) URL, got %q", logPrefix, c.PlexURL)
	}
	if c.PlexToken == "" {
		return fmt.Errorf("%s - PLEX_TOKEN is required for serve", logPrefix)
	}
	if _, err := c.Tier(); err != nil {
		return fmt.Errorf("%s - PERMISSIONS: %w", logPrefix, err)
	}
	switch c.Transport {
	case TransportStdio, TransportSSE:
	default:
		return fmt.Errorf("%s - TRANSPORT must be %q or %q, got %q", logPrefix, TransportStdio, TransportSSE, c.Transport)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%s - PORT must be between 1 and 65535, got %d", logPrefix, c.Port)
	}
	for name, d := range map[string]time.Duration{
		"REQUEST_TIMEOUT":      c.RequestTimeout,
		"CONNECTION_TIMEOUT":   c.ConnectionTimeout,
		"SESSION_TIMEOUT":      c.SessionTimeout,
		"HEALTH_CHECK_TIMEOUT": c.HealthCheckTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s - %s must be positive", logPrefix, name)
		}
	}
	if c.PlexMinVersion != "" {
		if _, err := semver.ParseConstraint(c.PlexMinVersion); err != nil {
			return fmt.Errorf("%s - PLEX_MIN_VERSION: %w", logPrefix, err)
		}
	}
	if c.COMMSURL != "" && c.COMMSSubject == "" {
		return fmt.Errorf("%s - COMMS_SUBJECT is required when COMMS_URL is set", logPrefix)
	}
	return nil
}

// Tier returns the granted permission tier.
func (c *Config) Tier() (permission.Tier, error) {
	return permission.Parse(c.Permissions)
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Level maps LOG_LEVEL and DEBUG to a slog level. DEBUG=true wins.
func (c *Config) Level() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MaskedToken shows the first four characters of the token only.
func (c *Config) MaskedToken() string {
	if len(c.PlexToken) <= 4 {
		return strings.Repeat("*", len(c.PlexToken))
	}
	return c.PlexToken[:4] + "****"
}
