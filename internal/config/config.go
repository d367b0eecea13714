// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

// Package config loads and validates application configuration.
//
// Configuration is layered with koanf: struct defaults first, then an
// optional YAML file, then environment variables. Later layers override
// earlier ones. Environment variables use the MEDSBUDDY_ prefix with "__"
// as the nesting separator, e.g. MEDSBUDDY_SERVER__PORT=8080.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the root configuration for the medsbuddy server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Database DatabaseConfig `koanf:"database"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Logging  LoggingConfig  `koanf:"logging"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	AllowedOrigin   string        `koanf:"allowed_origin"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	// JWTSecret signs and verifies HS256 bearer tokens. Minimum 32 bytes.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// BcryptCost is the work factor for password hashing.
	BcryptCost int `koanf:"bcrypt_cost"`
}

// DatabaseConfig holds Badger storage settings.
type DatabaseConfig struct {
	// Path is the Badger data directory. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory runs Badger without persistence; used by tests and demos.
	InMemory bool `koanf:"in_memory"`
}

// RealtimeConfig holds WebSocket layer settings.
type RealtimeConfig struct {
	// AuthTimeout bounds handshake credential verification. A connection
	// that cannot be authenticated within this window is rejected.
	AuthTimeout time.Duration `koanf:"auth_timeout"`

	// SendBuffer is the per-session outbound queue length. A session whose
	// queue is full has the event dropped (fire-and-forget).
	SendBuffer int `koanf:"send_buffer"`

	// MaxMessageSize caps inbound frame size in bytes.
	MaxMessageSize int64 `koanf:"max_message_size"`

	// InboundRate and InboundBurst bound client event throughput per session.
	InboundRate  float64 `koanf:"inbound_rate"`
	InboundBurst int     `koanf:"inbound_burst"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// MetricsConfig holds Prometheus exposure settings.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// defaultConfig returns a Config with all defaults applied. These are
// overridden by the config file and environment layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigin:   "http://localhost:3000",
		},
		Security: SecurityConfig{
			JWTSecret:  "",
			TokenTTL:   24 * time.Hour,
			BcryptCost: 10,
		},
		Database: DatabaseConfig{
			Path:     "/data/medsbuddy",
			InMemory: false,
		},
		Realtime: RealtimeConfig{
			AuthTimeout:    5 * time.Second,
			SendBuffer:     256,
			MaxMessageSize: 64 * 1024,
			InboundRate:    20,
			InboundBurst:   40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validation errors.
var (
	ErrMissingJWTSecret = errors.New("security.jwt_secret is required")
	ErrWeakJWTSecret    = errors.New("security.jwt_secret must be at least 32 characters")
)

// Validate checks the configuration for fatal misconfiguration. It is called
// once at startup; the process refuses to start on error.
func (c *Config) Validate() error {
	if c.Security.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if len(c.Security.JWTSecret) < 32 {
		return ErrWeakJWTSecret
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Realtime.AuthTimeout <= 0 {
		return fmt.Errorf("realtime.auth_timeout must be positive, got %s", c.Realtime.AuthTimeout)
	}
	if c.Realtime.SendBuffer < 1 {
		return fmt.Errorf("realtime.send_buffer must be at least 1, got %d", c.Realtime.SendBuffer)
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return errors.New("database.path is required unless database.in_memory is set")
	}
	return nil
}
