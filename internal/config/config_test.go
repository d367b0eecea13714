// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package config

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = testSecret
	return cfg
}

func TestDefaultsAreValidWithSecret(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with secret should validate, got %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("default port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Realtime.AuthTimeout != 5*time.Second {
		t.Errorf("default auth timeout = %s, want 5s", cfg.Realtime.AuthTimeout)
	}
}

func TestValidateRejectsMissingSecret(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrMissingJWTSecret) {
		t.Errorf("expected ErrMissingJWTSecret, got %v", err)
	}
}

func TestValidateRejectsShortSecret(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = "too-short"
	if err := cfg.Validate(); !errors.Is(err, ErrWeakJWTSecret) {
		t.Errorf("expected ErrWeakJWTSecret, got %v", err)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 0")
	}
}

func TestValidateRejectsZeroAuthTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Realtime.AuthTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero auth timeout")
	}
}

func TestValidateRequiresPathUnlessInMemory(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty path")
	}
	cfg.Database.InMemory = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("in-memory config should not require a path, got %v", err)
	}
}

func TestEnvTransform(t *testing.T) {
	cases := map[string]string{
		"MEDSBUDDY_SERVER__PORT":           "server.port",
		"MEDSBUDDY_SECURITY__JWT_SECRET":   "security.jwt_secret",
		"MEDSBUDDY_REALTIME__AUTH_TIMEOUT": "realtime.auth_timeout",
	}
	for in, want := range cases {
		if got := envTransform(in); got != want {
			t.Errorf("envTransform(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("MEDSBUDDY_SECURITY__JWT_SECRET", testSecret)
	t.Setenv("MEDSBUDDY_SERVER__PORT", "8123")
	t.Setenv("MEDSBUDDY_DATABASE__IN_MEMORY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("env override not applied, port = %d", cfg.Server.Port)
	}
	if !cfg.Database.InMemory {
		t.Error("env override not applied for database.in_memory")
	}
}
