// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package realtime

import (
	"io"
	"testing"
	"time"

	"github.com/Lohithpallikonda/medsbuddy/internal/config"
	"github.com/Lohithpallikonda/medsbuddy/internal/logging"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

// testRealtimeConfig returns small, test-friendly realtime settings.
func testRealtimeConfig() config.RealtimeConfig {
	return config.RealtimeConfig{
		AuthTimeout:    time.Second,
		SendBuffer:     8,
		MaxMessageSize: 64 * 1024,
		InboundRate:    100,
		InboundBurst:   100,
	}
}

// newTestHub builds a hub whose lifecycle handlers are invoked directly by
// tests instead of through the Run loop.
func newTestHub(t *testing.T) *Hub {
	t.Helper()
	return NewHub(testRealtimeConfig(), nil)
}

// newTestSession builds a session with no transport. Events queue in its
// send channel where tests can inspect them.
func newTestSession(h *Hub, identity, username string, role models.Role) *Session {
	return NewSession(h, nil, identity, username, role)
}

func TestRegistryRegisterReturnsPrior(t *testing.T) {
	h := newTestHub(t)
	r := NewRegistry()

	first := newTestSession(h, "7", "marie", models.RolePatient)
	if prior := r.Register(first); prior != nil {
		t.Fatalf("expected no prior session, got %v", prior)
	}

	second := newTestSession(h, "7", "marie", models.RolePatient)
	prior := r.Register(second)
	if prior != first {
		t.Fatalf("expected first session as prior, got %v", prior)
	}
	if got := r.SessionFor("7"); got != second {
		t.Fatalf("expected second session to be canonical, got %v", got)
	}
	if r.Count() != 1 {
		t.Fatalf("expected count 1, got %d", r.Count())
	}
}

func TestRegistryDeregisterIdempotent(t *testing.T) {
	h := newTestHub(t)
	r := NewRegistry()

	s := newTestSession(h, "7", "marie", models.RolePatient)
	r.Register(s)

	r.Deregister("7")
	if r.IsOnline("7") {
		t.Fatal("expected user offline after deregister")
	}

	// Second deregister is a no-op.
	r.Deregister("7")
	r.Deregister("never-registered")
	if r.Count() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Count())
	}
}

func TestRegistrySnapshotOrderedBySessionID(t *testing.T) {
	h := newTestHub(t)
	r := NewRegistry()

	a := newTestSession(h, "1", "a", models.RolePatient)
	b := newTestSession(h, "2", "b", models.RolePatient)
	c := newTestSession(h, "3", "c", models.RoleCaretaker)
	r.Register(c)
	r.Register(a)
	r.Register(b)

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(snap))
	}
	for i := 1; i < len(snap); i++ {
		if snap[i-1].id >= snap[i].id {
			t.Fatalf("snapshot not ordered by session id: %d >= %d", snap[i-1].id, snap[i].id)
		}
	}
}

func TestRegistrySessionForUnknown(t *testing.T) {
	r := NewRegistry()
	if s := r.SessionFor("absent"); s != nil {
		t.Fatalf("expected nil for unknown identity, got %v", s)
	}
	if r.IsOnline("absent") {
		t.Fatal("expected unknown identity to be offline")
	}
}
