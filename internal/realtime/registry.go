// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package realtime

import (
	"sort"
	"sync"
)

// Registry tracks the canonical live session per identity. It is mutated
// only by the hub's lifecycle handling; readers are the router and external
// presence queries.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register records s as the canonical session for its identity,
// unconditionally overwriting any existing entry. The replaced session is
// returned so the caller can evict its transport; nil when the slot was
// empty.
func (r *Registry) Register(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	prior := r.sessions[s.Identity]
	r.sessions[s.Identity] = s
	return prior
}

// Deregister removes the entry for identity. No-op when absent, which makes
// double-disconnect races harmless.
func (r *Registry) Deregister(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, identity)
}

// IsOnline reports whether identity has a live session.
func (r *Registry) IsOnline(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[identity]
	return ok
}

// Count returns the current online user count.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SessionFor returns the live session for identity, or nil.
func (r *Registry) SessionFor(identity string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[identity]
}

// Snapshot returns every live session ordered by session ID. Broadcast
// iterates this snapshot; registrations during an in-flight broadcast do not
// affect it.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].id < sessions[j].id })
	return sessions
}
