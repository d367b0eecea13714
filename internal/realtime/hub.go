// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package realtime

import (
	"context"
	"sync"

	"github.com/Lohithpallikonda/medsbuddy/internal/config"
	"github.com/Lohithpallikonda/medsbuddy/internal/logging"
	"github.com/Lohithpallikonda/medsbuddy/internal/metrics"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
	"github.com/Lohithpallikonda/medsbuddy/internal/store"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was
	// exceeded, which may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub owns session lifecycle: registration with last-connect-wins eviction,
// default room membership, and disconnect cleanup. All lifecycle mutations
// flow through its Run loop, so registry and room state changes are
// serialized even though reads are concurrent.
type Hub struct {
	cfg config.RealtimeConfig

	registry   *Registry
	rooms      *Directory
	router     *Router
	dispatcher *Dispatcher

	register   chan *Session
	unregister chan *Session

	// done is closed when the Run loop exits. Lifecycle senders select
	// against it so a post-shutdown connect or disconnect cannot block.
	done     chan struct{}
	stopOnce sync.Once
}

// NewHub wires a Hub with fresh presence state. notifications may be nil.
func NewHub(cfg config.RealtimeConfig, notifications *store.NotificationStore) *Hub {
	registry := NewRegistry()
	rooms := NewDirectory()
	router := NewRouter(registry, rooms)

	h := &Hub{
		cfg:        cfg,
		registry:   registry,
		rooms:      rooms,
		router:     router,
		register:   make(chan *Session),
		unregister: make(chan *Session),
		done:       make(chan struct{}),
	}
	h.dispatcher = NewDispatcher(router, rooms, notifications)
	return h
}

// Run processes session lifecycle events until ctx is canceled. Designed for
// suture supervision: it returns ctx.Err() on shutdown after closing every
// live session.
//
// Priority-based selection keeps behavior predictable when multiple channels
// are ready: shutdown first, then lifecycle events.
func (h *Hub) Run(ctx context.Context) error {
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		// Priority 1: shutdown (non-blocking check).
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: lifecycle events (blocking wait).
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()

		case s := <-h.register:
			h.handleRegister(s)

		case s := <-h.unregister:
			h.handleUnregister(s)
		}
	}
}

// handleRegister installs s as the canonical session for its identity. A
// prior session for the same identity is evicted: its transport is closed
// and its room memberships dropped before the new session joins defaults.
func (h *Hub) handleRegister(s *Session) {
	if prior := h.registry.Register(s); prior != nil {
		prior.close()
		h.rooms.LeaveAll(s.Identity)
		logging.Info().
			Str("user_id", s.Identity).
			Str("username", s.Username).
			Msg("superseding existing connection")
	}

	h.rooms.Join(UserRoom(s.Identity), s.Identity)
	h.rooms.Join(RoleRoom(s.Role), s.Identity)

	metrics.ConnectionsActive.Set(float64(h.registry.Count()))
	logging.Info().
		Str("user_id", s.Identity).
		Str("username", s.Username).
		Str("role", string(s.Role)).
		Int("online", h.registry.Count()).
		Msg("user connected")

	h.router.Send(OutboundEvent{
		Name: EventConnected,
		Payload: Payload{
			"message":  "Connected to real-time updates",
			"user_id":  s.Identity,
			"username": s.Username,
			"role":     string(s.Role),
		},
		Target: ToIdentity(s.Identity),
	})
}

// handleUnregister tears down s. Cleanup runs only while s is still the
// canonical session for its identity; an evicted session's late disconnect
// must not remove the replacement's state.
func (h *Hub) handleUnregister(s *Session) {
	if h.registry.SessionFor(s.Identity) == s {
		h.rooms.LeaveAll(s.Identity)
		h.registry.Deregister(s.Identity)
		logging.Info().
			Str("user_id", s.Identity).
			Str("username", s.Username).
			Int("online", h.registry.Count()).
			Msg("user disconnected")
	}
	s.close()
	metrics.ConnectionsActive.Set(float64(h.registry.Count()))
}

// shutdown closes every live session in ID order and logs the reason.
// Context cancellation is expected behavior, not an error.
func (h *Hub) shutdown(ctx context.Context) {
	sessions := h.registry.Snapshot()
	for _, s := range sessions {
		h.rooms.LeaveAll(s.Identity)
		h.registry.Deregister(s.Identity)
		s.close()
	}
	metrics.ConnectionsActive.Set(0)

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}
	logging.Info().
		Str("component", "realtime-hub").
		Str("reason", string(reason)).
		Int("sessions_closed", len(sessions)).
		Msg("realtime hub stopped")
}

// IsOnline reports whether identity has a live connection.
func (h *Hub) IsOnline(identity string) bool {
	return h.registry.IsOnline(identity)
}

// OnlineCount returns the number of live connections.
func (h *Hub) OnlineCount() int {
	return h.registry.Count()
}

// SendToUser delivers an event to every device of one user. Fire-and-forget:
// an offline user receives nothing.
func (h *Hub) SendToUser(identity, event string, payload Payload) {
	h.router.Send(OutboundEvent{Name: event, Payload: payload, Target: ToRoom(UserRoom(identity))})
}

// BroadcastToRole delivers an event to every connected user with the role.
func (h *Hub) BroadcastToRole(role models.Role, event string, payload Payload) {
	h.router.Send(OutboundEvent{Name: event, Payload: payload, Target: ToRoom(RoleRoom(role))})
}

// BroadcastToAll delivers an event to every connected session.
func (h *Hub) BroadcastToAll(event string, payload Payload) {
	h.router.Send(OutboundEvent{Name: event, Payload: payload, Target: ToAll()})
}

// NotifyMonitors delivers an event to every caretaker monitoring patientID.
func (h *Hub) NotifyMonitors(patientID, event string, payload Payload) {
	h.router.Send(OutboundEvent{Name: event, Payload: payload, Target: ToRoom(MonitorRoom(patientID))})
}

// SendSystemNotification pushes a notification record to one user's devices.
// Fire-and-forget: an offline user receives nothing.
func (h *Hub) SendSystemNotification(identity string, notification Payload) {
	h.SendToUser(identity, EventSystemNotification, notification)
}

// BroadcastSystemNotification pushes an operational announcement to all
// connected users.
func (h *Hub) BroadcastSystemNotification(title, message string) {
	h.BroadcastToAll(EventSystemNotification, Payload{
		"title":   title,
		"message": message,
	})
}

// SendMedicationReminder pushes a dose reminder to one user's devices.
func (h *Hub) SendMedicationReminder(identity string, medication Payload) {
	h.SendToUser(identity, EventMedicationReminder, Payload{
		"type":       "reminder",
		"medication": medication,
		"priority":   "medium",
	})
}

// SendAdherenceAlert pushes an adherence warning to one user's devices.
func (h *Hub) SendAdherenceAlert(identity string, data Payload) {
	h.SendToUser(identity, EventAdherenceAlert, Payload{
		"type":     "adherence_warning",
		"data":     data,
		"priority": "high",
	})
}
