// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package realtime

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/Lohithpallikonda/medsbuddy/internal/logging"
	"github.com/Lohithpallikonda/medsbuddy/internal/metrics"
)

// Router is the sole write path into session transports. It resolves an
// outbound event's target against the registry and room directory at call
// time and delivers fire-and-forget: no retry, no persistence, no delivery
// receipt beyond "attempted".
type Router struct {
	registry *Registry
	rooms    *Directory

	// now is replaceable in tests.
	now func() time.Time
}

// NewRouter creates a Router over the given registry and room directory.
func NewRouter(registry *Registry, rooms *Directory) *Router {
	return &Router{registry: registry, rooms: rooms, now: time.Now}
}

// Send resolves ev's target and delivers to each live session in scope.
// Offline identities and empty rooms are silent no-ops. The payload gains a
// server-generated "timestamp" field when it does not already carry one;
// this is the single normalization point for outbound time-stamping.
func (r *Router) Send(ev OutboundEvent) {
	payload := r.stampPayload(ev.Payload)
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Str("event", ev.Name).Msg("failed to marshal outbound payload")
		return
	}
	env := Envelope{Event: ev.Name, Data: data}

	switch ev.Target.kind {
	case targetIdentity:
		s := r.registry.SessionFor(ev.Target.name)
		if s == nil {
			metrics.EventsDropped.WithLabelValues("offline").Inc()
			return
		}
		r.deliver(s, env, ev.Name, "identity")

	case targetRoom:
		// Membership snapshot; joins and leaves during this fan-out do not
		// affect the in-flight send.
		for _, identity := range r.rooms.MembersOf(ev.Target.name) {
			s := r.registry.SessionFor(identity)
			if s == nil {
				// Room cleanup races disconnect; the entry is already being
				// removed by the lifecycle path.
				metrics.EventsDropped.WithLabelValues("offline").Inc()
				continue
			}
			r.deliver(s, env, ev.Name, "room")
		}

	case targetAll:
		for _, s := range r.registry.Snapshot() {
			r.deliver(s, env, ev.Name, "all")
		}
	}
}

func (r *Router) deliver(s *Session, env Envelope, event, target string) {
	if s.enqueue(env) {
		metrics.EventsDelivered.WithLabelValues(event, target).Inc()
		return
	}
	metrics.EventsDropped.WithLabelValues("buffer_full").Inc()
	logging.Warn().
		Str("event", event).
		Str("user_id", s.Identity).
		Msg("send buffer full, dropping event")
}

// stampPayload returns the payload with a timestamp field, copying when
// injection is needed so the producer's map is never mutated.
func (r *Router) stampPayload(p Payload) Payload {
	if p == nil {
		return Payload{"timestamp": r.now().UTC().Format(time.RFC3339)}
	}
	if _, ok := p["timestamp"]; ok {
		return p
	}
	stamped := make(Payload, len(p)+1)
	for k, v := range p {
		stamped[k] = v
	}
	stamped["timestamp"] = r.now().UTC().Format(time.RFC3339)
	return stamped
}
