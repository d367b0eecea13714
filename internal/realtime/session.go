// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Lohithpallikonda/medsbuddy/internal/logging"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// sessionIDCounter generates unique, monotonically increasing session IDs.
// Broadcast snapshots sort on these so fan-out order is consistent rather
// than subject to map iteration order.
var sessionIDCounter atomic.Uint64

// Session is one authenticated websocket connection. At most one Session per
// identity is canonical at a time; a newer connection for the same identity
// supersedes this one and the hub closes it.
type Session struct {
	id uint64

	Identity    string
	Username    string
	Role        models.Role
	ConnectedAt time.Time

	hub  *Hub
	conn *websocket.Conn
	send chan Envelope

	// limiter throttles inbound frames; frames past the budget are dropped
	// without closing the connection.
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
}

// NewSession creates a Session for an authenticated connection. conn may be
// nil in tests; such a session queues but never drains.
func NewSession(hub *Hub, conn *websocket.Conn, identity, username string, role models.Role) *Session {
	cfg := hub.cfg
	return &Session{
		id:          sessionIDCounter.Add(1),
		Identity:    identity,
		Username:    username,
		Role:        role,
		ConnectedAt: time.Now().UTC(),
		hub:         hub,
		conn:        conn,
		send:        make(chan Envelope, cfg.SendBuffer),
		limiter:     rate.NewLimiter(rate.Limit(cfg.InboundRate), cfg.InboundBurst),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() uint64 {
	return s.id
}

// enqueue offers env to the session's send queue without blocking. It
// reports false when the queue is full or the session is closed.
func (s *Session) enqueue(env Envelope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- env:
		return true
	default:
		return false
	}
}

// close marks the session dead and closes the send queue, which terminates
// writePump. Idempotent; the hub may close a session it evicted while the
// session's own disconnect path races it.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// readPump pumps frames from the websocket connection into the dispatcher.
func (s *Session) readPump() {
	defer func() {
		// A disconnect after hub shutdown has nobody left to tell.
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
			s.close()
		}
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(s.hub.cfg.MaxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		err := s.conn.ReadJSON(&env)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Error().Err(err).Str("user_id", s.Identity).Msg("unexpected websocket close error")
			}
			break
		}

		if !s.limiter.Allow() {
			logging.Debug().Str("user_id", s.Identity).Str("event", env.Event).Msg("rate limit exceeded, dropping frame")
			continue
		}

		// Heartbeat is answered directly; it never reaches the dispatcher.
		if env.Event == inboundPing {
			s.enqueue(Envelope{Event: EventPong})
			continue
		}

		s.hub.dispatcher.HandleFrame(s, env.Event, env.Data)
	}
}

// writePump pumps queued envelopes to the websocket connection and keeps the
// connection alive with pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case env, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the queue.
				if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := s.conn.WriteJSON(env); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the session.
func (s *Session) Start() {
	go s.writePump()
	go s.readPump()
}
