// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package realtime

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Lohithpallikonda/medsbuddy/internal/auth"
	"github.com/Lohithpallikonda/medsbuddy/internal/logging"
	"github.com/Lohithpallikonda/medsbuddy/internal/metrics"
)

// Handler upgrades authenticated HTTP requests to websocket sessions.
// Credentials are checked before the upgrade so a rejected client gets a
// plain 401 instead of a doomed websocket handshake.
type Handler struct {
	hub      *Hub
	gate     *auth.Gate
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket Handler. allowedOrigin is compared against
// the request Origin header; empty allows same-host requests only (the
// gorilla default).
func NewHandler(hub *Hub, gate *auth.Gate, allowedOrigin string) *Handler {
	h := &Handler{hub: hub, gate: gate}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if allowedOrigin != "" {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == allowedOrigin
		}
	}
	return h
}

// ServeHTTP authenticates the request, upgrades it, and hands the session to
// the hub.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	identity, username, role, authErr := h.gate.Authenticate(r.Context(), token)
	if authErr != nil {
		metrics.AuthFailures.WithLabelValues(string(authErr.Reason)).Inc()
		logging.Warn().
			Str("reason", string(authErr.Reason)).
			Str("remote", r.RemoteAddr).
			Msg("websocket authentication rejected")
		http.Error(w, authErr.Message(), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := NewSession(h.hub, conn, identity, username, role)
	select {
	case h.hub.register <- s:
		s.Start()
	case <-h.hub.done:
		// Hub already stopped; refuse the session instead of blocking.
		s.close()
		_ = conn.Close()
	}
}

// bearerToken extracts the credential from the token query parameter or the
// Authorization header. The query form exists for browser websocket clients,
// which cannot set headers on the handshake.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}
