// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package api

import (
	"net/http"
	"time"

	"github.com/Lohithpallikonda/medsbuddy/internal/auth"
	"github.com/Lohithpallikonda/medsbuddy/internal/config"
	"github.com/Lohithpallikonda/medsbuddy/internal/middleware"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
	"github.com/Lohithpallikonda/medsbuddy/internal/realtime"
	"github.com/Lohithpallikonda/medsbuddy/internal/store"
)

// Stores bundles the persistence layer handed to the HTTP handlers.
type Stores struct {
	Users         *store.UserStore
	Medications   *store.MedicationStore
	Logs          *store.MedicationLogStore
	Notifications *store.NotificationStore
	Messages      *store.MessageStore
	Caretakers    *store.CaretakerStore
}

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	cfg       config.Config
	stores    Stores
	jwt       *auth.JWTManager
	hub       *realtime.Hub
	startTime time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(cfg config.Config, stores Stores, jwt *auth.JWTManager, hub *realtime.Hub) *Handlers {
	return &Handlers{
		cfg:       cfg,
		stores:    stores,
		jwt:       jwt,
		hub:       hub,
		startTime: time.Now(),
	}
}

// Health reports service liveness and basic runtime facts.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"online_users":   h.hub.OnlineCount(),
	})
}

// identity pulls the authenticated principal, responding 401 when absent.
// Routes behind the Authenticate middleware always have one; this guards
// against misconfigured route groups.
func (h *Handlers) identity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Authentication required")
	}
	return identity, ok
}
