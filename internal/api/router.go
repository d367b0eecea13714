// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Lohithpallikonda/medsbuddy/internal/middleware"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

// NewRouter assembles the full HTTP surface: REST routes, the websocket
// upgrade endpoint, and operational endpoints.
func NewRouter(h *Handlers, ws http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(h.cfg.Server.AllowedOrigin))
	r.Use(middleware.PrometheusMetrics)

	authenticated := middleware.Authenticate(h.jwt)
	caretakerOnly := middleware.RequireRole(models.RoleCaretaker)

	// Auth endpoints get strict rate limiting against brute force.
	authLimiter := middleware.NewRateLimiter(1, 10)

	r.Get("/api/health", h.Health)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(authLimiter.Handler).Post("/register", h.Register)
		r.With(authLimiter.Handler).Post("/login", h.Login)
		r.With(authenticated).Get("/me", h.Me)
	})

	r.Route("/api/medications", func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/", h.ListMedications)
		r.Post("/", h.CreateMedication)
		r.Get("/today", h.Today)
		r.Get("/stats", h.Stats)
		r.Get("/logs/history", h.LogHistory)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetMedication)
			r.Put("/", h.UpdateMedication)
			r.Delete("/", h.DeleteMedication)
			r.Post("/take", h.TakeMedication)
			r.Post("/miss", h.MissMedication)
			r.Post("/undo", h.UndoLog)
		})
	})

	r.Route("/api/realtime", func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/stats", h.RealtimeStats)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Put("/read-all", h.MarkAllNotificationsRead)
			r.Put("/{id}/read", h.MarkNotificationRead)
			r.Delete("/{id}", h.DeleteNotification)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", h.ListConversations)
			r.Post("/", h.SendMessage)
			r.Get("/{userId}", h.GetConversation)
			r.Put("/{userId}/read", h.MarkConversationRead)
		})

		r.Route("/patients", func(r chi.Router) {
			r.Use(caretakerOnly)
			r.Get("/", h.ListPatients)
			r.Post("/", h.AssignPatient)
		})
	})

	// The websocket handler authenticates itself: browser clients cannot set
	// an Authorization header on the upgrade request.
	r.Get("/ws", ws.ServeHTTP)

	if h.cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, models.ErrCodeInvalidRequest, "Method not allowed")
	})

	return r
}

// corsHandler builds the CORS middleware for the browser frontend. An empty
// allowedOrigin permits any origin without credentials; a configured origin
// is exclusive and allows credentialed requests.
func corsHandler(allowedOrigin string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	}
	if allowedOrigin != "" {
		opts.AllowedOrigins = []string{allowedOrigin}
		opts.AllowCredentials = true
	}
	return cors.Handler(opts)
}
