// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

// Package main is the entry point for the Medsbuddy server.
//
// Medsbuddy tracks medication schedules for patients and keeps their
// caretakers informed in real time. The server exposes a REST API for
// accounts, medications, dose logging, notifications, and messaging, plus a
// WebSocket endpoint over which connected clients receive live updates:
// dose events fan out to the patient's monitoring caretakers, direct
// messages and typing indicators are pushed to their recipients, and
// reminders and adherence alerts reach subscribed users.
//
// Startup order:
//
//  1. Configuration: layered Koanf v2 load (defaults, config.yaml, MEDSBUDDY_* env)
//  2. Logging: global zerolog logger from the logging config
//  3. Storage: Badger key-value store (persistent or in-memory)
//  4. Realtime hub: session registry, rooms, and event dispatch
//  5. HTTP router: chi with auth, rate limiting, and Prometheus middleware
//  6. Supervision: suture tree running the hub and HTTP server
//
// The server shuts down gracefully on SIGINT and SIGTERM: the supervision
// tree cancels the hub (which closes every session with a shutdown reason)
// and drains the HTTP server within the configured shutdown timeout.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lohithpallikonda/medsbuddy/internal/api"
	"github.com/Lohithpallikonda/medsbuddy/internal/auth"
	"github.com/Lohithpallikonda/medsbuddy/internal/config"
	"github.com/Lohithpallikonda/medsbuddy/internal/logging"
	"github.com/Lohithpallikonda/medsbuddy/internal/realtime"
	"github.com/Lohithpallikonda/medsbuddy/internal/store"
	"github.com/Lohithpallikonda/medsbuddy/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Bool("metrics", cfg.Metrics.Enabled).
		Msg("Starting medsbuddy server")

	db, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("Failed to close database")
		}
	}()

	stores := api.Stores{
		Users:         store.NewUserStore(db),
		Medications:   store.NewMedicationStore(db),
		Logs:          store.NewMedicationLogStore(db),
		Notifications: store.NewNotificationStore(db),
		Messages:      store.NewMessageStore(db),
		Caretakers:    store.NewCaretakerStore(db),
	}

	jwtManager, err := auth.NewJWTManager(cfg.Security)
	if err != nil {
		return fmt.Errorf("initializing JWT manager: %w", err)
	}
	gate := auth.NewGate(jwtManager, stores.Users, cfg.Realtime.AuthTimeout)

	hub := realtime.NewHub(cfg.Realtime, stores.Notifications)
	wsHandler := realtime.NewHandler(hub, gate, cfg.Server.AllowedOrigin)

	handlers := api.NewHandlers(*cfg, stores, jwtManager, hub)
	router := api.NewRouter(handlers, wsHandler)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	treeConfig := supervisor.DefaultTreeConfig()
	treeConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeConfig)
	tree.AddMessagingService(supervisor.NewHubService(hub))
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Server listening")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervision tree: %w", err)
	}

	logging.Info().Msg("Server stopped gracefully")
	return nil
}
