// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

// Package metrics exposes Prometheus collectors for the medsbuddy server:
// WebSocket connection and fan-out activity, HTTP latency, and store
// operation timing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSocket metrics

	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of authenticated WebSocket sessions",
		},
	)

	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_events_received_total",
			Help: "Total client events received, by event name",
		},
		[]string{"event"},
	)

	EventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_events_delivered_total",
			Help: "Total events delivered to sessions, by event name and target kind",
		},
		[]string{"event", "target"}, // target: "identity", "room", "all"
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_events_dropped_total",
			Help: "Total events dropped without delivery",
		},
		[]string{"reason"}, // "offline", "buffer_full", "unknown_event", "invalid_payload"
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_auth_failures_total",
			Help: "Total rejected WebSocket handshakes, by rejection reason",
		},
		[]string{"reason"},
	)

	// HTTP metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Store metrics

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of Badger store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "record"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operation_errors_total",
			Help: "Total failed Badger store operations",
		},
		[]string{"operation", "record"},
	)
)

// ObserveHTTPRequest records one HTTP request observation.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObserveStoreOperation records a store operation and its outcome.
func ObserveStoreOperation(operation, record string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(operation, record).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(operation, record).Inc()
	}
}
