// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

// Package realtime implements the presence-tracked, room-scoped event
// broadcaster behind /ws.
//
// A connection is admitted only after its bearer token verifies and its
// subject resolves to an active account. The admitted session is recorded in
// the connection registry (one canonical session per identity,
// last-connect-wins with explicit eviction of the superseded transport) and
// auto-joined to its user and role rooms. Client events are decoded into a
// closed set of typed variants and dispatched to handlers that return
// outbound events; the router resolves each outbound event's target
// (identity, room, or broadcast) against live sessions and delivers
// fire-and-forget.
//
// On any disconnect, clean or dirty, the session leaves every room before
// its registry entry is removed, so no room ever references a transport that
// is no longer deliverable.
package realtime
