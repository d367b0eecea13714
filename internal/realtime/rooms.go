// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package realtime

import (
	"sort"
	"sync"

	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

// Room name constructors. Room names are part of the wire-adjacent contract:
// presence queries and tests build them the same way.

// UserRoom is the single-member room auto-joined by every session.
func UserRoom(identity string) string { return "user:" + identity }

// RoleRoom groups all sessions sharing a role.
func RoleRoom(role models.Role) string { return "role:" + string(role) }

// MonitorRoom holds the caretakers observing one patient.
func MonitorRoom(patientID string) string { return "patient-monitor:" + patientID }

// NotificationsRoom is joined on demand by subscribe-notifications. Kept
// distinct from UserRoom so notification fan-out policy can diverge later.
func NotificationsRoom(identity string) string { return "notifications:" + identity }

// Directory maintains named ephemeral interest groups and their members.
// Membership never outlives the member's session: the hub calls LeaveAll on
// every disconnect path.
type Directory struct {
	mu sync.RWMutex

	// rooms maps room name -> member identities.
	rooms map[string]map[string]struct{}

	// joined is the reverse index, identity -> room names. It keeps LeaveAll
	// proportional to the rooms the identity joined, not to all rooms.
	joined map[string]map[string]struct{}
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		rooms:  make(map[string]map[string]struct{}),
		joined: make(map[string]map[string]struct{}),
	}
}

// Join adds identity to room. Idempotent.
func (d *Directory) Join(room, identity string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		d.rooms[room] = members
	}
	members[identity] = struct{}{}

	joined, ok := d.joined[identity]
	if !ok {
		joined = make(map[string]struct{})
		d.joined[identity] = joined
	}
	joined[room] = struct{}{}
}

// Leave removes identity from room. Idempotent; leaving a room the identity
// is not in is a no-op.
func (d *Directory) Leave(room, identity string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leaveLocked(room, identity)
}

func (d *Directory) leaveLocked(room, identity string) {
	if members, ok := d.rooms[room]; ok {
		delete(members, identity)
		if len(members) == 0 {
			delete(d.rooms, room)
		}
	}
	if joined, ok := d.joined[identity]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(d.joined, identity)
		}
	}
}

// LeaveAll removes identity from every room it belongs to. Called once per
// disconnect.
func (d *Directory) LeaveAll(identity string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for room := range d.joined[identity] {
		d.leaveLocked(room, identity)
	}
}

// MembersOf returns a snapshot of room's members, sorted for deterministic
// delivery order. Unknown rooms yield an empty slice, never an error.
func (d *Directory) MembersOf(room string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := make([]string, 0, len(d.rooms[room]))
	for identity := range d.rooms[room] {
		members = append(members, identity)
	}
	sort.Strings(members)
	return members
}

// RoomsOf returns a snapshot of the rooms identity has joined, sorted.
func (d *Directory) RoomsOf(identity string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rooms := make([]string, 0, len(d.joined[identity]))
	for room := range d.joined[identity] {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}
