// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package realtime

import (
	"reflect"
	"testing"

	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

func TestRoomNames(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{UserRoom("7"), "user:7"},
		{RoleRoom(models.RoleCaretaker), "role:caretaker"},
		{MonitorRoom("7"), "patient-monitor:7"},
		{NotificationsRoom("42"), "notifications:42"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("expected %q, got %q", c.want, c.got)
		}
	}
}

func TestDirectoryJoinIdempotent(t *testing.T) {
	d := NewDirectory()
	d.Join("user:7", "7")
	d.Join("user:7", "7")

	members := d.MembersOf("user:7")
	if !reflect.DeepEqual(members, []string{"7"}) {
		t.Fatalf("expected single membership, got %v", members)
	}
}

func TestDirectoryLeaveIdempotent(t *testing.T) {
	d := NewDirectory()
	d.Join("user:7", "7")

	d.Leave("user:7", "7")
	d.Leave("user:7", "7")
	d.Leave("never-existed", "7")

	if members := d.MembersOf("user:7"); len(members) != 0 {
		t.Fatalf("expected empty room, got %v", members)
	}
}

func TestDirectoryMembersSorted(t *testing.T) {
	d := NewDirectory()
	d.Join("patient-monitor:7", "99")
	d.Join("patient-monitor:7", "3")
	d.Join("patient-monitor:7", "42")

	members := d.MembersOf("patient-monitor:7")
	if !reflect.DeepEqual(members, []string{"3", "42", "99"}) {
		t.Fatalf("expected sorted members, got %v", members)
	}
}

func TestDirectoryMembersOfUnknownRoom(t *testing.T) {
	d := NewDirectory()
	if members := d.MembersOf("ghost"); len(members) != 0 {
		t.Fatalf("expected empty slice for unknown room, got %v", members)
	}
}

func TestDirectoryLeaveAll(t *testing.T) {
	d := NewDirectory()
	d.Join("user:7", "7")
	d.Join("role:patient", "7")
	d.Join("notifications:7", "7")
	d.Join("role:patient", "8")

	d.LeaveAll("7")

	if rooms := d.RoomsOf("7"); len(rooms) != 0 {
		t.Fatalf("expected no memberships after LeaveAll, got %v", rooms)
	}
	if members := d.MembersOf("role:patient"); !reflect.DeepEqual(members, []string{"8"}) {
		t.Fatalf("expected other identities untouched, got %v", members)
	}
}

func TestDirectoryRoomsOf(t *testing.T) {
	d := NewDirectory()
	d.Join("user:42", "42")
	d.Join("role:caretaker", "42")

	rooms := d.RoomsOf("42")
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %v", rooms)
	}
}
