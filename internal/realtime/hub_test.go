// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

func TestHubRegisterSendsConnectedAck(t *testing.T) {
	h := newTestHub(t)
	s := newTestSession(h, "7", "marie", models.RolePatient)

	h.handleRegister(s)

	env := recvEvent(t, s)
	if env.Event != EventConnected {
		t.Fatalf("expected %q, got %q", EventConnected, env.Event)
	}
	payload := decodePayload(t, env)
	if payload["user_id"] != "7" || payload["username"] != "marie" || payload["role"] != "patient" {
		t.Fatalf("unexpected ack payload: %v", payload)
	}

	if !h.IsOnline("7") {
		t.Fatal("expected user online after register")
	}
	members := h.rooms.MembersOf(UserRoom("7"))
	if len(members) != 1 || members[0] != "7" {
		t.Fatalf("expected default user-room membership, got %v", members)
	}
	members = h.rooms.MembersOf(RoleRoom(models.RolePatient))
	if len(members) != 1 || members[0] != "7" {
		t.Fatalf("expected default role-room membership, got %v", members)
	}
}

func TestHubLastConnectWins(t *testing.T) {
	h := newTestHub(t)
	first := newTestSession(h, "7", "marie", models.RolePatient)
	h.handleRegister(first)
	recvEvent(t, first) // connected ack

	// Caretaker-style extra membership survives only for the live session.
	h.rooms.Join(NotificationsRoom("7"), "7")

	second := newTestSession(h, "7", "marie", models.RolePatient)
	h.handleRegister(second)

	// The prior transport is closed.
	if _, ok := <-first.send; ok {
		t.Fatal("expected prior session's send channel closed")
	}

	// The new session is canonical and re-joined only the defaults.
	if h.registry.SessionFor("7") != second {
		t.Fatal("expected second session to be canonical")
	}
	if members := h.rooms.MembersOf(NotificationsRoom("7")); len(members) != 0 {
		t.Fatalf("expected stale memberships cleared, got %v", members)
	}

	env := recvEvent(t, second)
	if env.Event != EventConnected {
		t.Fatalf("expected connected ack on new session, got %q", env.Event)
	}
}

func TestHubEvictedSessionLateDisconnectHarmless(t *testing.T) {
	h := newTestHub(t)
	first := newTestSession(h, "7", "marie", models.RolePatient)
	h.handleRegister(first)

	second := newTestSession(h, "7", "marie", models.RolePatient)
	h.handleRegister(second)

	// The evicted session's disconnect arrives after the replacement
	// registered; it must not remove the replacement's state.
	h.handleUnregister(first)

	if !h.IsOnline("7") {
		t.Fatal("late disconnect of evicted session removed the live session")
	}
	if members := h.rooms.MembersOf(UserRoom("7")); len(members) != 1 {
		t.Fatalf("expected room membership intact, got %v", members)
	}
}

func TestHubUnregisterCleansUp(t *testing.T) {
	h := newTestHub(t)
	s := newTestSession(h, "42", "amira", models.RoleCaretaker)
	h.handleRegister(s)
	h.rooms.Join(MonitorRoom("7"), "42")

	h.handleUnregister(s)

	if h.IsOnline("42") {
		t.Fatal("expected user offline after unregister")
	}
	if members := h.rooms.MembersOf(MonitorRoom("7")); len(members) != 0 {
		t.Fatalf("expected monitor membership removed, got %v", members)
	}
	if rooms := h.rooms.RoomsOf("42"); len(rooms) != 0 {
		t.Fatalf("expected no memberships, got %v", rooms)
	}

	// Double unregister is harmless.
	h.handleUnregister(s)
}

func TestHubRunLifecycleAndShutdown(t *testing.T) {
	h := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	s := newTestSession(h, "7", "marie", models.RolePatient)
	h.register <- s

	deadline := time.After(2 * time.Second)
	for !h.IsOnline("7") {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for registration")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop on context cancel")
	}

	if h.OnlineCount() != 0 {
		t.Fatalf("expected all sessions closed on shutdown, got %d", h.OnlineCount())
	}

	// Drain the queued ack; the channel must then report closed.
	closed := false
	for i := 0; i < cap(s.send)+1; i++ {
		if _, ok := <-s.send; !ok {
			closed = true
			break
		}
	}
	if !closed {
		t.Fatal("expected session send channel closed on shutdown")
	}

	select {
	case <-h.done:
	default:
		t.Fatal("expected hub done channel closed after Run returned")
	}

	// A disconnect arriving after shutdown must not block its sender.
	late := make(chan struct{})
	go func() {
		select {
		case h.unregister <- s:
		case <-h.done:
		}
		close(late)
	}()
	select {
	case <-late:
	case <-time.After(2 * time.Second):
		t.Fatal("post-shutdown unregister blocked")
	}
}

// Caretaker 42 monitors patient 7; when the patient reports a missed dose
// the caretaker receives the high-priority monitoring event and the patient
// does not receive it.
func TestMissedDoseReachesMonitoringCaretaker(t *testing.T) {
	h := newTestHub(t)

	caretaker := newTestSession(h, "42", "amira", models.RoleCaretaker)
	patient := newTestSession(h, "7", "marie", models.RolePatient)
	h.handleRegister(caretaker)
	h.handleRegister(patient)
	recvEvent(t, caretaker) // connected ack
	recvEvent(t, patient)   // connected ack

	h.dispatcher.HandleFrame(caretaker, "join-medication-monitoring", json.RawMessage(`{"patientId":"7"}`))
	if ack := recvEvent(t, caretaker); ack.Event != EventJoinedMonitoring {
		t.Fatalf("expected monitoring ack, got %q", ack.Event)
	}

	h.dispatcher.HandleFrame(patient, "medication-missed",
		json.RawMessage(`{"medicationId":"3","medicationName":"Aspirin"}`))

	// The patient sees only their own echo.
	echo := recvEvent(t, patient)
	if echo.Event != EventMedicationUpdated {
		t.Fatalf("expected patient echo, got %q", echo.Event)
	}
	expectNoEvent(t, patient)

	monitor := recvEvent(t, caretaker)
	if monitor.Event != EventPatientMedicationMissed {
		t.Fatalf("expected %q, got %q", EventPatientMedicationMissed, monitor.Event)
	}
	payload := decodePayload(t, monitor)
	if payload["patientId"] != "7" || payload["medicationId"] != "3" || payload["medicationName"] != "Aspirin" {
		t.Fatalf("unexpected monitoring payload: %v", payload)
	}
	if payload["priority"] != "high" {
		t.Fatalf("expected high priority, got %v", payload["priority"])
	}
	if payload["timestamp"] == nil {
		t.Fatal("expected timestamp injected")
	}
}

func TestHubFacadeHelpers(t *testing.T) {
	h := newTestHub(t)
	patient := newTestSession(h, "7", "marie", models.RolePatient)
	caretaker := newTestSession(h, "42", "amira", models.RoleCaretaker)
	h.handleRegister(patient)
	h.handleRegister(caretaker)
	recvEvent(t, patient)
	recvEvent(t, caretaker)

	h.SendMedicationReminder("7", Payload{"name": "Aspirin"})
	reminder := recvEvent(t, patient)
	if reminder.Event != EventMedicationReminder {
		t.Fatalf("expected reminder, got %q", reminder.Event)
	}
	if decodePayload(t, reminder)["priority"] != "medium" {
		t.Fatal("expected medium priority reminder")
	}
	expectNoEvent(t, caretaker)

	h.SendAdherenceAlert("7", Payload{"adherence_rate": 40})
	alert := recvEvent(t, patient)
	if alert.Event != EventAdherenceAlert {
		t.Fatalf("expected adherence alert, got %q", alert.Event)
	}
	if decodePayload(t, alert)["priority"] != "high" {
		t.Fatal("expected high priority alert")
	}

	h.SendSystemNotification("42", Payload{"title": "Dose due", "message": "Aspirin at 9:00"})
	notif := recvEvent(t, caretaker)
	if notif.Event != EventSystemNotification {
		t.Fatalf("expected system notification, got %q", notif.Event)
	}
	if decodePayload(t, notif)["title"] != "Dose due" {
		t.Fatal("expected notification record payload")
	}
	expectNoEvent(t, patient)

	h.BroadcastToRole(models.RoleCaretaker, EventSystemNotification, Payload{"title": "caretakers only"})
	if env := recvEvent(t, caretaker); env.Event != EventSystemNotification {
		t.Fatalf("expected role broadcast, got %q", env.Event)
	}
	expectNoEvent(t, patient)

	h.BroadcastSystemNotification("Maintenance", "Back at noon")
	for _, s := range []*Session{patient, caretaker} {
		env := recvEvent(t, s)
		if env.Event != EventSystemNotification {
			t.Fatalf("expected system notification for %s, got %q", s.Identity, env.Event)
		}
	}
}
