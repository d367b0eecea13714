// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package store

import (
	"errors"
	"io"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/Lohithpallikonda/medsbuddy/internal/config"
	"github.com/Lohithpallikonda/medsbuddy/internal/logging"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

// openTestDB opens an in-memory Badger instance closed with the test.
func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open in-memory badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUserStoreCreateAndLookup(t *testing.T) {
	db := openTestDB(t)
	users := NewUserStore(db)

	created, err := users.Create("alice", "alice@example.com", "hash", models.RolePatient)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated ID")
	}

	byID, err := users.ByID(created.ID)
	if err != nil || byID.Username != "alice" {
		t.Fatalf("ByID = %+v, %v", byID, err)
	}
	byEmail, err := users.ByEmail("alice@example.com")
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("ByEmail = %+v, %v", byEmail, err)
	}
	byName, err := users.ByUsername("alice")
	if err != nil || byName.ID != created.ID {
		t.Fatalf("ByUsername = %+v, %v", byName, err)
	}

	exists, err := users.Exists(created.ID)
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v", exists, err)
	}
	exists, err = users.Exists("no-such-user")
	if err != nil || exists {
		t.Fatalf("Exists for unknown = %v, %v", exists, err)
	}
}

func TestUserStoreRejectsDuplicates(t *testing.T) {
	db := openTestDB(t)
	users := NewUserStore(db)

	if _, err := users.Create("alice", "alice@example.com", "hash", models.RolePatient); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := users.Create("bob", "alice@example.com", "hash", models.RolePatient); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
	if _, err := users.Create("alice", "other@example.com", "hash", models.RolePatient); !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestMedicationStoreCRUD(t *testing.T) {
	db := openTestDB(t)
	meds := NewMedicationStore(db)

	med, err := meds.Create("u1", "Aspirin", "100mg", "daily")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := meds.ByID("u1", med.ID)
	if err != nil || got.Name != "Aspirin" {
		t.Fatalf("ByID = %+v, %v", got, err)
	}

	// Ownership is part of the key.
	if _, err := meds.ByID("u2", med.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign owner lookup should miss, got %v", err)
	}

	updated, err := meds.Update("u1", med.ID, "Aspirin", "200mg", "twice daily")
	if err != nil || updated.Dosage != "200mg" {
		t.Fatalf("Update = %+v, %v", updated, err)
	}

	list, err := meds.ListByUser("u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByUser = %v, %v", list, err)
	}

	if err := meds.Delete("u1", med.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := meds.Delete("u1", med.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestMedicationLogRecordUndoStats(t *testing.T) {
	db := openTestDB(t)
	logs := NewMedicationLogStore(db)

	if _, err := logs.Record("u1", "m1", "2026-08-30", models.LogStatusTaken, ""); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if _, err := logs.Record("u1", "m1", "2026-08-30", models.LogStatusMissed, ""); !errors.Is(err, ErrAlreadyLogged) {
		t.Errorf("expected ErrAlreadyLogged, got %v", err)
	}
	if _, err := logs.Record("u1", "m2", "2026-08-30", models.LogStatusMissed, "forgot"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	today, err := logs.ForDate("u1", "2026-08-30")
	if err != nil || len(today) != 2 {
		t.Fatalf("ForDate = %v, %v", today, err)
	}
	if today["m2"].Status != models.LogStatusMissed {
		t.Errorf("m2 status = %s", today["m2"].Status)
	}

	stats, err := logs.Stats("u1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalLogs != 2 || stats.TakenCount != 1 || stats.MissedCount != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.AdherenceRate != 50 {
		t.Errorf("adherence rate = %f, want 50", stats.AdherenceRate)
	}

	if err := logs.Undo("u1", "m1", "2026-08-30"); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if err := logs.Undo("u1", "m1", "2026-08-30"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second undo should be ErrNotFound, got %v", err)
	}
}

func TestNotificationStoreLifecycle(t *testing.T) {
	db := openTestDB(t)
	notifs := NewNotificationStore(db)

	n1, err := notifs.Create("u1", "system", "Welcome", "hello", "", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if n1.Priority != "medium" {
		t.Errorf("default priority = %s, want medium", n1.Priority)
	}
	if _, err := notifs.Create("u1", "reminder", "Take Aspirin", "now", "high", nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	count, err := notifs.UnreadCount("u1")
	if err != nil || count != 2 {
		t.Fatalf("UnreadCount = %d, %v", count, err)
	}

	read, err := notifs.MarkRead("u1", n1.ID)
	if err != nil || !read.IsRead || read.ReadAt == nil {
		t.Fatalf("MarkRead = %+v, %v", read, err)
	}

	unread, err := notifs.List("u1", ListOptions{UnreadOnly: true})
	if err != nil || len(unread) != 1 {
		t.Fatalf("List unread = %v, %v", unread, err)
	}

	updated, err := notifs.MarkAllRead("u1")
	if err != nil || updated != 1 {
		t.Fatalf("MarkAllRead = %d, %v", updated, err)
	}

	if err := notifs.Delete("u1", n1.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := notifs.ByID("u1", n1.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted notification still readable: %v", err)
	}
}

func TestMessageStoreConversations(t *testing.T) {
	db := openTestDB(t)
	msgs := NewMessageStore(db)

	if _, err := msgs.Create("a", "b", "hi bob", "text"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := msgs.Create("b", "a", "hi alice", ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	thread, err := msgs.Conversation("a", "b", 50, 0)
	if err != nil || len(thread) != 2 {
		t.Fatalf("Conversation = %v, %v", thread, err)
	}
	if thread[0].Content != "hi bob" {
		t.Errorf("thread not chronological: %+v", thread)
	}

	convs, err := msgs.Conversations("a")
	if err != nil || len(convs) != 1 {
		t.Fatalf("Conversations = %v, %v", convs, err)
	}
	if convs[0].UnreadCount != 1 {
		t.Errorf("unread count = %d, want 1", convs[0].UnreadCount)
	}

	updated, err := msgs.MarkConversationRead("a", "b")
	if err != nil || updated != 1 {
		t.Fatalf("MarkConversationRead = %d, %v", updated, err)
	}
	convs, _ = msgs.Conversations("a")
	if convs[0].UnreadCount != 0 {
		t.Errorf("unread count after read = %d", convs[0].UnreadCount)
	}
}

func TestCaretakerStoreAssignments(t *testing.T) {
	db := openTestDB(t)
	care := NewCaretakerStore(db)

	if _, err := care.Assign("c1", "p1"); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	// Idempotent.
	if _, err := care.Assign("c1", "p1"); err != nil {
		t.Fatalf("repeat Assign failed: %v", err)
	}

	ok, err := care.IsAssigned("c1", "p1")
	if err != nil || !ok {
		t.Fatalf("IsAssigned = %v, %v", ok, err)
	}
	ok, err = care.IsAssigned("c1", "p2")
	if err != nil || ok {
		t.Fatalf("IsAssigned for unknown = %v, %v", ok, err)
	}

	patients, err := care.Patients("c1")
	if err != nil || len(patients) != 1 || patients[0] != "p1" {
		t.Fatalf("Patients = %v, %v", patients, err)
	}
}
