// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package store

import (
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/Lohithpallikonda/medsbuddy/internal/metrics"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

// NotificationStore persists stored alerts per user.
type NotificationStore struct {
	db *badger.DB
}

// NewNotificationStore creates a NotificationStore backed by db.
func NewNotificationStore(db *badger.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func notifKey(userID, id string) []byte    { return []byte("notif:" + userID + ":" + id) }
func notifUserPrefix(userID string) []byte { return []byte("notif:" + userID + ":") }

// ListOptions controls notification listing.
type ListOptions struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

// Create stores a new unread notification.
func (s *NotificationStore) Create(userID, notifType, title, message, priority string, data any) (*models.Notification, error) {
	start := time.Now()
	if priority == "" {
		priority = "medium"
	}
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		Data:      data,
		Priority:  priority,
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, notifKey(userID, n.ID), n)
	})
	metrics.ObserveStoreOperation("create", "notification", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationStore) List(userID string, opts ListOptions) ([]models.Notification, error) {
	var all []models.Notification
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, notifUserPrefix(userID), func(n models.Notification) bool {
			if !opts.UnreadOnly || !n.IsRead {
				all = append(all, n)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if opts.Offset >= len(all) {
		return []models.Notification{}, nil
	}
	end := opts.Offset + opts.Limit
	if opts.Limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[opts.Offset:end], nil
}

// ByID returns one of the user's notifications, or ErrNotFound.
func (s *NotificationStore) ByID(userID, id string) (*models.Notification, error) {
	var n models.Notification
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, notifKey(userID, id), &n)
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkRead flags one notification as read. Idempotent.
func (s *NotificationStore) MarkRead(userID, id string) (*models.Notification, error) {
	start := time.Now()
	var n models.Notification
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, notifKey(userID, id), &n); err != nil {
			return err
		}
		if n.IsRead {
			return nil
		}
		now := time.Now().UTC()
		n.IsRead = true
		n.ReadAt = &now
		return setJSON(txn, notifKey(userID, id), &n)
	})
	metrics.ObserveStoreOperation("update", "notification", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllRead flags every unread notification as read and returns the count
// updated.
func (s *NotificationStore) MarkAllRead(userID string) (int, error) {
	start := time.Now()
	updated := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		var unread []models.Notification
		err := iteratePrefix(txn, notifUserPrefix(userID), func(n models.Notification) bool {
			if !n.IsRead {
				unread = append(unread, n)
			}
			return true
		})
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for i := range unread {
			unread[i].IsRead = true
			unread[i].ReadAt = &now
			if err := setJSON(txn, notifKey(userID, unread[i].ID), &unread[i]); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	metrics.ObserveStoreOperation("update", "notification", time.Since(start), err)
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// Delete removes one of the user's notifications.
func (s *NotificationStore) Delete(userID, id string) error {
	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(notifKey(userID, id)); err != nil {
			return ErrNotFound
		}
		return txn.Delete(notifKey(userID, id))
	})
	metrics.ObserveStoreOperation("delete", "notification", time.Since(start), err)
	return err
}

// UnreadCount returns the user's unread notification count.
func (s *NotificationStore) UnreadCount(userID string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, notifUserPrefix(userID), func(n models.Notification) bool {
			if !n.IsRead {
				count++
			}
			return true
		})
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
