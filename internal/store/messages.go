// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/Lohithpallikonda/medsbuddy/internal/metrics"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

// MessageStore persists direct messages and per-user conversation summaries.
type MessageStore struct {
	db *badger.DB
}

// NewMessageStore creates a MessageStore backed by db.
func NewMessageStore(db *badger.DB) *MessageStore {
	return &MessageStore{db: db}
}

// pairKey orders the two participant IDs so both directions of a thread
// share one prefix.
func pairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "|" + b
}

func msgKey(pair string, at time.Time, id string) []byte {
	// Nanosecond prefix keeps Badger's key order chronological within a thread.
	return []byte(fmt.Sprintf("msg:%s:%020d:%s", pair, at.UnixNano(), id))
}

func msgPairPrefix(pair string) []byte { return []byte("msg:" + pair + ":") }

func convKey(userID, otherID string) []byte { return []byte("conv:" + userID + ":" + otherID) }

func convUserPrefix(userID string) []byte { return []byte("conv:" + userID + ":") }

// convEntry is the stored per-user conversation summary.
type convEntry struct {
	OtherID     string    `json:"other_id"`
	LastMessage string    `json:"last_message"`
	LastAt      time.Time `json:"last_at"`
	UnreadCount int       `json:"unread_count"`
}

// Create stores a message and updates both participants' conversation
// summaries; the recipient's unread count is incremented.
func (s *MessageStore) Create(senderID, recipientID, content, messageType string) (*models.Message, error) {
	start := time.Now()
	if messageType == "" {
		messageType = "text"
	}
	msg := &models.Message{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		MessageType: messageType,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		pair := pairKey(senderID, recipientID)
		if err := setJSON(txn, msgKey(pair, msg.CreatedAt, msg.ID), msg); err != nil {
			return err
		}

		for _, side := range []struct {
			owner, other string
			incrUnread   bool
		}{
			{senderID, recipientID, false},
			{recipientID, senderID, true},
		} {
			var entry convEntry
			if err := getJSON(txn, convKey(side.owner, side.other), &entry); err != nil && err != ErrNotFound {
				return err
			}
			entry.OtherID = side.other
			entry.LastMessage = content
			entry.LastAt = msg.CreatedAt
			if side.incrUnread {
				entry.UnreadCount++
			}
			if err := setJSON(txn, convKey(side.owner, side.other), &entry); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.ObserveStoreOperation("create", "message", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Conversation returns a page of the thread between two users, oldest first.
func (s *MessageStore) Conversation(userID, otherID string, limit, offset int) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, msgPairPrefix(pairKey(userID, otherID)), func(m models.Message) bool {
			msgs = append(msgs, m)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	// Keys are chronological; the slice already is too.
	if offset >= len(msgs) {
		return []models.Message{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(msgs) {
		end = len(msgs)
	}
	return msgs[offset:end], nil
}

// Conversations returns the user's conversation summaries, most recent first.
// Usernames are left blank; the API layer resolves them against the user
// store.
func (s *MessageStore) Conversations(userID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, convUserPrefix(userID), func(e convEntry) bool {
			convs = append(convs, models.Conversation{
				UserID:      e.OtherID,
				LastMessage: e.LastMessage,
				LastAt:      e.LastAt,
				UnreadCount: e.UnreadCount,
			})
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].LastAt.After(convs[j].LastAt) })
	return convs, nil
}

// MarkConversationRead marks every message the other user sent as read and
// resets the unread counter. Returns the number of messages updated.
func (s *MessageStore) MarkConversationRead(userID, otherID string) (int, error) {
	start := time.Now()
	updated := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		pair := pairKey(userID, otherID)
		var pending []models.Message
		err := iteratePrefix(txn, msgPairPrefix(pair), func(m models.Message) bool {
			if m.RecipientID == userID && !m.IsRead {
				pending = append(pending, m)
			}
			return true
		})
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for i := range pending {
			pending[i].IsRead = true
			pending[i].ReadAt = &now
			if err := setJSON(txn, msgKey(pair, pending[i].CreatedAt, pending[i].ID), &pending[i]); err != nil {
				return err
			}
			updated++
		}

		var entry convEntry
		if err := getJSON(txn, convKey(userID, otherID), &entry); err != nil {
			if err == ErrNotFound {
				return nil
			}
			return err
		}
		entry.UnreadCount = 0
		return setJSON(txn, convKey(userID, otherID), &entry)
	})
	metrics.ObserveStoreOperation("update", "message", time.Since(start), err)
	if err != nil {
		return 0, err
	}
	return updated, nil
}
