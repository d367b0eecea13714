// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package store

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/Lohithpallikonda/medsbuddy/internal/metrics"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

// UserStore persists user accounts and their email/username indexes.
type UserStore struct {
	db *badger.DB
}

// NewUserStore creates a UserStore backed by db.
func NewUserStore(db *badger.DB) *UserStore {
	return &UserStore{db: db}
}

func userKey(id string) []byte       { return []byte("user:" + id) }
func emailKey(email string) []byte   { return []byte("user:email:" + email) }
func nameKey(username string) []byte { return []byte("user:name:" + username) }

// Create inserts a new user. The caller supplies the already-hashed password.
// Fails with ErrDuplicateEmail or ErrDuplicateUsername when an index entry
// exists; the uniqueness check and the index writes share one transaction.
func (s *UserStore) Create(username, email, passwordHash string, role models.Role) (*models.User, error) {
	start := time.Now()
	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(email)); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if _, err := txn.Get(nameKey(username)); err == nil {
			return ErrDuplicateUsername
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := setJSON(txn, userKey(user.ID), user); err != nil {
			return err
		}
		if err := txn.Set(emailKey(email), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(nameKey(username), []byte(user.ID))
	})
	metrics.ObserveStoreOperation("create", "user", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ByID returns the user with the given ID, or ErrNotFound.
func (s *UserStore) ByID(id string) (*models.User, error) {
	start := time.Now()
	var user models.User
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &user)
	})
	metrics.ObserveStoreOperation("get", "user", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ByEmail resolves a user through the email index.
func (s *UserStore) ByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, userKey(string(id)), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ByUsername resolves a user through the username index.
func (s *UserStore) ByUsername(username string) (*models.User, error) {
	var user models.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nameKey(username))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, userKey(string(id)), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Exists reports whether a user with the given ID is stored. Backs the
// connect-time subject check of the authenticator gate.
func (s *UserStore) Exists(id string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(userKey(id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
