// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

// Package store persists domain records in Badger.
//
// Records are stored as JSON values under typed key prefixes:
//
//	user:<id>                         User
//	user:email:<email>                user ID (index)
//	user:name:<username>              user ID (index)
//	med:<userID>:<id>                 Medication
//	medlog:<userID>:<medicationID>:<date>  MedicationLog
//	notif:<userID>:<id>               Notification
//	msg:<pairKey>:<seq>               Message
//	conv:<userID>:<otherID>           conversation summary (index)
//	care:<caretakerID>:<patientID>    CaretakerAssignment
//
// All stores share one *badger.DB; uniqueness checks and their index writes
// happen inside a single transaction.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/Lohithpallikonda/medsbuddy/internal/config"
	"github.com/Lohithpallikonda/medsbuddy/internal/logging"
)

// Sentinel errors shared by all stores.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrAlreadyLogged     = errors.New("medication already logged for this date")
)

// Open opens the Badger database per configuration. The returned DB is shared
// by every store and must be closed on shutdown.
func Open(cfg config.DatabaseConfig) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", cfg.Path, err)
	}
	return db, nil
}

// badgerLogger routes Badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logging.Error().Msgf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...any) {
	logging.Warn().Msgf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...any) {
	logging.Debug().Msgf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...any) {
	logging.Debug().Msgf("badger: "+format, args...)
}

// setJSON marshals v and writes it under key within txn.
func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return txn.Set(key, data)
}

// getJSON reads key within txn and unmarshals into v. Returns ErrNotFound
// when the key is absent.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// iteratePrefix walks every value under prefix, unmarshaling each into a
// fresh T and passing it to fn. fn returning false stops iteration.
func iteratePrefix[T any](txn *badger.Txn, prefix []byte, fn func(T) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var v T
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		})
		if err != nil {
			return err
		}
		if !fn(v) {
			return nil
		}
	}
	return nil
}
