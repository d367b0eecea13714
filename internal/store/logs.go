// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package store

import (
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/Lohithpallikonda/medsbuddy/internal/metrics"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

// DateFormat is the calendar-date form used for medication log keys.
const DateFormat = "2006-01-02"

// MedicationLogStore persists per-date taken/missed records. At most one log
// exists per medication per date; the date is part of the key.
type MedicationLogStore struct {
	db *badger.DB
}

// NewMedicationLogStore creates a MedicationLogStore backed by db.
func NewMedicationLogStore(db *badger.DB) *MedicationLogStore {
	return &MedicationLogStore{db: db}
}

func logKey(userID, medicationID, date string) []byte {
	return []byte("medlog:" + userID + ":" + medicationID + ":" + date)
}

func logUserPrefix(userID string) []byte { return []byte("medlog:" + userID + ":") }

// Record logs a medication as taken or missed for a date. Fails with
// ErrAlreadyLogged when a log for that medication and date exists; callers
// undo first to change a recorded outcome.
func (s *MedicationLogStore) Record(userID, medicationID, date string, status models.LogStatus, notes string) (*models.MedicationLog, error) {
	start := time.Now()
	entry := &models.MedicationLog{
		ID:           uuid.NewString(),
		MedicationID: medicationID,
		UserID:       userID,
		TakenDate:    date,
		Status:       status,
		Notes:        notes,
		CreatedAt:    time.Now().UTC(),
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(logKey(userID, medicationID, date)); err == nil {
			return ErrAlreadyLogged
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, logKey(userID, medicationID, date), entry)
	})
	metrics.ObserveStoreOperation("create", "medication_log", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Undo removes the log for a medication on a date, reverting it to unlogged.
func (s *MedicationLogStore) Undo(userID, medicationID, date string) error {
	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(logKey(userID, medicationID, date)); err != nil {
			return ErrNotFound
		}
		return txn.Delete(logKey(userID, medicationID, date))
	})
	metrics.ObserveStoreOperation("delete", "medication_log", time.Since(start), err)
	return err
}

// ForDate returns the logs a user recorded on one date, keyed by medication
// ID. Backs the "today" dashboard view.
func (s *MedicationLogStore) ForDate(userID, date string) (map[string]models.MedicationLog, error) {
	logs := make(map[string]models.MedicationLog)
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, logUserPrefix(userID), func(l models.MedicationLog) bool {
			if l.TakenDate == date {
				logs[l.MedicationID] = l
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// History returns a page of a user's logs, newest date first.
func (s *MedicationLogStore) History(userID string, limit, offset int) ([]models.MedicationLog, error) {
	var logs []models.MedicationLog
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, logUserPrefix(userID), func(l models.MedicationLog) bool {
			logs = append(logs, l)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].TakenDate != logs[j].TakenDate {
			return logs[i].TakenDate > logs[j].TakenDate
		}
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	if offset >= len(logs) {
		return []models.MedicationLog{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(logs) {
		end = len(logs)
	}
	return logs[offset:end], nil
}

// Stats aggregates a user's full log history into adherence counts.
func (s *MedicationLogStore) Stats(userID string) (*models.AdherenceStats, error) {
	stats := &models.AdherenceStats{}
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, logUserPrefix(userID), func(l models.MedicationLog) bool {
			stats.TotalLogs++
			switch l.Status {
			case models.LogStatusTaken:
				stats.TakenCount++
			case models.LogStatusMissed:
				stats.MissedCount++
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	if stats.TotalLogs > 0 {
		stats.AdherenceRate = float64(stats.TakenCount) / float64(stats.TotalLogs) * 100
	}
	return stats, nil
}
