// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package store

import (
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

// CaretakerStore persists caretaker-patient assignments.
type CaretakerStore struct {
	db *badger.DB
}

// NewCaretakerStore creates a CaretakerStore backed by db.
func NewCaretakerStore(db *badger.DB) *CaretakerStore {
	return &CaretakerStore{db: db}
}

func careKey(caretakerID, patientID string) []byte {
	return []byte("care:" + caretakerID + ":" + patientID)
}

func carePrefix(caretakerID string) []byte { return []byte("care:" + caretakerID + ":") }

// Assign links a caretaker to a patient. Idempotent.
func (s *CaretakerStore) Assign(caretakerID, patientID string) (*models.CaretakerAssignment, error) {
	a := &models.CaretakerAssignment{
		CaretakerID: caretakerID,
		PatientID:   patientID,
		Status:      "active",
		CreatedAt:   time.Now().UTC(),
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		var existing models.CaretakerAssignment
		if err := getJSON(txn, careKey(caretakerID, patientID), &existing); err == nil {
			a = &existing
			return nil
		}
		return setJSON(txn, careKey(caretakerID, patientID), a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// IsAssigned reports whether caretakerID has an active assignment to
// patientID.
func (s *CaretakerStore) IsAssigned(caretakerID, patientID string) (bool, error) {
	var a models.CaretakerAssignment
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, careKey(caretakerID, patientID), &a)
	})
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return a.Status == "active", nil
}

// Patients lists the patient IDs assigned to a caretaker.
func (s *CaretakerStore) Patients(caretakerID string) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, carePrefix(caretakerID), func(a models.CaretakerAssignment) bool {
			if a.Status == "active" {
				ids = append(ids, a.PatientID)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
