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

// MedicationStore persists medications, keyed per owner.
type MedicationStore struct {
	db *badger.DB
}

// NewMedicationStore creates a MedicationStore backed by db.
func NewMedicationStore(db *badger.DB) *MedicationStore {
	return &MedicationStore{db: db}
}

func medKey(userID, id string) []byte    { return []byte("med:" + userID + ":" + id) }
func medUserPrefix(userID string) []byte { return []byte("med:" + userID + ":") }

// Create stores a new medication for userID.
func (s *MedicationStore) Create(userID, name, dosage, frequency string) (*models.Medication, error) {
	start := time.Now()
	now := time.Now().UTC()
	med := &models.Medication{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Dosage:    dosage,
		Frequency: frequency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, medKey(userID, med.ID), med)
	})
	metrics.ObserveStoreOperation("create", "medication", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return med, nil
}

// ByID returns one medication owned by userID, or ErrNotFound. Ownership is
// part of the key, so a foreign ID can never resolve another user's record.
func (s *MedicationStore) ByID(userID, id string) (*models.Medication, error) {
	var med models.Medication
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, medKey(userID, id), &med)
	})
	if err != nil {
		return nil, err
	}
	return &med, nil
}

// ListByUser returns all medications owned by userID, newest first.
func (s *MedicationStore) ListByUser(userID string) ([]models.Medication, error) {
	start := time.Now()
	var meds []models.Medication
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, medUserPrefix(userID), func(m models.Medication) bool {
			meds = append(meds, m)
			return true
		})
	})
	metrics.ObserveStoreOperation("list", "medication", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	sort.Slice(meds, func(i, j int) bool { return meds[i].CreatedAt.After(meds[j].CreatedAt) })
	return meds, nil
}

// Update modifies name/dosage/frequency of an owned medication.
func (s *MedicationStore) Update(userID, id, name, dosage, frequency string) (*models.Medication, error) {
	start := time.Now()
	var med models.Medication
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, medKey(userID, id), &med); err != nil {
			return err
		}
		med.Name = name
		med.Dosage = dosage
		med.Frequency = frequency
		med.UpdatedAt = time.Now().UTC()
		return setJSON(txn, medKey(userID, id), &med)
	})
	metrics.ObserveStoreOperation("update", "medication", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &med, nil
}

// Delete removes an owned medication. Fails with ErrNotFound when absent.
func (s *MedicationStore) Delete(userID, id string) error {
	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(medKey(userID, id)); err != nil {
			return ErrNotFound
		}
		return txn.Delete(medKey(userID, id))
	})
	metrics.ObserveStoreOperation("delete", "medication", time.Since(start), err)
	return err
}
