// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Lohithpallikonda/medsbuddy/internal/logging"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
	"github.com/Lohithpallikonda/medsbuddy/internal/realtime"
	"github.com/Lohithpallikonda/medsbuddy/internal/store"
)

// MedicationRequest creates or replaces a medication.
type MedicationRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Dosage    string `json:"dosage" validate:"required,max=100"`
	Frequency string `json:"frequency" validate:"required,max=100"`
}

// LogRequest records a dose outcome. Date defaults to today (UTC).
type LogRequest struct {
	Date  string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Notes string `json:"notes" validate:"omitempty,max=500"`
}

// ListMedications returns the caller's medications, newest first.
func (h *Handlers) ListMedications(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	meds, err := h.stores.Medications.ListByUser(identity.UserID)
	if err != nil {
		logging.Error().Err(err).Msg("failed to list medications")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to list medications")
		return
	}
	respondJSON(w, http.StatusOK, meds)
}

// CreateMedication adds a medication and echoes the change to the caller's
// other devices.
func (h *Handlers) CreateMedication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req MedicationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	med, err := h.stores.Medications.Create(identity.UserID, req.Name, req.Dosage, req.Frequency)
	if err != nil {
		logging.Error().Err(err).Msg("failed to create medication")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to create medication")
		return
	}

	h.hub.SendToUser(identity.UserID, realtime.EventMedicationUpdated, realtime.Payload{
		"type":       "added",
		"medication": med,
		"userId":     identity.UserID,
		"username":   identity.Username,
	})

	respondJSON(w, http.StatusCreated, med)
}

// GetMedication returns one medication owned by the caller.
func (h *Handlers) GetMedication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	med, err := h.stores.Medications.ByID(identity.UserID, chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Medication not found")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("failed to load medication")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to load medication")
		return
	}
	respondJSON(w, http.StatusOK, med)
}

// UpdateMedication replaces a medication's fields.
func (h *Handlers) UpdateMedication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req MedicationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	med, err := h.stores.Medications.Update(identity.UserID, chi.URLParam(r, "id"), req.Name, req.Dosage, req.Frequency)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Medication not found")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("failed to update medication")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to update medication")
		return
	}
	respondJSON(w, http.StatusOK, med)
}

// DeleteMedication removes a medication.
func (h *Handlers) DeleteMedication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	err := h.stores.Medications.Delete(identity.UserID, chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Medication not found")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("failed to delete medication")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to delete medication")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Medication deleted"})
}

// TakeMedication records a taken dose.
func (h *Handlers) TakeMedication(w http.ResponseWriter, r *http.Request) {
	h.recordDose(w, r, models.LogStatusTaken)
}

// MissMedication records a missed dose.
func (h *Handlers) MissMedication(w http.ResponseWriter, r *http.Request) {
	h.recordDose(w, r, models.LogStatusMissed)
}

// recordDose persists a dose outcome and pushes the same realtime events the
// socket path produces, so monitoring caretakers see REST-recorded doses too.
func (h *Handlers) recordDose(w http.ResponseWriter, r *http.Request, status models.LogStatus) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req LogRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	date := req.Date
	if date == "" {
		date = time.Now().UTC().Format(store.DateFormat)
	}

	med, err := h.stores.Medications.ByID(identity.UserID, chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Medication not found")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("failed to load medication")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to record dose")
		return
	}

	log, err := h.stores.Logs.Record(identity.UserID, med.ID, date, status, req.Notes)
	if errors.Is(err, store.ErrAlreadyLogged) {
		respondError(w, http.StatusConflict, models.ErrCodeConflict, "Already logged for this date")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("failed to record dose")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to record dose")
		return
	}

	update := realtime.Payload{
		"type":           string(status),
		"medicationId":   med.ID,
		"medicationName": med.Name,
		"userId":         identity.UserID,
		"username":       identity.Username,
	}
	monitor := realtime.Payload{
		"patientId":      identity.UserID,
		"patientName":    identity.Username,
		"medicationId":   med.ID,
		"medicationName": med.Name,
	}
	if req.Notes != "" {
		update["notes"] = req.Notes
		monitor["notes"] = req.Notes
	}
	monitorEvent := realtime.EventPatientMedicationTaken
	if status == models.LogStatusMissed {
		monitorEvent = realtime.EventPatientMedicationMissed
		monitor["priority"] = "high"
	}
	h.hub.SendToUser(identity.UserID, realtime.EventMedicationUpdated, update)
	h.hub.NotifyMonitors(identity.UserID, monitorEvent, monitor)

	respondJSON(w, http.StatusCreated, log)
}

// UndoLog removes today's (or the given date's) dose record.
func (h *Handlers) UndoLog(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format(store.DateFormat)
	}

	err := h.stores.Logs.Undo(identity.UserID, chi.URLParam(r, "id"), date)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "No log for this date")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("failed to undo log")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to undo log")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Log removed"})
}

// Today returns the caller's medications with today's dose status.
func (h *Handlers) Today(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	today := time.Now().UTC().Format(store.DateFormat)
	meds, err := h.stores.Medications.ListByUser(identity.UserID)
	if err != nil {
		logging.Error().Err(err).Msg("failed to list medications")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to load today view")
		return
	}
	logs, err := h.stores.Logs.ForDate(identity.UserID, today)
	if err != nil {
		logging.Error().Err(err).Msg("failed to load logs")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to load today view")
		return
	}

	type todayEntry struct {
		models.Medication
		Status models.LogStatus `json:"status,omitempty"`
		Logged bool             `json:"logged"`
	}
	entries := make([]todayEntry, 0, len(meds))
	for _, med := range meds {
		entry := todayEntry{Medication: med}
		if log, ok := logs[med.ID]; ok {
			entry.Status = log.Status
			entry.Logged = true
		}
		entries = append(entries, entry)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"date":        today,
		"medications": entries,
	})
}

// Stats returns adherence statistics for the caller.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	stats, err := h.stores.Logs.Stats(identity.UserID)
	if err != nil {
		logging.Error().Err(err).Msg("failed to compute stats")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to compute stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// LogHistory returns the caller's dose history, newest first.
func (h *Handlers) LogHistory(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	limit, offset := pageParams(r, 50)
	logs, err := h.stores.Logs.History(identity.UserID, limit, offset)
	if err != nil {
		logging.Error().Err(err).Msg("failed to load log history")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to load history")
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

// pageParams reads limit/offset query parameters with a default page size.
func pageParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
