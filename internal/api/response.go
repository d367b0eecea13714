// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

// Package api provides the HTTP surface: chi routing, request decoding, and
// the standardized response envelope shared by every endpoint.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/Lohithpallikonda/medsbuddy/internal/logging"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
	"github.com/Lohithpallikonda/medsbuddy/internal/validation"
)

// respondJSON writes a success envelope with the given payload.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("failed to encode error response")
	}
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the caller should
// proceed. An empty body decodes to the zero value; required-field
// validation then rejects it where it matters.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid JSON body")
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, verr.Error())
		return false
	}
	return true
}
