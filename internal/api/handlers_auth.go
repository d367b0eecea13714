// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package api

import (
	"errors"
	"net/http"

	"github.com/Lohithpallikonda/medsbuddy/internal/auth"
	"github.com/Lohithpallikonda/medsbuddy/internal/logging"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
	"github.com/Lohithpallikonda/medsbuddy/internal/store"
)

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required,role"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// authResponse is returned by register and login.
type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates an account and returns a token for it.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password, h.cfg.Security.BcryptCost)
	if err != nil {
		logging.Error().Err(err).Msg("failed to hash password")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to create account")
		return
	}

	user, err := h.stores.Users.Create(req.Username, req.Email, hash, models.Role(req.Role))
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		respondError(w, http.StatusConflict, models.ErrCodeConflict, "Email already registered")
		return
	case errors.Is(err, store.ErrDuplicateUsername):
		respondError(w, http.StatusConflict, models.ErrCodeConflict, "Username already taken")
		return
	case err != nil:
		logging.Error().Err(err).Msg("failed to create user")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to create account")
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		logging.Error().Err(err).Msg("failed to generate token")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to create account")
		return
	}

	logging.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// Login verifies credentials and returns a fresh token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.stores.Users.ByEmail(req.Email)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("failed to look up user")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Login failed")
		return
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		logging.Error().Err(err).Msg("failed to generate token")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Login failed")
		return
	}

	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// Me returns the authenticated user's account.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	user, err := h.stores.Users.ByID(identity.UserID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "User not found")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("failed to load user")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to load account")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
