// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

// Reason classifies why a connection attempt was rejected.
type Reason string

const (
	// ReasonMissingToken: no bearer credential was supplied.
	ReasonMissingToken Reason = "missing_token"

	// ReasonInvalid: the token failed signature or structural verification.
	ReasonInvalid Reason = "invalid_token"

	// ReasonExpiredOrUnknownSubject: the token verified but its subject does
	// not resolve to an active account.
	ReasonExpiredOrUnknownSubject Reason = "expired_or_unknown_subject"

	// ReasonTimeout: verification did not complete within the configured
	// window.
	ReasonTimeout Reason = "auth_timeout"
)

// AuthError is a terminal connection-rejection. It is surfaced to the client
// as the close reason and never retried server-side.
type AuthError struct {
	Reason Reason
	cause  error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Reason)
}

// Unwrap exposes the underlying cause.
func (e *AuthError) Unwrap() error { return e.cause }

// Message returns the human-readable rejection text sent to the client.
func (e *AuthError) Message() string {
	switch e.Reason {
	case ReasonMissingToken:
		return "Authentication error: No token provided"
	case ReasonExpiredOrUnknownSubject:
		return "Authentication error: User not found"
	case ReasonTimeout:
		return "Authentication error: Verification timed out"
	default:
		return "Authentication error: Invalid token"
	}
}

// SubjectResolver answers whether an identity maps to an active account.
// Implemented by store.UserStore.
type SubjectResolver interface {
	Exists(id string) (bool, error)
}

// Gate authenticates WebSocket handshakes. Verification is evaluated exactly
// once per connection attempt, within a bounded window, before any session
// state is touched.
type Gate struct {
	jwt      *JWTManager
	subjects SubjectResolver
	timeout  time.Duration
}

// NewGate creates a Gate verifying tokens with jwtManager and subjects with
// resolver.
func NewGate(jwtManager *JWTManager, resolver SubjectResolver, timeout time.Duration) *Gate {
	return &Gate{jwt: jwtManager, subjects: resolver, timeout: timeout}
}

// authResult carries the outcome of asynchronous verification.
type authResult struct {
	identity string
	username string
	role     models.Role
	err      *AuthError
}

// Authenticate validates the bearer credential and resolves its subject.
// On success it returns (identity, username, role); on failure an *AuthError
// whose Reason is terminal for this attempt. The whole evaluation is bounded
// by the gate's timeout and the caller's context.
func (g *Gate) Authenticate(ctx context.Context, token string) (string, string, models.Role, *AuthError) {
	if token == "" {
		return "", "", "", &AuthError{Reason: ReasonMissingToken}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// Verification runs off the caller's goroutine so a slow subject lookup
	// cannot hold the handshake past the window.
	ch := make(chan authResult, 1)
	go func() {
		ch <- g.verify(token)
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return "", "", "", res.err
		}
		return res.identity, res.username, res.role, nil
	case <-ctx.Done():
		return "", "", "", &AuthError{Reason: ReasonTimeout, cause: ctx.Err()}
	}
}

func (g *Gate) verify(token string) authResult {
	claims, err := g.jwt.ValidateToken(token)
	if err != nil {
		return authResult{err: &AuthError{Reason: ReasonInvalid, cause: err}}
	}

	identity := claims.Subject
	exists, err := g.subjects.Exists(identity)
	if err != nil {
		return authResult{err: &AuthError{Reason: ReasonInvalid, cause: err}}
	}
	if !exists {
		return authResult{err: &AuthError{
			Reason: ReasonExpiredOrUnknownSubject,
			cause:  errors.New("subject does not resolve to an active account"),
		}}
	}

	return authResult{identity: identity, username: claims.Username, role: claims.Role}
}
