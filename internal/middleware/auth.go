// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Lohithpallikonda/medsbuddy/internal/auth"
	"github.com/Lohithpallikonda/medsbuddy/internal/metrics"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
)

const identityKey contextKey = "identity"

// Identity is the authenticated principal attached to a request context.
type Identity struct {
	UserID   string
	Username string
	Role     models.Role
}

// Authenticate validates the bearer token and stores the principal in the
// request context. Requests without a valid token get a 401.
func Authenticate(jwt *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				metrics.AuthFailures.WithLabelValues(string(auth.ReasonMissingToken)).Inc()
				unauthorized(w, "Authentication required")
				return
			}

			claims, err := jwt.ValidateToken(token)
			if err != nil {
				metrics.AuthFailures.WithLabelValues(string(auth.ReasonInvalid)).Inc()
				unauthorized(w, "Invalid or expired token")
				return
			}

			identity := Identity{
				UserID:   claims.Subject,
				Username: claims.Username,
				Role:     claims.Role,
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route on the authenticated principal's role. Must be
// mounted inside Authenticate.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok || identity.Role != role {
				forbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext returns the authenticated principal, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// extractToken pulls the credential from the Authorization header or, for
// browser clients, the token query parameter.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, message)
}

func forbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, models.ErrCodeForbidden, message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	}
	_ = json.NewEncoder(w).Encode(resp)
}
