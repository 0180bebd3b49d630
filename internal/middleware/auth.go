// Package middleware provides HTTP middlewares for authentication, logging
// and response compression.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/atinyakov/HorosCase/internal/session"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*session.Claims, error)
}

// RoleChecker reports whether a user currently holds the admin role.
type RoleChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// BearerAuth rejects requests without a valid "Authorization: Bearer" token.
//
// On success the verified claims are stored in the request context and can
// be read with GetClaimsFromContext or GetUserIDFromContext.
func BearerAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := verifier.VerifyToken(r.Context(), strings.TrimSpace(token))
			if err != nil {
				if errors.Is(err, models.ErrSessionRevoked) {
					writeError(w, http.StatusUnauthorized, "session revoked")
					return
				}
				if errors.Is(err, session.ErrInvalidToken) {
					writeError(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin lets through only users whose stored role is admin. It must
// run after BearerAuth. The role is re-read on every request so a demoted
// admin loses access immediately.
func RequireAdmin(checker RoleChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserIDFromContext(r.Context())
			if userID == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			admin, err := checker.IsAdmin(r.Context(), userID)
			if errors.Is(err, models.ErrUserNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !admin {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaimsFromContext returns the claims stored by BearerAuth, or nil.
func GetClaimsFromContext(ctx context.Context) *session.Claims {
	c, _ := ctx.Value(claimsKey).(*session.Claims)
	return c
}

// GetUserIDFromContext extracts the authenticated user id from the request
// context. Returns an empty string if not found.
func GetUserIDFromContext(ctx context.Context) string {
	if c := GetClaimsFromContext(ctx); c != nil {
		return c.UserID()
	}
	return ""
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *session.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
