// Package http provides the JSON HTTP API of the case-opening service.
package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/HorosCase/internal/middleware"
	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/atinyakov/HorosCase/internal/session"
	"go.uber.org/zap"
)

// AuthService defines the authentication operations required by the
// HTTP handlers.
type AuthService interface {
	// Register stores a pending registration and sends a verification code.
	Register(ctx context.Context, email, username, password string) error
	// VerifyCode completes a registration and opens a session.
	VerifyCode(ctx context.Context, email, code string) (string, models.Profile, error)
	// Login opens a session for an existing user.
	Login(ctx context.Context, email, password string) (string, models.Profile, error)
	// Logout revokes the session described by claims.
	Logout(ctx context.Context, claims *session.Claims) error
	// Profile returns the stored profile of a user.
	Profile(ctx context.Context, userID string) (models.Profile, error)
}

// AuthHandler handles registration, login and session requests.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	Log         *zap.Logger
}

// RegisterRequest is the JSON payload of POST /api/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,alphanum,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// VerifyCodeRequest is the JSON payload of POST /api/verify-code.
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// LoginRequest is the JSON payload of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse is returned when a session is opened.
type SessionResponse struct {
	Token string         `json:"token"`
	User  models.Profile `json:"user"`
}

// Register handles POST /api/register. The verification code is delivered
// out of band; the response only acknowledges the request.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.AuthService.Register(r.Context(), req.Email, req.Username, req.Password); err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "verification code sent"})
}

// VerifyCode handles POST /api/verify-code.
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	token, profile, err := h.AuthService.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	respondJSON(w, http.StatusCreated, SessionResponse{Token: token, User: profile})
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	token, profile, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	respondJSON(w, http.StatusOK, SessionResponse{Token: token, User: profile})
}

// Verify handles GET /api/verify and returns the caller's current profile.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	profile, err := h.AuthService.Profile(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// Logout handles POST /api/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), middleware.GetClaimsFromContext(r.Context())); err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
