package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/atinyakov/HorosCase/internal/middleware"
	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/atinyakov/HorosCase/internal/session"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// fakeAuthService implements AuthService for testing.
type fakeAuthService struct {
	registerErr error
	loginErr    error
	profile     models.Profile
	loggedOut   *session.Claims
}

func (f *fakeAuthService) Register(ctx context.Context, email, username, password string) error {
	return f.registerErr
}

func (f *fakeAuthService) VerifyCode(ctx context.Context, email, code string) (string, models.Profile, error) {
	return "tok", f.profile, f.loginErr
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (string, models.Profile, error) {
	if f.loginErr != nil {
		return "", models.Profile{}, f.loginErr
	}
	return "tok", f.profile, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, claims *session.Claims) error {
	f.loggedOut = claims
	return nil
}

func (f *fakeAuthService) Profile(ctx context.Context, userID string) (models.Profile, error) {
	if userID == "" {
		return models.Profile{}, models.ErrUserNotFound
	}
	return f.profile, nil
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		service        *fakeAuthService
		expectedCode   int
		expectedSubstr string
	}{
		{
			name:           "invalid JSON",
			body:           `not a json`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "unknown field",
			body:           `{"email":"a@b.co","username":"alice","password":"longenough","admin":true}`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "validation errors",
			body:           `{"email":"nope","username":"a","password":"short"}`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: `"email":"invalid email format"`,
		},
		{
			name:           "service error",
			body:           `{"email":"alice@example.com","username":"alice","password":"longenough"}`,
			service:        &fakeAuthService{registerErr: errors.New("db error")},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "internal error",
		},
		{
			name:           "user already exists",
			body:           `{"email":"bob@example.com","username":"bob","password":"longenough"}`,
			service:        &fakeAuthService{registerErr: models.ErrUserExists},
			expectedCode:   http.StatusConflict,
			expectedSubstr: "user already exists",
		},
		{
			name:           "accepted",
			body:           `{"email":"carol@example.com","username":"carol","password":"longenough"}`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusAccepted,
			expectedSubstr: "verification code sent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/register", bytes.NewBufferString(tt.body))
			h := &AuthHandler{AuthService: tt.service, Log: zap.NewNop()}
			h.Register(rec, req)

			if rec.Code != tt.expectedCode {
				t.Errorf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	profile := models.Profile{Email: "alice@example.com", Username: "alice", BalanceCents: 100, Role: models.RolePlayer}

	t.Run("success", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/login", bytes.NewBufferString(`{"email":"alice@example.com","password":"pw"}`))
		h := &AuthHandler{AuthService: &fakeAuthService{profile: profile}, Log: zap.NewNop()}
		h.Login(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 OK, got %d", rec.Code)
		}
		var resp SessionResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode JSON: %v", err)
		}
		if resp.Token != "tok" || resp.User != profile {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("wrong credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/login", bytes.NewBufferString(`{"email":"alice@example.com","password":"bad"}`))
		h := &AuthHandler{AuthService: &fakeAuthService{loginErr: models.ErrInvalidCredentials}, Log: zap.NewNop()}
		h.Login(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "invalid email or password") {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
	})
}

func TestAuthHandler_VerifyAndLogout(t *testing.T) {
	svc := &fakeAuthService{profile: models.Profile{Username: "alice"}}
	h := &AuthHandler{AuthService: svc, Log: zap.NewNop()}
	claims := &session.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ID: "jti"}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/verify", nil)
	h.Verify(rec, req.WithContext(middleware.WithClaims(req.Context(), claims)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"username":"alice"`) {
		t.Fatalf("verify: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/logout", nil)
	h.Logout(rec, req.WithContext(middleware.WithClaims(req.Context(), claims)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}
	if svc.loggedOut != claims {
		t.Error("expected the request claims to be revoked")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrInsufficientFunds, http.StatusPaymentRequired},
		{models.ErrCaseNotFound, http.StatusNotFound},
		{models.ErrNotOwner, http.StatusForbidden},
		{models.ErrCodeExpired, http.StatusGone},
		{models.ErrTooManyAttempts, http.StatusTooManyRequests},
		{models.ErrNotTradable, http.StatusUnprocessableEntity},
		{errors.Join(errors.New("open case"), models.ErrInsufficientFunds), http.StatusPaymentRequired},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d; want %d", tt.err, got, tt.want)
		}
	}
}
