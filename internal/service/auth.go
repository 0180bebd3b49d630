// Package service implements the business logic behind the HTTP API,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/atinyakov/HorosCase/internal/metrics"
	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/atinyakov/HorosCase/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// UserExists returns true if the email or the username is taken.
	UserExists(ctx context.Context, email, username string) (bool, error)
	SavePendingRegistration(ctx context.Context, p models.PendingRegistration) error
	GetPendingRegistration(ctx context.Context, email string) (*models.PendingRegistration, error)
	// ReserveAttempt atomically counts one code entry, failing with
	// models.ErrTooManyAttempts once maxAttempts entries were made, and
	// returns the registration as updated.
	ReserveAttempt(ctx context.Context, email string, maxAttempts int) (*models.PendingRegistration, error)
	DeletePendingRegistration(ctx context.Context, email string) error
	// CompleteRegistration atomically creates the user and consumes the pending registration.
	CompleteRegistration(ctx context.Context, u models.User, signup *models.LedgerEntry) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// SessionManager issues and verifies session credentials.
type SessionManager interface {
	Issue(userID string) (string, *session.Claims, error)
	Verify(ctx context.Context, token string) (*session.Claims, error)
	Revoke(ctx context.Context, claims *session.Claims) error
}

// CodeSender delivers a registration code to an e-mail address.
type CodeSender interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogCodeSender writes codes to the log instead of sending mail.
type LogCodeSender struct {
	Log *zap.Logger
}

// SendCode implements CodeSender.
func (s LogCodeSender) SendCode(_ context.Context, email, code string) error {
	s.Log.Info("verification code issued", zap.String("email", email), zap.String("code", code))
	return nil
}

// AuthOptions tunes registration and login.
type AuthOptions struct {
	// CodeTTL is how long a registration code stays valid.
	CodeTTL time.Duration
	// MaxAttempts is the number of wrong codes tolerated before the
	// pending registration is discarded.
	MaxAttempts int
	// InitialBalance is credited to every new account, in minor units.
	InitialBalance int64
	// AdminEmails receive the admin role when their account is created.
	AdminEmails []string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// AuthService implements registration, login and session operations.
type AuthService struct {
	repo     AuthRepository
	sessions SessionManager
	sender   CodeSender
	opts     AuthOptions
	admins   map[string]struct{}
	log      *zap.Logger
	// dummyHash is compared on logins for unknown emails so they cost as
	// much as a wrong password.
	dummyHash []byte
}

// NewAuthService constructs a new AuthService.
func NewAuthService(repo AuthRepository, sessions SessionManager, sender CodeSender, opts AuthOptions, log *zap.Logger) *AuthService {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 10 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	admins := make(map[string]struct{}, len(opts.AdminEmails))
	for _, e := range opts.AdminEmails {
		admins[normalizeEmail(e)] = struct{}{}
	}
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("unused-login-password"), opts.BcryptCost)
	if err != nil {
		log.Warn("failed to prepare dummy password hash", zap.Error(err))
	}
	return &AuthService{
		repo:      repo,
		sessions:  sessions,
		sender:    sender,
		opts:      opts,
		admins:    admins,
		log:       log,
		dummyHash: dummyHash,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Register stores a pending registration and sends its verification code.
// Registering the same e-mail again replaces the previous code.
func (s *AuthService) Register(ctx context.Context, email, username, password string) error {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)

	exists, err := s.repo.UserExists(ctx, email, username)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if exists {
		return models.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	code, err := newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	err = s.repo.SavePendingRegistration(ctx, models.PendingRegistration{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		CodeHash:     hashCode(code),
		ExpiresAt:    time.Now().Add(s.opts.CodeTTL),
	})
	if err != nil {
		return err
	}
	return s.sender.SendCode(ctx, email, code)
}

// VerifyCode completes a registration and signs the new user in.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (string, models.Profile, error) {
	email = normalizeEmail(email)

	// The attempt is reserved before the code is compared.
	p, err := s.repo.ReserveAttempt(ctx, email, s.opts.MaxAttempts)
	if errors.Is(err, models.ErrTooManyAttempts) {
		s.dropRegistration(ctx, email)
		return "", models.Profile{}, err
	}
	if err != nil {
		return "", models.Profile{}, err
	}
	if time.Now().After(p.ExpiresAt) {
		s.dropRegistration(ctx, email)
		return "", models.Profile{}, models.ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(hashCode(strings.TrimSpace(code))), []byte(p.CodeHash)) != 1 {
		if p.Attempts >= s.opts.MaxAttempts {
			s.dropRegistration(ctx, email)
			return "", models.Profile{}, models.ErrTooManyAttempts
		}
		return "", models.Profile{}, models.ErrCodeInvalid
	}

	role := models.RolePlayer
	if _, ok := s.admins[email]; ok {
		role = models.RoleAdmin
	}
	now := time.Now().UTC()
	u := models.User{
		ID:           uuid.NewString(),
		Email:        p.Email,
		Username:     p.Username,
		PasswordHash: p.PasswordHash,
		BalanceCents: s.opts.InitialBalance,
		Role:         role,
		CreatedAt:    now,
	}
	var signup *models.LedgerEntry
	if u.BalanceCents > 0 {
		signup = &models.LedgerEntry{
			ID:          uuid.NewString(),
			UserID:      u.ID,
			Kind:        models.LedgerSignup,
			AmountCents: u.BalanceCents,
			CreatedAt:   now,
		}
	}
	if err := s.repo.CompleteRegistration(ctx, u, signup); err != nil {
		return "", models.Profile{}, err
	}
	metrics.Registrations.Inc()
	s.log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(role)))

	token, _, err := s.sessions.Issue(u.ID)
	if err != nil {
		return "", models.Profile{}, err
	}
	return token, u.Profile(), nil
}

func (s *AuthService) dropRegistration(ctx context.Context, email string) {
	if err := s.repo.DeletePendingRegistration(ctx, email); err != nil {
		s.log.Warn("failed to drop pending registration", zap.String("email", email), zap.Error(err))
	}
}

// Login checks credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, models.Profile, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, models.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return "", models.Profile{}, models.ErrInvalidCredentials
	}
	if err != nil {
		return "", models.Profile{}, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", models.Profile{}, models.ErrInvalidCredentials
	}

	token, _, err := s.sessions.Issue(u.ID)
	if err != nil {
		return "", models.Profile{}, err
	}
	return token, u.Profile(), nil
}

// VerifyToken validates a bearer credential.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*session.Claims, error) {
	return s.sessions.Verify(ctx, token)
}

// Logout revokes the session described by claims.
func (s *AuthService) Logout(ctx context.Context, claims *session.Claims) error {
	return s.sessions.Revoke(ctx, claims)
}

// Profile returns the current profile of userID, read from the store.
func (s *AuthService) Profile(ctx context.Context, userID string) (models.Profile, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}
	return u.Profile(), nil
}

// IsAdmin reports whether userID currently holds the admin role.
func (s *AuthService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.IsAdmin(), nil
}
