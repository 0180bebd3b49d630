// Package session issues and verifies the bearer credentials handed to
// clients after login, and tracks logged-out credentials.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	revocationCacheSize = 10_000
	revocationCacheTTL  = time.Minute
)

// ErrInvalidToken covers malformed, forged and expired credentials.
var ErrInvalidToken = errors.New("invalid or expired token")

// RevocationStore persists logged-out session ids.
type RevocationStore interface {
	RevokeSession(ctx context.Context, jti string, expiresAt time.Time) error
	IsSessionRevoked(ctx context.Context, jti string) (bool, error)
}

// Claims carried by a session token. Subject is the user id and ID is the
// session id used for revocation.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the authenticated user's id.
func (c *Claims) UserID() string { return c.Subject }

// Manager signs and verifies HS256 session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	store  RevocationStore
	cache  *expirable.LRU[string, bool]
}

// NewManager returns a Manager issuing tokens valid for ttl.
func NewManager(secret []byte, ttl time.Duration, store RevocationStore) *Manager {
	return &Manager{
		secret: secret,
		ttl:    ttl,
		store:  store,
		cache:  expirable.NewLRU[string, bool](revocationCacheSize, nil, revocationCacheTTL),
	}
}

// Issue creates a signed token for userID.
func (m *Manager) Issue(userID string) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, claims, nil
}

// Verify parses and validates a token and checks it has not been revoked.
func (m *Manager) Verify(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}

	revoked, err := m.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, models.ErrSessionRevoked
	}
	return claims, nil
}

// Revoke logs a session out until its natural expiry.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	exp := time.Now().Add(m.ttl)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := m.store.RevokeSession(ctx, claims.ID, exp); err != nil {
		return err
	}
	m.cache.Add(claims.ID, true)
	return nil
}

func (m *Manager) isRevoked(ctx context.Context, jti string) (bool, error) {
	if revoked, ok := m.cache.Get(jti); ok {
		return revoked, nil
	}
	revoked, err := m.store.IsSessionRevoked(ctx, jti)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	m.cache.Add(jti, revoked)
	return revoked, nil
}
