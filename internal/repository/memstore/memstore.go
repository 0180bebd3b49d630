// Package memstore is an in-memory implementation of the repository
// contracts, used when no database is configured and in tests.
package memstore

import (
	"context"
	"database/sql"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/atinyakov/HorosCase/internal/repository"
)

// Store keeps all state in maps guarded by a single mutex. A transaction
// holds the mutex from BeginTx until Commit or Rollback, so units of work
// are fully serialized. Store methods must not be called while the same
// goroutine holds an open Tx.
type Store struct {
	mu sync.Mutex

	users    map[string]models.User
	pending  map[string]models.PendingRegistration
	items    map[string]models.InventoryItem
	ledger   []models.LedgerEntry
	revoked  map[string]time.Time
	counters map[string]counter
}

type counter struct {
	value   int64
	updated time.Time
}

// New returns an empty store.
func New() *Store {
	s := &Store{
		users:    make(map[string]models.User),
		pending:  make(map[string]models.PendingRegistration),
		items:    make(map[string]models.InventoryItem),
		revoked:  make(map[string]time.Time),
		counters: make(map[string]counter),
	}
	for _, name := range models.Counters {
		s.counters[name] = counter{updated: time.Now()}
	}
	return s
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// UserExists checks whether a user with the given email or username exists.
func (s *Store) UserExists(_ context.Context, email, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginTaken(email, username), nil
}

func (s *Store) loginTaken(email, username string) bool {
	for _, u := range s.users {
		if u.Email == email || u.Username == username {
			return true
		}
	}
	return false
}

func (s *Store) SavePendingRegistration(_ context.Context, p models.PendingRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Attempts = 0
	s.pending[p.Email] = p
	return nil
}

func (s *Store) GetPendingRegistration(_ context.Context, email string) (*models.PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[email]
	if !ok {
		return nil, models.ErrRegistrationNotFound
	}
	return &p, nil
}

func (s *Store) ReserveAttempt(_ context.Context, email string, maxAttempts int) (*models.PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[email]
	if !ok {
		return nil, models.ErrRegistrationNotFound
	}
	if p.Attempts >= maxAttempts {
		return nil, models.ErrTooManyAttempts
	}
	p.Attempts++
	s.pending[email] = p
	return &p, nil
}

func (s *Store) DeletePendingRegistration(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, email)
	return nil
}

// CompleteRegistration creates the user and consumes the pending registration.
func (s *Store) CompleteRegistration(_ context.Context, u models.User, signup *models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[u.Email]; !ok {
		return models.ErrRegistrationNotFound
	}
	if s.loginTaken(u.Email, u.Username) {
		return models.ErrUserExists
	}
	delete(s.pending, u.Email)
	s.users[u.ID] = u
	if signup != nil {
		s.ledger = append(s.ledger, *signup)
	}
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (s *Store) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) RevokeSession(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[jti]; !ok {
		s.revoked[jti] = expiresAt
	}
	return nil
}

func (s *Store) IsSessionRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[jti]
	return ok, nil
}

// PurgeExpired drops stale verification codes and revocations.
func (s *Store) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, p := range s.pending {
		if p.ExpiresAt.Before(now) {
			delete(s.pending, k)
			n++
		}
	}
	for k, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, k)
			n++
		}
	}
	return n, nil
}

// ListInventory returns the items owned by userID that pass filter,
// most recently acquired first.
func (s *Store) ListInventory(_ context.Context, userID string, filter models.InventoryFilter) ([]models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]models.InventoryItem, 0)
	for _, it := range s.items {
		if it.OwnerID == userID && filter.Match(it) {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AcquiredAt.Equal(items[j].AcquiredAt) {
			return items[i].AcquiredAt.After(items[j].AcquiredAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// ListHistory returns the user's ledger entries, newest first.
func (s *Store) ListHistory(_ context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]models.LedgerEntry, 0)
	for i := len(s.ledger) - 1; i >= 0 && len(entries) < limit; i-- {
		if s.ledger[i].UserID == userID {
			entries = append(entries, s.ledger[i])
		}
	}
	return entries, nil
}

func (s *Store) GetStats(context.Context) (models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := models.Stats{Users: int64(len(s.users))}
	for name, c := range s.counters {
		switch name {
		case models.CounterCasesOpened:
			st.CasesOpened = c.value
		case models.CounterTraders:
			st.Traders = c.value
		case models.CounterItemsSold:
			st.ItemsSold = c.value
		}
		if c.updated.After(st.UpdatedAt) {
			st.UpdatedAt = c.updated
		}
	}
	return st, nil
}

func (s *Store) ResetCounter(_ context.Context, name string) error {
	if !models.IsCounter(name) {
		return models.ErrUnknownCounter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name] = counter{updated: time.Now()}
	return nil
}

func (s *Store) TierCounts(_ context.Context, caseID string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, e := range s.ledger {
		if e.Kind == models.LedgerOpen && e.CaseID == caseID {
			counts[e.Tier]++
		}
	}
	return counts, nil
}

// BeginTx locks the store and returns a unit of work over private copies
// of users, items, ledger and counters.
func (s *Store) BeginTx(ctx context.Context) (repository.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &tx{
		s:        s,
		users:    maps.Clone(s.users),
		items:    maps.Clone(s.items),
		ledger:   s.ledger[:len(s.ledger):len(s.ledger)],
		counters: maps.Clone(s.counters),
	}, nil
}

type tx struct {
	s    *Store
	done bool

	users    map[string]models.User
	items    map[string]models.InventoryItem
	ledger   []models.LedgerEntry
	counters map[string]counter
}

func (t *tx) GetUserForUpdate(_ context.Context, userID string) (*models.User, error) {
	u, ok := t.users[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &u, nil
}

func (t *tx) FindUserByLogin(_ context.Context, login string) (*models.User, error) {
	for _, u := range t.users {
		if u.Email == login || u.Username == login {
			return &u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (t *tx) DebitBalance(_ context.Context, userID string, amount int64) (int64, error) {
	u, ok := t.users[userID]
	if !ok || u.BalanceCents < amount {
		return 0, models.ErrInsufficientFunds
	}
	u.BalanceCents -= amount
	t.users[userID] = u
	return u.BalanceCents, nil
}

func (t *tx) CreditBalance(_ context.Context, userID string, amount int64) (int64, error) {
	u, ok := t.users[userID]
	if !ok {
		return 0, models.ErrUserNotFound
	}
	u.BalanceCents += amount
	t.users[userID] = u
	return u.BalanceCents, nil
}

func (t *tx) AddItem(_ context.Context, item models.InventoryItem) error {
	t.items[item.ID] = item
	return nil
}

func (t *tx) GetItemForUpdate(_ context.Context, itemID string) (*models.InventoryItem, error) {
	it, ok := t.items[itemID]
	if !ok {
		return nil, models.ErrItemNotFound
	}
	return &it, nil
}

func (t *tx) RemoveItem(_ context.Context, itemID, ownerID string) error {
	it, ok := t.items[itemID]
	if !ok || it.OwnerID != ownerID {
		return models.ErrItemNotFound
	}
	delete(t.items, itemID)
	return nil
}

func (t *tx) TransferItem(_ context.Context, itemID, fromID, toID string) error {
	it, ok := t.items[itemID]
	if !ok || it.OwnerID != fromID {
		return models.ErrItemNotFound
	}
	it.OwnerID = toID
	t.items[itemID] = it
	return nil
}

func (t *tx) AppendLedger(_ context.Context, e models.LedgerEntry) error {
	t.ledger = append(t.ledger, e)
	return nil
}

func (t *tx) HasLedgerKind(_ context.Context, userID string, kind models.LedgerKind) (bool, error) {
	for _, e := range t.ledger {
		if e.UserID == userID && e.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) IncrementCounter(_ context.Context, name string, delta int64) error {
	c := t.counters[name]
	c.value += delta
	c.updated = time.Now()
	t.counters[name] = c
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.s.users = t.users
	t.s.items = t.items
	t.s.ledger = t.ledger
	t.s.counters = t.counters
	t.finish()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *tx) finish() {
	t.done = true
	t.s.mu.Unlock()
}
