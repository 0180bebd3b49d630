package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// PostgresAuthRepository implements account, registration and session
// persistence using a PostgreSQL database.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a new PostgresAuthRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

// UserExists checks whether a user with the given email or username exists.
func (r *PostgresAuthRepository) UserExists(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 OR username = $2)`,
		email, username,
	).Scan(&exists)
	return exists, err
}

// SavePendingRegistration stores a registration awaiting its e-mail code.
// A second registration for the same e-mail replaces the first and resets attempts.
func (r *PostgresAuthRepository) SavePendingRegistration(ctx context.Context, p models.PendingRegistration) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO verification_codes (email, username, password_hash, code_hash, attempts, expires_at)
		VALUES ($1, $2, $3, $4, 0, $5)
		ON CONFLICT (email) DO UPDATE SET
			username = EXCLUDED.username,
			password_hash = EXCLUDED.password_hash,
			code_hash = EXCLUDED.code_hash,
			attempts = 0,
			expires_at = EXCLUDED.expires_at
	`, p.Email, p.Username, string(p.PasswordHash), p.CodeHash, p.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save pending registration: %w", err)
	}
	return nil
}

// GetPendingRegistration returns the pending registration for email or
// models.ErrRegistrationNotFound.
func (r *PostgresAuthRepository) GetPendingRegistration(ctx context.Context, email string) (*models.PendingRegistration, error) {
	var p models.PendingRegistration
	var hash string
	err := r.DB.QueryRowContext(ctx, `
		SELECT email, username, password_hash, code_hash, attempts, expires_at
		  FROM verification_codes WHERE email = $1
	`, email).Scan(&p.Email, &p.Username, &hash, &p.CodeHash, &p.Attempts, &p.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending registration: %w", err)
	}
	p.PasswordHash = []byte(hash)
	return &p, nil
}

// ReserveAttempt counts one code entry against the pending registration for
// email and returns the row as updated. The increment only happens while
// attempts < maxAttempts, so concurrent guesses cannot exceed the limit.
// An exhausted registration yields models.ErrTooManyAttempts.
func (r *PostgresAuthRepository) ReserveAttempt(ctx context.Context, email string, maxAttempts int) (*models.PendingRegistration, error) {
	var p models.PendingRegistration
	var hash string
	err := r.DB.QueryRowContext(ctx, `
		UPDATE verification_codes SET attempts = attempts + 1
		 WHERE email = $1 AND attempts < $2
		RETURNING email, username, password_hash, code_hash, attempts, expires_at
	`, email, maxAttempts).Scan(&p.Email, &p.Username, &hash, &p.CodeHash, &p.Attempts, &p.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := r.DB.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM verification_codes WHERE email = $1)`, email,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("reserve attempt: %w", err)
		}
		if exists {
			return nil, models.ErrTooManyAttempts
		}
		return nil, models.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reserve attempt: %w", err)
	}
	p.PasswordHash = []byte(hash)
	return &p, nil
}

// DeletePendingRegistration drops the pending registration for email.
func (r *PostgresAuthRepository) DeletePendingRegistration(ctx context.Context, email string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM verification_codes WHERE email = $1`, email)
	return err
}

// CompleteRegistration creates the user, records the opening balance in the
// ledger and consumes the pending registration in a single transaction.
func (r *PostgresAuthRepository) CompleteRegistration(ctx context.Context, u models.User, signup *models.LedgerEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM verification_codes WHERE email = $1`, u.Email)
	if err != nil {
		return fmt.Errorf("consume registration: %w", err)
	}
	if err := expectOneRow(res, models.ErrRegistrationNotFound); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Email, u.Username, string(u.PasswordHash), u.BalanceCents, string(u.Role), u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	if signup != nil {
		if err := (&pgTx{tx: tx}).AppendLedger(ctx, *signup); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user registered with email or models.ErrUserNotFound.
func (r *PostgresAuthRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// GetUserByID returns the user with id or models.ErrUserNotFound.
func (r *PostgresAuthRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// RevokeSession marks a session id as logged out until expiresAt.
func (r *PostgresAuthRepository) RevokeSession(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO revoked_sessions (jti, expires_at) VALUES ($1, $2) ON CONFLICT (jti) DO NOTHING`,
		jti, expiresAt)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// IsSessionRevoked reports whether jti has been logged out.
func (r *PostgresAuthRepository) IsSessionRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM revoked_sessions WHERE jti = $1)`, jti,
	).Scan(&revoked)
	return revoked, err
}

// PurgeExpired deletes stale verification codes and revocations that can no
// longer match a live token. It returns the total number of rows removed.
func (r *PostgresAuthRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, q := range []string{
		`DELETE FROM verification_codes WHERE expires_at < $1`,
		`DELETE FROM revoked_sessions WHERE expires_at < $1`,
	} {
		res, err := r.DB.ExecContext(ctx, q, now)
		if err != nil {
			return total, fmt.Errorf("purge expired: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
