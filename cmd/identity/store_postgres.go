package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must not close it.
// Unique-violation errors are mapped to ConflictError so the HTTP layer can
// produce stable responses.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, OpError{Op: "identity.NewPostgresStore", Kind: ErrInvalidInput, Msg: "nil pool"}
	}
	return &PostgresStore{pool: pool}, nil
}

// CreateUser creates the user, account, and relation transactionally.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (CreateUserResult, error) {
	const op = "identity.CreateUser"

	email := strings.TrimSpace(in.Email)
	if email == "" {
		return CreateUserResult{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email is required"}
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return CreateUserResult{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	emailNorm := NormalizeEmail(email)

	userID, err := NewULID(now)
	if err != nil {
		return CreateUserResult{}, err
	}
	accountID, err := NewULID(now)
	if err != nil {
		return CreateUserResult{}, err
	}

	accountName := strings.TrimSpace(in.AccountName)
	if accountName == "" {
		accountName = emailNorm
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return CreateUserResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO contour.users (id, email, email_norm, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, email, emailNorm, in.PasswordHash, now)
	if err != nil {
		return CreateUserResult{}, mapPgError(op, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO contour.accounts (id, name, created_at)
		VALUES ($1, $2, $3)
	`, accountID, accountName, now)
	if err != nil {
		return CreateUserResult{}, mapPgError(op, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO contour.user_accounts (user_id, account_id, created_at)
		VALUES ($1, $2, $3)
	`, userID, accountID, now)
	if err != nil {
		return CreateUserResult{}, mapPgError(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return CreateUserResult{}, err
	}

	return CreateUserResult{
		User:    User{ID: userID, Email: email, EmailNorm: emailNorm, CreatedAt: now},
		Account: Account{ID: accountID, Name: accountName, CreatedAt: now},
	}, nil
}

// GetUserByID loads a user row by id.
func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	const op = "identity.GetUserByID"

	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, email_norm, twofactor_secret, twofactor_enabled, created_at
		FROM contour.users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.Email, &u.EmailNorm, &u.TwoFactorSecret, &u.TwoFactorEnabled, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// GetUserAuthByEmail loads the credential view for login.
func (s *PostgresStore) GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error) {
	const op = "identity.GetUserAuthByEmail"

	var ua UserAuth
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, email_norm, password_hash, twofactor_secret, twofactor_enabled, created_at
		FROM contour.users
		WHERE email_norm = $1
	`, NormalizeEmail(email)).Scan(
		&ua.User.ID,
		&ua.User.Email,
		&ua.User.EmailNorm,
		&ua.PasswordHash,
		&ua.User.TwoFactorSecret,
		&ua.User.TwoFactorEnabled,
		&ua.User.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserAuth{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return UserAuth{}, err
	}
	return ua, nil
}

// AccountIDForUser resolves the linked account; ErrNotFound when unlinked.
func (s *PostgresStore) AccountIDForUser(ctx context.Context, userID string) (string, error) {
	const op = "identity.AccountIDForUser"

	var accountID string
	err := s.pool.QueryRow(ctx, `
		SELECT account_id FROM contour.user_accounts WHERE user_id = $1
	`, userID).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return "", err
	}
	return accountID, nil
}

// SetTwoFactorSecret stores a provisioned personal TOTP secret.
func (s *PostgresStore) SetTwoFactorSecret(ctx context.Context, userID, secret string) error {
	const op = "identity.SetTwoFactorSecret"

	tag, err := s.pool.Exec(ctx, `
		UPDATE contour.users SET twofactor_secret = $2 WHERE id = $1
	`, userID, secret)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	return nil
}

// EnableTwoFactor marks two-factor as required for future logins.
func (s *PostgresStore) EnableTwoFactor(ctx context.Context, userID string) error {
	const op = "identity.EnableTwoFactor"

	tag, err := s.pool.Exec(ctx, `
		UPDATE contour.users SET twofactor_enabled = TRUE
		WHERE id = $1 AND twofactor_secret IS NOT NULL
	`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound, Msg: "user missing or secret not provisioned"}
	}
	return nil
}

func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return ConflictError{Op: op, Field: conflictField(pgErr.ConstraintName)}
		case "23503": // foreign_key_violation
			return OpError{Op: op, Kind: ErrNotFound, Msg: "referenced row missing"}
		}
	}
	return err
}

func conflictField(constraint string) string {
	switch {
	case strings.Contains(constraint, "email"):
		return "email"
	default:
		return constraint
	}
}
