package clients

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresStore implements Store using PostgreSQL (contour.clients).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed client store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// GetByID loads a client row by id.
func (s *PostgresStore) GetByID(ctx context.Context, clientID string) (Client, error) {
	var c Client

	err := s.pool.QueryRow(ctx, `
		SELECT id, account_id, first_name, last_name, client_number, date_of_birth, created_at
		FROM contour.clients
		WHERE id = $1
	`, clientID).Scan(&c.ID, &c.AccountID, &c.FirstName, &c.LastName, &c.ClientNumber, &c.DateOfBirth, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	if err != nil {
		return Client{}, err
	}
	return c, nil
}

// ListByAccount returns one page of an account's clients, newest first.
func (s *PostgresStore) ListByAccount(ctx context.Context, accountID string, filter ListFilter, page Page) ([]Client, int, error) {
	term := strings.TrimSpace(filter.Term)
	pattern := "%" + term + "%"

	var total int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM contour.clients
		WHERE account_id = $1
		  AND ($2 = '' OR first_name ILIKE $3 OR last_name ILIKE $3 OR client_number ILIKE $3)
	`, accountID, term, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, first_name, last_name, client_number, date_of_birth, created_at
		FROM contour.clients
		WHERE account_id = $1
		  AND ($2 = '' OR first_name ILIKE $3 OR last_name ILIKE $3 OR client_number ILIKE $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5
	`, accountID, term, pattern, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.AccountID, &c.FirstName, &c.LastName, &c.ClientNumber, &c.DateOfBirth, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

// Create inserts a new client row.
func (s *PostgresStore) Create(ctx context.Context, in CreateInput) (Client, error) {
	if in.AccountID == "" {
		return Client{}, ErrInvalidInput
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	c := Client{
		ID:           ulid.Make().String(),
		AccountID:    in.AccountID,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		ClientNumber: strings.TrimSpace(in.ClientNumber),
		DateOfBirth:  in.DateOfBirth,
		CreatedAt:    now,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO contour.clients (id, account_id, first_name, last_name, client_number, date_of_birth, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.AccountID, c.FirstName, c.LastName, c.ClientNumber, c.DateOfBirth, c.CreatedAt)
	if err != nil {
		return Client{}, err
	}
	return c, nil
}
