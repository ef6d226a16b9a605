package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresStore implements Store using PostgreSQL (contour.capture_sessions
// and contour.body_image_sets).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const sessionColumns = "id, client_id, status, created_at, finished_at"

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.ClientID, &s.Status, &s.CreatedAt, &s.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, sessionID string) (Session, error) {
	return scanSession(s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM contour.capture_sessions
		WHERE id = $1
	`, sessionID))
}

func (s *PostgresStore) ListByClient(ctx context.Context, clientID string) ([]Session, error) {
	return s.list(ctx, `
		SELECT `+sessionColumns+`
		FROM contour.capture_sessions
		WHERE client_id = $1
		ORDER BY created_at DESC, id DESC
	`, clientID)
}

func (s *PostgresStore) ListInProgressByClient(ctx context.Context, clientID string) ([]Session, error) {
	return s.list(ctx, `
		SELECT `+sessionColumns+`
		FROM contour.capture_sessions
		WHERE client_id = $1 AND status = 'in_progress'
		ORDER BY created_at DESC, id DESC
	`, clientID)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.ClientID, &sess.Status, &sess.CreatedAt, &sess.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountImageSets(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM contour.body_image_sets
		WHERE session_id = $1
	`, sessionID).Scan(&n)
	return n, err
}

func (s *PostgresStore) CreateWithFirstImageSet(ctx context.Context, in CreateInput) (Session, error) {
	if in.ClientID == "" || !in.Images.Complete() {
		return Session{}, ErrInvalidInput
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback(ctx)

	sess := Session{
		ID:        ulid.Make().String(),
		ClientID:  in.ClientID,
		Status:    StatusInProgress,
		CreatedAt: now,
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO contour.capture_sessions (id, client_id, status, created_at)
		VALUES ($1, $2, $3, $4)
	`, sess.ID, sess.ClientID, sess.Status, sess.CreatedAt); err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	if err := insertImageSet(ctx, tx, sess.ID, in.Images, now); err != nil {
		return Session{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// AppendImageSet locks the session row, re-checks status and the set count,
// and only then inserts. Two concurrent appends to a two-set session
// serialize on the row lock and the loser sees three sets.
func (s *PostgresStore) AppendImageSet(ctx context.Context, in AppendInput) (Session, error) {
	if !in.Images.Complete() {
		return Session{}, ErrInvalidInput
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback(ctx)

	sess, err := scanSession(tx.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM contour.capture_sessions
		WHERE id = $1
		FOR UPDATE
	`, in.SessionID))
	if err != nil {
		return Session{}, err
	}
	if !sess.InProgress() {
		return Session{}, ErrSessionNotInProgress
	}

	var n int
	if err := tx.QueryRow(ctx, `
		SELECT count(*)
		FROM contour.body_image_sets
		WHERE session_id = $1
	`, sess.ID).Scan(&n); err != nil {
		return Session{}, err
	}
	if n >= MaxBodyImageSets {
		return Session{}, ErrSessionFull
	}

	if err := insertImageSet(ctx, tx, sess.ID, in.Images, now); err != nil {
		return Session{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func insertImageSet(ctx context.Context, tx pgx.Tx, sessionID string, images ImageSet, now time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO contour.body_image_sets
			(id, session_id, image_front, image_back, image_left, image_right, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ulid.Make().String(), sessionID, images.Front, images.Back, images.Left, images.Right, now)
	if err != nil {
		return fmt.Errorf("insert image set: %w", err)
	}
	return nil
}

func (s *PostgresStore) Finish(ctx context.Context, sessionID string, now time.Time) (Session, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	sess, err := scanSession(s.pool.QueryRow(ctx, `
		UPDATE contour.capture_sessions
		SET status = 'finished', finished_at = $2
		WHERE id = $1
		RETURNING `+sessionColumns+`
	`, sessionID, now))
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}
