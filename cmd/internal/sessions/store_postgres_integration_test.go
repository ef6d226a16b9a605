package sessions

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// Integration tests are enabled when CONTOUR_DATABASE_URL is set and the
// contour schema from db/migrations has been applied.

func TestPostgresSessions_CreateAppendCeiling(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := mustIntegrationPool(ctx, t)
	defer pool.Close()

	store := NewPostgresStore(pool)
	clientID := mustCreateTestClient(ctx, t, pool)

	now := time.Now().UTC()
	sess, err := store.CreateWithFirstImageSet(ctx, CreateInput{ClientID: clientID, Images: testImages, Now: now})
	if err != nil {
		t.Fatalf("CreateWithFirstImageSet: %v", err)
	}
	if sess.ID == "" || sess.Status != StatusInProgress {
		t.Fatalf("unexpected session: %+v", sess)
	}

	got, err := store.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ClientID != clientID || !got.InProgress() {
		t.Fatalf("unexpected session row: %+v", got)
	}

	for i := 0; i < 2; i++ {
		if _, err := store.AppendImageSet(ctx, AppendInput{SessionID: sess.ID, Images: testImages, Now: now.Add(time.Duration(i+1) * time.Second)}); err != nil {
			t.Fatalf("AppendImageSet #%d: %v", i+2, err)
		}
	}

	n, err := store.CountImageSets(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CountImageSets: %v", err)
	}
	if n != MaxBodyImageSets {
		t.Fatalf("expected %d image sets, got %d", MaxBodyImageSets, n)
	}

	_, err = store.AppendImageSet(ctx, AppendInput{SessionID: sess.ID, Images: testImages, Now: now.Add(5 * time.Second)})
	if !errors.Is(err, ErrSessionFull) {
		t.Fatalf("expected ErrSessionFull, got %v", err)
	}

	open, err := store.ListInProgressByClient(ctx, clientID)
	if err != nil {
		t.Fatalf("ListInProgressByClient: %v", err)
	}
	if len(open) != 1 || open[0].ID != sess.ID {
		t.Fatalf("expected one open session %q, got %+v", sess.ID, open)
	}
}

func TestPostgresSessions_FinishBlocksAppend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := mustIntegrationPool(ctx, t)
	defer pool.Close()

	store := NewPostgresStore(pool)
	clientID := mustCreateTestClient(ctx, t, pool)

	now := time.Now().UTC()
	sess, err := store.CreateWithFirstImageSet(ctx, CreateInput{ClientID: clientID, Images: testImages, Now: now})
	if err != nil {
		t.Fatalf("CreateWithFirstImageSet: %v", err)
	}

	finished, err := store.Finish(ctx, sess.ID, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if finished.Status != StatusFinished {
		t.Fatalf("expected finished status, got %q", finished.Status)
	}
	if finished.FinishedAt == nil {
		t.Fatalf("expected finished_at to be set")
	}

	_, err = store.AppendImageSet(ctx, AppendInput{SessionID: sess.ID, Images: testImages, Now: now.Add(2 * time.Minute)})
	if !errors.Is(err, ErrSessionNotInProgress) {
		t.Fatalf("expected ErrSessionNotInProgress, got %v", err)
	}

	open, err := store.ListInProgressByClient(ctx, clientID)
	if err != nil {
		t.Fatalf("ListInProgressByClient: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open sessions, got %+v", open)
	}
}

func TestPostgresSessions_ConcurrentAppendsSerialize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := mustIntegrationPool(ctx, t)
	defer pool.Close()

	store := NewPostgresStore(pool)
	clientID := mustCreateTestClient(ctx, t, pool)

	sess, err := store.CreateWithFirstImageSet(ctx, CreateInput{ClientID: clientID, Images: testImages, Now: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateWithFirstImageSet: %v", err)
	}

	const attempts = 6
	var wg sync.WaitGroup
	wg.Add(attempts)
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, err := store.AppendImageSet(ctx, AppendInput{SessionID: sess.ID, Images: testImages, Now: time.Now().UTC()})
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if errors.Is(err, ErrSessionFull) {
			continue
		}
		t.Fatalf("unexpected append error: %v", err)
	}
	if success != MaxBodyImageSets-1 {
		t.Fatalf("expected %d successful appends, got %d", MaxBodyImageSets-1, success)
	}

	n, err := store.CountImageSets(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CountImageSets: %v", err)
	}
	if n != MaxBodyImageSets {
		t.Fatalf("expected %d image sets after races, got %d", MaxBodyImageSets, n)
	}
}

func TestPostgresSessions_ImageBytesRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := mustIntegrationPool(ctx, t)
	defer pool.Close()

	store := NewPostgresStore(pool)
	clientID := mustCreateTestClient(ctx, t, pool)

	sess, err := store.CreateWithFirstImageSet(ctx, CreateInput{ClientID: clientID, Images: testImages, Now: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateWithFirstImageSet: %v", err)
	}

	var front, back, left, right []byte
	err = pool.QueryRow(ctx, `
		SELECT image_front, image_back, image_left, image_right
		FROM contour.body_image_sets
		WHERE session_id = $1
	`, sess.ID).Scan(&front, &back, &left, &right)
	if err != nil {
		t.Fatalf("select image set: %v", err)
	}
	if !bytes.Equal(front, testImages.Front) || !bytes.Equal(back, testImages.Back) ||
		!bytes.Equal(left, testImages.Left) || !bytes.Equal(right, testImages.Right) {
		t.Fatalf("stored image bytes do not match input")
	}
}

// ---- helpers ----

func mustIntegrationPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := strings.TrimSpace(os.Getenv("CONTOUR_DATABASE_URL"))
	if dbURL == "" {
		t.Skip("CONTOUR_DATABASE_URL is not set; skipping Postgres integration test")
	}

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		t.Fatalf("parse CONTOUR_DATABASE_URL: %v", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	defer pingCancel()

	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	return pool
}

// mustCreateTestClient inserts an account and client fixture. Cleanup deletes
// the account; sessions and image sets go with it through ON DELETE CASCADE.
func mustCreateTestClient(ctx context.Context, t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	accountID := newIntegrationULID(t)
	clientID := newIntegrationULID(t)
	now := time.Now().UTC()

	if _, err := pool.Exec(ctx, `
		INSERT INTO contour.accounts (id, name, created_at)
		VALUES ($1, $2, $3)
	`, accountID, "it-practice-"+strings.ToLower(accountID), now); err != nil {
		t.Fatalf("insert account: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO contour.clients (id, account_id, first_name, last_name, client_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, clientID, accountID, "Test", "Client", "IT-"+clientID[:8], now); err != nil {
		t.Fatalf("insert client: %v", err)
	}

	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = pool.Exec(cleanupCtx, `DELETE FROM contour.accounts WHERE id = $1`, accountID)
	})

	return clientID
}

func newIntegrationULID(t *testing.T) string {
	t.Helper()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), ulid.Monotonic(rand.Reader, 0)).String()
}
