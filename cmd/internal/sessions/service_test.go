package sessions

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ownerMap is an OwnershipChecker fake: accountID -> owned client ids.
type ownerMap map[string][]string

func (m ownerMap) OwnsClient(_ context.Context, accountID, clientID string) (bool, error) {
	for _, id := range m[accountID] {
		if id == clientID {
			return true, nil
		}
	}
	return false, nil
}

func newTestService(t *testing.T, owners ownerMap) (*Service, *InMemoryStore) {
	t.Helper()

	st := NewInMemoryStore()
	svc, err := NewService(st, owners)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, st
}

func TestCreateSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newTestService(t, ownerMap{"acct-a": {"c1"}})

	sess, d, err := svc.CreateSession(ctx, "acct-a", CreateInput{ClientID: "c1", Images: testImages})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("denied: %+v", d)
	}
	if sess.Status != StatusInProgress || sess.ClientID != "c1" {
		t.Fatalf("session = %+v", sess)
	}

	n, err := st.CountImageSets(ctx, sess.ID)
	if err != nil || n != 1 {
		t.Fatalf("CountImageSets = %d, %v; want 1", n, err)
	}

	// A second create while the first session is still open is refused.
	_, d, err = svc.CreateSession(ctx, "acct-a", CreateInput{ClientID: "c1", Images: testImages})
	if err != nil {
		t.Fatalf("second CreateSession: %v", err)
	}
	if d.Allowed || d.Reason != ReasonOpenSessionExists {
		t.Fatalf("second create: %+v", d)
	}
}

func TestCreateSession_ForeignClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t, ownerMap{"acct-a": {"c1"}})

	_, d, err := svc.CreateSession(ctx, "acct-b", CreateInput{ClientID: "c1", Images: testImages})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if d.Allowed || d.Reason != ReasonForbidden {
		t.Fatalf("decision = %+v, want forbidden", d)
	}
}

func TestCreateSession_IncompleteImages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t, ownerMap{"acct-a": {"c1"}})

	images := testImages
	images.Left = nil
	_, _, err := svc.CreateSession(ctx, "acct-a", CreateInput{ClientID: "c1", Images: images})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestAppendImageSet_FillsThenRefuses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newTestService(t, ownerMap{"acct-a": {"c1"}})

	sess, _, err := svc.CreateSession(ctx, "acct-a", CreateInput{ClientID: "c1", Images: testImages})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	for i := 2; i <= MaxBodyImageSets; i++ {
		_, d, err := svc.AppendImageSet(ctx, "acct-a", AppendInput{SessionID: sess.ID, Images: testImages})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("append %d denied: %+v", i, d)
		}
	}

	_, d, err := svc.AppendImageSet(ctx, "acct-a", AppendInput{SessionID: sess.ID, Images: testImages})
	if err != nil {
		t.Fatalf("overflow append: %v", err)
	}
	if d.Allowed || d.Reason != ReasonSessionFull {
		t.Fatalf("overflow append: %+v", d)
	}
	if d.Message != "Adding 4th body image set to session is not allowed." {
		t.Fatalf("message = %q", d.Message)
	}

	n, _ := st.CountImageSets(ctx, sess.ID)
	if n != MaxBodyImageSets {
		t.Fatalf("set count = %d, want %d", n, MaxBodyImageSets)
	}
}

func TestAppendImageSet_Denials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	svc, st := newTestService(t, ownerMap{"acct-a": {"c1"}})
	seedSession(st, "open-old", "c1", StatusInProgress, base, 1)
	seedSession(st, "done-new", "c1", StatusFinished, base.Add(time.Hour), 3)

	tests := []struct {
		name       string
		accountID  string
		sessionID  string
		wantReason Reason
	}{
		{"unknown session", "acct-a", "missing", ReasonSessionNotFound},
		{"foreign account", "acct-b", "open-old", ReasonForbidden},
		{"finished session", "acct-a", "done-new", ReasonSessionFinished},
		{"open but not latest", "acct-a", "open-old", ReasonInProgressNotLatest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, d, err := svc.AppendImageSet(ctx, tc.accountID, AppendInput{SessionID: tc.sessionID, Images: testImages})
			if err != nil {
				t.Fatalf("AppendImageSet: %v", err)
			}
			if d.Allowed || d.Reason != tc.wantReason {
				t.Fatalf("decision = %+v, want reason %q", d, tc.wantReason)
			}
		})
	}
}

func TestAppendImageSet_StoreRecheck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewInMemoryStore()
	seedSession(st, "s1", "c1", StatusInProgress, time.Now().UTC(), MaxBodyImageSets)

	// The store's own guard holds even when the engine is bypassed, which is
	// what a lost race between decision and write looks like.
	_, err := st.AppendImageSet(ctx, AppendInput{SessionID: "s1", Images: testImages})
	if !errors.Is(err, ErrSessionFull) {
		t.Fatalf("err = %v, want ErrSessionFull", err)
	}

	if _, err := st.Finish(ctx, "s1", time.Now().UTC()); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	_, err = st.AppendImageSet(ctx, AppendInput{SessionID: "s1", Images: testImages})
	if !errors.Is(err, ErrSessionNotInProgress) {
		t.Fatalf("err = %v, want ErrSessionNotInProgress", err)
	}
}

func TestLatestAddableSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newTestService(t, ownerMap{"acct-a": {"c1"}})
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	seedSession(st, "s1", "c1", StatusFinished, base, 3)
	want := seedSession(st, "s2", "c1", StatusInProgress, base.Add(time.Hour), 2)

	d, err := svc.LatestAddableSession(ctx, "acct-a", "c1")
	if err != nil {
		t.Fatalf("LatestAddableSession: %v", err)
	}
	if !d.Allowed || d.Session == nil || d.Session.ID != want.ID {
		t.Fatalf("decision = %+v, want session %s", d, want.ID)
	}

	d, err = svc.LatestAddableSession(ctx, "acct-b", "c1")
	if err != nil {
		t.Fatalf("foreign LatestAddableSession: %v", err)
	}
	if d.Allowed || d.Reason != ReasonForbidden {
		t.Fatalf("foreign decision = %+v", d)
	}
}
