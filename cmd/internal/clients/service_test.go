package clients

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedClient(t *testing.T, st *InMemoryStore, accountID, first, last string) Client {
	t.Helper()

	c, err := st.Create(context.Background(), CreateInput{
		AccountID: accountID,
		FirstName: first,
		LastName:  last,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return c
}

func TestOwnsClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewInMemoryStore()
	svc, err := NewService(st)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	mine := seedClient(t, st, "acct-a", "Jane", "Doe")

	tests := []struct {
		name      string
		accountID string
		clientID  string
		want      bool
	}{
		{"owner", "acct-a", mine.ID, true},
		{"other account", "acct-b", mine.ID, false},
		{"unknown client", "acct-a", "01HZZZZZZZZZZZZZZZZZZZZZZZ", false},
		{"empty account", "", mine.ID, false},
		{"empty client", "acct-a", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.OwnsClient(ctx, tc.accountID, tc.clientID)
			if err != nil {
				t.Fatalf("OwnsClient: %v", err)
			}
			if got != tc.want {
				t.Fatalf("OwnsClient = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGet_HidesForeignClients(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewInMemoryStore()
	svc, _ := NewService(st)

	mine := seedClient(t, st, "acct-a", "Jane", "Doe")

	if _, err := svc.Get(ctx, "acct-a", mine.ID); err != nil {
		t.Fatalf("Get own client: %v", err)
	}
	if _, err := svc.Get(ctx, "acct-b", mine.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign client, got %v", err)
	}
}

func TestList_FilterAndPaging(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewInMemoryStore()
	svc, _ := NewService(st)

	// Distinct creation times so ordering is deterministic.
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"Ada", "Grace", "Alan", "Edsger", "Annie"} {
		if _, err := st.Create(ctx, CreateInput{
			AccountID: "acct-a",
			FirstName: name,
			LastName:  "Smith",
			Now:       base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	seedClient(t, st, "acct-b", "Zoe", "Jones")

	got, total, err := svc.List(ctx, "acct-a", ListFilter{}, NormalizePage(1, 2))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(got) != 2 || got[0].FirstName != "Annie" || got[1].FirstName != "Edsger" {
		t.Fatalf("page 1 = %+v", got)
	}

	got, _, err = svc.List(ctx, "acct-a", ListFilter{}, NormalizePage(3, 2))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].FirstName != "Ada" {
		t.Fatalf("page 3 = %+v", got)
	}

	got, total, err = svc.List(ctx, "acct-a", ListFilter{Term: "a"}, NormalizePage(1, 10))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	// Ada, Grace, Alan, Annie match "a" in first name.
	if total != 4 {
		t.Fatalf("filtered total = %d (%+v)", total, got)
	}
}

func TestNormalizePage_Clamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		number, size int
		want         Page
	}{
		{0, 0, Page{1, 5}},
		{-3, -1, Page{1, 5}},
		{2, 10, Page{2, 10}},
		{1, 500, Page{1, 100}},
	}
	for _, tc := range tests {
		if got := NormalizePage(tc.number, tc.size); got != tc.want {
			t.Fatalf("NormalizePage(%d,%d) = %+v, want %+v", tc.number, tc.size, got, tc.want)
		}
	}
}
