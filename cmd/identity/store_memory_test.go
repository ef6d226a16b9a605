package identity

import (
	"context"
	"testing"
)

func TestInMemoryStore_CreateAndLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewInMemoryStore()

	res, err := st.CreateUser(ctx, CreateUserInput{
		Email:        "Pract@Example.com",
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		AccountName:  "Example Clinic",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if res.User.EmailNorm != "pract@example.com" {
		t.Fatalf("email_norm = %q", res.User.EmailNorm)
	}

	ua, err := st.GetUserAuthByEmail(ctx, "  PRACT@example.com ")
	if err != nil {
		t.Fatalf("GetUserAuthByEmail: %v", err)
	}
	if ua.User.ID != res.User.ID {
		t.Fatalf("lookup mismatch: %q vs %q", ua.User.ID, res.User.ID)
	}

	accountID, err := st.AccountIDForUser(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("AccountIDForUser: %v", err)
	}
	if accountID != res.Account.ID {
		t.Fatalf("account mismatch: %q vs %q", accountID, res.Account.ID)
	}
}

func TestInMemoryStore_DuplicateEmailConflicts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewInMemoryStore()

	in := CreateUserInput{Email: "dup@example.com", PasswordHash: "h"}
	if _, err := st.CreateUser(ctx, in); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := st.CreateUser(ctx, in)
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestInMemoryStore_AccountMissing(t *testing.T) {
	t.Parallel()

	st := NewInMemoryStore()

	_, err := st.AccountIDForUser(context.Background(), "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInMemoryStore_TwoFactorLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewInMemoryStore()

	res, err := st.CreateUser(ctx, CreateUserInput{Email: "tfa@example.com", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// Enabling before a secret is provisioned must fail.
	if err := st.EnableTwoFactor(ctx, res.User.ID); !IsNotFound(err) {
		t.Fatalf("expected not found before secret, got %v", err)
	}

	if err := st.SetTwoFactorSecret(ctx, res.User.ID, "personal-secret"); err != nil {
		t.Fatalf("SetTwoFactorSecret: %v", err)
	}
	if err := st.EnableTwoFactor(ctx, res.User.ID); err != nil {
		t.Fatalf("EnableTwoFactor: %v", err)
	}

	u, err := st.GetUserByID(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if !u.TwoFactorEnabled || u.TwoFactorSecret == nil {
		t.Fatalf("two-factor state not persisted: %+v", u)
	}
}
