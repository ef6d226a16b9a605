package identity

import (
	"context"
	"time"
)

// User is a practitioner login identity.
type User struct {
	ID        string
	Email     string
	EmailNorm string

	// TwoFactorSecret is the per-user random secret used to derive the TOTP
	// key. Nil until two-factor setup has been started.
	TwoFactorSecret  *string
	TwoFactorEnabled bool

	CreatedAt time.Time
}

// Account is the practitioner business identity that owns clients.
type Account struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// UserAuth is the credential view used during login.
// PasswordHash is the Argon2id encoded hash; it never leaves this layer.
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a practitioner registration.
// PasswordHash must already be an Argon2id encoded hash.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	AccountName  string
	Now          time.Time
}

// CreateUserResult returns the created user and its account.
type CreateUserResult struct {
	User    User
	Account Account
}

// Store is the practitioner identity persistence boundary.
type Store interface {
	// CreateUser creates the user, its account, and the linking relation in
	// one transaction.
	CreateUser(ctx context.Context, in CreateUserInput) (CreateUserResult, error)

	// GetUserByID loads a user row; ErrNotFound when absent.
	GetUserByID(ctx context.Context, userID string) (User, error)

	// GetUserAuthByEmail loads the credential view for login by normalized
	// email; ErrNotFound when absent.
	GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error)

	// AccountIDForUser resolves the account linked to a user.
	// ErrNotFound when the user has no account relation.
	AccountIDForUser(ctx context.Context, userID string) (string, error)

	// SetTwoFactorSecret stores a freshly provisioned personal TOTP secret.
	// Setup is not complete until EnableTwoFactor is called.
	SetTwoFactorSecret(ctx context.Context, userID, secret string) error

	// EnableTwoFactor marks two-factor as required for future logins.
	EnableTwoFactor(ctx context.Context, userID string) error
}
