package identity

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a dev/test fallback when Postgres is not configured.
type InMemoryStore struct {
	mu       sync.Mutex
	users    map[string]*memUser // id -> user
	byEmail  map[string]string   // email_norm -> id
	accounts map[string]Account  // id -> account
	relation map[string]string   // user id -> account id
}

type memUser struct {
	user         User
	passwordHash string
}

// NewInMemoryStore constructs an empty in-memory identity store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:    make(map[string]*memUser),
		byEmail:  make(map[string]string),
		accounts: make(map[string]Account),
		relation: make(map[string]string),
	}
}

// CreateUser creates the user, account, and relation atomically.
func (s *InMemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (CreateUserResult, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return CreateUserResult{}, err
	}
	emailNorm := NormalizeEmail(in.Email)
	if emailNorm == "" || in.PasswordHash == "" {
		return CreateUserResult{}, OpError{Op: op, Kind: ErrInvalidInput}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[emailNorm]; exists {
		return CreateUserResult{}, ConflictError{Op: op, Field: "email"}
	}

	userID, err := NewULID(now)
	if err != nil {
		return CreateUserResult{}, err
	}
	accountID, err := NewULID(now)
	if err != nil {
		return CreateUserResult{}, err
	}

	name := in.AccountName
	if name == "" {
		name = emailNorm
	}

	u := User{ID: userID, Email: in.Email, EmailNorm: emailNorm, CreatedAt: now}
	a := Account{ID: accountID, Name: name, CreatedAt: now}

	s.users[userID] = &memUser{user: u, passwordHash: in.PasswordHash}
	s.byEmail[emailNorm] = userID
	s.accounts[accountID] = a
	s.relation[userID] = accountID

	return CreateUserResult{User: u, Account: a}, nil
}

// GetUserByID loads a user by id.
func (s *InMemoryStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.users[userID]
	if !ok {
		return User{}, OpError{Op: "identity.GetUserByID", Kind: ErrNotFound}
	}
	return mu.user, nil
}

// GetUserAuthByEmail loads the credential view for login.
func (s *InMemoryStore) GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error) {
	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return UserAuth{}, OpError{Op: "identity.GetUserAuthByEmail", Kind: ErrNotFound}
	}
	mu := s.users[id]
	return UserAuth{User: mu.user, PasswordHash: mu.passwordHash}, nil
}

// AccountIDForUser resolves the linked account.
func (s *InMemoryStore) AccountIDForUser(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accountID, ok := s.relation[userID]
	if !ok {
		return "", OpError{Op: "identity.AccountIDForUser", Kind: ErrNotFound}
	}
	return accountID, nil
}

// SetTwoFactorSecret stores a provisioned personal TOTP secret.
func (s *InMemoryStore) SetTwoFactorSecret(ctx context.Context, userID, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.users[userID]
	if !ok {
		return OpError{Op: "identity.SetTwoFactorSecret", Kind: ErrNotFound}
	}
	mu.user.TwoFactorSecret = &secret
	return nil
}

// EnableTwoFactor marks two-factor as required for future logins.
func (s *InMemoryStore) EnableTwoFactor(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.users[userID]
	if !ok || mu.user.TwoFactorSecret == nil {
		return OpError{Op: "identity.EnableTwoFactor", Kind: ErrNotFound, Msg: "user missing or secret not provisioned"}
	}
	mu.user.TwoFactorEnabled = true
	return nil
}
