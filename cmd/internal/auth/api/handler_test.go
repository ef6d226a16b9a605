package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base32"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contour/cmd/identity"
	"contour/cmd/internal/auth/session"
	"contour/cmd/security/password"
	"contour/cmd/security/twofactor"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const testServerKey = "test-server-key"

type authFixture struct {
	mux *http.ServeMux
	ids *identity.InMemoryStore
	pw  password.Config
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	pw := password.Config{
		Params: password.Argon2idParams{
			MemoryKiB:   8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: password.Policy{MinLength: 10, MaxLength: 256},
	}

	sessCfg := session.Config{
		Issuer:            "contour-test",
		SigningKey:        "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTTL:        30 * 24 * time.Hour,
		ClockSkew:         30 * time.Second,
		RefreshTokenBytes: 32,
	}
	tokens, err := session.NewJWTManager(sessCfg)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	sessions := session.NewService(sessCfg, session.NewInMemoryStore(), tokens)

	ids := identity.NewInMemoryStore()

	h, err := NewHandler(nil, ids, sessions, pw, twofactor.Config{
		Issuer:    "contour-test",
		ServerKey: testServerKey,
		Period:    30,
		Skew:      1,
	}, Config{MaxBodyBytes: 1 << 20}, nil)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mux := http.NewServeMux()
	h.Register(mux, NewAuthenticator(nil, sessions, ids))

	return &authFixture{mux: mux, ids: ids, pw: pw}
}

func (f *authFixture) createUser(t *testing.T, email, pass string) identity.User {
	t.Helper()

	hash, err := f.pw.Hash(pass)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	res, err := f.ids.CreateUser(context.Background(), identity.CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		AccountName:  "Test Practice",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return res.User
}

func (f *authFixture) post(t *testing.T, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeTokens(t *testing.T, rec *httptest.ResponseRecorder) (auth, refresh string) {
	t.Helper()

	var resp struct {
		AuthToken    string `json:"authToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp.AuthToken, resp.RefreshToken
}

func TestLogin(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	f.createUser(t, "jane@example.com", "correct horse battery")

	rec := f.post(t, "/api/v1/auth/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "correct horse battery",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	auth, refresh := decodeTokens(t, rec)
	if auth == "" || refresh == "" {
		t.Fatal("expected both tokens")
	}

	for name, body := range map[string]map[string]string{
		"wrong password": {"email": "jane@example.com", "password": "not the password"},
		"unknown email":  {"email": "nobody@example.com", "password": "correct horse battery"},
	} {
		rec := f.post(t, "/api/v1/auth/login", "", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d", name, rec.Code)
		}
		var resp struct {
			Errors []string `json:"errors"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || len(resp.Errors) == 0 {
			t.Fatalf("%s: error body = %s", name, rec.Body.String())
		}
	}
}

func TestRefresh_LiveAccessTokenIsNoContent(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	f.createUser(t, "jane@example.com", "correct horse battery")

	rec := f.post(t, "/api/v1/auth/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "correct horse battery",
	})
	auth, refresh := decodeTokens(t, rec)

	// The access token is fresh, so there is nothing to rotate yet.
	rec = f.post(t, "/api/v1/auth/refresh", "", map[string]string{
		"authToken":    auth,
		"refreshToken": refresh,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRefresh_GarbageTokensRejected(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)

	rec := f.post(t, "/api/v1/auth/refresh", "", map[string]string{
		"authToken":    "not-a-jwt",
		"refreshToken": "not-a-refresh-token",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	f.createUser(t, "jane@example.com", "correct horse battery")

	rec := f.post(t, "/api/v1/auth/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "correct horse battery",
	})
	auth, _ := decodeTokens(t, rec)

	rec = f.post(t, "/api/v1/auth/logout", auth, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d (%s)", rec.Code, rec.Body.String())
	}

	// The same token no longer authenticates.
	rec = f.post(t, "/api/v1/auth/logout", auth, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("second logout status = %d", rec.Code)
	}
}

func TestTwoFactor_SetupVerifyAndLogin(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	user := f.createUser(t, "jane@example.com", "correct horse battery")

	login := func(code string) *httptest.ResponseRecorder {
		body := map[string]string{
			"email":    "jane@example.com",
			"password": "correct horse battery",
		}
		if code != "" {
			body["code"] = code
		}
		return f.post(t, "/api/v1/auth/login", "", body)
	}

	auth, _ := decodeTokens(t, login(""))

	rec := f.post(t, "/api/v1/auth/2fa/setup", auth, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("setup status = %d (%s)", rec.Code, rec.Body.String())
	}
	var setup struct {
		OtpauthURL string `json:"otpauthUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &setup); err != nil || setup.OtpauthURL == "" {
		t.Fatalf("setup body = %s", rec.Body.String())
	}

	// Read back the stored personal secret and derive a valid code the way
	// an authenticator app provisioned from the otpauth URL would.
	stored, err := f.ids.GetUserByID(context.Background(), user.ID)
	if err != nil || stored.TwoFactorSecret == nil {
		t.Fatalf("stored user: %+v, %v", stored, err)
	}
	code := totpCode(t, *stored.TwoFactorSecret)

	rec = f.post(t, "/api/v1/auth/2fa/verify", auth, map[string]string{"code": code})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("verify status = %d (%s)", rec.Code, rec.Body.String())
	}

	// With 2FA enabled, password alone no longer logs in.
	if rec := login(""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("password-only login status = %d", rec.Code)
	}
	if rec := login(totpCode(t, *stored.TwoFactorSecret)); rec.Code != http.StatusOK {
		t.Fatalf("login with code status = %d (%s)", rec.Code, rec.Body.String())
	}
}

func totpCode(t *testing.T, personalSecret string) string {
	t.Helper()

	sum := sha256.Sum256([]byte(personalSecret + testServerKey))
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:])
	code, err := totp.GenerateCodeCustom(secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom: %v", err)
	}
	return code
}
