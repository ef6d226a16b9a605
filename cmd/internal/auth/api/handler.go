package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"contour/cmd/identity"
	"contour/cmd/internal/auth/session"
	"contour/cmd/security/password"
	"contour/cmd/security/twofactor"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler wires HTTP auth endpoints to identity/session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	ids      identity.Store
	sessions *session.Service
	pw       password.Config
	twofa    twofactor.Config

	auditor auditor

	// dummyHash keeps login timing flat when the email is unknown.
	dummyHash string
}

// NewHandler constructs the auth handler. pool may be nil in memory-store
// mode; only audit records depend on it.
func NewHandler(log *slog.Logger, ids identity.Store, sessions *session.Service, pw password.Config, twofa twofactor.Config, cfg Config, pool *pgxpool.Pool) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if ids == nil {
		return nil, errors.New("auth: nil identity store")
	}
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		ids:      ids,
		sessions: sessions,
		pw:       pw,
		twofa:    twofa,
		auditor:  auditor{pool: pool},
	}

	if hash, err := pw.Hash("dummy-password-for-timing-only"); err == nil {
		h.dummyHash = hash
	}

	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux, auth *Authenticator) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/v1/auth/login", h.handleLogin)
	mux.HandleFunc("/api/v1/auth/refresh", h.handleRefresh)
	mux.HandleFunc("/api/v1/auth/logout", auth.Require(h.handleLogout))
	mux.HandleFunc("/api/v1/auth/2fa/setup", auth.Require(h.handleTwoFactorSetup))
	mux.HandleFunc("/api/v1/auth/2fa/verify", auth.Require(h.handleTwoFactorVerify))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeErrors(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || strings.TrimSpace(req.Password) == "" {
		writeErrors(w, http.StatusBadRequest, "Email and password are required.")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	userAuth, err := h.ids.GetUserAuthByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) {
			// Timing resistance: run a verify against the dummy hash anyway.
			if h.dummyHash != "" {
				_, _ = h.pw.Verify(h.dummyHash, req.Password)
			}
			h.audit(ctx, r, "auth.login.failed", nil, map[string]any{"reason": "not_found"})
			writeErrors(w, http.StatusUnauthorized, "Invalid credentials.")
			return
		}
		h.log.Error("auth.login.lookup.fail", "err", err)
		writeErrors(w, http.StatusInternalServerError, "Internal error.")
		return
	}

	ok, err := h.pw.Verify(userAuth.PasswordHash, req.Password)
	if err != nil || !ok {
		h.audit(ctx, r, "auth.login.failed", &userAuth.User.ID, map[string]any{"reason": "bad_password"})
		writeErrors(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	if userAuth.User.TwoFactorEnabled {
		secret := ""
		if userAuth.User.TwoFactorSecret != nil {
			secret = *userAuth.User.TwoFactorSecret
		}
		if !h.twofa.ValidateCode(secret, req.Code) {
			h.audit(ctx, r, "auth.login.failed", &userAuth.User.ID, map[string]any{"reason": "bad_totp"})
			writeErrors(w, http.StatusUnauthorized, "Invalid credentials.")
			return
		}
	}

	issued, err := h.sessions.IssueSession(ctx, now, userAuth.User.ID)
	if err != nil {
		h.log.Error("auth.login.issue_session.fail", "err", err)
		writeErrors(w, http.StatusInternalServerError, "Internal error.")
		return
	}

	h.audit(ctx, r, "auth.login.success", &userAuth.User.ID, nil)
	writeJSON(w, http.StatusOK, tokenPairResponse{
		AuthToken:    issued.AccessToken,
		RefreshToken: issued.RefreshToken,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeErrors(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if strings.TrimSpace(req.AuthToken) == "" || strings.TrimSpace(req.RefreshToken) == "" {
		writeErrors(w, http.StatusBadRequest, "authToken and refreshToken are required.")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	issued, err := h.sessions.RotateRefresh(ctx, now, req.AuthToken, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrAccessNotExpired):
			// The presented access token is still valid; nothing to rotate.
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, session.ErrRefreshReuseDetected):
			h.audit(ctx, r, "auth.refresh.reuse_detected", nil, nil)
			writeErrors(w, http.StatusUnauthorized, "Refresh token reuse detected.")
		case errors.Is(err, session.ErrSessionNotFound),
			errors.Is(err, session.ErrSessionExpired),
			errors.Is(err, session.ErrSessionRevoked),
			errors.Is(err, session.ErrInvalidToken):
			writeErrors(w, http.StatusUnauthorized, "Session is not active.")
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			writeErrors(w, http.StatusInternalServerError, "Internal error.")
		}
		return
	}

	h.audit(ctx, r, "auth.refresh.success", nil, map[string]any{"session_id": issued.SessionID})
	writeJSON(w, http.StatusOK, tokenPairResponse{
		AuthToken:    issued.AccessToken,
		RefreshToken: issued.RefreshToken,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request, p Principal) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if err := h.sessions.RevokeSession(ctx, time.Now().UTC(), p.SessionID); err != nil {
		h.log.Error("auth.logout.fail", "err", err)
		writeErrors(w, http.StatusInternalServerError, "Internal error.")
		return
	}

	h.audit(ctx, r, "auth.logout", &p.UserID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTwoFactorSetup(w http.ResponseWriter, r *http.Request, p Principal) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	user, err := h.ids.GetUserByID(ctx, p.UserID)
	if err != nil {
		h.log.Error("auth.2fa.setup.lookup.fail", "err", err)
		writeErrors(w, http.StatusInternalServerError, "Internal error.")
		return
	}
	if user.TwoFactorEnabled {
		writeErrors(w, http.StatusConflict, "Two-factor authentication is already enabled.")
		return
	}

	secret, err := twofactor.NewPersonalSecret()
	if err != nil {
		h.log.Error("auth.2fa.setup.secret.fail", "err", err)
		writeErrors(w, http.StatusInternalServerError, "Internal error.")
		return
	}
	if err := h.ids.SetTwoFactorSecret(ctx, p.UserID, secret); err != nil {
		h.log.Error("auth.2fa.setup.store.fail", "err", err)
		writeErrors(w, http.StatusInternalServerError, "Internal error.")
		return
	}

	key, err := h.twofa.SetupKey(user.Email, secret)
	if err != nil {
		h.log.Error("auth.2fa.setup.key.fail", "err", err)
		writeErrors(w, http.StatusInternalServerError, "Internal error.")
		return
	}

	h.audit(ctx, r, "auth.2fa.setup", &p.UserID, nil)
	writeJSON(w, http.StatusOK, twoFactorSetupResponse{OtpauthURL: key.URL()})
}

func (h *Handler) handleTwoFactorVerify(w http.ResponseWriter, r *http.Request, p Principal) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req twoFactorVerifyRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeErrors(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	ctx := r.Context()
	user, err := h.ids.GetUserByID(ctx, p.UserID)
	if err != nil {
		h.log.Error("auth.2fa.verify.lookup.fail", "err", err)
		writeErrors(w, http.StatusInternalServerError, "Internal error.")
		return
	}
	if user.TwoFactorSecret == nil {
		writeErrors(w, http.StatusBadRequest, "Two-factor setup has not been started.")
		return
	}

	if !h.twofa.ValidateCode(*user.TwoFactorSecret, req.Code) {
		writeErrors(w, http.StatusUnauthorized, "Invalid two-factor code.")
		return
	}

	if !user.TwoFactorEnabled {
		if err := h.ids.EnableTwoFactor(ctx, p.UserID); err != nil {
			h.log.Error("auth.2fa.verify.enable.fail", "err", err)
			writeErrors(w, http.StatusInternalServerError, "Internal error.")
			return
		}
	}

	h.audit(ctx, r, "auth.2fa.enabled", &p.UserID, nil)
	w.WriteHeader(http.StatusNoContent)
}
