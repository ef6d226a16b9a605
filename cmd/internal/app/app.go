// Package app wires the Contour server runtime: config, logging, persistence,
// and the auth and portal HTTP surfaces.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"contour/cmd/identity"
	authapi "contour/cmd/internal/auth/api"
	"contour/cmd/internal/auth/session"
	"contour/cmd/internal/clients"
	portalapi "contour/cmd/internal/portal/api"
	"contour/cmd/internal/sessions"
	"contour/cmd/security/password"
	"contour/cmd/security/twofactor"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the Contour server runtime.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	auth   *authapi.Handler
	portal *portalapi.Handler
	authn  *authapi.Authenticator
}

// stores groups the persistence implementations picked at startup: Postgres
// when CONTOUR_DATABASE_URL is set, in-memory otherwise.
type stores struct {
	ids      identity.Store
	tokens   session.Store
	clients  clients.Store
	captures sessions.Store
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	pool, st, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}
	dbEnabled := pool != nil

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tokens, err := session.NewJWTManager(sessCfg)
	if err != nil {
		return nil, err
	}
	tokenSessions := session.NewService(sessCfg, st.tokens, tokens)

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	twofaCfg, err := twofactor.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	clientSvc, err := clients.NewService(st.clients)
	if err != nil {
		return nil, err
	}
	sessionSvc, err := sessions.NewService(st.captures, clientSvc)
	if err != nil {
		return nil, err
	}

	authHandler, err := authapi.NewHandler(log, st.ids, tokenSessions, pwCfg, twofaCfg, authapi.LoadConfigFromEnv(), pool)
	if err != nil {
		return nil, err
	}
	portalHandler, err := portalapi.NewHandler(log, portalapi.LoadConfigFromEnv(), clientSvc, sessionSvc)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    pool,
		dbEnabled: dbEnabled,
		auth:      authHandler,
		portal:    portalHandler,
		authn:     authapi.NewAuthenticator(log, tokenSessions, st.ids),
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.auth, a.portal, a.authn)

	var handler http.Handler = WithSecurityHeaders(mux)
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithMetrics(handler)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.ReadTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

// newStores decides between Postgres-backed persistence and in-memory dev
// stores.
func newStores(ctx context.Context, cfg Config, log Logger) (*pgxpool.Pool, stores, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nil, stores{
			ids:      identity.NewInMemoryStore(),
			tokens:   session.NewInMemoryStore(),
			clients:  clients.NewInMemoryStore(),
			captures: sessions.NewInMemoryStore(),
		}, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, stores{}, err
	}

	idStore, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, stores{}, err
	}

	log.Info("db.enabled.postgres_store")
	return pool, stores{
		ids:      idStore,
		tokens:   session.NewPostgresStore(pool),
		clients:  clients.NewPostgresStore(pool),
		captures: sessions.NewPostgresStore(pool),
	}, nil
}
