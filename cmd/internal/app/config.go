package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true, /readyz returns 503 unless the database is configured and
	// reachable.
	ReadinessRequireDB bool

	// If true, CONTOUR_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and
	// refresh-token hashing must be HMAC-based.
	RequireTokenHMAC bool

	// CORSAllowedOrigins is the exact-match origin allowlist. Empty disables
	// the CORS layer entirely.
	CORSAllowedOrigins []string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("CONTOUR_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("CONTOUR_LOG_LEVEL", "info"),
		LogFormat: EnvString("CONTOUR_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("CONTOUR_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("CONTOUR_HTTP_READ_TIMEOUT", 60*time.Second),
		WriteTimeout:      EnvDuration("CONTOUR_HTTP_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       EnvDuration("CONTOUR_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("CONTOUR_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("CONTOUR_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("CONTOUR_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("CONTOUR_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("CONTOUR_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("CONTOUR_REQUIRE_TOKEN_HMAC", false),

		CORSAllowedOrigins: EnvStringSlice("CONTOUR_CORS_ALLOWED_ORIGINS"),
	}
}
