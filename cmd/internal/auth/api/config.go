package api

import (
	"os"
	"strconv"
	"strings"
)

// Config controls auth API behavior.
type Config struct {
	// MaxBodyBytes bounds auth request bodies. Auth payloads are tiny.
	MaxBodyBytes int64

	// TrustProxy enables X-Forwarded-For / X-Real-IP for audit records.
	TrustProxy bool
}

// LoadConfigFromEnv loads auth config from environment variables with safe
// defaults.
func LoadConfigFromEnv() Config {
	return Config{
		MaxBodyBytes: envInt64("CONTOUR_AUTH_MAX_BODY_BYTES", 1<<20),
		TrustProxy:   envBool("CONTOUR_AUTH_TRUST_PROXY", false),
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
