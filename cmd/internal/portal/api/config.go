package api

import (
	"os"
	"strconv"
	"strings"
)

// Config controls portal API behavior.
type Config struct {
	// MaxBodyBytes bounds portal request bodies. Session uploads carry four
	// base64 PNGs, so this is far larger than the auth bound.
	MaxBodyBytes int64
}

// LoadConfigFromEnv loads portal config from environment variables with safe
// defaults.
func LoadConfigFromEnv() Config {
	return Config{
		MaxBodyBytes: envInt64("CONTOUR_PORTAL_MAX_BODY_BYTES", 50<<20),
	}
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
