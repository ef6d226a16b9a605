package password

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"os"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password length validation.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns a baseline suitable for interactive practitioner logins.
// Parallelism is CPU-aware but clamped to [1..4] so resource usage stays
// predictable in containers.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024, // 64 MiB
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 10,
			MaxLength: 256,
		},
	}
}

// FromEnv loads config from environment variables, falling back to defaults.
//
// Env surface:
//   - CONTOUR_PASSWORD_MIN_LEN
//   - CONTOUR_PASSWORD_MAX_LEN
//   - CONTOUR_ARGON2_MEMORY_KIB
//   - CONTOUR_ARGON2_ITERATIONS
//   - CONTOUR_ARGON2_PARALLELISM
//   - CONTOUR_ARGON2_SALT_LEN
//   - CONTOUR_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("CONTOUR_PASSWORD_MIN_LEN"); ok {
		n, err := parseBounded(v, 1, 1024)
		if err != nil {
			return Config{}, fmt.Errorf("CONTOUR_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = int(n)
	}
	if v, ok := os.LookupEnv("CONTOUR_PASSWORD_MAX_LEN"); ok {
		n, err := parseBounded(v, 1, 4096)
		if err != nil {
			return Config{}, fmt.Errorf("CONTOUR_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = int(n)
	}
	if v, ok := os.LookupEnv("CONTOUR_ARGON2_MEMORY_KIB"); ok {
		n, err := parseBounded(v, 8*1024, 1024*1024) // 8 MiB .. 1 GiB
		if err != nil {
			return Config{}, fmt.Errorf("CONTOUR_ARGON2_MEMORY_KIB: %w", err)
		}
		cfg.Params.MemoryKiB = uint32(n)
	}
	if v, ok := os.LookupEnv("CONTOUR_ARGON2_ITERATIONS"); ok {
		n, err := parseBounded(v, 1, 20)
		if err != nil {
			return Config{}, fmt.Errorf("CONTOUR_ARGON2_ITERATIONS: %w", err)
		}
		cfg.Params.Iterations = uint32(n)
	}
	if v, ok := os.LookupEnv("CONTOUR_ARGON2_PARALLELISM"); ok {
		n, err := parseBounded(v, 1, 64)
		if err != nil {
			return Config{}, fmt.Errorf("CONTOUR_ARGON2_PARALLELISM: %w", err)
		}
		cfg.Params.Parallelism = uint8(n) // #nosec G115 -- bounded to [1..64] above.
	}
	if v, ok := os.LookupEnv("CONTOUR_ARGON2_SALT_LEN"); ok {
		n, err := parseBounded(v, 8, 64)
		if err != nil {
			return Config{}, fmt.Errorf("CONTOUR_ARGON2_SALT_LEN: %w", err)
		}
		cfg.Params.SaltLength = uint32(n)
	}
	if v, ok := os.LookupEnv("CONTOUR_ARGON2_KEY_LEN"); ok {
		n, err := parseBounded(v, 16, 64)
		if err != nil {
			return Config{}, fmt.Errorf("CONTOUR_ARGON2_KEY_LEN: %w", err)
		}
		cfg.Params.KeyLength = uint32(n)
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength, cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func parseBounded(s string, minVal, maxVal uint64) (uint64, error) {
	u, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return u, nil
}
