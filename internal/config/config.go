// Package config loads server configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	DatabaseDSN string

	TokenSizeInBytes int
	TokenTTL         time.Duration
	TokenRollingTTL  time.Duration
	MaxTokensPerUser int

	LimiterWindow   time.Duration
	LimiterMaxFails int
	LimiterLockout  time.Duration

	KeepAliveInterval time.Duration
	EventBuffer       int

	BcryptCost int
}

// Default carries the server-level defaults. The token policy has no
// defaults: all four values must come from the environment.
func Default() Config {
	return Config{
		Addr:              ":8080",
		LimiterWindow:     10 * time.Minute,
		LimiterMaxFails:   5,
		LimiterLockout:    15 * time.Minute,
		KeepAliveInterval: 30 * time.Second,
		EventBuffer:       32,
		BcryptCost:        0, // bcrypt default
	}
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win. The DSN and the token policy are required.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if v := os.Getenv("CHATHUB_ADDR"); v != "" {
		cfg.Addr = v
	}
	cfg.DatabaseDSN = os.Getenv("CHATHUB_DATABASE_DSN")
	if cfg.DatabaseDSN == "" {
		return cfg, fmt.Errorf("CHATHUB_DATABASE_DSN is required")
	}

	var err error
	if cfg.TokenSizeInBytes, err = requiredIntEnv("CHATHUB_TOKEN_SIZE_BYTES"); err != nil {
		return cfg, err
	}
	if cfg.TokenTTL, err = requiredDurationEnv("CHATHUB_TOKEN_TTL"); err != nil {
		return cfg, err
	}
	if cfg.TokenRollingTTL, err = requiredDurationEnv("CHATHUB_TOKEN_ROLLING_TTL"); err != nil {
		return cfg, err
	}
	if cfg.MaxTokensPerUser, err = requiredIntEnv("CHATHUB_MAX_TOKENS_PER_USER"); err != nil {
		return cfg, err
	}
	if cfg.LimiterWindow, err = durationEnv("CHATHUB_LIMITER_WINDOW", cfg.LimiterWindow); err != nil {
		return cfg, err
	}
	if cfg.LimiterMaxFails, err = intEnv("CHATHUB_LIMITER_MAX_FAILS", cfg.LimiterMaxFails); err != nil {
		return cfg, err
	}
	if cfg.LimiterLockout, err = durationEnv("CHATHUB_LIMITER_LOCKOUT", cfg.LimiterLockout); err != nil {
		return cfg, err
	}
	if cfg.KeepAliveInterval, err = durationEnv("CHATHUB_KEEPALIVE_INTERVAL", cfg.KeepAliveInterval); err != nil {
		return cfg, err
	}
	if cfg.EventBuffer, err = intEnv("CHATHUB_EVENT_BUFFER", cfg.EventBuffer); err != nil {
		return cfg, err
	}
	if cfg.BcryptCost, err = intEnv("CHATHUB_BCRYPT_COST", cfg.BcryptCost); err != nil {
		return cfg, err
	}

	if cfg.TokenSizeInBytes < 16 {
		return cfg, fmt.Errorf("CHATHUB_TOKEN_SIZE_BYTES must be at least 16")
	}
	if cfg.MaxTokensPerUser < 1 {
		return cfg, fmt.Errorf("CHATHUB_MAX_TOKENS_PER_USER must be at least 1")
	}

	return cfg, nil
}

func requiredIntEnv(name string) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func requiredDurationEnv(name string) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

func intEnv(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
