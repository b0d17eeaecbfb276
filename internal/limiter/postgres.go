package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config tunes the sliding window and lockout behaviour.
type Config struct {
	Window        time.Duration
	MaxFailures   int
	BlockDuration time.Duration
}

func DefaultConfig() Config {
	return Config{
		Window:        10 * time.Minute,
		MaxFailures:   5,
		BlockDuration: 15 * time.Minute,
	}
}

// PG persists attempt counters in the login_attempts table so limits
// survive restarts and apply across instances.
type PG struct {
	pool *pgxpool.Pool
	cfg  Config
	now  func() time.Time
}

func NewPG(pool *pgxpool.Pool, cfg Config) *PG {
	return &PG{pool: pool, cfg: cfg, now: time.Now}
}

var _ Limiter = (*PG)(nil)

func (l *PG) Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM login_attempts WHERE username = $1 AND ip_hash = $2`

	var blockedUntil *time.Time
	err := l.pool.QueryRow(ctx, q, username, ipHash).Scan(&blockedUntil)
	if err == pgx.ErrNoRows {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("limiter allow: %w", err)
	}
	if blockedUntil == nil {
		return true, 0, nil
	}
	now := l.now()
	if now.Before(*blockedUntil) {
		return false, blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

func (l *PG) Success(ctx context.Context, username string, ipHash []byte) error {
	const q = `DELETE FROM login_attempts WHERE username = $1 AND ip_hash = $2`
	if _, err := l.pool.Exec(ctx, q, username, ipHash); err != nil {
		return fmt.Errorf("limiter success: %w", err)
	}
	return nil
}

func (l *PG) Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	now := l.now()
	windowStart := now.Add(-l.cfg.Window)

	const q = `
		INSERT INTO login_attempts (username, ip_hash, failures, window_start, blocked_until)
		VALUES ($1, $2, 1, $3, NULL)
		ON CONFLICT (username, ip_hash) DO UPDATE SET
			failures = CASE
				WHEN login_attempts.window_start < $4 THEN 1
				ELSE login_attempts.failures + 1
			END,
			window_start = CASE
				WHEN login_attempts.window_start < $4 THEN $3
				ELSE login_attempts.window_start
			END
		RETURNING failures`

	var failures int
	err := l.pool.QueryRow(ctx, q, username, ipHash, now, windowStart).Scan(&failures)
	if err != nil {
		return false, 0, fmt.Errorf("limiter failure: %w", err)
	}

	if failures < l.cfg.MaxFailures {
		return false, 0, nil
	}

	blockedUntil := now.Add(l.cfg.BlockDuration)
	const block = `UPDATE login_attempts SET blocked_until = $3 WHERE username = $1 AND ip_hash = $2`
	if _, err := l.pool.Exec(ctx, block, username, ipHash, blockedUntil); err != nil {
		return false, 0, fmt.Errorf("limiter block: %w", err)
	}
	return true, l.cfg.BlockDuration, nil
}
