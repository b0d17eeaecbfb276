package limiter

import (
	"context"
	"sync"
	"time"
)

type attemptState struct {
	failures     int
	windowStart  time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter for tests and single-node setups.
type Memory struct {
	mu    sync.Mutex
	cfg   Config
	now   func() time.Time
	state map[string]*attemptState
}

func NewMemory(cfg Config) *Memory {
	return &Memory{cfg: cfg, now: time.Now, state: make(map[string]*attemptState)}
}

var _ Limiter = (*Memory)(nil)

// SetClock overrides the time source, for tests.
func (l *Memory) SetClock(now func() time.Time) { l.now = now }

func key(username string, ipHash []byte) string {
	return username + "|" + string(ipHash)
}

func (l *Memory) Allow(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.state[key(username, ipHash)]
	if !ok {
		return true, 0, nil
	}
	now := l.now()
	if now.Before(st.blockedUntil) {
		return false, st.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

func (l *Memory) Success(_ context.Context, username string, ipHash []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.state, key(username, ipHash))
	return nil
}

func (l *Memory) Failure(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key(username, ipHash)
	now := l.now()
	st, ok := l.state[k]
	if !ok || now.Sub(st.windowStart) > l.cfg.Window {
		st = &attemptState{windowStart: now}
		l.state[k] = st
	}
	st.failures++
	if st.failures < l.cfg.MaxFailures {
		return false, 0, nil
	}
	st.blockedUntil = now.Add(l.cfg.BlockDuration)
	return true, l.cfg.BlockDuration, nil
}
