package limiter

import (
	"context"
	"testing"
	"time"
)

func memConfig() Config {
	return Config{Window: 10 * time.Minute, MaxFailures: 3, BlockDuration: 15 * time.Minute}
}

func TestMemory_BlocksAfterMaxFailures(t *testing.T) {
	t.Parallel()
	l := NewMemory(memConfig())
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })

	ctx := context.Background()
	ip := HashIP("1.2.3.4")

	ok, _, err := l.Allow(ctx, "alice", ip)
	if err != nil || !ok {
		t.Fatalf("Allow fresh = (%v, %v)", ok, err)
	}

	for i := 0; i < 2; i++ {
		if blocked, _, _ := l.Failure(ctx, "alice", ip); blocked {
			t.Fatalf("blocked after %d failures", i+1)
		}
	}
	blocked, retry, _ := l.Failure(ctx, "alice", ip)
	if !blocked || retry != 15*time.Minute {
		t.Fatalf("Failure #3 = (%v, %v)", blocked, retry)
	}

	ok, retry, _ = l.Allow(ctx, "alice", ip)
	if ok || retry <= 0 {
		t.Fatalf("Allow while blocked = (%v, %v)", ok, retry)
	}

	// The block expires on its own.
	now = now.Add(16 * time.Minute)
	if ok, _, _ := l.Allow(ctx, "alice", ip); !ok {
		t.Fatalf("still blocked after lockout elapsed")
	}
}

func TestMemory_SuccessResets(t *testing.T) {
	t.Parallel()
	l := NewMemory(memConfig())
	ctx := context.Background()
	ip := HashIP("1.2.3.4")

	l.Failure(ctx, "alice", ip)
	l.Failure(ctx, "alice", ip)
	if err := l.Success(ctx, "alice", ip); err != nil {
		t.Fatalf("Success: %v", err)
	}

	// Counter restarted: three more failures needed to block again.
	for i := 0; i < 2; i++ {
		if blocked, _, _ := l.Failure(ctx, "alice", ip); blocked {
			t.Fatalf("blocked after %d failures post-reset", i+1)
		}
	}
}

func TestMemory_WindowExpiryResetsCounter(t *testing.T) {
	t.Parallel()
	l := NewMemory(memConfig())
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })

	ctx := context.Background()
	ip := HashIP("1.2.3.4")

	l.Failure(ctx, "alice", ip)
	l.Failure(ctx, "alice", ip)

	now = now.Add(11 * time.Minute)
	if blocked, _, _ := l.Failure(ctx, "alice", ip); blocked {
		t.Fatalf("stale window counted toward the block")
	}
}

func TestMemory_KeysAreIndependent(t *testing.T) {
	t.Parallel()
	l := NewMemory(memConfig())
	ctx := context.Background()

	ip1 := HashIP("1.2.3.4")
	ip2 := HashIP("5.6.7.8")

	for i := 0; i < 3; i++ {
		l.Failure(ctx, "alice", ip1)
	}
	if ok, _, _ := l.Allow(ctx, "alice", ip1); ok {
		t.Fatalf("expected block for the offending key")
	}
	if ok, _, _ := l.Allow(ctx, "alice", ip2); !ok {
		t.Fatalf("block leaked to another ip")
	}
	if ok, _, _ := l.Allow(ctx, "bob", ip1); !ok {
		t.Fatalf("block leaked to another username")
	}
}
