package limiters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg LockoutConfig) (*LockoutLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLockoutLimiter(rdb, cfg), mr
}

func TestLockoutThreshold(t *testing.T) {
	limiter, _ := newTestLimiter(t, LockoutConfig{
		Enabled:     true,
		MaxAttempts: 3,
		Duration:    time.Minute,
		KeyPrefix:   "sg:",
	})
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		count, reached, err := limiter.RecordFailure(ctx, "user-1")
		if err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
		if reached {
			t.Fatalf("threshold reached too early at attempt %d", i)
		}
		if count != i {
			t.Fatalf("expected count %d, got %d", i, count)
		}
	}

	count, reached, err := limiter.RecordFailure(ctx, "user-1")
	if err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	if !reached || count != 3 {
		t.Fatalf("expected threshold at attempt 3, got count=%d reached=%v", count, reached)
	}
}

func TestLockoutStatusAndWindow(t *testing.T) {
	limiter, mr := newTestLimiter(t, LockoutConfig{
		Enabled:     true,
		MaxAttempts: 2,
		Duration:    time.Minute,
		KeyPrefix:   "sg:",
	})
	ctx := context.Background()

	count, ttl, err := limiter.Status(ctx, "user-1")
	if err != nil || count != 0 || ttl != 0 {
		t.Fatalf("expected clean status, got count=%d ttl=%v err=%v", count, ttl, err)
	}

	limiter.RecordFailure(ctx, "user-1")
	limiter.RecordFailure(ctx, "user-1")

	count, ttl, err = limiter.Status(ctx, "user-1")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if count != 2 || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected locked status with window, got count=%d ttl=%v", count, ttl)
	}

	// The rolling window expires the counter.
	mr.FastForward(2 * time.Minute)
	count, ttl, err = limiter.Status(ctx, "user-1")
	if err != nil || count != 0 || ttl != 0 {
		t.Fatalf("expected lock to clear, got count=%d ttl=%v err=%v", count, ttl, err)
	}
}

func TestLockoutReset(t *testing.T) {
	limiter, _ := newTestLimiter(t, LockoutConfig{
		Enabled:     true,
		MaxAttempts: 2,
		Duration:    time.Minute,
		KeyPrefix:   "sg:",
	})
	ctx := context.Background()

	limiter.RecordFailure(ctx, "user-1")
	if err := limiter.Reset(ctx, "user-1"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	count, _, err := limiter.Status(ctx, "user-1")
	if err != nil || count != 0 {
		t.Fatalf("expected reset counter, got count=%d err=%v", count, err)
	}
}

func TestLockoutDisabledIsNoOp(t *testing.T) {
	limiter, _ := newTestLimiter(t, LockoutConfig{Enabled: false, MaxAttempts: 1})
	ctx := context.Background()

	count, reached, err := limiter.RecordFailure(ctx, "user-1")
	if err != nil || count != 0 || reached {
		t.Fatalf("expected no-op, got count=%d reached=%v err=%v", count, reached, err)
	}
}

func TestLockoutManualUnlockHasNoWindow(t *testing.T) {
	limiter, _ := newTestLimiter(t, LockoutConfig{
		Enabled:     true,
		MaxAttempts: 1,
		Duration:    0,
		KeyPrefix:   "sg:",
	})
	ctx := context.Background()

	_, reached, err := limiter.RecordFailure(ctx, "user-1")
	if err != nil || !reached {
		t.Fatalf("expected immediate lock, reached=%v err=%v", reached, err)
	}

	count, ttl, err := limiter.Status(ctx, "user-1")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if count != 1 || ttl != 0 {
		t.Fatalf("expected manual-unlock status, got count=%d ttl=%v", count, ttl)
	}
}
