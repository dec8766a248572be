package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutConfig holds configuration for the automatic account lockout limiter.
type LockoutConfig struct {
	Enabled     bool
	MaxAttempts int
	Duration    time.Duration // 0 = manual unlock only
	KeyPrefix   string
}

var (
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// LockoutLimiter tracks persistent failed login attempts and triggers
// account lockout when the configured threshold is reached.
type LockoutLimiter struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockoutLimiter creates a new lockout limiter.
func NewLockoutLimiter(redisClient redis.UniversalClient, cfg LockoutConfig) *LockoutLimiter {
	return &LockoutLimiter{redis: redisClient, config: cfg}
}

func (l *LockoutLimiter) key(userID string) string {
	return l.config.KeyPrefix + "failed_attempts:" + userID
}

// RecordFailure increments the failure counter for a user.
// Returns the running count and whether the threshold has been reached
// (caller should lock the account).
func (l *LockoutLimiter) RecordFailure(ctx context.Context, userID string) (int, bool, error) {
	if !l.config.Enabled || userID == "" {
		return 0, false, nil
	}

	count, err := l.redis.Incr(ctx, l.key(userID)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	if count == 1 && l.config.Duration > 0 {
		// Set TTL on first failure so counter auto-resets after lockout duration.
		// This acts as a rolling window for counting failures.
		if err := l.redis.Expire(ctx, l.key(userID), l.config.Duration).Err(); err != nil {
			return 0, false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
		}
	}

	return int(count), count >= int64(l.config.MaxAttempts), nil
}

// Reset clears the failure counter for a user (e.g., after successful login or manual unlock).
func (l *LockoutLimiter) Reset(ctx context.Context, userID string) error {
	if !l.config.Enabled || userID == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// Status returns the current failure count and, when the account is
// locked, the time remaining until the counter expires and the lock
// clears. A zero duration means no lock is in effect.
func (l *LockoutLimiter) Status(ctx context.Context, userID string) (int, time.Duration, error) {
	if !l.config.Enabled || userID == "" {
		return 0, 0, nil
	}

	count, err := l.redis.Get(ctx, l.key(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	if count < int64(l.config.MaxAttempts) {
		return int(count), 0, nil
	}

	ttl, err := l.redis.PTTL(ctx, l.key(userID)).Result()
	if err != nil {
		return int(count), 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if ttl < 0 {
		// Counter exists without expiry: manual unlock only.
		return int(count), 0, nil
	}

	return int(count), ttl, nil
}
