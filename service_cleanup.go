package sessionguard

import (
	"context"
	"fmt"
	"time"
)

// CleanupExpired sweeps the session keyspace once: lapsed active
// sessions are transitioned to expired, and undecryptable or corrupt
// records are purged. Redis TTLs already reclaim most records; the
// sweep exists for index hygiene and for records whose TTL outlived
// their logical lifetime.
//
// CleanupExpired may return an error when input validation, dependency calls, or security checks fail.
// CleanupExpired does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) CleanupExpired(ctx context.Context) (expired, purged int, err error) {
	if s.isClosed() {
		return 0, 0, ErrEngineClosed
	}

	expired, purged, err = s.store.Sweep(ctx, s.now())
	if err != nil {
		return expired, purged, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	for i := 0; i < expired; i++ {
		s.metrics.Inc(MetricSessionExpired)
	}
	for i := 0; i < purged; i++ {
		s.metrics.Inc(MetricCleanupPurged)
	}

	if expired > 0 || purged > 0 {
		s.logger.Debug().
			Int("expired", expired).
			Int("purged", purged).
			Msg("session sweep completed")
	}

	return expired, purged, nil
}

// RunCleanup runs CleanupExpired on a fixed interval until the context
// is cancelled or the service is closed. Sweep failures are logged and
// the loop keeps going.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.isClosed() {
				return
			}
			if _, _, err := s.CleanupExpired(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("session sweep failed")
			}
		}
	}
}
