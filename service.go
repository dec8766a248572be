package sessionguard

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/altwave/sessionguard/internal/events"
	"github.com/altwave/sessionguard/internal/limiters"
	"github.com/altwave/sessionguard/risk"
	"github.com/altwave/sessionguard/session"
)

// Service is the session security core: it owns session lifecycle,
// request fingerprinting, risk scoring, failed-login lockout, and the
// security event stream. Construct it through [New] and [Builder.Build].
//
// A Service is safe for concurrent use.
//
//	Docs: docs/service.md
type Service struct {
	config  Config
	store   *session.Store
	scorer  *risk.Scorer
	lockout *limiters.LockoutLimiter
	events  *events.Dispatcher
	metrics *Metrics
	geo     GeoResolver
	logger  zerolog.Logger
	clock   func() time.Time
	closed  atomic.Bool
}

// Close drains the event dispatcher and rejects further API calls.
// Close is idempotent.
func (s *Service) Close() {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.events.Close()
}

func (s *Service) isClosed() bool {
	return s == nil || s.closed.Load()
}

// now returns the current time from the configured clock, in UTC.
func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// storeCtx applies the configured store timeout to a request context.
func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.config.StoreTimeout)
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// EventsDropped returns the number of security events discarded because
// the dispatcher buffer was full.
func (s *Service) EventsDropped() uint64 {
	return s.events.Dropped()
}

// Ping verifies store connectivity and reports round-trip latency.
func (s *Service) Ping(ctx context.Context) (time.Duration, error) {
	if s.isClosed() {
		return 0, ErrEngineClosed
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.Ping(ctx)
}
