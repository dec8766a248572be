package sessionguard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/altwave/sessionguard/internal/events"
	"github.com/altwave/sessionguard/session"
)

// RecordLoginAttempt feeds the lockout limiter. Failures accumulate in
// a rolling window; reaching the configured threshold locks every live
// session the user has and reports locked=true. A successful attempt
// clears the counter.
//
// RecordLoginAttempt may return an error when input validation, dependency calls, or security checks fail.
// RecordLoginAttempt does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) RecordLoginAttempt(ctx context.Context, userID string, success bool, req Request) (locked bool, err error) {
	if s.isClosed() {
		return false, ErrEngineClosed
	}
	if userID == "" {
		return false, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if success {
		if err := s.lockout.Reset(sctx, userID); err != nil {
			return false, err
		}
		s.metrics.Inc(MetricLoginSuccess)
		s.emitEvent(ctx, events.Event{
			EventType:   EventLoginSuccess,
			UserID:      userID,
			Description: "login succeeded",
			RiskLevel:   session.RiskLow.String(),
			IPAddress:   req.IP,
			UserAgent:   req.UserAgent,
		})
		return false, nil
	}

	count, reached, err := s.lockout.RecordFailure(sctx, userID)
	if err != nil {
		return false, err
	}

	s.metrics.Inc(MetricLoginFailure)
	s.emitEvent(ctx, events.Event{
		EventType:   EventLoginFailure,
		UserID:      userID,
		Description: "login failed",
		RiskLevel:   session.RiskMedium.String(),
		IPAddress:   req.IP,
		UserAgent:   req.UserAgent,
		Metadata:    map[string]string{"failed_attempts": strconv.Itoa(count)},
	})

	if !reached {
		return false, nil
	}

	if err := s.lockUserSessions(sctx, userID); err != nil {
		return true, err
	}

	s.metrics.Inc(MetricLockoutTriggered)
	s.emitEvent(ctx, events.Event{
		EventType:   EventBruteForceDetected,
		UserID:      userID,
		Description: "failed login threshold reached, account locked",
		RiskLevel:   session.RiskCritical.String(),
		IPAddress:   req.IP,
		UserAgent:   req.UserAgent,
		Metadata:    map[string]string{"failed_attempts": strconv.Itoa(count)},
	})

	s.logger.Warn().
		Str("user_id", userID).
		Int("failed_attempts", count).
		Msg("account locked after repeated login failures")

	return true, nil
}

// lockUserSessions moves every live session of the user to Locked.
func (s *Service) lockUserSessions(ctx context.Context, userID string) error {
	ids, err := s.store.SessionIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return nil
	}

	records, err := s.store.GetMany(ctx, ids, s.now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	for _, rec := range records {
		if rec.Status.Terminal() {
			continue
		}
		rec.Status = session.StatusLocked
		if err := s.store.Retire(ctx, rec); err != nil {
			return fmt.Errorf("%w: %v", ErrSessionInvalidationFailed, err)
		}
	}

	return nil
}

// IsLocked reports the user's lockout state. When a lockout window is
// active UnlockAt carries the instant the lock clears; it stays nil
// for manual-unlock configurations.
//
// IsLocked may return an error when input validation, dependency calls, or security checks fail.
// IsLocked does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) IsLocked(ctx context.Context, userID string) (LockStatus, error) {
	if s.isClosed() {
		return LockStatus{}, ErrEngineClosed
	}
	if userID == "" {
		return LockStatus{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	count, ttl, err := s.lockout.Status(sctx, userID)
	if err != nil {
		return LockStatus{}, err
	}

	status := LockStatus{
		Locked:   s.config.Lockout.Enabled && count >= s.config.Lockout.MaxAttempts,
		Attempts: count,
	}
	if status.Locked && ttl > 0 {
		unlockAt := s.now().Add(ttl)
		status.UnlockAt = &unlockAt
	}

	return status, nil
}
