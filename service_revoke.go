package sessionguard

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/altwave/sessionguard/internal"
	"github.com/altwave/sessionguard/internal/events"
	"github.com/altwave/sessionguard/session"
)

// Revoke marks a session revoked. The record is kept briefly under the
// configured retention so concurrent validations observe the revoked
// status instead of a bare miss.
//
// Revoke may return an error when input validation, dependency calls, or security checks fail.
// Revoke does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) Revoke(ctx context.Context, sessionID, reason string) error {
	if s.isClosed() {
		return ErrEngineClosed
	}

	now := s.now()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	rec, err := s.store.Get(sctx, sessionID, now)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if rec.Status.Terminal() {
		// Already revoked or locked; nothing to do.
		return nil
	}

	rec.Status = session.StatusRevoked
	if err := s.store.Retire(sctx, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionInvalidationFailed, err)
	}

	if reason == "" {
		reason = "session revoked"
	}
	s.metrics.Inc(MetricSessionRevoked)
	s.emitEvent(ctx, events.Event{
		EventType:   EventSessionRevoked,
		UserID:      rec.UserID,
		SessionID:   rec.SessionID,
		Description: reason,
		RiskLevel:   session.RiskLow.String(),
	})

	return nil
}

// Destroy deletes a session record and its user-index entry outright,
// skipping the retention window [Revoke] leaves behind. Use it when the
// session data itself has to disappear, such as an account deletion or
// a privacy erasure request.
//
// Destroy may return an error when input validation, dependency calls, or security checks fail.
// Destroy does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) Destroy(ctx context.Context, sessionID, reason string) error {
	if s.isClosed() {
		return ErrEngineClosed
	}
	// A malformed id can never name a stored session; skip the store
	// round trip.
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return ErrSessionNotFound
	}

	now := s.now()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	rec, err := s.store.Get(sctx, sessionID, now)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := s.store.Purge(sctx, rec.UserID, rec.SessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionInvalidationFailed, err)
	}

	if reason == "" {
		reason = "session destroyed"
	}
	s.metrics.Inc(MetricSessionRevoked)
	s.emitEvent(ctx, events.Event{
		EventType:   EventSessionRevoked,
		UserID:      rec.UserID,
		SessionID:   rec.SessionID,
		Description: reason,
		RiskLevel:   session.RiskLow.String(),
	})

	return nil
}

// RevokeAll revokes every live session the user has, skipping any
// session IDs listed in except (typically the current session). It
// returns the number of sessions revoked.
//
// RevokeAll may return an error when input validation, dependency calls, or security checks fail.
// RevokeAll does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) RevokeAll(ctx context.Context, userID string, except ...string) (int, error) {
	if s.isClosed() {
		return 0, ErrEngineClosed
	}
	if userID == "" {
		return 0, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}

	now := s.now()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	ids, err := s.store.SessionIDs(sctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keep := make(map[string]bool, len(except))
	for _, id := range except {
		keep[id] = true
	}

	records, err := s.store.GetMany(sctx, ids, now)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	revoked := 0
	for _, rec := range records {
		if keep[rec.SessionID] || rec.Status.Terminal() {
			continue
		}
		rec.Status = session.StatusRevoked
		if err := s.store.Retire(sctx, rec); err != nil {
			return revoked, fmt.Errorf("%w: %v", ErrSessionInvalidationFailed, err)
		}
		s.metrics.Inc(MetricSessionRevoked)
		revoked++
	}

	if revoked > 0 {
		s.emitEvent(ctx, events.Event{
			EventType:   EventSessionRevoked,
			UserID:      userID,
			Description: "all sessions revoked",
			RiskLevel:   session.RiskLow.String(),
			Metadata:    map[string]string{"revoked": strconv.Itoa(revoked)},
		})
	}

	return revoked, nil
}
