package sessionguard

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/altwave/sessionguard/fingerprint"
	"github.com/altwave/sessionguard/internal"
	"github.com/altwave/sessionguard/internal/events"
	"github.com/altwave/sessionguard/risk"
	"github.com/altwave/sessionguard/session"
)

const (
	reasonNotFound   = "session not found or expired"
	reasonCSRF       = "csrf token mismatch"
	reasonIdle       = "idle timeout"
	reasonSuspicious = "suspicious activity detected"
)

const anomalyWindow = time.Minute

// Validate checks a presented session against the incoming request:
// status, absolute lifetime, CSRF token, idle timeout, and IP/device
// drift. Rejections are reported in the result; an error is returned
// only when the store is unreachable, in which case the session must
// be treated as invalid.
//
// The happy path costs one store read and one store write.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) Validate(ctx context.Context, sessionID string, req Request) (ValidationResult, error) {
	if s.isClosed() {
		return ValidationResult{}, ErrEngineClosed
	}

	start := time.Now()
	defer func() {
		s.metrics.Observe(MetricValidateLatency, time.Since(start))
	}()

	now := s.now()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	rec, err := s.store.Get(sctx, sessionID, now)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.metrics.Inc(MetricValidateRejected)
			return ValidationResult{Reason: reasonNotFound}, nil
		}
		return ValidationResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if rec.Status != session.StatusActive {
		s.metrics.Inc(MetricValidateRejected)
		return ValidationResult{Reason: "session " + rec.Status.String()}, nil
	}

	if req.CSRFToken != "" {
		if subtle.ConstantTimeCompare([]byte(req.CSRFToken), []byte(rec.CSRFToken)) != 1 {
			s.metrics.Inc(MetricCSRFMismatch)
			s.metrics.Inc(MetricValidateRejected)
			s.emitEvent(ctx, events.Event{
				EventType:   EventSuspiciousActivity,
				UserID:      rec.UserID,
				SessionID:   rec.SessionID,
				Description: "csrf token mismatch",
				RiskLevel:   session.RiskHigh.String(),
				IPAddress:   req.IP,
				UserAgent:   req.UserAgent,
			})
			return ValidationResult{Reason: reasonCSRF}, nil
		}
	}

	if idle := s.config.Session.IdleTimeout; idle > 0 && rec.IdleFor(now) > idle {
		rec.Status = session.StatusExpired
		if err := s.store.Retire(sctx, rec); err != nil {
			return ValidationResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		s.metrics.Inc(MetricIdleTimeout)
		s.metrics.Inc(MetricSessionExpired)
		s.metrics.Inc(MetricValidateRejected)
		s.emitEvent(ctx, events.Event{
			EventType:   EventSessionExpired,
			UserID:      rec.UserID,
			SessionID:   rec.SessionID,
			Description: "session expired after inactivity",
			RiskLevel:   session.RiskLow.String(),
			IPAddress:   req.IP,
			UserAgent:   req.UserAgent,
		})
		return ValidationResult{Reason: reasonIdle}, nil
	}

	observedFP := fingerprint.Hash(req.UserAgent, req.Headers)
	assessment := s.scorer.Rescore(rec, req.IP, req.UserAgent, observedFP)

	if assessment.IPDrifted {
		s.metrics.Inc(MetricLocationDrift)
	}
	if assessment.DeviceDrifted {
		s.metrics.Inc(MetricDeviceDrift)
	}

	if assessment.Verdict == risk.VerdictReject {
		rec.Metrics = assessment.Metrics
		rec.Status = session.StatusSuspicious
		if err := s.store.Retire(sctx, rec); err != nil {
			return ValidationResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		eventType := EventLocationChange
		description := "session rejected after location change"
		if assessment.DeviceDrifted {
			eventType = EventDeviceChange
			description = "session rejected after device change"
		}
		s.metrics.Inc(MetricSuspiciousFlagged)
		s.metrics.Inc(MetricValidateRejected)
		s.emitEvent(ctx, events.Event{
			EventType:   eventType,
			UserID:      rec.UserID,
			SessionID:   rec.SessionID,
			Description: description,
			RiskLevel:   session.RiskHigh.String(),
			IPAddress:   req.IP,
			UserAgent:   req.UserAgent,
		})

		s.logger.Info().
			Str("user_id", rec.UserID).
			Str("session_id", rec.SessionID).
			Float64("risk_score", rec.Metrics.RiskScore).
			Msg("session flagged suspicious")

		return ValidationResult{Reason: reasonSuspicious}, nil
	}

	// Device and Location stay pinned to the creation request. An
	// accepted drift raises the stored score, so the next drifted call
	// starts from the higher baseline until the threshold rejects it.
	rec.Metrics = assessment.Metrics
	if assessment.Changed() {
		if assessment.IPDrifted && s.shouldEmitAnomaly(sctx, rec.SessionID, "ip") {
			s.emitEvent(ctx, events.Event{
				EventType:   EventLocationChange,
				UserID:      rec.UserID,
				SessionID:   rec.SessionID,
				Description: "session continued from a new location",
				RiskLevel:   session.RiskMedium.String(),
				IPAddress:   req.IP,
				UserAgent:   req.UserAgent,
			})
		}
		if assessment.DeviceDrifted && s.shouldEmitAnomaly(sctx, rec.SessionID, "device") {
			s.emitEvent(ctx, events.Event{
				EventType:   EventDeviceChange,
				UserID:      rec.UserID,
				SessionID:   rec.SessionID,
				Description: "session continued from a changed device",
				RiskLevel:   session.RiskMedium.String(),
				IPAddress:   req.IP,
				UserAgent:   req.UserAgent,
			})
		}
	}
	rec.LastActivityAt = now
	rec.Metrics.LastActivityAt = now

	if err := s.store.Update(sctx, rec, now); err != nil {
		return ValidationResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.metrics.Inc(MetricValidateSuccess)
	return ValidationResult{OK: true, Record: rec}, nil
}

func (s *Service) shouldEmitAnomaly(ctx context.Context, sessionID, kind string) bool {
	if sessionID == "" {
		return true
	}
	ok, err := s.store.ShouldEmitAnomaly(ctx, sessionID, kind, anomalyWindow)
	if err != nil {
		return false
	}
	return ok
}

// Refresh extends an active session's absolute lifetime by the
// configured duration (remember-me aware) and rotates its CSRF token.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) Refresh(ctx context.Context, sessionID string) (*session.Record, error) {
	if s.isClosed() {
		return nil, ErrEngineClosed
	}

	now := s.now()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	rec, err := s.store.Get(sctx, sessionID, now)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if rec.Status != session.StatusActive {
		return nil, ErrSessionNotFound
	}

	lifetime := s.config.Session.Lifetime
	if rec.RememberMe {
		lifetime = s.config.Session.RememberMeLifetime
	}

	csrf, err := internal.NewCSRFToken()
	if err != nil {
		return nil, fmt.Errorf("csrf token generation: %w", err)
	}

	rec.ExpiresAt = now.Add(lifetime)
	rec.LastActivityAt = now
	rec.Metrics.LastActivityAt = now
	rec.CSRFToken = csrf

	if err := s.store.Update(sctx, rec, now); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.metrics.Inc(MetricSessionRefreshed)
	s.emitEvent(ctx, events.Event{
		EventType:   EventSessionRenewed,
		UserID:      rec.UserID,
		SessionID:   rec.SessionID,
		Description: "session lifetime extended",
		RiskLevel:   session.RiskLow.String(),
	})
	return rec, nil
}
