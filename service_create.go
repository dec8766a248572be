package sessionguard

import (
	"context"
	"fmt"
	"sort"

	"github.com/altwave/sessionguard/fingerprint"
	"github.com/altwave/sessionguard/internal"
	"github.com/altwave/sessionguard/internal/events"
	"github.com/altwave/sessionguard/session"
)

// CreateSession fingerprints the request, risk-scores it, enforces the
// per-user concurrent session cap, and persists a new active session.
//
// A high risk score never blocks creation on its own: the score and
// level are recorded on the session and acted on during validation.
// Creation fails closed when the store or scorer is unreachable.
//
// CreateSession may return an error when input validation, dependency calls, or security checks fail.
// CreateSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) CreateSession(ctx context.Context, input CreateSessionInput) (*session.Record, error) {
	if s.isClosed() {
		return nil, ErrEngineClosed
	}
	if input.UserID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}

	now := s.now()
	device := fingerprint.DeriveDevice(input.Request.UserAgent, input.Request.Headers)
	location := fingerprint.DeriveLocation(input.Request.IP, s.geo)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	metrics, err := s.scorer.Score(sctx, input.UserID, device, location, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	active, err := s.enforceSessionCap(sctx, input.UserID, input.Request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	metrics.ConcurrentSessions = active + 1

	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	csrf, err := internal.NewCSRFToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	lifetime := s.config.Session.Lifetime
	if input.RememberMe {
		lifetime = s.config.Session.RememberMeLifetime
	}

	rec := &session.Record{
		SessionID:      sid.String(),
		UserID:         input.UserID,
		Status:         session.StatusActive,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(lifetime),
		Device:         device,
		Location:       location,
		Metrics:        metrics,
		CSRFToken:      csrf,
		MFAVerified:    input.MFAVerified,
		RememberMe:     input.RememberMe,
	}

	if err := s.store.Save(sctx, rec, lifetime); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	s.metrics.Inc(MetricSessionCreated)
	s.emitEvent(ctx, events.Event{
		EventType:   EventSessionCreated,
		UserID:      rec.UserID,
		SessionID:   rec.SessionID,
		Description: "session created",
		RiskLevel:   rec.Metrics.RiskLevel.String(),
		IPAddress:   input.Request.IP,
		UserAgent:   input.Request.UserAgent,
	})

	s.logger.Debug().
		Str("user_id", rec.UserID).
		Str("session_id", rec.SessionID).
		Float64("risk_score", rec.Metrics.RiskScore).
		Msg("session created")

	return rec, nil
}

// enforceSessionCap revokes the user's least recently active sessions
// until a slot is free, and returns the surviving active count. The
// index read and the revocations are not atomic; a racing creation can
// briefly exceed the cap, which the next creation corrects.
func (s *Service) enforceSessionCap(ctx context.Context, userID string, req Request) (int, error) {
	limit := s.config.Session.MaxSessionsPerUser
	if limit <= 0 {
		return 0, nil
	}

	ids, err := s.store.SessionIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	records, err := s.store.GetMany(ctx, ids, s.now())
	if err != nil {
		return 0, err
	}

	// Index entries with no live record are leftovers from TTL expiry.
	live := make(map[string]bool, len(records))
	active := make([]*session.Record, 0, len(records))
	for _, rec := range records {
		live[rec.SessionID] = true
		if rec.Status == session.StatusActive {
			active = append(active, rec)
		}
	}
	for _, id := range ids {
		if !live[id] {
			_ = s.store.RemoveFromIndex(ctx, userID, id)
		}
	}

	if len(active) < limit {
		return len(active), nil
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].LastActivityAt.Before(active[j].LastActivityAt)
	})

	evict := len(active) - limit + 1
	for _, rec := range active[:evict] {
		rec.Status = session.StatusRevoked
		if err := s.store.Retire(ctx, rec); err != nil {
			return 0, err
		}
		s.metrics.Inc(MetricSessionLimitEvicted)
		s.emitEvent(ctx, events.Event{
			EventType:   EventSessionLimitExceeded,
			UserID:      userID,
			SessionID:   rec.SessionID,
			Description: "session limit exceeded, oldest session revoked",
			RiskLevel:   session.RiskLow.String(),
			IPAddress:   req.IP,
			UserAgent:   req.UserAgent,
		})
	}

	return len(active) - evict, nil
}
