package sessionguard

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/altwave/sessionguard/session"
)

// GetSession fetches a session record without touching its activity
// time or risk state. Intended for introspection and admin tooling.
//
// GetSession may return an error when input validation, dependency calls, or security checks fail.
// GetSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*session.Record, error) {
	if s.isClosed() {
		return nil, ErrEngineClosed
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	rec, err := s.store.Get(sctx, sessionID, s.now())
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return rec, nil
}

// ActiveSessions lists the user's live sessions, most recently active
// first. Records in terminal states are filtered out.
//
// ActiveSessions may return an error when input validation, dependency calls, or security checks fail.
// ActiveSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) ActiveSessions(ctx context.Context, userID string) ([]*session.Record, error) {
	if s.isClosed() {
		return nil, ErrEngineClosed
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	ids, err := s.store.SessionIDs(sctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	records, err := s.store.GetMany(sctx, ids, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	active := records[:0]
	for _, rec := range records {
		if rec.Status == session.StatusActive {
			active = append(active, rec)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].LastActivityAt.After(active[j].LastActivityAt)
	})

	return active, nil
}
