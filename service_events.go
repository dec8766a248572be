package sessionguard

import (
	"context"

	"github.com/google/uuid"

	"github.com/altwave/sessionguard/internal/events"
)

// Security event types emitted by the service. Stored events carry
// these as the event_type field.
const (
	// EventSessionCreated is an exported constant or variable used by the session security core.
	EventSessionCreated = "SESSION_CREATED"
	// EventSessionExpired is an exported constant or variable used by the session security core.
	EventSessionExpired = "SESSION_EXPIRED"
	// EventSessionRevoked is an exported constant or variable used by the session security core.
	EventSessionRevoked = "SESSION_REVOKED"
	// EventSessionRenewed is an exported constant or variable used by the session security core.
	EventSessionRenewed = "SESSION_RENEWED"
	// EventSuspiciousActivity is an exported constant or variable used by the session security core.
	EventSuspiciousActivity = "SUSPICIOUS_ACTIVITY"
	// EventLocationChange is an exported constant or variable used by the session security core.
	EventLocationChange = "LOCATION_CHANGE"
	// EventDeviceChange is an exported constant or variable used by the session security core.
	EventDeviceChange = "DEVICE_CHANGE"
	// EventBruteForceDetected is an exported constant or variable used by the session security core.
	EventBruteForceDetected = "BRUTE_FORCE_DETECTED"
	// EventLoginSuccess is an exported constant or variable used by the session security core.
	EventLoginSuccess = "LOGIN_SUCCESS"
	// EventLoginFailure is an exported constant or variable used by the session security core.
	EventLoginFailure = "LOGIN_FAILURE"
	// EventSessionLimitExceeded is an exported constant or variable used by the session security core.
	EventSessionLimitExceeded = "SESSION_LIMIT_EXCEEDED"
)

// emitEvent hands a security event to the async dispatcher. Event
// emission never fails a session operation.
func (s *Service) emitEvent(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	event.EventID = uuid.NewString()
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.events.Emit(ctx, event)
}
