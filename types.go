package sessionguard

import (
	"io"
	"time"

	"github.com/altwave/sessionguard/fingerprint"
	"github.com/altwave/sessionguard/internal/events"
	"github.com/altwave/sessionguard/session"
)

// SessionRecord is the stored representation of a session. See the
// session package for field semantics.
type SessionRecord = session.Record

// SessionStatus defines a public type used by sessionguard APIs.
//
// SessionStatus instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionStatus = session.Status

// RiskLevel defines a public type used by sessionguard APIs.
//
// RiskLevel instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RiskLevel = session.RiskLevel

// SecurityEvent is the canonical security event model emitted by the service.
//
//	Docs: docs/events.md
type SecurityEvent = events.Event

// EventSink receives emitted security events. Sinks must tolerate
// concurrent Emit calls.
type EventSink = events.Sink

// NoOpSink drops security events.
type NoOpSink = events.NoOpSink

// ChannelSink writes security events into a buffered channel.
type ChannelSink = events.ChannelSink

// NewChannelSink describes the newchannelsink operation and its observable behavior.
//
// NewChannelSink may return an error when input validation, dependency calls, or security checks fail.
// NewChannelSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewChannelSink(buffer int) *ChannelSink {
	return events.NewChannelSink(buffer)
}

// NewJSONWriterSink describes the newjsonwritersink operation and its observable behavior.
//
// NewJSONWriterSink may return an error when input validation, dependency calls, or security checks fail.
// NewJSONWriterSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewJSONWriterSink(w io.Writer) EventSink {
	return events.NewJSONWriterSink(w)
}

// GeoResolver maps an IP address to location metadata. Implementations
// typically wrap a GeoIP database or an upstream lookup service.
type GeoResolver = fingerprint.GeoResolver

// GeoResolverFunc adapts a plain function to the [GeoResolver] interface.
type GeoResolverFunc = fingerprint.GeoResolverFunc

// Request carries the client-observable attributes of an incoming
// request: everything the service fingerprints and risk-scores.
//
//	Docs: docs/fingerprint.md
type Request struct {
	IP        string
	UserAgent string
	Headers   map[string]string
	CSRFToken string
}

// CreateSessionInput defines a public type used by sessionguard APIs.
//
// CreateSessionInput instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CreateSessionInput struct {
	UserID      string
	Request     Request
	MFAVerified bool
	RememberMe  bool
}

// ValidationResult is returned by [Service.Validate]. When OK is false
// the Reason field names the rejection cause; Record is only populated
// on success.
type ValidationResult struct {
	OK     bool
	Record *session.Record
	Reason string
}

// LockStatus reports whether a user is locked out and, when a lockout
// window applies, the time the lock clears. UnlockAt is nil for
// unlocked users and for manual-unlock configurations.
type LockStatus struct {
	Locked   bool
	Attempts int
	UnlockAt *time.Time
}
