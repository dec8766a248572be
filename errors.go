package sessionguard

import "errors"

var (
	// ErrSessionNotFound is an exported constant or variable used by the session security core.
	ErrSessionNotFound = errors.New("session not found or expired")
	// ErrSessionCreationFailed is an exported constant or variable used by the session security core.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSessionInvalidationFailed is an exported constant or variable used by the session security core.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrAccountLocked is an exported constant or variable used by the session security core.
	ErrAccountLocked = errors.New("account locked")
	// ErrStoreUnavailable is an exported constant or variable used by the session security core.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrInvalidInput is an exported constant or variable used by the session security core.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEngineClosed is an exported constant or variable used by the session security core.
	ErrEngineClosed = errors.New("service closed")
)
