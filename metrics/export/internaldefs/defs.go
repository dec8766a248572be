package internaldefs

import (
	sessionguard "github.com/altwave/sessionguard"
)

// CounterDef defines a public type used by sessionguard APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   sessionguard.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by sessionguard APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   sessionguard.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the session security core.
var CounterDefs = []CounterDef{
	{ID: sessionguard.MetricSessionCreated, Name: "sessionguard_session_created_total", Help: "Created sessions."},
	{ID: sessionguard.MetricSessionRevoked, Name: "sessionguard_session_revoked_total", Help: "Revoked sessions."},
	{ID: sessionguard.MetricSessionExpired, Name: "sessionguard_session_expired_total", Help: "Expired sessions."},
	{ID: sessionguard.MetricSessionRefreshed, Name: "sessionguard_session_refreshed_total", Help: "Refreshed sessions."},
	{ID: sessionguard.MetricValidateSuccess, Name: "sessionguard_validate_success_total", Help: "Successful session validations."},
	{ID: sessionguard.MetricValidateRejected, Name: "sessionguard_validate_rejected_total", Help: "Rejected session validations."},
	{ID: sessionguard.MetricCSRFMismatch, Name: "sessionguard_csrf_mismatch_total", Help: "Validations rejected for CSRF token mismatch."},
	{ID: sessionguard.MetricIdleTimeout, Name: "sessionguard_idle_timeout_total", Help: "Sessions expired after inactivity."},
	{ID: sessionguard.MetricLocationDrift, Name: "sessionguard_location_drift_total", Help: "Detected session IP location changes."},
	{ID: sessionguard.MetricDeviceDrift, Name: "sessionguard_device_drift_total", Help: "Detected session device changes."},
	{ID: sessionguard.MetricSuspiciousFlagged, Name: "sessionguard_suspicious_flagged_total", Help: "Sessions flagged suspicious by risk rescoring."},
	{ID: sessionguard.MetricLoginSuccess, Name: "sessionguard_login_success_total", Help: "Successful login attempts recorded."},
	{ID: sessionguard.MetricLoginFailure, Name: "sessionguard_login_failure_total", Help: "Failed login attempts recorded."},
	{ID: sessionguard.MetricLockoutTriggered, Name: "sessionguard_lockout_triggered_total", Help: "Account lockouts triggered by failed logins."},
	{ID: sessionguard.MetricSessionLimitEvicted, Name: "sessionguard_session_limit_evicted_total", Help: "Sessions revoked by the per-user cap."},
	{ID: sessionguard.MetricCleanupPurged, Name: "sessionguard_cleanup_purged_total", Help: "Corrupt session records purged by the sweep."},
}

// HistogramDefs is an exported constant or variable used by the session security core.
var HistogramDefs = []HistogramDef{
	{ID: sessionguard.MetricValidateLatency, Name: "sessionguard_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the session security core.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the session security core.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
