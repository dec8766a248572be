package session

import "time"

// Status is the lifecycle state of a session record. Sessions start
// Active and only ever move forward; every other state is terminal.
//
//	Docs: docs/session.md
type Status uint8

const (
	// StatusActive is an exported constant or variable used by the session security core.
	StatusActive Status = iota
	// StatusExpired is an exported constant or variable used by the session security core.
	StatusExpired
	// StatusRevoked is an exported constant or variable used by the session security core.
	StatusRevoked
	// StatusLocked is an exported constant or variable used by the session security core.
	StatusLocked
	// StatusSuspicious is an exported constant or variable used by the session security core.
	StatusSuspicious
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusExpired:
		return "expired"
	case StatusRevoked:
		return "revoked"
	case StatusLocked:
		return "locked"
	case StatusSuspicious:
		return "suspicious"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s != StatusActive
}

// RiskLevel is the discrete classification of a session risk score.
type RiskLevel uint8

const (
	// RiskLow is an exported constant or variable used by the session security core.
	RiskLow RiskLevel = iota
	// RiskMedium is an exported constant or variable used by the session security core.
	RiskMedium
	// RiskHigh is an exported constant or variable used by the session security core.
	RiskHigh
	// RiskCritical is an exported constant or variable used by the session security core.
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// LevelForScore maps a bounded [0,1] risk score onto a [RiskLevel].
func LevelForScore(score float64) RiskLevel {
	switch {
	case score < 0.3:
		return RiskLow
	case score < 0.6:
		return RiskMedium
	case score < 0.8:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// DeviceType is the closed device classification derived from a parsed
// user agent.
type DeviceType uint8

const (
	// DeviceUnknown is an exported constant or variable used by the session security core.
	DeviceUnknown DeviceType = iota
	// DeviceDesktop is an exported constant or variable used by the session security core.
	DeviceDesktop
	// DeviceMobile is an exported constant or variable used by the session security core.
	DeviceMobile
	// DeviceTablet is an exported constant or variable used by the session security core.
	DeviceTablet
	// DeviceBot is an exported constant or variable used by the session security core.
	DeviceBot
)

func (d DeviceType) String() string {
	switch d {
	case DeviceDesktop:
		return "desktop"
	case DeviceMobile:
		return "mobile"
	case DeviceTablet:
		return "tablet"
	case DeviceBot:
		return "bot"
	default:
		return "unknown"
	}
}

// DeviceInfo is the immutable device snapshot captured when a session
// is created. Later requests are compared against it but never
// overwrite it.
type DeviceInfo struct {
	DeviceID    string     `json:"device_id"`
	DeviceType  DeviceType `json:"device_type"`
	OS          string     `json:"os"`
	Browser     string     `json:"browser"`
	IsMobile    bool       `json:"is_mobile"`
	IsBot       bool       `json:"is_bot"`
	Fingerprint string     `json:"fingerprint"`
}

// LocationInfo is the immutable location snapshot captured when a
// session is created.
type LocationInfo struct {
	IPAddress   string  `json:"ip_address"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Region      string  `json:"region,omitempty"`
	City        string  `json:"city,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	IsVPN       bool    `json:"is_vpn"`
	IsProxy     bool    `json:"is_proxy"`
	IsInternal  bool    `json:"is_internal"`
}

// SecurityMetrics carries the mutable risk state of a session. The
// score only ever rises within a single session instance.
type SecurityMetrics struct {
	RiskScore          float64   `json:"risk_score"`
	RiskLevel          RiskLevel `json:"risk_level"`
	DeviceChanges      int       `json:"device_changes"`
	LocationChanges    int       `json:"location_changes"`
	ConcurrentSessions int       `json:"concurrent_sessions"`
	LastActivityAt     time.Time `json:"last_activity_at"`
}

// Record defines a public type used by sessionguard APIs.
//
// Record instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// Only Status, LastActivityAt, and SecurityMetrics change after
// creation, and only through the lifecycle service.
type Record struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`

	Status Status `json:"status"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`

	Device   DeviceInfo      `json:"device_info"`
	Location LocationInfo    `json:"location_info"`
	Metrics  SecurityMetrics `json:"security_metrics"`

	CSRFToken string `json:"csrf_token"`

	MFAVerified bool `json:"mfa_verified"`
	RememberMe  bool `json:"remember_me"`
}

// IsExpired reports whether the record's absolute lifetime has passed
// at the given instant.
func (r *Record) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// IdleFor returns how long the session has been without activity at
// the given instant.
func (r *Record) IdleFor(now time.Time) time.Duration {
	return now.Sub(r.LastActivityAt)
}
