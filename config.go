package sessionguard

import (
	"errors"
	"time"
)

// Config defines a public type used by sessionguard APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Session      SessionConfig
	Lockout      LockoutConfig
	Risk         RiskConfig
	Encryption   EncryptionConfig
	Events       EventsConfig
	Metrics      MetricsConfig
	StoreTimeout time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by sessionguard APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix        string
	Lifetime           time.Duration
	RememberMeLifetime time.Duration
	IdleTimeout        time.Duration
	MaxSessionsPerUser int // 0 = unlimited
	RevokedRetention   time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig defines a public type used by sessionguard APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	Enabled     bool
	MaxAttempts int
	Duration    time.Duration // 0 = manual unlock only
}

/*
====================================
RISK CONFIG
====================================
*/

// RiskConfig defines a public type used by sessionguard APIs.
//
// RiskConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RiskConfig struct {
	SuspiciousThreshold float64
	KnownDeviceTTL      time.Duration
	LastCountryTTL      time.Duration
	TrackDevices        bool
	TrackLocations      bool
}

/*
====================================
ENCRYPTION CONFIG
====================================
*/

// EncryptionConfig defines a public type used by sessionguard APIs.
//
// EncryptionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
//
// Exactly one of Key (32 bytes, used directly for AES-256-GCM) or
// Secret (any length, stretched with HKDF-SHA256) must be set.
type EncryptionConfig struct {
	Key    []byte
	Secret []byte
}

// EventsConfig defines a public type used by sessionguard APIs.
//
// EventsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	Retention  time.Duration
}

// MetricsConfig defines a public type used by sessionguard APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:        "sg:",
			Lifetime:           24 * time.Hour,
			RememberMeLifetime: 30 * 24 * time.Hour,
			IdleTimeout:        2 * time.Hour,
			MaxSessionsPerUser: 5,
			RevokedRetention:   5 * time.Minute,
		},
		Lockout: LockoutConfig{
			Enabled:     true,
			MaxAttempts: 5,
			Duration:    30 * time.Minute,
		},
		Risk: RiskConfig{
			SuspiciousThreshold: 0.7,
			KnownDeviceTTL:      90 * 24 * time.Hour,
			LastCountryTTL:      30 * 24 * time.Hour,
			TrackDevices:        true,
			TrackLocations:      true,
		},
		Events: EventsConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
			Retention:  90 * 24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		StoreTimeout: 3 * time.Second,
	}
}

/*
====================================
PRESETS
====================================
*/

// DefaultConfig returns the baseline configuration. Callers adjust
// individual fields and pass the result to [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

// HighSecurityConfig returns a preset tuned for sensitive deployments:
// short lifetimes, an aggressive lockout window, and a lower suspicion
// threshold.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.Session.Lifetime = 4 * time.Hour
	cfg.Session.RememberMeLifetime = 7 * 24 * time.Hour
	cfg.Session.IdleTimeout = 30 * time.Minute
	cfg.Session.MaxSessionsPerUser = 3
	cfg.Lockout.MaxAttempts = 3
	cfg.Lockout.Duration = time.Hour
	cfg.Risk.SuspiciousThreshold = 0.5
	return cfg
}

// HighThroughputConfig returns a preset that trades risk tracking for
// fewer Redis round trips per operation.
func HighThroughputConfig() Config {
	cfg := defaultConfig()
	cfg.Risk.TrackDevices = false
	cfg.Risk.TrackLocations = false
	cfg.Events.BufferSize = 4096
	cfg.StoreTimeout = time.Second
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Encryption.Key = cloneBytes(cfg.Encryption.Key)
	out.Encryption.Secret = cloneBytes(cfg.Encryption.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Session
	if c.Session.Lifetime <= 0 {
		return errors.New("Session Lifetime must be > 0")
	}
	if c.Session.RememberMeLifetime <= 0 {
		return errors.New("Session RememberMeLifetime must be > 0")
	}
	if c.Session.RememberMeLifetime < c.Session.Lifetime {
		return errors.New("Session RememberMeLifetime must be >= Lifetime")
	}
	if c.Session.IdleTimeout < 0 {
		return errors.New("Session IdleTimeout must be >= 0")
	}
	if c.Session.MaxSessionsPerUser < 0 {
		return errors.New("Session MaxSessionsPerUser must be >= 0")
	}
	if c.Session.RevokedRetention < 0 {
		return errors.New("Session RevokedRetention must be >= 0")
	}

	// Lockout
	if c.Lockout.Enabled {
		if c.Lockout.MaxAttempts <= 0 {
			return errors.New("Lockout MaxAttempts must be > 0")
		}
		if c.Lockout.Duration < 0 {
			return errors.New("Lockout Duration must be >= 0")
		}
	}

	// Risk
	if c.Risk.SuspiciousThreshold <= 0 || c.Risk.SuspiciousThreshold > 1 {
		return errors.New("Risk SuspiciousThreshold must be in (0, 1]")
	}
	if c.Risk.KnownDeviceTTL <= 0 {
		return errors.New("Risk KnownDeviceTTL must be > 0")
	}
	if c.Risk.LastCountryTTL <= 0 {
		return errors.New("Risk LastCountryTTL must be > 0")
	}

	// Encryption: the store never runs without key material.
	if len(c.Encryption.Key) == 0 && len(c.Encryption.Secret) == 0 {
		return errors.New("Encryption requires Key or Secret")
	}
	if len(c.Encryption.Key) > 0 && len(c.Encryption.Secret) > 0 {
		return errors.New("Encryption Key and Secret are mutually exclusive")
	}
	if len(c.Encryption.Key) > 0 && len(c.Encryption.Key) != 32 {
		return errors.New("Encryption Key must be exactly 32 bytes")
	}

	// Events
	if c.Events.Enabled {
		if c.Events.BufferSize <= 0 {
			return errors.New("Events BufferSize must be > 0")
		}
		if c.Events.Retention < 0 {
			return errors.New("Events Retention must be >= 0")
		}
	}

	if c.StoreTimeout < 0 {
		return errors.New("StoreTimeout must be >= 0")
	}

	return nil
}
