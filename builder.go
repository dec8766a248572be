package sessionguard

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/altwave/sessionguard/internal/events"
	"github.com/altwave/sessionguard/internal/limiters"
	"github.com/altwave/sessionguard/risk"
	"github.com/altwave/sessionguard/session"
)

// Builder defines a public type used by sessionguard APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	eventSink EventSink
	geo       GeoResolver
	logger    *zerolog.Logger
	clock     func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSecret sets the master secret the record encryption key is
// derived from. Shorthand for setting Config.Encryption.Secret; call it
// after WithConfig or the config replaces it.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.Encryption.Secret = secret
	return b
}

// WithEventSink describes the witheventsink operation and its observable behavior.
//
// WithEventSink may return an error when input validation, dependency calls, or security checks fail.
// WithEventSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

// WithGeoResolver describes the withgeoresolver operation and its observable behavior.
//
// WithGeoResolver may return an error when input validation, dependency calls, or security checks fail.
// WithGeoResolver does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithGeoResolver(resolver GeoResolver) *Builder {
	b.geo = resolver
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger may return an error when input validation, dependency calls, or security checks fail.
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithClock overrides the time source. Intended for tests.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	clock := time.Now
	if b.clock != nil {
		clock = b.clock
	}

	// -------- RECORD CIPHER --------
	var (
		cipher *session.Cipher
		err    error
	)
	if len(cfg.Encryption.Key) > 0 {
		cipher, err = session.NewCipher(cfg.Encryption.Key)
	} else {
		cipher, err = session.NewCipherFromSecret(cfg.Encryption.Secret)
	}
	if err != nil {
		return nil, err
	}

	// -------- SESSION STORE --------
	store := session.NewStore(
		b.redis,
		cipher,
		cfg.Session.RedisPrefix,
		cfg.Session.RevokedRetention,
	)

	// -------- RISK SCORER --------
	scorer := risk.NewScorer(b.redis, cfg.Session.RedisPrefix, risk.Config{
		SuspiciousThreshold: cfg.Risk.SuspiciousThreshold,
		KnownDeviceTTL:      cfg.Risk.KnownDeviceTTL,
		LastCountryTTL:      cfg.Risk.LastCountryTTL,
		TrackDevices:        cfg.Risk.TrackDevices,
		TrackLocations:      cfg.Risk.TrackLocations,
	})

	// -------- LOCKOUT LIMITER --------
	lockout := limiters.NewLockoutLimiter(b.redis, limiters.LockoutConfig{
		Enabled:     cfg.Lockout.Enabled,
		MaxAttempts: cfg.Lockout.MaxAttempts,
		Duration:    cfg.Lockout.Duration,
		KeyPrefix:   cfg.Session.RedisPrefix,
	})

	// -------- EVENT DISPATCHER --------
	sink := b.eventSink
	if sink == nil && cfg.Events.Enabled {
		sink = events.NewRedisSink(b.redis, cfg.Session.RedisPrefix, cfg.Events.Retention, logger)
	}
	dispatcher := events.NewDispatcher(events.Config{
		Enabled:    cfg.Events.Enabled,
		BufferSize: cfg.Events.BufferSize,
		DropIfFull: cfg.Events.DropIfFull,
	}, sink)

	svc := &Service{
		config:  cfg,
		store:   store,
		scorer:  scorer,
		lockout: lockout,
		events:  dispatcher,
		metrics: NewMetrics(cfg.Metrics),
		geo:     b.geo,
		logger:  logger,
		clock:   clock,
	}

	b.built = true

	return svc, nil
}
