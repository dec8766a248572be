// Package risk scores how suspicious a session's context looks, both
// at creation time (device/location novelty, bot and VPN signals) and
// during validation (IP and device drift). The scorer owns the
// known-device and last-seen-country auxiliary sets; it never reads or
// writes session records.
package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/altwave/sessionguard/fingerprint"
	"github.com/altwave/sessionguard/session"
)

// ErrScorerUnavailable indicates the auxiliary-set backend is unreachable.
var ErrScorerUnavailable = errors.New("risk scorer backend unavailable")

// Additive creation-time signal weights and validation-time drift
// penalties. Scores are capped at 1.0.
const (
	weightBotDevice  = 0.3
	weightVPNOrProxy = 0.2
	weightNewDevice  = 0.3
	weightNewCountry = 0.4

	penaltyIPDrift     = 0.2
	penaltyDeviceDrift = 0.3
)

// Config holds scorer tuning parameters.
type Config struct {
	SuspiciousThreshold float64
	KnownDeviceTTL      time.Duration
	LastCountryTTL      time.Duration
	TrackDevices        bool
	TrackLocations      bool
}

// Verdict is the outcome of a validation-time rescore.
type Verdict uint8

const (
	// VerdictAccept is an exported constant or variable used by the session security core.
	VerdictAccept Verdict = iota
	// VerdictReject is an exported constant or variable used by the session security core.
	VerdictReject
)

// Assessment is the result of [Scorer.Rescore]: the updated metrics
// plus which drift signals fired and whether the running score crossed
// the suspicious threshold.
type Assessment struct {
	Metrics       session.SecurityMetrics
	Verdict       Verdict
	IPDrifted     bool
	DeviceDrifted bool
}

// Changed reports whether any drift penalty was applied.
func (a Assessment) Changed() bool {
	return a.IPDrifted || a.DeviceDrifted
}

// Scorer computes session risk. Creation-time scoring consults the
// per-user known-device set and last-seen country in Redis; rescoring
// is a pure function of the stored record and the observed request.
//
//	Docs: docs/risk.md
type Scorer struct {
	redis  redis.UniversalClient
	config Config
	prefix string
}

// NewScorer creates a [Scorer] backed by the given Redis client.
func NewScorer(redisClient redis.UniversalClient, prefix string, cfg Config) *Scorer {
	if cfg.SuspiciousThreshold <= 0 {
		cfg.SuspiciousThreshold = 0.7
	}
	if cfg.KnownDeviceTTL <= 0 {
		cfg.KnownDeviceTTL = 90 * 24 * time.Hour
	}
	if cfg.LastCountryTTL <= 0 {
		cfg.LastCountryTTL = 30 * 24 * time.Hour
	}
	return &Scorer{redis: redisClient, config: cfg, prefix: prefix}
}

func (s *Scorer) deviceKey(userID string) string {
	return s.prefix + "user_devices:" + userID
}

func (s *Scorer) countryKey(userID string) string {
	return s.prefix + "user_last_country:" + userID
}

// Score computes the creation-time [session.SecurityMetrics] for a new
// session. Novel fingerprints are added to the user's known-device set
// with a rolling TTL, and the last-seen country is updated.
//
//	Performance: up to 4 Redis commands, only when tracking is enabled.
//	Docs: docs/risk.md
func (s *Scorer) Score(ctx context.Context, userID string, device session.DeviceInfo, location session.LocationInfo, now time.Time) (session.SecurityMetrics, error) {
	var score float64

	if device.IsBot {
		score += weightBotDevice
	}
	if location.IsVPN || location.IsProxy {
		score += weightVPNOrProxy
	}

	if s.config.TrackDevices && device.Fingerprint != "" {
		known, err := s.knownDevice(ctx, userID, device.Fingerprint)
		if err != nil {
			return session.SecurityMetrics{}, err
		}
		if !known {
			score += weightNewDevice
		}
	}

	if s.config.TrackLocations && !location.IsInternal && location.CountryCode != "" {
		lastCountry, err := s.lastCountry(ctx, userID, location.CountryCode)
		if err != nil {
			return session.SecurityMetrics{}, err
		}
		if lastCountry != "" && lastCountry != location.CountryCode {
			score += weightNewCountry
		}
	}

	score = capScore(score)

	return session.SecurityMetrics{
		RiskScore:      score,
		RiskLevel:      session.LevelForScore(score),
		LastActivityAt: now,
	}, nil
}

// knownDevice checks membership and registers the fingerprint with a
// rolling TTL in one pipeline.
func (s *Scorer) knownDevice(ctx context.Context, userID, fp string) (bool, error) {
	key := s.deviceKey(userID)

	pipe := s.redis.TxPipeline()
	isMember := pipe.SIsMember(ctx, key, fp)
	pipe.SAdd(ctx, key, fp)
	pipe.Expire(ctx, key, s.config.KnownDeviceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", ErrScorerUnavailable, err)
	}

	return isMember.Val(), nil
}

// lastCountry returns the previously seen country code and records the
// observed one.
func (s *Scorer) lastCountry(ctx context.Context, userID, code string) (string, error) {
	key := s.countryKey(userID)

	previous, err := s.redis.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %v", ErrScorerUnavailable, err)
	}

	if err := s.redis.Set(ctx, key, code, s.config.LastCountryTTL).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrScorerUnavailable, err)
	}

	return previous, nil
}

// Rescore evaluates an in-flight session against the observed request.
// Drift penalties accumulate on the record's running score; the score
// never decreases within a session. The verdict is Reject once the
// running score exceeds the suspicious threshold.
//
// Rescore is pure: it performs no I/O and does not mutate the record.
func (s *Scorer) Rescore(rec *session.Record, observedIP, observedUA, observedFingerprint string) Assessment {
	metrics := rec.Metrics

	ipDrifted := false
	if !fingerprint.AcceptableIPChange(rec.Location.IPAddress, observedIP) {
		metrics.RiskScore = capScore(metrics.RiskScore + penaltyIPDrift)
		metrics.LocationChanges++
		ipDrifted = true
	}

	deviceDrifted := false
	if observedFingerprint != rec.Device.Fingerprint {
		if !fingerprint.SameDeviceFamily(rec.Device, observedUA) {
			metrics.RiskScore = capScore(metrics.RiskScore + penaltyDeviceDrift)
			metrics.DeviceChanges++
			deviceDrifted = true
		}
	}

	metrics.RiskLevel = session.LevelForScore(metrics.RiskScore)

	verdict := VerdictAccept
	if metrics.RiskScore > s.config.SuspiciousThreshold {
		verdict = VerdictReject
	}

	return Assessment{
		Metrics:       metrics,
		Verdict:       verdict,
		IPDrifted:     ipDrifted,
		DeviceDrifted: deviceDrifted,
	}
}

// Threshold returns the configured suspicious-risk threshold.
func (s *Scorer) Threshold() float64 {
	return s.config.SuspiciousThreshold
}

func capScore(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}
