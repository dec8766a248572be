package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisSink persists security events under date-partitioned keys so an
// operator can scan a day's worth of events with a single key pattern.
// Event writes are best effort: a failed write is logged and dropped,
// never surfaced to the session operation that produced the event.
type RedisSink struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	logger    zerolog.Logger
}

// NewRedisSink creates a [RedisSink]. A non-positive retention keeps
// events for 90 days.
func NewRedisSink(redisClient redis.UniversalClient, prefix string, retention time.Duration, logger zerolog.Logger) *RedisSink {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &RedisSink{
		redis:     redisClient,
		prefix:    prefix,
		retention: retention,
		logger:    logger,
	}
}

func (s *RedisSink) key(event Event) string {
	return s.prefix + "security_event:" + event.Timestamp.UTC().Format("20060102") + ":" + event.EventID
}

func (s *RedisSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.redis == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_type", event.EventType).Msg("security event encode failed")
		return
	}

	if err := s.redis.Set(ctx, s.key(event), data, s.retention).Err(); err != nil {
		s.logger.Warn().Err(err).Str("event_type", event.EventType).Msg("security event write failed")
	}
}
