package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable is an exported constant or variable used by the session security core.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrNotFound is returned when a session record is absent, expired, or
// undecryptable. The three cases are deliberately indistinguishable to
// callers so that validation fails closed.
var ErrNotFound = errors.New("session not found")

const deleteSessionScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is the Redis-backed session store. Record payloads are sealed
// with AES-256-GCM before they reach Redis; the per-user session index
// is a plain set of session ids. Writes that change the record's
// expiry also refresh the key-level TTL so records self-clean.
//
//	Docs: docs/session.md
type Store struct {
	redis     redis.UniversalClient
	cipher    *Cipher
	prefix    string
	retention time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix namespaces every key; retention is the short audit window a
// revoked or expired record remains readable before Redis drops it.
//
//	Docs: docs/session.md
func NewStore(redis redis.UniversalClient, cipher *Cipher, prefix string, retention time.Duration) *Store {
	if retention <= 0 {
		retention = 5 * time.Minute
	}
	return &Store{
		redis:     redis,
		cipher:    cipher,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + "sessions:user:" + userID
}

func (s *Store) anomalyKey(sessionID, kind string) string {
	return s.prefix + "anomaly:" + sessionID + ":" + kind
}

func (s *Store) seal(rec *Record) ([]byte, error) {
	plaintext, err := Encode(rec)
	if err != nil {
		return nil, err
	}
	return s.cipher.Seal(plaintext)
}

func (s *Store) open(data []byte) (*Record, error) {
	plaintext, err := s.cipher.Open(data)
	if err != nil {
		return nil, ErrRecordCorrupt
	}
	return Decode(plaintext)
}

// Save persists a [Record] with the given TTL and indexes it under the
// owning user.
//
//	Performance: 2 Redis commands in one transaction (SET + SADD).
//	Docs: docs/session.md
func (s *Store) Save(ctx context.Context, rec *Record, ttl time.Duration) error {
	data, err := s.seal(rec)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(rec.SessionID), data, ttl)
		pipe.SAdd(ctx, s.userKey(rec.UserID), rec.SessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// Update rewrites an already-indexed record, preserving its absolute
// expiry as the key TTL. This is the single write of the validation
// hot path.
//
//	Performance: 1 Redis SET.
//	Docs: docs/session.md
func (s *Store) Update(ctx context.Context, rec *Record, now time.Time) error {
	data, err := s.seal(rec)
	if err != nil {
		return err
	}

	ttl := rec.ExpiresAt.Sub(now)
	if ttl <= 0 {
		ttl = s.retention
	}

	if err := s.redis.Set(ctx, s.key(rec.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get retrieves and decrypts a record. Absent, corrupt, and expired
// records all surface as [ErrNotFound]; corrupt payloads are purged,
// expired ones are retired to the audit retention window with status
// Expired.
//
//	Performance: 1 Redis GET on the success path.
//	Docs: docs/session.md
func (s *Store) Get(ctx context.Context, sessionID string, now time.Time) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec, err := s.open(data)
	if err != nil {
		// Cannot recover the owning user from a corrupt blob; the index
		// entry is reconciled by the next sweep.
		_ = s.redis.Del(ctx, s.key(sessionID)).Err()
		return nil, ErrNotFound
	}

	if rec.Status == StatusActive && rec.IsExpired(now) {
		rec.Status = StatusExpired
		if err := s.Retire(ctx, rec); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	return rec, nil
}

// Retire rewrites a record that has left the Active state, shortens
// its TTL to the audit retention window, and drops it from the user's
// active index.
//
//	Performance: 2 Redis commands in one transaction (SET + SREM).
//	Docs: docs/session.md
func (s *Store) Retire(ctx context.Context, rec *Record) error {
	data, err := s.seal(rec)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(rec.SessionID), data, s.retention)
		pipe.SRem(ctx, s.userKey(rec.UserID), rec.SessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// Purge removes a record and its index entry immediately, with no
// audit retention. Idempotent.
//
//	Performance: 1 Lua EVALSHA (DEL + SREM).
//	Docs: docs/session.md
func (s *Store) Purge(ctx context.Context, userID, sessionID string) error {
	keys := []string{s.key(sessionID), s.userKey(userID)}
	if err := deleteSessionLua.Run(ctx, s.redis, keys, sessionID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// SessionIDs returns the tracked session ids for a user.
func (s *Store) SessionIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ids, nil
}

// RemoveFromIndex drops a session id from a user's index without
// touching the record itself. Used when the index references a record
// that no longer decodes.
func (s *Store) RemoveFromIndex(ctx context.Context, userID, sessionID string) error {
	if err := s.redis.SRem(ctx, s.userKey(userID), sessionID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ShouldEmitAnomaly returns true only for the first anomaly of a kind
// per session within the window. Repeated drift on a flapping
// connection emits one event, not one per request.
func (s *Store) ShouldEmitAnomaly(ctx context.Context, sessionID, kind string, window time.Duration) (bool, error) {
	if window <= 0 {
		window = time.Minute
	}
	key := s.anomalyKey(sessionID, kind)

	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return true, nil
	}

	return false, nil
}

// GetMany fetches multiple records without mutating any Redis state.
// Missing, corrupt, and expired entries are skipped.
//
//	Performance: 1 pipelined round-trip of n GETs.
func (s *Store) GetMany(ctx context.Context, sessionIDs []string, now time.Time) ([]*Record, error) {
	if len(sessionIDs) == 0 {
		return []*Record{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(sessionIDs))
	for i, sid := range sessionIDs {
		cmds[i] = pipe.Get(ctx, s.key(sid))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	records := make([]*Record, 0, len(sessionIDs))
	for _, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, cmdErr)
		}

		rec, decErr := s.open(data)
		if decErr != nil {
			continue
		}
		if rec.IsExpired(now) {
			continue
		}

		records = append(records, rec)
	}

	return records, nil
}

// Sweep walks every session key, expires stale Active records into the
// retention window, and purges undecryptable blobs. This is an O(n)
// maintenance operation and must not run on the request path.
//
//	Docs: docs/session.md
func (s *Store) Sweep(ctx context.Context, now time.Time) (expired, purged int, err error) {
	pattern := s.prefix + "session:*"
	var cursor uint64

	for {
		keys, next, scanErr := s.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if scanErr != nil {
			return expired, purged, fmt.Errorf("%w: %v", ErrStoreUnavailable, scanErr)
		}

		for _, key := range keys {
			data, getErr := s.redis.Get(ctx, key).Bytes()
			if getErr != nil {
				if errors.Is(getErr, redis.Nil) {
					continue
				}
				return expired, purged, fmt.Errorf("%w: %v", ErrStoreUnavailable, getErr)
			}

			rec, decErr := s.open(data)
			if decErr != nil {
				if delErr := s.redis.Del(ctx, key).Err(); delErr != nil {
					return expired, purged, fmt.Errorf("%w: %v", ErrStoreUnavailable, delErr)
				}
				purged++
				continue
			}

			if rec.Status == StatusActive && rec.IsExpired(now) {
				rec.Status = StatusExpired
				if retErr := s.Retire(ctx, rec); retErr != nil {
					return expired, purged, retErr
				}
				expired++
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return expired, purged, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
