package session

import (
	"encoding/json"
	"errors"
)

// CurrentSchemaVersion is the record payload schema written by this
// build. Older versions are accepted on read and rewritten lazily.
const CurrentSchemaVersion = 1

// ErrRecordCorrupt is returned when a stored session payload cannot be
// decoded. Callers treat corrupt records as absent and purge them.
var ErrRecordCorrupt = errors.New("session record corrupt")

type envelope struct {
	SchemaVersion int    `json:"v"`
	Record        Record `json:"record"`
}

// Encode serializes a [Record] into the versioned plaintext payload
// that is sealed by [Cipher] before it reaches the store.
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil record")
	}
	if r.SessionID == "" {
		return nil, errors.New("record missing session id")
	}
	if r.UserID == "" {
		return nil, errors.New("record missing user id")
	}

	return json.Marshal(envelope{
		SchemaVersion: CurrentSchemaVersion,
		Record:        *r,
	})
}

// Decode parses a plaintext payload produced by [Encode]. Unknown
// schema versions and malformed payloads yield [ErrRecordCorrupt].
func Decode(data []byte) (*Record, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrRecordCorrupt
	}
	if env.SchemaVersion < 1 || env.SchemaVersion > CurrentSchemaVersion {
		return nil, ErrRecordCorrupt
	}
	if env.Record.SessionID == "" || env.Record.UserID == "" {
		return nil, ErrRecordCorrupt
	}

	rec := env.Record
	return &rec, nil
}
