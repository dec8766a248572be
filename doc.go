// Package sessionguard provides a session security core with an encrypted
// Redis-backed session store, request fingerprinting, additive risk scoring,
// failed-login lockout, and an async security event stream.
//
// The package is designed for concurrent server workloads: Service methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// sessionguard is the public surface. It exposes [Service], [Builder], [Config],
// and value types (ValidationResult, MetricsSnapshot, LockStatus, etc.). All
// internal coordination — record encoding and encryption, lockout counting,
// event dispatch — lives under internal/ and the session, fingerprint, and risk
// sub-packages.
//
// # What this package must NOT do
//
//   - Expose Redis clients, record ciphers, or encoding details in its public API.
//   - Perform I/O outside of Service methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports sessionguard (no import cycles).
//
// # Performance contract
//
// Validate is the hot path. On the happy path it performs exactly one store
// read and one store write; drift rescoring is a pure in-memory computation
// on the fetched record.
package sessionguard
