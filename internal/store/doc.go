// Package store keeps a SQLite history of validation runs.
//
// Each run records which tool produced it, the hash of the analyzed source
// and the diagnostic counts. Its diagnostics are stored in report order
// together with a content fingerprint and the canonical JSON payload, so a
// later run over the same source can be compared finding by finding.
//
// # Ordering
//
// Runs are ordered by seq, a logical clock assigned inside the insert
// transaction. Wall time is never stored. Diagnostics are ordered by their
// ordinal within the run.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
