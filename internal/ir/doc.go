// Package ir provides the intermediate representation shared by the
// flowlint extractor, rules, suggestion engine and store.
//
// This package contains type definitions and canonical serialization only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - IR and diagnostics are built fresh per validation call
//   - Calls are recorded in source evaluation order
//   - All JSON tags use snake_case
//   - Canonical JSON (RFC 8785) is the only input to content hashes
package ir
