// Package store provides SQLite-backed storage for rule-application results.
//
// A run records one script applied to one document:
//   - Runs: script and document hashes plus engine and IR versions
//   - Rule matches: every finished RuleMatch with its canonical match tree
//     and fingerprint, matched or not
//   - Spans: spans the run created or removed
//
// # Ordering
//
// Runs are ordered by seq, a logical clock supplied by the caller. Matches
// are ordered by the position at which they finished within their run.
// Every query orders by seq, then id COLLATE BINARY, so results are stable
// across replays.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Pragmas are set through the driver DSN and checked on Open. Schema
// changes after schema.sql are numbered migrations tracked in user_version.
//
// Count and ReadMatches take typed queries from package queryir, compiled
// by package querysql.
//
// Tree hashes are computed by ir.MatchHash over canonical JSON.
package store
