// Package store provides SQLite-backed durable local storage for pedago.
//
// The store plays the role of the browser's local storage: a flat
// key/value table holding
//   - the application state blob (profile, progress, order, versions, view)
//   - the notification log
//   - one record per undelivered submission, keyed by prefix + timestamp
//
// # Critical Patterns
//
// Single writer:
//   - SetMaxOpenConns(1); every mutation is one statement, so a reader
//     never observes a half-written value
//
// Corruption tolerance:
//   - LoadState never fails on a malformed blob; it reports the blob as
//     discarded and returns first-run defaults
//
// Deterministic listing:
//   - List results are ORDER BY key ASC so pending submissions enumerate
//     in creation order
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
package store
