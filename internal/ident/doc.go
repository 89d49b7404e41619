// Package ident computes deterministic identities for pedago records.
//
// Notification ids must be content-stable: regenerating a notification from
// unchanged state must yield the same id so that writing it to the log is a
// no-op. Cache keys and export document fingerprints are content hashes of
// RFC 8785 canonical JSON with domain separation, so the same logical input
// always hashes to the same key regardless of map iteration order.
package ident
