// Package notify derives user-facing notifications from the student's state
// and keeps them in a durable, deduplicated log.
//
// Every notification id is derived from the fact it represents (chapter id,
// version, session time, calendar day). Regenerating from unchanged state
// therefore yields ids the log already holds, and merging them is a no-op.
//
// CRITICAL PATTERNS:
//   - The log is append-only: Merge adds unknown ids and never rewrites or
//     prunes existing entries.
//   - Expiry happens on read only: entries older than the retention window
//     are filtered out of Read, not deleted.
//   - Reads are cached for a short TTL keyed by the content hash of the
//     stored blob. Any state mutation must call Log.Invalidate.
package notify
