// Package engine implements the single-writer reducer that owns the
// student's state.
//
// ARCHITECTURE:
//
// Single-Writer Command Loop:
// Every mutation is an Action dispatched through one FIFO queue and applied
// by the Run goroutine, one at a time. This ensures:
//   - No two actions ever interleave
//   - Each action sees the state left by the previous one
//   - Storage writes happen in dispatch order
//
// Action Processing:
//  1. Dispatch enqueues the action and waits for its result
//  2. Run dequeues it and applies it to a copy of the in-memory state
//  3. On success the copy replaces the state, the notification read cache
//     is invalidated and the state is flushed to storage
//  4. On error nothing changes
//
// Network work (catalog fetch, submission delivery) runs on the caller's
// goroutine, outside the loop. Only its result enters the loop, as an
// action.
//
// CRITICAL PATTERNS:
//
// All-or-nothing sync:
// Sync fetches first and reconciles second. A failed fetch returns a
// SyncError before anything is dispatched. Reconciliation runs inside the
// ApplySync action against the current in-memory state, never against a
// copy read earlier.
//
// Status transitions:
// a-venir -> en-cours only through StartChapter; en-cours -> acheve only
// through MarkWorkSubmitted on a complete chapter. Nothing removes acheve.
package engine
