// Package reconcile merges freshly fetched chapter content against the
// student's stored progress.
//
// Sync is a pure function of (VersionMap, ProgressStore, Catalog): it never
// mutates its inputs and reads no ambient state. The caller installs the
// returned Result atomically, so a failed fetch or a rejected result leaves
// the stored progress exactly as it was.
//
// Version stamps are opaque. Any difference between the stored and fetched
// stamp, including a downgrade, is a content update. On an update, answers
// and feedback for ids that disappeared from the definition are dropped:
// invalidation, not merge.
package reconcile
