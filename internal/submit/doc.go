// Package submit assembles export documents from chapter progress and
// delivers them to the submission sink.
//
// Delivery is defensive: the export document is written to durable storage
// under a pending key before the first network attempt, and the record is
// only removed once the sink accepted it. A crash, an exhausted retry budget
// or a permanent rejection all leave the pending record in place so the
// next run can surface it and retry.
//
// The pipeline never mutates progress. Callers mark the chapter as
// submitted from the returned Receipt.
package submit
