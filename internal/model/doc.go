// Package model provides the data types shared by every pedago package.
//
// This package contains type definitions and small helpers only. All other
// internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - ChapterDefinition is immutable once fetched; never mutate a definition
//     handed out by the catalog
//   - ChapterProgress optional sub-records (Videos, Lesson) are pointers;
//     applicability is decided by the definition, never by presence alone
//   - All JSON tags use snake_case
//   - Clone methods return deep copies so pure functions can derive new
//     state without aliasing the previous one
package model
