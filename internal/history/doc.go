// Package history owns the durable, versioned store of failure
// aggregates and every write path that mutates it.
//
// # Overview
//
// One Store holds an entire category's history (application exceptions,
// or nightly test failures / leaks / hangs). It is loaded wholesale,
// mutated in memory, and written back wholesale after each run; there
// is no partial persistence. Mutations come from exactly three places:
//
//   - the Aggregator merges a batch of newly observed occurrences
//     (creates entries, appends reports, moves first/last seen)
//   - the RetentionManager deletes entries unseen within the retention
//     window
//   - the AnnotationManager attaches fix and issue records, and
//     preserves them across full rebuilds (extract-then-reapply)
//
// # Durability
//
// Saves write to a temporary file and atomically replace the previous
// document, so an interrupted process can never leave a torn store.
// Because independent invocations (daily merge, ad hoc backfill) may
// race on the same file, callers hold an exclusive lock file for the
// whole load→mutate→save cycle; see AcquireLock.
//
// # Schema evolution
//
// The document carries a schema version. v1 stored one summarized
// record per fingerprint; v2 stores the full report list so derived
// statistics are always recomputable from raw data. v1 documents are
// upgraded once at load time — downstream code only ever sees v2.
package history
