// Package pipeline executes batched writes against SQLite and owns the
// failure-recovery contract around key resolution.
//
// A Batch groups pending change records into per-row write records before
// any resolution happens. Planning resolves every row's key tuple in both
// temporal modes via internal/rowkey, rejects two pending writes targeting
// the same row, and refuses updates or deletes whose pre-save identity
// cannot be resolved.
//
// Execution runs the whole batch in one transaction. Store-generated keys
// are captured as they materialize and propagated into tracked records and
// dependent foreign keys, flagged as provisional. On failure the rollback
// coordinator discards every provisional value and restores the identity
// map to its pre-save indexing, so re-querying tracked objects by their
// original keys behaves as if the save never started.
//
// Key resolution happens strictly before and after the database I/O, never
// concurrently with it for the same write record.
package pipeline
