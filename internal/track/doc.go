// Package track holds the in-memory change-tracking structures the write
// pipeline feeds into key resolution: per-object change records, the
// write-record aggregate that groups records targeting one physical row,
// and the identity map indexing tracked records by key tuple.
//
// A ChangeRecord carries both temporal sides of a pending write - the
// original value (before this save) and the current provider value (what
// will be written). Store-generated values materialized during a save are
// flagged so a failed batch can discard them again without guessing.
//
// Everything here is exclusively owned by a single save operation. There is
// no locking; two saves must never share a ChangeRecord.
package track
