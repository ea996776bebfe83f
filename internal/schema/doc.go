// Package schema loads and finalizes marrow's relational model from CUE
// files: tables, ordered key columns, per-column comparer kinds,
// store-generated flags, and the entity-type-to-property mappings that
// back shared-table rows.
//
// Loading is the construction-time boundary of the error design: every
// metadata defect (missing comparer kind, key over unknown columns,
// unmapped column) is reported here with a code and CUE position and
// aborts setup. Nothing the loader accepts can later fail per row for
// metadata reasons.
package schema
