// Package rowkey builds and compares composite row key tuples for the
// write pipeline.
//
// A Builder is constructed once per key from the finalized column list and
// produces key tuples from three sources: a raw value slice already in
// column order, a name-keyed value map, or a write record spanning one or
// more change records (the dependent resolver). The resolver understands
// the temporal split between original values (before the save) and current
// provider values (what will be written), and refuses to vouch for a
// column when no contributing record can supply it at the requested point
// in time.
//
// Resolution failure is never an error: builders return (tuple, false) and
// the pipeline decides what an unresolvable key means for that row.
// Comparison and hashing delegate entirely to each column's provider
// comparer; a tuple is never compared structurally.
package rowkey
