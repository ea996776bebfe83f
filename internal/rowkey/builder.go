package rowkey

import (
	"fmt"

	"github.com/roach88/marrow/internal/model"
	"github.com/roach88/marrow/internal/track"
)

// KeyTuple is an ordered sequence of nullable provider values, one per key
// column, positionally matching the builder's column order. A tuple is
// complete only when every position is non-nil; incomplete tuples must
// never index the identity map.
type KeyTuple = []any

// Builder produces key tuples for one key (primary or foreign) from raw
// value slices, name-keyed maps, or write records. Built once when the
// model is finalized; immutable and safe for concurrent reads.
type Builder struct {
	columns  []*model.Column
	comparer *Comparer
}

// NewBuilder validates the column set and precomposes the tuple comparer.
// Metadata defects (no columns, missing comparer) abort setup here rather
// than surfacing per row.
func NewBuilder(columns []*model.Column) (*Builder, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("rowkey: builder needs at least one column")
	}
	for i, c := range columns {
		if c == nil {
			return nil, fmt.Errorf("rowkey: column %d is nil", i)
		}
		if c.Comparer() == nil {
			return nil, fmt.Errorf("rowkey: column %q has no value comparer", c.Name())
		}
	}
	return &Builder{columns: columns, comparer: newComparer(columns)}, nil
}

// NewKeyBuilder builds a Builder for a model key.
func NewKeyBuilder(key *model.Key) (*Builder, error) {
	if key == nil {
		return nil, fmt.Errorf("rowkey: key is nil")
	}
	return NewBuilder(key.Columns)
}

// Columns returns the builder's columns in tuple order.
func (b *Builder) Columns() []*model.Column { return b.columns }

// Comparer returns the composite tuple comparer for this key.
func (b *Builder) Comparer() *Comparer { return b.comparer }

// FromValues reinterprets an already column-ordered value slice as the key
// tuple, without copying. The tuple is complete when no position is nil
// and the length matches the column count.
func (b *Builder) FromValues(vals KeyTuple) (KeyTuple, bool) {
	if len(vals) != len(b.columns) {
		return vals, false
	}
	for _, v := range vals {
		if v == nil {
			return vals, false
		}
	}
	return vals, true
}

// FromMap builds a fresh tuple from a column-name-keyed value map. Each
// column is looked up by name exactly once; tuple order follows column
// order regardless of map iteration order. An absent name or nil value
// means no key.
func (b *Builder) FromMap(values map[string]any) (KeyTuple, bool) {
	tuple := make(KeyTuple, len(b.columns))
	complete := true
	for i, col := range b.columns {
		v, ok := values[col.Name()]
		if !ok || v == nil {
			complete = false
		}
		tuple[i] = v
	}
	return tuple, complete
}

// FromWriteRecord resolves the key tuple for one row's pending write.
// fromOriginal selects the temporal mode: pre-save values when true,
// values being written when false.
//
// With change records present, each column is resolved entity-by-entity:
// records whose entity type does not map the column are excluded; mapped
// records contribute only when their state can vouch for the value at the
// requested point in time (see eligibleCurrent / eligibleOriginal). A
// column mapped by no record, or mapped only by records that cannot vouch
// for it, yields no key. When several records are eligible the last one in
// record order wins.
//
// Without change records the column-modification entries are consulted
// instead, matched by column name.
//
// A nil resolved value does not stop resolution - remaining columns are
// still resolved - but marks the tuple incomplete.
func (b *Builder) FromWriteRecord(w *track.WriteRecord, fromOriginal bool) (KeyTuple, bool) {
	tuple := make(KeyTuple, len(b.columns))
	complete := true

	for i, col := range b.columns {
		if records := w.Records(); len(records) > 0 {
			v, ok := resolveFromRecords(col, records, fromOriginal)
			if !ok {
				return nil, false
			}
			if v == nil {
				complete = false
			}
			tuple[i] = v
			continue
		}

		mod, ok := w.Modification(col.Name())
		if !ok {
			return nil, false
		}
		v := mod.Value
		if fromOriginal {
			v = mod.OriginalValue
		}
		if v == nil {
			complete = false
		}
		tuple[i] = v
	}

	return tuple, complete
}

// resolveFromRecords finds one column's value across the change records
// sharing the row. The read pass runs for every mapped record, eligible or
// not; the returned value is the last eligible read. Returns false when no
// record maps the column or none is eligible in the requested temporal
// mode (temporal mismatch).
func resolveFromRecords(col *model.Column, records []*track.ChangeRecord, fromOriginal bool) (any, bool) {
	var value any
	foundMapping := false
	eligible := false

	for _, rec := range records {
		property, mapped := col.PropertyFor(rec.EntityType())
		if !mapped {
			continue
		}
		foundMapping = true

		var v any
		if fromOriginal {
			v = rec.Original(property)
			if eligibleOriginal(rec, property) {
				value = v
				eligible = true
			}
		} else {
			v = rec.Current(property)
			if eligibleCurrent(rec, property) {
				value = v
				eligible = true
			}
		}
		if !eligible {
			value = v
		}
	}

	if !foundMapping || !eligible {
		return nil, false
	}
	return value, true
}

// eligibleCurrent reports whether a record can vouch for a property's
// current value: the row is newly inserted, or this property is being
// written this save.
func eligibleCurrent(rec *track.ChangeRecord, property string) bool {
	return rec.State() == track.Added || rec.IsModified(property)
}

// eligibleOriginal reports whether a record can vouch for a property's
// pre-save value: the record writes nothing, it is being deleted (its
// stored values are the pre-image), or it is being updated and this
// property stays untouched. Values from the other side of the temporal
// boundary - notably a just-generated current value - must never leak
// into an original tuple.
func eligibleOriginal(rec *track.ChangeRecord, property string) bool {
	return rec.State() == track.Unchanged || rec.State() == track.Deleted ||
		(rec.State() == track.Modified && !rec.IsModified(property))
}
