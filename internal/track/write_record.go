package track

import "github.com/roach88/marrow/internal/model"

// ColumnModification is one column's pending write for one row, used when
// full change-tracking detail is unavailable and the pipeline only knows
// column-level before/after values.
type ColumnModification struct {
	ColumnName    string
	Value         any // value to write
	OriginalValue any // value before the operation
}

// WriteRecord aggregates everything contributing to one physical row's
// write: one or more ChangeRecords (shared-table mapping puts several
// tracked objects on one row) or, lacking those, plain column
// modifications.
//
// Grouping happens before key resolution begins; the resolver never
// discovers row aliasing on its own. Record order is the precedence order
// when more than one record can supply a column value: the last eligible
// record wins.
type WriteRecord struct {
	table   *model.Table
	records []*ChangeRecord
	mods    []ColumnModification
}

// NewWriteRecord groups tracked-object change records for one row.
func NewWriteRecord(table *model.Table, records ...*ChangeRecord) *WriteRecord {
	return &WriteRecord{table: table, records: records}
}

// NewColumnWriteRecord builds a write record from bare column
// modifications, the fallback path without change-tracking detail.
func NewColumnWriteRecord(table *model.Table, mods []ColumnModification) *WriteRecord {
	return &WriteRecord{table: table, mods: mods}
}

// Table returns the target table descriptor.
func (w *WriteRecord) Table() *model.Table { return w.table }

// Records returns the contributing change records in precedence order.
func (w *WriteRecord) Records() []*ChangeRecord { return w.records }

// Modifications returns the column-modification entries, if any.
func (w *WriteRecord) Modifications() []ColumnModification { return w.mods }

// Modification finds the pending modification for a column name.
func (w *WriteRecord) Modification(columnName string) (ColumnModification, bool) {
	for _, m := range w.mods {
		if m.ColumnName == columnName {
			return m, true
		}
	}
	return ColumnModification{}, false
}
