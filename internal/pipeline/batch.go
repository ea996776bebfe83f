package pipeline

import (
	"fmt"

	"github.com/roach88/marrow/internal/model"
	"github.com/roach88/marrow/internal/track"
)

// Row is one physical row's pending write inside a batch: the write-record
// aggregate plus its declared dependencies on other rows in the same batch
// (foreign keys waiting on a principal's generated key).
type Row struct {
	record *track.WriteRecord
	op     track.EntryState // explicit op for column-modification rows
	deps   []dependency
}

type dependency struct {
	fk     *model.ForeignKey
	parent *Row
}

// Record returns the row's write record.
func (r *Row) Record() *track.WriteRecord { return r.record }

// state returns the row's effective operation: the first non-Unchanged
// record state in precedence order, or Unchanged when nothing writes.
// Column-modification rows use their explicitly declared op.
func (r *Row) state() track.EntryState {
	records := r.record.Records()
	if len(records) == 0 {
		return r.op
	}
	for _, rec := range records {
		if s := rec.State(); s != track.Unchanged {
			return s
		}
	}
	return track.Unchanged
}

// Batch collects pending writes for one save operation. Grouping records
// into rows is explicit and happens here, before any key resolution.
type Batch struct {
	mdl  *model.Model
	rows []*Row
}

// NewBatch creates an empty batch over a finalized model.
func NewBatch(mdl *model.Model) *Batch {
	return &Batch{mdl: mdl}
}

// AddRow groups one or more change records targeting a single physical row
// of the named table. Record order is the column-resolution precedence
// order. Returns the row handle for dependency declarations.
func (b *Batch) AddRow(tableName string, records ...*track.ChangeRecord) (*Row, error) {
	table, ok := b.mdl.Table(tableName)
	if !ok {
		return nil, &SaveError{Code: ErrCodeUnknownTable, Message: fmt.Sprintf("table %q not in model", tableName), Table: tableName}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("batch: row for table %q needs at least one record", tableName)
	}
	row := &Row{record: track.NewWriteRecord(table, records...)}
	b.rows = append(b.rows, row)
	return row, nil
}

// AddColumnRow adds a row described only by column modifications, the
// fallback path when change-tracking detail is unavailable. op declares
// what the row does, since no record state can.
func (b *Batch) AddColumnRow(tableName string, op track.EntryState, mods []track.ColumnModification) (*Row, error) {
	table, ok := b.mdl.Table(tableName)
	if !ok {
		return nil, &SaveError{Code: ErrCodeUnknownTable, Message: fmt.Sprintf("table %q not in model", tableName), Table: tableName}
	}
	row := &Row{record: track.NewColumnWriteRecord(table, mods), op: op}
	b.rows = append(b.rows, row)
	return row, nil
}

// DependOn declares that this row's named foreign key takes its value from
// parent's generated primary key. When the parent's key materializes
// during execution, the dependent columns are filled in and flagged
// provisional, so a failed batch unsets them again.
func (r *Row) DependOn(parent *Row, fkName string) error {
	for _, fk := range r.record.Table().ForeignKeys {
		if fk.Name == fkName {
			if fk.Target != parent.record.Table().Name {
				return fmt.Errorf("batch: foreign key %q targets %q, not %q", fkName, fk.Target, parent.record.Table().Name)
			}
			r.deps = append(r.deps, dependency{fk: fk, parent: parent})
			return nil
		}
	}
	return fmt.Errorf("batch: table %q has no foreign key %q", r.record.Table().Name, fkName)
}

// Rows returns the batch's rows in insertion order.
func (b *Batch) Rows() []*Row { return b.rows }

// Len returns the number of rows in the batch.
func (b *Batch) Len() int { return len(b.rows) }
