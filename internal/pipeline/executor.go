package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/marrow/internal/model"
	"github.com/roach88/marrow/internal/track"
)

// Open creates or opens a SQLite database at the given path and applies
// the required pragmas. Use ":memory:" for tests.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY and keeps :memory: databases on one handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return db, nil
}

// EnsureTables creates the model's tables if they don't exist. Idempotent.
//
// A single-column generated INTEGER primary key is declared as
// "INTEGER PRIMARY KEY" so it aliases SQLite's rowid and LastInsertId
// returns the generated key.
func (s *Saver) EnsureTables(ctx context.Context) error {
	for _, t := range s.mdl.Tables() {
		ddl := tableDDL(t)
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %q: %w", t.Name, err)
		}
	}
	return nil
}

func tableDDL(t *model.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)

	rowidPK := rowidAliasColumn(t)
	for i, col := range t.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "\t%s %s", col.Name(), col.StoreType())
		if col == rowidPK {
			b.WriteString(" PRIMARY KEY")
		}
	}
	if rowidPK == nil {
		names := columnNames(t.PrimaryKey.Columns)
		fmt.Fprintf(&b, ",\n\tPRIMARY KEY (%s)", strings.Join(names, ", "))
	}
	for _, fk := range t.ForeignKeys {
		fmt.Fprintf(&b, ",\n\tFOREIGN KEY (%s) REFERENCES %s", strings.Join(columnNames(fk.Columns), ", "), fk.Target)
	}
	b.WriteString("\n)")
	return b.String()
}

// rowidAliasColumn returns the primary-key column when it is a lone
// store-generated INTEGER column, nil otherwise.
func rowidAliasColumn(t *model.Table) *model.Column {
	if len(t.PrimaryKey.Columns) != 1 {
		return nil
	}
	col := t.PrimaryKey.Columns[0]
	if col.Generated() && strings.EqualFold(col.StoreType(), "INTEGER") {
		return col
	}
	return nil
}

func columnNames(cols []*model.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name()
	}
	return names
}

// executeRow runs one planned row inside the batch transaction.
func (s *Saver) executeRow(ctx context.Context, tx *sql.Tx, rp *RowPlan, result *SaveResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch rp.Op {
	case track.Added:
		return s.insertRow(ctx, tx, rp, result)
	case track.Modified:
		return s.updateRow(ctx, tx, rp, result)
	case track.Deleted:
		return s.deleteRow(ctx, tx, rp, result)
	default:
		return nil // Unchanged rows write nothing
	}
}

func (s *Saver) insertRow(ctx context.Context, tx *sql.Tx, rp *RowPlan, result *SaveResult) error {
	wr := rp.Row.record
	table := wr.Table()

	// Parent keys generated earlier in the batch flow into dependent
	// foreign-key columns before this row's values are collected.
	fillDependencies(rp.Row)

	var cols []string
	var vals []any
	for _, col := range table.Columns {
		v := currentColumnValue(col, wr)
		if v == nil {
			continue // store default or generated
		}
		cols = append(cols, col.Name())
		vals = append(vals, v)
	}

	var query string
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table.Name)
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table.Name, strings.Join(cols, ", "), placeholders(len(cols)))
	}
	res, err := tx.ExecContext(ctx, query, vals...)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table.Name, err)
	}
	result.Inserted++

	// Capture a store-generated key when the rowid-aliased pk had no value.
	if pkCol := rowidAliasColumn(table); pkCol != nil && currentColumnValue(pkCol, wr) == nil {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert into %s: last insert id: %w", table.Name, err)
		}
		for _, rec := range wr.Records() {
			if property, ok := pkCol.PropertyFor(rec.EntityType()); ok {
				rec.MarkGenerated(property, id)
			}
		}
		result.Generated = append(result.Generated, GeneratedKey{Table: table.Name, Key: id})
	}
	return nil
}

func (s *Saver) updateRow(ctx context.Context, tx *sql.Tx, rp *RowPlan, result *SaveResult) error {
	wr := rp.Row.record
	table := wr.Table()

	var sets []string
	var vals []any
	for _, col := range table.Columns {
		v, modified := modifiedColumnValue(col, wr)
		if !modified {
			continue
		}
		sets = append(sets, col.Name()+" = ?")
		vals = append(vals, v)
	}
	if len(sets) == 0 {
		return nil
	}

	where, keyVals := pkPredicate(table, rp.OriginalKey)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table.Name, strings.Join(sets, ", "), where)
	res, err := tx.ExecContext(ctx, query, append(vals, keyVals...)...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table.Name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: rows affected: %w", table.Name, err)
	}
	if affected == 0 {
		return fmt.Errorf("update %s: row not found", table.Name)
	}
	result.Updated++
	return nil
}

func (s *Saver) deleteRow(ctx context.Context, tx *sql.Tx, rp *RowPlan, result *SaveResult) error {
	table := rp.Row.record.Table()
	where, keyVals := pkPredicate(table, rp.OriginalKey)
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", table.Name, where)
	res, err := tx.ExecContext(ctx, query, keyVals...)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table.Name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: rows affected: %w", table.Name, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete from %s: row not found", table.Name)
	}
	result.Deleted++
	return nil
}

// fillDependencies copies the parent row's primary-key values into this
// row's dependent foreign-key columns, flagged provisional so rollback
// unsets them again. Values already present on the dependent are left
// alone.
func fillDependencies(row *Row) {
	for _, dep := range row.deps {
		parentTable := dep.parent.record.Table()
		for i, fkCol := range dep.fk.Columns {
			if i >= len(parentTable.PrimaryKey.Columns) {
				break
			}
			parentVal := currentColumnValue(parentTable.PrimaryKey.Columns[i], dep.parent.record)
			if parentVal == nil {
				continue
			}
			for _, rec := range row.record.Records() {
				property, ok := fkCol.PropertyFor(rec.EntityType())
				if !ok || rec.Current(property) != nil {
					continue
				}
				rec.MarkGenerated(property, parentVal)
			}
		}
	}
}

// currentColumnValue reads a column's value-to-write off the row: the last
// contributing record's current value, falling back to column
// modifications. Unlike key resolution this ignores eligibility rules:
// SQL building wants best-effort values.
func currentColumnValue(col *model.Column, wr *track.WriteRecord) any {
	var v any
	for _, rec := range wr.Records() {
		if property, ok := col.PropertyFor(rec.EntityType()); ok {
			if cv := rec.Current(property); cv != nil {
				v = cv
			}
		}
	}
	if v == nil {
		if m, ok := wr.Modification(col.Name()); ok {
			v = m.Value
		}
	}
	return v
}

// modifiedColumnValue reads a column's value when some record writes it
// this save.
func modifiedColumnValue(col *model.Column, wr *track.WriteRecord) (any, bool) {
	for _, rec := range wr.Records() {
		property, ok := col.PropertyFor(rec.EntityType())
		if !ok {
			continue
		}
		if rec.IsModified(property) {
			return rec.Current(property), true
		}
	}
	if m, ok := wr.Modification(col.Name()); ok {
		return m.Value, true
	}
	return nil, false
}

func pkPredicate(table *model.Table, key []any) (string, []any) {
	parts := make([]string, len(table.PrimaryKey.Columns))
	vals := make([]any, len(key))
	for i, col := range table.PrimaryKey.Columns {
		parts[i] = col.Name() + " = ?"
		vals[i] = key[i]
	}
	return strings.Join(parts, " AND "), vals
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
