package schema

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/marrow/internal/model"
)

// CompileTable parses a CUE value into a finalized table descriptor.
// The CUE value is the table struct itself, e.g.:
//
//	table: orders: {
//		columns: [
//			{name: "id", type: "INTEGER", generated: true, mappings: {Order: "ID"}},
//			{name: "code", comparer: "folded_string", mappings: {Order: "Code"}},
//		]
//		primaryKey: ["id"]
//	}
func CompileTable(v cue.Value) (*model.Table, error) {
	if err := v.Err(); err != nil {
		return nil, &CompileError{Field: "table", Message: err.Error(), Pos: v.Pos()}
	}

	var name string
	if labels := v.Path().Selectors(); len(labels) > 0 {
		name = labels[len(labels)-1].String()
	}

	columns, byName, err := compileColumns(v)
	if err != nil {
		return nil, err
	}

	pk, err := compilePrimaryKey(v, name, byName)
	if err != nil {
		return nil, err
	}

	fks, err := compileForeignKeys(v, byName)
	if err != nil {
		return nil, err
	}

	table, buildErr := model.NewTable(name, columns, pk, fks)
	if buildErr != nil {
		return nil, &CompileError{Field: "table", Message: buildErr.Error(), Pos: v.Pos()}
	}
	return table, nil
}

func compileColumns(v cue.Value) ([]*model.Column, map[string]*model.Column, error) {
	columnsVal := v.LookupPath(cue.ParsePath("columns"))
	if !columnsVal.Exists() {
		return nil, nil, &CompileError{Field: "columns", Message: "columns is required", Pos: v.Pos()}
	}
	iter, err := columnsVal.List()
	if err != nil {
		return nil, nil, &CompileError{Field: "columns", Message: fmt.Sprintf("columns must be a list: %v", err), Pos: columnsVal.Pos()}
	}

	var columns []*model.Column
	byName := make(map[string]*model.Column)
	for iter.Next() {
		col, err := compileColumn(iter.Value())
		if err != nil {
			return nil, nil, err
		}
		columns = append(columns, col)
		byName[col.Name()] = col
	}
	if len(columns) == 0 {
		return nil, nil, &CompileError{Field: "columns", Message: "at least one column is required", Pos: columnsVal.Pos()}
	}
	return columns, byName, nil
}

func compileColumn(v cue.Value) (*model.Column, error) {
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{Field: "name", Message: "column name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, &CompileError{Field: "name", Message: err.Error(), Pos: nameVal.Pos()}
	}

	storeType := ""
	if tv := v.LookupPath(cue.ParsePath("type")); tv.Exists() {
		if storeType, err = tv.String(); err != nil {
			return nil, &CompileError{Field: "type", Message: err.Error(), Pos: tv.Pos()}
		}
	}

	kind := model.ComparerDefault
	if cv := v.LookupPath(cue.ParsePath("comparer")); cv.Exists() {
		s, err := cv.String()
		if err != nil {
			return nil, &CompileError{Field: "comparer", Message: err.Error(), Pos: cv.Pos()}
		}
		kind = model.ComparerKind(s)
	}
	comparer, err := model.ComparerFor(kind)
	if err != nil {
		return nil, &CompileError{Field: "comparer", Message: err.Error(), Pos: v.Pos()}
	}

	generated := false
	if gv := v.LookupPath(cue.ParsePath("generated")); gv.Exists() {
		if generated, err = gv.Bool(); err != nil {
			return nil, &CompileError{Field: "generated", Message: err.Error(), Pos: gv.Pos()}
		}
	}

	mappingsVal := v.LookupPath(cue.ParsePath("mappings"))
	if !mappingsVal.Exists() {
		return nil, &CompileError{Field: "mappings", Message: fmt.Sprintf("column %q: mappings is required", name), Pos: v.Pos()}
	}
	fields, err := mappingsVal.Fields()
	if err != nil {
		return nil, &CompileError{Field: "mappings", Message: err.Error(), Pos: mappingsVal.Pos()}
	}
	mappings := make(map[string]string)
	for fields.Next() {
		property, err := fields.Value().String()
		if err != nil {
			return nil, &CompileError{Field: "mappings", Message: err.Error(), Pos: fields.Value().Pos()}
		}
		mappings[fields.Label()] = property
	}

	col, buildErr := model.NewColumn(name, storeType, comparer, generated, mappings)
	if buildErr != nil {
		return nil, &CompileError{Field: "mappings", Message: buildErr.Error(), Pos: v.Pos()}
	}
	return col, nil
}

func compilePrimaryKey(v cue.Value, tableName string, byName map[string]*model.Column) (*model.Key, error) {
	pkVal := v.LookupPath(cue.ParsePath("primaryKey"))
	if !pkVal.Exists() {
		return nil, &CompileError{Field: "primaryKey", Message: "primaryKey is required", Pos: v.Pos()}
	}
	names, err := stringList(pkVal)
	if err != nil {
		return nil, &CompileError{Field: "primaryKey", Message: err.Error(), Pos: pkVal.Pos()}
	}
	cols, err := resolveColumns(names, byName)
	if err != nil {
		return nil, &CompileError{Field: "primaryKey", Message: err.Error(), Pos: pkVal.Pos()}
	}
	return &model.Key{Name: "pk_" + tableName, Columns: cols}, nil
}

func compileForeignKeys(v cue.Value, byName map[string]*model.Column) ([]*model.ForeignKey, error) {
	fksVal := v.LookupPath(cue.ParsePath("foreignKeys"))
	if !fksVal.Exists() {
		return nil, nil
	}
	iter, err := fksVal.List()
	if err != nil {
		return nil, &CompileError{Field: "foreignKeys", Message: fmt.Sprintf("foreignKeys must be a list: %v", err), Pos: fksVal.Pos()}
	}

	var fks []*model.ForeignKey
	for iter.Next() {
		fkVal := iter.Value()

		name, err := requiredString(fkVal, "name")
		if err != nil {
			return nil, &CompileError{Field: "foreignKeys", Message: err.Error(), Pos: fkVal.Pos()}
		}
		target, err := requiredString(fkVal, "target")
		if err != nil {
			return nil, &CompileError{Field: "foreignKeys", Message: err.Error(), Pos: fkVal.Pos()}
		}
		colsVal := fkVal.LookupPath(cue.ParsePath("columns"))
		names, err := stringList(colsVal)
		if err != nil {
			return nil, &CompileError{Field: "foreignKeys", Message: err.Error(), Pos: fkVal.Pos()}
		}
		cols, err := resolveColumns(names, byName)
		if err != nil {
			return nil, &CompileError{Field: "foreignKeys", Message: err.Error(), Pos: fkVal.Pos()}
		}

		fks = append(fks, &model.ForeignKey{Name: name, Columns: cols, Target: target})
	}
	return fks, nil
}

func stringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, fmt.Errorf("expected a list of strings")
	}
	iter, err := v.List()
	if err != nil {
		return nil, fmt.Errorf("expected a list of strings: %w", err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", fmt.Errorf("%s is required", field)
	}
	return fv.String()
}

func resolveColumns(names []string, byName map[string]*model.Column) ([]*model.Column, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one column is required")
	}
	cols := make([]*model.Column, len(names))
	for i, n := range names {
		col, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", n)
		}
		cols[i] = col
	}
	return cols, nil
}
