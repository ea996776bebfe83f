package model

import "fmt"

// Key is an ordered set of columns identifying a row: the primary key or a
// unique alternate key. Column order is positional and fixed at build time;
// key tuples produced by internal/rowkey follow it.
type Key struct {
	Name    string
	Columns []*Column
}

// ForeignKey relates an ordered set of columns to the primary key of a
// target table. The write pipeline uses it to propagate generated principal
// keys into dependents and to unset them again on rollback.
type ForeignKey struct {
	Name    string
	Columns []*Column
	Target  string // target table name
}

// Table is the finalized descriptor for one physical table.
type Table struct {
	Name        string
	Columns     []*Column
	PrimaryKey  *Key
	ForeignKeys []*ForeignKey

	byName map[string]*Column
}

// NewTable validates and finalizes a table descriptor. Every key and
// foreign-key column must be one of the table's columns.
func NewTable(name string, columns []*Column, pk *Key, fks []*ForeignKey) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("table: name is required")
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q: no columns", name)
	}
	byName := make(map[string]*Column, len(columns))
	for _, c := range columns {
		if _, dup := byName[c.Name()]; dup {
			return nil, fmt.Errorf("table %q: duplicate column %q", name, c.Name())
		}
		byName[c.Name()] = c
	}
	if pk == nil || len(pk.Columns) == 0 {
		return nil, fmt.Errorf("table %q: primary key is required", name)
	}
	for _, c := range pk.Columns {
		if byName[c.Name()] != c {
			return nil, fmt.Errorf("table %q: key %q references unknown column %q", name, pk.Name, c.Name())
		}
	}
	for _, fk := range fks {
		if len(fk.Columns) == 0 {
			return nil, fmt.Errorf("table %q: foreign key %q has no columns", name, fk.Name)
		}
		for _, c := range fk.Columns {
			if byName[c.Name()] != c {
				return nil, fmt.Errorf("table %q: foreign key %q references unknown column %q", name, fk.Name, c.Name())
			}
		}
	}
	return &Table{Name: name, Columns: columns, PrimaryKey: pk, ForeignKeys: fks, byName: byName}, nil
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// Model is the finalized schema: tables in declaration order.
type Model struct {
	tables map[string]*Table
	order  []string
}

// NewModel finalizes a set of tables. Duplicate table names and foreign
// keys pointing at unknown tables are metadata defects.
func NewModel(tables []*Table) (*Model, error) {
	m := &Model{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if _, dup := m.tables[t.Name]; dup {
			return nil, fmt.Errorf("model: duplicate table %q", t.Name)
		}
		m.tables[t.Name] = t
		m.order = append(m.order, t.Name)
	}
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			if _, ok := m.tables[fk.Target]; !ok {
				return nil, fmt.Errorf("model: table %q foreign key %q targets unknown table %q", t.Name, fk.Name, fk.Target)
			}
		}
	}
	return m, nil
}

// Table looks up a table by name.
func (m *Model) Table(name string) (*Table, bool) {
	t, ok := m.tables[name]
	return t, ok
}

// Tables returns tables in declaration order.
func (m *Model) Tables() []*Table {
	out := make([]*Table, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.tables[name])
	}
	return out
}
