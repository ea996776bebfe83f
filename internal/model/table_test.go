package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustColumn(t *testing.T, name string, mappings map[string]string) *Column {
	t.Helper()
	col, err := NewColumn(name, "INTEGER", DefaultComparer{}, false, mappings)
	require.NoError(t, err)
	return col
}

func TestNewColumnValidation(t *testing.T) {
	_, err := NewColumn("", "INTEGER", DefaultComparer{}, false, map[string]string{"Order": "ID"})
	assert.Error(t, err, "empty name")

	_, err = NewColumn("id", "INTEGER", nil, false, map[string]string{"Order": "ID"})
	assert.Error(t, err, "missing comparer")

	_, err = NewColumn("id", "INTEGER", DefaultComparer{}, false, nil)
	assert.Error(t, err, "no mappings")

	_, err = NewColumn("id", "INTEGER", DefaultComparer{}, false, map[string]string{"": "ID"})
	assert.Error(t, err, "empty entity type")
}

func TestColumnPropertyFor(t *testing.T) {
	col := mustColumn(t, "id", map[string]string{"Order": "ID", "Invoice": "OrderID"})

	property, ok := col.PropertyFor("Order")
	require.True(t, ok)
	assert.Equal(t, "ID", property)

	// Unmapped entity type is exclusion, not an error.
	_, ok = col.PropertyFor("Customer")
	assert.False(t, ok)
}

func TestColumnStoreTypeDefaults(t *testing.T) {
	col, err := NewColumn("code", "", DefaultComparer{}, false, map[string]string{"Order": "Code"})
	require.NoError(t, err)
	assert.Equal(t, "TEXT", col.StoreType())
}

func TestNewTableValidation(t *testing.T) {
	id := mustColumn(t, "id", map[string]string{"Order": "ID"})
	code := mustColumn(t, "code", map[string]string{"Order": "Code"})
	stray := mustColumn(t, "stray", map[string]string{"Order": "Stray"})

	_, err := NewTable("orders", []*Column{id, code}, nil, nil)
	assert.Error(t, err, "missing primary key")

	_, err = NewTable("orders", []*Column{id, code}, &Key{Name: "pk", Columns: []*Column{stray}}, nil)
	assert.Error(t, err, "key over unknown column")

	_, err = NewTable("orders", []*Column{id, id}, &Key{Name: "pk", Columns: []*Column{id}}, nil)
	assert.Error(t, err, "duplicate column")

	table, err := NewTable("orders", []*Column{id, code}, &Key{Name: "pk", Columns: []*Column{id}}, nil)
	require.NoError(t, err)

	got, ok := table.Column("code")
	require.True(t, ok)
	assert.Same(t, code, got)
}

func TestNewModelValidation(t *testing.T) {
	id := mustColumn(t, "id", map[string]string{"Order": "ID"})
	orders, err := NewTable("orders", []*Column{id}, &Key{Name: "pk_orders", Columns: []*Column{id}}, nil)
	require.NoError(t, err)

	_, err = NewModel([]*Table{orders, orders})
	assert.Error(t, err, "duplicate table")

	lineID := mustColumn(t, "id", map[string]string{"Line": "ID"})
	orderRef := mustColumn(t, "order_id", map[string]string{"Line": "OrderID"})
	lines, err := NewTable("lines", []*Column{lineID, orderRef},
		&Key{Name: "pk_lines", Columns: []*Column{lineID}},
		[]*ForeignKey{{Name: "fk_order", Columns: []*Column{orderRef}, Target: "missing"}})
	require.NoError(t, err)

	_, err = NewModel([]*Table{orders, lines})
	assert.Error(t, err, "foreign key to unknown table")

	lines.ForeignKeys[0].Target = "orders"
	m, err := NewModel([]*Table{orders, lines})
	require.NoError(t, err)
	assert.Len(t, m.Tables(), 2)

	got, ok := m.Table("orders")
	require.True(t, ok)
	assert.Same(t, orders, got)
}
