package rowkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/marrow/internal/model"
	"github.com/roach88/marrow/internal/track"
)

func foldedColumn(t *testing.T, name string, mappings map[string]string) *model.Column {
	t.Helper()
	col, err := model.NewColumn(name, "TEXT", model.NewFoldedStringComparer(), false, mappings)
	require.NoError(t, err)
	return col
}

func TestComparerReflexiveAndSymmetric(t *testing.T) {
	b := testBuilder(t,
		testColumn(t, "id", map[string]string{"Order": "ID"}),
		testColumn(t, "tenant", map[string]string{"Order": "Tenant"}),
	)
	c := b.Comparer()

	tuple := KeyTuple{int64(1), "acme"}
	assert.True(t, c.Equal(tuple, tuple))

	other := KeyTuple{int64(1), "acme"}
	assert.True(t, c.Equal(tuple, other))
	assert.True(t, c.Equal(other, tuple))
	assert.Equal(t, c.Hash(tuple), c.Hash(other))
}

func TestComparerNilAndLength(t *testing.T) {
	b := testBuilder(t, testColumn(t, "id", map[string]string{"Order": "ID"}))
	c := b.Comparer()

	assert.True(t, c.Equal(nil, nil))
	assert.False(t, c.Equal(nil, KeyTuple{int64(1)}))
	assert.False(t, c.Equal(KeyTuple{int64(1)}, nil))
	assert.False(t, c.Equal(KeyTuple{int64(1)}, KeyTuple{int64(1), int64(2)}))
}

func TestComparerShortCircuitMismatch(t *testing.T) {
	b := testBuilder(t,
		testColumn(t, "id", map[string]string{"Order": "ID"}),
		testColumn(t, "tenant", map[string]string{"Order": "Tenant"}),
	)
	c := b.Comparer()

	assert.False(t, c.Equal(KeyTuple{int64(1), "acme"}, KeyTuple{int64(2), "acme"}))
	assert.False(t, c.Equal(KeyTuple{int64(1), "acme"}, KeyTuple{int64(1), "globex"}))
}

func TestComparerUsesColumnComparers(t *testing.T) {
	b := testBuilder(t, foldedColumn(t, "code", map[string]string{"Order": "Code"}))
	c := b.Comparer()

	// Provider-aware equality: plain structural comparison would miss
	// this.
	assert.True(t, c.Equal(KeyTuple{"ORD-1"}, KeyTuple{"ord-1"}))
	assert.Equal(t, c.Hash(KeyTuple{"ORD-1"}), c.Hash(KeyTuple{"ord-1"}))
}

func TestComparerOrderSensitiveHash(t *testing.T) {
	b := testBuilder(t,
		testColumn(t, "a", map[string]string{"Pair": "A"}),
		testColumn(t, "b", map[string]string{"Pair": "B"}),
	)
	c := b.Comparer()

	h1 := c.Hash(KeyTuple{int64(1), int64(2)})
	h2 := c.Hash(KeyTuple{int64(2), int64(1)})
	assert.NotEqual(t, h1, h2)
}

func TestComparerNilPositionHashesToZeroContribution(t *testing.T) {
	b := testBuilder(t, testColumn(t, "id", map[string]string{"Order": "ID"}))
	c := b.Comparer()

	assert.Equal(t, c.Hash(KeyTuple{nil}), c.Hash(KeyTuple{nil}))
	assert.NotEqual(t, c.Hash(KeyTuple{nil}), c.Hash(KeyTuple{int64(1)}))
}

func TestTuplesEqualAcrossEntryPoints(t *testing.T) {
	idCol := testColumn(t, "id", map[string]string{"Order": "ID"})
	b := testBuilder(t, idCol)
	c := b.Comparer()

	fromValues, ok := b.FromValues([]any{int64(7)})
	require.True(t, ok)

	fromMap, ok := b.FromMap(map[string]any{"id": int64(7)})
	require.True(t, ok)

	rec := track.NewChangeRecord("Order", track.Added)
	rec.SetCurrent("ID", int64(7))
	fromRecord, ok := b.FromWriteRecord(track.NewWriteRecord(testTable(t, idCol), rec), false)
	require.True(t, ok)

	assert.True(t, c.Equal(fromValues, fromMap))
	assert.True(t, c.Equal(fromMap, fromRecord))
	assert.Equal(t, c.Hash(fromValues), c.Hash(fromRecord))
}
