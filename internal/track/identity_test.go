package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// structuralComparer is a test stand-in for the composite key comparer.
type structuralComparer struct{}

func (structuralComparer) Equal(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (structuralComparer) Hash(t []any) uint64 {
	var h uint64
	for _, v := range t {
		var vh uint64
		if n, ok := v.(int64); ok {
			vh = uint64(n)
		}
		h = h*31 ^ vh
	}
	return h
}

func TestIdentityMapAddGet(t *testing.T) {
	m := NewIdentityMap(structuralComparer{})
	rec := NewChangeRecord("Order", Unchanged)

	require.NoError(t, m.Add([]any{int64(1)}, rec))
	assert.Equal(t, 1, m.Len())

	got, ok := m.Get([]any{int64(1)})
	require.True(t, ok)
	assert.Same(t, rec, got)

	_, ok = m.Get([]any{int64(2)})
	assert.False(t, ok)
}

func TestIdentityMapRejectsIncompleteKey(t *testing.T) {
	m := NewIdentityMap(structuralComparer{})
	rec := NewChangeRecord("Order", Unchanged)

	err := m.Add([]any{int64(1), nil}, rec)
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())

	_, ok := m.Get([]any{int64(1), nil})
	assert.False(t, ok)
}

func TestIdentityMapReplaceOnEqualKey(t *testing.T) {
	m := NewIdentityMap(structuralComparer{})
	first := NewChangeRecord("Order", Unchanged)
	second := NewChangeRecord("Order", Modified)

	require.NoError(t, m.Add([]any{int64(1)}, first))
	require.NoError(t, m.Add([]any{int64(1)}, second))
	assert.Equal(t, 1, m.Len())

	got, ok := m.Get([]any{int64(1)})
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestIdentityMapRemove(t *testing.T) {
	m := NewIdentityMap(structuralComparer{})
	rec := NewChangeRecord("Order", Unchanged)

	require.NoError(t, m.Add([]any{int64(1)}, rec))
	m.Remove([]any{int64(1)})
	assert.Equal(t, 0, m.Len())

	_, ok := m.Get([]any{int64(1)})
	assert.False(t, ok)

	// Removing an absent key is a no-op.
	m.Remove([]any{int64(9)})
}
