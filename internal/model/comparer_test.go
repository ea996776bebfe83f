package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparerFor(t *testing.T) {
	for _, kind := range []ComparerKind{ComparerDefault, ComparerFoldedString, ComparerBytes, ComparerFloat, ""} {
		c, err := ComparerFor(kind)
		require.NoError(t, err, "kind %q", kind)
		require.NotNil(t, c)
	}

	_, err := ComparerFor("nope")
	assert.Error(t, err)
}

func TestDefaultComparerScalars(t *testing.T) {
	c := DefaultComparer{}

	assert.True(t, c.Equals(int64(7), int64(7)))
	assert.False(t, c.Equals(int64(7), int64(8)))
	assert.True(t, c.Equals("a", "a"))
	assert.False(t, c.Equals("a", "A"))
}

func TestDefaultComparerWidensIntegers(t *testing.T) {
	c := DefaultComparer{}

	// A changeset hands us int, a driver hands us int64.
	assert.True(t, c.Equals(7, int64(7)))
	assert.True(t, c.Equals(int32(7), int64(7)))
	assert.True(t, c.Equals(uint8(7), 7))
	assert.Equal(t, c.Hash(7), c.Hash(int64(7)))
}

func TestDefaultComparerNil(t *testing.T) {
	c := DefaultComparer{}

	assert.True(t, c.Equals(nil, nil))
	assert.False(t, c.Equals(nil, int64(1)))
	assert.False(t, c.Equals(int64(1), nil))
	assert.Equal(t, uint64(0), c.Hash(nil))
}

func TestDefaultComparerBytes(t *testing.T) {
	c := DefaultComparer{}

	// []byte must not reach interface equality.
	assert.True(t, c.Equals([]byte{1, 2}, []byte{1, 2}))
	assert.False(t, c.Equals([]byte{1, 2}, []byte{1, 3}))
	assert.False(t, c.Equals([]byte{1, 2}, "12"))
}

func TestDefaultComparerNonComparableValues(t *testing.T) {
	c := DefaultComparer{}

	// A lenient source (YAML) can hand us structured values; they are
	// never key values and must not panic equality.
	assert.False(t, c.Equals(map[string]any{"a": 1}, map[string]any{"a": 1}))
	assert.False(t, c.Equals([]int{1}, []int{1}))
	assert.False(t, c.Equals([]int{1}, int64(1)))
	assert.NotPanics(t, func() { c.Hash(map[string]any{"a": 1}) })
}

func TestFoldedStringComparer(t *testing.T) {
	c := NewFoldedStringComparer()

	assert.True(t, c.Equals("Alice", "ALICE"))
	assert.True(t, c.Equals("straße", "STRASSE"))
	assert.False(t, c.Equals("alice", "bob"))
	assert.Equal(t, c.Hash("Alice"), c.Hash("aLiCe"))

	// Non-strings fall through to structural semantics.
	assert.True(t, c.Equals(int64(1), int64(1)))
}

func TestBytesComparer(t *testing.T) {
	c := BytesComparer{}

	assert.True(t, c.Equals([]byte("key"), []byte("key")))
	assert.False(t, c.Equals([]byte("key"), []byte("другой")))
	assert.True(t, c.Equals(nil, nil))
	assert.False(t, c.Equals([]byte("key"), nil))
	assert.Equal(t, c.Hash([]byte("key")), c.Hash([]byte("key")))
}

func TestFloatComparerEpsilon(t *testing.T) {
	c := FloatComparer{Epsilon: 0.01}

	assert.True(t, c.Equals(1.0, 1.005))
	assert.False(t, c.Equals(1.0, 1.1))
	assert.True(t, c.Equals(float64(3), int64(3)))

	// Equal values must hash equally even across epsilon boundaries.
	assert.Equal(t, c.Hash(1.0), c.Hash(1.005))
	assert.Equal(t, uint64(0), c.Hash(nil))
}

func TestHashEqualImpliesHashEqual(t *testing.T) {
	c := DefaultComparer{}
	pairs := [][2]any{
		{int64(42), 42},
		{"marrow", "marrow"},
		{true, true},
		{3.5, 3.5},
	}
	for _, p := range pairs {
		require.True(t, c.Equals(p[0], p[1]))
		assert.Equal(t, c.Hash(p[0]), c.Hash(p[1]))
	}
}
