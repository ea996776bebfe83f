package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"reflect"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ValueComparer defines equality and hashing for one column's provider-level
// values. Implementations must guarantee that Equals(a, b) implies
// Hash(a) == Hash(b). Hashes are stable within a process lifetime only -
// they are never persisted.
type ValueComparer interface {
	Equals(a, b any) bool
	Hash(v any) uint64
}

// ComparerKind names a built-in comparer for schema declarations.
type ComparerKind string

const (
	ComparerDefault      ComparerKind = "default"
	ComparerFoldedString ComparerKind = "folded_string"
	ComparerBytes        ComparerKind = "bytes"
	ComparerFloat        ComparerKind = "float"
)

// ComparerFor returns the built-in comparer for a kind.
// Unknown kinds are schema defects and abort setup.
func ComparerFor(kind ComparerKind) (ValueComparer, error) {
	switch kind {
	case ComparerDefault, "":
		return DefaultComparer{}, nil
	case ComparerFoldedString:
		return NewFoldedStringComparer(), nil
	case ComparerBytes:
		return BytesComparer{}, nil
	case ComparerFloat:
		return FloatComparer{Epsilon: 1e-9}, nil
	default:
		return nil, fmt.Errorf("unknown comparer kind %q", kind)
	}
}

// DefaultComparer compares scalar provider values structurally, after
// normalizing integer widths so that e.g. int(7) read from a changeset and
// int64(7) returned by a driver are the same key value.
type DefaultComparer struct{}

// Equals implements ValueComparer.
func (DefaultComparer) Equals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ab, ok := a.([]byte); ok {
		bb, ok := b.([]byte)
		return ok && bytes.Equal(ab, bb)
	}
	na, nb := normalizeScalar(a), normalizeScalar(b)
	// Provider values are scalars or []byte; anything non-comparable a
	// lenient source hands us (a YAML map, a slice) is never a key value,
	// so treat distinct instances as unequal instead of panicking on ==.
	if !reflect.TypeOf(na).Comparable() || !reflect.TypeOf(nb).Comparable() {
		return false
	}
	return na == nb
}

// Hash implements ValueComparer.
func (DefaultComparer) Hash(v any) uint64 {
	return hashScalar(v)
}

// FoldedStringComparer compares strings under Unicode case folding and NFC
// normalization, matching case-insensitive database collations. Non-string
// values fall through to DefaultComparer semantics.
type FoldedStringComparer struct {
	caser cases.Caser
}

// NewFoldedStringComparer builds a comparer with a Unicode case folder.
func NewFoldedStringComparer() FoldedStringComparer {
	return FoldedStringComparer{caser: cases.Fold()}
}

func (c FoldedStringComparer) fold(s string) string {
	return norm.NFC.String(c.caser.String(s))
}

// Equals implements ValueComparer.
func (c FoldedStringComparer) Equals(a, b any) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return DefaultComparer{}.Equals(a, b)
	}
	return c.fold(as) == c.fold(bs)
}

// Hash implements ValueComparer.
func (c FoldedStringComparer) Hash(v any) uint64 {
	if s, ok := v.(string); ok {
		return hashScalar(c.fold(s))
	}
	return hashScalar(v)
}

// BytesComparer compares []byte provider values element-wise. BLOB key
// columns need this; interface equality on slices is a runtime panic.
type BytesComparer struct{}

// Equals implements ValueComparer.
func (BytesComparer) Equals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ab, aok := a.([]byte)
	bb, bok := b.([]byte)
	if !aok || !bok {
		return false
	}
	return bytes.Equal(ab, bb)
}

// Hash implements ValueComparer.
func (BytesComparer) Hash(v any) uint64 {
	if b, ok := v.([]byte); ok {
		h := fnv.New64a()
		h.Write(b)
		return h.Sum64()
	}
	return hashScalar(v)
}

// FloatComparer compares float64 provider values within an epsilon.
// Epsilon equality is not transitive, so the hash is degenerate: every
// non-nil value hashes to the same bucket, preserving the
// equal-implies-equal-hash contract at the cost of bucketing. Composite
// keys mixing a float column with discriminating columns still spread.
type FloatComparer struct {
	Epsilon float64
}

// Equals implements ValueComparer.
func (c FloatComparer) Equals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false
	}
	return math.Abs(af-bf) <= c.Epsilon
}

// Hash implements ValueComparer.
func (c FloatComparer) Hash(v any) uint64 {
	if v == nil {
		return 0
	}
	if _, ok := toFloat(v); ok {
		return 0x9e3779b97f4a7c15
	}
	return hashScalar(v)
}

// normalizeScalar widens integer provider values to int64 so equal numbers
// compare equal regardless of the width the source handed us.
func normalizeScalar(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case float32:
		return float64(x)
	default:
		return v
	}
}

func toFloat(v any) (float64, bool) {
	switch x := normalizeScalar(v).(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// hashScalar computes an FNV-64a hash of a normalized scalar value.
// nil hashes to 0 per the composite hash contract.
func hashScalar(v any) uint64 {
	if v == nil {
		return 0
	}
	h := fnv.New64a()
	switch x := normalizeScalar(v).(type) {
	case string:
		io.WriteString(h, x)
	case int64:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(x))
		h.Write(buf[:])
	case uint64:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], x)
		h.Write(buf[:])
	case float64:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
		h.Write(buf[:])
	case bool:
		if x {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case []byte:
		h.Write(x)
	default:
		fmt.Fprintf(h, "%v", x)
	}
	return h.Sum64()
}
