package track

import "fmt"

// TupleComparer is the composite key comparer the identity map indexes
// with. Satisfied by rowkey.Comparer; declared here so track does not
// depend on the builder package.
type TupleComparer interface {
	Equal(a, b []any) bool
	Hash(t []any) uint64
}

type identityEntry struct {
	key    []any
	record *ChangeRecord
}

// IdentityMap indexes tracked change records by their key tuple using the
// per-column provider comparers, so two independently built tuples with
// equal provider values resolve to the same record.
//
// Incomplete tuples (any nil position) are never admitted: a row whose key
// is not yet known cannot be correlated.
type IdentityMap struct {
	comparer TupleComparer
	buckets  map[uint64][]identityEntry
	size     int
}

// NewIdentityMap builds an empty identity map over a tuple comparer.
func NewIdentityMap(comparer TupleComparer) *IdentityMap {
	return &IdentityMap{comparer: comparer, buckets: make(map[uint64][]identityEntry)}
}

// Add indexes a record under a complete key tuple. Re-adding an equal key
// replaces the previous record (re-correlation after generated values
// arrive, or after rollback restored the original key).
func (m *IdentityMap) Add(key []any, record *ChangeRecord) error {
	for i, v := range key {
		if v == nil {
			return fmt.Errorf("identity map: incomplete key (position %d is nil)", i)
		}
	}
	h := m.comparer.Hash(key)
	bucket := m.buckets[h]
	for i, e := range bucket {
		if m.comparer.Equal(e.key, key) {
			bucket[i].record = record
			return nil
		}
	}
	m.buckets[h] = append(bucket, identityEntry{key: key, record: record})
	m.size++
	return nil
}

// Get resolves a record by key tuple.
func (m *IdentityMap) Get(key []any) (*ChangeRecord, bool) {
	for _, v := range key {
		if v == nil {
			return nil, false
		}
	}
	for _, e := range m.buckets[m.comparer.Hash(key)] {
		if m.comparer.Equal(e.key, key) {
			return e.record, true
		}
	}
	return nil, false
}

// Remove drops the entry for a key tuple, if present.
func (m *IdentityMap) Remove(key []any) {
	h := m.comparer.Hash(key)
	bucket := m.buckets[h]
	for i, e := range bucket {
		if m.comparer.Equal(e.key, key) {
			m.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			m.size--
			if len(m.buckets[h]) == 0 {
				delete(m.buckets, h)
			}
			return
		}
	}
}

// Len returns the number of indexed records.
func (m *IdentityMap) Len() int { return m.size }
