package rowkey

import "github.com/roach88/marrow/internal/model"

// hashMix is the odd multiplier for order-sensitive hash composition.
const hashMix = 31

// Comparer is the composite equality/hash function over key tuples,
// composed once at construction from each column's provider comparer.
// Equal tuples always hash equally; hashes are stable within a process,
// not across processes or versions.
type Comparer struct {
	comparers []model.ValueComparer
}

func newComparer(columns []*model.Column) *Comparer {
	cs := make([]model.ValueComparer, len(columns))
	for i, col := range columns {
		cs[i] = col.Comparer()
	}
	return &Comparer{comparers: cs}
}

// Equal compares two tuples positionally using each column's comparer,
// short-circuiting on the first mismatch. A nil tuple equals only another
// nil tuple; mismatched lengths never compare equal.
func (c *Comparer) Equal(x, y []any) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	if len(x) != len(y) {
		return false
	}
	if len(x) > 0 && &x[0] == &y[0] {
		return true
	}
	for i, cmp := range c.comparers {
		if i >= len(x) {
			break
		}
		if !cmp.Equals(x[i], y[i]) {
			return false
		}
	}
	return true
}

// Hash combines per-position hashes order-sensitively. nil positions
// contribute 0.
func (c *Comparer) Hash(t []any) uint64 {
	var h uint64
	for i, v := range t {
		var vh uint64
		if v != nil && i < len(c.comparers) {
			vh = c.comparers[i].Hash(v)
		}
		h = h*hashMix ^ vh
	}
	return h
}
