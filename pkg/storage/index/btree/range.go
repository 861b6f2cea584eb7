package btree

import (
	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
)

// RangeSearch returns the row ids of every key in [start, end], both bounds
// inclusive, in ascending key order.
func (t *Tree[K]) RangeSearch(start, end K) []primitives.RowID {
	return t.RangeSearchAdvanced(&start, &end, true, true)
}

// RangeSearchGreaterThan returns the row ids of every key above bound;
// inclusive keeps the bound itself.
func (t *Tree[K]) RangeSearchGreaterThan(bound K, inclusive bool) []primitives.RowID {
	return t.RangeSearchAdvanced(&bound, nil, inclusive, false)
}

// RangeSearchLessThan returns the row ids of every key below bound;
// inclusive keeps the bound itself.
func (t *Tree[K]) RangeSearchLessThan(bound K, inclusive bool) []primitives.RowID {
	return t.RangeSearchAdvanced(nil, &bound, false, inclusive)
}

// RangeSearchAdvanced is the general range scan: either bound may be nil for
// unbounded, with per-bound inclusivity. The scan starts at the leaf that
// would hold the lower bound (the leftmost leaf when unbounded) and walks
// the leaf chain, stopping as soon as a key passes the upper bound. The
// early stop is sound because the chain yields keys in global ascending
// order.
func (t *Tree[K]) RangeSearchAdvanced(start, end *K, startInclusive, endInclusive bool) []primitives.RowID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var n *node[K]
	if start != nil {
		n = t.descend(*start)
	} else {
		n = t.leftmost()
	}

	results := []primitives.RowID{}
	for {
		for j, key := range n.keys {
			if start != nil && (key < *start || (key == *start && !startInclusive)) {
				continue
			}
			if end != nil && (key > *end || (key == *end && !endInclusive)) {
				return results
			}
			results = append(results, n.values[j]...)
		}
		if n.next < 0 {
			return results
		}
		n = t.node(n.next)
	}
}
