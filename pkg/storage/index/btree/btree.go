package btree

import (
	"cmp"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/storage/index"
)

var log = logrus.WithField("component", "btree")

// MinOrder is the smallest usable tree order: below three a node cannot hold
// a key on each side of a split.
const MinOrder = 3

// node is one B+Tree node inside the tree's arena. Nodes reference each
// other by arena index, never by pointer, so the whole tree serializes as a
// flat array.
//
// Keys are strictly ascending within a node. An internal node has
// len(keys)+1 children; a leaf has one RowID list per key (duplicates for a
// key accumulate in insertion order) and a next link chaining leaves
// left-to-right.
type node[K cmp.Ordered] struct {
	leaf     bool
	keys     []K
	children []int
	values   [][]primitives.RowID
	next     int
}

// Tree is a disk-persisted B+Tree mapping keys to lists of row ids.
//
// Splits are eager: descending for an insert splits every full node on the
// path before entering it, and a full root is split before the descent, which
// is the only way the tree grows in height. A leaf split copies its
// separator up, an internal split moves it up. Deletion never rebalances;
// the structure only shrinks when a key's last row id is removed.
//
// Every mutating call persists the whole structure immediately. A single
// mutex serializes all access; the structure itself is not safe for
// concurrent use without it.
type Tree[K cmp.Ordered] struct {
	mu      sync.Mutex
	desc    index.Descriptor
	dataDir string
	order   int
	root    int
	nodes   []*node[K]
}

// New creates an empty tree of the given order whose snapshot lives under
// dataDir at the descriptor's derived path.
func New[K cmp.Ordered](desc index.Descriptor, dataDir string, order int) (*Tree[K], error) {
	if order < MinOrder {
		return nil, errors.Errorf("btree order %d below minimum %d", order, MinOrder)
	}
	t := &Tree[K]{
		desc:    desc,
		dataDir: dataDir,
		order:   order,
	}
	t.reset()
	return t, nil
}

// reset drops every node and leaves a single empty leaf as root.
func (t *Tree[K]) reset() {
	t.nodes = []*node[K]{{leaf: true, next: -1}}
	t.root = 0
}

func (t *Tree[K]) node(i int) *node[K] {
	return t.nodes[i]
}

func (t *Tree[K]) alloc(n *node[K]) int {
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

// full reports whether a node must be split before it can take another key.
func (t *Tree[K]) full(n *node[K]) bool {
	return len(n.keys) >= t.order-1
}

// findIndex returns the first index whose key exceeds the search key. For an
// internal node that is the child slot to descend into; for a leaf it is the
// insertion point.
func findIndex[K cmp.Ordered](keys []K, key K) int {
	return sort.Search(len(keys), func(i int) bool {
		return keys[i] > key
	})
}

// Order returns the tree's order.
func (t *Tree[K]) Order() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order
}

// Descriptor returns the identity of this index.
func (t *Tree[K]) Descriptor() index.Descriptor {
	return t.desc
}

// Insert adds one key/row-id pair and persists the tree. Inserting an
// existing key appends the row id to that key's list, keeping duplicates in
// insertion order.
func (t *Tree[K]) Insert(key K, rid primitives.RowID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	root := t.node(t.root)
	if t.full(root) {
		grown := &node[K]{children: []int{t.root}, next: -1}
		t.root = t.alloc(grown)
		t.splitChild(grown, 0)
	}
	t.insertNonFull(t.node(t.root), key, rid)

	return t.save()
}

// insertNonFull descends from a non-full node to the owning leaf, splitting
// any full child before entering it, then places the key.
func (t *Tree[K]) insertNonFull(n *node[K], key K, rid primitives.RowID) {
	for !n.leaf {
		i := findIndex(n.keys, key)
		if child := t.node(n.children[i]); t.full(child) {
			t.splitChild(n, i)
			// Keys equal to the new separator live in the right child.
			if key >= n.keys[i] {
				i++
			}
		}
		n = t.node(n.children[i])
	}

	i := findIndex(n.keys, key)
	if i > 0 && n.keys[i-1] == key {
		n.values[i-1] = append(n.values[i-1], rid)
		return
	}

	n.keys = append(n.keys, key)
	copy(n.keys[i+1:], n.keys[i:])
	n.keys[i] = key

	n.values = append(n.values, nil)
	copy(n.values[i+1:], n.values[i:])
	n.values[i] = []primitives.RowID{rid}
}

// splitChild splits parent's i-th child at its floor midpoint. The left half
// stays in place, the right half moves to a new sibling. A leaf keeps its
// separator (the sibling's first key is copied up and the next chain is
// relinked); an internal node gives its separator up entirely.
func (t *Tree[K]) splitChild(parent *node[K], i int) {
	child := t.node(parent.children[i])
	mid := len(child.keys) / 2

	sibling := &node[K]{leaf: child.leaf, next: -1}
	var separator K

	if child.leaf {
		sibling.keys = append([]K(nil), child.keys[mid:]...)
		sibling.values = append([][]primitives.RowID(nil), child.values[mid:]...)
		child.keys = child.keys[:mid]
		child.values = child.values[:mid]

		siblingIdx := t.alloc(sibling)
		sibling.next = child.next
		child.next = siblingIdx
		separator = sibling.keys[0]

		t.insertIntoParent(parent, i, separator, siblingIdx)
		return
	}

	separator = child.keys[mid]
	sibling.keys = append([]K(nil), child.keys[mid+1:]...)
	sibling.children = append([]int(nil), child.children[mid+1:]...)
	child.keys = child.keys[:mid]
	child.children = child.children[:mid+1]

	siblingIdx := t.alloc(sibling)
	t.insertIntoParent(parent, i, separator, siblingIdx)
}

func (t *Tree[K]) insertIntoParent(parent *node[K], i int, separator K, siblingIdx int) {
	var zero K
	parent.keys = append(parent.keys, zero)
	copy(parent.keys[i+1:], parent.keys[i:])
	parent.keys[i] = separator

	parent.children = append(parent.children, 0)
	copy(parent.children[i+2:], parent.children[i+1:])
	parent.children[i+1] = siblingIdx
}

// Search returns every row id stored under key, in insertion order, or an
// empty slice when the key is absent. A miss is a normal outcome, not an
// error.
func (t *Tree[K]) Search(key K) []primitives.RowID {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.descend(key)
	for j, k := range n.keys {
		if k == key {
			return append([]primitives.RowID(nil), n.values[j]...)
		}
	}
	return []primitives.RowID{}
}

// descend walks to the unique leaf that would contain key.
func (t *Tree[K]) descend(key K) *node[K] {
	n := t.node(t.root)
	for !n.leaf {
		n = t.node(n.children[findIndex(n.keys, key)])
	}
	return n
}

// leftmost returns the first leaf of the chain.
func (t *Tree[K]) leftmost() *node[K] {
	n := t.node(t.root)
	for !n.leaf {
		n = t.node(n.children[0])
	}
	return n
}

// Delete removes one occurrence of rid from key's list and persists the
// tree. When the last row id of a key goes, the key goes with it; nodes are
// never merged or rebalanced.
func (t *Tree[K]) Delete(key K, rid primitives.RowID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.descend(key)
	for j, k := range n.keys {
		if k != key {
			continue
		}
		for v, existing := range n.values[j] {
			if existing == rid {
				n.values[j] = append(n.values[j][:v], n.values[j][v+1:]...)
				break
			}
		}
		if len(n.values[j]) == 0 {
			n.keys = append(n.keys[:j], n.keys[j+1:]...)
			n.values = append(n.values[:j], n.values[j+1:]...)
		}
		break
	}

	return t.save()
}

// LeafKeys returns every key in the tree by walking the leaf chain from the
// leftmost leaf, which yields them in ascending order.
func (t *Tree[K]) LeafKeys() []K {
	t.mu.Lock()
	defer t.mu.Unlock()

	var keys []K
	for n := t.leftmost(); ; {
		keys = append(keys, n.keys...)
		if n.next < 0 {
			break
		}
		n = t.node(n.next)
	}
	return keys
}
