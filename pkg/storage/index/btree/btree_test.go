package btree

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/storage/index"
)

func newTestTree[K interface {
	~int | ~int64 | ~float64 | ~string
}](t *testing.T, order int) *Tree[K] {
	t.Helper()
	tree, err := New[K](index.Descriptor{
		Table:  "people",
		Column: "age",
		Kind:   index.BTree,
	}, t.TempDir(), order)
	require.NoError(t, err)
	return tree
}

func insertAll(t *testing.T, tree *Tree[int], keys []int) {
	t.Helper()
	for i, key := range keys {
		require.NoError(t, tree.Insert(key, primitives.RowID(i)))
	}
}

func TestNewRejectsTinyOrder(t *testing.T) {
	_, err := New[int](index.Descriptor{Table: "t", Column: "c", Kind: index.BTree}, t.TempDir(), 2)
	assert.Error(t, err)
}

func TestSearchMissingKeyIsEmpty(t *testing.T) {
	tree := newTestTree[int](t, 4)
	assert.Empty(t, tree.Search(42))

	insertAll(t, tree, []int{1, 2, 3})
	assert.Empty(t, tree.Search(42))
}

func TestInsertAndSearch(t *testing.T) {
	tree := newTestTree[int](t, 4)
	keys := []int{30, 25, 35, 28, 32, 27, 31, 29, 26, 33}
	insertAll(t, tree, keys)

	for i, key := range keys {
		assert.Equalf(t, []primitives.RowID{primitives.RowID(i)}, tree.Search(key), "key %d", key)
	}
	checkInvariants(t, tree)
}

func TestDuplicateKeysKeepInsertionOrder(t *testing.T) {
	tree := newTestTree[int](t, 4)

	require.NoError(t, tree.Insert(7, 100))
	require.NoError(t, tree.Insert(7, 200))
	require.NoError(t, tree.Insert(7, 300))

	assert.Equal(t, []primitives.RowID{100, 200, 300}, tree.Search(7))
}

// The age scan: rows inserted in arrival order, range over [27, 31] must
// return exactly the row indices of the matching ages, in key order.
func TestRangeSearchAges(t *testing.T) {
	tree := newTestTree[int](t, 4)
	insertAll(t, tree, []int{30, 25, 35, 28, 32, 27, 31, 29, 26, 33})

	got := tree.RangeSearch(27, 31)
	assert.Equal(t, []primitives.RowID{5, 3, 7, 0, 6}, got)
}

func TestRangeSearchVariants(t *testing.T) {
	tree := newTestTree[int](t, 4)
	keys := []int{10, 20, 30, 40, 50}
	insertAll(t, tree, keys) // rid == position

	tests := []struct {
		name     string
		search   func() []primitives.RowID
		expected []primitives.RowID
	}{
		{"inclusive both", func() []primitives.RowID { return tree.RangeSearch(20, 40) }, []primitives.RowID{1, 2, 3}},
		{"greater inclusive", func() []primitives.RowID { return tree.RangeSearchGreaterThan(30, true) }, []primitives.RowID{2, 3, 4}},
		{"greater exclusive", func() []primitives.RowID { return tree.RangeSearchGreaterThan(30, false) }, []primitives.RowID{3, 4}},
		{"less inclusive", func() []primitives.RowID { return tree.RangeSearchLessThan(30, true) }, []primitives.RowID{0, 1, 2}},
		{"less exclusive", func() []primitives.RowID { return tree.RangeSearchLessThan(30, false) }, []primitives.RowID{0, 1}},
		{"between bounds missing keys", func() []primitives.RowID { return tree.RangeSearch(15, 35) }, []primitives.RowID{1, 2}},
		{"empty window", func() []primitives.RowID { return tree.RangeSearch(21, 29) }, []primitives.RowID{}},
		{"full window", func() []primitives.RowID { return tree.RangeSearch(0, 100) }, []primitives.RowID{0, 1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.search())
		})
	}
}

func TestRangeSearchAdvancedUnbounded(t *testing.T) {
	tree := newTestTree[int](t, 4)
	insertAll(t, tree, []int{10, 20, 30, 40, 50})

	lo, hi := 20, 40

	t.Run("no bounds scans everything", func(t *testing.T) {
		got := tree.RangeSearchAdvanced(nil, nil, false, false)
		assert.Equal(t, []primitives.RowID{0, 1, 2, 3, 4}, got)
	})

	t.Run("open lower bound", func(t *testing.T) {
		got := tree.RangeSearchAdvanced(nil, &hi, false, false)
		assert.Equal(t, []primitives.RowID{0, 1, 2}, got)
	})

	t.Run("open upper bound", func(t *testing.T) {
		got := tree.RangeSearchAdvanced(&lo, nil, false, false)
		assert.Equal(t, []primitives.RowID{2, 3, 4}, got)
	})

	t.Run("exclusive window", func(t *testing.T) {
		got := tree.RangeSearchAdvanced(&lo, &hi, false, false)
		assert.Equal(t, []primitives.RowID{2}, got)
	})
}

func TestRangeSearchIncludesDuplicates(t *testing.T) {
	tree := newTestTree[int](t, 4)
	require.NoError(t, tree.Insert(10, 1))
	require.NoError(t, tree.Insert(20, 2))
	require.NoError(t, tree.Insert(20, 3))
	require.NoError(t, tree.Insert(30, 4))

	assert.Equal(t, []primitives.RowID{1, 2, 3, 4}, tree.RangeSearch(10, 30))
}

func TestDelete(t *testing.T) {
	t.Run("removes one row id", func(t *testing.T) {
		tree := newTestTree[int](t, 4)
		require.NoError(t, tree.Insert(7, 100))
		require.NoError(t, tree.Insert(7, 200))

		require.NoError(t, tree.Delete(7, 100))
		assert.Equal(t, []primitives.RowID{200}, tree.Search(7))
	})

	t.Run("last row id removes the key", func(t *testing.T) {
		tree := newTestTree[int](t, 4)
		insertAll(t, tree, []int{1, 2, 3})

		require.NoError(t, tree.Delete(2, 1))
		assert.Empty(t, tree.Search(2))
		assert.Equal(t, []int{1, 3}, tree.LeafKeys())
	})

	t.Run("absent key is a no-op", func(t *testing.T) {
		tree := newTestTree[int](t, 4)
		insertAll(t, tree, []int{1, 2, 3})

		require.NoError(t, tree.Delete(99, 0))
		assert.Equal(t, []int{1, 2, 3}, tree.LeafKeys())
	})

	t.Run("wrong row id leaves the key", func(t *testing.T) {
		tree := newTestTree[int](t, 4)
		require.NoError(t, tree.Insert(5, 50))

		require.NoError(t, tree.Delete(5, 51))
		assert.Equal(t, []primitives.RowID{50}, tree.Search(5))
	})
}

func TestLeafChainGloballySorted(t *testing.T) {
	orders := []int{3, 4, 5, 8}
	for _, order := range orders {
		tree := newTestTree[int](t, order)

		keys := make([]int, 0, 200)
		for i := 0; i < 200; i++ {
			key := (i * 37) % 101
			keys = append(keys, key)
			require.NoError(t, tree.Insert(key, primitives.RowID(i)))
		}

		sort.Ints(keys)
		unique := keys[:0]
		for i, k := range keys {
			if i == 0 || unique[len(unique)-1] != k {
				unique = append(unique, k)
			}
		}

		assert.Equalf(t, unique, tree.LeafKeys(), "order %d", order)
		checkInvariants(t, tree)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	desc := index.Descriptor{Table: "people", Column: "age", Kind: index.BTree}

	tree, err := New[int](desc, dir, 4)
	require.NoError(t, err)

	keys := []int{30, 25, 35, 28, 32, 27, 31, 29, 26, 33}
	for i, key := range keys {
		require.NoError(t, tree.Insert(key, primitives.RowID(i)))
	}
	require.NoError(t, tree.Insert(30, 99)) // duplicate under key 30

	restored, err := New[int](desc, dir, 4)
	require.NoError(t, err)
	require.NoError(t, restored.Load())

	for _, key := range keys {
		assert.Equalf(t, tree.Search(key), restored.Search(key), "key %d", key)
	}
	assert.Equal(t, tree.RangeSearch(25, 35), restored.RangeSearch(25, 35))
	assert.Equal(t, tree.LeafKeys(), restored.LeafKeys())
	checkInvariants(t, restored)
}

func TestSaveLoadStringKeys(t *testing.T) {
	dir := t.TempDir()
	desc := index.Descriptor{Table: "people", Column: "name", Kind: index.BTree}

	tree, err := New[string](desc, dir, 4)
	require.NoError(t, err)

	names := []string{"mallory", "alice", "oscar", "bob", "eve", "carol"}
	for i, name := range names {
		require.NoError(t, tree.Insert(name, primitives.RowID(i)))
	}

	restored, err := New[string](desc, dir, 4)
	require.NoError(t, err)
	require.NoError(t, restored.Load())

	assert.Equal(t, []primitives.RowID{1}, restored.Search("alice"))
	assert.Equal(t, tree.RangeSearch("bob", "eve"), restored.RangeSearch("bob", "eve"))
}

func TestDestroyRemovesArtifact(t *testing.T) {
	dir := t.TempDir()
	desc := index.Descriptor{Table: "people", Column: "age", Kind: index.BTree}

	tree, err := New[int](desc, dir, 4)
	require.NoError(t, err)
	require.NoError(t, tree.Insert(1, 1))

	require.NoError(t, tree.Destroy())
	assert.Empty(t, tree.Search(1))

	// Loading after destroy fails: the artifact is gone.
	assert.Error(t, tree.Load())

	// Destroy again is fine; the missing file is not an error.
	assert.NoError(t, tree.Destroy())
}

// checkInvariants verifies the structural rules on every reachable node:
// strictly ascending keys, capacity respected, child counts consistent,
// value list per leaf key.
func checkInvariants(t *testing.T, tree *Tree[int]) {
	t.Helper()
	tree.mu.Lock()
	defer tree.mu.Unlock()

	var walk func(idx int)
	walk = func(idx int) {
		n := tree.node(idx)
		assert.LessOrEqual(t, len(n.keys), tree.order-1, "node over capacity")
		for i := 1; i < len(n.keys); i++ {
			assert.Less(t, n.keys[i-1], n.keys[i], "keys not strictly ascending")
		}
		if n.leaf {
			assert.Len(t, n.values, len(n.keys))
			for _, vals := range n.values {
				assert.NotEmpty(t, vals)
			}
			return
		}
		assert.Len(t, n.children, len(n.keys)+1)
		for _, child := range n.children {
			walk(child)
		}
	}
	walk(tree.root)
}
