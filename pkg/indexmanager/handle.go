package indexmanager

import (
	"cmp"
	"strconv"

	"github.com/pkg/errors"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/storage/index"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/storage/index/btree"
)

// Handle is the untyped surface the storage and wire layers work with: keys
// arrive as their textual rendering and are parsed into the index's key
// domain. Typed access stays inside the generic tree.
type Handle interface {
	index.Index

	Insert(key string, rid primitives.RowID) error
	Delete(key string, rid primitives.RowID) error
	Search(key string) ([]primitives.RowID, error)
	Range(start, end string) ([]primitives.RowID, error)
	RangeAdvanced(start, end *string, startInclusive, endInclusive bool) ([]primitives.RowID, error)
}

type typedHandle[K cmp.Ordered] struct {
	tree  *btree.Tree[K]
	parse func(string) (K, error)
}

func newTypedHandle[K cmp.Ordered](m *Manager, desc index.Descriptor, parse func(string) (K, error)) (Handle, error) {
	tree, err := btree.New[K](desc, m.dataDir, m.order)
	if err != nil {
		return nil, err
	}
	return &typedHandle[K]{tree: tree, parse: parse}, nil
}

func (h *typedHandle[K]) Save() error                 { return h.tree.Save() }
func (h *typedHandle[K]) Load() error                 { return h.tree.Load() }
func (h *typedHandle[K]) Destroy() error              { return h.tree.Destroy() }
func (h *typedHandle[K]) Descriptor() index.Descriptor { return h.tree.Descriptor() }

func (h *typedHandle[K]) Insert(key string, rid primitives.RowID) error {
	k, err := h.parse(key)
	if err != nil {
		return err
	}
	return h.tree.Insert(k, rid)
}

func (h *typedHandle[K]) Delete(key string, rid primitives.RowID) error {
	k, err := h.parse(key)
	if err != nil {
		return err
	}
	return h.tree.Delete(k, rid)
}

func (h *typedHandle[K]) Search(key string) ([]primitives.RowID, error) {
	k, err := h.parse(key)
	if err != nil {
		return nil, err
	}
	return h.tree.Search(k), nil
}

func (h *typedHandle[K]) Range(start, end string) ([]primitives.RowID, error) {
	return h.RangeAdvanced(&start, &end, true, true)
}

func (h *typedHandle[K]) RangeAdvanced(start, end *string, startInclusive, endInclusive bool) ([]primitives.RowID, error) {
	var lo, hi *K
	if start != nil {
		k, err := h.parse(*start)
		if err != nil {
			return nil, err
		}
		lo = &k
	}
	if end != nil {
		k, err := h.parse(*end)
		if err != nil {
			return nil, err
		}
		hi = &k
	}
	return h.tree.RangeSearchAdvanced(lo, hi, startInclusive, endInclusive), nil
}

func parseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing int key %q", s)
	}
	return v, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing float key %q", s)
	}
	return v, nil
}

func parseString(s string) (string, error) {
	return s, nil
}
