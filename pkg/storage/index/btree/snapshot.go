package btree

import (
	"bytes"
	"cmp"
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/storage/index"
)

// snapshot is the on-disk form of a tree: the arena dumped as a flat array.
// Node references are already stable arena indices, so no graph walking or
// identity bookkeeping is involved in either direction.
type snapshot[K cmp.Ordered] struct {
	Order int
	Root  int
	Nodes []nodeSnapshot[K]
}

type nodeSnapshot[K cmp.Ordered] struct {
	Leaf     bool
	Keys     []K
	Children []int
	Values   [][]primitives.RowID
	Next     int
}

// Save writes the entire tree to its derived path, creating the table
// directory on first use.
func (t *Tree[K]) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.save()
}

func (t *Tree[K]) save() error {
	snap := snapshot[K]{
		Order: t.order,
		Root:  t.root,
		Nodes: make([]nodeSnapshot[K], len(t.nodes)),
	}
	for i, n := range t.nodes {
		snap.Nodes[i] = nodeSnapshot[K]{
			Leaf:     n.leaf,
			Keys:     n.keys,
			Children: n.children,
			Values:   n.values,
			Next:     n.next,
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return errors.Wrapf(err, "encoding index %s", t.desc)
	}

	path := t.desc.Path(t.dataDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrapf(err, "creating index directory for %s", t.desc)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "writing index %s", t.desc)
	}
	return nil
}

// Load replaces the in-memory tree with the persisted snapshot.
func (t *Tree[K]) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	path := t.desc.Path(t.dataDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading index %s", t.desc)
	}

	var snap snapshot[K]
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return errors.Wrapf(err, "decoding index %s", t.desc)
	}

	t.order = snap.Order
	t.root = snap.Root
	t.nodes = make([]*node[K], len(snap.Nodes))
	for i, n := range snap.Nodes {
		t.nodes[i] = &node[K]{
			leaf:     n.Leaf,
			keys:     n.Keys,
			children: n.Children,
			values:   n.Values,
			next:     n.Next,
		}
	}

	log.WithFields(map[string]any{
		"index": t.desc.String(),
		"nodes": len(t.nodes),
	}).Debug("loaded index snapshot")
	return nil
}

// Destroy deletes the backing file and empties the in-memory tree. A
// missing file is not an error.
func (t *Tree[K]) Destroy() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reset()
	return index.RemoveArtifact(t.desc.Path(t.dataDir))
}
