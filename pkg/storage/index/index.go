package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Kind names an index implementation. BTree is the only kind this engine
// ships; the name is part of every index's on-disk path, so adding a kind
// never collides with existing artifacts.
type Kind string

const (
	BTree Kind = "btree"
)

func ParseKind(str string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "btree":
		return BTree, nil
	default:
		return "", errors.Errorf("unknown index kind %q", str)
	}
}

// Descriptor identifies one index: the table and column it covers and the
// index kind. It is the key of the on-disk artifact and of the registry.
type Descriptor struct {
	Table  string
	Column string
	Kind   Kind
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s.%s(%s)", d.Table, d.Column, d.Kind)
}

// Path derives the backing file location: one artifact per index, under a
// directory namespaced by table.
func (d Descriptor) Path(dataDir string) string {
	return filepath.Join(dataDir, d.Table, fmt.Sprintf("%s.%s.idx", d.Column, d.Kind))
}

// Index is the persistence contract of an index structure: the whole
// structure is serialized and restored as one unit, and Destroy removes the
// backing artifact.
type Index interface {
	// Save writes the entire structure to its backing file.
	Save() error

	// Load replaces the in-memory structure with the persisted snapshot.
	Load() error

	// Destroy deletes the backing file. A missing file is not an error.
	Destroy() error

	// Descriptor returns the identity of this index.
	Descriptor() Descriptor
}

// RemoveArtifact deletes an index file, treating a missing file as success.
func RemoveArtifact(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing index artifact %s", path)
	}
	return nil
}
