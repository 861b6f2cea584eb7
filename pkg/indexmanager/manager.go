package indexmanager

import (
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/storage/index"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/storage/index/btree"
)

var log = logrus.WithField("component", "indexmanager")

// KeyType declares the key domain of an indexed column.
type KeyType string

const (
	IntKey    KeyType = "int"
	FloatKey  KeyType = "float"
	StringKey KeyType = "string"
)

func ParseKeyType(str string) (KeyType, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "int":
		return IntKey, nil
	case "float":
		return FloatKey, nil
	case "string":
		return StringKey, nil
	default:
		return "", errors.Errorf("unknown key type %q", str)
	}
}

// Manager owns every index of the database: it creates, opens, caches and
// drops them, keyed by descriptor. Open instances are held in a ristretto
// cache so repeated access to the same index does not reload the snapshot
// from disk.
type Manager struct {
	dataDir string
	order   int

	mu    sync.Mutex
	cache *ristretto.Cache[string, Handle]
}

// NewManager builds a manager storing index artifacts under dataDir and
// creating trees with the given order.
func NewManager(dataDir string, order int) (*Manager, error) {
	if order < btree.MinOrder {
		return nil, errors.Errorf("index order %d below minimum %d", order, btree.MinOrder)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, Handle]{
		NumCounters: 1 << 12,
		MaxCost:     1 << 10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating index cache")
	}

	return &Manager{dataDir: dataDir, order: order, cache: cache}, nil
}

// Create builds a fresh empty index, persists it and caches the open handle.
func (m *Manager) Create(desc index.Descriptor, keyType KeyType) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, err := m.newHandle(desc, keyType)
	if err != nil {
		return nil, err
	}
	if err := h.Save(); err != nil {
		return nil, err
	}

	m.put(desc, h)
	log.WithField("index", desc.String()).Info("created index")
	return h, nil
}

// Open returns the cached handle for desc or loads its snapshot from disk.
func (m *Manager) Open(desc index.Descriptor, keyType KeyType) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.cache.Get(desc.String()); ok {
		return h, nil
	}

	h, err := m.newHandle(desc, keyType)
	if err != nil {
		return nil, err
	}
	if err := h.Load(); err != nil {
		return nil, err
	}

	m.put(desc, h)
	return h, nil
}

// Drop destroys the index artifact and evicts any cached handle.
func (m *Manager) Drop(desc index.Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Del(desc.String())

	if h, err := m.newHandle(desc, IntKey); err == nil {
		// The key type is irrelevant for deleting the artifact.
		if err := h.Destroy(); err != nil {
			return err
		}
	}
	log.WithField("index", desc.String()).Info("dropped index")
	return nil
}

// Close releases the cache. Indexes themselves need no closing: every
// mutation is already persisted.
func (m *Manager) Close() {
	m.cache.Close()
}

func (m *Manager) put(desc index.Descriptor, h Handle) {
	m.cache.Set(desc.String(), h, 1)
	m.cache.Wait()
}

func (m *Manager) newHandle(desc index.Descriptor, keyType KeyType) (Handle, error) {
	if desc.Kind != index.BTree {
		return nil, errors.Errorf("unsupported index kind %q", desc.Kind)
	}

	switch keyType {
	case IntKey:
		return newTypedHandle[int64](m, desc, parseInt)
	case FloatKey:
		return newTypedHandle[float64](m, desc, parseFloat)
	case StringKey:
		return newTypedHandle[string](m, desc, parseString)
	default:
		return nil, errors.Errorf("unknown key type %q", keyType)
	}
}
