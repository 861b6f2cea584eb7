package concurrency

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/tuple"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Algorithm
		wantErr  bool
	}{
		{"canonical 2pl", "two-phase-locking", TwoPhaseLocking, false},
		{"short 2pl", "2PL", TwoPhaseLocking, false},
		{"timestamp", "timestamp-ordering", TimestampOrdering, false},
		{"tso alias", "tso", TimestampOrdering, false},
		{"occ alias", "occ", Optimistic, false},
		{"snapshot", "snapshot-isolation", SnapshotIsolation, false},
		{"padded", "  optimistic ", Optimistic, false},
		{"unknown", "mvcc", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alg, err := ParseAlgorithm(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsupportedStrategy))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, alg)
		})
	}
}

func TestNewManagerPerAlgorithm(t *testing.T) {
	for _, alg := range []Algorithm{TwoPhaseLocking, TimestampOrdering, Optimistic} {
		t.Run(alg.String(), func(t *testing.T) {
			m, err := NewManager(alg)
			require.NoError(t, err)
			assert.Equal(t, alg, m.Algorithm())
		})
	}
}

func TestNewManagerSnapshotIsolationPlaceholder(t *testing.T) {
	_, err := NewManager(SnapshotIsolation)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotImplemented))
}

func TestNewManagerUnknownAlgorithm(t *testing.T) {
	_, err := NewManager(Algorithm(99))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedStrategy))
}

func TestTransactionLifecycle(t *testing.T) {
	m, err := NewManager(TwoPhaseLocking)
	require.NoError(t, err)

	row := tuple.Row{"id": 1, "name": "alice"}
	tid := m.BeginTransaction()

	assert.True(t, m.LogObject(row, tid))

	d := m.ValidateObject(row, tid, primitives.Read)
	assert.True(t, d.Allowed)
	assert.Equal(t, tid, d.TID)

	d = m.ValidateObject(row, tid, primitives.Write)
	assert.True(t, d.Allowed)

	m.EndTransaction(tid)

	// Bookkeeping is gone: the id is unknown from here on.
	assert.False(t, m.ValidateObject(row, tid, primitives.Read).Allowed)
}

func TestRowsWithEqualContentShareObject(t *testing.T) {
	m, err := NewManager(TwoPhaseLocking)
	require.NoError(t, err)

	t1 := m.BeginTransaction()
	t2 := m.BeginTransaction()

	require.True(t, m.ValidateObject(tuple.Row{"id": 9}, t1, primitives.Write).Allowed)

	// A separately built row with the same id maps onto the same lock object.
	assert.False(t, m.ValidateObject(tuple.Row{"id": 9}, t2, primitives.Write).Allowed)
}

func TestSwitchAlgorithmDiscardsState(t *testing.T) {
	m, err := NewManager(TwoPhaseLocking)
	require.NoError(t, err)

	row := tuple.Row{"id": 3}
	tid := m.BeginTransaction()
	require.True(t, m.ValidateObject(row, tid, primitives.Write).Allowed)

	require.NoError(t, m.SwitchAlgorithm(Optimistic))
	assert.Equal(t, Optimistic, m.Algorithm())

	// The old transaction does not exist under the fresh strategy.
	assert.False(t, m.ValidateObject(row, tid, primitives.Write).Allowed)

	// And a new transaction starts from a clean lock table.
	t2 := m.BeginTransaction()
	assert.True(t, m.ValidateObject(row, t2, primitives.Write).Allowed)
}

func TestSwitchAlgorithmToSameResetsState(t *testing.T) {
	m, err := NewManager(TwoPhaseLocking)
	require.NoError(t, err)

	row := tuple.Row{"id": 5}
	t1 := m.BeginTransaction()
	require.True(t, m.ValidateObject(row, t1, primitives.Write).Allowed)

	require.NoError(t, m.SwitchAlgorithm(TwoPhaseLocking))

	t2 := m.BeginTransaction()
	assert.True(t, m.ValidateObject(row, t2, primitives.Write).Allowed)
}

func TestSwitchAlgorithmRejectsPlaceholder(t *testing.T) {
	m, err := NewManager(TwoPhaseLocking)
	require.NoError(t, err)

	require.Error(t, m.SwitchAlgorithm(SnapshotIsolation))

	// The failed switch leaves the running strategy untouched.
	assert.Equal(t, TwoPhaseLocking, m.Algorithm())
	tid := m.BeginTransaction()
	assert.True(t, m.ValidateObject(tuple.Row{"id": 1}, tid, primitives.Read).Allowed)
}
