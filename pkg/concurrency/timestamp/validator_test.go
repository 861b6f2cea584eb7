package timestamp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
)

const objA = primitives.ObjectID("id=A")

func TestReadBehindWriteAborts(t *testing.T) {
	v := NewValidator()
	t1 := v.Begin()
	t2 := v.Begin()

	// The younger transaction writes first; the older read arrives late.
	require.True(t, v.Validate(objA, t2, primitives.Write))
	assert.False(t, v.Validate(objA, t1, primitives.Read))

	st, ok := v.Status(t1)
	require.True(t, ok)
	assert.Equal(t, primitives.Aborted, st)
}

func TestStaleWriteAborts(t *testing.T) {
	tests := []struct {
		name   string
		access primitives.Action
	}{
		{"write behind read timestamp", primitives.Read},
		{"write behind write timestamp", primitives.Write},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			t1 := v.Begin()
			t2 := v.Begin()

			require.True(t, v.Validate(objA, t2, tt.access))
			assert.False(t, v.Validate(objA, t1, primitives.Write))

			st, _ := v.Status(t1)
			assert.Equal(t, primitives.Aborted, st)
		})
	}
}

func TestInOrderAccessesSucceed(t *testing.T) {
	v := NewValidator()
	t1 := v.Begin()
	t2 := v.Begin()

	assert.True(t, v.Validate(objA, t1, primitives.Read))
	assert.True(t, v.Validate(objA, t1, primitives.Write))
	assert.True(t, v.Validate(objA, t2, primitives.Read))
	assert.True(t, v.Validate(objA, t2, primitives.Write))
}

func TestWriteTimestampOnlyIncreases(t *testing.T) {
	v := NewValidator()

	var lastWrite float64
	for i := 0; i < 10; i++ {
		tid := v.Begin()
		if v.Validate(objA, tid, primitives.Write) {
			_, w := v.ObjectTimestamps(objA)
			assert.GreaterOrEqual(t, w, lastWrite)
			lastWrite = w
		}
		v.End(tid)
	}
	assert.Greater(t, lastWrite, 0.0)
}

func TestReadTimestampTracksYoungestReader(t *testing.T) {
	v := NewValidator()
	t1 := v.Begin()
	t2 := v.Begin()

	require.True(t, v.Validate(objA, t2, primitives.Read))
	r1, _ := v.ObjectTimestamps(objA)

	// An older read does not move the read timestamp backwards.
	require.True(t, v.Validate(objA, t1, primitives.Read))
	r2, _ := v.ObjectTimestamps(objA)
	assert.Equal(t, r1, r2)
}

func TestAbortIsTerminal(t *testing.T) {
	v := NewValidator()
	t1 := v.Begin()
	t2 := v.Begin()

	require.True(t, v.Validate(objA, t2, primitives.Write))
	require.False(t, v.Validate(objA, t1, primitives.Read))

	// Further validations are denied and leave no trace on fresh objects.
	assert.False(t, v.Validate("id=B", t1, primitives.Write))
	r, w := v.ObjectTimestamps("id=B")
	assert.Zero(t, r)
	assert.Zero(t, w)
	assert.False(t, v.Log(objA, t1))
}

func TestEndDropsBookkeepingRegardlessOfOutcome(t *testing.T) {
	v := NewValidator()
	t1 := v.Begin()
	t2 := v.Begin()

	require.True(t, v.Validate(objA, t2, primitives.Write))
	require.False(t, v.Validate(objA, t1, primitives.Read)) // t1 aborted

	v.End(t1)
	v.End(t2)

	_, ok := v.Status(t1)
	assert.False(t, ok)
	_, ok = v.Status(t2)
	assert.False(t, ok)
}

func TestValidateUnknownTransactionDenied(t *testing.T) {
	v := NewValidator()
	assert.False(t, v.Validate(objA, primitives.TransactionID(99), primitives.Read))
}

func TestLogRecordsAccess(t *testing.T) {
	v := NewValidator()
	t1 := v.Begin()

	assert.True(t, v.Log(objA, t1))

	// Logging alone does not move object timestamps.
	r, w := v.ObjectTimestamps(objA)
	assert.Zero(t, r)
	assert.Zero(t, w)
}
