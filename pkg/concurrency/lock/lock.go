package lock

import (
	"github.com/sirupsen/logrus"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
)

var log = logrus.WithField("component", "lock")

type LockType int

const (
	SharedLock LockType = iota
	ExclusiveLock
)

func (lt LockType) String() string {
	if lt == ExclusiveLock {
		return "X"
	}
	return "S"
}

// lockTypeFor maps an access kind onto the lock it needs: reads take a
// shared lock, writes an exclusive one.
func lockTypeFor(action primitives.Action) LockType {
	if action == primitives.Write {
		return ExclusiveLock
	}
	return SharedLock
}

// entry is the lock state of a single item. An item has at most one entry at
// a time; an exclusive entry has exactly one holder, a shared entry any
// number.
type entry struct {
	lockType LockType
	holders  map[primitives.TransactionID]struct{}
}

func newEntry(lockType LockType, tid primitives.TransactionID) *entry {
	return &entry{
		lockType: lockType,
		holders:  map[primitives.TransactionID]struct{}{tid: {}},
	}
}

func (e *entry) holds(tid primitives.TransactionID) bool {
	_, ok := e.holders[tid]
	return ok
}

func (e *entry) holderList() []primitives.TransactionID {
	holders := make([]primitives.TransactionID, 0, len(e.holders))
	for tid := range e.holders {
		holders = append(holders, tid)
	}
	return holders
}

// transaction is the scheduler's bookkeeping for one registered transaction.
// birth is its registration stamp; it is the one ordering key wound-wait
// compares, never the id value itself.
type transaction struct {
	id     primitives.TransactionID
	status primitives.Status
	birth  int64
}

// olderThan reports whether t registered before other.
func (t *transaction) olderThan(other *transaction) bool {
	return t.birth < other.birth
}
