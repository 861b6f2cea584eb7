package lock

import (
	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
)

// lockTable maintains the item->lock mapping together with a reverse index
// from each transaction to the items it has locked. The two sides are always
// updated together; the scheduler's mutex makes every mutation atomic from
// the caller's point of view.
type lockTable struct {
	itemLocks map[primitives.ObjectID]*entry
	txnLocks  map[primitives.TransactionID]map[primitives.ObjectID]struct{}
}

func newLockTable() *lockTable {
	return &lockTable{
		itemLocks: make(map[primitives.ObjectID]*entry),
		txnLocks:  make(map[primitives.TransactionID]map[primitives.ObjectID]struct{}),
	}
}

func (lt *lockTable) entryFor(item primitives.ObjectID) *entry {
	return lt.itemLocks[item]
}

// grant records tid as a holder of item. For a fresh item a new entry is
// created; for an existing shared entry the transaction joins the holder set.
func (lt *lockTable) grant(tid primitives.TransactionID, item primitives.ObjectID, lockType LockType) {
	if e, ok := lt.itemLocks[item]; ok {
		e.holders[tid] = struct{}{}
	} else {
		lt.itemLocks[item] = newEntry(lockType, tid)
	}

	if lt.txnLocks[tid] == nil {
		lt.txnLocks[tid] = make(map[primitives.ObjectID]struct{})
	}
	lt.txnLocks[tid][item] = struct{}{}
}

// upgrade promotes an item's entry to exclusive. Callers must have verified
// that tid is the sole holder.
func (lt *lockTable) upgrade(item primitives.ObjectID) {
	if e, ok := lt.itemLocks[item]; ok {
		e.lockType = ExclusiveLock
	}
}

// releaseAll drops every lock held by tid and returns the items that were
// released.
func (lt *lockTable) releaseAll(tid primitives.TransactionID) []primitives.ObjectID {
	items, ok := lt.txnLocks[tid]
	if !ok {
		return nil
	}
	delete(lt.txnLocks, tid)

	released := make([]primitives.ObjectID, 0, len(items))
	for item := range items {
		released = append(released, item)
		e, ok := lt.itemLocks[item]
		if !ok {
			continue
		}
		delete(e.holders, tid)
		if len(e.holders) == 0 {
			delete(lt.itemLocks, item)
		}
	}
	return released
}

// lockedItems returns the items tid currently holds locks on.
func (lt *lockTable) lockedItems(tid primitives.TransactionID) []primitives.ObjectID {
	items := make([]primitives.ObjectID, 0, len(lt.txnLocks[tid]))
	for item := range lt.txnLocks[tid] {
		items = append(items, item)
	}
	return items
}
