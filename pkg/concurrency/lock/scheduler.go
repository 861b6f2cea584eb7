package lock

import (
	"sync"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
)

// Scheduler is a strict two-phase locking scheduler with wound-wait deadlock
// avoidance. Reads take shared locks, writes exclusive ones, and nothing is
// released before the transaction ends. On a conflict the older transaction
// wounds the younger holder; a younger requester is queued and denied. Under
// that rule no wait cycle can form, so there is no deadlock detector.
//
// A single mutex is held for the whole of every operation. There is no
// blocking wait primitive: a denied request is the caller's signal to retry.
type Scheduler struct {
	mu     sync.Mutex
	ids    *primitives.Sequence
	births *primitives.Sequence
	table  *lockTable
	queue  *waitQueue
	txns   map[primitives.TransactionID]*transaction
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		ids:    primitives.NewSequence(),
		births: primitives.NewSequence(),
		table:  newLockTable(),
		queue:  newWaitQueue(),
		txns:   make(map[primitives.TransactionID]*transaction),
	}
}

// Begin registers a new transaction and returns its id. The registration
// stamp taken here is what wound-wait later compares; the id value itself is
// never used for ordering.
func (s *Scheduler) Begin() primitives.TransactionID {
	s.mu.Lock()
	defer s.mu.Unlock()

	tid := primitives.TransactionID(s.ids.Next())
	s.txns[tid] = &transaction{
		id:     tid,
		status: primitives.Active,
		birth:  s.births.Next(),
	}
	return tid
}

// Log records read-set membership for a transaction. Under two-phase locking
// the read set is implied by the shared locks themselves, so beyond checking
// that the transaction is known and alive this does nothing.
func (s *Scheduler) Log(item primitives.ObjectID, tid primitives.TransactionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txns[tid]
	return ok && tx.status != primitives.Aborted
}

// Validate requests the lock the action needs and reports whether the access
// may proceed. A false result is either a conflict (retry later) or a dead
// transaction (unknown or aborted; retrying cannot help).
func (s *Scheduler) Validate(item primitives.ObjectID, tid primitives.TransactionID, action primitives.Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txns[tid]
	if !ok {
		log.WithField("txn", tid).Warn("validate for unknown transaction")
		return false
	}
	if tx.status == primitives.Aborted {
		return false
	}
	return s.acquire(tx, item, lockTypeFor(action))
}

// End terminates a transaction: Active becomes Committed, Aborted stays
// Aborted. All of its locks are released, its bookkeeping dropped, and the
// wait queue is re-evaluated once in FIFO order.
func (s *Scheduler) End(tid primitives.TransactionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txns[tid]
	if !ok {
		return
	}
	if tx.status == primitives.Active {
		tx.status = primitives.Committed
	}

	s.table.releaseAll(tid)
	s.queue.removeTransaction(tid)
	delete(s.txns, tid)

	s.retryWaiters()
	log.WithFields(map[string]any{"txn": tid, "status": tx.status.String()}).Debug("transaction ended")
}

// Status reports the scheduler's view of a transaction. Wounded transactions
// remain visible as Aborted until their own End call.
func (s *Scheduler) Status(tid primitives.TransactionID) (primitives.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txns[tid]
	if !ok {
		return 0, false
	}
	return tx.status, true
}

// LockedItems returns the items tid currently holds locks on.
func (s *Scheduler) LockedItems(tid primitives.TransactionID) []primitives.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.lockedItems(tid)
}

// Waiting reports whether tid has a queued request for item.
func (s *Scheduler) Waiting(tid primitives.TransactionID, item primitives.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.waiting(tid, item)
}

// acquire grants the lock if it is compatible with the item's current entry,
// otherwise applies wound-wait to every conflicting holder. Even when all
// conflicting holders are wounded the requester is denied; its retry finds
// the item free.
func (s *Scheduler) acquire(tx *transaction, item primitives.ObjectID, mode LockType) bool {
	if s.tryGrant(tx, item, mode) {
		return true
	}

	e := s.table.entryFor(item)
	if e == nil {
		return false
	}

	wait := false
	for _, holder := range e.holderList() {
		if holder == tx.id {
			continue
		}
		other, ok := s.txns[holder]
		if !ok {
			continue
		}
		if tx.olderThan(other) {
			s.wound(other, tx, item)
		} else {
			wait = true
		}
	}
	if wait {
		s.queue.add(tx.id, item, mode)
	}
	return false
}

// tryGrant grants the request only when no conflict exists: a free item, a
// compatible shared entry, a lock already held, or an upgrade by the sole
// shared holder. It has no side effects on failure.
func (s *Scheduler) tryGrant(tx *transaction, item primitives.ObjectID, mode LockType) bool {
	e := s.table.entryFor(item)
	if e == nil {
		s.table.grant(tx.id, item, mode)
		return true
	}

	if e.holds(tx.id) {
		if e.lockType == ExclusiveLock || mode == SharedLock {
			return true
		}
		if len(e.holders) == 1 {
			s.table.upgrade(item)
			return true
		}
		return false
	}

	if e.lockType == SharedLock && mode == SharedLock {
		s.table.grant(tx.id, item, SharedLock)
		return true
	}
	return false
}

// wound aborts a younger lock holder on behalf of an older requester. The
// victim's locks are released and its queued requests discarded; it stays
// registered as Aborted so every later call on its id is denied.
func (s *Scheduler) wound(victim, by *transaction, item primitives.ObjectID) {
	victim.status = primitives.Aborted
	s.table.releaseAll(victim.id)
	s.queue.removeTransaction(victim.id)

	log.WithFields(map[string]any{
		"victim": victim.id,
		"by":     by.id,
		"item":   item,
	}).Debug("wounded younger transaction")
}

// retryWaiters replays the wait queue once in arrival order. Requests whose
// transaction has died are dropped; the rest are granted if now compatible
// and kept queued otherwise.
func (s *Scheduler) retryWaiters() {
	s.queue.filter(func(req *request) bool {
		tx, ok := s.txns[req.tid]
		if !ok || tx.status == primitives.Aborted {
			return true
		}
		return s.tryGrant(tx, req.item, req.lockType)
	})
}
