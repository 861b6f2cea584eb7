package optimistic

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
)

var log = logrus.WithField("component", "optimistic")

// transaction carries the deferred-validation state: the window the
// transaction ran in and everything it read or wrote.
type transaction struct {
	start    float64
	finish   float64
	status   primitives.Status
	readSet  map[primitives.ObjectID]struct{}
	writeSet map[primitives.ObjectID]struct{}
}

// committed is the slice of a finished transaction the backward validation
// of later transactions needs: when it finished and what it wrote.
type committed struct {
	finish   float64
	writeSet map[primitives.ObjectID]struct{}
}

// Validator implements optimistic concurrency control with backward
// validation. Accesses are recorded, never checked; the whole conflict test
// runs at End against the committed history: a transaction fails if any
// transaction that committed after it started wrote something it read.
//
// The history is append-only and never garbage collected. That is an
// accepted resource weakness of this scheme; see DESIGN.md.
type Validator struct {
	mu      sync.Mutex
	ids     *primitives.Sequence
	clock   *primitives.LogicalClock
	txns    map[primitives.TransactionID]*transaction
	history []committed
}

func NewValidator() *Validator {
	return &Validator{
		ids:   primitives.NewSequence(),
		clock: primitives.NewLogicalClock(),
		txns:  make(map[primitives.TransactionID]*transaction),
	}
}

// Begin registers a transaction and stamps the start of its window.
func (v *Validator) Begin() primitives.TransactionID {
	v.mu.Lock()
	defer v.mu.Unlock()

	tid := primitives.TransactionID(v.ids.Next())
	v.txns[tid] = &transaction{
		start:    v.clock.Tick(),
		status:   primitives.Active,
		readSet:  make(map[primitives.ObjectID]struct{}),
		writeSet: make(map[primitives.ObjectID]struct{}),
	}
	return tid
}

// Log records object in the transaction's read set.
func (v *Validator) Log(object primitives.ObjectID, tid primitives.TransactionID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	tx, ok := v.txns[tid]
	if !ok || tx.status == primitives.Aborted {
		return false
	}
	tx.readSet[object] = struct{}{}
	return true
}

// Validate records the access and always allows it; conflict detection is
// deferred to End. Only an already-aborted or unknown transaction is denied.
func (v *Validator) Validate(object primitives.ObjectID, tid primitives.TransactionID, action primitives.Action) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	tx, ok := v.txns[tid]
	if !ok {
		log.WithField("txn", tid).Warn("validate for unknown transaction")
		return false
	}
	if tx.status == primitives.Aborted {
		return false
	}

	if action == primitives.Write {
		tx.writeSet[object] = struct{}{}
	} else {
		tx.readSet[object] = struct{}{}
	}
	return true
}

// End runs backward validation. On success the transaction commits, is
// stamped with its finish time and appended to the history; on failure it
// aborts. Either way its active bookkeeping is dropped. There is no
// automatic retry.
func (v *Validator) End(tid primitives.TransactionID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	tx, ok := v.txns[tid]
	if !ok {
		return
	}
	delete(v.txns, tid)

	if tx.status == primitives.Aborted {
		return
	}

	for i := range v.history {
		h := &v.history[i]
		if h.finish <= tx.start {
			continue
		}
		if intersects(h.writeSet, tx.readSet) {
			tx.status = primitives.Aborted
			log.WithField("txn", tid).Debug("backward validation failed")
			return
		}
	}

	tx.status = primitives.Committed
	tx.finish = v.clock.Tick()
	v.history = append(v.history, committed{finish: tx.finish, writeSet: tx.writeSet})
}

// HistorySize returns the number of committed transactions retained for
// backward validation.
func (v *Validator) HistorySize() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.history)
}

// Status reports the validator's view of an active transaction.
func (v *Validator) Status(tid primitives.TransactionID) (primitives.Status, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	tx, ok := v.txns[tid]
	if !ok {
		return 0, false
	}
	return tx.status, true
}

func intersects(a, b map[primitives.ObjectID]struct{}) bool {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for object := range small {
		if _, ok := large[object]; ok {
			return true
		}
	}
	return false
}
