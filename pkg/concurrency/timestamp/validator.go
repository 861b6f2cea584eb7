package timestamp

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
)

var log = logrus.WithField("component", "timestamp")

// objectTimestamp tracks the youngest read and write an object has seen,
// plus the transactions that read it. Objects start at time zero and are
// materialized on first access.
type objectTimestamp struct {
	readTS  float64
	writeTS float64
	readers map[primitives.TransactionID]struct{}
}

func newObjectTimestamp() *objectTimestamp {
	return &objectTimestamp{
		readers: make(map[primitives.TransactionID]struct{}),
	}
}

// transaction is the validator's record of one transaction: its fixed logical
// timestamp and the objects it touched.
type transaction struct {
	ts       float64
	status   primitives.Status
	accessed map[primitives.ObjectID]struct{}
}

// Validator implements timestamp-ordering concurrency control. Each
// transaction acts at a single logical instant; any access that would read a
// future write or overwrite a younger access aborts the transaction. The
// Thomas write rule is deliberately not applied: a stale write aborts even
// when it could be silently ignored.
type Validator struct {
	mu      sync.Mutex
	ids     *primitives.Sequence
	clock   *primitives.LogicalClock
	txns    map[primitives.TransactionID]*transaction
	objects map[primitives.ObjectID]*objectTimestamp
}

func NewValidator() *Validator {
	return &Validator{
		ids:     primitives.NewSequence(),
		clock:   primitives.NewLogicalClock(),
		txns:    make(map[primitives.TransactionID]*transaction),
		objects: make(map[primitives.ObjectID]*objectTimestamp),
	}
}

// Begin registers a transaction at the next logical tick.
func (v *Validator) Begin() primitives.TransactionID {
	v.mu.Lock()
	defer v.mu.Unlock()

	tid := primitives.TransactionID(v.ids.Next())
	v.txns[tid] = &transaction{
		ts:       v.clock.Tick(),
		status:   primitives.Active,
		accessed: make(map[primitives.ObjectID]struct{}),
	}
	return tid
}

// Log records that tid touched object without validating the access.
func (v *Validator) Log(object primitives.ObjectID, tid primitives.TransactionID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	tx, ok := v.txns[tid]
	if !ok || tx.status == primitives.Aborted {
		return false
	}
	tx.accessed[object] = struct{}{}
	return true
}

// Validate applies the timestamp-ordering rules to one access. A read behind
// the object's write timestamp aborts; a write behind either of the object's
// timestamps aborts. Abort is terminal: every later access of the
// transaction is denied without side effects.
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

	obj, ok := v.objects[object]
	if !ok {
		obj = newObjectTimestamp()
		v.objects[object] = obj
	}

	switch action {
	case primitives.Read:
		if tx.ts < obj.writeTS {
			v.abort(tx, tid, object, "read behind write timestamp")
			return false
		}
		if tx.ts > obj.readTS {
			obj.readTS = tx.ts
		}
		obj.readers[tid] = struct{}{}
	case primitives.Write:
		if tx.ts < obj.readTS || tx.ts < obj.writeTS {
			v.abort(tx, tid, object, "stale write")
			return false
		}
		obj.writeTS = tx.ts
	}

	tx.accessed[object] = struct{}{}
	return true
}

// End drops the transaction's bookkeeping. An active transaction commits;
// an aborted one is cleaned up identically, the status distinction is not
// retained past this point.
func (v *Validator) End(tid primitives.TransactionID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	tx, ok := v.txns[tid]
	if !ok {
		return
	}
	if tx.status == primitives.Active {
		tx.status = primitives.Committed
	}
	delete(v.txns, tid)
}

// Status reports the validator's view of a transaction.
func (v *Validator) Status(tid primitives.TransactionID) (primitives.Status, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	tx, ok := v.txns[tid]
	if !ok {
		return 0, false
	}
	return tx.status, true
}

// ObjectTimestamps returns the current read and write timestamps of an
// object, zero for objects never accessed.
func (v *Validator) ObjectTimestamps(object primitives.ObjectID) (readTS, writeTS float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	obj, ok := v.objects[object]
	if !ok {
		return 0, 0
	}
	return obj.readTS, obj.writeTS
}

func (v *Validator) abort(tx *transaction, tid primitives.TransactionID, object primitives.ObjectID, reason string) {
	tx.status = primitives.Aborted
	log.WithFields(map[string]any{
		"txn":    tid,
		"object": object,
		"reason": reason,
	}).Debug("timestamp order violation")
}
