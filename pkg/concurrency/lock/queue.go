package lock

import (
	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
)

// request is one pending lock acquisition waiting for its conflict to clear.
type request struct {
	tid      primitives.TransactionID
	item     primitives.ObjectID
	lockType LockType
}

// waitQueue is the single FIFO of denied lock requests. Order of arrival is
// the order requests are retried in when locks are released. Enqueueing the
// same transaction/item/mode twice is a no-op, so a transaction polling a
// contended item does not multiply its queue entries.
type waitQueue struct {
	requests []*request
}

func newWaitQueue() *waitQueue {
	return &waitQueue{}
}

func (wq *waitQueue) add(tid primitives.TransactionID, item primitives.ObjectID, lockType LockType) {
	for _, req := range wq.requests {
		if req.tid == tid && req.item == item && req.lockType == lockType {
			return
		}
	}
	wq.requests = append(wq.requests, &request{tid: tid, item: item, lockType: lockType})
}

// removeTransaction discards every pending request of tid, preserving the
// order of the rest.
func (wq *waitQueue) removeTransaction(tid primitives.TransactionID) {
	kept := wq.requests[:0]
	for _, req := range wq.requests {
		if req.tid != tid {
			kept = append(kept, req)
		}
	}
	wq.requests = kept
}

// filter retries each request in FIFO order with the supplied grant
// function; requests for which it succeeds are removed, the rest stay
// queued in their original order.
func (wq *waitQueue) filter(grant func(*request) bool) {
	kept := wq.requests[:0]
	for _, req := range wq.requests {
		if !grant(req) {
			kept = append(kept, req)
		}
	}
	wq.requests = kept
}

func (wq *waitQueue) waiting(tid primitives.TransactionID, item primitives.ObjectID) bool {
	for _, req := range wq.requests {
		if req.tid == tid && req.item == item {
			return true
		}
	}
	return false
}

func (wq *waitQueue) len() int {
	return len(wq.requests)
}
