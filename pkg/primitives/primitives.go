package primitives

import "fmt"

// TransactionID identifies a transaction. Ids are handed out by a Sequence,
// strictly increase over the life of the process and are never reused.
type TransactionID int64

func (tid TransactionID) String() string {
	return fmt.Sprintf("TID-%d", tid)
}

// RowID locates a row inside its table's storage. The engine treats it as an
// opaque integer handle; indexes map keys to lists of RowIDs.
type RowID int64

// ObjectID names the lock/version object a row maps onto. Two rows with equal
// content always derive the same ObjectID; see tuple.DeriveObjectID.
type ObjectID string

// Action is the kind of access a transaction requests on an object.
type Action int

const (
	Read Action = iota
	Write
)

func (a Action) String() string {
	switch a {
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Status is the lifecycle state of a transaction. A transaction is created
// Active, ends Committed exactly once, or becomes Aborted and stays there.
type Status int

const (
	Active Status = iota
	Committed
	Aborted
)

func (s Status) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}
