package concurrency

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/concurrency/lock"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/concurrency/optimistic"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/concurrency/timestamp"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
)

var (
	// ErrUnsupportedStrategy is returned for algorithm names the manager does
	// not recognize. It is a constructor-time failure, never a runtime denial.
	ErrUnsupportedStrategy = errors.New("unsupported concurrency control strategy")

	// ErrNotImplemented is returned for the snapshot isolation placeholder.
	ErrNotImplemented = errors.New("snapshot isolation is not implemented")
)

// Algorithm selects one of the concurrency control strategies. The set is
// closed: one case per implemented strategy plus the snapshot isolation
// placeholder.
type Algorithm int

const (
	TwoPhaseLocking Algorithm = iota
	TimestampOrdering
	Optimistic
	SnapshotIsolation
)

func (a Algorithm) String() string {
	switch a {
	case TwoPhaseLocking:
		return "two-phase-locking"
	case TimestampOrdering:
		return "timestamp-ordering"
	case Optimistic:
		return "optimistic"
	case SnapshotIsolation:
		return "snapshot-isolation"
	default:
		return "unknown"
	}
}

// ParseAlgorithm resolves a configuration or wire name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "two-phase-locking", "2pl", "lock":
		return TwoPhaseLocking, nil
	case "timestamp-ordering", "timestamp", "tso":
		return TimestampOrdering, nil
	case "optimistic", "occ":
		return Optimistic, nil
	case "snapshot-isolation", "si":
		return SnapshotIsolation, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedStrategy, "%q", name)
	}
}

// Strategy is the uniform transaction lifecycle every concurrency control
// variant implements. Denials are boolean results: a false from Validate or
// Log is a conflict or a dead transaction, never a fault.
type Strategy interface {
	// Begin registers a new transaction and returns its id.
	Begin() primitives.TransactionID

	// Log records read-set membership for the transaction without
	// validating the access.
	Log(object primitives.ObjectID, tid primitives.TransactionID) bool

	// Validate checks one access against the strategy's rules and records
	// whatever bookkeeping the strategy needs.
	Validate(object primitives.ObjectID, tid primitives.TransactionID, action primitives.Action) bool

	// End terminates the transaction exactly once and drops its
	// active-transaction bookkeeping.
	End(tid primitives.TransactionID)
}

// newStrategy builds a fresh, empty strategy instance.
func newStrategy(algorithm Algorithm) (Strategy, error) {
	switch algorithm {
	case TwoPhaseLocking:
		return lock.NewScheduler(), nil
	case TimestampOrdering:
		return timestamp.NewValidator(), nil
	case Optimistic:
		return optimistic.NewValidator(), nil
	case SnapshotIsolation:
		return nil, ErrNotImplemented
	default:
		return nil, errors.Wrapf(ErrUnsupportedStrategy, "algorithm %d", int(algorithm))
	}
}
