package concurrency

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/tuple"
)

var log = logrus.WithField("component", "concurrency")

// Decision is the outcome of validating one access.
type Decision struct {
	Allowed bool
	TID     primitives.TransactionID
}

// Manager is the concurrency control facade the query executor talks to. It
// owns exactly one active strategy instance and forwards the uniform
// transaction lifecycle to it, mapping rows onto lock/version object ids on
// the way in.
//
// All worker threads share one Manager.
type Manager struct {
	mu        sync.RWMutex
	algorithm Algorithm
	strategy  Strategy
}

// NewManager builds a manager running the given algorithm. Unrecognized or
// unimplemented algorithms fail here, at construction, not at use.
func NewManager(algorithm Algorithm) (*Manager, error) {
	strategy, err := newStrategy(algorithm)
	if err != nil {
		return nil, err
	}
	return &Manager{algorithm: algorithm, strategy: strategy}, nil
}

// Algorithm returns the currently active algorithm.
func (m *Manager) Algorithm() Algorithm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.algorithm
}

// SwitchAlgorithm replaces the active strategy with a fresh instance of the
// requested one. Every in-flight transaction registered under the old
// strategy is discarded with it; callers must not switch mid-transaction.
func (m *Manager) SwitchAlgorithm(algorithm Algorithm) error {
	strategy, err := newStrategy(algorithm)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	log.WithFields(map[string]any{
		"from": m.algorithm.String(),
		"to":   algorithm.String(),
	}).Info("switching concurrency control strategy")
	m.algorithm = algorithm
	m.strategy = strategy
	return nil
}

// BeginTransaction starts a transaction under the active strategy.
func (m *Manager) BeginTransaction() primitives.TransactionID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.strategy.Begin()
}

// LogObject registers the row in the transaction's read set.
func (m *Manager) LogObject(row tuple.Row, tid primitives.TransactionID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.strategy.Log(tuple.DeriveObjectID(row), tid)
}

// ValidateObject checks one row access against the active strategy. The
// caller performs the access only when the decision allows it; a denied
// access is retried or the transaction given up, at the caller's choice.
func (m *Manager) ValidateObject(row tuple.Row, tid primitives.TransactionID, action primitives.Action) Decision {
	m.mu.RLock()
	defer m.mu.RUnlock()
	allowed := m.strategy.Validate(tuple.DeriveObjectID(row), tid, action)
	return Decision{Allowed: allowed, TID: tid}
}

// EndTransaction finishes the transaction (commit or abort is the
// strategy's call) and drops its bookkeeping.
func (m *Manager) EndTransaction(tid primitives.TransactionID) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.strategy.End(tid)
}
