package recovery

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/tuple"
)

var log = logrus.WithField("component", "recovery")

// Record is one undo entry: which transaction changed which row, when, and
// the row images on both sides of the change.
type Record struct {
	TxnID     primitives.TransactionID
	Timestamp float64
	Table     string
	RowID     primitives.RowID
	Before    tuple.Row
	After     tuple.Row
}

// Criteria selects the records a recovery pass must undo: everything at or
// after a timestamp cutoff, or everything belonging to one transaction.
// Exactly one selector is set.
type Criteria struct {
	sinceTimestamp *float64
	txnID          *primitives.TransactionID
}

// ByTimestamp selects every record with Timestamp >= cutoff.
func ByTimestamp(cutoff float64) Criteria {
	return Criteria{sinceTimestamp: &cutoff}
}

// ByTransaction selects every record written by tid.
func ByTransaction(tid primitives.TransactionID) Criteria {
	return Criteria{txnID: &tid}
}

func (c Criteria) matches(rec Record) bool {
	if c.sinceTimestamp != nil {
		return rec.Timestamp >= *c.sinceTimestamp
	}
	if c.txnID != nil {
		return rec.TxnID == *c.txnID
	}
	return false
}

const (
	tagRecord     byte = 1
	tagCheckpoint byte = 2
)

// Manager is the failure-recovery log: an append-only, synchronously
// flushed file of undo records. Recover replays the selection a caller
// must undo; applying the undo is the storage layer's job.
type Manager struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewManager opens (or creates) the log file at path. Writes are O_SYNC:
// a record returned from WriteLog is on disk.
func NewManager(path string) (*Manager, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening recovery log %s", path)
	}
	return &Manager{path: path, file: file}, nil
}

// WriteLog appends one undo record.
func (m *Manager) WriteLog(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.append(tagRecord, rec)
}

// SaveCheckpoint appends a checkpoint marker. Markers bound the log for
// operators; they do not narrow what Recover selects (see DESIGN.md).
func (m *Manager) SaveCheckpoint() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.append(tagCheckpoint, Record{}); err != nil {
		return err
	}
	log.Debug("checkpoint saved")
	return nil
}

// Recover returns the records the criteria selects, newest first, which is
// the order they must be undone in.
func (m *Manager) Recover(criteria Criteria) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.readAll()
	if err != nil {
		return nil, err
	}

	selected := make([]Record, 0)
	for i := len(records) - 1; i >= 0; i-- {
		if criteria.matches(records[i]) {
			selected = append(selected, records[i])
		}
	}

	log.WithField("records", len(selected)).Info("recovery selection complete")
	return selected, nil
}

// Close closes the log file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Close()
}

// append frames one entry as tag, payload length, gob payload. Each payload
// is encoded independently so the log stays readable after any number of
// reopen/append cycles.
func (m *Manager) append(tag byte, rec Record) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(rec); err != nil {
		return errors.Wrap(err, "encoding log record")
	}

	var frame bytes.Buffer
	frame.WriteByte(tag)
	if err := binary.Write(&frame, binary.BigEndian, uint32(payload.Len())); err != nil {
		return errors.Wrap(err, "framing log record")
	}
	frame.Write(payload.Bytes())

	if _, err := m.file.Write(frame.Bytes()); err != nil {
		return errors.Wrapf(err, "appending to recovery log %s", m.path)
	}
	return nil
}

// readAll parses the whole log, skipping checkpoint markers.
func (m *Manager) readAll() ([]Record, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading recovery log %s", m.path)
	}

	var records []Record
	r := bytes.NewReader(data)
	for {
		tag, err := r.ReadByte()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading log frame tag")
		}

		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, errors.Wrap(err, "reading log frame length")
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, errors.Wrap(err, "reading log frame payload")
		}

		if tag == tagCheckpoint {
			continue
		}

		var rec Record
		if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&rec); err != nil {
			return nil, errors.Wrap(err, "decoding log record")
		}
		records = append(records, rec)
	}
}
