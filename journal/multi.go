package journal

import (
	"errors"
	"sync"
	"time"
)

// Multi fans every record out to each journal. All journals are attempted;
// errors are joined.
type Multi []Journal

func (m Multi) RecordAction(a ActionRecord) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordAction(a))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordStatus(at time.Time, status []StatusRecord) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordStatus(at, status))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordTrade(t TradeRecord) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordTrade(t))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.Close())
	}
	return errors.Join(errs...)
}

// Memory keeps records in slices. It is meant for tests and dry runs.
type Memory struct {
	mu      sync.Mutex
	Actions []ActionRecord
	Status  [][]StatusRecord
	Trades  []TradeRecord
	Closed  bool
}

func (m *Memory) RecordAction(a ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Actions = append(m.Actions, a)
	return nil
}

func (m *Memory) RecordStatus(_ time.Time, status []StatusRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Status = append(m.Status, append([]StatusRecord(nil), status...))
	return nil
}

func (m *Memory) RecordTrade(t TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Trades = append(m.Trades, t)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Snapshot returns copies of the recorded actions and trades.
func (m *Memory) Snapshot() ([]ActionRecord, []TradeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ActionRecord(nil), m.Actions...), append([]TradeRecord(nil), m.Trades...)
}
