package assessment

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type recordKey struct {
	employeeID string
	periodID   int64
}

// MemoryStore keeps records in process memory. Writes are staged on the Tx
// and applied at Commit under one lock after a version check.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[recordKey]Record{}}
}

func (m *MemoryStore) Begin(context.Context) (Tx, error) {
	return &memoryTx{store: m}, nil
}

func (m *MemoryStore) Get(_ context.Context, employeeID string, periodID int64) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[recordKey{employeeID, periodID}]
	return rec, ok, nil
}

func (m *MemoryStore) ListByEmployee(_ context.Context, employeeID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for key, rec := range m.records {
		if key.employeeID == employeeID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodID > out[j].PeriodID })
	return out, nil
}

func (m *MemoryStore) ListByPeriod(_ context.Context, periodID int64, employeeIDs []string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(employeeIDs))
	for _, id := range employeeIDs {
		if rec, ok := m.records[recordKey{id, periodID}]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len reports how many records exist.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

var errTxDone = errors.New("transaction already finished")

type stagedWrite struct {
	rec             Record
	expectedVersion int64
}

type memoryTx struct {
	store  *MemoryStore
	writes []stagedWrite
	done   bool
}

func (t *memoryTx) Get(ctx context.Context, employeeID string, periodID int64) (Record, bool, error) {
	if t.done {
		return Record{}, false, errTxDone
	}
	for i := len(t.writes) - 1; i >= 0; i-- {
		w := t.writes[i]
		if w.rec.EmployeeID == employeeID && w.rec.PeriodID == periodID {
			return w.rec, true, nil
		}
	}
	return t.store.Get(ctx, employeeID, periodID)
}

func (t *memoryTx) Save(_ context.Context, rec Record, expectedVersion int64) (Record, error) {
	if t.done {
		return Record{}, errTxDone
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Version = expectedVersion + 1
	t.writes = append(t.writes, stagedWrite{rec: rec, expectedVersion: expectedVersion})
	return rec, nil
}

func (t *memoryTx) Commit(context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	pending := map[recordKey]int64{}
	for _, w := range t.writes {
		key := recordKey{w.rec.EmployeeID, w.rec.PeriodID}
		version, seen := pending[key]
		if !seen {
			version = t.store.records[key].Version
		}
		if version != w.expectedVersion {
			return ErrConflict
		}
		pending[key] = w.rec.Version
	}
	for _, w := range t.writes {
		key := recordKey{w.rec.EmployeeID, w.rec.PeriodID}
		if current, ok := t.store.records[key]; ok {
			w.rec.ID = current.ID
			w.rec.CreatedAt = current.CreatedAt
		}
		t.store.records[key] = w.rec
	}
	return nil
}

func (t *memoryTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.writes = nil
	return nil
}
