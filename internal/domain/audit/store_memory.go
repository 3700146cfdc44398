package audit

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, evt Event) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	evt.ID = int64(len(m.events) + 1)
	m.events = append(m.events, evt)
	return evt.ID, nil
}

func (m *MemoryStore) List(_ context.Context, filter Filter) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	skipped := 0
	for i := len(m.events) - 1; i >= 0; i-- {
		evt := m.events[i]
		if !matches(evt, filter) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, evt)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func matches(evt Event, filter Filter) bool {
	return (filter.Action == "" || evt.Action == filter.Action) &&
		(filter.EntityType == "" || evt.EntityType == filter.EntityType) &&
		(filter.EntityID == "" || evt.EntityID == filter.EntityID) &&
		(filter.ActorID == "" || evt.ActorID == filter.ActorID)
}
