package catalog

import (
	"context"
	"sync"

	"github.com/example/sport-scheduler/internal/db"
)

// MemoryStore is an in-process Store used by tests and dry runs.
type MemoryStore struct {
	mu    sync.Mutex
	slots []Slot
	next  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{next: 1}
}

func (m *MemoryStore) ReplaceAll(_ context.Context, slots []Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = make([]Slot, len(slots))
	for i, s := range slots {
		s.ID = m.next
		m.next++
		m.slots[i] = s
	}
	return nil
}

func (m *MemoryStore) All(_ context.Context) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Slot, len(m.slots))
	copy(out, m.slots)
	return out, nil
}

func (m *MemoryStore) ByKey(_ context.Context, key string) (Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.Key() == key {
			return s, nil
		}
	}
	return Slot{}, db.ErrNotFound
}

func (m *MemoryStore) ByWeekday(_ context.Context, weekday int) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Slot
	for _, s := range m.slots {
		if int(s.Weekday) == weekday {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots), nil
}
