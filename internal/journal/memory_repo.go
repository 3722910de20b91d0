package journal

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used by tests and by
// pkg/config's local-dev mode when no database is configured at all.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []*Entry
	nextID  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Append(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *e
	cp.ID = m.nextID
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MemoryRepository) List(_ context.Context, runID uuid.UUID) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Entry
	for _, e := range m.entries {
		if e.RunID == runID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scenario < out[j].Scenario })
	return out, nil
}

func (m *MemoryRepository) Recent(_ context.Context, limit int) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	n := len(m.entries)
	start := n - limit
	if start < 0 {
		start = 0
	}
	out := make([]*Entry, 0, n-start)
	for i := n - 1; i >= start; i-- {
		cp := *m.entries[i]
		out = append(out, &cp)
	}
	return out, nil
}
