package store

import (
	"context"
	"sync"
)

// Memory is an in-process TaskStore. Rows live in a slice in insertion order.
type Memory struct {
	mu   sync.RWMutex
	rows []Task
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Append implements TaskStore.
func (m *Memory) Append(ctx context.Context, task Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, task)
	return nil
}

// Query implements TaskStore.
func (m *Memory) Query(ctx context.Context, userID string) ([]Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Task, len(m.rows))
	copy(result, m.rows)
	return result, nil
}

// DeleteMatching implements TaskStore.
func (m *Memory) DeleteMatching(ctx context.Context, userID, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.rows[:0]
	removed := 0
	for _, t := range m.rows {
		if t.UserID == userID && t.Name == name {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	// Clear the tail so removed rows are not retained by the backing array.
	for i := len(kept); i < len(m.rows); i++ {
		m.rows[i] = Task{}
	}
	m.rows = kept
	return removed, nil
}

// Len returns the number of stored rows.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
