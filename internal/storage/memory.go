package storage

import (
	"context"
	"sync"

	"paycheck/internal/core"
)

// MemoryStore keeps the snapshot in process. State is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	budget *core.Budget
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (*core.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.budget == nil {
		return core.NewBudget(), nil
	}
	return m.budget.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, b *core.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budget = b.Clone()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
