package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// MockStateStore is a mock implementation of WorkspaceStateStore for testing
type MockStateStore struct {
	mu    sync.Mutex
	state *domain.WorkspaceState
	saves int

	SaveFn func(state *domain.WorkspaceState) error
}

// NewMockStateStore creates a new MockStateStore with an optional initial state
func NewMockStateStore(initial *domain.WorkspaceState) *MockStateStore {
	return &MockStateStore{state: initial}
}

func (m *MockStateStore) Load(ctx context.Context) (*domain.WorkspaceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return &domain.WorkspaceState{}, nil
	}
	copied := *m.state
	copied.Documents = append([]string(nil), m.state.Documents...)
	return &copied, nil
}

func (m *MockStateStore) Save(ctx context.Context, state *domain.WorkspaceState) error {
	if m.SaveFn != nil {
		if err := m.SaveFn(state); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	copied.Documents = append([]string(nil), state.Documents...)
	m.state = &copied
	m.saves++
	return nil
}

// Saved returns the last saved state (for test assertions)
func (m *MockStateStore) Saved() *domain.WorkspaceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Saves returns how many times Save succeeded
func (m *MockStateStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
