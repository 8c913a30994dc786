package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kitbuilder587/stock-agent/internal/domain"
)

type MockRunRepository struct {
	mu   sync.RWMutex
	runs map[string]domain.Run

	// CreateErr is returned by Create when set.
	CreateErr error
}

func NewMockRunRepository() *MockRunRepository {
	return &MockRunRepository{runs: make(map[string]domain.Run)}
}

func (m *MockRunRepository) Create(ctx context.Context, run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	m.runs[run.ID] = *run
	return nil
}

func (m *MockRunRepository) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return &run, nil
}

func (m *MockRunRepository) ListRecent(ctx context.Context, limit int) ([]domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]domain.Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *MockRunRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

var _ RunRepository = (*MockRunRepository)(nil)
