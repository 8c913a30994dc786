package repository

import (
	"context"

	"github.com/kitbuilder587/stock-agent/internal/domain"
)

// RunRepository keeps the history of finished analysis runs.
type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id string) (*domain.Run, error)
	// ListRecent returns runs newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.Run, error)
}
