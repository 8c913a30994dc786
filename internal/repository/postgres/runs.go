package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kitbuilder587/stock-agent/internal/domain"
	"github.com/kitbuilder587/stock-agent/internal/repository"
)

const defaultListLimit = 20

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	query := `
        INSERT INTO analysis_runs (id, provider, mode, stocks, query, response, file_path)
        VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)
        RETURNING created_at
    `

	err := r.db.Pool.QueryRow(ctx, query,
		run.ID,
		run.Provider,
		string(run.Mode),
		run.Stocks,
		run.Query,
		run.Response,
		run.FilePath,
	).Scan(&run.CreatedAt)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (r *RunRepo) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	query := `
        SELECT id::text, provider, mode, stocks, query, response, file_path, created_at
        FROM analysis_runs WHERE id = $1::uuid
    `

	run, err := scanRun(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
        SELECT id::text, provider, mode, stocks, query, response, file_path, created_at
        FROM analysis_runs
        ORDER BY created_at DESC
        LIMIT $1
    `

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*domain.Run, error) {
	var (
		run  domain.Run
		mode string
	)
	err := row.Scan(
		&run.ID,
		&run.Provider,
		&mode,
		&run.Stocks,
		&run.Query,
		&run.Response,
		&run.FilePath,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Mode = domain.AgentMode(mode)
	return &run, nil
}

var _ repository.RunRepository = (*RunRepo)(nil)
