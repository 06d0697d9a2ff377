// internal/infra/database/postgres_run_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parties_snapshot_fetcher/internal/domain/snapshot"
)

// Custom errors
var ErrRunNotFound = fmt.Errorf("fetch run not found")

type PostgresRunRepository struct {
	db *sql.DB
}

func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

func (r *PostgresRunRepository) Record(ctx context.Context, s *snapshot.RunSummary) error {
	query := `INSERT INTO fetch_runs (start_date, end_date, months, successes, failures, started_at, finished_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		s.StartDate, s.EndDate, s.Months, s.Successes, s.Failures, s.StartedAt, s.FinishedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("error recording fetch run: %w", err)
	}
	return nil
}

func (r *PostgresRunRepository) GetLatest(ctx context.Context) (*snapshot.RunSummary, error) {
	query := `SELECT id, start_date, end_date, months, successes, failures, started_at, finished_at
               FROM fetch_runs ORDER BY finished_at DESC, id DESC LIMIT 1`
	s := snapshot.RunSummary{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.ID, &s.StartDate, &s.EndDate, &s.Months, &s.Successes, &s.Failures, &s.StartedAt, &s.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("error getting latest fetch run: %w", err)
	}
	return &s, nil
}
