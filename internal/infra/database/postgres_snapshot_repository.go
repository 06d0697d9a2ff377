// internal/infra/database/postgres_snapshot_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"parties_snapshot_fetcher/internal/domain/snapshot"
)

const upsertSnapshotQuery = `INSERT INTO party_snapshots (snapshot_date, payload, fetched_at)
               VALUES ($1, $2, $3)
               ON CONFLICT (snapshot_date) DO UPDATE
               SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at`

// PostgresSnapshotRepository mirrors snapshots into the party_snapshots table.
type PostgresSnapshotRepository struct {
	db *sql.DB
}

func NewPostgresSnapshotRepository(db *sql.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

// Save upserts the snapshot keyed by its date, so re-runs overwrite.
func (r *PostgresSnapshotRepository) Save(ctx context.Context, s *snapshot.Snapshot) error {
	// Payload goes in as text; Postgres casts it to JSONB.
	_, err := r.db.ExecContext(ctx, upsertSnapshotQuery, s.Date, string(s.Payload), s.FetchedAt)
	if err != nil {
		return fmt.Errorf("error saving snapshot %s: %w", s.DateString(), err)
	}
	return nil
}
