// internal/domain/snapshot/repository.go
package snapshot

import "context"

// Repository persists fetched snapshots. Saving the same date twice overwrites.
type Repository interface {
	Save(ctx context.Context, s *Snapshot) error
}

// RunRepository keeps the history of finished runs.
type RunRepository interface {
	Record(ctx context.Context, summary *RunSummary) error
	GetLatest(ctx context.Context) (*RunSummary, error)
}
