// internal/app/fetch_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parties_snapshot_fetcher/internal/domain/snapshot"
	"parties_snapshot_fetcher/internal/infra/parliament"

	"github.com/sirupsen/logrus"
)

const separatorWidth = 60

// SnapshotFetcher fetches the snapshot for a single date. Implemented by parliament.Client.
type SnapshotFetcher interface {
	FetchStateOfTheParties(ctx context.Context, date time.Time) (*snapshot.Snapshot, error)
}

// RunObserver is told about every run that went through the whole range.
type RunObserver interface {
	OnRunCompleted(ctx context.Context, summary *snapshot.RunSummary)
}

// FetchParams is the fixed date range and pacing of a run.
type FetchParams struct {
	StartDate time.Time
	EndDate   time.Time
	Delay     time.Duration // Applied after every date, whatever the outcome
}

// FetchService walks the configured months, fetching and persisting one snapshot per month.
type FetchService struct {
	fetcher   SnapshotFetcher
	sinks     []snapshot.Repository // Every successful snapshot is saved to all of them, in order
	runRepo   snapshot.RunRepository
	observers []RunObserver
	params    FetchParams
	logger    *logrus.Entry

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewFetchService(
	fetcher SnapshotFetcher,
	sinks []snapshot.Repository,
	runRepo snapshot.RunRepository, // Optional, nil disables run history
	params FetchParams,
	logger *logrus.Entry,
	observers ...RunObserver,
) *FetchService {
	return &FetchService{
		fetcher:   fetcher,
		sinks:     sinks,
		runRepo:   runRepo,
		observers: observers,
		params: FetchParams{
			StartDate: snapshot.FirstOfMonth(params.StartDate),
			EndDate:   snapshot.FirstOfMonth(params.EndDate),
			Delay:     params.Delay,
		},
		logger: logger,
		sleep:  sleepContext,
		now:    time.Now,
	}
}

// Run fetches every month in the range exactly once. Fetch failures are logged and counted;
// a persistence failure or a cancelled context stops the run and is returned with the partial summary.
func (s *FetchService) Run(ctx context.Context) (*snapshot.RunSummary, error) {
	start, end := s.params.StartDate, s.params.EndDate
	if start.After(end) {
		return nil, fmt.Errorf("start date %s is after end date %s",
			start.Format(snapshot.DateLayout), end.Format(snapshot.DateLayout))
	}

	summary := &snapshot.RunSummary{
		StartDate: start,
		EndDate:   end,
		Months:    snapshot.CountMonths(start, end),
		StartedAt: s.now().UTC(),
	}

	s.logger.Infof("Fetching State of the Parties data from %s to %s",
		start.Format(snapshot.DateLayout), end.Format(snapshot.DateLayout))
	s.logger.Infof("Total months to process: %d", summary.Months)
	s.logger.Info(strings.Repeat("-", separatorWidth))

	for date := range snapshot.Months(start, end) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		ok, err := s.processDate(ctx, date)
		if err != nil {
			return summary, err
		}
		if ok {
			summary.Successes++
		} else {
			summary.Failures++
		}

		if err := s.sleep(ctx, s.params.Delay); err != nil {
			return summary, err
		}
	}
	summary.FinishedAt = s.now().UTC()

	s.logger.Info(strings.Repeat("-", separatorWidth))
	s.logger.Infof("Completed! Total successful: %d, Total failed: %d", summary.Successes, summary.Failures)

	s.recordRun(ctx, summary)
	for _, o := range s.observers {
		o.OnRunCompleted(ctx, summary)
	}
	return summary, nil
}

// processDate reports whether a snapshot was fetched and saved. Only sink errors are returned.
func (s *FetchService) processDate(ctx context.Context, date time.Time) (bool, error) {
	dateStr := date.Format(snapshot.DateLayout)

	snap, err := s.fetcher.FetchStateOfTheParties(ctx, date)
	if err != nil {
		var statusErr *parliament.StatusError
		if errors.As(err, &statusErr) {
			s.logger.WithField("date", dateStr).Warnf("No data for %s (Status: %d)", dateStr, statusErr.StatusCode)
		} else {
			s.logger.WithField("date", dateStr).Errorf("Error fetching %s: %v", dateStr, err)
		}
		return false, nil
	}

	for _, sink := range s.sinks {
		if err := sink.Save(ctx, snap); err != nil {
			return false, fmt.Errorf("persist snapshot %s: %w", dateStr, err)
		}
	}
	return true, nil
}

func (s *FetchService) recordRun(ctx context.Context, summary *snapshot.RunSummary) {
	if s.runRepo == nil {
		return
	}
	if err := s.runRepo.Record(ctx, summary); err != nil {
		s.logger.WithError(err).Error("Failed to record fetch run")
		return
	}
	s.logger.WithField("run_id", summary.ID).Debug("Fetch run recorded")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
