package scheduler

import (
	"context"
	"fmt"
	"time"

	"parties_snapshot_fetcher/internal/domain/snapshot"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner performs one full fetch run. Implemented by app.FetchService.
type Runner interface {
	Run(ctx context.Context) (*snapshot.RunSummary, error)
}

type FetchScheduler struct {
	cronEngine *cron.Cron
	runner     Runner
	logger     *logrus.Entry
	cronSpec   string
	ctx        context.Context // Passed to every run; cancelled on shutdown
}

func NewFetchScheduler(ctx context.Context, runner Runner, logger *logrus.Entry, cronSpec string) *FetchScheduler {
	return &FetchScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)), // Runs never overlap
		),
		runner:   runner,
		logger:   logger,
		cronSpec: cronSpec,
		ctx:      ctx,
	}
}

// Start registers the fetch job and starts the cron engine.
func (s *FetchScheduler) Start() error {
	s.logger.WithField("cron_spec", s.cronSpec).Info("Starting fetch scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpec, s.runOnce); err != nil {
		return fmt.Errorf("could not add fetch cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.Info("Fetch scheduler started")
	return nil
}

func (s *FetchScheduler) runOnce() {
	s.logger.Info("Cron job triggered for snapshot fetch")
	summary, err := s.runner.Run(s.ctx)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled fetch run failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"attempted": summary.Attempted(),
		"successes": summary.Successes,
		"failures":  summary.Failures,
	}).Info("Scheduled fetch run finished")
}

func (s *FetchScheduler) Stop() {
	s.logger.Info("Stopping fetch scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Fetch scheduler gracefully stopped")
}
