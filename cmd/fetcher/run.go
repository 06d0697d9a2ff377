package main

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"

	"parties_snapshot_fetcher/internal/app"
	"parties_snapshot_fetcher/internal/domain/snapshot"
	"parties_snapshot_fetcher/internal/infra/config"
	idb "parties_snapshot_fetcher/internal/infra/database"
	"parties_snapshot_fetcher/internal/infra/filestore"
	"parties_snapshot_fetcher/internal/infra/logger"
	"parties_snapshot_fetcher/internal/infra/parliament"
	"parties_snapshot_fetcher/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

var (
	startFlag     string
	endFlag       string
	outputDirFlag string
)

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&startFlag, "start", "", "first month to fetch, YYYY-MM-DD (default START_DATE or "+config.DefaultStartDate+")")
	cmd.Flags().StringVar(&endFlag, "end", "", "last month to fetch, YYYY-MM-DD (default END_DATE or "+config.DefaultEndDate+")")
	cmd.Flags().StringVar(&outputDirFlag, "output-dir", "", "directory for snapshot files (default OUTPUT_DIR or "+config.DefaultOutputDir+")")
}

// application holds everything a run needs; close releases it.
type application struct {
	cfg     *config.AppConfig
	service *app.FetchService
	runRepo snapshot.RunRepository // nil when DATABASE_URL is unset
	bot     *telebot.Bot
	db      *sql.DB
}

func (a *application) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load application configuration: %w", err)
	}

	if startFlag != "" {
		if cfg.StartDate, err = config.ParseMonth(startFlag); err != nil {
			return nil, fmt.Errorf("invalid --start: %w", err)
		}
	}
	if endFlag != "" {
		if cfg.EndDate, err = config.ParseMonth(endFlag); err != nil {
			return nil, fmt.Errorf("invalid --end: %w", err)
		}
	}
	if outputDirFlag != "" {
		cfg.OutputDir = outputDirFlag
	}
	return cfg, cfg.Validate()
}

// buildApplication wires the run. offline creates the Telegram bot without the getMe call.
func buildApplication(ctx context.Context, offline bool) (*application, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithField("environment", cfg.Environment).Debug("Configuration loaded")

	a := &application{cfg: cfg}

	sinks := []snapshot.Repository{
		filestore.NewFileSnapshotRepository(cfg.OutputDir, logger.Component("filestore")),
	}

	if cfg.DatabaseURL != "" {
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("could not connect to database: %w", err)
		}
		a.db = db
		if err := idb.EnsureSchema(ctx, db); err != nil {
			a.close()
			return nil, err
		}
		sinks = append(sinks, idb.NewPostgresSnapshotRepository(db))
		a.runRepo = idb.NewPostgresRunRepository(db)
		mainLogger.Info("Database connection established, snapshots are mirrored to PostgreSQL")
	}

	var observers []app.RunObserver
	a.bot, observers = setupReporting(cfg, offline, mainLogger)

	client := parliament.NewClient(cfg.APIBaseURL, parliament.WithTimeout(cfg.RequestTimeout))
	a.service = app.NewFetchService(
		client,
		sinks,
		a.runRepo,
		app.FetchParams{StartDate: cfg.StartDate, EndDate: cfg.EndDate, Delay: cfg.RequestDelay},
		logger.Component("fetcher"),
		observers...,
	)
	return a, nil
}

var newBot = telegram.NewBot

// setupReporting returns the bot and the report observer when Telegram is configured.
// Any failure is logged and the run goes ahead without reporting.
func setupReporting(cfg *config.AppConfig, offline bool, mainLogger *logrus.Entry) (*telebot.Bot, []app.RunObserver) {
	if !cfg.TelegramEnabled() {
		return nil, nil
	}
	bot, err := newBot(cfg.TelegramToken, offline)
	if err != nil {
		mainLogger.WithError(err).Error("Telegram is unavailable, run summaries will not be reported")
		return nil, nil
	}
	mainLogger.Info("Run summaries will be reported over Telegram")
	report := app.NewReportService(telegram.NewTelebotAdapter(bot), cfg.AdminTelegramID, logger.Component("report"))
	return bot, []app.RunObserver{report}
}

func runFetch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApplication(ctx, true) // Only sends the summary, no polling
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.service.Run(ctx); err != nil {
		logger.Component("main").WithError(err).Error("Fetch run aborted")
		return err
	}
	return nil
}
