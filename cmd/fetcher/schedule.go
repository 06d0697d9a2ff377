package main

import (
	"os/signal"
	"syscall"

	"parties_snapshot_fetcher/internal/infra/logger"
	"parties_snapshot_fetcher/internal/infra/scheduler"
	"parties_snapshot_fetcher/internal/infra/telegram"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Re-run the fetch on CRON_SPEC until interrupted",
	Long: "Registers the full fetch on CRON_SPEC (default: 03:00 UTC on the 1st of each month) and " +
		"blocks until SIGINT/SIGTERM. When Telegram is configured the bot also answers /start, /help and /lastrun.",
	SilenceUsage: true,
	RunE:         runSchedule,
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApplication(ctx, false) // Polling needs the bot identity
	if err != nil {
		return err
	}
	defer a.close()
	mainLogger := logger.Component("main")

	fetchScheduler := scheduler.NewFetchScheduler(ctx, a.service, logger.Component("scheduler"), a.cfg.CronSpec)
	if err := fetchScheduler.Start(); err != nil {
		return err
	}

	if a.bot != nil {
		telegram.RegisterBotCommands(ctx, a.bot, a.cfg.AdminTelegramID, a.runRepo, logger.Component("telegram"))
		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go a.bot.Start()
		mainLogger.Info("Telegram bot commands registered")
	}

	mainLogger.Info("Scheduler is running, waiting for shutdown signal")
	<-ctx.Done() // Block until a signal is received

	mainLogger.Info("Shutting down...")
	if a.bot != nil {
		a.bot.Stop()
	}
	fetchScheduler.Stop()
	mainLogger.Info("Shut down gracefully")
	return nil
}
