// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"strings"

	"parties_snapshot_fetcher/internal/app"
	"parties_snapshot_fetcher/internal/domain/snapshot"
	idb "parties_snapshot_fetcher/internal/infra/database" // For ErrRunNotFound

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	startText      = "Hello! I fetch monthly State of the Parties snapshots and report each run here. Use /help for commands."
	unknownText    = "No commands are available for you."
	noRunsText     = "No fetch run has been recorded yet."
	noHistoryText  = "Run history is not enabled (DATABASE_URL is not set)."
	lookupFailText = "Could not load the last run. Please try again later."
)

// RegisterBotCommands wires /start, /help and /lastrun. runRepo may be nil when run history is disabled.
func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminTelegramID int64,
	runRepo snapshot.RunRepository,
	baseLogger *logrus.Entry, // For contextual logging
) {
	b.Handle("/start", func(c telebot.Context) error {
		baseLogger.WithField("command", "/start").WithField("sender_id", c.Sender().ID).Info("Processing /start command")
		return c.Send(startText)
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		baseLogger.WithField("command", "/help").WithField("sender_id", senderID).Info("Processing /help command")
		return c.Send(HelpText(senderID == adminTelegramID))
	})

	b.Handle("/lastrun", func(c telebot.Context) error {
		logCtx := baseLogger.WithField("command", "/lastrun").WithField("sender_id", c.Sender().ID)
		logCtx.Info("Processing /lastrun command")
		return c.Send(LastRunReply(ctx, c.Sender().ID, adminTelegramID, runRepo, logCtx))
	})
}

// HelpText returns the command list for an admin or any other user.
func HelpText(isAdmin bool) string {
	if !isAdmin {
		return unknownText
	}
	var helpText strings.Builder
	helpText.WriteString("Available commands:\n\n")
	helpText.WriteString("/lastrun - Show the summary of the most recent fetch run.\n")
	helpText.WriteString("/help - Show this message.")
	return helpText.String()
}

// LastRunReply builds the /lastrun answer. Only the admin gets run details.
func LastRunReply(
	ctx context.Context,
	senderID, adminTelegramID int64,
	runRepo snapshot.RunRepository,
	logCtx *logrus.Entry,
) string {
	if senderID != adminTelegramID {
		logCtx.Warn("Unauthorized access attempt")
		return unknownText
	}
	if runRepo == nil {
		return noHistoryText
	}

	latest, err := runRepo.GetLatest(ctx)
	if err != nil {
		if errors.Is(err, idb.ErrRunNotFound) {
			return noRunsText
		}
		logCtx.WithError(err).Error("Error loading latest fetch run")
		return lookupFailText
	}
	return app.FormatSummary(latest)
}
