// internal/app/report_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"parties_snapshot_fetcher/internal/domain/snapshot"
	domainTelegram "parties_snapshot_fetcher/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// ReportService sends the run summary to the admin chat.
type ReportService struct {
	telegramClient domainTelegram.Client
	adminChatID    int64
	logger         *logrus.Entry
}

func NewReportService(tc domainTelegram.Client, adminChatID int64, logger *logrus.Entry) *ReportService {
	return &ReportService{
		telegramClient: tc,
		adminChatID:    adminChatID,
		logger:         logger,
	}
}

// OnRunCompleted implements RunObserver. Delivery failures are logged only.
func (s *ReportService) OnRunCompleted(_ context.Context, summary *snapshot.RunSummary) {
	if err := s.telegramClient.SendMessage(s.adminChatID, FormatSummary(summary), nil); err != nil {
		s.logger.WithError(err).WithField("admin_chat_id", s.adminChatID).Error("Failed to send run summary")
		return
	}
	s.logger.WithField("admin_chat_id", s.adminChatID).Info("Run summary sent")
}

// FormatSummary renders a summary as a plain-text report.
func FormatSummary(s *snapshot.RunSummary) string {
	text := fmt.Sprintf("State of the Parties fetch %s to %s\nMonths attempted: %d of %d\nTotal successful: %d, Total failed: %d",
		s.StartDate.Format(snapshot.DateLayout), s.EndDate.Format(snapshot.DateLayout),
		s.Attempted(), s.Months, s.Successes, s.Failures)
	if !s.FinishedAt.IsZero() {
		text += fmt.Sprintf("\nFinished: %s (took %s)",
			s.FinishedAt.Format("2006-01-02 15:04:05 MST"), s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
	}
	return text
}
