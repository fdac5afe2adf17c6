// Package abuse processes reports filed against interactions and maintains
// the caller block list consumed by the contact relay.
package abuse

import (
	"time"

	"cartag/backend/internal/clock"
	"cartag/backend/internal/config"
	"cartag/backend/internal/models"
	"cartag/backend/internal/storage"

	"go.uber.org/zap"
)

// Service handles the moderation outcomes of abuse reports.
type Service struct {
	Storage storage.Storage
	Clock   clock.Clock
	Logger  *zap.SugaredLogger
}

func NewService(s storage.Storage, c clock.Clock, logger *zap.SugaredLogger) *Service {
	return &Service{Storage: s, Clock: c, Logger: logger}
}

// HandleReport stores a newly filed report.
func (s *Service) HandleReport(report *models.AbuseReport) error {
	if _, ok := config.ReportWeights[report.Severity]; !ok {
		report.Severity = "low"
	}
	return s.Storage.SaveAbuseReport(report)
}

// Confirm marks a report as reviewed-and-valid and re-evaluates whether the
// reported caller should be blocked.
func (s *Service) Confirm(reportID uint) error {
	report, err := s.Storage.GetAbuseReport(reportID)
	if err != nil {
		return err
	}

	if err := s.Storage.UpdateAbuseReportStatus(reportID, models.ReportStatusConfirmed); err != nil {
		return err
	}

	return s.CheckForBlock(report.CallerHash, report.Severity)
}

// CheckForBlock applies a block when a caller crosses either the severity
// shortcut (one confirmed critical report) or the frequency threshold.
func (s *Service) CheckForBlock(callerHash, latestSeverity string) error {
	if callerHash == "" {
		return nil
	}

	since := s.Clock.Now().Add(-config.BlockFrequencyWindow)
	count, err := s.Storage.CountConfirmedReports(callerHash, since)
	if err != nil {
		return err
	}

	if latestSeverity == "critical" {
		return s.applyBlock(callerHash, int(count))
	}
	if count >= config.BlockThresholdReports {
		return s.applyBlock(callerHash, int(count))
	}
	return nil
}

func (s *Service) applyBlock(callerHash string, confirmedCount int) error {
	duration := blockDuration(confirmedCount)
	s.Logger.Infof("Blocking caller %s for %s (%d confirmed reports)", callerHash, duration, confirmedCount)
	return s.Storage.BlockCaller(callerHash, duration)
}

func blockDuration(confirmedCount int) time.Duration {
	switch {
	case confirmedCount <= int(config.BlockThresholdReports):
		return config.BlockLevel1Duration
	case confirmedCount <= 2*int(config.BlockThresholdReports):
		return config.BlockLevel2Duration
	default:
		return config.BlockLevel3Duration
	}
}
