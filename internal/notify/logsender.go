package notify

import (
	"cartag/backend/internal/models"

	"go.uber.org/zap"
)

// LogSender writes notifications to the application log instead of a
// delivery channel. Used when no Telegram bot token is configured.
type LogSender struct {
	Logger *zap.SugaredLogger
}

func (l *LogSender) Send(acct *models.Account, n models.Notification) error {
	l.Logger.Infow("notification",
		"account", acct.ID,
		"type", n.Type,
		"title", n.Title,
		"body", n.Body,
		"vehicle", n.VehicleID,
	)
	return nil
}
