// Package notify delivers owner-facing alerts. Delivery is best effort by
// contract: a failed notification is logged and never surfaces as a failure
// of the operation that triggered it.
package notify

import (
	"cartag/backend/internal/config"
	"cartag/backend/internal/models"

	"go.uber.org/zap"
)

// Notifier is the interface the relay and the emergency orchestrator call.
type Notifier interface {
	Notify(accountID string, n models.Notification)
}

// AccountReader is the slice of storage the dispatcher needs.
type AccountReader interface {
	GetAccount(id string) (*models.Account, error)
}

// Sender performs the actual delivery on one channel.
type Sender interface {
	Send(acct *models.Account, n models.Notification) error
}

// Dispatcher filters notifications against the recipient's preferences and
// hands the survivors to a Sender. Safety-critical types bypass preferences
// entirely; sends to deleted accounts are silently dropped.
type Dispatcher struct {
	Accounts AccountReader
	Sender   Sender
	Logger   *zap.SugaredLogger
}

func NewDispatcher(accounts AccountReader, sender Sender, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{Accounts: accounts, Sender: sender, Logger: logger}
}

func (d *Dispatcher) Notify(accountID string, n models.Notification) {
	acct, err := d.Accounts.GetAccount(accountID)
	if err != nil {
		// Soft-deleted accounts surface as not found; both cases drop.
		d.Logger.Debugf("Dropping %s notification for account %s: %v", n.Type, accountID, err)
		return
	}

	category := config.CategoryFor(n.Type)
	if category != config.CategoryAlways && acct.HasMuted(category) {
		d.Logger.Debugf("Account %s muted category %s, dropping %s", accountID, category, n.Type)
		return
	}

	if err := d.Sender.Send(acct, n); err != nil {
		d.Logger.Errorf("Failed to deliver %s notification to account %s: %v", n.Type, accountID, err)
	}
}
