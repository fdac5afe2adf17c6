package models

import "time"

// Abuse report statuses.
const (
	ReportStatusNew       = "new"
	ReportStatusConfirmed = "confirmed"
	ReportStatusDismissed = "dismissed"
)

// AbuseReport flags an interaction for moderation. Reports are filed by an
// external collaborator (owner-side tooling); the gateway stores them and
// applies caller blocks when confirmed reports accumulate.
type AbuseReport struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	CallLogID string `gorm:"type:text;not null;index" json:"call_log_id"`
	// CallerHash identifies the reported caller, copied from the log so the
	// block check survives log anonymization.
	CallerHash string `gorm:"type:text;index" json:"-"`
	Reporter   string `gorm:"type:text;not null" json:"reporter"`
	Reason     string `gorm:"type:text;not null" json:"reason"`
	Severity   string `gorm:"type:text;not null;default:'low'" json:"severity"`
	Status     string `gorm:"type:text;not null;default:'new'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
