package config

import "time"

const (
	// Rate limiting
	MaxCallerAttemptsPerWindow = 3
	CallerWindow               = 60 * time.Minute
	MaxVehicleAttemptsPerDay   = 15

	// Fallback message escrow
	FallbackTokenTTL      = 15 * time.Minute
	MaxFallbackMessageLen = 300

	// Messaging
	MaxCustomMessageLen = 200

	// Telephony
	ProviderTimeout = 10 * time.Second
	RingTimeout     = 45 * time.Second

	// Emergency escalation
	MaxEscalationContacts = 3

	// Abuse handling
	BlockFrequencyWindow  = 24 * time.Hour
	BlockThresholdReports = 3
	BlockLevel1Duration   = 6 * time.Hour
	BlockLevel2Duration   = 72 * time.Hour
	BlockLevel3Duration   = 30 * 24 * time.Hour
)

// ReportWeights maps an abuse report severity to its score contribution.
var ReportWeights = map[string]int{
	"low":      25,
	"medium":   100,
	"critical": 250,
}
