package config

// Notification types emitted by the gateway.
const (
	NotifyMessageReceived  = "message_received"
	NotifyMissedCall       = "missed_call"
	NotifyFallbackMessage  = "fallback_message"
	NotifyEmergencyAlert   = "emergency_alert"
	NotifyVerificationDone = "verification_result"
	NotifyAbuseEvent       = "abuse_event"
)

// Notification categories an owner can mute.
const (
	CategoryContact = "contact"
	CategoryAccount = "account"

	// CategoryAlways marks types that are never suppressible.
	CategoryAlways = "always"
)

// TypeCategory maps each notification type to the preference category that
// gates it. Safety-critical types map to CategoryAlways.
var TypeCategory = map[string]string{
	NotifyMessageReceived:  CategoryContact,
	NotifyMissedCall:       CategoryContact,
	NotifyFallbackMessage:  CategoryContact,
	NotifyEmergencyAlert:   CategoryAlways,
	NotifyVerificationDone: CategoryAlways,
	NotifyAbuseEvent:       CategoryAlways,
}

// CategoryFor returns the gating category for a notification type.
// Unknown types are treated as suppressible contact noise.
func CategoryFor(notifyType string) string {
	if cat, ok := TypeCategory[notifyType]; ok {
		return cat
	}
	return CategoryContact
}
