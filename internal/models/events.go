package models

// ProviderCallEvent is the normalized form of a telephony provider status
// callback, after provider-specific payload mapping in the webhook handler.
type ProviderCallEvent struct {
	CallID      string `json:"call_sid"`
	Status      string `json:"status"`
	DurationSec *int   `json:"duration,omitempty"`
}

// Notification is one owner-facing alert handed to the dispatcher. The
// dispatcher decides, from the recipient's preferences, whether it is
// actually delivered.
type Notification struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	VehicleID string            `json:"vehicle_id,omitempty"`
	ActionURL string            `json:"action_url,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// MessageTemplate is one entry of the static message catalog shown to
// scanning callers.
type MessageTemplate struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
