package domain

import "time"

const EventMessageReceived = "message.received"

// InboxEvent announces a change to an inbox. It never carries message content.
type InboxEvent struct {
	Type       string    `json:"type"`
	AccountID  string    `json:"account_id,omitempty"`
	Handle     string    `json:"handle"`
	MessageID  string    `json:"message_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
