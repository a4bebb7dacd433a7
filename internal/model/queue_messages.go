package model

import "time"

// ResolveTask asks the worker to expand a notification's target into
// per-recipient delivery tasks.
type ResolveTask struct {
	MessageID      string `json:"message_id"`
	NotificationID int64  `json:"notification_id"`
	TenantID       string `json:"tenant_id"`
	CorrelationID  string `json:"correlation_id"`
}

// DeliveryTask is one queue entry for the worker pool: one
// (notification, recipient, channel) at a given attempt number.
type DeliveryTask struct {
	MessageID      string    `json:"message_id"`
	NotificationID int64     `json:"notification_id"`
	TenantID       string    `json:"tenant_id"`
	RecipientID    int64     `json:"recipient_id"`
	Channel        Channel   `json:"channel"`
	Priority       Priority  `json:"priority"`
	AttemptNo      int       `json:"attempt_no"`
	CorrelationID  string    `json:"correlation_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}
