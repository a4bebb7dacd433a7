package dto

import (
	"Mazraaty/internal/model"
)

// SubmitNotificationRequest is the POST /v1/notifications body.
type SubmitNotificationRequest struct {
	Kind       string                 `json:"kind"`
	Priority   string                 `json:"priority"`
	Target     model.Target           `json:"target"`
	Channels   []string               `json:"channels,omitempty"` // empty means all opted-in channels
	TemplateID string                 `json:"template_id"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	DedupKey   string                 `json:"dedup_key,omitempty"`
	TTLSeconds *int                   `json:"ttl_seconds,omitempty"` // omitted means DEFAULT_TTL_SECONDS; zero and negative are rejected
}

// SubmitNotificationResponse echoes the assigned id and effective
// correlation identifier.
type SubmitNotificationResponse struct {
	ID            int64  `json:"id"`
	Status        string `json:"status"` // accepted | duplicate
	CorrelationID string `json:"correlation_id"`
}

const (
	SubmitStatusAccepted  = "accepted"
	SubmitStatusDuplicate = "duplicate"
)

// RollupResponse is the GET /v1/notifications/:id body.
type RollupResponse struct {
	ID              int64            `json:"id"`
	State           string           `json:"state"`
	TotalAttempts   int64            `json:"total_attempts"`
	Counts          map[string]int64 `json:"counts"`
	FirstTransition *string          `json:"first_transition,omitempty"`
	LastTransition  *string          `json:"last_transition,omitempty"`
}

// AttemptView is one row of GET /v1/notifications/:id/attempts.
type AttemptView struct {
	RecipientID int64  `json:"recipient_id"`
	Channel     string `json:"channel"`
	AttemptNo   int    `json:"attempt_no"`
	State       string `json:"state"`
	ErrorKind   string `json:"error_kind,omitempty"`
	ProviderRef string `json:"provider_ref,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	FinishedAt  string `json:"finished_at,omitempty"`
}

// DeadLetterView is one row of GET /v1/dlq.
type DeadLetterView struct {
	NotificationID int64  `json:"notification_id"`
	RecipientID    int64  `json:"recipient_id"`
	Channel        string `json:"channel"`
	ErrorKind      string `json:"error_kind"`
	ParkedAt       string `json:"parked_at"`
}
