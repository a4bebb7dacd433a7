package model

import (
	"time"

	"Mazraaty/pkg/errors"
)

// AttemptState tracks one delivery attempt. Transitions are monotonic:
//
//	pending → in_flight → delivered | transient_failed | permanent_failed
//	pending | in_flight → dropped_preference | dropped_expired
type AttemptState string

const (
	AttemptStatePending           AttemptState = "pending"
	AttemptStateInFlight          AttemptState = "in_flight"
	AttemptStateDelivered         AttemptState = "delivered"
	AttemptStateTransientFailed   AttemptState = "transient_failed"
	AttemptStatePermanentFailed   AttemptState = "permanent_failed"
	AttemptStateDroppedExpired    AttemptState = "dropped_expired"
	AttemptStateDroppedPreference AttemptState = "dropped_preference"
)

// Terminal reports whether no further transition is allowed out of s,
// except transient_failed which re-enters pending through a retry.
func (s AttemptState) Terminal() bool {
	switch s {
	case AttemptStateDelivered, AttemptStatePermanentFailed,
		AttemptStateDroppedExpired, AttemptStateDroppedPreference:
		return true
	}
	return false
}

// CanTransitionTo enforces the monotonic state machine.
func (s AttemptState) CanTransitionTo(next AttemptState) bool {
	switch s {
	case AttemptStatePending:
		switch next {
		case AttemptStateInFlight, AttemptStateDroppedExpired, AttemptStateDroppedPreference:
			return true
		}
	case AttemptStateInFlight:
		switch next {
		case AttemptStateDelivered, AttemptStateTransientFailed, AttemptStatePermanentFailed,
			AttemptStateDroppedExpired, AttemptStateDroppedPreference:
			return true
		}
	}
	return false
}

// HasOpenLegs reports whether any delivery leg of a notification still has
// work pending. Only the newest attempt of a leg counts: a transient_failed
// row superseded by its retry row is history, not open work.
func HasOpenLegs(attempts []DeliveryAttempt) bool {
	type legKey struct {
		recipient int64
		channel   Channel
	}

	latest := make(map[legKey]DeliveryAttempt, len(attempts))
	for _, a := range attempts {
		k := legKey{recipient: a.RecipientID, channel: a.Channel}
		if cur, ok := latest[k]; !ok || a.AttemptNo > cur.AttemptNo {
			latest[k] = a
		}
	}

	for _, a := range latest {
		switch a.State {
		case AttemptStatePending, AttemptStateInFlight, AttemptStateTransientFailed:
			return true
		}
	}
	return false
}

// DeliveryAttempt is one call to one channel adapter for one
// (notification, recipient, channel). attempt_no starts at 1.
type DeliveryAttempt struct {
	BaseModel
	NotificationID int64            `gorm:"not null;index:idx_attempts_notification;uniqueIndex:uq_attempts_try,priority:1" json:"notification_id"`
	TenantID       string           `gorm:"type:varchar(64);not null;index:idx_attempts_notification;index:idx_attempts_recipient" json:"tenant_id"`
	RecipientID    int64            `gorm:"not null;index:idx_attempts_recipient;uniqueIndex:uq_attempts_try,priority:2" json:"recipient_id"`
	Channel        Channel          `gorm:"type:varchar(16);not null;index:idx_attempts_recipient;uniqueIndex:uq_attempts_try,priority:3" json:"channel"`
	AttemptNo      int              `gorm:"not null;default:1;uniqueIndex:uq_attempts_try,priority:4" json:"attempt_no"`
	State          AttemptState     `gorm:"type:varchar(24);not null;default:'pending'" json:"state"`
	ErrorKind      errors.ErrorKind `gorm:"type:varchar(48)" json:"error_kind,omitempty"`
	ProviderRef    *string          `gorm:"type:varchar(128)" json:"provider_ref,omitempty"`
	StartedAt      *time.Time       `gorm:"type:timestamptz" json:"started_at,omitempty"`
	FinishedAt     *time.Time       `gorm:"type:timestamptz" json:"finished_at,omitempty"`
}

func (DeliveryAttempt) TableName() string {
	return "delivery_attempts"
}

// Rollup aggregates terminal states for GET /notifications/:id.
type Rollup struct {
	NotificationID  int64                `json:"notification_id"`
	State           NotificationState    `json:"state"`
	TotalAttempts   int64                `json:"total_attempts"`
	Counts          map[AttemptState]int64 `json:"counts"`
	FirstTransition *time.Time           `json:"first_transition,omitempty"`
	LastTransition  *time.Time           `json:"last_transition,omitempty"`
}
