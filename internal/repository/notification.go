package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"Mazraaty/internal/model"
	"Mazraaty/storage/database"
)

var ErrNotFound = errors.New("record not found")

// GetNotificationByPublicID loads a notification scoped to its tenant. The
// tenant filter is part of the lookup, not an afterthought, so a wrong-tenant
// ID reads as not-found.
func GetNotificationByPublicID(ctx context.Context, tenantID, publicID string) (*model.Notification, error) {
	var n model.Notification
	err := database.DB().WithContext(ctx).
		Where("tenant_id = ? AND public_id = ?", tenantID, publicID).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

// GetNotificationByID loads a notification by internal ID for queue workers.
func GetNotificationByID(ctx context.Context, id int64) (*model.Notification, error) {
	var n model.Notification
	err := database.DB().WithContext(ctx).First(&n, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

// UpdateNotificationState transitions a notification, guarding against
// overwriting a terminal state.
func UpdateNotificationState(ctx context.Context, id int64, from, to model.NotificationState) error {
	updates := map[string]interface{}{"state": to}
	if to.Terminal() {
		updates["completed_at"] = time.Now()
	}

	result := database.DB().WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND state = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update notification state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification %d not in state %s", id, from)
	}
	return nil
}

// MarkNotificationCancelled flips a non-terminal notification to cancelled.
// Returns ErrNotFound when the notification is unknown to the tenant and
// false when it was already terminal.
func MarkNotificationCancelled(ctx context.Context, tenantID, publicID string) (*model.Notification, bool, error) {
	n, err := GetNotificationByPublicID(ctx, tenantID, publicID)
	if err != nil {
		return nil, false, err
	}

	if n.State.Terminal() {
		return n, false, nil
	}

	now := time.Now()
	result := database.DB().WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND state IN ?", n.ID, []model.NotificationState{
			model.NotificationStateReceived,
			model.NotificationStateResolving,
			model.NotificationStateEnqueued,
		}).
		Updates(map[string]interface{}{
			"state":        model.NotificationStateCancelled,
			"completed_at": now,
		})
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to cancel notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// lost the race to a terminal transition
		return n, false, nil
	}

	n.State = model.NotificationStateCancelled
	n.CompletedAt = &now
	return n, true, nil
}

// SweepAgedNotifications removes terminal notifications past the audit
// retention window together with their attempt trails. DLQ snapshots are
// self-contained and keep their own retention.
func SweepAgedNotifications(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	terminal := []model.NotificationState{
		model.NotificationStateCompleted,
		model.NotificationStateCancelled,
	}

	aged := database.DB().WithContext(ctx).
		Model(&model.Notification{}).
		Select("id").
		Where("state IN ? AND completed_at < ?", terminal, cutoff)

	if err := database.DB().WithContext(ctx).
		Where("notification_id IN (?)", aged).
		Delete(&model.DeliveryAttempt{}).Error; err != nil {
		return 0, fmt.Errorf("failed to sweep aged attempts: %w", err)
	}

	result := database.DB().WithContext(ctx).
		Where("state IN ? AND completed_at < ?", terminal, cutoff).
		Delete(&model.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to sweep aged notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CompleteNotificationIfDone flips enqueued -> completed once no delivery leg
// remains open. Openness is judged per leg on its newest attempt row: a
// transient_failed row whose retry already delivered must not hold the
// notification open.
func CompleteNotificationIfDone(ctx context.Context, id int64) (bool, error) {
	var attempts []model.DeliveryAttempt
	err := database.DB().WithContext(ctx).
		Select("recipient_id", "channel", "attempt_no", "state").
		Where("notification_id = ?", id).
		Find(&attempts).Error
	if err != nil {
		return false, fmt.Errorf("failed to load attempts: %w", err)
	}
	if model.HasOpenLegs(attempts) {
		return false, nil
	}

	result := database.DB().WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND state = ?", id, model.NotificationStateEnqueued).
		Updates(map[string]interface{}{
			"state":        model.NotificationStateCompleted,
			"completed_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to complete notification: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
