package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Mazraaty/internal/model"
	"Mazraaty/storage/database"
)

// CreateAttempt inserts attempt #1 for a delivery leg. The unique index on
// (notification_id, recipient_id, channel, attempt_no) absorbs consumer
// redeliveries: a second insert of the same leg is a no-op.
func CreateAttempt(ctx context.Context, a *model.DeliveryAttempt) (bool, error) {
	result := database.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "notification_id"},
				{Name: "recipient_id"},
				{Name: "channel"},
				{Name: "attempt_no"},
			},
			DoNothing: true,
		}).
		Create(a)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create attempt: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CreateAttemptsBatch inserts the initial fan-out for one notification.
func CreateAttemptsBatch(ctx context.Context, attempts []*model.DeliveryAttempt) error {
	if len(attempts) == 0 {
		return nil
	}

	err := database.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "notification_id"},
				{Name: "recipient_id"},
				{Name: "channel"},
				{Name: "attempt_no"},
			},
			DoNothing: true,
		}).
		CreateInBatches(attempts, 200).Error
	if err != nil {
		return fmt.Errorf("failed to create attempts batch: %w", err)
	}
	return nil
}

// GetAttempt loads one attempt row.
func GetAttempt(ctx context.Context, id int64) (*model.DeliveryAttempt, error) {
	var a model.DeliveryAttempt
	err := database.DB().WithContext(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return &a, nil
}

// GetLatestAttempt returns the newest attempt for a delivery leg.
func GetLatestAttempt(ctx context.Context, notificationID, recipientID int64, channel model.Channel) (*model.DeliveryAttempt, error) {
	var a model.DeliveryAttempt
	err := database.DB().WithContext(ctx).
		Where("notification_id = ? AND recipient_id = ? AND channel = ?", notificationID, recipientID, channel).
		Order("attempt_no DESC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest attempt: %w", err)
	}
	return &a, nil
}

// TransitionAttempt moves an attempt through the state machine. The WHERE
// clause re-checks the source state so a stale worker cannot regress a row
// that already moved on.
func TransitionAttempt(ctx context.Context, id int64, from, to model.AttemptState, updates map[string]interface{}) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("illegal attempt transition %s -> %s", from, to)
	}

	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["state"] = to
	if to.Terminal() {
		updates["finished_at"] = time.Now()
	}

	result := database.DB().WithContext(ctx).
		Model(&model.DeliveryAttempt{}).
		Where("id = ? AND state = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to transition attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("attempt %d no longer in state %s", id, from)
	}
	return nil
}

// ListAttemptsByNotification returns the attempt trail for a notification,
// tenant-scoped, newest first.
func ListAttemptsByNotification(ctx context.Context, tenantID string, notificationID int64, limit, offset int) ([]model.DeliveryAttempt, int64, error) {
	var (
		attempts []model.DeliveryAttempt
		total    int64
	)

	query := database.DB().WithContext(ctx).
		Model(&model.DeliveryAttempt{}).
		Where("tenant_id = ? AND notification_id = ?", tenantID, notificationID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&attempts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, total, nil
}

// CancelOpenAttempts eagerly drops the pending attempts of a cancelled
// notification instead of waiting for a worker to pick each one up and
// consult the cancel flag. Only pending rows flip here: in_flight rows
// belong to a live worker that finishes its call and observes the flag
// itself, and transient_failed rows are history superseded by their retry.
func CancelOpenAttempts(ctx context.Context, notificationID int64, errorKind string) (int64, error) {
	return cancelOpenAttempts(database.DB().WithContext(ctx), notificationID, errorKind)
}

func cancelOpenAttempts(db *gorm.DB, notificationID int64, errorKind string) (int64, error) {
	result := db.Model(&model.DeliveryAttempt{}).
		Where("notification_id = ? AND state = ?", notificationID, model.AttemptStatePending).
		Updates(map[string]interface{}{
			"state":       model.AttemptStateDroppedExpired,
			"error_kind":  errorKind,
			"finished_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cancel open attempts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListAttemptsForLeg returns every attempt of one delivery leg in order.
func ListAttemptsForLeg(ctx context.Context, notificationID, recipientID int64, channel model.Channel) ([]model.DeliveryAttempt, error) {
	var attempts []model.DeliveryAttempt
	err := database.DB().WithContext(ctx).
		Where("notification_id = ? AND recipient_id = ? AND channel = ?", notificationID, recipientID, channel).
		Order("attempt_no ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts for leg: %w", err)
	}
	return attempts, nil
}

type rollupRow struct {
	State model.AttemptState
	Count int64
	First time.Time
	Last  time.Time
}

// GetRollup aggregates the attempt trail into per-state counts.
func GetRollup(ctx context.Context, tenantID string, notificationID int64) (*model.Rollup, error) {
	var rows []rollupRow
	err := database.DB().WithContext(ctx).
		Model(&model.DeliveryAttempt{}).
		Select("state, COUNT(*) as count, MIN(updated_at) as first, MAX(updated_at) as last").
		Where("tenant_id = ? AND notification_id = ?", tenantID, notificationID).
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate attempts: %w", err)
	}

	rollup := &model.Rollup{
		NotificationID: notificationID,
		Counts:         make(map[model.AttemptState]int64, len(rows)),
	}
	for _, row := range rows {
		rollup.Counts[row.State] = row.Count
		rollup.TotalAttempts += row.Count

		first, last := row.First, row.Last
		if rollup.FirstTransition == nil || first.Before(*rollup.FirstTransition) {
			rollup.FirstTransition = &first
		}
		if rollup.LastTransition == nil || last.After(*rollup.LastTransition) {
			rollup.LastTransition = &last
		}
	}
	return rollup, nil
}
