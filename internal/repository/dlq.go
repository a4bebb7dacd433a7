package repository

import (
	"context"
	"fmt"
	"time"

	"Mazraaty/internal/model"
	"Mazraaty/storage/database"
)

// ParkDeadLetter stores a permanently failed delivery leg with its payload
// snapshot and attempt trail.
func ParkDeadLetter(ctx context.Context, dl *model.DeadLetter) error {
	if err := database.DB().WithContext(ctx).Create(dl).Error; err != nil {
		return fmt.Errorf("failed to park dead letter: %w", err)
	}
	return nil
}

// ListDeadLetters pages a tenant's dead letters, newest first, optionally
// filtered by error kind.
func ListDeadLetters(ctx context.Context, tenantID string, errorKind string, limit, offset int) ([]model.DeadLetter, int64, error) {
	var (
		letters []model.DeadLetter
		total   int64
	)

	query := database.DB().WithContext(ctx).
		Model(&model.DeadLetter{}).
		Where("tenant_id = ?", tenantID)
	if errorKind != "" {
		query = query.Where("error_kind = ?", errorKind)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count dead letters: %w", err)
	}

	err := query.
		Order("parked_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&letters).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list dead letters: %w", err)
	}
	return letters, total, nil
}

// SweepExpiredDeadLetters removes dead letters older than retention.
func SweepExpiredDeadLetters(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := database.DB().WithContext(ctx).
		Where("parked_at < ?", cutoff).
		Delete(&model.DeadLetter{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to sweep dead letters: %w", result.Error)
	}
	return result.RowsAffected, nil
}
