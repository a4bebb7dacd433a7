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

// AdmitNotification persists a notification and, when keyHash is set, claims
// its (tenant, dedup key hash) pair in the same transaction. Claim and insert
// commit or roll back together: a failed insert cannot leave a dedup record
// pointing at a notification that never existed. Returns the winning public
// id and whether this call won the claim.
func AdmitNotification(ctx context.Context, n *model.Notification, keyHash string, retention time.Duration) (int64, bool, error) {
	var winnerID int64
	var won bool
	err := database.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		winnerID, won, err = admitNotification(tx, n, keyHash, retention)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return winnerID, won, nil
}

// admitNotification runs the claim plus insert against one transaction
// handle. The unique index on (tenant_id, dedup_key_hash) is what makes
// concurrent duplicate submissions race-safe: exactly one insert wins, the
// loser reads back the winner's notification id and writes nothing.
func admitNotification(tx *gorm.DB, n *model.Notification, keyHash string, retention time.Duration) (int64, bool, error) {
	if keyHash != "" {
		record := &model.DedupRecord{
			TenantID:       n.TenantID,
			DedupKeyHash:   keyHash,
			NotificationID: n.PublicID,
			ExpiresAt:      time.Now().Add(retention),
		}

		result := tx.
			Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "tenant_id"},
					{Name: "dedup_key_hash"},
				},
				DoNothing: true,
			}).
			Create(record)
		if result.Error != nil {
			return 0, false, fmt.Errorf("failed to claim dedup key: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var existing model.DedupRecord
			err := tx.
				Where("tenant_id = ? AND dedup_key_hash = ?", n.TenantID, keyHash).
				First(&existing).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, false, fmt.Errorf("failed to read winning dedup record: %w", err)
			}
			if err == nil {
				return existing.NotificationID, false, nil
			}
			// claimed then swept between our insert and read; treat as ours
		}
	}

	if err := tx.Create(n).Error; err != nil {
		return 0, false, fmt.Errorf("failed to create notification: %w", err)
	}
	return n.PublicID, true, nil
}

// SweepExpiredDedup drops dedup records past retention. Runs on a schedule.
func SweepExpiredDedup(ctx context.Context) (int64, error) {
	result := database.DB().WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&model.DedupRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to sweep dedup records: %w", result.Error)
	}
	return result.RowsAffected, nil
}
