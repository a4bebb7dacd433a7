package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"Mazraaty/internal/model"
	"Mazraaty/storage/database"
)

// StoreInboxMessage writes an in-app message. The unique index on (tenant,
// recipient, notification) makes redelivered attempts idempotent.
func StoreInboxMessage(ctx context.Context, msg *model.InboxMessage) error {
	err := database.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"},
				{Name: "recipient_id"},
				{Name: "notification_id"},
			},
			DoNothing: true,
		}).
		Create(msg).Error
	if err != nil {
		return fmt.Errorf("failed to store inbox message: %w", err)
	}
	return nil
}

// ListInboxMessages pages a recipient's inbox, newest first.
func ListInboxMessages(ctx context.Context, tenantID string, recipientID int64, limit, offset int) ([]model.InboxMessage, int64, error) {
	var (
		messages []model.InboxMessage
		total    int64
	)

	query := database.DB().WithContext(ctx).
		Model(&model.InboxMessage{}).
		Where("tenant_id = ? AND recipient_id = ?", tenantID, recipientID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count inbox messages: %w", err)
	}

	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inbox messages: %w", err)
	}
	return messages, total, nil
}
