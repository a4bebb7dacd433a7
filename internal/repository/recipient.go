package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"Mazraaty/internal/model"
	"Mazraaty/storage/database"
)

// GetRecipient loads a recipient scoped to a tenant.
func GetRecipient(ctx context.Context, tenantID string, recipientID int64) (*model.Recipient, error) {
	var r model.Recipient
	err := database.DB().WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, recipientID).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}
	return &r, nil
}

// ListRecipientsByIDs loads a batch of recipients, tenant-scoped. Callers
// compare the result length against the request to detect cross-tenant IDs.
func ListRecipientsByIDs(ctx context.Context, tenantID string, ids []int64) ([]model.Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var recipients []model.Recipient
	err := database.DB().WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&recipients).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	return recipients, nil
}

// ListTopicSubscribers pages through a topic's subscribers with keyset
// pagination so a large topic never materializes in one query.
func ListTopicSubscribers(ctx context.Context, tenantID, topic string, afterID int64, limit int) ([]model.Recipient, error) {
	var recipients []model.Recipient
	err := database.DB().WithContext(ctx).
		Joins("JOIN topic_subscriptions ts ON ts.recipient_id = recipients.id").
		Where("ts.tenant_id = ? AND ts.topic = ? AND recipients.tenant_id = ? AND recipients.id > ?",
			tenantID, topic, tenantID, afterID).
		Order("recipients.id ASC").
		Limit(limit).
		Find(&recipients).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list topic subscribers: %w", err)
	}
	return recipients, nil
}

// ListRecipientsByGeo pages through recipients matching a geo filter. Empty
// filter fields are wildcards.
func ListRecipientsByGeo(ctx context.Context, tenantID string, filter model.GeoFilter, afterID int64, limit int) ([]model.Recipient, error) {
	query := database.DB().WithContext(ctx).
		Where("tenant_id = ? AND id > ?", tenantID, afterID)

	if filter.Governorate != "" {
		query = query.Where("governorate = ?", filter.Governorate)
	}
	if filter.District != "" {
		query = query.Where("district = ?", filter.District)
	}
	if filter.Crop != "" {
		query = query.Where("primary_crop = ?", filter.Crop)
	}

	var recipients []model.Recipient
	err := query.Order("id ASC").Limit(limit).Find(&recipients).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients by geo: %w", err)
	}
	return recipients, nil
}
