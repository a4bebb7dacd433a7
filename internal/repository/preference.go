package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"Mazraaty/internal/model"
	"Mazraaty/storage/database"
)

// ListPreferences returns all channel preferences for a recipient. A channel
// with no row is implicitly enabled with no quiet hours.
func ListPreferences(ctx context.Context, tenantID string, recipientID int64) ([]model.ChannelPreference, error) {
	var prefs []model.ChannelPreference
	err := database.DB().WithContext(ctx).
		Where("tenant_id = ? AND recipient_id = ?", tenantID, recipientID).
		Find(&prefs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	return prefs, nil
}

// GetPreference returns the preference row for one (recipient, channel), or
// nil when the recipient never set one.
func GetPreference(ctx context.Context, tenantID string, recipientID int64, channel model.Channel) (*model.ChannelPreference, error) {
	var prefs []model.ChannelPreference
	err := database.DB().WithContext(ctx).
		Where("tenant_id = ? AND recipient_id = ? AND channel = ?", tenantID, recipientID, channel).
		Limit(1).
		Find(&prefs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}
	if len(prefs) == 0 {
		return nil, nil
	}
	return &prefs[0], nil
}

// UpsertPreference writes a preference row, replacing any previous setting
// for the same (recipient, channel).
func UpsertPreference(ctx context.Context, pref *model.ChannelPreference) error {
	err := database.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "recipient_id"},
				{Name: "channel"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"enabled", "quiet_hours_start", "quiet_hours_end", "updated_at",
			}),
		}).
		Create(pref).Error
	if err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}
	return nil
}
