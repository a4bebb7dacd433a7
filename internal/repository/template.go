package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Mazraaty/internal/model"
	"Mazraaty/storage/database"
)

// GetTemplate loads a template by its stable identifier.
func GetTemplate(ctx context.Context, templateID string) (*model.Template, error) {
	var t model.Template
	err := database.DB().WithContext(ctx).
		Where("template_id = ?", templateID).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

// UpsertTemplate installs or replaces a template definition. Used by seed
// tooling and tests.
func UpsertTemplate(ctx context.Context, t *model.Template) error {
	err := database.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "template_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"kind", "subject_ar", "subject_en", "body_ar", "body_en",
				"required_params", "channels", "updated_at",
			}),
		}).
		Create(t).Error
	if err != nil {
		return fmt.Errorf("failed to upsert template: %w", err)
	}
	return nil
}
