package database

import (
	"fmt"

	"Mazraaty/internal/model"
)

// Migrate keeps the core's own tables in sync. Anything beyond additive
// column/index changes is handled outside the service.
func Migrate() error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	err := db.AutoMigrate(
		&model.Notification{},
		&model.DeliveryAttempt{},
		&model.Recipient{},
		&model.ChannelPreference{},
		&model.TopicSubscription{},
		&model.Template{},
		&model.DedupRecord{},
		&model.DeadLetter{},
		&model.InboxMessage{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate schema: %w", err)
	}

	return nil
}
