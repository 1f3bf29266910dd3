package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/rzn0/forgetn-t/internal/models"
)

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		model interface{}
		name  string
	}{
		// Resync scans by guild and status; publish looks up by message id.
		{&models.Task{}, "idx_tasks_guild_status"},
		{&models.Task{}, "idx_tasks_message_id"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}
		if err := migrator.CreateIndex(idx.model, idx.name); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
