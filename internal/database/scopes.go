package database

import (
	"gorm.io/gorm"

	"github.com/rzn0/forgetn-t/internal/models"
)

// ByGuild scopes a query to one guild
func ByGuild(guildID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("guild_id = ?", guildID)
	}
}

// WithStatus scopes a query to one lifecycle stage
func WithStatus(status models.TaskStatus) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ?", status)
	}
}
