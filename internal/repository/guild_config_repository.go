package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rzn0/forgetn-t/internal/models"
)

// GormGuildConfigRepository is a GORM implementation of GuildConfigRepository
type GormGuildConfigRepository struct {
	db *gorm.DB
}

// NewGuildConfigRepository creates a new GuildConfigRepository
func NewGuildConfigRepository(db *gorm.DB) GuildConfigRepository {
	return &GormGuildConfigRepository{db: db}
}

// Get returns the configuration row of a guild, or nil when none exists
func (r *GormGuildConfigRepository) Get(guildID string) (*models.GuildConfig, error) {
	var cfg models.GuildConfig
	if err := r.db.Where("guild_id = ?", guildID).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// SetChannel upserts the channel assigned to a role for a guild
func (r *GormGuildConfigRepository) SetChannel(guildID string, role models.ChannelRole, channelID string) error {
	var column string
	switch role {
	case models.ChannelRoleOpen:
		column = "open_channel_id"
	case models.ChannelRoleInProgress:
		column = "in_progress_channel_id"
	case models.ChannelRoleCompleted:
		column = "completed_channel_id"
	default:
		return fmt.Errorf("invalid channel role: %s", role)
	}

	return r.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{column: channelID}),
		}).
		Create(configRow(guildID, column, channelID)).Error
}

// ListGuildIDs returns every guild that has a configuration row
func (r *GormGuildConfigRepository) ListGuildIDs() ([]string, error) {
	var ids []string
	if err := r.db.Model(&models.GuildConfig{}).Pluck("guild_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Cleanup removes the configuration row of a guild
func (r *GormGuildConfigRepository) Cleanup(guildID string) error {
	return r.db.Where("guild_id = ?", guildID).Delete(&models.GuildConfig{}).Error
}

func configRow(guildID, column, channelID string) *models.GuildConfig {
	cfg := &models.GuildConfig{GuildID: guildID}
	switch column {
	case "open_channel_id":
		cfg.OpenChannelID = channelID
	case "in_progress_channel_id":
		cfg.InProgressChannelID = channelID
	case "completed_channel_id":
		cfg.CompletedChannelID = channelID
	}
	return cfg
}
