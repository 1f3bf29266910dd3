package repository

import (
	"errors"
	"time"

	"github.com/rzn0/forgetn-t/internal/models"
)

// ErrStaleTask is returned by status-guarded mutations when the row exists but
// has already moved past the expected stage (a lost claim/complete race).
var ErrStaleTask = errors.New("task is no longer in the expected status")

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a new task row
	Create(task *models.Task) error

	// FindByID finds a task by ID
	FindByID(id uint64) (*models.Task, error)

	// FindByMessageID finds the task currently represented by a message
	FindByMessageID(messageID string) (*models.Task, error)

	// ListByStatus retrieves all tasks of a guild in the given stage
	ListByStatus(guildID string, status models.TaskStatus) ([]models.Task, error)

	// SetMessageRef records (or clears, with empty values) the live message ref
	SetMessageRef(id uint64, channelID, messageID string) error

	// Claim moves an open task to in_progress and sets the assignee. The
	// update is guarded on status=open so concurrent claims lose cleanly.
	Claim(id uint64, assigneeID string, claimedAt time.Time) error

	// Delete removes a task row unconditionally
	Delete(id uint64) error

	// DeleteInProgress removes a task row guarded on status=in_progress
	DeleteInProgress(id uint64) error

	// DeleteByMessageID removes the task represented by a message. This is
	// the hook for platform message-deletion notices; a webhook-only
	// deployment never receives those, so no handler calls it yet.
	DeleteByMessageID(messageID string) error

	// CleanupGuild removes every task of a guild
	CleanupGuild(guildID string) error
}

// GuildConfigRepository defines the interface for channel configuration access
type GuildConfigRepository interface {
	// Get returns the configuration row of a guild, or nil when none exists
	Get(guildID string) (*models.GuildConfig, error)

	// SetChannel upserts the channel assigned to a role for a guild
	SetChannel(guildID string, role models.ChannelRole, channelID string) error

	// ListGuildIDs returns every guild that has a configuration row
	ListGuildIDs() ([]string, error)

	// Cleanup removes the configuration row of a guild
	Cleanup(guildID string) error
}
