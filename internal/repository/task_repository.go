package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/rzn0/forgetn-t/internal/database"
	"github.com/rzn0/forgetn-t/internal/models"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts a new task row
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID
func (r *GormTaskRepository) FindByID(id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByMessageID finds the task currently represented by a message
func (r *GormTaskRepository) FindByMessageID(messageID string) (*models.Task, error) {
	var task models.Task
	if err := r.db.Where("message_id = ?", messageID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByStatus retrieves all tasks of a guild in the given stage
func (r *GormTaskRepository) ListByStatus(guildID string, status models.TaskStatus) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Scopes(database.ByGuild(guildID), database.WithStatus(status)).
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// SetMessageRef records the live message ref of a task. Pass empty values to
// clear it. Returns gorm.ErrRecordNotFound when the row has vanished, which
// callers tolerate (the task may have completed mid-publish).
func (r *GormTaskRepository) SetMessageRef(id uint64, channelID, messageID string) error {
	result := r.db.Model(&models.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"channel_id": channelID,
			"message_id": messageID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Claim moves an open task to in_progress and sets the assignee
func (r *GormTaskRepository) Claim(id uint64, assigneeID string, claimedAt time.Time) error {
	result := r.db.Model(&models.Task{}).
		Where("id = ? AND status = ?", id, models.TaskStatusOpen).
		Updates(map[string]interface{}{
			"status":      models.TaskStatusInProgress,
			"assignee_id": assigneeID,
			"claimed_at":  claimedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleTask
	}
	return nil
}

// Delete removes a task row unconditionally
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Task{}, id).Error
}

// DeleteInProgress removes a task row guarded on status=in_progress
func (r *GormTaskRepository) DeleteInProgress(id uint64) error {
	result := r.db.
		Where("id = ? AND status = ?", id, models.TaskStatusInProgress).
		Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleTask
	}
	return nil
}

// DeleteByMessageID removes the task represented by a message
func (r *GormTaskRepository) DeleteByMessageID(messageID string) error {
	return r.db.Where("message_id = ?", messageID).Delete(&models.Task{}).Error
}

// CleanupGuild removes every task of a guild
func (r *GormTaskRepository) CleanupGuild(guildID string) error {
	return r.db.Scopes(database.ByGuild(guildID)).Delete(&models.Task{}).Error
}
