package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
)

// Task is a single unit of work scoped to one guild. Completed tasks are not a
// durable state: the row is deleted once the optional completion log posts, so
// only open and in_progress rows ever persist.
type Task struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	GuildID     string     `gorm:"index:idx_tasks_guild_status;not null" json:"guild_id"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Status      TaskStatus `gorm:"type:varchar(20);index:idx_tasks_guild_status;not null;default:'open'" json:"status"`
	CreatorID   string     `gorm:"not null" json:"creator_id"`
	AssigneeID  string     `json:"assignee_id"`
	ChannelID   string     `json:"channel_id"`
	MessageID   string     `gorm:"index:idx_tasks_message_id" json:"message_id"`
	CreatedAt   time.Time  `json:"created_at"`
	ClaimedAt   *time.Time `json:"claimed_at"`
}

// HasMessage reports whether a live chat message currently represents the task.
func (t *Task) HasMessage() bool {
	return t.MessageID != ""
}
