package models

type ChannelRole string

const (
	ChannelRoleOpen       ChannelRole = "open"
	ChannelRoleInProgress ChannelRole = "in_progress"
	ChannelRoleCompleted  ChannelRole = "completed"
)

// GuildConfig holds the per-guild channel assignments. The completed channel is
// optional; when unset, completion produces no log message.
type GuildConfig struct {
	GuildID             string `gorm:"primarykey" json:"guild_id"`
	OpenChannelID       string `json:"open_channel_id"`
	InProgressChannelID string `json:"in_progress_channel_id"`
	CompletedChannelID  string `json:"completed_channel_id"`
}

// Ready reports whether the mandatory channels are configured. Task creation is
// refused until both the open and in-progress channels are set.
func (c *GuildConfig) Ready() bool {
	return c != nil && c.OpenChannelID != "" && c.InProgressChannelID != ""
}

// ChannelFor returns the channel assigned to a lifecycle stage.
func (c *GuildConfig) ChannelFor(status TaskStatus) string {
	if c == nil {
		return ""
	}
	switch status {
	case TaskStatusOpen:
		return c.OpenChannelID
	case TaskStatusInProgress:
		return c.InProgressChannelID
	}
	return ""
}
