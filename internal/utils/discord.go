package utils

import (
	"fmt"
	"strconv"
	"time"
)

// Guild permission bits checked before privileged commands
const (
	PermissionManageChannels uint64 = 1 << 4
	PermissionManageGuild    uint64 = 1 << 5
)

// Mention formats a user id as a chat mention
func Mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

// ChannelMention formats a channel id as a chat mention
func ChannelMention(channelID string) string {
	return fmt.Sprintf("<#%s>", channelID)
}

// RelativeTimestamp formats a time as a client-side relative timestamp
// ("3 hours ago")
func RelativeTimestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

// ParsePermissions decodes the permission bitfield string carried on
// interaction payloads. Malformed or missing values decode to zero, which
// grants nothing.
func ParsePermissions(bitfield string) uint64 {
	if bitfield == "" {
		return 0
	}
	bits, err := strconv.ParseUint(bitfield, 10, 64)
	if err != nil {
		return 0
	}
	return bits
}

// HasPermission reports whether the bitfield carries the given permission
func HasPermission(bits, permission uint64) bool {
	return bits&permission == permission
}
