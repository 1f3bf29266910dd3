package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rzn0/forgetn-t/internal/models"
	"github.com/rzn0/forgetn-t/internal/utils"
)

// Stage colors
const (
	ColorOpen       = 0x3498DB
	ColorInProgress = 0xE67E22
	ColorCompleted  = 0x2ECC71
)

// Button styles (Discord component styles)
const (
	StylePrimary = 1
	StyleSuccess = 3
)

// Control actions carried in button custom IDs
const (
	ActionClaim    = "claim"
	ActionComplete = "complete"
)

// Control is an interactive button attached to a task card. Its CustomID
// carries the task id and action, so identical controls can be re-derived from
// the stored row after any restart.
type Control struct {
	CustomID string
	Label    string
	Style    int
	Emoji    string
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// DisplayUnit is the platform-neutral description of one task card: what the
// message sink should show for a task at a given stage.
type DisplayUnit struct {
	Title     string
	Body      string
	Color     int
	Timestamp time.Time
	Fields    []Field
	Footer    string
	Controls  []Control
}

// ClaimCustomID returns the custom id of the Claim button for a task.
func ClaimCustomID(taskID uint64) string {
	return fmt.Sprintf("claim_task_%d", taskID)
}

// CompleteCustomID returns the custom id of the Complete button for a task.
func CompleteCustomID(taskID uint64) string {
	return fmt.Sprintf("complete_task_%d", taskID)
}

// ParseControlID decodes a button custom id back into its action and task id.
func ParseControlID(customID string) (action string, taskID uint64, ok bool) {
	var prefix string
	switch {
	case strings.HasPrefix(customID, "claim_task_"):
		action, prefix = ActionClaim, "claim_task_"
	case strings.HasPrefix(customID, "complete_task_"):
		action, prefix = ActionComplete, "complete_task_"
	default:
		return "", 0, false
	}

	id, err := strconv.ParseUint(strings.TrimPrefix(customID, prefix), 10, 64)
	if err != nil {
		return "", 0, false
	}
	return action, id, true
}

// TaskCard renders the card for an open or in-progress task. It is a pure
// function of its inputs: identical task state always yields an identical
// unit, which is what lets the publisher re-render idempotently.
func TaskCard(task *models.Task, status models.TaskStatus) DisplayUnit {
	unit := DisplayUnit{
		Body:      fmt.Sprintf("**Description:**\n%s", task.Description),
		Timestamp: task.CreatedAt,
		Fields: []Field{
			{Name: "Created By", Value: utils.Mention(task.CreatorID), Inline: true},
		},
		Footer: fmt.Sprintf("Task ID: %d", task.ID),
	}

	switch status {
	case models.TaskStatusOpen:
		unit.Title = "📬 Open Task"
		unit.Color = ColorOpen
		unit.Controls = []Control{
			{CustomID: ClaimCustomID(task.ID), Label: "Claim Task", Style: StyleSuccess, Emoji: "🙋"},
		}
	case models.TaskStatusInProgress:
		unit.Title = "⏳ Task In Progress"
		unit.Color = ColorInProgress
		if task.AssigneeID != "" {
			unit.Fields = append(unit.Fields, Field{Name: "Assigned To", Value: utils.Mention(task.AssigneeID), Inline: true})
		}
		unit.Controls = []Control{
			{CustomID: CompleteCustomID(task.ID), Label: "Complete Task", Style: StylePrimary, Emoji: "✅"},
		}
	default:
		unit.Title = "❓ Unknown Task State"
	}

	return unit
}

// CompletedCard renders the one-shot completion log entry. It carries no
// controls and is never tracked by a message ref.
func CompletedCard(task *models.Task, completedBy string, completedAt time.Time) DisplayUnit {
	assigned := "N/A"
	if task.AssigneeID != "" {
		assigned = utils.Mention(task.AssigneeID)
	}

	return DisplayUnit{
		Title:     "✅ Task Completed!",
		Body:      fmt.Sprintf("**Original Description:**\n%s", task.Description),
		Color:     ColorCompleted,
		Timestamp: completedAt,
		Fields: []Field{
			{Name: "Created By", Value: utils.Mention(task.CreatorID), Inline: true},
			{Name: "Originally Assigned To", Value: assigned, Inline: true},
			{Name: "Completed By", Value: utils.Mention(completedBy), Inline: true},
			{Name: "Created At", Value: utils.RelativeTimestamp(task.CreatedAt)},
			{Name: "Completed At", Value: utils.RelativeTimestamp(completedAt)},
		},
		Footer: fmt.Sprintf("Task ID: %d", task.ID),
	}
}
