package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rzn0/forgetn-t/internal/models"
)

func sampleTask() *models.Task {
	claimed := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	return &models.Task{
		ID:          42,
		GuildID:     "guild-1",
		Description: "Fix login bug",
		Status:      models.TaskStatusInProgress,
		CreatorID:   "100",
		AssigneeID:  "200",
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		ClaimedAt:   &claimed,
	}
}

func TestTaskCard_Open(t *testing.T) {
	task := sampleTask()
	task.Status = models.TaskStatusOpen
	task.AssigneeID = ""

	unit := TaskCard(task, models.TaskStatusOpen)

	assert.Equal(t, "📬 Open Task", unit.Title)
	assert.Equal(t, ColorOpen, unit.Color)
	assert.Contains(t, unit.Body, "Fix login bug")
	assert.Equal(t, "Task ID: 42", unit.Footer)
	if assert.Len(t, unit.Controls, 1) {
		assert.Equal(t, "claim_task_42", unit.Controls[0].CustomID)
		assert.Equal(t, "Claim Task", unit.Controls[0].Label)
	}
	// an open task has no assignee field
	for _, f := range unit.Fields {
		assert.NotEqual(t, "Assigned To", f.Name)
	}
}

func TestTaskCard_InProgress(t *testing.T) {
	unit := TaskCard(sampleTask(), models.TaskStatusInProgress)

	assert.Equal(t, "⏳ Task In Progress", unit.Title)
	assert.Equal(t, ColorInProgress, unit.Color)
	if assert.Len(t, unit.Controls, 1) {
		assert.Equal(t, "complete_task_42", unit.Controls[0].CustomID)
	}

	var assigned bool
	for _, f := range unit.Fields {
		if f.Name == "Assigned To" && f.Value == "<@200>" {
			assigned = true
		}
	}
	assert.True(t, assigned, "in-progress card should name the assignee")
}

func TestTaskCard_Deterministic(t *testing.T) {
	task := sampleTask()

	first := TaskCard(task, models.TaskStatusInProgress)
	second := TaskCard(task, models.TaskStatusInProgress)

	assert.Equal(t, first, second)
}

func TestCompletedCard(t *testing.T) {
	completedAt := time.Date(2024, 5, 3, 18, 0, 0, 0, time.UTC)
	unit := CompletedCard(sampleTask(), "200", completedAt)

	assert.Equal(t, "✅ Task Completed!", unit.Title)
	assert.Equal(t, ColorCompleted, unit.Color)
	assert.Empty(t, unit.Controls, "completion log carries no controls")
	assert.Equal(t, completedAt, unit.Timestamp)

	names := make([]string, 0, len(unit.Fields))
	for _, f := range unit.Fields {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "Completed By")
	assert.Contains(t, names, "Completed At")
}

func TestCompletedCard_NoAssignee(t *testing.T) {
	task := sampleTask()
	task.AssigneeID = ""

	unit := CompletedCard(task, "300", time.Now().UTC())

	var value string
	for _, f := range unit.Fields {
		if f.Name == "Originally Assigned To" {
			value = f.Value
		}
	}
	assert.Equal(t, "N/A", value)
}

func TestParseControlID(t *testing.T) {
	tests := []struct {
		customID string
		action   string
		taskID   uint64
		ok       bool
	}{
		{"claim_task_7", ActionClaim, 7, true},
		{"complete_task_42", ActionComplete, 42, true},
		{"claim_task_", "", 0, false},
		{"claim_task_abc", "", 0, false},
		{"unrelated_button", "", 0, false},
		{"", "", 0, false},
	}

	for _, tt := range tests {
		action, taskID, ok := ParseControlID(tt.customID)
		assert.Equal(t, tt.ok, ok, tt.customID)
		assert.Equal(t, tt.action, action, tt.customID)
		assert.Equal(t, tt.taskID, taskID, tt.customID)
	}
}
