package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	boterrors "github.com/rzn0/forgetn-t/internal/errors"
	"github.com/rzn0/forgetn-t/internal/gateway"
	"github.com/rzn0/forgetn-t/internal/models"
	"github.com/rzn0/forgetn-t/internal/publisher"
	"github.com/rzn0/forgetn-t/internal/repository"
)

// TaskService is the lifecycle controller: it validates stage transitions,
// mutates the store, and drives the publisher to keep chat state in step.
type TaskService struct {
	tasks   repository.TaskRepository
	configs repository.GuildConfigRepository
	pub     *publisher.Publisher
}

// NewTaskService creates a new TaskService
func NewTaskService(tasks repository.TaskRepository, configs repository.GuildConfigRepository, pub *publisher.Publisher) *TaskService {
	return &TaskService{
		tasks:   tasks,
		configs: configs,
		pub:     pub,
	}
}

// CreateTask inserts a new open task and posts its card to the open channel.
// If the required post ultimately fails, the row is removed again so the
// store returns to its prior state.
func (s *TaskService) CreateTask(ctx context.Context, guildID, creatorID, description string) (*models.Task, error) {
	cfg, err := s.readyConfig(guildID)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		GuildID:     guildID,
		Description: description,
		Status:      models.TaskStatusOpen,
		CreatorID:   creatorID,
	}
	if err := s.tasks.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if err := s.pub.Publish(ctx, task, models.TaskStatusOpen, cfg.ChannelFor(models.TaskStatusOpen)); err != nil {
		if delErr := s.tasks.Delete(task.ID); delErr != nil {
			log.Printf("could not roll back task %d after failed post: %v", task.ID, delErr)
		}
		return nil, err
	}

	return task, nil
}

// ClaimTask moves an open task to in_progress on behalf of the actor and
// republishes its card in the in-progress channel. The clicked ref lets a
// click on an orphaned message clean that message up.
func (s *TaskService) ClaimTask(ctx context.Context, taskID uint64, actorID string, clicked gateway.MessageRef) (*models.Task, error) {
	task, err := s.loadForClick(ctx, taskID, clicked)
	if err != nil {
		return nil, err
	}

	cfg, err := s.readyConfig(task.GuildID)
	if err != nil {
		return nil, err
	}

	if task.Status != models.TaskStatusOpen {
		s.discardOrphan(ctx, task, clicked)
		return nil, boterrors.ErrInvalidTransition
	}

	claimedAt := time.Now().UTC()
	if err := s.tasks.Claim(task.ID, actorID, claimedAt); err != nil {
		if errors.Is(err, repository.ErrStaleTask) {
			// a concurrent claim won the race
			return nil, boterrors.ErrInvalidTransition
		}
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}

	task.Status = models.TaskStatusInProgress
	task.AssigneeID = actorID
	task.ClaimedAt = &claimedAt

	// the store has advanced; a publish failure here is reported but the
	// display is repairable by resync
	if err := s.pub.Publish(ctx, task, models.TaskStatusInProgress, cfg.ChannelFor(models.TaskStatusInProgress)); err != nil {
		return nil, err
	}

	return task, nil
}

// CompleteTask posts the completion log (when a log channel is configured),
// removes the in-progress card, and deletes the row. Only the assignee may
// complete a task unless the actor is privileged.
func (s *TaskService) CompleteTask(ctx context.Context, taskID uint64, actorID string, privileged bool, clicked gateway.MessageRef) (logged bool, err error) {
	// the log post and the row delete form one unit per task id; a duplicate
	// click waits here, re-reads the store after the winner finished, and
	// finds the row gone instead of posting a second log
	unlock := s.pub.Lock(taskID)
	defer unlock()

	task, err := s.loadForClick(ctx, taskID, clicked)
	if err != nil {
		return false, err
	}

	if task.Status != models.TaskStatusInProgress {
		s.discardOrphan(ctx, task, clicked)
		return false, boterrors.ErrInvalidTransition
	}

	if task.AssigneeID != actorID && !privileged {
		return false, boterrors.ErrUnauthorized
	}

	cfg, err := s.configs.Get(task.GuildID)
	if err != nil {
		return false, fmt.Errorf("failed to load guild config: %w", err)
	}

	completedAt := time.Now().UTC()
	if cfg != nil && cfg.CompletedChannelID != "" {
		if err := s.pub.PublishLog(ctx, task, actorID, completedAt, cfg.CompletedChannelID); err != nil {
			// the row stays in_progress; the user can retry the click
			return false, err
		}
		logged = true
	}

	if err := s.tasks.DeleteInProgress(task.ID); err != nil {
		if errors.Is(err, repository.ErrStaleTask) {
			return logged, boterrors.ErrInvalidTransition
		}
		return logged, fmt.Errorf("failed to delete task: %w", err)
	}

	s.pub.Discard(ctx, gateway.MessageRef{ChannelID: task.ChannelID, MessageID: task.MessageID})
	return logged, nil
}

// ResyncReport summarizes one reconciliation pass.
type ResyncReport struct {
	OpenResynced       int
	InProgressResynced int
	Errors             []string
}

// Summary renders the report for the invoking administrator.
func (r *ResyncReport) Summary() string {
	text := fmt.Sprintf("✅ Resync Complete!\n📬 Open Tasks Resynced: %d\n⏳ In-Progress Tasks Resynced: %d\n",
		r.OpenResynced, r.InProgressResynced)
	if len(r.Errors) > 0 {
		text += "\n⚠️ Errors Encountered (see bot logs for full details):\n"
		shown := r.Errors
		if len(shown) > 5 {
			shown = shown[:5]
		}
		for _, e := range shown {
			text += "- " + e + "\n"
		}
	}
	text += "\nℹ️ If any old task messages still appear, you may need to delete them manually."
	return text
}

// Resync republishes every open and in-progress task of a guild against its
// correct channel. Individual failures are isolated and reported in the
// summary; running it twice yields the same final chat state.
func (s *TaskService) Resync(ctx context.Context, guildID string) (*ResyncReport, error) {
	cfg, err := s.readyConfig(guildID)
	if err != nil {
		return nil, err
	}

	report := &ResyncReport{}
	stages := []struct {
		status  models.TaskStatus
		channel string
		counter *int
	}{
		{models.TaskStatusOpen, cfg.ChannelFor(models.TaskStatusOpen), &report.OpenResynced},
		{models.TaskStatusInProgress, cfg.ChannelFor(models.TaskStatusInProgress), &report.InProgressResynced},
	}

	for _, stage := range stages {
		tasks, err := s.tasks.ListByStatus(guildID, stage.status)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s tasks: %w", stage.status, err)
		}
		for i := range tasks {
			task := &tasks[i]
			if err := s.pub.Publish(ctx, task, stage.status, stage.channel); err != nil {
				log.Printf("resync: task %d failed: %v", task.ID, err)
				report.Errors = append(report.Errors, fmt.Sprintf("task %d: %s", task.ID, boterrors.UserMessage(err)))
				continue
			}
			*stage.counter++
		}
	}

	return report, nil
}

// SetChannel assigns a channel to a lifecycle role for a guild.
func (s *TaskService) SetChannel(guildID string, role models.ChannelRole, channelID string) error {
	if err := s.configs.SetChannel(guildID, role, channelID); err != nil {
		return fmt.Errorf("failed to set %s channel: %w", role, err)
	}
	return nil
}

// CleanupGuild drops every task and the configuration of a guild. Used when
// the bot is removed from a guild; chat messages are left to the platform.
func (s *TaskService) CleanupGuild(guildID string) error {
	if err := s.tasks.CleanupGuild(guildID); err != nil {
		return fmt.Errorf("failed to remove guild tasks: %w", err)
	}
	if err := s.configs.Cleanup(guildID); err != nil {
		return fmt.Errorf("failed to remove guild config: %w", err)
	}
	return nil
}

// loadForClick loads the task behind a button click. When the task is gone the
// clicked message is orphaned and taken down on a best-effort attempt.
func (s *TaskService) loadForClick(ctx context.Context, taskID uint64, clicked gateway.MessageRef) (*models.Task, error) {
	task, err := s.tasks.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.pub.Discard(ctx, clicked)
			return nil, boterrors.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// discardOrphan removes the clicked message when it is no longer the task's
// live representation (the task moved on and left it behind). A message some
// stored row still points at is left alone: that row would lose its card.
func (s *TaskService) discardOrphan(ctx context.Context, task *models.Task, clicked gateway.MessageRef) {
	if clicked.IsZero() || clicked.MessageID == task.MessageID {
		return
	}
	if owner, err := s.tasks.FindByMessageID(clicked.MessageID); err == nil && owner != nil {
		return
	}
	s.pub.Discard(ctx, clicked)
}

func (s *TaskService) readyConfig(guildID string) (*models.GuildConfig, error) {
	cfg, err := s.configs.Get(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guild config: %w", err)
	}
	if !cfg.Ready() {
		return nil, boterrors.ErrNotConfigured
	}
	return cfg, nil
}
