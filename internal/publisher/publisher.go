// Package publisher reconciles a task's chat message with its stored state:
// for any task there is at most one live message, in the channel matching its
// current stage. The stored row is authoritative; the message is a projection.
package publisher

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	boterrors "github.com/rzn0/forgetn-t/internal/errors"
	"github.com/rzn0/forgetn-t/internal/gateway"
	"github.com/rzn0/forgetn-t/internal/models"
	"github.com/rzn0/forgetn-t/internal/render"
	"github.com/rzn0/forgetn-t/internal/repository"
)

const (
	maxAttempts    = 3
	initialBackoff = 250 * time.Millisecond
)

// Publisher owns the message ref of every task. All renders for one task id
// are serialized so that concurrent clicks cannot race to duplicate messages;
// unrelated tasks publish in parallel.
type Publisher struct {
	sink  gateway.MessageSink
	tasks repository.TaskRepository

	mu    sync.Mutex
	locks map[uint64]*taskLock
}

type taskLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a Publisher driving the given sink.
func New(sink gateway.MessageSink, tasks repository.TaskRepository) *Publisher {
	return &Publisher{
		sink:  sink,
		tasks: tasks,
		locks: make(map[uint64]*taskLock),
	}
}

// Publish makes the single live message for a task match render.TaskCard in
// the target channel. It edits in place when the existing message is already
// in the right channel, otherwise discards the stale message and reposts. The
// new ref is recorded on the row before returning.
func (p *Publisher) Publish(ctx context.Context, task *models.Task, status models.TaskStatus, channelID string) error {
	unlock := p.Lock(task.ID)
	defer unlock()

	unit := render.TaskCard(task, status)

	if task.HasMessage() {
		ref := gateway.MessageRef{ChannelID: task.ChannelID, MessageID: task.MessageID}
		if task.ChannelID == channelID {
			err := p.withRetry(ctx, "editMessage", func() error {
				return p.sink.EditMessage(ctx, ref, unit)
			})
			if err == nil {
				return nil
			}
			if !errors.Is(err, gateway.ErrMessageNotFound) {
				return boterrors.Wrap(boterrors.ErrCodeTransport, boterrors.ErrTransport.Message, err)
			}
			// the message is gone; fall through and repost
		} else {
			// stage moved the task to another channel; the old message is
			// stale collateral, removed on a single best-effort attempt
			p.Discard(ctx, ref)
		}
	}

	var newRef gateway.MessageRef
	err := p.withRetry(ctx, "postMessage", func() error {
		var postErr error
		newRef, postErr = p.sink.PostMessage(ctx, channelID, unit)
		return postErr
	})
	if err != nil {
		return boterrors.Wrap(boterrors.ErrCodeTransport, boterrors.ErrTransport.Message, err)
	}

	if err := p.tasks.SetMessageRef(task.ID, newRef.ChannelID, newRef.MessageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// the task vanished mid-publish (completed concurrently); the
			// fresh message is orphaned, so take it back down
			p.Discard(ctx, newRef)
			return nil
		}
		return err
	}

	task.ChannelID = newRef.ChannelID
	task.MessageID = newRef.MessageID
	return nil
}

// PublishLog posts the one-shot completion card. The entry is never tracked
// by a message ref; the task row is deleted right after.
func (p *Publisher) PublishLog(ctx context.Context, task *models.Task, completedBy string, completedAt time.Time, channelID string) error {
	unit := render.CompletedCard(task, completedBy, completedAt)
	err := p.withRetry(ctx, "postMessage", func() error {
		_, postErr := p.sink.PostMessage(ctx, channelID, unit)
		return postErr
	})
	if err != nil {
		return boterrors.Wrap(boterrors.ErrCodeTransport, boterrors.ErrTransport.Message, err)
	}
	return nil
}

// Discard removes a message that no longer represents anything: single
// attempt, failures logged and swallowed. An orphaned message carries no
// functioning controls once its task has moved on.
func (p *Publisher) Discard(ctx context.Context, ref gateway.MessageRef) {
	if ref.IsZero() {
		return
	}
	if err := p.sink.DeleteMessage(ctx, ref); err != nil && !errors.Is(err, gateway.ErrMessageNotFound) {
		log.Printf("could not delete stale message %s in channel %s: %v", ref.MessageID, ref.ChannelID, err)
	}
}

// Lock takes the task's serialization mutex, the same one Publish uses, and
// returns its release func. Callers that must pair a remote post with a store
// mutation as one unit hold it across the whole sequence. Entries are
// refcounted and dropped once the last holder releases, so the map does not
// grow with every task id ever seen.
func (p *Publisher) Lock(taskID uint64) func() {
	p.mu.Lock()
	l, ok := p.locks[taskID]
	if !ok {
		l = &taskLock{}
		p.locks[taskID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, taskID)
		}
		p.mu.Unlock()
	}
}

// withRetry runs a required remote call up to maxAttempts times with doubling
// backoff. ErrMessageNotFound is not retried: the target is gone, not flaky.
func (p *Publisher) withRetry(ctx context.Context, op string, call func() error) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = call()
		if err == nil || errors.Is(err, gateway.ErrMessageNotFound) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		log.Printf("%s attempt %d failed, retrying: %v", op, attempt, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
