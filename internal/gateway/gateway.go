// Package gateway defines the boundary to the chat platform: the typed events
// the bot consumes and the message sink it drives. The core never reaches into
// a platform session directly, so tests can substitute a fake sink.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/rzn0/forgetn-t/internal/render"
)

// ErrMessageNotFound is returned when the referenced message no longer exists
// on the platform side. Callers treat it as "nothing to clean up".
var ErrMessageNotFound = errors.New("message not found")

// MessageRef points at the live chat representation of a task.
type MessageRef struct {
	ChannelID string
	MessageID string
}

func (r MessageRef) IsZero() bool {
	return r.MessageID == ""
}

// CommandInvoked is an inbound slash-command interaction.
type CommandInvoked struct {
	Name        string
	Subcommand  string
	Args        map[string]string
	GuildID     string
	ChannelID   string
	ActorID     string
	Permissions uint64
}

// ControlClicked is an inbound button interaction.
type ControlClicked struct {
	CustomID    string
	GuildID     string
	ActorID     string
	Permissions uint64
	Ref         MessageRef
}

// MessageSink is the outbound call set the reconciliation engine drives.
type MessageSink interface {
	PostMessage(ctx context.Context, channelID string, unit render.DisplayUnit) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, unit render.DisplayUnit) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
}

// FollowupSender delivers a deferred interaction's followup message.
type FollowupSender interface {
	PostFollowup(ctx context.Context, applicationID, token, content string) error
}

// TransportError wraps a remote call failure that exhausted its retries.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
