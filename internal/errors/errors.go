package errors

import (
	"errors"
)

// Error codes
const (
	// Prerequisite errors
	ErrCodeNotConfigured = "NOT_CONFIGURED"

	// Lifecycle errors
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeUnauthorized      = "UNAUTHORIZED"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"

	// Remote errors
	ErrCodeTransport = "TRANSPORT_ERROR"

	// Service errors
	ErrCodeInternal = "INTERNAL_ERROR"
)

// BotError is the error shape surfaced to the invoking user: a stable code and
// a short, actionable message. Diagnostic detail stays in the process log.
type BotError struct {
	Code    string
	Message string
	cause   error
}

// Error implements the error interface
func (e *BotError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *BotError) Unwrap() error {
	return e.cause
}

// New creates a BotError with a code and user-facing message.
func New(code, message string) *BotError {
	return &BotError{Code: code, Message: message}
}

// Wrap creates a BotError carrying an underlying cause.
func Wrap(code, message string, cause error) *BotError {
	return &BotError{Code: code, Message: message, cause: cause}
}

// Predefined errors
var (
	ErrNotConfigured = New(ErrCodeNotConfigured,
		"Open and In-Progress task channels must be set up first. Use /setup open_channel and /setup inprogress_channel.")
	ErrInvalidTransition = New(ErrCodeInvalidTransition,
		"This task has already moved on.")
	ErrUnauthorized = New(ErrCodeUnauthorized,
		"Only the assignee can complete this task.")
	ErrTaskNotFound = New(ErrCodeNotFound,
		"This task no longer exists.")
	ErrTransport = New(ErrCodeTransport,
		"Discord did not accept the update. Please try again.")
)

// CodeOf returns the error code for any error, mapping non-BotError values to
// the internal code.
func CodeOf(err error) string {
	var be *BotError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeInternal
}

// UserMessage returns the message that may be shown to the triggering user.
func UserMessage(err error) string {
	var be *BotError
	if errors.As(err, &be) {
		return be.Message
	}
	return "An unexpected error occurred while processing your request."
}
