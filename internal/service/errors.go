package service

import "errors"

// Sentinel errors mapped to HTTP statuses by the handlers.
var (
	ErrEmptyMessage          = errors.New("message is required")
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrConversationArchived  = errors.New("conversation is archived")
	ErrToolExecutionNotFound = errors.New("tool execution not found")
	ErrAlreadyExecuted       = errors.New("tool execution is not pending")
	ErrForbidden             = errors.New("action not allowed for this user")
)

// RateLimitError carries the limiter's user-facing message.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string { return e.Message }

// ActionError is a confirmed action that could not be applied.
type ActionError struct {
	Tool string
	Err  error
}

func (e *ActionError) Error() string { return e.Err.Error() }

func (e *ActionError) Unwrap() error { return e.Err }
