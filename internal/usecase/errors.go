package usecase

import (
	"errors"

	"transbuddy/internal/domain"
)

var (
	ErrNoActiveSession = errors.New("no active recording session")
	// ErrTriggerIgnored is returned when the debounce or re-entrancy guard
	// rejects a trigger.
	ErrTriggerIgnored = errors.New("trigger ignored")
	ErrBusy           = errors.New("session is between states")
	ErrMissingAPIKey  = errors.New("no API key configured")
)

// SessionError is a session failure classified for the status sink.
type SessionError struct {
	Code   domain.ErrorCode
	Reason domain.SessionStateReason
	Err    error
}

func (e *SessionError) Error() string {
	return e.Err.Error()
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func newSessionError(code domain.ErrorCode, reason domain.SessionStateReason, err error) *SessionError {
	return &SessionError{Code: code, Reason: reason, Err: err}
}
