package services

import (
	"errors"
	"fmt"
)

var (
	ErrPropertyNotFound    = errors.New("property not found")
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is fully occupied")
	ErrTooMuchContention   = errors.New("too much contention")
	ErrTaskNotFound        = errors.New("outbox task not found")
	ErrTaskNotRetryable    = errors.New("outbox task is not in a retryable state")
	ErrTaskAlreadyDone     = errors.New("outbox task already finished")
	ErrTaskBusy            = errors.New("outbox task is claimed by another worker")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrInvalidFloorPlan    = errors.New("invalid floor plan")
)

// PersistenceError is a failed tenant write. Nothing after it runs.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("tenant %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// permanentError marks a task failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
