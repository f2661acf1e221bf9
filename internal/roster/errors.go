package roster

import (
	"errors"
	"fmt"
)

var (
	ErrConflict    = errors.New("task conflicts with an existing task")
	ErrNotFound    = errors.New("task not found")
	ErrInvalidTime = errors.New("invalid time")
)

// ConflictError is returned by Add when the new task overlaps an existing one.
// With is the description of the first overlapping task in registry order.
type ConflictError struct {
	With string
	Task Task
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("task %q conflicts with existing task %q", e.Task.Description, e.With)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NotFoundError is returned by Remove when no description matches.
type NotFoundError struct {
	Description string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %q not found", e.Description)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// TimeError is returned by Add in strict mode for a malformed or inverted interval.
type TimeError struct {
	Field  string // "start", "end" or "interval"
	Value  string
	Reason string
}

func (e *TimeError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *TimeError) Unwrap() error { return ErrInvalidTime }
