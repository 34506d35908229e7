package domain

import "errors"

// Domain errors are pure — no infrastructure dependency.

var (
	// Submission errors
	ErrUnknownTaskType = errors.New("unknown task type")
	ErrBadTimestamp    = errors.New("execution_time is not a valid RFC 3339 timestamp")

	// Store errors
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskClaimed  = errors.New("task already claimed by another worker")
)
