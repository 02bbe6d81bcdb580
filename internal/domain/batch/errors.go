package batch

import "errors"

var (
	ErrUnknownJob  = errors.New("unknown batch job")
	ErrJobRunning  = errors.New("batch job is already running on another instance")
	ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")
)
