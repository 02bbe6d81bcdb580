package batch

import (
	"context"
	"time"
)

// Service runs batch jobs under a lease lock.
type Service interface {
	// Run executes job for date. It returns ErrJobRunning when another
	// instance holds the job's lock.
	Run(ctx context.Context, job Job, date time.Time) (Result, error)
}
