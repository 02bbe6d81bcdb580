// Package memory provides in-memory repositories with the same uniqueness
// and version semantics as the PostgreSQL ones. It backs service tests and
// local runs without a database.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds every table. Repositories returned by its accessors share it.
type Store struct {
	mu        sync.RWMutex
	clockFunc func() time.Time
	seq       int64

	policies    []policyRow
	assignments []assignmentRow
	attendances map[string]attendanceRow
	holidays    map[string]string
	balances    map[string]balanceRow
	requests    []requestRow
	members     map[string]memberRow
	orgs        map[string]orgRow
}

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock creates a store with an injected clock for determinism.
func NewStoreWithClock(clockFunc func() time.Time) *Store {
	return &Store{
		clockFunc:   clockFunc,
		attendances: make(map[string]attendanceRow),
		holidays:    make(map[string]string),
		balances:    make(map[string]balanceRow),
		members:     make(map[string]memberRow),
		orgs:        make(map[string]orgRow),
	}
}

// WithinTx implements database.Transactor. Each repository call is atomic
// on its own; version checks on Update catch interleaved writers.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// next must be called with mu held.
func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func sameDate(a, b time.Time) bool {
	return dateKey(a) == dateKey(b)
}
