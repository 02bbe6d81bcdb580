// Package lock provides lease locks that keep a scheduled job to a single
// instance across a deployment.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var ErrNotAcquired = errors.New("lock is held by another instance")

const (
	defaultAtMostFor = 30 * time.Minute
	minRenewInterval = time.Second
)

// Locker is a lease store. Every call is keyed by the lock name and the
// owner token of the caller.
type Locker interface {
	// Acquire takes name for ttl. ok is false when a live lease exists.
	Acquire(ctx context.Context, name, owner string, ttl time.Duration) (ok bool, err error)

	// Renew extends a lease held by owner. ok is false when the lease was
	// lost.
	Renew(ctx context.Context, name, owner string, ttl time.Duration) (ok bool, err error)

	// Release ends the lease of owner. With keepFor > 0 the lease stays
	// until keepFor from now instead.
	Release(ctx context.Context, name, owner string, keepFor time.Duration) error
}

// Options bound how long a lease lives.
type Options struct {
	// AtMostFor is the lease TTL. A crashed holder loses the lock after it.
	AtMostFor time.Duration

	// AtLeastFor keeps the lock after a fast run so that other instances
	// triggered by the same schedule skip it.
	AtLeastFor time.Duration
}

func (o Options) withDefaults() Options {
	if o.AtMostFor <= 0 {
		o.AtMostFor = defaultAtMostFor
	}
	if o.AtLeastFor < 0 {
		o.AtLeastFor = 0
	}
	return o
}

// Run executes fn while holding the named lease. It returns ErrNotAcquired
// without calling fn when another instance holds it.
//
// The lease is renewed every AtMostFor/3. If a renewal finds the lease lost,
// the context passed to fn is canceled.
func Run(ctx context.Context, l Locker, name string, opts Options, fn func(ctx context.Context) error) error {
	opts = opts.withDefaults()
	owner := uuid.NewString()
	acquiredAt := time.Now()

	ok, err := l.Acquire(ctx, name, owner, opts.AtMostFor)
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return ErrNotAcquired
	}
	slog.Debug("Lock acquired", "lock", name, "owner", owner)

	runCtx, cancel := context.WithCancel(ctx)
	renewed := make(chan struct{})
	go func() {
		defer close(renewed)
		keepAlive(runCtx, cancel, l, name, owner, opts.AtMostFor)
	}()

	runErr := fn(runCtx)

	cancel()
	<-renewed

	keep := opts.AtLeastFor - time.Since(acquiredAt)
	if err := l.Release(context.WithoutCancel(ctx), name, owner, max(keep, 0)); err != nil {
		slog.Error("Failed to release lock", "lock", name, "error", err)
	}

	return runErr
}

func keepAlive(ctx context.Context, cancel context.CancelFunc, l Locker, name, owner string, ttl time.Duration) {
	ticker := time.NewTicker(max(ttl/3, minRenewInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := l.Renew(ctx, name, owner, ttl)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("Failed to renew lock", "lock", name, "error", err)
				continue
			}
			if !ok {
				slog.Error("Lock lost while job was running", "lock", name)
				cancel()
				return
			}
		}
	}
}
