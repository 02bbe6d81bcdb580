package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
)

// BatchLocker keeps job leases in the batch_locks table. Expiry is judged by
// the database clock so instances with skewed clocks agree. It always uses
// the pool, never a transaction carried by ctx.
type BatchLocker struct {
	db *database.DB
}

func NewBatchLocker(db *database.DB) *BatchLocker {
	return &BatchLocker{db: db}
}

// Acquire implements lock.Locker.
func (l *BatchLocker) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO batch_locks (name, owner, lock_until, locked_at)
		VALUES ($1, $2, now() + $3 * interval '1 millisecond', now())
		ON CONFLICT (name) DO UPDATE SET
			owner = EXCLUDED.owner,
			lock_until = EXCLUDED.lock_until,
			locked_at = EXCLUDED.locked_at
		WHERE batch_locks.lock_until <= now()
	`

	tag, err := l.db.Exec(ctx, query, name, owner, ttl.Milliseconds())
	if err != nil {
		return false, fmt.Errorf("failed to acquire batch lock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Renew implements lock.Locker.
func (l *BatchLocker) Renew(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	query := `
		UPDATE batch_locks
		SET lock_until = now() + $3 * interval '1 millisecond'
		WHERE name = $1 AND owner = $2 AND lock_until > now()
	`

	tag, err := l.db.Exec(ctx, query, name, owner, ttl.Milliseconds())
	if err != nil {
		return false, fmt.Errorf("failed to renew batch lock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release implements lock.Locker.
func (l *BatchLocker) Release(ctx context.Context, name, owner string, keepFor time.Duration) error {
	if keepFor > 0 {
		query := `
			UPDATE batch_locks
			SET lock_until = now() + $3 * interval '1 millisecond'
			WHERE name = $1 AND owner = $2
		`
		if _, err := l.db.Exec(ctx, query, name, owner, keepFor.Milliseconds()); err != nil {
			return fmt.Errorf("failed to shorten batch lock: %w", err)
		}
		return nil
	}

	if _, err := l.db.Exec(ctx, `DELETE FROM batch_locks WHERE name = $1 AND owner = $2`, name, owner); err != nil {
		return fmt.Errorf("failed to release batch lock: %w", err)
	}
	return nil
}
