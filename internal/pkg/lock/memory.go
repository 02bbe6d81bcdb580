package lock

import (
	"context"
	"sync"
	"time"
)

type lease struct {
	owner string
	until time.Time
}

// MemoryLocker is a Locker for a single process and for tests.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return NewMemoryLockerWithClock(time.Now)
}

func NewMemoryLockerWithClock(now func() time.Time) *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]lease), now: now}
}

// Acquire implements Locker.
func (m *MemoryLocker) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if l, ok := m.leases[name]; ok && now.Before(l.until) {
		return false, nil
	}
	m.leases[name] = lease{owner: owner, until: now.Add(ttl)}
	return true, nil
}

// Renew implements Locker.
func (m *MemoryLocker) Renew(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	l, ok := m.leases[name]
	if !ok || l.owner != owner || !now.Before(l.until) {
		return false, nil
	}
	m.leases[name] = lease{owner: owner, until: now.Add(ttl)}
	return true, nil
}

// Release implements Locker.
func (m *MemoryLocker) Release(ctx context.Context, name, owner string, keepFor time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leases[name]
	if !ok || l.owner != owner {
		return nil
	}
	if keepFor > 0 {
		m.leases[name] = lease{owner: owner, until: m.now().Add(keepFor)}
		return nil
	}
	delete(m.leases, name)
	return nil
}

// Held reports whether name has a live lease.
func (m *MemoryLocker) Held(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leases[name]
	return ok && m.now().Before(l.until)
}
