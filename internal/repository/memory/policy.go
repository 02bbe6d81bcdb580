package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
)

type policyRow struct {
	seq int64
	p   policy.Policy
}

type assignmentRow struct {
	seq int64
	a   policy.Assignment
}

type policyRepository struct{ s *Store }

type assignmentRepository struct{ s *Store }

func (s *Store) Policies() policy.PolicyRepository { return policyRepository{s} }

func (s *Store) Assignments() policy.AssignmentRepository { return assignmentRepository{s} }

// Create implements policy.PolicyRepository.
func (r policyRepository) Create(ctx context.Context, p policy.Policy) (policy.Policy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.clockFunc()
	if p.ID == "" {
		p.ID = newID()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.policies = append(r.s.policies, policyRow{seq: r.s.next(), p: p})
	return p, nil
}

// GetByID implements policy.PolicyRepository.
func (r policyRepository) GetByID(ctx context.Context, id string, companyID string) (policy.Policy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if p, ok := r.s.policyByID(id); ok && p.CompanyID == companyID {
		return p, nil
	}
	return policy.Policy{}, policy.ErrPolicyNotFound
}

// List implements policy.PolicyRepository.
func (r policyRepository) List(ctx context.Context, filter policy.ListPolicyFilter) ([]policy.Policy, error) {
	return r.newestFirst(func(p policy.Policy) bool {
		if p.CompanyID != filter.CompanyID {
			return false
		}
		if filter.TypeCode != nil && p.TypeCode != *filter.TypeCode {
			return false
		}
		return !filter.ActiveOnly || p.IsActive
	}), nil
}

// ListEffective implements policy.PolicyRepository.
func (r policyRepository) ListEffective(ctx context.Context, companyID string, date time.Time) ([]policy.Policy, error) {
	return r.newestFirst(func(p policy.Policy) bool {
		return p.CompanyID == companyID && p.IsActive && p.IsEffectiveOn(date)
	}), nil
}

// LatestUnassigned implements policy.PolicyRepository.
func (r policyRepository) LatestUnassigned(ctx context.Context, companyID string, typeCode policy.TypeCode, date time.Time) (*policy.Policy, error) {
	r.s.mu.RLock()
	assigned := make(map[string]bool)
	for _, row := range r.s.assignments {
		if row.a.IsActive {
			assigned[row.a.PolicyID] = true
		}
	}
	r.s.mu.RUnlock()

	found := r.newestFirst(func(p policy.Policy) bool {
		return p.CompanyID == companyID && p.IsActive && p.TypeCode == typeCode && p.IsEffectiveOn(date) && !assigned[p.ID]
	})
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r policyRepository) newestFirst(match func(policy.Policy) bool) []policy.Policy {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows := make([]policyRow, 0)
	for _, row := range r.s.policies {
		if match(row.p) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].p.CreatedAt.Equal(rows[j].p.CreatedAt) {
			return rows[i].p.CreatedAt.After(rows[j].p.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})

	out := make([]policy.Policy, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.p)
	}
	return out
}

// policyByID must be called with mu held.
func (s *Store) policyByID(id string) (policy.Policy, bool) {
	for _, row := range s.policies {
		if row.p.ID == id {
			return row.p, true
		}
	}
	return policy.Policy{}, false
}

// SetPolicyActive flips a policy's active flag.
func (s *Store) SetPolicyActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.policies {
		if s.policies[i].p.ID == id {
			s.policies[i].p.IsActive = active
		}
	}
}

// Assign implements policy.AssignmentRepository.
func (r assignmentRepository) Assign(ctx context.Context, a policy.Assignment, typeCode policy.TypeCode) (policy.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, row := range r.s.assignments {
		if !row.a.IsActive || row.a.TargetID != a.TargetID || row.a.Scope != a.Scope {
			continue
		}
		if p, ok := r.s.policyByID(row.a.PolicyID); ok && p.TypeCode == typeCode {
			r.s.assignments[i].a.IsActive = false
		}
	}

	if a.ID == "" {
		a.ID = newID()
	}
	a.IsActive = true
	a.AssignedAt = r.s.clockFunc()
	r.s.assignments = append(r.s.assignments, assignmentRow{seq: r.s.next(), a: a})
	return a, nil
}

// ListByPolicy implements policy.AssignmentRepository.
func (r assignmentRepository) ListByPolicy(ctx context.Context, policyID string) ([]policy.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]policy.Assignment, 0)
	for _, row := range r.s.assignments {
		if row.a.PolicyID == policyID {
			out = append(out, row.a)
		}
	}
	return out, nil
}

// FindEffectivePolicy implements policy.AssignmentRepository.
func (r assignmentRepository) FindEffectivePolicy(ctx context.Context, companyID string, targetID string, scope policy.ScopeType, typeCode policy.TypeCode, date time.Time) (*policy.Policy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var (
		best    *policy.Policy
		bestSeq int64
	)
	for _, row := range r.s.assignments {
		if !row.a.IsActive || row.a.CompanyID != companyID || row.a.TargetID != targetID || row.a.Scope != scope || row.seq < bestSeq {
			continue
		}
		p, ok := r.s.policyByID(row.a.PolicyID)
		if !ok || !p.IsActive || p.CompanyID != companyID || p.TypeCode != typeCode || !p.IsEffectiveOn(date) {
			continue
		}
		best, bestSeq = &p, row.seq
	}
	return best, nil
}
