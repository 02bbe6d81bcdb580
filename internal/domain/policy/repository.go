package policy

import (
	"context"
	"time"
)

// PolicyRepository defines data access methods for policies.
type PolicyRepository interface {
	Create(ctx context.Context, p Policy) (Policy, error)

	// GetByID returns ErrPolicyNotFound when no row matches id within companyID.
	GetByID(ctx context.Context, id string, companyID string) (Policy, error)

	List(ctx context.Context, filter ListPolicyFilter) ([]Policy, error)

	// ListEffective returns active policies whose effective range covers date,
	// newest first by creation.
	ListEffective(ctx context.Context, companyID string, date time.Time) ([]Policy, error)

	// LatestUnassigned returns the most recently created active policy of the
	// given type, effective on date, that has no active assignment at all, or nil.
	LatestUnassigned(ctx context.Context, companyID string, typeCode TypeCode, date time.Time) (*Policy, error)
}

// AssignmentRepository defines data access methods for policy assignments.
type AssignmentRepository interface {
	// Assign stores a and deactivates earlier active assignments of the same
	// policy type for the same (target, scope).
	Assign(ctx context.Context, a Assignment, typeCode TypeCode) (Assignment, error)

	ListByPolicy(ctx context.Context, policyID string) ([]Assignment, error)

	// FindEffectivePolicy returns the policy of the most recent active
	// assignment for (target, scope) within companyID whose policy is active,
	// of typeCode and effective on date, or nil when there is none.
	FindEffectivePolicy(ctx context.Context, companyID string, targetID string, scope ScopeType, typeCode TypeCode, date time.Time) (*Policy, error)
}
