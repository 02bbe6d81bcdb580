package policy

import (
	"context"
	"time"
)

// PolicyService defines business logic for policy management
type PolicyService interface {
	// Create validates the rule document for the policy type and stores it.
	// Invalid documents are rejected with *RuleViolationError and never written.
	Create(ctx context.Context, req CreatePolicyRequest) (PolicyResponse, error)

	GetByID(ctx context.Context, id string, companyID string) (PolicyResponse, error)

	List(ctx context.Context, filter ListPolicyFilter) ([]PolicyResponse, error)

	Assign(ctx context.Context, req AssignPolicyRequest) (AssignmentResponse, error)

	ListAssignments(ctx context.Context, policyID string, companyID string) ([]AssignmentResponse, error)

	// FindActiveCompanyPolicy returns the company's most recently created
	// policy among those effective on date.
	FindActiveCompanyPolicy(ctx context.Context, companyID string, date time.Time) (Policy, error)
}

// Resolver selects the single effective policy of a type for a member on a
// calendar date. Policies outside their effective range never match.
type Resolver interface {
	Resolve(ctx context.Context, memberID string, companyID string, typeCode TypeCode, date time.Time) (Policy, error)
}
