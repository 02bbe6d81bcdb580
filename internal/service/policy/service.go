package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
)

type policyServiceImpl struct {
	registry       *Registry
	policyRepo     policy.PolicyRepository
	assignmentRepo policy.AssignmentRepository
	tx             database.Transactor
}

// Create implements policy.PolicyService.
func (s *policyServiceImpl) Create(ctx context.Context, req policy.CreatePolicyRequest) (policy.PolicyResponse, error) {
	if err := req.Validate(); err != nil {
		return policy.PolicyResponse{}, err
	}

	if err := s.ValidateRules(req.TypeCode, req.RuleDetails); err != nil {
		return policy.PolicyResponse{}, err
	}

	from, _ := time.Parse("2006-01-02", req.EffectiveFrom)
	p := policy.Policy{
		CompanyID:     req.CompanyID,
		TypeCode:      req.TypeCode,
		Name:          req.Name,
		IsPaid:        req.IsPaid,
		EffectiveFrom: from,
		RuleDetails:   req.RuleDetails,
		IsActive:      true,
	}
	if req.EffectiveTo != nil {
		to, _ := time.Parse("2006-01-02", *req.EffectiveTo)
		p.EffectiveTo = &to
	}

	created, err := s.policyRepo.Create(ctx, p)
	if err != nil {
		return policy.PolicyResponse{}, fmt.Errorf("failed to create policy: %w", err)
	}

	return policy.NewPolicyResponse(created), nil
}

// ValidateRules runs the registry validator for code followed by the
// general checks. All violations are reported together.
func (s *policyServiceImpl) ValidateRules(code policy.TypeCode, details policy.RuleDetails) error {
	var all []string
	all = append(all, s.registry.Lookup(code).Validate(details)...)
	all = append(all, generalChecks(code, details)...)
	if len(all) > 0 {
		return &policy.RuleViolationError{TypeCode: code, Violations: all}
	}
	return nil
}

// GetByID implements policy.PolicyService.
func (s *policyServiceImpl) GetByID(ctx context.Context, id string, companyID string) (policy.PolicyResponse, error) {
	p, err := s.policyRepo.GetByID(ctx, id, companyID)
	if err != nil {
		return policy.PolicyResponse{}, err
	}
	return policy.NewPolicyResponse(p), nil
}

// List implements policy.PolicyService.
func (s *policyServiceImpl) List(ctx context.Context, filter policy.ListPolicyFilter) ([]policy.PolicyResponse, error) {
	policies, err := s.policyRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}

	resp := make([]policy.PolicyResponse, 0, len(policies))
	for _, p := range policies {
		resp = append(resp, policy.NewPolicyResponse(p))
	}
	return resp, nil
}

// Assign implements policy.PolicyService.
func (s *policyServiceImpl) Assign(ctx context.Context, req policy.AssignPolicyRequest) (policy.AssignmentResponse, error) {
	if err := req.Validate(); err != nil {
		return policy.AssignmentResponse{}, err
	}

	var created policy.Assignment
	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		p, err := s.policyRepo.GetByID(txCtx, req.PolicyID, req.CompanyID)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return policy.ErrPolicyInactive
		}

		created, err = s.assignmentRepo.Assign(txCtx, policy.Assignment{
			PolicyID:  p.ID,
			CompanyID: req.CompanyID,
			TargetID:  req.TargetID,
			Scope:     req.Scope,
			IsActive:  true,
		}, p.TypeCode)
		if err != nil {
			return fmt.Errorf("failed to assign policy: %w", err)
		}
		return nil
	})
	if err != nil {
		return policy.AssignmentResponse{}, err
	}

	return policy.NewAssignmentResponse(created), nil
}

// ListAssignments implements policy.PolicyService.
func (s *policyServiceImpl) ListAssignments(ctx context.Context, policyID string, companyID string) ([]policy.AssignmentResponse, error) {
	if _, err := s.policyRepo.GetByID(ctx, policyID, companyID); err != nil {
		return nil, err
	}

	assignments, err := s.assignmentRepo.ListByPolicy(ctx, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	resp := make([]policy.AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		resp = append(resp, policy.NewAssignmentResponse(a))
	}
	return resp, nil
}

// FindActiveCompanyPolicy implements policy.PolicyService.
func (s *policyServiceImpl) FindActiveCompanyPolicy(ctx context.Context, companyID string, date time.Time) (policy.Policy, error) {
	policies, err := s.policyRepo.ListEffective(ctx, companyID, date)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("failed to list effective policies: %w", err)
	}
	if len(policies) == 0 {
		return policy.Policy{}, policy.ErrNoApplicablePolicy
	}
	return policies[0], nil
}

func NewPolicyService(registry *Registry, policyRepo policy.PolicyRepository, assignmentRepo policy.AssignmentRepository, tx database.Transactor) policy.PolicyService {
	return &policyServiceImpl{
		registry:       registry,
		policyRepo:     policyRepo,
		assignmentRepo: assignmentRepo,
		tx:             tx,
	}
}
