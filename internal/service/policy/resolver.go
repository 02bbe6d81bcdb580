package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/member"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"golang.org/x/sync/singleflight"
)

type resolverImpl struct {
	assignmentRepo policy.AssignmentRepository
	policyRepo     policy.PolicyRepository
	directory      member.Directory
	sf             *singleflight.Group
}

func NewResolver(assignmentRepo policy.AssignmentRepository, policyRepo policy.PolicyRepository, directory member.Directory) policy.Resolver {
	return &resolverImpl{
		assignmentRepo: assignmentRepo,
		policyRepo:     policyRepo,
		directory:      directory,
		sf:             &singleflight.Group{},
	}
}

// Resolve implements policy.Resolver. Candidates are tried in order: the
// member's own assignment, its organization chain nearest first, the
// company-wide assignment and finally the newest unassigned policy. Only
// policies of companyID that are effective on date are candidates.
func (r *resolverImpl) Resolve(ctx context.Context, memberID string, companyID string, typeCode policy.TypeCode, date time.Time) (policy.Policy, error) {
	key := fmt.Sprintf("resolve:%s:%s:%s:%s", companyID, memberID, typeCode, date.Format("2006-01-02"))
	v, err, _ := r.sf.Do(key, func() (any, error) {
		return r.resolve(ctx, memberID, companyID, typeCode, date)
	})
	if err != nil {
		return policy.Policy{}, err
	}
	return v.(policy.Policy), nil
}

func (r *resolverImpl) resolve(ctx context.Context, memberID string, companyID string, typeCode policy.TypeCode, date time.Time) (policy.Policy, error) {
	if p, err := r.assignmentRepo.FindEffectivePolicy(ctx, companyID, memberID, policy.ScopeMember, typeCode, date); err != nil {
		return policy.Policy{}, fmt.Errorf("failed to find member assignment: %w", err)
	} else if usable(p, companyID, typeCode, date) {
		return *p, nil
	}

	m, err := r.directory.GetMember(ctx, memberID)
	if err != nil && !errors.Is(err, member.ErrMemberNotFound) {
		return policy.Policy{}, fmt.Errorf("failed to get member: %w", err)
	}
	if err == nil && m.CompanyID == companyID && m.OrganizationID != nil {
		path, err := r.directory.OrganizationPath(ctx, *m.OrganizationID)
		if err != nil && !errors.Is(err, member.ErrOrganizationNotFound) {
			return policy.Policy{}, fmt.Errorf("failed to get organization path: %w", err)
		}
		for _, orgID := range path {
			p, err := r.assignmentRepo.FindEffectivePolicy(ctx, companyID, orgID, policy.ScopeOrganization, typeCode, date)
			if err != nil {
				return policy.Policy{}, fmt.Errorf("failed to find organization assignment: %w", err)
			}
			if usable(p, companyID, typeCode, date) {
				return *p, nil
			}
		}
	}

	if p, err := r.assignmentRepo.FindEffectivePolicy(ctx, companyID, companyID, policy.ScopeCompany, typeCode, date); err != nil {
		return policy.Policy{}, fmt.Errorf("failed to find company assignment: %w", err)
	} else if usable(p, companyID, typeCode, date) {
		return *p, nil
	}

	p, err := r.policyRepo.LatestUnassigned(ctx, companyID, typeCode, date)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("failed to find default policy: %w", err)
	}
	if usable(p, companyID, typeCode, date) {
		return *p, nil
	}

	return policy.Policy{}, policy.ErrNoApplicablePolicy
}

func usable(p *policy.Policy, companyID string, typeCode policy.TypeCode, date time.Time) bool {
	return p != nil && p.IsActive && p.CompanyID == companyID && p.TypeCode == typeCode && p.IsEffectiveOn(date)
}
