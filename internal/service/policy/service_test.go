package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/member"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCompanyID = "company-1"

func newPolicyService(store *memory.Store) policy.PolicyService {
	return NewPolicyService(NewRegistry(), store.Policies(), store.Assignments(), store)
}

func createPolicy(t *testing.T, svc policy.PolicyService, code policy.TypeCode, name string, details policy.RuleDetails) policy.PolicyResponse {
	t.Helper()
	res, err := svc.Create(context.Background(), policy.CreatePolicyRequest{
		CompanyID:     testCompanyID,
		TypeCode:      code,
		Name:          name,
		IsPaid:        true,
		EffectiveFrom: "2026-01-01",
		RuleDetails:   details,
	})
	require.NoError(t, err)
	return res
}

func TestPolicyService_Create(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newPolicyService(store)

	res := createPolicy(t, svc, policy.TypeStandardWork, "Office hours", standardWork())
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "STANDARD_WORK", res.TypeName)

	got, err := svc.GetByID(ctx, res.ID, testCompanyID)
	require.NoError(t, err)
	assert.Equal(t, "Office hours", got.Name)

	_, err = svc.GetByID(ctx, res.ID, "company-2")
	assert.ErrorIs(t, err, policy.ErrPolicyNotFound)
}

func TestPolicyService_CreateRejectsIllegalDocument(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newPolicyService(store)

	d := standardWork()
	d.AuthRule = nil
	d.BreakRule.MandatoryBreakMinutes = intPtr(10)

	_, err := svc.Create(ctx, policy.CreatePolicyRequest{
		CompanyID:     testCompanyID,
		TypeCode:      policy.TypeStandardWork,
		Name:          "Too short a break",
		EffectiveFrom: "2026-01-01",
		RuleDetails:   d,
	})
	require.ErrorIs(t, err, policy.ErrInvalidPolicyRule)

	var violation *policy.RuleViolationError
	require.True(t, errors.As(err, &violation))
	assert.Len(t, violation.Violations, 2)

	list, err := svc.List(ctx, policy.ListPolicyFilter{CompanyID: testCompanyID})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPolicyService_CreateValidatesRequest(t *testing.T) {
	svc := newPolicyService(memory.NewStore())

	_, err := svc.Create(context.Background(), policy.CreatePolicyRequest{
		CompanyID:     testCompanyID,
		TypeCode:      "PTC999",
		Name:          "Unknown",
		EffectiveFrom: "01/01/2026",
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, policy.ErrInvalidPolicyRule)
}

func TestPolicyService_AssignAndFindActive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newPolicyService(store)

	work := createPolicy(t, svc, policy.TypeStandardWork, "Office hours", standardWork())

	a, err := svc.Assign(ctx, policy.AssignPolicyRequest{
		PolicyID:  work.ID,
		CompanyID: testCompanyID,
		TargetID:  testCompanyID,
		Scope:     policy.ScopeCompany,
	})
	require.NoError(t, err)
	assert.True(t, a.IsActive)

	assignments, err := svc.ListAssignments(ctx, work.ID, testCompanyID)
	require.NoError(t, err)
	assert.Len(t, assignments, 1)

	p, err := svc.FindActiveCompanyPolicy(ctx, testCompanyID, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, work.ID, p.ID)

	_, err = svc.FindActiveCompanyPolicy(ctx, testCompanyID, time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, policy.ErrNoApplicablePolicy)

	store.SetPolicyActive(work.ID, false)
	_, err = svc.Assign(ctx, policy.AssignPolicyRequest{
		PolicyID:  work.ID,
		CompanyID: testCompanyID,
		TargetID:  "member-1",
		Scope:     policy.ScopeMember,
	})
	assert.ErrorIs(t, err, policy.ErrPolicyInactive)
}

func TestResolver_ScopePriority(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newPolicyService(store)
	resolver := NewResolver(store.Assignments(), store.Policies(), store.Directory())

	root := store.AddOrganization(member.Organization{ID: "org-root", CompanyID: testCompanyID, Name: "Headquarters"})
	parent := store.AddOrganization(member.Organization{ID: "org-parent", CompanyID: testCompanyID, ParentID: &root.ID, Name: "Engineering"})
	team := store.AddOrganization(member.Organization{ID: "org-team", CompanyID: testCompanyID, ParentID: &parent.ID, Name: "Platform"})
	store.AddMember(member.Member{ID: "member-1", CompanyID: testCompanyID, OrganizationID: &team.ID, Status: member.StatusActive})

	assign := func(policyID, targetID string, scope policy.ScopeType) {
		_, err := svc.Assign(ctx, policy.AssignPolicyRequest{PolicyID: policyID, CompanyID: testCompanyID, TargetID: targetID, Scope: scope})
		require.NoError(t, err)
	}

	onDate := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	fallback := createPolicy(t, svc, policy.TypeStandardWork, "Unassigned", standardWork())
	p, err := resolver.Resolve(ctx, "member-1", testCompanyID, policy.TypeStandardWork, onDate)
	require.NoError(t, err)
	assert.Equal(t, fallback.ID, p.ID)

	company := createPolicy(t, svc, policy.TypeStandardWork, "Company", standardWork())
	assign(company.ID, testCompanyID, policy.ScopeCompany)

	parentPolicy := createPolicy(t, svc, policy.TypeStandardWork, "Engineering", standardWork())
	assign(parentPolicy.ID, parent.ID, policy.ScopeOrganization)

	p, err = resolver.Resolve(ctx, "member-1", testCompanyID, policy.TypeStandardWork, onDate)
	require.NoError(t, err)
	assert.Equal(t, parentPolicy.ID, p.ID)

	own := createPolicy(t, svc, policy.TypeStandardWork, "Personal", standardWork())
	assign(own.ID, "member-1", policy.ScopeMember)

	p, err = resolver.Resolve(ctx, "member-1", testCompanyID, policy.TypeStandardWork, onDate)
	require.NoError(t, err)
	assert.Equal(t, own.ID, p.ID)

	p, err = resolver.Resolve(ctx, "member-2", testCompanyID, policy.TypeStandardWork, onDate)
	require.NoError(t, err)
	assert.Equal(t, company.ID, p.ID)

	_, err = resolver.Resolve(ctx, "member-1", testCompanyID, policy.TypeAnnualLeave, onDate)
	assert.ErrorIs(t, err, policy.ErrNoApplicablePolicy)
}

func TestResolver_EffectiveDates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	resolver := NewResolver(store.Assignments(), store.Policies(), store.Directory())
	store.AddMember(member.Member{ID: "member-1", CompanyID: testCompanyID, Status: member.StatusActive})

	onDate := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	create := func(companyID, name string, from time.Time, to *time.Time) policy.Policy {
		p, err := store.Policies().Create(ctx, policy.Policy{
			CompanyID:     companyID,
			TypeCode:      policy.TypeStandardWork,
			Name:          name,
			IsPaid:        true,
			EffectiveFrom: from,
			EffectiveTo:   to,
			RuleDetails:   standardWork(),
			IsActive:      true,
		})
		require.NoError(t, err)
		return p
	}
	assign := func(p policy.Policy, targetID string, scope policy.ScopeType) {
		_, err := store.Assignments().Assign(ctx, policy.Assignment{PolicyID: p.ID, CompanyID: p.CompanyID, TargetID: targetID, Scope: scope}, p.TypeCode)
		require.NoError(t, err)
	}

	current := create(testCompanyID, "Current", day(2026, time.January, 1), nil)
	assign(current, testCompanyID, policy.ScopeCompany)

	t.Run("expired member assignment is ignored", func(t *testing.T) {
		expiredTo := day(2024, time.December, 31)
		expired := create(testCompanyID, "Expired", day(2024, time.January, 1), &expiredTo)
		assign(expired, "member-1", policy.ScopeMember)

		p, err := resolver.Resolve(ctx, "member-1", testCompanyID, policy.TypeStandardWork, onDate)
		require.NoError(t, err)
		assert.Equal(t, current.ID, p.ID)

		p, err = resolver.Resolve(ctx, "member-1", testCompanyID, policy.TypeStandardWork, day(2024, time.June, 3))
		require.NoError(t, err)
		assert.Equal(t, expired.ID, p.ID)
	})

	t.Run("future organization assignment is ignored", func(t *testing.T) {
		org := store.AddOrganization(member.Organization{ID: "org-future", CompanyID: testCompanyID, Name: "Future"})
		store.AddMember(member.Member{ID: "member-2", CompanyID: testCompanyID, OrganizationID: &org.ID, Status: member.StatusActive})

		future := create(testCompanyID, "Future", day(2099, time.January, 1), nil)
		assign(future, org.ID, policy.ScopeOrganization)

		p, err := resolver.Resolve(ctx, "member-2", testCompanyID, policy.TypeStandardWork, onDate)
		require.NoError(t, err)
		assert.Equal(t, current.ID, p.ID)
	})

	t.Run("assignment from another company is ignored", func(t *testing.T) {
		foreign := create("company-2", "Foreign", day(2020, time.January, 1), nil)
		assign(foreign, "member-1", policy.ScopeMember)

		p, err := resolver.Resolve(ctx, "member-1", testCompanyID, policy.TypeStandardWork, onDate)
		require.NoError(t, err)
		assert.Equal(t, current.ID, p.ID)

		p, err = resolver.Resolve(ctx, "member-1", "company-2", policy.TypeStandardWork, onDate)
		require.NoError(t, err)
		assert.Equal(t, foreign.ID, p.ID)
	})

	t.Run("nothing effective yet", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, "member-1", testCompanyID, policy.TypeStandardWork, day(2025, time.December, 31))
		assert.ErrorIs(t, err, policy.ErrNoApplicablePolicy)
	})
}
