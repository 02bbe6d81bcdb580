package leave

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/member"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/memory"
	policysvc "github.com/cmlabs-hris/hris-attendance-engine/internal/service/policy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	companyID = "6f1c2a34-0d55-4e8b-9a61-000000000001"
	veteranID = "6f1c2a34-0d55-4e8b-9a61-000000000101"
	juniorID  = "6f1c2a34-0d55-4e8b-9a61-000000000102"
	brokenID  = "6f1c2a34-0d55-4e8b-9a61-000000000103"
)

type accrualFixture struct {
	store *memory.Store
	svc   leave.AccrualService
}

func newAccrualFixture(t *testing.T, balances leave.BalanceRepository) *accrualFixture {
	t.Helper()
	store := memory.NewStore()

	store.AddMember(member.Member{ID: veteranID, CompanyID: companyID, Name: "Veteran", JoinDate: date(2021, time.January, 1), Status: member.StatusActive})
	store.AddMember(member.Member{ID: juniorID, CompanyID: companyID, Name: "Junior", JoinDate: date(2025, time.June, 15), Status: member.StatusActive})
	store.AddMember(member.Member{ID: "resigned", CompanyID: companyID, Name: "Resigned", JoinDate: date(2015, time.May, 1), Status: member.StatusResigned})

	if balances == nil {
		balances = store.Balances()
	}
	resolver := policysvc.NewResolver(store.Assignments(), store.Policies(), store.Directory())
	svc := NewAccrualService(balances, store.Attendances(), store.Directory(), resolver, store, time.UTC)
	return &accrualFixture{store: store, svc: svc}
}

func (f *accrualFixture) balance(t *testing.T, memberID string, year int) leave.MemberBalance {
	t.Helper()
	b, err := f.store.Balances().Get(context.Background(), memberID, policy.TypeAnnualLeave, year)
	require.NoError(t, err)
	return b
}

func TestAccrualService_GrantInitial(t *testing.T) {
	ctx := context.Background()
	f := newAccrualFixture(t, nil)

	res, err := f.svc.GrantInitial(ctx, leave.GrantInitialRequest{MemberID: veteranID, CompanyID: companyID, ReferenceDate: "2026-03-02"})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(17).Equal(res.TotalGranted))
	assert.Equal(t, "2026-12-31", res.ExpirationDate)
	assert.Equal(t, 2026, res.Year)

	again, err := f.svc.GrantInitial(ctx, leave.GrantInitialRequest{MemberID: veteranID, CompanyID: companyID, ReferenceDate: "2026-03-02"})
	require.NoError(t, err)
	assert.Equal(t, res.ID, again.ID)
	assert.True(t, decimal.NewFromInt(17).Equal(again.TotalGranted))

	res, err = f.svc.GrantInitial(ctx, leave.GrantInitialRequest{MemberID: juniorID, CompanyID: companyID, ReferenceDate: "2026-02-20"})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(8).Equal(res.TotalGranted))
}

func TestAccrualService_GrantInitialRejects(t *testing.T) {
	ctx := context.Background()
	f := newAccrualFixture(t, nil)

	_, err := f.svc.GrantInitial(ctx, leave.GrantInitialRequest{MemberID: "not-a-uuid"})
	assert.Error(t, err)

	_, err = f.svc.GrantInitial(ctx, leave.GrantInitialRequest{MemberID: brokenID, CompanyID: companyID})
	assert.ErrorIs(t, err, member.ErrMemberNotFound)

	_, err = f.svc.GrantInitial(ctx, leave.GrantInitialRequest{MemberID: veteranID, CompanyID: "6f1c2a34-0d55-4e8b-9a61-000000000002"})
	assert.ErrorIs(t, err, member.ErrMemberNotFound)

	f.store.AddMember(member.Member{ID: brokenID, CompanyID: companyID, JoinDate: date(2020, time.May, 1), Status: member.StatusSuspended})
	_, err = f.svc.GrantInitial(ctx, leave.GrantInitialRequest{MemberID: brokenID, CompanyID: companyID})
	assert.ErrorIs(t, err, leave.ErrMemberNotEligible)
}

func TestAccrualService_AccrueYearlyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newAccrualFixture(t, nil)
	jan1 := date(2026, time.January, 1)

	result, err := f.svc.AccrueYearly(ctx, companyID, jan1)
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 1, Granted: 1}, result)

	b := f.balance(t, veteranID, 2026)
	assert.True(t, decimal.NewFromInt(17).Equal(b.TotalGranted))

	result, err = f.svc.AccrueYearly(ctx, companyID, jan1)
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 1, Skipped: 1}, result)
	assert.True(t, b.TotalGranted.Equal(f.balance(t, veteranID, 2026).TotalGranted))

	_, err = f.store.Balances().Get(ctx, juniorID, policy.TypeAnnualLeave, 2026)
	assert.ErrorIs(t, err, leave.ErrBalanceNotFound)
}

func TestAccrualService_AccrueYearlyUsesPolicyOverride(t *testing.T) {
	ctx := context.Background()
	f := newAccrualFixture(t, nil)

	_, err := f.store.Policies().Create(ctx, policy.Policy{
		CompanyID:     companyID,
		TypeCode:      policy.TypeAnnualLeave,
		Name:          "Annual leave",
		IsPaid:        true,
		EffectiveFrom: date(2020, time.January, 1),
		RuleDetails: policy.RuleDetails{LeaveRule: &policy.LeaveRule{
			BaseAnnualLeaveForOverOneYear: intPtr(15),
			AdditionalAnnualLeaveRules:    []policy.AdditionalLeaveRule{{AfterYears: 3, AdditionalDays: 5}},
		}},
		IsActive: true,
	})
	require.NoError(t, err)

	_, err = f.svc.AccrueYearly(ctx, companyID, date(2026, time.January, 1))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(f.balance(t, veteranID, 2026).TotalGranted))
}

func TestAccrualService_AccrueMonthlyFirstYear(t *testing.T) {
	ctx := context.Background()
	f := newAccrualFixture(t, nil)

	result, err := f.svc.AccrueMonthlyFirstYear(ctx, companyID, date(2026, time.March, 1))
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 1, Granted: 1}, result)
	assert.True(t, decimal.NewFromInt(1).Equal(f.balance(t, juniorID, 2026).TotalGranted))

	result, err = f.svc.AccrueMonthlyFirstYear(ctx, companyID, date(2026, time.March, 1))
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 1, Skipped: 1}, result)
	assert.True(t, decimal.NewFromInt(1).Equal(f.balance(t, juniorID, 2026).TotalGranted))

	b := f.balance(t, juniorID, 2026)
	require.NoError(t, b.Use(decimal.NewFromInt(1)))
	require.NoError(t, f.store.Balances().Update(ctx, b))

	_, err = f.svc.AccrueMonthlyFirstYear(ctx, companyID, date(2026, time.April, 1))
	require.NoError(t, err)

	b = f.balance(t, juniorID, 2026)
	assert.True(t, decimal.NewFromInt(2).Equal(b.TotalGranted))
	assert.True(t, decimal.NewFromInt(1).Equal(b.TotalUsed))
	assert.True(t, b.Remaining.Equal(b.TotalGranted.Sub(b.TotalUsed)))
}

func TestAccrualService_AccrueMonthlyAddsToInitialGrant(t *testing.T) {
	ctx := context.Background()
	f := newAccrualFixture(t, nil)

	res, err := f.svc.GrantInitial(ctx, leave.GrantInitialRequest{MemberID: juniorID, CompanyID: companyID, ReferenceDate: "2026-02-20"})
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(8).Equal(res.TotalGranted))

	for i, want := range []int64{9, 10, 11} {
		ref := date(2026, time.March+time.Month(i), 1)
		result, err := f.svc.AccrueMonthlyFirstYear(ctx, companyID, ref)
		require.NoError(t, err)
		assert.Equal(t, leave.AccrualResult{Processed: 1, Granted: 1}, result, ref.Format("2006-01"))
		assert.True(t, decimal.NewFromInt(want).Equal(f.balance(t, juniorID, 2026).TotalGranted), ref.Format("2006-01"))
	}

	t.Run("same month again changes nothing", func(t *testing.T) {
		result, err := f.svc.AccrueMonthlyFirstYear(ctx, companyID, date(2026, time.May, 1))
		require.NoError(t, err)
		assert.Equal(t, leave.AccrualResult{Processed: 1, Skipped: 1}, result)
		assert.True(t, decimal.NewFromInt(11).Equal(f.balance(t, juniorID, 2026).TotalGranted))
	})

	t.Run("cap stops further accrual", func(t *testing.T) {
		result, err := f.svc.AccrueMonthlyFirstYear(ctx, companyID, date(2026, time.June, 1))
		require.NoError(t, err)
		assert.Equal(t, leave.AccrualResult{Processed: 1, Skipped: 1}, result)
		assert.True(t, decimal.NewFromInt(11).Equal(f.balance(t, juniorID, 2026).TotalGranted))
	})
}

func TestAccrualService_AccrueMonthlySkipsMonthOfInitialGrant(t *testing.T) {
	ctx := context.Background()
	f := newAccrualFixture(t, nil)

	_, err := f.svc.GrantInitial(ctx, leave.GrantInitialRequest{MemberID: juniorID, CompanyID: companyID, ReferenceDate: "2026-03-01"})
	require.NoError(t, err)

	result, err := f.svc.AccrueMonthlyFirstYear(ctx, companyID, date(2026, time.March, 1))
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 1, Skipped: 1}, result)
	assert.True(t, decimal.NewFromInt(8).Equal(f.balance(t, juniorID, 2026).TotalGranted))
}

func createJoinDatePolicy(t *testing.T, f *accrualFixture) {
	t.Helper()
	_, err := f.store.Policies().Create(context.Background(), policy.Policy{
		CompanyID:     companyID,
		TypeCode:      policy.TypeAnnualLeave,
		Name:          "Annual leave by join date",
		IsPaid:        true,
		EffectiveFrom: date(2020, time.January, 1),
		RuleDetails:   policy.RuleDetails{LeaveRule: &policy.LeaveRule{StandardType: policy.StandardJoinDate}},
		IsActive:      true,
	})
	require.NoError(t, err)
}

func TestAccrualService_AccrueAnniversary(t *testing.T) {
	ctx := context.Background()
	f := newAccrualFixture(t, nil)
	createJoinDatePolicy(t, f)

	jan1 := date(2026, time.January, 1)

	result, err := f.svc.AccrueYearly(ctx, companyID, jan1)
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 1, Skipped: 1}, result, "join date members wait for their anniversary")
	_, err = f.store.Balances().Get(ctx, veteranID, policy.TypeAnnualLeave, 2026)
	assert.ErrorIs(t, err, leave.ErrBalanceNotFound)

	result, err = f.svc.AccrueAnniversary(ctx, companyID, jan1)
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 1, Granted: 1}, result)
	assert.True(t, decimal.NewFromInt(17).Equal(f.balance(t, veteranID, 2026).TotalGranted))

	result, err = f.svc.AccrueAnniversary(ctx, companyID, jan1)
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 1, Skipped: 1}, result)
	assert.True(t, decimal.NewFromInt(17).Equal(f.balance(t, veteranID, 2026).TotalGranted))

	result, err = f.svc.AccrueAnniversary(ctx, companyID, date(2026, time.January, 2))
	require.NoError(t, err)
	assert.Zero(t, result.Processed)
}

func TestAccrualService_AccrueAnniversaryTopsUpFirstYearBalance(t *testing.T) {
	ctx := context.Background()
	f := newAccrualFixture(t, nil)
	createJoinDatePolicy(t, f)

	_, err := f.svc.GrantInitial(ctx, leave.GrantInitialRequest{MemberID: juniorID, CompanyID: companyID, ReferenceDate: "2026-02-20"})
	require.NoError(t, err)

	anniversary := date(2026, time.June, 15)
	result, err := f.svc.AccrueAnniversary(ctx, companyID, anniversary)
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 1, Granted: 1}, result)
	assert.True(t, decimal.NewFromInt(23).Equal(f.balance(t, juniorID, 2026).TotalGranted))

	result, err = f.svc.AccrueAnniversary(ctx, companyID, anniversary)
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 1, Skipped: 1}, result)
	assert.True(t, decimal.NewFromInt(23).Equal(f.balance(t, juniorID, 2026).TotalGranted))
}

func TestAccrualService_AccrueAnniversarySkipsFiscalYearPolicy(t *testing.T) {
	ctx := context.Background()
	f := newAccrualFixture(t, nil)

	result, err := f.svc.AccrueAnniversary(ctx, companyID, date(2026, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 1, Skipped: 1}, result)

	_, err = f.store.Balances().Get(ctx, veteranID, policy.TypeAnnualLeave, 2026)
	assert.ErrorIs(t, err, leave.ErrBalanceNotFound)
}

func TestAccrualService_AccrueMonthlyChecksAttendanceRate(t *testing.T) {
	ctx := context.Background()
	f := newAccrualFixture(t, nil)

	minimum := 80.0
	_, err := f.store.Policies().Create(ctx, policy.Policy{
		CompanyID:     companyID,
		TypeCode:      policy.TypeAnnualLeave,
		Name:          "Annual leave",
		IsPaid:        true,
		EffectiveFrom: date(2020, time.January, 1),
		RuleDetails:   policy.RuleDetails{LeaveRule: &policy.LeaveRule{MinimumAttendanceRateForAccrual: &minimum}},
		IsActive:      true,
	})
	require.NoError(t, err)

	march := date(2026, time.March, 1)
	result, err := f.svc.AccrueMonthlyFirstYear(ctx, companyID, march)
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 1, Skipped: 1}, result)

	// February 2026 has 20 weekdays; 16 present days is exactly 80%.
	rows := make([]attendance.DailyAttendance, 0)
	for d := date(2026, time.February, 1); d.Month() == time.February; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		status := attendance.StatusNormalWork
		if len(rows) >= 16 {
			status = attendance.StatusAbsent
		}
		rows = append(rows, attendance.DailyAttendance{MemberID: juniorID, CompanyID: companyID, Date: d, Status: status})
	}
	inserted, err := f.store.Attendances().BulkCreate(ctx, rows)
	require.NoError(t, err)
	require.Equal(t, 20, inserted)

	result, err = f.svc.AccrueMonthlyFirstYear(ctx, companyID, march)
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 1, Granted: 1}, result)
}

type failingBalances struct {
	leave.BalanceRepository
	failFor string
}

func (r failingBalances) CreateIfAbsent(ctx context.Context, b leave.MemberBalance) (bool, error) {
	if b.MemberID == r.failFor {
		return false, errors.New("connection reset")
	}
	return r.BalanceRepository.CreateIfAbsent(ctx, b)
}

func TestAccrualService_CountsFailuresAndContinues(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	f := newAccrualFixture(t, failingBalances{BalanceRepository: store.Balances(), failFor: brokenID})
	f.store.AddMember(member.Member{ID: brokenID, CompanyID: companyID, JoinDate: date(2019, time.January, 1), Status: member.StatusActive})

	// Balances live in a separate store behind the failing wrapper.
	result, err := f.svc.AccrueYearly(ctx, companyID, date(2026, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, leave.AccrualResult{Processed: 2, Granted: 1, Failed: 1}, result)

	b, err := store.Balances().Get(ctx, veteranID, policy.TypeAnnualLeave, 2026)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(17).Equal(b.TotalGranted))
}
