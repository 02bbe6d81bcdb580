package leave

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/memory"
	policysvc "github.com/cmlabs-hris/hris-attendance-engine/internal/service/policy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeductionDays(t *testing.T) {
	tests := []struct {
		name  string
		unit  leave.RequestUnit
		start time.Time
		end   time.Time
		want  string
	}{
		{name: "day range is inclusive", unit: leave.UnitDay, start: date(2025, time.March, 1), end: date(2025, time.March, 3), want: "3"},
		{name: "single day", unit: leave.UnitDay, start: date(2025, time.March, 1), end: date(2025, time.March, 1).Add(18 * time.Hour), want: "1"},
		{name: "morning half day", unit: leave.UnitHalfDayAM, start: date(2025, time.March, 4), end: date(2025, time.March, 9), want: "0.5"},
		{name: "afternoon half day", unit: leave.UnitHalfDayPM, start: date(2025, time.March, 4), end: date(2025, time.March, 4), want: "0.5"},
		{name: "time off", unit: leave.UnitTimeOff, start: date(2025, time.March, 4).Add(14 * time.Hour), end: date(2025, time.March, 4).Add(16 * time.Hour), want: "0.29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, err := DeductionDays(tt.unit, tt.start, tt.end, 480, 60)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(days), days.String())
		})
	}
}

func TestDeductionDaysRejects(t *testing.T) {
	start := date(2025, time.March, 3)

	_, err := DeductionDays(leave.UnitDay, start, start.AddDate(0, 0, -1), 480, 0)
	assert.ErrorIs(t, err, leave.ErrInvalidRequestRange)

	_, err = DeductionDays(leave.RequestUnit("RU999"), start, start, 480, 0)
	assert.ErrorIs(t, err, leave.ErrInvalidRequestUnit)
}

func TestWindow(t *testing.T) {
	day := date(2025, time.March, 4)

	from, to := Window(leave.UnitHalfDayAM, day.Add(9*time.Hour), day)
	assert.Equal(t, day, from)
	assert.Equal(t, day.Add(12*time.Hour), to)

	from, to = Window(leave.UnitHalfDayPM, day, day)
	assert.Equal(t, day.Add(13*time.Hour), from)
	assert.Equal(t, time.Date(2025, time.March, 4, 23, 59, 59, 0, time.UTC), to)

	from, to = Window(leave.UnitDay, day.Add(10*time.Hour), day.AddDate(0, 0, 2))
	assert.Equal(t, day, from)
	assert.Equal(t, time.Date(2025, time.March, 6, 23, 59, 59, 0, time.UTC), to)
}

func TestStandardDay(t *testing.T) {
	standard, breakMinutes := standardDay(nil)
	assert.Equal(t, 480, standard)
	assert.Equal(t, 0, breakMinutes)

	p := &policy.Policy{RuleDetails: policy.RuleDetails{
		WorkTimeRule: &policy.WorkTimeRule{Type: policy.WorkTimeFixed, FixedWorkMinutes: intPtr(540)},
		BreakRule:    &policy.BreakRule{Type: policy.BreakFixed, FixedBreakStart: "12:00", FixedBreakEnd: "13:30"},
	}}
	standard, breakMinutes = standardDay(p)
	assert.Equal(t, 540, standard)
	assert.Equal(t, 90, breakMinutes)
}

func TestBalanceService_PreviewDeduction(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	resolver := policysvc.NewResolver(store.Assignments(), store.Policies(), store.Directory())
	svc := NewBalanceService(store.Balances(), store.Requests(), resolver)

	b := leave.NewMemberBalance(veteranID, companyID, policy.TypeAnnualLeave, 2026, decimal.NewFromInt(3), time.UTC)
	_, err := store.Balances().CreateIfAbsent(ctx, b)
	require.NoError(t, err)

	res, err := svc.PreviewDeduction(ctx, leave.DeductionPreviewRequest{
		MemberID:  veteranID,
		CompanyID: companyID,
		TypeCode:  policy.TypeAnnualLeave,
		Unit:      leave.UnitDay,
		StartAt:   date(2026, time.March, 2),
		EndAt:     date(2026, time.March, 5),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4).Equal(res.DeductionDays))
	assert.True(t, decimal.NewFromInt(3).Equal(res.Remaining))
	assert.False(t, res.Sufficient)

	res, err = svc.PreviewDeduction(ctx, leave.DeductionPreviewRequest{
		MemberID:  veteranID,
		CompanyID: companyID,
		TypeCode:  policy.TypeAnnualLeave,
		Unit:      leave.UnitTimeOff,
		StartAt:   date(2026, time.March, 2).Add(9 * time.Hour),
		EndAt:     date(2026, time.March, 2).Add(13 * time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromFloat(0.5).Equal(res.DeductionDays), res.DeductionDays.String())
	assert.True(t, res.Sufficient)

	res, err = svc.PreviewDeduction(ctx, leave.DeductionPreviewRequest{
		MemberID:  juniorID,
		CompanyID: companyID,
		TypeCode:  policy.TypeAnnualLeave,
		Unit:      leave.UnitHalfDayAM,
		StartAt:   date(2026, time.March, 2),
		EndAt:     date(2026, time.March, 2),
	})
	require.NoError(t, err)
	assert.False(t, res.Sufficient)
	assert.True(t, res.Remaining.IsZero())

	_, err = svc.PreviewDeduction(ctx, leave.DeductionPreviewRequest{
		MemberID: veteranID,
		TypeCode: policy.TypeStandardWork,
		Unit:     leave.UnitDay,
		StartAt:  date(2026, time.March, 2),
		EndAt:    date(2026, time.March, 1),
	})
	assert.Error(t, err)
}

func TestBalanceService_ListMyBalances(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewBalanceService(store.Balances(), store.Requests(), nil)

	for _, year := range []int{2025, 2026} {
		_, err := store.Balances().CreateIfAbsent(ctx, leave.NewMemberBalance(veteranID, companyID, policy.TypeAnnualLeave, year, decimal.NewFromInt(15), time.UTC))
		require.NoError(t, err)
	}

	res, err := svc.ListMyBalances(ctx, veteranID, 2026)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 2026, res[0].Year)
	assert.Equal(t, "2026-12-31", res[0].ExpirationDate)
	assert.True(t, res[0].IsUsable)
}

func TestValidateRequestRules(t *testing.T) {
	today := date(2026, time.February, 27)
	none := RequestUsage{PeriodDays: decimal.Zero}

	tests := []struct {
		name  string
		rule  *policy.LeaveRule
		unit  leave.RequestUnit
		start time.Time
		days  float64
		usage RequestUsage
		want  error
	}{
		{name: "no rule", rule: nil, unit: leave.UnitTimeOff, start: today, days: 0.25, usage: none},
		{name: "day minimum rejects half day", rule: &policy.LeaveRule{MinimumRequestUnit: policy.RequestUnitDay}, unit: leave.UnitHalfDayAM, start: today, days: 0.5, usage: none, want: leave.ErrRequestUnitNotAllowed},
		{name: "day minimum accepts day", rule: &policy.LeaveRule{MinimumRequestUnit: policy.RequestUnitDay}, unit: leave.UnitDay, start: today, days: 1, usage: none},
		{name: "half day minimum rejects time off", rule: &policy.LeaveRule{MinimumRequestUnit: policy.RequestUnitHalfDay}, unit: leave.UnitTimeOff, start: today, days: 0.25, usage: none, want: leave.ErrRequestUnitNotAllowed},
		{name: "half day minimum accepts afternoon", rule: &policy.LeaveRule{MinimumRequestUnit: policy.RequestUnitHalfDay}, unit: leave.UnitHalfDayPM, start: today, days: 0.5, usage: none},
		{name: "hour minimum accepts time off", rule: &policy.LeaveRule{MinimumRequestUnit: policy.RequestUnitHour}, unit: leave.UnitTimeOff, start: today, days: 0.25, usage: none},
		{name: "deadline not met", rule: &policy.LeaveRule{RequestDeadlineDays: intPtr(3)}, unit: leave.UnitDay, start: date(2026, time.March, 1), days: 1, usage: none, want: leave.ErrRequestDeadlinePassed},
		{name: "deadline met exactly", rule: &policy.LeaveRule{RequestDeadlineDays: intPtr(3)}, unit: leave.UnitDay, start: date(2026, time.March, 2), days: 1, usage: none},
		{name: "deadline rejects past start", rule: &policy.LeaveRule{RequestDeadlineDays: intPtr(1)}, unit: leave.UnitDay, start: date(2026, time.February, 20), days: 1, usage: none, want: leave.ErrRequestDeadlinePassed},
		{name: "shorter than minimum consecutive days", rule: &policy.LeaveRule{MinConsecutiveDays: intPtr(30)}, unit: leave.UnitDay, start: today, days: 29, usage: none, want: leave.ErrBelowMinimumDays},
		{name: "minimum consecutive days met", rule: &policy.LeaveRule{MinConsecutiveDays: intPtr(30)}, unit: leave.UnitDay, start: today, days: 30, usage: none},
		{name: "split count used up", rule: &policy.LeaveRule{MaxSplitCount: intPtr(2)}, unit: leave.UnitDay, start: today, days: 1, usage: RequestUsage{Splits: 2, PeriodDays: decimal.Zero}, want: leave.ErrSplitCountExceeded},
		{name: "split count left", rule: &policy.LeaveRule{MaxSplitCount: intPtr(2)}, unit: leave.UnitDay, start: today, days: 1, usage: RequestUsage{Splits: 1, PeriodDays: decimal.Zero}},
		{name: "monthly limit exceeded", rule: &policy.LeaveRule{LimitPeriod: policy.LimitPeriodMonthly, MaxDaysPerPeriod: intPtr(1)}, unit: leave.UnitDay, start: today, days: 1, usage: RequestUsage{Splits: 1, PeriodDays: decimal.NewFromInt(1)}, want: leave.ErrPeriodLimitExceeded},
		{name: "yearly limit reached exactly", rule: &policy.LeaveRule{LimitPeriod: policy.LimitPeriodYearly, MaxDaysPerPeriod: intPtr(10)}, unit: leave.UnitHalfDayAM, start: today, days: 0.5, usage: RequestUsage{PeriodDays: decimal.NewFromFloat(9.5)}},
		{name: "yearly limit exceeded", rule: &policy.LeaveRule{LimitPeriod: policy.LimitPeriodYearly, MaxDaysPerPeriod: intPtr(10)}, unit: leave.UnitDay, start: today, days: 1, usage: RequestUsage{PeriodDays: decimal.NewFromFloat(9.5)}, want: leave.ErrPeriodLimitExceeded},
		{name: "limit without period is ignored", rule: &policy.LeaveRule{MaxDaysPerPeriod: intPtr(1)}, unit: leave.UnitDay, start: today, days: 5, usage: RequestUsage{PeriodDays: decimal.NewFromInt(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequestRules(tt.rule, tt.unit, tt.start, decimal.NewFromFloat(tt.days), today, tt.usage)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLimitPeriodRange(t *testing.T) {
	from, to := LimitPeriodRange(policy.LimitPeriodMonthly, date(2026, time.February, 14))
	assert.Equal(t, date(2026, time.February, 1), from)
	assert.Equal(t, date(2026, time.February, 28), to)

	from, to = LimitPeriodRange(policy.LimitPeriodYearly, date(2026, time.February, 14))
	assert.Equal(t, date(2026, time.January, 1), from)
	assert.Equal(t, date(2026, time.December, 31), to)
}

func typeCodePtr(c policy.TypeCode) *policy.TypeCode { return &c }

func TestBalanceService_PreviewDeductionEnforcesLeaveRule(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	resolver := policysvc.NewResolver(store.Assignments(), store.Policies(), store.Directory())
	svc := NewBalanceService(store.Balances(), store.Requests(), resolver)
	svc.(*BalanceServiceImpl).now = func() time.Time { return date(2026, time.February, 20).Add(15 * time.Hour) }

	createRule := func(code policy.TypeCode, rule policy.LeaveRule) {
		_, err := store.Policies().Create(ctx, policy.Policy{
			CompanyID:     companyID,
			TypeCode:      code,
			Name:          string(code),
			EffectiveFrom: date(2026, time.January, 1),
			RuleDetails:   policy.RuleDetails{LeaveRule: &rule},
			IsActive:      true,
		})
		require.NoError(t, err)
	}
	request := func(code policy.TypeCode, start time.Time, days int64, status leave.RequestStatus) {
		store.AddRequest(leave.Request{
			MemberID:       veteranID,
			CompanyID:      companyID,
			PolicyTypeCode: typeCodePtr(code),
			Unit:           leave.UnitDay,
			StartAt:        start,
			EndAt:          start.AddDate(0, 0, int(days)-1),
			DeductionDays:  decimal.NewFromInt(days),
			Status:         status,
		})
	}
	preview := func(code policy.TypeCode, unit leave.RequestUnit, start, end time.Time) error {
		_, err := svc.PreviewDeduction(ctx, leave.DeductionPreviewRequest{
			MemberID:  veteranID,
			CompanyID: companyID,
			TypeCode:  code,
			Unit:      unit,
			StartAt:   start,
			EndAt:     end,
		})
		return err
	}

	createRule(policy.TypeAnnualLeave, policy.LeaveRule{MinimumRequestUnit: policy.RequestUnitDay, RequestDeadlineDays: intPtr(7)})
	createRule(policy.TypeFamilyCareLeave, policy.LeaveRule{LimitPeriod: policy.LimitPeriodYearly, MaxDaysPerPeriod: intPtr(10)})
	createRule(policy.TypeMaternityLeave, policy.LeaveRule{MaxSplitCount: intPtr(1)})

	t.Run("unit finer than the minimum", func(t *testing.T) {
		err := preview(policy.TypeAnnualLeave, leave.UnitHalfDayAM, date(2026, time.March, 2), date(2026, time.March, 2))
		assert.ErrorIs(t, err, leave.ErrRequestUnitNotAllowed)
	})

	t.Run("deadline", func(t *testing.T) {
		err := preview(policy.TypeAnnualLeave, leave.UnitDay, date(2026, time.February, 26), date(2026, time.February, 26))
		assert.ErrorIs(t, err, leave.ErrRequestDeadlinePassed)

		assert.NoError(t, preview(policy.TypeAnnualLeave, leave.UnitDay, date(2026, time.February, 27), date(2026, time.February, 27)))
	})

	t.Run("yearly limit counts open requests only", func(t *testing.T) {
		request(policy.TypeFamilyCareLeave, date(2026, time.January, 12), 7, leave.RequestApproved)
		request(policy.TypeFamilyCareLeave, date(2026, time.February, 9), 1, leave.RequestPending)
		request(policy.TypeFamilyCareLeave, date(2026, time.February, 16), 5, leave.RequestCanceled)
		request(policy.TypeFamilyCareLeave, date(2025, time.December, 1), 5, leave.RequestApproved)

		err := preview(policy.TypeFamilyCareLeave, leave.UnitDay, date(2026, time.March, 2), date(2026, time.March, 4))
		assert.ErrorIs(t, err, leave.ErrPeriodLimitExceeded)

		assert.NoError(t, preview(policy.TypeFamilyCareLeave, leave.UnitDay, date(2026, time.March, 2), date(2026, time.March, 3)))
	})

	t.Run("split count", func(t *testing.T) {
		assert.NoError(t, preview(policy.TypeMaternityLeave, leave.UnitDay, date(2026, time.April, 1), date(2026, time.June, 29)))

		request(policy.TypeMaternityLeave, date(2026, time.March, 2), 30, leave.RequestApproved)
		err := preview(policy.TypeMaternityLeave, leave.UnitDay, date(2026, time.April, 1), date(2026, time.June, 29))
		assert.ErrorIs(t, err, leave.ErrSplitCountExceeded)
	})
}
