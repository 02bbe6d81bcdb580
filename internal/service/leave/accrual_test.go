package leave

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(i int) *int { return &i }

func TestAccrualCalculator_TenureMonths(t *testing.T) {
	c := NewAccrualCalculator()
	ref := date(2026, time.March, 2)

	assert.Equal(t, 8, c.TenureMonths(date(2025, time.July, 2), ref))
	assert.Equal(t, 7, c.TenureMonths(date(2025, time.July, 15), ref))
	assert.Equal(t, 0, c.TenureMonths(date(2026, time.April, 1), ref))
	assert.Equal(t, 36, c.TenureMonths(date(2023, time.March, 2), ref))
	assert.Equal(t, 2, c.TenureYears(date(2023, time.March, 3), ref))
}

func TestAccrualCalculator_Grant(t *testing.T) {
	c := NewAccrualCalculator()
	ref := date(2026, time.March, 2)

	tests := []struct {
		name string
		join time.Time
		want int
	}{
		{name: "eight months", join: ref.AddDate(0, -8, 0), want: 8},
		{name: "eleven months", join: ref.AddDate(0, -11, 0), want: 11},
		{name: "one year", join: ref.AddDate(-1, 0, 0), want: 15},
		{name: "three years", join: ref.AddDate(-3, 0, 0), want: 16},
		{name: "five years", join: ref.AddDate(-5, 0, 0), want: 17},
		{name: "seven years", join: ref.AddDate(-7, 0, 0), want: 18},
		{name: "capped at 25", join: ref.AddDate(-30, 0, 0), want: 25},
		{name: "joined today", join: ref, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Grant(tt.join, ref, nil))
		})
	}
}

func TestAccrualCalculator_FirstYearGrant(t *testing.T) {
	c := NewAccrualCalculator()

	assert.Equal(t, 11, c.FirstYearGrant(14, nil))
	assert.Equal(t, 4, c.FirstYearGrant(4, nil))

	rule := &policy.LeaveRule{FirstYearMaxAccrual: intPtr(6), MonthlyAccrualDays: intPtr(2)}
	assert.Equal(t, 4, c.FirstYearGrant(2, rule))
	assert.Equal(t, 6, c.FirstYearGrant(5, rule))
}

func TestAccrualCalculator_YearlyGrantOverrides(t *testing.T) {
	c := NewAccrualCalculator()
	rule := &policy.LeaveRule{
		BaseAnnualLeaveForOverOneYear: intPtr(15),
		AdditionalAnnualLeaveRules: []policy.AdditionalLeaveRule{
			{AfterYears: 3, AdditionalDays: 1},
			{AfterYears: 5, AdditionalDays: 2},
		},
		MaximumAnnualLeaveLimit: intPtr(20),
	}

	assert.Equal(t, 15, c.YearlyGrant(2, rule))
	assert.Equal(t, 16, c.YearlyGrant(3, rule))
	assert.Equal(t, 18, c.YearlyGrant(5, rule))

	rule.MaximumAnnualLeaveLimit = intPtr(17)
	assert.Equal(t, 17, c.YearlyGrant(10, rule))

	assert.Equal(t, 17, c.YearlyGrant(40, &policy.LeaveRule{MaximumAnnualLeaveLimit: intPtr(17)}))
	assert.Equal(t, 0, c.YearlyGrant(0, nil))
}

func TestAccrualCalculator_MonthlyAccrued(t *testing.T) {
	c := NewAccrualCalculator()

	assert.True(t, decimal.NewFromInt(9).Equal(c.MonthlyAccrued(decimal.NewFromInt(8), nil)))
	assert.True(t, decimal.NewFromInt(1).Equal(c.MonthlyAccrued(decimal.Zero, nil)))
	assert.True(t, decimal.NewFromInt(11).Equal(c.MonthlyAccrued(decimal.NewFromInt(11), nil)))
	assert.True(t, decimal.NewFromInt(13).Equal(c.MonthlyAccrued(decimal.NewFromInt(13), nil)), "totals above the cap are left alone")
	assert.True(t, decimal.NewFromFloat(11).Equal(c.MonthlyAccrued(decimal.NewFromFloat(10.5), nil)))

	rule := &policy.LeaveRule{FirstYearMaxAccrual: intPtr(5), MonthlyAccrualDays: intPtr(2)}
	assert.True(t, decimal.NewFromInt(5).Equal(c.MonthlyAccrued(decimal.NewFromInt(4), rule)))
	assert.True(t, decimal.NewFromInt(4).Equal(c.MonthlyAccrued(decimal.NewFromInt(2), rule)))
}
