package leave

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/shopspring/decimal"
)

const (
	statutoryBaseDays     = 15
	statutoryMaxDays      = 25
	firstYearMaxDays      = 11
	defaultMonthlyAccrual = 1
)

// AccrualCalculator holds the tenure-based annual leave formulas.
type AccrualCalculator struct {
}

func NewAccrualCalculator() *AccrualCalculator {
	return &AccrualCalculator{}
}

// TenureMonths returns the whole months between joinDate and ref. A month
// counts once ref reaches the join day of month.
func (c *AccrualCalculator) TenureMonths(joinDate, ref time.Time) int {
	if ref.Before(joinDate) {
		return 0
	}

	months := (ref.Year()-joinDate.Year())*12 + int(ref.Month()) - int(joinDate.Month())
	if ref.Day() < joinDate.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func (c *AccrualCalculator) TenureYears(joinDate, ref time.Time) int {
	return c.TenureMonths(joinDate, ref) / 12
}

// FirstYearGrant is the grant for a member with less than one year of
// tenure: one day per whole month, capped.
func (c *AccrualCalculator) FirstYearGrant(months int, rule *policy.LeaveRule) int {
	return min(months*c.MonthlyDays(rule), c.FirstYearMax(rule))
}

// YearlyGrant is the Jan 1 grant for years of service >= 1.
//
// Without a policy override it is 15 + floor((years-1)/2). A policy setting
// baseAnnualLeaveForOverOneYear replaces that with its base plus every
// additional rule whose afterYears has been reached.
func (c *AccrualCalculator) YearlyGrant(years int, rule *policy.LeaveRule) int {
	if years < 1 {
		return 0
	}

	limit := statutoryMaxDays
	if rule != nil && rule.MaximumAnnualLeaveLimit != nil && *rule.MaximumAnnualLeaveLimit > 0 {
		limit = *rule.MaximumAnnualLeaveLimit
	}

	if rule == nil || rule.BaseAnnualLeaveForOverOneYear == nil {
		return min(statutoryBaseDays+(years-1)/2, limit)
	}

	days := *rule.BaseAnnualLeaveForOverOneYear
	for _, extra := range rule.AdditionalAnnualLeaveRules {
		if extra.AfterYears <= years {
			days += extra.AdditionalDays
		}
	}
	return min(days, limit)
}

// Grant picks the first-year or yearly formula from the member's tenure at ref.
func (c *AccrualCalculator) Grant(joinDate, ref time.Time, rule *policy.LeaveRule) int {
	months := c.TenureMonths(joinDate, ref)
	if months < 12 {
		return c.FirstYearGrant(months, rule)
	}
	return c.YearlyGrant(months/12, rule)
}

func (c *AccrualCalculator) FirstYearMax(rule *policy.LeaveRule) int {
	if rule != nil && rule.FirstYearMaxAccrual != nil && *rule.FirstYearMaxAccrual > 0 {
		return *rule.FirstYearMaxAccrual
	}
	return firstYearMaxDays
}

func (c *AccrualCalculator) MonthlyDays(rule *policy.LeaveRule) int {
	if rule != nil && rule.MonthlyAccrualDays != nil && *rule.MonthlyAccrualDays > 0 {
		return *rule.MonthlyAccrualDays
	}
	return defaultMonthlyAccrual
}

// MonthlyAccrued is the granted total after one monthly run: granted plus
// the monthly days, never above the first-year cap. A total already at or
// above the cap is returned unchanged.
func (c *AccrualCalculator) MonthlyAccrued(granted decimal.Decimal, rule *policy.LeaveRule) decimal.Decimal {
	limit := decimal.NewFromInt(int64(c.FirstYearMax(rule)))
	if !granted.LessThan(limit) {
		return granted
	}
	return decimal.Min(granted.Add(decimal.NewFromInt(int64(c.MonthlyDays(rule)))), limit)
}
