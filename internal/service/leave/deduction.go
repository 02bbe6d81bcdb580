package leave

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/shopspring/decimal"
)

const (
	defaultStandardMinutes = 480
	halfDayAMEndHour       = 12
	halfDayPMStartHour     = 13
)

var halfDay = decimal.NewFromFloat(0.5)

// Window returns the period a request occupies. Half-day mornings end at
// 12:00 and afternoons start at 13:00; day requests span whole days.
func Window(unit leave.RequestUnit, start, end time.Time) (time.Time, time.Time) {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	endOf := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
	}

	switch unit {
	case leave.UnitHalfDayAM:
		return startDay, startDay.Add(halfDayAMEndHour * time.Hour)
	case leave.UnitHalfDayPM:
		return startDay.Add(halfDayPMStartHour * time.Hour), endOf(start)
	case leave.UnitTimeOff:
		return start, end
	}
	return startDay, endOf(end)
}

// DeductionDays returns the balance a request consumes.
//
// DAY counts calendar days inclusively. Half days cost 0.5 whatever the end
// date. TIME_OFF divides the requested minutes by the working minutes of a
// standard day (standard minus break) and rounds to two places.
func DeductionDays(unit leave.RequestUnit, start, end time.Time, standardMinutes, breakMinutes int) (decimal.Decimal, error) {
	switch unit {
	case leave.UnitHalfDayAM, leave.UnitHalfDayPM:
		return halfDay, nil
	case leave.UnitDay, leave.UnitTimeOff:
	default:
		return decimal.Zero, leave.ErrInvalidRequestUnit
	}

	if end.Before(start) {
		return decimal.Zero, leave.ErrInvalidRequestRange
	}

	if unit == leave.UnitDay {
		from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
		days := int64(to.Sub(from).Hours()/24) + 1
		return decimal.NewFromInt(days), nil
	}

	perDay := standardMinutes - breakMinutes
	if perDay <= 0 {
		perDay = defaultStandardMinutes
	}
	minutes := int64(end.Sub(start) / time.Minute)
	return decimal.NewFromInt(minutes).DivRound(decimal.NewFromInt(int64(perDay)), 2), nil
}

// ValidateBalance fails with leave.ErrInsufficientBalance when b cannot cover days.
func ValidateBalance(b leave.MemberBalance, days decimal.Decimal) error {
	if !b.IsUsable || b.Remaining.LessThan(days) {
		return leave.ErrInsufficientBalance
	}
	return nil
}

// RequestUsage is what a member already holds of one leave type when a new
// request is checked.
type RequestUsage struct {
	// Splits counts open requests in the start date's year.
	Splits int
	// PeriodDays sums their deduction days in the rule's limit period.
	PeriodDays decimal.Decimal
}

// ValidateRequestRules checks a request against the caps of its leave rule.
// today is the calendar date the request is made on. A nil rule has no caps.
func ValidateRequestRules(rule *policy.LeaveRule, unit leave.RequestUnit, start time.Time, days decimal.Decimal, today time.Time, usage RequestUsage) error {
	if rule == nil {
		return nil
	}

	if !unitAllowed(rule.MinimumRequestUnit, unit) {
		return leave.ErrRequestUnitNotAllowed
	}

	if n := rule.RequestDeadlineDays; n != nil && *n > 0 {
		lead := int(dateOf(start).Sub(dateOf(today)).Hours() / 24)
		if lead < *n {
			return leave.ErrRequestDeadlinePassed
		}
	}

	if n := rule.MinConsecutiveDays; n != nil && *n > 0 && days.LessThan(decimal.NewFromInt(int64(*n))) {
		return leave.ErrBelowMinimumDays
	}

	if n := rule.MaxSplitCount; n != nil && *n > 0 && usage.Splits >= *n {
		return leave.ErrSplitCountExceeded
	}

	if n := rule.MaxDaysPerPeriod; n != nil && rule.LimitPeriod != "" && usage.PeriodDays.Add(days).GreaterThan(decimal.NewFromInt(int64(*n))) {
		return leave.ErrPeriodLimitExceeded
	}
	return nil
}

// unitAllowed reports whether unit is at least as coarse as minimum. DAY
// allows whole days only, HALF_DAY adds half days and HOUR allows time off.
func unitAllowed(minimum string, unit leave.RequestUnit) bool {
	switch minimum {
	case policy.RequestUnitDay:
		return unit == leave.UnitDay
	case policy.RequestUnitHalfDay:
		return unit != leave.UnitTimeOff
	}
	return true
}

// LimitPeriodRange returns the calendar month or year around start that a
// limitPeriod refers to.
func LimitPeriodRange(limitPeriod string, start time.Time) (time.Time, time.Time) {
	if limitPeriod == policy.LimitPeriodMonthly {
		first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
		return first, first.AddDate(0, 1, -1)
	}
	return yearRange(start)
}

func yearRange(t time.Time) (time.Time, time.Time) {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location()),
		time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, t.Location())
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// standardDay returns the standard and break minutes a work policy defines.
func standardDay(p *policy.Policy) (int, int) {
	if p == nil {
		return defaultStandardMinutes, 0
	}

	standard := defaultStandardMinutes
	if wt := p.RuleDetails.WorkTimeRule; wt != nil && wt.FixedWorkMinutes != nil && *wt.FixedWorkMinutes > 0 {
		standard = *wt.FixedWorkMinutes
	}

	br := p.RuleDetails.BreakRule
	if br == nil {
		return standard, 0
	}

	if br.Type == policy.BreakFixed {
		start, errStart := br.FixedBreakStart.Minutes()
		end, errEnd := br.FixedBreakEnd.Minutes()
		if errStart == nil && errEnd == nil && end > start {
			return standard, end - start
		}
	}
	if br.DefaultBreakMinutesFor8Hours != nil {
		return standard, *br.DefaultBreakMinutesFor8Hours
	}
	if br.MandatoryBreakMinutes != nil {
		return standard, *br.MandatoryBreakMinutes
	}
	return standard, 0
}
