package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/shopspring/decimal"
)

const (
	defaultStandardMinutes = 480
	eightHourSpan          = 480
	fourHourSpan           = 240

	nightStartHour = 22
	nightEndHour   = 6
)

var (
	defaultOvertimeRate        = decimal.RequireFromString("1.5")
	defaultNightWorkRate       = decimal.RequireFromString("1.5")
	defaultHolidayWorkRate     = decimal.RequireFromString("1.5")
	defaultHolidayOvertimeRate = decimal.RequireFromString("2.0")
)

// Calculator derives the computed minutes of a daily record.
type Calculator struct {
	holidays attendance.HolidayRepository
	loc      *time.Location
}

func NewCalculator(holidays attendance.HolidayRepository, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{holidays: holidays, loc: loc}
}

// RequiredWorkMinutes is the standard for the record's status. Half days
// need half of it.
func RequiredWorkMinutes(a attendance.DailyAttendance, standard int) int {
	if standard <= 0 {
		standard = defaultStandardMinutes
	}
	if a.Status.IsHalfDay() {
		return standard / 2
	}
	return standard
}

// StandardWorkMinutes returns fixedWorkMinutes, or 480.
func StandardWorkMinutes(p policy.Policy) int {
	wt := p.RuleDetails.WorkTimeRule
	if wt == nil || wt.FixedWorkMinutes == nil || *wt.FixedWorkMinutes <= 0 {
		return defaultStandardMinutes
	}
	return *wt.FixedWorkMinutes
}

// AutoBreakMinutes returns the break the policy deducts on clock-out. apply
// is false when the mode never deducts or a break was already recorded.
func AutoBreakMinutes(p policy.Policy, a attendance.DailyAttendance, clockOut time.Time) (int, bool) {
	br := p.RuleDetails.BreakRule
	if br == nil || a.FirstClockIn == nil || a.TotalBreakMinutes > 0 {
		return 0, false
	}

	span := int(clockOut.Sub(*a.FirstClockIn).Minutes())

	switch br.Type {
	case policy.BreakFixed:
		start, err := br.FixedBreakStart.Minutes()
		if err != nil {
			return 0, false
		}
		end, err := br.FixedBreakEnd.Minutes()
		if err != nil || end <= start {
			return 0, false
		}
		window := end - start
		if span < window {
			return 0, true
		}
		return window, true

	case policy.BreakAuto:
		switch {
		case span >= eightHourSpan && br.DefaultBreakMinutesFor8Hours != nil:
			return *br.DefaultBreakMinutesFor8Hours, true
		case span >= fourHourSpan && br.MandatoryBreakMinutes != nil:
			return *br.MandatoryBreakMinutes, true
		}
		return 0, true
	}

	return 0, false
}

// IsHoliday reports a weekend or a company holiday.
func (c *Calculator) IsHoliday(ctx context.Context, companyID string, date time.Time) (bool, error) {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return true, nil
	}

	exists, err := c.holidays.ExistsOn(ctx, companyID, date)
	if err != nil {
		return false, fmt.Errorf("failed to check company holiday: %w", err)
	}
	return exists, nil
}

// Breakdown splits the worked minutes of a day into premium categories.
type Breakdown struct {
	DaytimeOvertimeMinutes int
	NightWorkMinutes       int
	HolidayWorkMinutes     int
}

// WorkBreakdown computes night, holiday and daytime overtime minutes for a
// clocked-out record. Night work is the overlap of the clock span with
// 22:00-06:00.
func (c *Calculator) WorkBreakdown(a attendance.DailyAttendance, holiday bool) Breakdown {
	if a.FirstClockIn == nil || a.LastClockOut == nil {
		return Breakdown{}
	}

	in := a.FirstClockIn.In(c.loc)
	out := a.LastClockOut.In(c.loc)

	var b Breakdown
	b.NightWorkMinutes = nightOverlapMinutes(in, out)
	if b.NightWorkMinutes > a.WorkedMinutes {
		b.NightWorkMinutes = a.WorkedMinutes
	}

	if holiday {
		b.HolidayWorkMinutes = a.WorkedMinutes
		return b
	}

	if ot := a.OvertimeMinutes - b.NightWorkMinutes; ot > 0 {
		b.DaytimeOvertimeMinutes = ot
	}
	return b
}

// Apply copies the breakdown onto a record.
func (b Breakdown) Apply(a *attendance.DailyAttendance) {
	a.DaytimeOvertimeMinutes = b.DaytimeOvertimeMinutes
	a.NightWorkMinutes = b.NightWorkMinutes
	a.HolidayWorkMinutes = b.HolidayWorkMinutes
}

func nightOverlapMinutes(in, out time.Time) int {
	if !out.After(in) {
		return 0
	}

	total := 0
	// A night window that ends on the morning of the clock-in day may
	// overlap too, so start from the previous evening.
	day := time.Date(in.Year(), in.Month(), in.Day(), 0, 0, 0, 0, in.Location()).AddDate(0, 0, -1)
	for !day.After(out) {
		start := time.Date(day.Year(), day.Month(), day.Day(), nightStartHour, 0, 0, 0, day.Location())
		end := time.Date(day.Year(), day.Month(), day.Day()+1, nightEndHour, 0, 0, 0, day.Location())
		total += overlapMinutes(in, out, start, end)
		day = day.AddDate(0, 0, 1)
	}
	return total
}

func overlapMinutes(aStart, aEnd, bStart, bEnd time.Time) int {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start).Minutes())
}

// PremiumMinutes weights the breakdown with the overtime rule's rates.
// Holiday minutes past eight hours use the holiday overtime rate.
func PremiumMinutes(b Breakdown, rule *policy.OvertimeRule) decimal.Decimal {
	overtimeRate := defaultOvertimeRate
	nightRate := defaultNightWorkRate
	holidayRate := defaultHolidayWorkRate
	holidayOTRate := defaultHolidayOvertimeRate
	if rule != nil {
		overtimeRate = rateOr(rule.OvertimeRate, overtimeRate)
		nightRate = rateOr(rule.NightWorkRate, nightRate)
		holidayRate = rateOr(rule.HolidayWorkRate, holidayRate)
		holidayOTRate = rateOr(rule.HolidayOvertimeRate, holidayOTRate)
	}

	holidayBase := b.HolidayWorkMinutes
	holidayExtra := 0
	if holidayBase > eightHourSpan {
		holidayExtra = holidayBase - eightHourSpan
		holidayBase = eightHourSpan
	}

	total := decimal.NewFromInt(int64(b.DaytimeOvertimeMinutes)).Mul(overtimeRate)
	total = total.Add(decimal.NewFromInt(int64(b.NightWorkMinutes)).Mul(nightRate))
	total = total.Add(decimal.NewFromInt(int64(holidayBase)).Mul(holidayRate))
	total = total.Add(decimal.NewFromInt(int64(holidayExtra)).Mul(holidayOTRate))
	return total
}

func rateOr(rate *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if rate == nil {
		return fallback
	}
	return *rate
}
