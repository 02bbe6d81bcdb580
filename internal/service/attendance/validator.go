package attendance

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
)

const (
	halfDayBoundaryHour    = 13
	halfDayMorningDuration = 4 * time.Hour

	legalBreakFor8Hours = 60
	legalBreakFor4Hours = 30
)

// Validator applies the rule blocks of a STANDARD_WORK policy to clock
// events. Policy times are read in loc on the record's calendar date.
type Validator struct {
	loc *time.Location
}

func NewValidator(loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{loc: loc}
}

// day places the calendar date of d at midnight in the validator's zone.
func (v *Validator) day(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, v.loc)
}

func (v *Validator) at(date time.Time, t policy.TimeOfDay) (time.Time, error) {
	at, err := t.On(v.day(date))
	if err != nil {
		return time.Time{}, attendance.NewRuleError(attendance.ErrInvalidPolicyTime, err.Error())
	}
	return at, nil
}

func graceOf(p *int) time.Duration {
	if p == nil || *p <= 0 {
		return 0
	}
	return time.Duration(*p) * time.Minute
}

// CheckLateness sets the lateness flag and minutes of a clocked-in record.
// Minutes count from the scheduled start, not from the end of the grace.
func (v *Validator) CheckLateness(a *attendance.DailyAttendance, p policy.Policy) error {
	wt := p.RuleDetails.WorkTimeRule
	if wt == nil || a.FirstClockIn == nil {
		return nil
	}

	start := wt.WorkStartTime
	if wt.IsFlexible() {
		start = wt.CoreTimeStart
	}
	if start.IsZero() {
		return nil
	}

	scheduled, err := v.at(a.Date, start)
	if err != nil {
		return err
	}

	var grace time.Duration
	if lr := p.RuleDetails.LatenessRule; lr != nil {
		grace = graceOf(lr.LatenessGraceMinutes)
	}

	clockIn := a.FirstClockIn.In(v.loc)
	a.IsLate = clockIn.After(scheduled.Add(grace))
	a.LateMinutes = 0
	if a.IsLate {
		a.LateMinutes = int(clockIn.Sub(scheduled).Minutes())
	}
	return nil
}

// CheckEarlyLeave sets the early-leave flag and minutes of a clocked-out
// record. Minutes count back from the scheduled end.
func (v *Validator) CheckEarlyLeave(a *attendance.DailyAttendance, p policy.Policy) error {
	wt := p.RuleDetails.WorkTimeRule
	if wt == nil || a.LastClockOut == nil {
		return nil
	}

	end := wt.WorkEndTime
	if wt.IsFlexible() {
		end = wt.CoreTimeEnd
	}
	if end.IsZero() {
		return nil
	}

	scheduled, err := v.at(a.Date, end)
	if err != nil {
		return err
	}

	var grace time.Duration
	if lr := p.RuleDetails.LatenessRule; lr != nil {
		grace = graceOf(lr.EarlyLeaveGraceMinutes)
	}

	clockOut := a.LastClockOut.In(v.loc)
	a.IsEarlyLeave = clockOut.Before(scheduled.Add(-grace))
	a.EarlyLeaveMinutes = 0
	if a.IsEarlyLeave {
		a.EarlyLeaveMinutes = int(scheduled.Sub(clockOut).Minutes())
	}
	return nil
}

// halfDayBoundary is the end of the morning half. A FIXED break window
// decides it when present; otherwise it is work start + 4h, else 13:00.
func (v *Validator) halfDayBoundary(date time.Time, p policy.Policy, fixed policy.TimeOfDay) (time.Time, error) {
	br := p.RuleDetails.BreakRule
	if br != nil && br.Type == policy.BreakFixed && !fixed.IsZero() {
		return v.at(date, fixed)
	}

	if wt := p.RuleDetails.WorkTimeRule; wt != nil && !wt.WorkStartTime.IsZero() {
		start, err := v.at(date, wt.WorkStartTime)
		if err != nil {
			return time.Time{}, err
		}
		return start.Add(halfDayMorningDuration), nil
	}

	return v.day(date).Add(halfDayBoundaryHour * time.Hour), nil
}

// ValidateHalfDayAMClockIn rejects a morning-off member arriving after the
// afternoon start plus the lateness grace.
func (v *Validator) ValidateHalfDayAMClockIn(a attendance.DailyAttendance, p policy.Policy, clockIn time.Time) error {
	var fixedEnd policy.TimeOfDay
	if br := p.RuleDetails.BreakRule; br != nil {
		fixedEnd = br.FixedBreakEnd
	}

	latest, err := v.halfDayBoundary(a.Date, p, fixedEnd)
	if err != nil {
		return err
	}
	if lr := p.RuleDetails.LatenessRule; lr != nil {
		latest = latest.Add(graceOf(lr.LatenessGraceMinutes))
	}

	clockIn = clockIn.In(v.loc)
	if clockIn.After(latest) {
		return attendance.NewRuleError(attendance.ErrHalfDayAMClockInTooLate,
			fmt.Sprintf("half-day AM clock-in must be at or before %s (was %s)",
				latest.Format("15:04"), clockIn.Format("15:04")))
	}
	return nil
}

// ValidateHalfDayPMClockOut rejects an afternoon-off member leaving before
// the morning half ends.
func (v *Validator) ValidateHalfDayPMClockOut(a attendance.DailyAttendance, p policy.Policy, clockOut time.Time) error {
	var fixedStart policy.TimeOfDay
	if br := p.RuleDetails.BreakRule; br != nil {
		fixedStart = br.FixedBreakStart
	}

	earliest, err := v.halfDayBoundary(a.Date, p, fixedStart)
	if err != nil {
		return err
	}

	clockOut = clockOut.In(v.loc)
	if clockOut.Before(earliest) {
		return attendance.NewRuleError(attendance.ErrHalfDayPMClockOutTooEarly,
			fmt.Sprintf("half-day PM clock-out must be at or after %s (was %s)",
				earliest.Format("15:04"), clockOut.Format("15:04")))
	}
	return nil
}

func (v *Validator) ValidateClockInTimeRange(clockIn time.Time, p policy.Policy) error {
	return v.validateTimeRange(clockIn, p, attendance.ErrOutsideClockInWindow, "clock-in")
}

func (v *Validator) ValidateClockOutTimeRange(clockOut time.Time, p policy.Policy) error {
	return v.validateTimeRange(clockOut, p, attendance.ErrOutsideClockOutWindow, "clock-out")
}

// validateTimeRange accepts t inside [start, end]. When end is before start
// the window crosses midnight and only the gap (end, start) is rejected.
func (v *Validator) validateTimeRange(t time.Time, p policy.Policy, rule error, label string) error {
	wt := p.RuleDetails.WorkTimeRule
	if wt == nil || wt.WorkStartTime.IsZero() || wt.WorkEndTime.IsZero() {
		return nil
	}

	startMin, err := wt.WorkStartTime.Minutes()
	if err != nil {
		return attendance.NewRuleError(attendance.ErrInvalidPolicyTime, err.Error())
	}
	endMin, err := wt.WorkEndTime.Minutes()
	if err != nil {
		return attendance.NewRuleError(attendance.ErrInvalidPolicyTime, err.Error())
	}

	local := t.In(v.loc)
	tod := local.Sub(v.day(local))
	start := time.Duration(startMin) * time.Minute
	end := time.Duration(endMin) * time.Minute

	var outside bool
	if end < start {
		outside = tod < start && tod > end
	} else {
		outside = tod < start || tod > end
	}

	if outside {
		window := fmt.Sprintf("%s ~ %s", wt.WorkStartTime, wt.WorkEndTime)
		if end < start {
			window = fmt.Sprintf("%s ~ next day %s", wt.WorkStartTime, wt.WorkEndTime)
		}
		return attendance.NewRuleError(rule,
			fmt.Sprintf("%s at %s is outside the allowed window (%s)", label, local.Format("15:04"), window))
	}
	return nil
}

// ValidateWorkingHoursLimit checks the clockOutRule limit for a clock-out
// on date. clockIn may be nil for a clock-in that has not happened yet.
func (v *Validator) ValidateWorkingHoursLimit(date time.Time, p policy.Policy, clockIn *time.Time, clockOut time.Time) error {
	cr := p.RuleDetails.ClockOutRule
	if cr == nil || cr.LimitType == "" {
		return nil
	}

	switch cr.LimitType {
	case policy.LimitFixedPlusHours:
		wt := p.RuleDetails.WorkTimeRule
		if wt == nil || wt.WorkEndTime.IsZero() || cr.MaxHoursAfterWorkEnd == nil {
			return nil
		}
		end, err := v.at(date, wt.WorkEndTime)
		if err != nil {
			return err
		}
		limit := end.Add(time.Duration(*cr.MaxHoursAfterWorkEnd) * time.Hour)
		if clockOut.After(limit) {
			return attendance.NewRuleError(attendance.ErrWorkingHoursExceeded,
				fmt.Sprintf("clock-out must be at or before %s", limit.Format("2006-01-02 15:04")))
		}

	case policy.LimitEndOfDay:
		limit := v.day(date).Add(24*time.Hour - time.Second)
		if clockOut.After(limit) {
			return attendance.NewRuleError(attendance.ErrWorkingHoursExceeded,
				"clock-out must happen before midnight of the work date")
		}

	case policy.LimitWorkDuration:
		if clockIn == nil || cr.MaxWorkDurationHours == nil {
			return nil
		}
		hours := int(clockOut.Sub(*clockIn).Hours())
		if hours > *cr.MaxWorkDurationHours {
			return attendance.NewRuleError(attendance.ErrWorkingHoursExceeded,
				fmt.Sprintf("work duration of %d hours exceeds the %d hour limit", hours, *cr.MaxWorkDurationHours))
		}

	default:
		slog.Warn("Unknown working hours limit type", "limit_type", cr.LimitType, "policy_id", p.ID)
	}
	return nil
}

// ValidateBreak checks that adding minutes keeps the daily break under its cap.
func (v *Validator) ValidateBreak(a attendance.DailyAttendance, p policy.Policy, minutes int) error {
	br := p.RuleDetails.BreakRule
	if br == nil || br.MaxDailyBreakMinutes == nil {
		return nil
	}
	if a.TotalBreakMinutes+minutes > *br.MaxDailyBreakMinutes {
		return attendance.NewRuleError(attendance.ErrBreakLimitExceeded,
			fmt.Sprintf("daily break may not exceed %d minutes", *br.MaxDailyBreakMinutes))
	}
	return nil
}

// ValidateGoOut checks the single and daily go-out caps.
func (v *Validator) ValidateGoOut(a attendance.DailyAttendance, p policy.Policy, minutes int) error {
	gr := p.RuleDetails.GoOutRule
	if gr == nil {
		return nil
	}
	if gr.MaxSingleGoOutMinutes != nil && minutes > *gr.MaxSingleGoOutMinutes {
		return attendance.NewRuleError(attendance.ErrGoOutLimitExceeded,
			fmt.Sprintf("a single go-out may not exceed %d minutes", *gr.MaxSingleGoOutMinutes))
	}
	if gr.MaxDailyGoOutMinutes != nil && a.TotalGoOutMinutes+minutes > *gr.MaxDailyGoOutMinutes {
		return attendance.NewRuleError(attendance.ErrGoOutLimitExceeded,
			fmt.Sprintf("daily go-out may not exceed %d minutes", *gr.MaxDailyGoOutMinutes))
	}
	return nil
}

// ValidateManualBreakMode allows break events only under a MANUAL break rule.
func (v *Validator) ValidateManualBreakMode(p policy.Policy) error {
	br := p.RuleDetails.BreakRule
	if br == nil || br.Type != policy.BreakManual {
		return attendance.NewRuleError(attendance.ErrManualBreakNotAllowed,
			"manual break recording is not allowed by the policy")
	}
	return nil
}

// ValidateMandatoryBreak enforces the statutory minimum break for the time
// spent at work: 60 minutes from eight hours, 30 from four. Policy values
// can only raise the minimum.
func (v *Validator) ValidateMandatoryBreak(a attendance.DailyAttendance, p policy.Policy) error {
	span := a.WorkedMinutes + a.TotalBreakMinutes

	var mandatory, default8h int
	if br := p.RuleDetails.BreakRule; br != nil {
		if br.MandatoryBreakMinutes != nil {
			mandatory = *br.MandatoryBreakMinutes
		}
		if br.DefaultBreakMinutesFor8Hours != nil {
			default8h = *br.DefaultBreakMinutesFor8Hours
		}
	}

	var required int
	switch {
	case span >= eightHourSpan:
		required = max(legalBreakFor8Hours, mandatory, default8h)
	case span >= fourHourSpan:
		required = max(legalBreakFor4Hours, mandatory)
	default:
		return nil
	}

	if a.TotalBreakMinutes < required {
		return attendance.NewRuleError(attendance.ErrMandatoryBreakNotMet,
			fmt.Sprintf("statutory minimum break of %d minutes not met (recorded %d)", required, a.TotalBreakMinutes))
	}
	return nil
}
