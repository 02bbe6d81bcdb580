package policy

import (
	"strings"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/shopspring/decimal"
)

// Statutory limits enforced on policy documents.
const (
	maxWeeklyOvertimeMinutes = 720
	minAnnualLeaveDays       = 15
	maxFirstYearAccrual      = 11
)

func validateStandardWork(d policy.RuleDetails) []string {
	var v violations

	wt, br := d.WorkTimeRule, d.BreakRule
	if wt == nil {
		v.add("workTimeRule is required")
	}
	if br == nil {
		v.add("breakRule is required")
	}

	if wt != nil {
		if wt.WorkStartTime.IsZero() || wt.WorkEndTime.IsZero() {
			v.add("workTimeRule.workStartTime and workTimeRule.workEndTime are required")
		}
		if wt.FixedWorkMinutes == nil || *wt.FixedWorkMinutes <= 0 {
			v.add("workTimeRule.fixedWorkMinutes is required and must be greater than 0")
		}
	}

	if br != nil {
		switch br.Type {
		case "":
			v.add("breakRule.type is required")
		case policy.BreakFixed:
			if br.FixedBreakStart.IsZero() || br.FixedBreakEnd.IsZero() {
				v.add("FIXED breakRule requires fixedBreakStart and fixedBreakEnd")
			}
		case policy.BreakAuto, policy.BreakManual:
			if br.DefaultBreakMinutesFor8Hours == nil {
				v.add("%s breakRule requires defaultBreakMinutesFor8Hours", br.Type)
			}
		default:
			v.add("breakRule.type must be one of AUTO, MANUAL, FIXED")
		}
	}

	if wt != nil && br != nil && wt.FixedWorkMinutes != nil {
		field, breakMinutes := "breakRule.mandatoryBreakMinutes", 0
		if br.MandatoryBreakMinutes != nil {
			breakMinutes = *br.MandatoryBreakMinutes
		}
		if br.Type == policy.BreakFixed {
			field, breakMinutes = "FIXED break window", fixedWindowMinutes(br)
		}
		switch minutes := *wt.FixedWorkMinutes; {
		case minutes >= 480 && breakMinutes < 60:
			v.add("%s must be at least 60 for a work day of 8 hours or more", field)
		case minutes >= 240 && minutes < 480 && breakMinutes < 30:
			v.add("%s must be at least 30 for a work day of 4 hours or more", field)
		}
	}

	if d.OvertimeRule != nil {
		v = append(v, overtimeLimits(d.OvertimeRule)...)
	}

	return v
}

// fixedWindowMinutes is the length of a FIXED break window, or 0 when the
// window is missing or malformed.
func fixedWindowMinutes(br *policy.BreakRule) int {
	start, errStart := br.FixedBreakStart.Minutes()
	end, errEnd := br.FixedBreakEnd.Minutes()
	if errStart != nil || errEnd != nil || end <= start {
		return 0
	}
	return end - start
}

func overtimeLimits(ot *policy.OvertimeRule) []string {
	var v violations
	if ot.MaxWeeklyOvertimeMinutes != nil && *ot.MaxWeeklyOvertimeMinutes > maxWeeklyOvertimeMinutes {
		v.add("overtimeRule.maxWeeklyOvertimeMinutes must not exceed %d", maxWeeklyOvertimeMinutes)
	}
	v.minRate("overtimeRule.overtimeRate", ot.OvertimeRate, rateFloor)
	v.minRate("overtimeRule.nightWorkRate", ot.NightWorkRate, rateFloor)
	v.minRate("overtimeRule.holidayWorkRate", ot.HolidayWorkRate, rateFloor)
	v.minRate("overtimeRule.holidayOvertimeRate", ot.HolidayOvertimeRate, holidayOTRateFloor)
	return v
}

// leaveDays returns the leave rule and its defaultDays, adding violations
// when either is missing.
func leaveDays(d policy.RuleDetails, v *violations) (*policy.LeaveRule, int, bool) {
	lr := d.LeaveRule
	if lr == nil {
		v.add("leaveRule is required")
		return nil, 0, false
	}
	if lr.DefaultDays == nil {
		v.add("leaveRule.defaultDays is required")
		return lr, 0, false
	}
	return lr, *lr.DefaultDays, true
}

func validateAnnualLeave(d policy.RuleDetails) []string {
	var v violations
	lr, days, ok := leaveDays(d, &v)
	if ok && days < minAnnualLeaveDays {
		v.add("leaveRule.defaultDays must be at least %d", minAnnualLeaveDays)
	}
	if lr == nil {
		return v
	}

	if lr.FirstYearMaxAccrual != nil {
		if *lr.FirstYearMaxAccrual > maxFirstYearAccrual {
			v.add("leaveRule.firstYearMaxAccrual must not exceed %d", maxFirstYearAccrual)
		}
		if *lr.FirstYearMaxAccrual < 0 {
			v.add("leaveRule.firstYearMaxAccrual must not be negative")
		}
	}

	switch lr.AccrualType {
	case "", policy.AccrualTypeAccrual, policy.AccrualTypeManual:
	default:
		v.add("leaveRule.accrualType must be ACCRUAL or MANUAL")
	}

	switch lr.MinimumRequestUnit {
	case "", policy.RequestUnitDay, policy.RequestUnitHalfDay, policy.RequestUnitHour:
	default:
		v.add("leaveRule.minimumRequestUnit must be one of DAY, HALF_DAY, HOUR")
	}

	return v
}

func validateMaternityLeave(d policy.RuleDetails) []string {
	var v violations
	lr, days, ok := leaveDays(d, &v)
	if ok {
		if days < 90 {
			v.add("leaveRule.defaultDays must be at least 90")
		}
		if days > 150 {
			v.add("leaveRule.defaultDays must not exceed 150")
		}
	}
	if lr != nil && lr.MaxSplitCount != nil && *lr.MaxSplitCount > 1 {
		v.add("leaveRule.maxSplitCount must not exceed 1")
	}
	return v
}

func validatePaternityLeave(d policy.RuleDetails) []string {
	var v violations
	lr, days, ok := leaveDays(d, &v)
	if ok {
		if days < 10 {
			v.add("leaveRule.defaultDays must be at least 10")
		}
		if days > 20 {
			v.add("leaveRule.defaultDays must not exceed 20")
		}
	}
	if lr == nil {
		return v
	}
	if n := lr.MaxDaysFromEventDate; n != nil {
		if *n < 30 {
			v.add("leaveRule.maxDaysFromEventDate must be at least 30")
		}
		if *n > 365 {
			v.add("leaveRule.maxDaysFromEventDate must not exceed 365")
		}
	}
	if lr.MaxSplitCount != nil && *lr.MaxSplitCount > 2 {
		v.add("leaveRule.maxSplitCount must not exceed 2")
	}
	return v
}

func validateChildcareLeave(d policy.RuleDetails) []string {
	var v violations
	lr, days, ok := leaveDays(d, &v)
	if ok {
		if days > 365 {
			v.add("leaveRule.defaultDays must not exceed 365")
		}
		if days < 1 {
			v.add("leaveRule.defaultDays must be at least 1")
		}
	}
	if lr == nil {
		return v
	}
	if n := lr.MaxSplitCount; n != nil {
		if *n < 1 {
			v.add("leaveRule.maxSplitCount must be at least 1")
		}
		if *n > 10 {
			v.add("leaveRule.maxSplitCount must not exceed 10")
		}
	}
	if n := lr.MinConsecutiveDays; n != nil {
		if *n < 1 {
			v.add("leaveRule.minConsecutiveDays must be at least 1")
		}
		if ok && *n > days {
			v.add("leaveRule.minConsecutiveDays must not exceed defaultDays")
		}
	}
	return v
}

func validateFamilyCareLeave(d policy.RuleDetails) []string {
	var v violations
	lr, days, ok := leaveDays(d, &v)
	if ok {
		if days > 10 {
			v.add("leaveRule.defaultDays must not exceed 10")
		}
		if days < 1 {
			v.add("leaveRule.defaultDays must be at least 1")
		}
	}
	if lr == nil {
		return v
	}
	if lr.LimitPeriod != "" && lr.LimitPeriod != policy.LimitPeriodYearly {
		v.add("leaveRule.limitPeriod must be YEARLY")
	}
	if n := lr.MaxDaysPerPeriod; n != nil {
		if *n > 10 {
			v.add("leaveRule.maxDaysPerPeriod must not exceed 10")
		}
		if *n < 1 {
			v.add("leaveRule.maxDaysPerPeriod must be at least 1")
		}
	}
	return v
}

func validateMenstrualLeave(d policy.RuleDetails) []string {
	var v violations
	lr, days, ok := leaveDays(d, &v)
	if ok {
		if days < 1 {
			v.add("leaveRule.defaultDays must be at least 1")
		}
		if days > 3 {
			v.add("leaveRule.defaultDays must not exceed 3")
		}
	}
	if lr == nil {
		return v
	}
	if lr.LimitPeriod != "" && lr.LimitPeriod != policy.LimitPeriodMonthly {
		v.add("leaveRule.limitPeriod must be MONTHLY")
	}
	if n := lr.MaxDaysPerPeriod; n != nil {
		if *n < 1 {
			v.add("leaveRule.maxDaysPerPeriod must be at least 1")
		}
		if *n > 3 {
			v.add("leaveRule.maxDaysPerPeriod must not exceed 3")
		}
	}
	return v
}

func validateOvertime(d policy.RuleDetails) []string {
	var v violations
	ot := d.OvertimeRule
	if ot == nil {
		v.add("overtimeRule is required")
		return v
	}
	if ot.MaxWeeklyOvertimeMinutes != nil && *ot.MaxWeeklyOvertimeMinutes > maxWeeklyOvertimeMinutes {
		v.add("overtimeRule.maxWeeklyOvertimeMinutes must not exceed %d", maxWeeklyOvertimeMinutes)
	}
	v.minRate("overtimeRule.overtimeRate", ot.OvertimeRate, rateFloor)
	return v
}

func validateNightWork(d policy.RuleDetails) []string {
	var v violations
	ot := d.OvertimeRule
	if ot == nil {
		v.add("overtimeRule is required")
		return v
	}
	if !ot.AllowNightWork {
		v.add("overtimeRule.allowNightWork must be true")
	}
	v.minRate("overtimeRule.nightWorkRate", ot.NightWorkRate, rateFloor)
	return v
}

func validateHolidayWork(d policy.RuleDetails) []string {
	var v violations
	ot := d.OvertimeRule
	if ot == nil {
		v.add("overtimeRule is required")
		return v
	}
	if !ot.AllowHolidayWork {
		v.add("overtimeRule.allowHolidayWork must be true")
	}
	v.minRate("overtimeRule.holidayWorkRate", ot.HolidayWorkRate, rateFloor)
	v.minRate("overtimeRule.holidayOvertimeRate", ot.HolidayOvertimeRate, holidayOTRateFloor)
	return v
}

func validateBusinessTrip(d policy.RuleDetails) []string {
	var v violations
	tr := d.TripRule
	if tr == nil {
		v.add("tripRule is required")
		return v
	}
	if strings.TrimSpace(tr.Type) == "" {
		v.add("tripRule.type is required")
	}
	amounts := []struct {
		name  string
		value *decimal.Decimal
	}{
		{"tripRule.perDiemAmount", tr.PerDiemAmount},
		{"tripRule.accommodationLimit", tr.AccommodationLimit},
		{"tripRule.transportationLimit", tr.TransportationLimit},
	}
	for _, a := range amounts {
		if a.value != nil && a.value.IsNegative() {
			v.add("%s must not be negative", a.name)
		}
	}
	return v
}
