package policy

import (
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
)

// maxDailyWorkMinutes is the statutory daily cap for a FIXED schedule.
const maxDailyWorkMinutes = 720

// generalChecks runs the type-independent rules every policy document must
// satisfy, after the type validator from the registry.
func generalChecks(code policy.TypeCode, d policy.RuleDetails) []string {
	var v violations

	if code.IsBalanceDeductible() && d.LeaveRule == nil {
		v.add("leave policies require leaveRule")
	}
	if code == policy.TypeStandardWork && (d.AuthRule == nil || d.WorkTimeRule == nil || d.BreakRule == nil) {
		v.add("work policies require authRule, workTimeRule and breakRule")
	}

	if d.AuthRule != nil {
		checkAuthRule(d.AuthRule, &v)
	}
	if d.WorkTimeRule != nil {
		checkWorkTimeRule(d.WorkTimeRule, &v)
	}
	if d.BreakRule != nil {
		checkBreakRule(d.BreakRule, &v)
	}
	if d.GoOutRule != nil {
		nonNegative(&v, "goOutRule.maxSingleGoOutMinutes", d.GoOutRule.MaxSingleGoOutMinutes)
		nonNegative(&v, "goOutRule.maxDailyGoOutMinutes", d.GoOutRule.MaxDailyGoOutMinutes)
	}
	if d.LatenessRule != nil {
		nonNegative(&v, "latenessRule.latenessGraceMinutes", d.LatenessRule.LatenessGraceMinutes)
		nonNegative(&v, "latenessRule.earlyLeaveGraceMinutes", d.LatenessRule.EarlyLeaveGraceMinutes)
		nonNegative(&v, "latenessRule.monthlyAllowedCount", d.LatenessRule.MonthlyAllowedCount)
	}

	return v
}

func checkAuthRule(r *policy.AuthRule, v *violations) {
	for i, m := range r.Methods {
		if m.DeviceType == "" || m.AuthMethod == "" {
			v.add("authRule.methods[%d] requires deviceType and authMethod", i)
			continue
		}
		switch m.AuthMethod {
		case policy.AuthMethodGPS:
			det := m.Details
			if det.GPSRadiusMeters == nil || *det.GPSRadiusMeters <= 0 || det.OfficeLatitude == nil || det.OfficeLongitude == nil {
				v.add("authRule.methods[%d]: GPS requires gpsRadiusMeters, officeLatitude and officeLongitude", i)
			}
		case policy.AuthMethodNetworkIP:
			if len(m.Details.AllowedIPs) == 0 {
				v.add("authRule.methods[%d]: NETWORK_IP requires allowedIps", i)
			}
			for _, ip := range m.Details.AllowedIPs {
				if !validator.IsValidIPOrPrefix(ip) {
					v.add("authRule.methods[%d]: %q is not a valid IP address or CIDR block", i, ip)
				}
			}
		default:
			v.add("authRule.methods[%d]: unsupported authMethod %q", i, m.AuthMethod)
		}
	}
}

func checkWorkTimeRule(r *policy.WorkTimeRule, v *violations) {
	switch r.Type {
	case "":
		v.add("workTimeRule.type is required")
	case policy.WorkTimeFixed:
		if r.FixedWorkMinutes == nil {
			v.add("FIXED workTimeRule requires fixedWorkMinutes")
		} else if *r.FixedWorkMinutes > maxDailyWorkMinutes {
			v.add("workTimeRule.fixedWorkMinutes must not exceed %d", maxDailyWorkMinutes)
		}
	case policy.WorkTimeFlexible:
		if r.CoreTimeStart.IsZero() || r.CoreTimeEnd.IsZero() {
			v.add("FLEXIBLE workTimeRule requires coreTimeStart and coreTimeEnd")
		} else {
			start, errS := r.CoreTimeStart.Minutes()
			end, errE := r.CoreTimeEnd.Minutes()
			if errS == nil && errE == nil && end <= start {
				v.add("workTimeRule.coreTimeEnd must be after coreTimeStart")
			}
		}
	case policy.WorkTimeDeemed:
	default:
		v.add("workTimeRule.type must be one of FIXED, FLEXIBLE, DEEMED")
	}

	checkTimes(v, map[string]policy.TimeOfDay{
		"workTimeRule.workStartTime": r.WorkStartTime,
		"workTimeRule.workEndTime":   r.WorkEndTime,
		"workTimeRule.coreTimeStart": r.CoreTimeStart,
		"workTimeRule.coreTimeEnd":   r.CoreTimeEnd,
	})
}

func checkBreakRule(r *policy.BreakRule, v *violations) {
	nonNegative(v, "breakRule.mandatoryBreakMinutes", r.MandatoryBreakMinutes)
	nonNegative(v, "breakRule.defaultBreakMinutesFor8Hours", r.DefaultBreakMinutesFor8Hours)
	nonNegative(v, "breakRule.maxDailyBreakMinutes", r.MaxDailyBreakMinutes)

	checkTimes(v, map[string]policy.TimeOfDay{
		"breakRule.fixedBreakStart": r.FixedBreakStart,
		"breakRule.fixedBreakEnd":   r.FixedBreakEnd,
	})
}

func nonNegative(v *violations, name string, n *int) {
	if n != nil && *n < 0 {
		v.add("%s must not be negative", name)
	}
}

// checkTimes reports every non-empty value that is not a valid "HH:mm".
// Names are visited in sorted order so output is stable.
func checkTimes(v *violations, times map[string]policy.TimeOfDay) {
	for _, name := range sortedKeys(times) {
		t := times[name]
		if !t.IsZero() && !validator.IsValidTimeOfDay(string(t)) {
			v.add("%s must be in HH:mm format", name)
		}
	}
}
