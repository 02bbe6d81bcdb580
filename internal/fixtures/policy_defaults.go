package fixtures

import (
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/shopspring/decimal"
)

// ==========================================
// HELPER FUNCTIONS
// ==========================================

func intPtr(i int) *int             { return &i }
func float64Ptr(f float64) *float64 { return &f }

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// ==========================================
// DEFAULT WORK POLICIES
// ==========================================

// GetDefaultStandardWorkPolicy returns a 09:00-18:00 FIXED schedule with a
// one hour AUTO break. auth is company specific and must be supplied.
func GetDefaultStandardWorkPolicy(companyID, effectiveFrom string, auth policy.AuthRule) policy.CreatePolicyRequest {
	return policy.CreatePolicyRequest{
		CompanyID:     companyID,
		TypeCode:      policy.TypeStandardWork,
		Name:          "Standard Office Hours",
		IsPaid:        true,
		EffectiveFrom: effectiveFrom,
		RuleDetails: policy.RuleDetails{
			WorkTimeRule: &policy.WorkTimeRule{
				Type:             policy.WorkTimeFixed,
				WorkStartTime:    "09:00",
				WorkEndTime:      "18:00",
				FixedWorkMinutes: intPtr(480),
			},
			BreakRule: &policy.BreakRule{
				Type:                         policy.BreakAuto,
				DefaultBreakMinutesFor8Hours: intPtr(60),
				MandatoryBreakMinutes:        intPtr(60),
			},
			LatenessRule: &policy.LatenessRule{
				LatenessGraceMinutes:   intPtr(0),
				EarlyLeaveGraceMinutes: intPtr(0),
			},
			GoOutRule: &policy.GoOutRule{
				MaxSingleGoOutMinutes: intPtr(120),
				MaxDailyGoOutMinutes:  intPtr(240),
			},
			AuthRule: &auth,
		},
	}
}

// GetDefaultPremiumPolicies returns the overtime, night work and holiday
// work policies at the statutory minimum rates.
func GetDefaultPremiumPolicies(companyID, effectiveFrom string) []policy.CreatePolicyRequest {
	return []policy.CreatePolicyRequest{
		{
			CompanyID:     companyID,
			TypeCode:      policy.TypeOvertime,
			Name:          "Overtime",
			IsPaid:        true,
			EffectiveFrom: effectiveFrom,
			RuleDetails: policy.RuleDetails{OvertimeRule: &policy.OvertimeRule{
				MaxWeeklyOvertimeMinutes: intPtr(720),
				OvertimeRate:             decimalPtr("1.5"),
			}},
		},
		{
			CompanyID:     companyID,
			TypeCode:      policy.TypeNightWork,
			Name:          "Night Work",
			IsPaid:        true,
			EffectiveFrom: effectiveFrom,
			RuleDetails: policy.RuleDetails{OvertimeRule: &policy.OvertimeRule{
				AllowNightWork: true,
				NightWorkRate:  decimalPtr("1.5"),
			}},
		},
		{
			CompanyID:     companyID,
			TypeCode:      policy.TypeHolidayWork,
			Name:          "Holiday Work",
			IsPaid:        true,
			EffectiveFrom: effectiveFrom,
			RuleDetails: policy.RuleDetails{OvertimeRule: &policy.OvertimeRule{
				AllowHolidayWork:    true,
				HolidayWorkRate:     decimalPtr("1.5"),
				HolidayOvertimeRate: decimalPtr("2.0"),
			}},
		},
	}
}

// ==========================================
// DEFAULT LEAVE POLICIES
// ==========================================

// GetDefaultLeavePolicies returns one policy per statutory leave type, each
// at its legal floor.
func GetDefaultLeavePolicies(companyID, effectiveFrom string) []policy.CreatePolicyRequest {
	leave := func(code policy.TypeCode, name string, paid bool, rule policy.LeaveRule) policy.CreatePolicyRequest {
		return policy.CreatePolicyRequest{
			CompanyID:     companyID,
			TypeCode:      code,
			Name:          name,
			IsPaid:        paid,
			EffectiveFrom: effectiveFrom,
			RuleDetails:   policy.RuleDetails{LeaveRule: &rule},
		}
	}

	return []policy.CreatePolicyRequest{
		// 15 days after one year, +1 every two years up to 25
		leave(policy.TypeAnnualLeave, "Annual Leave", true, policy.LeaveRule{
			DefaultDays:                     intPtr(15),
			AccrualType:                     policy.AccrualTypeAccrual,
			MinimumRequestUnit:              policy.RequestUnitHalfDay,
			FirstYearMaxAccrual:             intPtr(11),
			MonthlyAccrualDays:              intPtr(1),
			MinimumAttendanceRateForAccrual: float64Ptr(80),
			BaseAnnualLeaveForOverOneYear:   intPtr(15),
			MaximumAnnualLeaveLimit:         intPtr(25),
		}),
		leave(policy.TypeMaternityLeave, "Maternity Leave", true, policy.LeaveRule{
			DefaultDays:   intPtr(90),
			MaxSplitCount: intPtr(1),
		}),
		leave(policy.TypePaternityLeave, "Paternity Leave", true, policy.LeaveRule{
			DefaultDays:          intPtr(10),
			MaxDaysFromEventDate: intPtr(90),
			MaxSplitCount:        intPtr(2),
		}),
		leave(policy.TypeChildcareLeave, "Childcare Leave", false, policy.LeaveRule{
			DefaultDays:        intPtr(365),
			MaxSplitCount:      intPtr(3),
			MinConsecutiveDays: intPtr(30),
		}),
		leave(policy.TypeFamilyCareLeave, "Family Care Leave", false, policy.LeaveRule{
			DefaultDays:      intPtr(10),
			LimitPeriod:      policy.LimitPeriodYearly,
			MaxDaysPerPeriod: intPtr(10),
		}),
		leave(policy.TypeMenstrualLeave, "Menstrual Leave", false, policy.LeaveRule{
			DefaultDays:      intPtr(1),
			LimitPeriod:      policy.LimitPeriodMonthly,
			MaxDaysPerPeriod: intPtr(1),
		}),
	}
}

// GetDefaultBusinessTripPolicy returns a domestic trip policy without
// expense limits.
func GetDefaultBusinessTripPolicy(companyID, effectiveFrom string) policy.CreatePolicyRequest {
	return policy.CreatePolicyRequest{
		CompanyID:     companyID,
		TypeCode:      policy.TypeBusinessTrip,
		Name:          "Business Trip",
		IsPaid:        true,
		EffectiveFrom: effectiveFrom,
		RuleDetails: policy.RuleDetails{TripRule: &policy.TripRule{
			Type: "DOMESTIC",
		}},
	}
}

// GetAllDefaultPolicies returns every default policy for a new company.
// Creation order does not matter: clock events read the authentication rule
// from the member's resolved STANDARD_WORK policy.
func GetAllDefaultPolicies(companyID, effectiveFrom string, auth policy.AuthRule) []policy.CreatePolicyRequest {
	all := make([]policy.CreatePolicyRequest, 0, 11)
	all = append(all, GetDefaultLeavePolicies(companyID, effectiveFrom)...)
	all = append(all, GetDefaultPremiumPolicies(companyID, effectiveFrom)...)
	all = append(all, GetDefaultBusinessTripPolicy(companyID, effectiveFrom))
	all = append(all, GetDefaultStandardWorkPolicy(companyID, effectiveFrom, auth))
	return all
}
