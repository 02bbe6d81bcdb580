package policy

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BlockName identifies one rule block inside a RuleDetails document.
type BlockName string

const (
	BlockWorkTime BlockName = "workTimeRule"
	BlockBreak    BlockName = "breakRule"
	BlockLateness BlockName = "latenessRule"
	BlockGoOut    BlockName = "goOutRule"
	BlockClockOut BlockName = "clockOutRule"
	BlockOvertime BlockName = "overtimeRule"
	BlockLeave    BlockName = "leaveRule"
	BlockTrip     BlockName = "tripRule"
	BlockAuth     BlockName = "authRule"
)

// Rule is implemented only by the rule blocks of this package, which keeps
// the set of blocks closed.
type Rule interface {
	Block() BlockName
	sealed()
}

// RuleDetails is the rule document attached to a Policy. Every block is
// optional; which ones are required depends on the policy type.
type RuleDetails struct {
	WorkTimeRule *WorkTimeRule `json:"workTimeRule,omitempty"`
	BreakRule    *BreakRule    `json:"breakRule,omitempty"`
	LatenessRule *LatenessRule `json:"latenessRule,omitempty"`
	GoOutRule    *GoOutRule    `json:"goOutRule,omitempty"`
	ClockOutRule *ClockOutRule `json:"clockOutRule,omitempty"`
	OvertimeRule *OvertimeRule `json:"overtimeRule,omitempty"`
	LeaveRule    *LeaveRule    `json:"leaveRule,omitempty"`
	TripRule     *TripRule     `json:"tripRule,omitempty"`
	AuthRule     *AuthRule     `json:"authRule,omitempty"`
}

// Blocks returns the blocks present in the document.
func (d RuleDetails) Blocks() []Rule {
	var out []Rule
	if d.WorkTimeRule != nil {
		out = append(out, d.WorkTimeRule)
	}
	if d.BreakRule != nil {
		out = append(out, d.BreakRule)
	}
	if d.LatenessRule != nil {
		out = append(out, d.LatenessRule)
	}
	if d.GoOutRule != nil {
		out = append(out, d.GoOutRule)
	}
	if d.ClockOutRule != nil {
		out = append(out, d.ClockOutRule)
	}
	if d.OvertimeRule != nil {
		out = append(out, d.OvertimeRule)
	}
	if d.LeaveRule != nil {
		out = append(out, d.LeaveRule)
	}
	if d.TripRule != nil {
		out = append(out, d.TripRule)
	}
	if d.AuthRule != nil {
		out = append(out, d.AuthRule)
	}
	return out
}

// Has reports whether the named block is present.
func (d RuleDetails) Has(name BlockName) bool {
	for _, b := range d.Blocks() {
		if b.Block() == name {
			return true
		}
	}
	return false
}

// DecodeRuleDetails parses a rule document, rejecting unknown block or field names.
func DecodeRuleDetails(data []byte) (RuleDetails, error) {
	var d RuleDetails
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return RuleDetails{}, fmt.Errorf("%w: %v", ErrMalformedRuleDetails, err)
	}
	return d, nil
}

// Value implements driver.Valuer for JSONB storage
func (d RuleDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner for JSONB retrieval
func (d *RuleDetails) Scan(value any) error {
	if value == nil {
		*d = RuleDetails{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("failed to scan RuleDetails: invalid type")
	}
	return json.Unmarshal(raw, d)
}

// Work time types
const (
	WorkTimeFixed    = "FIXED"
	WorkTimeFlexible = "FLEXIBLE"
	WorkTimeDeemed   = "DEEMED"
)

type WorkTimeRule struct {
	Type             string    `json:"type"`
	WorkStartTime    TimeOfDay `json:"workStartTime,omitempty"`
	WorkEndTime      TimeOfDay `json:"workEndTime,omitempty"`
	FixedWorkMinutes *int      `json:"fixedWorkMinutes,omitempty"`
	CoreTimeStart    TimeOfDay `json:"coreTimeStart,omitempty"`
	CoreTimeEnd      TimeOfDay `json:"coreTimeEnd,omitempty"`
}

func (*WorkTimeRule) Block() BlockName { return BlockWorkTime }
func (*WorkTimeRule) sealed()          {}

// IsFlexible reports a core-time rule.
func (r *WorkTimeRule) IsFlexible() bool {
	return r != nil && r.Type == WorkTimeFlexible
}

// Break modes
const (
	BreakAuto   = "AUTO"
	BreakManual = "MANUAL"
	BreakFixed  = "FIXED"
)

type BreakRule struct {
	Type                         string    `json:"type"`
	DefaultBreakMinutesFor8Hours *int      `json:"defaultBreakMinutesFor8Hours,omitempty"`
	MandatoryBreakMinutes        *int      `json:"mandatoryBreakMinutes,omitempty"`
	FixedBreakStart              TimeOfDay `json:"fixedBreakStart,omitempty"`
	FixedBreakEnd                TimeOfDay `json:"fixedBreakEnd,omitempty"`
	MaxDailyBreakMinutes         *int      `json:"maxDailyBreakMinutes,omitempty"`
}

func (*BreakRule) Block() BlockName { return BlockBreak }
func (*BreakRule) sealed()          {}

type LatenessRule struct {
	LatenessGraceMinutes   *int `json:"latenessGraceMinutes,omitempty"`
	EarlyLeaveGraceMinutes *int `json:"earlyLeaveGraceMinutes,omitempty"`
	MonthlyAllowedCount    *int `json:"monthlyAllowedCount,omitempty"`
}

func (*LatenessRule) Block() BlockName { return BlockLateness }
func (*LatenessRule) sealed()          {}

type GoOutRule struct {
	MaxSingleGoOutMinutes *int `json:"maxSingleGoOutMinutes,omitempty"`
	MaxDailyGoOutMinutes  *int `json:"maxDailyGoOutMinutes,omitempty"`
}

func (*GoOutRule) Block() BlockName { return BlockGoOut }
func (*GoOutRule) sealed()          {}

// Clock-out limit types
const (
	LimitFixedPlusHours = "FIXED_PLUS_HOURS"
	LimitEndOfDay       = "END_OF_DAY"
	LimitWorkDuration   = "WORK_DURATION"
)

type ClockOutRule struct {
	LimitType              string `json:"limitType,omitempty"`
	MaxHoursAfterWorkEnd   *int   `json:"maxHoursAfterWorkEnd,omitempty"`
	MaxWorkDurationHours   *int   `json:"maxWorkDurationHours,omitempty"`
	AutoClockOutEnabled    bool   `json:"autoClockOutEnabled,omitempty"`
	AutoClockOutAfterHours *int   `json:"autoClockOutAfterHours,omitempty"`
}

func (*ClockOutRule) Block() BlockName { return BlockClockOut }
func (*ClockOutRule) sealed()          {}

type OvertimeRule struct {
	MaxWeeklyOvertimeMinutes *int             `json:"maxWeeklyOvertimeMinutes,omitempty"`
	OvertimeRate             *decimal.Decimal `json:"overtimeRate,omitempty"`
	NightWorkRate            *decimal.Decimal `json:"nightWorkRate,omitempty"`
	HolidayWorkRate          *decimal.Decimal `json:"holidayWorkRate,omitempty"`
	HolidayOvertimeRate      *decimal.Decimal `json:"holidayOvertimeRate,omitempty"`
	AllowNightWork           bool             `json:"allowNightWork,omitempty"`
	AllowHolidayWork         bool             `json:"allowHolidayWork,omitempty"`
}

func (*OvertimeRule) Block() BlockName { return BlockOvertime }
func (*OvertimeRule) sealed()          {}

// Leave rule enums
const (
	AccrualTypeAccrual = "ACCRUAL"
	AccrualTypeManual  = "MANUAL"

	RequestUnitDay     = "DAY"
	RequestUnitHalfDay = "HALF_DAY"
	RequestUnitHour    = "HOUR"

	LimitPeriodMonthly = "MONTHLY"
	LimitPeriodYearly  = "YEARLY"

	StandardJoinDate   = "JOIN_DATE"
	StandardFiscalYear = "FISCAL_YEAR"
)

type AdditionalLeaveRule struct {
	AfterYears     int `json:"afterYears"`
	AdditionalDays int `json:"additionalDays"`
}

type LeaveRule struct {
	DefaultDays         *int   `json:"defaultDays,omitempty"`
	AccrualType         string `json:"accrualType,omitempty"`
	MinimumRequestUnit  string `json:"minimumRequestUnit,omitempty"`
	RequestDeadlineDays *int   `json:"requestDeadlineDays,omitempty"`

	FirstYearMaxAccrual             *int     `json:"firstYearMaxAccrual,omitempty"`
	MonthlyAccrualDays              *int     `json:"monthlyAccrualDays,omitempty"`
	MinimumAttendanceRateForAccrual *float64 `json:"minimumAttendanceRateForAccrual,omitempty"`
	StandardType                    string   `json:"standardType,omitempty"`

	LimitPeriod          string `json:"limitPeriod,omitempty"`
	MaxDaysPerPeriod     *int   `json:"maxDaysPerPeriod,omitempty"`
	MaxSplitCount        *int   `json:"maxSplitCount,omitempty"`
	MinConsecutiveDays   *int   `json:"minConsecutiveDays,omitempty"`
	MaxDaysFromEventDate *int   `json:"maxDaysFromEventDate,omitempty"`

	BaseAnnualLeaveForOverOneYear *int                  `json:"baseAnnualLeaveForOverOneYear,omitempty"`
	AdditionalAnnualLeaveRules    []AdditionalLeaveRule `json:"additionalAnnualLeaveRules,omitempty"`
	MaximumAnnualLeaveLimit       *int                  `json:"maximumAnnualLeaveLimit,omitempty"`
}

func (*LeaveRule) Block() BlockName { return BlockLeave }
func (*LeaveRule) sealed()          {}

type TripRule struct {
	Type                string           `json:"type"`
	PerDiemAmount       *decimal.Decimal `json:"perDiemAmount,omitempty"`
	AccommodationLimit  *decimal.Decimal `json:"accommodationLimit,omitempty"`
	TransportationLimit *decimal.Decimal `json:"transportationLimit,omitempty"`
}

func (*TripRule) Block() BlockName { return BlockTrip }
func (*TripRule) sealed()          {}

// Authentication methods
const (
	AuthMethodGPS       = "GPS"
	AuthMethodNetworkIP = "NETWORK_IP"
)

type AuthDetails struct {
	GPSRadiusMeters *float64 `json:"gpsRadiusMeters,omitempty"`
	OfficeLatitude  *float64 `json:"officeLatitude,omitempty"`
	OfficeLongitude *float64 `json:"officeLongitude,omitempty"`
	AllowedIPs      []string `json:"allowedIps,omitempty"`
}

type AuthMethodRule struct {
	DeviceType string      `json:"deviceType"`
	AuthMethod string      `json:"authMethod"`
	Details    AuthDetails `json:"details"`
}

type AuthRule struct {
	Methods []AuthMethodRule `json:"methods"`
}

func (*AuthRule) Block() BlockName { return BlockAuth }
func (*AuthRule) sealed()          {}

// MethodFor returns the method configured for a device type.
func (r *AuthRule) MethodFor(deviceType string) (AuthMethodRule, bool) {
	if r == nil {
		return AuthMethodRule{}, false
	}
	for _, m := range r.Methods {
		if m.DeviceType == deviceType {
			return m, true
		}
	}
	return AuthMethodRule{}, false
}

// TimeOfDay is a wall clock time in "HH:mm".
type TimeOfDay string

// Parse returns hour and minute.
func (t TimeOfDay) Parse() (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", string(t))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: %w", string(t), err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() (int, error) {
	h, m, err := t.Parse()
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// On places the clock time on the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) (time.Time, error) {
	h, m, err := t.Parse()
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, date.Location()), nil
}

func (t TimeOfDay) IsZero() bool { return t == "" }
