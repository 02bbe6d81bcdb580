package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

// EventRequest is a clock event submitted by a member.
type EventRequest struct {
	MemberID   string     `json:"-"`
	CompanyID  string     `json:"-"`
	ClientIP   string     `json:"-"`
	EventType  EventType  `json:"event_type" validate:"required,oneof=EVT001 EVT002 EVT003 EVT004 EVT005 EVT006"`
	DeviceID   string     `json:"device_id"`
	DeviceType string     `json:"device_type" validate:"omitempty,oneof=LAPTOP MOBILE"`
	Latitude   *float64   `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude  *float64   `json:"longitude,omitempty" validate:"omitempty,longitude"`
	EventTime  *time.Time `json:"event_time,omitempty"`
}

func (r *EventRequest) Validate() error {
	errs := validator.Struct(r)

	if validator.IsEmpty(r.MemberID) {
		errs = append(errs, validator.ValidationError{
			Field:   "member_id",
			Message: "member_id is required",
		})
	}

	if r.EventType.RequiresAuthentication() {
		if validator.IsEmpty(r.DeviceID) {
			errs = append(errs, validator.ValidationError{
				Field:   "device_id",
				Message: "device_id is required for clock-in and clock-out",
			})
		}
		if validator.IsEmpty(r.DeviceType) {
			errs = append(errs, validator.ValidationError{
				Field:   "device_type",
				Message: "device_type is required for clock-in and clock-out",
			})
		}
	}

	if (r.Latitude == nil) != (r.Longitude == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude and longitude must be sent together",
		})
	}

	return errs.Err()
}

// CorrectionRequest overwrites clock data of an existing record. Version
// must match the stored row.
type CorrectionRequest struct {
	ID                string     `json:"-"`
	CompanyID         string     `json:"-"`
	Version           int        `json:"version" validate:"gte=1"`
	Status            *Status    `json:"status,omitempty"`
	FirstClockIn      *time.Time `json:"first_clock_in,omitempty"`
	LastClockOut      *time.Time `json:"last_clock_out,omitempty"`
	TotalBreakMinutes *int       `json:"total_break_minutes,omitempty" validate:"omitempty,gte=0"`
}

func (r *CorrectionRequest) Validate() error {
	errs := validator.Struct(r)

	if r.Status != nil && !r.Status.IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "unknown attendance status",
		})
	}

	if r.FirstClockIn != nil && r.LastClockOut != nil && r.LastClockOut.Before(*r.FirstClockIn) {
		errs = append(errs, validator.ValidationError{
			Field:   "last_clock_out",
			Message: "last_clock_out must not be before first_clock_in",
		})
	}

	return errs.Err()
}

type MyAttendanceFilter struct {
	MemberID string
	From     time.Time
	To       time.Time
}

type DailyAttendanceResponse struct {
	ID                     string           `json:"id"`
	MemberID               string           `json:"member_id"`
	CompanyID              string           `json:"company_id"`
	Date                   string           `json:"date"`
	Status                 Status           `json:"status"`
	FirstClockIn           *time.Time       `json:"first_clock_in,omitempty"`
	LastClockOut           *time.Time       `json:"last_clock_out,omitempty"`
	WorkedMinutes          int              `json:"worked_minutes"`
	OvertimeMinutes        int              `json:"overtime_minutes"`
	TotalBreakMinutes      int              `json:"total_break_minutes"`
	TotalGoOutMinutes      int              `json:"total_go_out_minutes"`
	IsLate                 bool             `json:"is_late"`
	LateMinutes            int              `json:"late_minutes"`
	IsEarlyLeave           bool             `json:"is_early_leave"`
	EarlyLeaveMinutes      int              `json:"early_leave_minutes"`
	DaytimeOvertimeMinutes int              `json:"daytime_overtime_minutes"`
	NightWorkMinutes       int              `json:"night_work_minutes"`
	HolidayWorkMinutes     int              `json:"holiday_work_minutes"`
	PremiumMinutes         *decimal.Decimal `json:"premium_minutes,omitempty"`
	Version                int              `json:"version"`
}

func NewDailyAttendanceResponse(a DailyAttendance) DailyAttendanceResponse {
	return DailyAttendanceResponse{
		ID:                     a.ID,
		MemberID:               a.MemberID,
		CompanyID:              a.CompanyID,
		Date:                   a.Date.Format("2006-01-02"),
		Status:                 a.Status,
		FirstClockIn:           a.FirstClockIn,
		LastClockOut:           a.LastClockOut,
		WorkedMinutes:          a.WorkedMinutes,
		OvertimeMinutes:        a.OvertimeMinutes,
		TotalBreakMinutes:      a.TotalBreakMinutes,
		TotalGoOutMinutes:      a.TotalGoOutMinutes,
		IsLate:                 a.IsLate,
		LateMinutes:            a.LateMinutes,
		IsEarlyLeave:           a.IsEarlyLeave,
		EarlyLeaveMinutes:      a.EarlyLeaveMinutes,
		DaytimeOvertimeMinutes: a.DaytimeOvertimeMinutes,
		NightWorkMinutes:       a.NightWorkMinutes,
		HolidayWorkMinutes:     a.HolidayWorkMinutes,
		Version:                a.Version,
	}
}
