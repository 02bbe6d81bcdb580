package attendance

import (
	"errors"
	"time"
)

// Status of a member's day.
type Status string

const (
	StatusNormalWork      Status = "AS001"
	StatusBusinessTrip    Status = "AS002"
	StatusAnnualLeave     Status = "AS101"
	StatusHalfDayAM       Status = "AS102"
	StatusHalfDayPM       Status = "AS103"
	StatusSickLeave       Status = "AS104"
	StatusMaternityLeave  Status = "AS105"
	StatusPaternityLeave  Status = "AS106"
	StatusChildcareLeave  Status = "AS107"
	StatusFamilyCareLeave Status = "AS108"
	StatusMenstrualLeave  Status = "AS109"
	StatusAbsent          Status = "AS201"
	StatusUnpaidLeave     Status = "AS202"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNormalWork, StatusBusinessTrip, StatusAnnualLeave, StatusHalfDayAM, StatusHalfDayPM,
		StatusSickLeave, StatusMaternityLeave, StatusPaternityLeave, StatusChildcareLeave,
		StatusFamilyCareLeave, StatusMenstrualLeave, StatusAbsent, StatusUnpaidLeave:
		return true
	}
	return false
}

func (s Status) IsPaid() bool {
	return s != StatusAbsent && s != StatusUnpaidLeave
}

func (s Status) IsHalfDay() bool {
	return s == StatusHalfDayAM || s == StatusHalfDayPM
}

// IsWorking reports statuses that are expected to clock in and out.
func (s Status) IsWorking() bool {
	return s == StatusNormalWork || s == StatusBusinessTrip
}

// EventType of a clock event.
type EventType string

const (
	EventClockIn    EventType = "EVT001"
	EventClockOut   EventType = "EVT002"
	EventGoOut      EventType = "EVT003"
	EventComeBack   EventType = "EVT004"
	EventBreakStart EventType = "EVT005"
	EventBreakEnd   EventType = "EVT006"
)

// RequiresAuthentication reports events gated by device and location checks.
func (e EventType) RequiresAuthentication() bool {
	return e == EventClockIn || e == EventClockOut
}

const (
	DeviceLaptop = "LAPTOP"
	DeviceMobile = "MOBILE"
)

// DailyAttendance is the per (member, date) aggregate. Every write is
// guarded by Version.
type DailyAttendance struct {
	ID        string
	MemberID  string
	CompanyID string
	Date      time.Time
	Status    Status

	FirstClockIn *time.Time
	LastClockOut *time.Time

	WorkedMinutes     int
	OvertimeMinutes   int
	TotalBreakMinutes int
	TotalGoOutMinutes int

	IsLate            bool
	LateMinutes       int
	IsEarlyLeave      bool
	EarlyLeaveMinutes int

	DaytimeOvertimeMinutes int
	NightWorkMinutes       int
	HolidayWorkMinutes     int

	GoOutStartedAt *time.Time
	BreakStartedAt *time.Time

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	errNoGoOutInProgress = errors.New("no go-out in progress")
	errNoBreakInProgress = errors.New("no break in progress")
)

func (a *DailyAttendance) IsClockedIn() bool {
	return a.FirstClockIn != nil && a.LastClockOut == nil
}

func (a *DailyAttendance) IsClockedOut() bool {
	return a.LastClockOut != nil
}

// ApplyClockOut sets the clock-out and derives worked and overtime minutes
// from the recorded break and go-out totals.
func (a *DailyAttendance) ApplyClockOut(clockOut time.Time, standardMinutes int) {
	a.LastClockOut = &clockOut
	if a.FirstClockIn == nil {
		return
	}

	span := int(clockOut.Sub(*a.FirstClockIn).Minutes())
	worked := span - a.TotalBreakMinutes - a.TotalGoOutMinutes
	if worked < 0 {
		worked = 0
	}
	a.WorkedMinutes = worked

	a.OvertimeMinutes = 0
	if standardMinutes > 0 && worked > standardMinutes {
		a.OvertimeMinutes = worked - standardMinutes
	}
}

func (a *DailyAttendance) StartGoOut(at time.Time) {
	a.GoOutStartedAt = &at
}

// PendingGoOutMinutes returns the length of the go-out in progress without recording it.
func (a *DailyAttendance) PendingGoOutMinutes(at time.Time) (int, error) {
	if a.GoOutStartedAt == nil {
		return 0, errNoGoOutInProgress
	}
	return int(at.Sub(*a.GoOutStartedAt).Minutes()), nil
}

// EndGoOut closes the go-out in progress and adds it to the daily total.
func (a *DailyAttendance) EndGoOut(at time.Time) (int, error) {
	minutes, err := a.PendingGoOutMinutes(at)
	if err != nil {
		return 0, err
	}
	a.TotalGoOutMinutes += minutes
	a.GoOutStartedAt = nil
	return minutes, nil
}

func (a *DailyAttendance) StartBreak(at time.Time) {
	a.BreakStartedAt = &at
}

func (a *DailyAttendance) PendingBreakMinutes(at time.Time) (int, error) {
	if a.BreakStartedAt == nil {
		return 0, errNoBreakInProgress
	}
	return int(at.Sub(*a.BreakStartedAt).Minutes()), nil
}

// EndBreak closes the break in progress and adds it to the daily total.
func (a *DailyAttendance) EndBreak(at time.Time) (int, error) {
	minutes, err := a.PendingBreakMinutes(at)
	if err != nil {
		return 0, err
	}
	a.TotalBreakMinutes += minutes
	a.BreakStartedAt = nil
	return minutes, nil
}

// Holiday is a company-designated day off.
type Holiday struct {
	CompanyID string
	Date      time.Time
	Name      string
}

// MemberRef identifies a member together with the company taken from the
// member's most recent attendance row.
type MemberRef struct {
	MemberID  string
	CompanyID string
}
