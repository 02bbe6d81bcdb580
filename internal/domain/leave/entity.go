package leave

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/shopspring/decimal"
)

// MemberBalance entity. One row per (member, balance type, year).
type MemberBalance struct {
	ID              string
	MemberID        string
	CompanyID       string
	BalanceTypeCode policy.TypeCode
	Year            int

	TotalGranted decimal.Decimal
	TotalUsed    decimal.Decimal
	Remaining    decimal.Decimal

	ExpirationDate time.Time
	IsPaid         bool
	IsUsable       bool

	// LastAccruedOn is the date of the last monthly first-year accrual.
	LastAccruedOn *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMemberBalance returns a usable balance expiring on Dec 31 of year.
func NewMemberBalance(memberID, companyID string, typeCode policy.TypeCode, year int, granted decimal.Decimal, loc *time.Location) MemberBalance {
	b := MemberBalance{
		MemberID:        memberID,
		CompanyID:       companyID,
		BalanceTypeCode: typeCode,
		Year:            year,
		TotalGranted:    granted,
		TotalUsed:       decimal.Zero,
		ExpirationDate:  time.Date(year, time.December, 31, 0, 0, 0, 0, loc),
		IsPaid:          true,
		IsUsable:        true,
	}
	b.derive()
	return b
}

func (b *MemberBalance) derive() {
	b.Remaining = b.TotalGranted.Sub(b.TotalUsed)
}

// Grant adds days to the granted total.
func (b *MemberBalance) Grant(days decimal.Decimal) {
	b.TotalGranted = b.TotalGranted.Add(days)
	b.derive()
}

// Use consumes days. It fails without changing b when the remaining balance
// would go negative.
func (b *MemberBalance) Use(days decimal.Decimal) error {
	if b.Remaining.LessThan(days) {
		return ErrInsufficientBalance
	}
	b.TotalUsed = b.TotalUsed.Add(days)
	b.derive()
	return nil
}

// Restore gives back days consumed by a canceled request.
func (b *MemberBalance) Restore(days decimal.Decimal) {
	b.TotalUsed = b.TotalUsed.Sub(days)
	if b.TotalUsed.IsNegative() {
		b.TotalUsed = decimal.Zero
	}
	b.derive()
}

// AccruedInMonth reports whether a monthly accrual already ran in ref's month.
func (b MemberBalance) AccruedInMonth(ref time.Time) bool {
	if b.LastAccruedOn == nil {
		return false
	}
	return b.LastAccruedOn.Year() == ref.Year() && b.LastAccruedOn.Month() == ref.Month()
}

// MarkAccrued records ref as the last monthly accrual date.
func (b *MemberBalance) MarkAccrued(ref time.Time) {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	b.LastAccruedOn = &day
}

// Set overwrites both totals.
func (b *MemberBalance) Set(granted, used decimal.Decimal) {
	b.TotalGranted = granted
	b.TotalUsed = used
	b.derive()
}

// RequestUnit is the granularity of a leave request.
type RequestUnit string

const (
	UnitDay       RequestUnit = "RU001"
	UnitHalfDayAM RequestUnit = "RU002"
	UnitHalfDayPM RequestUnit = "RU003"
	UnitTimeOff   RequestUnit = "RU004"
)

func (u RequestUnit) IsValid() bool {
	switch u {
	case UnitDay, UnitHalfDayAM, UnitHalfDayPM, UnitTimeOff:
		return true
	}
	return false
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "RS001"
	RequestApproved RequestStatus = "RS002"
	RequestRejected RequestStatus = "RS003"
	RequestCanceled RequestStatus = "RS004"
)

// Request is a leave, trip or device request owned by the approval workflow.
// The engine only reads it.
type Request struct {
	ID             string
	MemberID       string
	CompanyID      string
	PolicyID       *string
	PolicyTypeCode *policy.TypeCode
	Unit           RequestUnit
	StartAt        time.Time
	EndAt          time.Time
	DeductionDays  decimal.Decimal
	Status         RequestStatus

	// Set on device registration requests.
	DeviceID   *string
	DeviceType *string

	CreatedAt time.Time
}

// Covers reports whether the request spans the calendar date of day.
func (r Request) Covers(day time.Time) bool {
	d := dateOf(day)
	return !d.Before(dateOf(r.StartAt)) && !d.After(dateOf(r.EndAt))
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
