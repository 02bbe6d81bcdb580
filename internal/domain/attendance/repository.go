package attendance

import (
	"context"
	"time"
)

// DailyAttendanceRepository defines data access for daily_attendances.
// Update is a compare-and-swap on Version.
type DailyAttendanceRepository interface {
	// Create inserts a new row. A second row for the same member and date
	// returns ErrDuplicateAttendance.
	Create(ctx context.Context, a DailyAttendance) (DailyAttendance, error)

	// GetByMemberAndDate returns nil when no row exists.
	GetByMemberAndDate(ctx context.Context, memberID string, date time.Time) (*DailyAttendance, error)

	// GetByMemberAndDateForUpdate is GetByMemberAndDate holding a row lock
	// until the surrounding transaction ends.
	GetByMemberAndDateForUpdate(ctx context.Context, memberID string, date time.Time) (*DailyAttendance, error)

	GetByID(ctx context.Context, id string, companyID string) (DailyAttendance, error)

	// Update writes a when the stored version equals a.Version and returns the
	// row with the incremented version. A mismatch returns
	// ErrConcurrentModification.
	Update(ctx context.Context, a DailyAttendance) (DailyAttendance, error)

	ListByMember(ctx context.Context, filter MyAttendanceFilter) ([]DailyAttendance, error)

	// ListOpenClockIns returns rows on date with a clock-in, no clock-out and
	// one of statuses.
	ListOpenClockIns(ctx context.Context, date time.Time, statuses []Status) ([]DailyAttendance, error)

	// ListRecentlyActiveMembers returns members with any row dated on or
	// after since.
	ListRecentlyActiveMembers(ctx context.Context, since time.Time) ([]MemberRef, error)

	MemberIDsWithAttendanceOn(ctx context.Context, date time.Time) ([]string, error)

	// BulkCreate inserts rows and silently skips (member, date) pairs that
	// already exist. It returns the number of rows inserted.
	BulkCreate(ctx context.Context, rows []DailyAttendance) (int, error)
}

type HolidayRepository interface {
	ExistsOn(ctx context.Context, companyID string, date time.Time) (bool, error)
}
