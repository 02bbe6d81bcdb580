package attendance

import (
	"context"
	"time"
)

// AttendanceService records clock events and exposes daily records.
type AttendanceService interface {
	// RecordEvent authenticates and applies a clock event to the member's
	// record for the event date.
	RecordEvent(ctx context.Context, req EventRequest) (DailyAttendanceResponse, error)

	GetDaily(ctx context.Context, memberID string, date time.Time) (DailyAttendanceResponse, error)

	ListMyAttendance(ctx context.Context, filter MyAttendanceFilter) ([]DailyAttendanceResponse, error)

	// Correct overwrites clock data and re-derives the computed fields.
	Correct(ctx context.Context, req CorrectionRequest) (DailyAttendanceResponse, error)
}
