package attendance

import "errors"

// Attendance domain errors
var (
	// Clock state errors
	ErrAlreadyClockedIn  = errors.New("already clocked in today")
	ErrNotClockedIn      = errors.New("not clocked in")
	ErrAlreadyClockedOut = errors.New("already clocked out")
	ErrOnApprovedLeave   = errors.New("an approved full-day leave exists for today")
	ErrAlreadyOnGoOut    = errors.New("a go-out is already in progress")
	ErrNotOnGoOut        = errors.New("no go-out in progress")
	ErrAlreadyOnBreak    = errors.New("a break is already in progress")
	ErrNotOnBreak        = errors.New("no break in progress")

	// Authentication errors
	ErrDeviceNotApproved       = errors.New("device is not approved for this member")
	ErrAuthMethodNotConfigured = errors.New("no authentication method configured for this device type")
	ErrOutsideAllowedRadius    = errors.New("outside the allowed radius")
	ErrIPNotAllowed            = errors.New("client IP is not in the allowed list")
	ErrLocationRequired        = errors.New("location is required for GPS authentication")

	// Persistence errors
	ErrAttendanceNotFound     = errors.New("attendance record not found")
	ErrDuplicateAttendance    = errors.New("attendance record already exists for this date")
	ErrConcurrentModification = errors.New("attendance record was modified concurrently")

	ErrUnsupportedEventType = errors.New("unsupported event type")
	ErrEventOutOfOrder      = errors.New("event time is before the start of the interval")
)

// Rule sentinels. A *RuleError unwraps to one of these.
var (
	ErrHalfDayAMClockInTooLate   = errors.New("half-day AM clock-in is too late")
	ErrHalfDayPMClockOutTooEarly = errors.New("half-day PM clock-out is too early")
	ErrOutsideClockInWindow      = errors.New("clock-in outside the allowed window")
	ErrOutsideClockOutWindow     = errors.New("clock-out outside the allowed window")
	ErrWorkingHoursExceeded      = errors.New("working hours limit exceeded")
	ErrBreakLimitExceeded        = errors.New("daily break limit exceeded")
	ErrGoOutLimitExceeded        = errors.New("go-out limit exceeded")
	ErrManualBreakNotAllowed     = errors.New("manual break recording is not allowed by the policy")
	ErrMandatoryBreakNotMet      = errors.New("statutory minimum break not met")
	ErrInvalidPolicyTime         = errors.New("policy contains an invalid time of day")
)

// RuleError is a business-rule violation raised by a clock event. Message
// names the concrete limit that was breached.
type RuleError struct {
	Rule    error
	Message string
}

func (e *RuleError) Error() string {
	return e.Message
}

func (e *RuleError) Unwrap() error {
	return e.Rule
}

// NewRuleError builds a RuleError for rule.
func NewRuleError(rule error, message string) error {
	return &RuleError{Rule: rule, Message: message}
}
