package response

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/batch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/member"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
)

var ruleCodes = map[error]string{
	attendance.ErrHalfDayAMClockInTooLate:   "HALF_DAY_AM_CLOCK_IN_TOO_LATE",
	attendance.ErrHalfDayPMClockOutTooEarly: "HALF_DAY_PM_CLOCK_OUT_TOO_EARLY",
	attendance.ErrOutsideClockInWindow:      "OUTSIDE_CLOCK_IN_WINDOW",
	attendance.ErrOutsideClockOutWindow:     "OUTSIDE_CLOCK_OUT_WINDOW",
	attendance.ErrWorkingHoursExceeded:      "WORKING_HOURS_EXCEEDED",
	attendance.ErrBreakLimitExceeded:        "BREAK_LIMIT_EXCEEDED",
	attendance.ErrGoOutLimitExceeded:        "GO_OUT_LIMIT_EXCEEDED",
	attendance.ErrManualBreakNotAllowed:     "MANUAL_BREAK_NOT_ALLOWED",
	attendance.ErrMandatoryBreakNotMet:      "MANDATORY_BREAK_NOT_MET",
	attendance.ErrInvalidPolicyTime:         "INVALID_POLICY_TIME",
}

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var violation *policy.RuleViolationError
	if errors.As(err, &violation) {
		details := make(map[string]string, len(violation.Violations))
		for i, v := range violation.Violations {
			details[violationKey(i)] = v
		}
		writeError(w, http.StatusUnprocessableEntity, "POLICY_RULE_VIOLATION", violation.Error(), details)
		return
	}

	var ruleErr *attendance.RuleError
	if errors.As(err, &ruleErr) {
		code, ok := ruleCodes[ruleErr.Rule]
		if !ok {
			code = "RULE_VIOLATION"
		}
		RuleViolation(w, code, ruleErr.Message)
		return
	}

	switch {
	// Auth
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid token")
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")

	// Policy
	case errors.Is(err, policy.ErrPolicyNotFound):
		NotFound(w, "Policy not found")
	case errors.Is(err, policy.ErrNoApplicablePolicy):
		NotFound(w, "No applicable policy")
	case errors.Is(err, policy.ErrMalformedRuleDetails):
		BadRequest(w, "Malformed rule details", nil)
	case errors.Is(err, policy.ErrUnknownTypeCode):
		BadRequest(w, "Unknown policy type code", nil)
	case errors.Is(err, policy.ErrPolicyInactive):
		BadRequest(w, "Policy is not active", nil)

	// Member directory
	case errors.Is(err, member.ErrMemberNotFound):
		NotFound(w, "Member not found")
	case errors.Is(err, member.ErrOrganizationNotFound):
		NotFound(w, "Organization not found")

	// Attendance
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrDuplicateAttendance):
		Conflict(w, "Attendance record already exists for this date")
	case errors.Is(err, attendance.ErrConcurrentModification):
		Conflict(w, "Attendance record was modified concurrently, retry")
	case errors.Is(err, attendance.ErrAlreadyClockedIn),
		errors.Is(err, attendance.ErrNotClockedIn),
		errors.Is(err, attendance.ErrAlreadyClockedOut),
		errors.Is(err, attendance.ErrOnApprovedLeave),
		errors.Is(err, attendance.ErrAlreadyOnGoOut),
		errors.Is(err, attendance.ErrNotOnGoOut),
		errors.Is(err, attendance.ErrAlreadyOnBreak),
		errors.Is(err, attendance.ErrNotOnBreak),
		errors.Is(err, attendance.ErrEventOutOfOrder),
		errors.Is(err, attendance.ErrUnsupportedEventType):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrDeviceNotApproved),
		errors.Is(err, attendance.ErrAuthMethodNotConfigured),
		errors.Is(err, attendance.ErrOutsideAllowedRadius),
		errors.Is(err, attendance.ErrIPNotAllowed):
		Forbidden(w, err.Error())
	case errors.Is(err, attendance.ErrLocationRequired):
		BadRequest(w, err.Error(), nil)

	// Leave
	case errors.Is(err, leave.ErrBalanceNotFound):
		NotFound(w, "Leave balance not found")
	case errors.Is(err, leave.ErrInsufficientBalance):
		BadRequest(w, "Insufficient leave balance", nil)
	case errors.Is(err, leave.ErrInvalidRequestUnit),
		errors.Is(err, leave.ErrInvalidRequestRange),
		errors.Is(err, leave.ErrMemberNotEligible),
		errors.Is(err, leave.ErrRequestUnitNotAllowed),
		errors.Is(err, leave.ErrRequestDeadlinePassed),
		errors.Is(err, leave.ErrBelowMinimumDays),
		errors.Is(err, leave.ErrSplitCountExceeded),
		errors.Is(err, leave.ErrPeriodLimitExceeded):
		BadRequest(w, err.Error(), nil)

	// Batch
	case errors.Is(err, batch.ErrUnknownJob):
		NotFound(w, "Unknown batch job")
	case errors.Is(err, batch.ErrInvalidDate):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, batch.ErrJobRunning):
		Conflict(w, "Batch job is already running")

	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

func violationKey(i int) string {
	return "violation_" + strconv.Itoa(i+1)
}
