package leave

import "errors"

var (
	ErrBalanceNotFound     = errors.New("leave balance not found")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrInvalidRequestUnit  = errors.New("invalid request unit")
	ErrInvalidRequestRange = errors.New("request end is before its start")
	ErrMemberNotEligible   = errors.New("member is not eligible for annual leave accrual")

	ErrRequestUnitNotAllowed = errors.New("request unit is finer than the policy allows")
	ErrRequestDeadlinePassed = errors.New("request is not made far enough in advance")
	ErrBelowMinimumDays      = errors.New("request is shorter than the minimum consecutive days")
	ErrSplitCountExceeded    = errors.New("maximum number of split requests reached")
	ErrPeriodLimitExceeded   = errors.New("request exceeds the days allowed in the period")
)
