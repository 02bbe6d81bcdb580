package leave

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
)

// BalanceRepository - interface for member_balances table
type BalanceRepository interface {
	// Get returns ErrBalanceNotFound when there is no row.
	Get(ctx context.Context, memberID string, typeCode policy.TypeCode, year int) (MemberBalance, error)

	// CreateIfAbsent inserts b unless a row for the same key exists. created
	// reports whether the insert happened.
	CreateIfAbsent(ctx context.Context, b MemberBalance) (created bool, err error)

	Update(ctx context.Context, b MemberBalance) error

	ListByMember(ctx context.Context, memberID string, year int) ([]MemberBalance, error)
}

// RequestRepository - read-only access to the requests table
type RequestRepository interface {
	// HasApprovedFullDayLeave reports an approved DAY request of a
	// balance-deductible type covering date.
	HasApprovedFullDayLeave(ctx context.Context, memberID string, date time.Time) (bool, error)

	// ApprovedLeaveOverlapping returns approved balance-deductible and
	// business trip requests covering date, across all companies.
	ApprovedLeaveOverlapping(ctx context.Context, date time.Time) ([]Request, error)

	// MemberIDsOnApprovedLeave returns members with any approved leave
	// covering date.
	MemberIDsOnApprovedLeave(ctx context.Context, date time.Time) ([]string, error)

	HasApprovedDevice(ctx context.Context, memberID, deviceID, deviceType string) (bool, error)

	// ListOpenByMemberAndType returns the member's pending and approved
	// requests of typeCode that start within [from, to].
	ListOpenByMemberAndType(ctx context.Context, memberID string, typeCode policy.TypeCode, from, to time.Time) ([]Request, error)
}
