package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const balanceColumns = `id, member_id, company_id, balance_type_code, year,
	total_granted, total_used, remaining,
	expiration_date, is_paid, is_usable, last_accrued_on, created_at, updated_at`

type balanceRepositoryImpl struct {
	db *database.DB
}

func NewBalanceRepository(db *database.DB) leave.BalanceRepository {
	return &balanceRepositoryImpl{db: db}
}

func scanBalance(row pgx.Row) (leave.MemberBalance, error) {
	var b leave.MemberBalance
	err := row.Scan(
		&b.ID, &b.MemberID, &b.CompanyID, &b.BalanceTypeCode, &b.Year,
		&b.TotalGranted, &b.TotalUsed, &b.Remaining,
		&b.ExpirationDate, &b.IsPaid, &b.IsUsable, &b.LastAccruedOn, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

// Get implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) Get(ctx context.Context, memberID string, typeCode policy.TypeCode, year int) (leave.MemberBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + balanceColumns + `
		FROM member_balances
		WHERE member_id = $1 AND balance_type_code = $2 AND year = $3`

	b, err := scanBalance(q.QueryRow(ctx, query, memberID, typeCode, year))
	if errors.Is(err, pgx.ErrNoRows) {
		return leave.MemberBalance{}, leave.ErrBalanceNotFound
	}
	if err != nil {
		return leave.MemberBalance{}, fmt.Errorf("failed to get balance: %w", err)
	}
	return b, nil
}

// CreateIfAbsent implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) CreateIfAbsent(ctx context.Context, b leave.MemberBalance) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO member_balances (
			member_id, company_id, balance_type_code, year,
			total_granted, total_used, remaining,
			expiration_date, is_paid, is_usable, last_accrued_on
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (member_id, balance_type_code, year) DO NOTHING
	`

	tag, err := q.Exec(ctx, query,
		b.MemberID, b.CompanyID, b.BalanceTypeCode, b.Year,
		b.TotalGranted, b.TotalUsed, b.Remaining,
		b.ExpirationDate, b.IsPaid, b.IsUsable, b.LastAccruedOn,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create balance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Update implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) Update(ctx context.Context, b leave.MemberBalance) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE member_balances SET
			total_granted = $4,
			total_used = $5,
			remaining = $6,
			is_usable = $7,
			last_accrued_on = $8,
			updated_at = now()
		WHERE member_id = $1 AND balance_type_code = $2 AND year = $3
	`

	tag, err := q.Exec(ctx, query,
		b.MemberID, b.BalanceTypeCode, b.Year,
		b.TotalGranted, b.TotalUsed, b.Remaining, b.IsUsable, b.LastAccruedOn,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrBalanceNotFound
	}
	return nil
}

// ListByMember implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) ListByMember(ctx context.Context, memberID string, year int) ([]leave.MemberBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + balanceColumns + `
		FROM member_balances
		WHERE member_id = $1 AND year = $2
		ORDER BY balance_type_code`

	rows, err := q.Query(ctx, query, memberID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	balances := make([]leave.MemberBalance, 0)
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

type requestRepositoryImpl struct {
	db *database.DB
}

func NewRequestRepository(db *database.DB) leave.RequestRepository {
	return &requestRepositoryImpl{db: db}
}

// leaveTypeCodes are the balance-deductible policy types.
var leaveTypeCodes = []string{
	string(policy.TypeAnnualLeave),
	string(policy.TypeMaternityLeave),
	string(policy.TypePaternityLeave),
	string(policy.TypeChildcareLeave),
	string(policy.TypeFamilyCareLeave),
	string(policy.TypeMenstrualLeave),
}

// HasApprovedFullDayLeave implements leave.RequestRepository.
func (r *requestRepositoryImpl) HasApprovedFullDayLeave(ctx context.Context, memberID string, date time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM requests
			WHERE member_id = $1
			  AND status = $2
			  AND request_unit = $3
			  AND policy_type_code = ANY($4)
			  AND start_at::date <= $5::date
			  AND end_at::date >= $5::date
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, memberID, leave.RequestApproved, leave.UnitDay, leaveTypeCodes, date).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check approved leave: %w", err)
	}
	return exists, nil
}

const requestColumns = `id, member_id, company_id, policy_id, policy_type_code, request_unit,
	start_at, end_at, deduction_days, status, device_id, device_type, created_at`

func scanRequests(rows pgx.Rows) ([]leave.Request, error) {
	defer rows.Close()

	requests := make([]leave.Request, 0)
	for rows.Next() {
		var req leave.Request
		if err := rows.Scan(
			&req.ID, &req.MemberID, &req.CompanyID, &req.PolicyID, &req.PolicyTypeCode, &req.Unit,
			&req.StartAt, &req.EndAt, &req.DeductionDays, &req.Status, &req.DeviceID, &req.DeviceType, &req.CreatedAt,
		); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// ApprovedLeaveOverlapping implements leave.RequestRepository.
func (r *requestRepositoryImpl) ApprovedLeaveOverlapping(ctx context.Context, date time.Time) ([]leave.Request, error) {
	q := GetQuerier(ctx, r.db)

	codes := append([]string{string(policy.TypeBusinessTrip)}, leaveTypeCodes...)
	query := `SELECT ` + requestColumns + `
		FROM requests
		WHERE status = $1
		  AND policy_type_code = ANY($2)
		  AND start_at::date <= $3::date
		  AND end_at::date >= $3::date
		ORDER BY created_at`

	rows, err := q.Query(ctx, query, leave.RequestApproved, codes, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved leave: %w", err)
	}
	return scanRequests(rows)
}

// ListOpenByMemberAndType implements leave.RequestRepository.
func (r *requestRepositoryImpl) ListOpenByMemberAndType(ctx context.Context, memberID string, typeCode policy.TypeCode, from, to time.Time) ([]leave.Request, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + requestColumns + `
		FROM requests
		WHERE member_id = $1
		  AND policy_type_code = $2
		  AND status IN ($3, $4)
		  AND start_at::date BETWEEN $5::date AND $6::date
		ORDER BY start_at`

	rows, err := q.Query(ctx, query, memberID, typeCode, leave.RequestPending, leave.RequestApproved, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list open requests: %w", err)
	}
	return scanRequests(rows)
}

// MemberIDsOnApprovedLeave implements leave.RequestRepository.
func (r *requestRepositoryImpl) MemberIDsOnApprovedLeave(ctx context.Context, date time.Time) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT DISTINCT member_id
		FROM requests
		WHERE status = $1
		  AND device_id IS NULL
		  AND start_at::date <= $2::date
		  AND end_at::date >= $2::date
	`

	rows, err := q.Query(ctx, query, leave.RequestApproved, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list members on leave: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// HasApprovedDevice implements leave.RequestRepository.
func (r *requestRepositoryImpl) HasApprovedDevice(ctx context.Context, memberID, deviceID, deviceType string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM requests
			WHERE member_id = $1 AND status = $2 AND device_id = $3 AND device_type = $4
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, memberID, leave.RequestApproved, deviceID, deviceType).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check device approval: %w", err)
	}
	return exists, nil
}
