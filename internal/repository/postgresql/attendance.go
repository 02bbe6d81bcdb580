package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const dailyAttendanceColumns = `id, member_id, company_id, attendance_date, status,
	first_clock_in, last_clock_out,
	worked_minutes, overtime_minutes, total_break_minutes, total_go_out_minutes,
	is_late, late_minutes, is_early_leave, early_leave_minutes,
	daytime_overtime_minutes, night_work_minutes, holiday_work_minutes,
	go_out_started_at, break_started_at,
	version, created_at, updated_at`

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.DailyAttendanceRepository {
	return &attendanceRepository{db: db}
}

func scanDailyAttendance(row pgx.Row) (attendance.DailyAttendance, error) {
	var a attendance.DailyAttendance
	err := row.Scan(
		&a.ID, &a.MemberID, &a.CompanyID, &a.Date, &a.Status,
		&a.FirstClockIn, &a.LastClockOut,
		&a.WorkedMinutes, &a.OvertimeMinutes, &a.TotalBreakMinutes, &a.TotalGoOutMinutes,
		&a.IsLate, &a.LateMinutes, &a.IsEarlyLeave, &a.EarlyLeaveMinutes,
		&a.DaytimeOvertimeMinutes, &a.NightWorkMinutes, &a.HolidayWorkMinutes,
		&a.GoOutStartedAt, &a.BreakStartedAt,
		&a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func collectDailyAttendances(rows pgx.Rows) ([]attendance.DailyAttendance, error) {
	defer rows.Close()

	out := make([]attendance.DailyAttendance, 0)
	for rows.Next() {
		a, err := scanDailyAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create implements attendance.DailyAttendanceRepository.
func (r *attendanceRepository) Create(ctx context.Context, a attendance.DailyAttendance) (attendance.DailyAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO daily_attendances (
			member_id, company_id, attendance_date, status,
			first_clock_in, last_clock_out,
			worked_minutes, overtime_minutes, total_break_minutes, total_go_out_minutes,
			is_late, late_minutes, is_early_leave, early_leave_minutes,
			daytime_overtime_minutes, night_work_minutes, holiday_work_minutes,
			go_out_started_at, break_started_at, version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, 1
		) RETURNING id, version, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		a.MemberID, a.CompanyID, a.Date, a.Status,
		a.FirstClockIn, a.LastClockOut,
		a.WorkedMinutes, a.OvertimeMinutes, a.TotalBreakMinutes, a.TotalGoOutMinutes,
		a.IsLate, a.LateMinutes, a.IsEarlyLeave, a.EarlyLeaveMinutes,
		a.DaytimeOvertimeMinutes, a.NightWorkMinutes, a.HolidayWorkMinutes,
		a.GoOutStartedAt, a.BreakStartedAt,
	).Scan(&a.ID, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return attendance.DailyAttendance{}, attendance.ErrDuplicateAttendance
	}
	if err != nil {
		return attendance.DailyAttendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}
	return a, nil
}

func (r *attendanceRepository) getByMemberAndDate(ctx context.Context, memberID string, date time.Time, lock string) (*attendance.DailyAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + dailyAttendanceColumns + `
		FROM daily_attendances
		WHERE member_id = $1 AND attendance_date = $2::date ` + lock

	a, err := scanDailyAttendance(q.QueryRow(ctx, query, memberID, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return &a, nil
}

// GetByMemberAndDate implements attendance.DailyAttendanceRepository.
func (r *attendanceRepository) GetByMemberAndDate(ctx context.Context, memberID string, date time.Time) (*attendance.DailyAttendance, error) {
	return r.getByMemberAndDate(ctx, memberID, date, "")
}

// GetByMemberAndDateForUpdate implements attendance.DailyAttendanceRepository.
func (r *attendanceRepository) GetByMemberAndDateForUpdate(ctx context.Context, memberID string, date time.Time) (*attendance.DailyAttendance, error) {
	return r.getByMemberAndDate(ctx, memberID, date, "FOR UPDATE")
}

// GetByID implements attendance.DailyAttendanceRepository.
func (r *attendanceRepository) GetByID(ctx context.Context, id string, companyID string) (attendance.DailyAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + dailyAttendanceColumns + `
		FROM daily_attendances
		WHERE id = $1 AND company_id = $2`

	a, err := scanDailyAttendance(q.QueryRow(ctx, query, id, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return attendance.DailyAttendance{}, attendance.ErrAttendanceNotFound
	}
	if err != nil {
		return attendance.DailyAttendance{}, fmt.Errorf("failed to get attendance: %w", err)
	}
	return a, nil
}

// Update implements attendance.DailyAttendanceRepository.
func (r *attendanceRepository) Update(ctx context.Context, a attendance.DailyAttendance) (attendance.DailyAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE daily_attendances SET
			status = $3,
			first_clock_in = $4,
			last_clock_out = $5,
			worked_minutes = $6,
			overtime_minutes = $7,
			total_break_minutes = $8,
			total_go_out_minutes = $9,
			is_late = $10,
			late_minutes = $11,
			is_early_leave = $12,
			early_leave_minutes = $13,
			daytime_overtime_minutes = $14,
			night_work_minutes = $15,
			holiday_work_minutes = $16,
			go_out_started_at = $17,
			break_started_at = $18,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`

	err := q.QueryRow(ctx, query,
		a.ID, a.Version, a.Status,
		a.FirstClockIn, a.LastClockOut,
		a.WorkedMinutes, a.OvertimeMinutes, a.TotalBreakMinutes, a.TotalGoOutMinutes,
		a.IsLate, a.LateMinutes, a.IsEarlyLeave, a.EarlyLeaveMinutes,
		a.DaytimeOvertimeMinutes, a.NightWorkMinutes, a.HolidayWorkMinutes,
		a.GoOutStartedAt, a.BreakStartedAt,
	).Scan(&a.Version, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM daily_attendances WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
			return attendance.DailyAttendance{}, fmt.Errorf("failed to check attendance: %w", err)
		}
		if !exists {
			return attendance.DailyAttendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.DailyAttendance{}, attendance.ErrConcurrentModification
	}
	if err != nil {
		return attendance.DailyAttendance{}, fmt.Errorf("failed to update attendance: %w", err)
	}
	return a, nil
}

// ListByMember implements attendance.DailyAttendanceRepository.
func (r *attendanceRepository) ListByMember(ctx context.Context, filter attendance.MyAttendanceFilter) ([]attendance.DailyAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + dailyAttendanceColumns + `
		FROM daily_attendances
		WHERE member_id = $1
		  AND attendance_date BETWEEN $2::date AND $3::date
		ORDER BY attendance_date`

	rows, err := q.Query(ctx, query, filter.MemberID, filter.From, filter.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return collectDailyAttendances(rows)
}

// ListOpenClockIns implements attendance.DailyAttendanceRepository.
func (r *attendanceRepository) ListOpenClockIns(ctx context.Context, date time.Time, statuses []attendance.Status) ([]attendance.DailyAttendance, error) {
	q := GetQuerier(ctx, r.db)

	codes := make([]string, 0, len(statuses))
	for _, s := range statuses {
		codes = append(codes, string(s))
	}

	query := `SELECT ` + dailyAttendanceColumns + `
		FROM daily_attendances
		WHERE attendance_date = $1::date
		  AND first_clock_in IS NOT NULL
		  AND last_clock_out IS NULL
		  AND status = ANY($2)
		ORDER BY member_id`

	rows, err := q.Query(ctx, query, date, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to list open clock-ins: %w", err)
	}
	return collectDailyAttendances(rows)
}

// ListRecentlyActiveMembers implements attendance.DailyAttendanceRepository.
func (r *attendanceRepository) ListRecentlyActiveMembers(ctx context.Context, since time.Time) ([]attendance.MemberRef, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT DISTINCT ON (member_id) member_id, company_id
		FROM daily_attendances
		WHERE attendance_date >= $1::date
		ORDER BY member_id, attendance_date DESC
	`

	rows, err := q.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list active members: %w", err)
	}
	defer rows.Close()

	refs := make([]attendance.MemberRef, 0)
	for rows.Next() {
		var ref attendance.MemberRef
		if err := rows.Scan(&ref.MemberID, &ref.CompanyID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// MemberIDsWithAttendanceOn implements attendance.DailyAttendanceRepository.
func (r *attendanceRepository) MemberIDsWithAttendanceOn(ctx context.Context, date time.Time) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT member_id FROM daily_attendances WHERE attendance_date = $1::date`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list members with attendance: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// BulkCreate implements attendance.DailyAttendanceRepository.
func (r *attendanceRepository) BulkCreate(ctx context.Context, rows []attendance.DailyAttendance) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	q := GetQuerier(ctx, r.db)

	memberIDs := make([]string, 0, len(rows))
	companyIDs := make([]string, 0, len(rows))
	dates := make([]time.Time, 0, len(rows))
	statuses := make([]string, 0, len(rows))
	for _, a := range rows {
		memberIDs = append(memberIDs, a.MemberID)
		companyIDs = append(companyIDs, a.CompanyID)
		dates = append(dates, a.Date)
		statuses = append(statuses, string(a.Status))
	}

	query := `
		INSERT INTO daily_attendances (member_id, company_id, attendance_date, status, version)
		SELECT m, c, d, s, 1
		FROM unnest($1::uuid[], $2::uuid[], $3::date[], $4::text[]) AS t(m, c, d, s)
		ON CONFLICT (member_id, attendance_date) DO NOTHING
	`

	tag, err := q.Exec(ctx, query, memberIDs, companyIDs, dates, statuses)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk insert attendance: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

type holidayRepository struct {
	db *database.DB
}

func NewHolidayRepository(db *database.DB) attendance.HolidayRepository {
	return &holidayRepository{db: db}
}

// ExistsOn implements attendance.HolidayRepository.
func (r *holidayRepository) ExistsOn(ctx context.Context, companyID string, date time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM company_holidays WHERE company_id = $1 AND holiday_date = $2::date)`,
		companyID, date,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check holiday: %w", err)
	}
	return exists, nil
}
