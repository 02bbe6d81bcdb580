package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
)

type AttendanceServiceImpl struct {
	attendance.DailyAttendanceRepository
	requests  leave.RequestRepository
	resolver  policy.Resolver
	auth      *Authenticator
	calc      *Calculator
	validator *Validator
	tx        database.Transactor
	loc       *time.Location
	now       func() time.Time
}

// RecordEvent implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RecordEvent(ctx context.Context, req attendance.EventRequest) (attendance.DailyAttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.DailyAttendanceResponse{}, err
	}

	at := s.now()
	if req.EventTime != nil {
		at = *req.EventTime
	}
	at = at.In(s.loc)
	date := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, s.loc)

	if req.EventType.RequiresAuthentication() {
		if err := s.auth.Authenticate(ctx, req, date); err != nil {
			return attendance.DailyAttendanceResponse{}, err
		}
	}

	var record attendance.DailyAttendance
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		switch req.EventType {
		case attendance.EventClockIn:
			record, err = s.clockIn(ctx, req, at, date)
		case attendance.EventClockOut:
			record, err = s.clockOut(ctx, req, at, date)
		case attendance.EventGoOut:
			record, err = s.goOut(ctx, req, at, date)
		case attendance.EventComeBack:
			record, err = s.comeBack(ctx, req, at, date)
		case attendance.EventBreakStart:
			record, err = s.breakStart(ctx, req, at, date)
		case attendance.EventBreakEnd:
			record, err = s.breakEnd(ctx, req, at, date)
		default:
			err = attendance.ErrUnsupportedEventType
		}
		return err
	})
	if err != nil {
		return attendance.DailyAttendanceResponse{}, err
	}

	slog.Info("Attendance event recorded",
		"member_id", req.MemberID,
		"event_type", req.EventType,
		"date", date.Format("2006-01-02"),
		"version", record.Version,
	)
	return s.respond(ctx, record), nil
}

func (s *AttendanceServiceImpl) standardPolicy(ctx context.Context, memberID, companyID string, date time.Time) (policy.Policy, error) {
	p, err := s.resolver.Resolve(ctx, memberID, companyID, policy.TypeStandardWork, date)
	if err != nil {
		if errors.Is(err, policy.ErrNoApplicablePolicy) {
			return policy.Policy{}, err
		}
		return policy.Policy{}, fmt.Errorf("failed to resolve standard work policy: %w", err)
	}
	return p, nil
}

func (s *AttendanceServiceImpl) save(ctx context.Context, a attendance.DailyAttendance) (attendance.DailyAttendance, error) {
	updated, err := s.DailyAttendanceRepository.Update(ctx, a)
	if err != nil {
		if errors.Is(err, attendance.ErrConcurrentModification) || errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.DailyAttendance{}, err
		}
		return attendance.DailyAttendance{}, fmt.Errorf("failed to update daily attendance: %w", err)
	}
	return updated, nil
}

func (s *AttendanceServiceImpl) clockIn(ctx context.Context, req attendance.EventRequest, at, date time.Time) (attendance.DailyAttendance, error) {
	onLeave, err := s.requests.HasApprovedFullDayLeave(ctx, req.MemberID, date)
	if err != nil {
		return attendance.DailyAttendance{}, fmt.Errorf("failed to check approved leave: %w", err)
	}
	if onLeave {
		return attendance.DailyAttendance{}, attendance.ErrOnApprovedLeave
	}

	p, err := s.standardPolicy(ctx, req.MemberID, req.CompanyID, date)
	if err != nil {
		return attendance.DailyAttendance{}, err
	}

	if err := s.validator.ValidateClockInTimeRange(at, p); err != nil {
		return attendance.DailyAttendance{}, err
	}

	existing, err := s.GetByMemberAndDateForUpdate(ctx, req.MemberID, date)
	if err != nil {
		return attendance.DailyAttendance{}, fmt.Errorf("failed to get daily attendance: %w", err)
	}

	if existing != nil {
		a := *existing
		switch {
		case a.Status == attendance.StatusHalfDayAM && a.FirstClockIn == nil:
			if err := s.validator.ValidateHalfDayAMClockIn(a, p, at); err != nil {
				return attendance.DailyAttendance{}, err
			}
			a.FirstClockIn = &at
		case a.Status == attendance.StatusHalfDayPM && a.FirstClockIn == nil:
			a.FirstClockIn = &at
			if err := s.validator.CheckLateness(&a, p); err != nil {
				return attendance.DailyAttendance{}, err
			}
		default:
			return attendance.DailyAttendance{}, attendance.ErrAlreadyClockedIn
		}
		return s.save(ctx, a)
	}

	if err := s.validator.ValidateWorkingHoursLimit(date, p, nil, at); err != nil {
		return attendance.DailyAttendance{}, err
	}

	a := attendance.DailyAttendance{
		MemberID:     req.MemberID,
		CompanyID:    req.CompanyID,
		Date:         date,
		Status:       attendance.StatusNormalWork,
		FirstClockIn: &at,
	}
	if err := s.validator.CheckLateness(&a, p); err != nil {
		return attendance.DailyAttendance{}, err
	}

	created, err := s.Create(ctx, a)
	if err != nil {
		if errors.Is(err, attendance.ErrDuplicateAttendance) {
			return attendance.DailyAttendance{}, attendance.ErrAlreadyClockedIn
		}
		return attendance.DailyAttendance{}, fmt.Errorf("failed to create daily attendance: %w", err)
	}
	return created, nil
}

// openRecord loads today's row for update and requires it to be clocked in
// and not yet clocked out.
func (s *AttendanceServiceImpl) openRecord(ctx context.Context, memberID string, date time.Time) (attendance.DailyAttendance, error) {
	existing, err := s.GetByMemberAndDateForUpdate(ctx, memberID, date)
	if err != nil {
		return attendance.DailyAttendance{}, fmt.Errorf("failed to get daily attendance: %w", err)
	}
	if existing == nil || existing.FirstClockIn == nil {
		return attendance.DailyAttendance{}, attendance.ErrNotClockedIn
	}
	if existing.IsClockedOut() {
		return attendance.DailyAttendance{}, attendance.ErrAlreadyClockedOut
	}
	return *existing, nil
}

func (s *AttendanceServiceImpl) clockOut(ctx context.Context, req attendance.EventRequest, at, date time.Time) (attendance.DailyAttendance, error) {
	a, err := s.openRecord(ctx, req.MemberID, date)
	if err != nil {
		return attendance.DailyAttendance{}, err
	}

	p, err := s.standardPolicy(ctx, req.MemberID, req.CompanyID, date)
	if err != nil {
		return attendance.DailyAttendance{}, err
	}

	if err := s.validator.ValidateClockOutTimeRange(at, p); err != nil {
		return attendance.DailyAttendance{}, err
	}

	if a.Status == attendance.StatusHalfDayPM {
		err = s.validator.ValidateHalfDayPMClockOut(a, p, at)
	} else {
		err = s.validator.ValidateWorkingHoursLimit(a.Date, p, a.FirstClockIn, at)
	}
	if err != nil {
		return attendance.DailyAttendance{}, err
	}

	// An interval still open at clock-out ends with it.
	if a.GoOutStartedAt != nil {
		if _, err := a.EndGoOut(at); err != nil {
			return attendance.DailyAttendance{}, err
		}
	}
	if a.BreakStartedAt != nil {
		if _, err := a.EndBreak(at); err != nil {
			return attendance.DailyAttendance{}, err
		}
	}

	if minutes, apply := AutoBreakMinutes(p, a, at); apply {
		a.TotalBreakMinutes = minutes
	}

	a.ApplyClockOut(at, RequiredWorkMinutes(a, StandardWorkMinutes(p)))

	if a.Status != attendance.StatusHalfDayPM {
		if err := s.validator.CheckEarlyLeave(&a, p); err != nil {
			return attendance.DailyAttendance{}, err
		}
	}

	if err := s.validator.ValidateMandatoryBreak(a, p); err != nil {
		return attendance.DailyAttendance{}, err
	}

	holiday, err := s.calc.IsHoliday(ctx, a.CompanyID, a.Date)
	if err != nil {
		return attendance.DailyAttendance{}, err
	}
	s.calc.WorkBreakdown(a, holiday).Apply(&a)

	return s.save(ctx, a)
}

func (s *AttendanceServiceImpl) goOut(ctx context.Context, req attendance.EventRequest, at, date time.Time) (attendance.DailyAttendance, error) {
	a, err := s.openRecord(ctx, req.MemberID, date)
	if err != nil {
		return attendance.DailyAttendance{}, err
	}
	if a.GoOutStartedAt != nil {
		return attendance.DailyAttendance{}, attendance.ErrAlreadyOnGoOut
	}

	a.StartGoOut(at)
	return s.save(ctx, a)
}

func (s *AttendanceServiceImpl) comeBack(ctx context.Context, req attendance.EventRequest, at, date time.Time) (attendance.DailyAttendance, error) {
	a, err := s.openRecord(ctx, req.MemberID, date)
	if err != nil {
		return attendance.DailyAttendance{}, err
	}

	minutes, err := a.PendingGoOutMinutes(at)
	if err != nil {
		return attendance.DailyAttendance{}, attendance.ErrNotOnGoOut
	}
	if minutes < 0 {
		return attendance.DailyAttendance{}, attendance.ErrEventOutOfOrder
	}

	p, err := s.standardPolicy(ctx, req.MemberID, req.CompanyID, date)
	if err != nil {
		return attendance.DailyAttendance{}, err
	}
	if err := s.validator.ValidateGoOut(a, p, minutes); err != nil {
		return attendance.DailyAttendance{}, err
	}

	if _, err := a.EndGoOut(at); err != nil {
		return attendance.DailyAttendance{}, err
	}
	return s.save(ctx, a)
}

func (s *AttendanceServiceImpl) breakStart(ctx context.Context, req attendance.EventRequest, at, date time.Time) (attendance.DailyAttendance, error) {
	a, err := s.openRecord(ctx, req.MemberID, date)
	if err != nil {
		return attendance.DailyAttendance{}, err
	}

	p, err := s.standardPolicy(ctx, req.MemberID, req.CompanyID, date)
	if err != nil {
		return attendance.DailyAttendance{}, err
	}
	if err := s.validator.ValidateManualBreakMode(p); err != nil {
		return attendance.DailyAttendance{}, err
	}
	if a.BreakStartedAt != nil {
		return attendance.DailyAttendance{}, attendance.ErrAlreadyOnBreak
	}

	a.StartBreak(at)
	return s.save(ctx, a)
}

func (s *AttendanceServiceImpl) breakEnd(ctx context.Context, req attendance.EventRequest, at, date time.Time) (attendance.DailyAttendance, error) {
	a, err := s.openRecord(ctx, req.MemberID, date)
	if err != nil {
		return attendance.DailyAttendance{}, err
	}

	p, err := s.standardPolicy(ctx, req.MemberID, req.CompanyID, date)
	if err != nil {
		return attendance.DailyAttendance{}, err
	}
	if err := s.validator.ValidateManualBreakMode(p); err != nil {
		return attendance.DailyAttendance{}, err
	}

	minutes, err := a.PendingBreakMinutes(at)
	if err != nil {
		return attendance.DailyAttendance{}, attendance.ErrNotOnBreak
	}
	if minutes < 0 {
		return attendance.DailyAttendance{}, attendance.ErrEventOutOfOrder
	}
	if err := s.validator.ValidateBreak(a, p, minutes); err != nil {
		return attendance.DailyAttendance{}, err
	}

	if _, err := a.EndBreak(at); err != nil {
		return attendance.DailyAttendance{}, err
	}
	return s.save(ctx, a)
}

// GetDaily implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetDaily(ctx context.Context, memberID string, date time.Time) (attendance.DailyAttendanceResponse, error) {
	a, err := s.GetByMemberAndDate(ctx, memberID, date)
	if err != nil {
		return attendance.DailyAttendanceResponse{}, fmt.Errorf("failed to get daily attendance: %w", err)
	}
	if a == nil {
		return attendance.DailyAttendanceResponse{}, attendance.ErrAttendanceNotFound
	}
	return s.respond(ctx, *a), nil
}

// ListMyAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListMyAttendance(ctx context.Context, filter attendance.MyAttendanceFilter) ([]attendance.DailyAttendanceResponse, error) {
	if filter.To.Before(filter.From) {
		return nil, validator.ValidationErrors{{Field: "to", Message: "to must not be before from"}}
	}

	rows, err := s.ListByMember(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}

	out := make([]attendance.DailyAttendanceResponse, 0, len(rows))
	for _, a := range rows {
		out = append(out, attendance.NewDailyAttendanceResponse(a))
	}
	return out, nil
}

// Correct implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Correct(ctx context.Context, req attendance.CorrectionRequest) (attendance.DailyAttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.DailyAttendanceResponse{}, err
	}

	var corrected attendance.DailyAttendance
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.GetByID(ctx, req.ID, req.CompanyID)
		if err != nil {
			if errors.Is(err, attendance.ErrAttendanceNotFound) {
				return err
			}
			return fmt.Errorf("failed to get daily attendance: %w", err)
		}

		a.Version = req.Version
		if req.Status != nil {
			a.Status = *req.Status
		}
		if req.FirstClockIn != nil {
			a.FirstClockIn = req.FirstClockIn
		}
		if req.LastClockOut != nil {
			a.LastClockOut = req.LastClockOut
		}
		if req.TotalBreakMinutes != nil {
			a.TotalBreakMinutes = *req.TotalBreakMinutes
		}
		if a.FirstClockIn != nil && a.LastClockOut != nil && a.LastClockOut.Before(*a.FirstClockIn) {
			return validator.ValidationErrors{{Field: "last_clock_out", Message: "last_clock_out must not be before first_clock_in"}}
		}

		if err := s.recalculate(ctx, &a); err != nil {
			return err
		}

		corrected, err = s.save(ctx, a)
		return err
	})
	if err != nil {
		return attendance.DailyAttendanceResponse{}, err
	}

	slog.Info("Daily attendance corrected", "attendance_id", corrected.ID, "member_id", corrected.MemberID, "version", corrected.Version)
	return s.respond(ctx, corrected), nil
}

// recalculate re-derives the computed fields of a corrected record. A
// member without a standard work policy falls back to the defaults.
func (s *AttendanceServiceImpl) recalculate(ctx context.Context, a *attendance.DailyAttendance) error {
	p, err := s.standardPolicy(ctx, a.MemberID, a.CompanyID, a.Date)
	if err != nil && !errors.Is(err, policy.ErrNoApplicablePolicy) {
		return err
	}

	a.IsLate, a.LateMinutes = false, 0
	a.IsEarlyLeave, a.EarlyLeaveMinutes = false, 0
	a.WorkedMinutes, a.OvertimeMinutes = 0, 0
	Breakdown{}.Apply(a)

	if a.FirstClockIn == nil {
		return nil
	}
	if a.Status != attendance.StatusHalfDayAM {
		if err := s.validator.CheckLateness(a, p); err != nil {
			return err
		}
	}
	if a.LastClockOut == nil {
		return nil
	}

	a.ApplyClockOut(*a.LastClockOut, RequiredWorkMinutes(*a, StandardWorkMinutes(p)))
	if a.Status != attendance.StatusHalfDayPM {
		if err := s.validator.CheckEarlyLeave(a, p); err != nil {
			return err
		}
	}

	holiday, err := s.calc.IsHoliday(ctx, a.CompanyID, a.Date)
	if err != nil {
		return err
	}
	s.calc.WorkBreakdown(*a, holiday).Apply(a)
	return nil
}

// respond adds the premium-weighted minutes of a clocked-out record. The
// member's OVERTIME policy supplies the rates when one applies.
func (s *AttendanceServiceImpl) respond(ctx context.Context, a attendance.DailyAttendance) attendance.DailyAttendanceResponse {
	res := attendance.NewDailyAttendanceResponse(a)
	if !a.IsClockedOut() {
		return res
	}

	var rule *policy.OvertimeRule
	p, err := s.resolver.Resolve(ctx, a.MemberID, a.CompanyID, policy.TypeOvertime, a.Date)
	switch {
	case err == nil:
		rule = p.RuleDetails.OvertimeRule
	case !errors.Is(err, policy.ErrNoApplicablePolicy):
		slog.Warn("Failed to resolve overtime policy", "member_id", a.MemberID, "error", err)
		return res
	}

	premium := PremiumMinutes(Breakdown{
		DaytimeOvertimeMinutes: a.DaytimeOvertimeMinutes,
		NightWorkMinutes:       a.NightWorkMinutes,
		HolidayWorkMinutes:     a.HolidayWorkMinutes,
	}, rule)
	res.PremiumMinutes = &premium
	return res
}

func NewAttendanceService(
	attendanceRepo attendance.DailyAttendanceRepository,
	holidayRepo attendance.HolidayRepository,
	requestRepo leave.RequestRepository,
	resolver policy.Resolver,
	tx database.Transactor,
	loc *time.Location,
) attendance.AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceServiceImpl{
		DailyAttendanceRepository: attendanceRepo,
		requests:                  requestRepo,
		resolver:                  resolver,
		auth:                      NewAuthenticator(requestRepo, resolver),
		calc:                      NewCalculator(holidayRepo, loc),
		validator:                 NewValidator(loc),
		tx:                        tx,
		loc:                       loc,
		now:                       time.Now,
	}
}
