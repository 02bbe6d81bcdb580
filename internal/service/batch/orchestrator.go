package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/batch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/member"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/lock"
	attendancesvc "github.com/cmlabs-hris/hris-attendance-engine/internal/service/attendance"
	"golang.org/x/sync/errgroup"
)

const (
	lockPrefix            = "attendance-batch:"
	activeLookbackDays    = 30
	autoClockOutAfter     = 9 * time.Hour
	autoClockOutBreak     = 60
	autoClockOutStandard  = 480
	defaultAccrualWorkers = 4
)

type Orchestrator struct {
	attendances attendance.DailyAttendanceRepository
	requests    leave.RequestRepository
	directory   member.Directory
	accrual     leave.AccrualService
	calc        *attendancesvc.Calculator
	locker      lock.Locker
	lockOpts    lock.Options
	workers     int
	loc         *time.Location
}

type jobFunc func(ctx context.Context, date time.Time) (batch.Result, error)

// Run implements batch.Service.
func (o *Orchestrator) Run(ctx context.Context, job batch.Job, date time.Time) (batch.Result, error) {
	fn, err := o.job(job)
	if err != nil {
		return batch.Result{}, err
	}

	date = o.day(date)
	var result batch.Result
	err = lock.Run(ctx, o.locker, lockPrefix+string(job), o.lockOpts, func(ctx context.Context) error {
		start := time.Now()
		slog.Info("Batch job started", "job", job, "date", date.Format("2006-01-02"))

		var err error
		result, err = fn(ctx, date)
		if err != nil {
			return err
		}

		slog.Info("Batch job finished",
			"job", job,
			"date", result.Date,
			"processed", result.Processed,
			"succeeded", result.Succeeded,
			"skipped", result.Skipped,
			"failed", result.Failed,
			"duration", time.Since(start),
		)
		return nil
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		slog.Info("Batch job skipped, lock held by another instance", "job", job)
		return batch.Result{}, batch.ErrJobRunning
	}
	if err != nil {
		return batch.Result{}, fmt.Errorf("failed to run %s: %w", job, err)
	}
	return result, nil
}

func (o *Orchestrator) job(job batch.Job) (jobFunc, error) {
	switch job {
	case batch.JobMarkAbsent:
		return o.MarkAbsent, nil
	case batch.JobCreateLeaveDayAttendance:
		return o.CreateLeaveDayAttendance, nil
	case batch.JobAutoCompleteClockOut:
		return o.AutoCompleteClockOut, nil
	case batch.JobAccrueAnnualLeave:
		return o.AccrueAnnualLeave, nil
	case batch.JobAccrueAnniversaryLeave:
		return o.AccrueAnniversaryLeave, nil
	}
	return nil, batch.ErrUnknownJob
}

// MarkAbsent inserts an ABSENT row for every member active in the last 30
// days who has neither a row nor approved leave on date.
func (o *Orchestrator) MarkAbsent(ctx context.Context, date time.Time) (batch.Result, error) {
	result := o.newResult(batch.JobMarkAbsent, date)

	active, err := o.attendances.ListRecentlyActiveMembers(ctx, date.AddDate(0, 0, -activeLookbackDays))
	if err != nil {
		return result, fmt.Errorf("failed to list recently active members: %w", err)
	}

	present, err := o.attendances.MemberIDsWithAttendanceOn(ctx, date)
	if err != nil {
		return result, fmt.Errorf("failed to list members with attendance: %w", err)
	}

	onLeave, err := o.requests.MemberIDsOnApprovedLeave(ctx, date)
	if err != nil {
		return result, fmt.Errorf("failed to list members on leave: %w", err)
	}

	excluded := make(map[string]bool, len(present)+len(onLeave))
	for _, id := range present {
		excluded[id] = true
	}
	for _, id := range onLeave {
		excluded[id] = true
	}

	rows := make([]attendance.DailyAttendance, 0)
	for _, ref := range active {
		if excluded[ref.MemberID] {
			continue
		}
		rows = append(rows, attendance.DailyAttendance{
			MemberID:  ref.MemberID,
			CompanyID: ref.CompanyID,
			Date:      date,
			Status:    attendance.StatusAbsent,
		})
	}

	inserted := 0
	if len(rows) > 0 {
		inserted, err = o.attendances.BulkCreate(ctx, rows)
		if err != nil {
			return result, fmt.Errorf("failed to insert absent rows: %w", err)
		}
	}

	result.Processed = len(active)
	result.Succeeded = inserted
	result.Skipped = len(active) - inserted
	return result, nil
}

// CreateLeaveDayAttendance creates the day's row for every approved leave
// covering date.
func (o *Orchestrator) CreateLeaveDayAttendance(ctx context.Context, date time.Time) (batch.Result, error) {
	result := o.newResult(batch.JobCreateLeaveDayAttendance, date)

	requests, err := o.requests.ApprovedLeaveOverlapping(ctx, date)
	if err != nil {
		return result, fmt.Errorf("failed to list approved leave: %w", err)
	}

	for _, req := range requests {
		result.Processed++

		status, ok := LeaveDayStatus(req)
		if !ok {
			if req.Unit != leave.UnitTimeOff {
				slog.Warn("Approved request has no leave day status", "request_id", req.ID, "member_id", req.MemberID)
			}
			result.Skipped++
			continue
		}

		existing, err := o.attendances.GetByMemberAndDate(ctx, req.MemberID, date)
		if err != nil {
			slog.Error("Failed to check attendance for leave day", "member_id", req.MemberID, "request_id", req.ID, "error", err)
			result.Failed++
			continue
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		_, err = o.attendances.Create(ctx, attendance.DailyAttendance{
			MemberID:  req.MemberID,
			CompanyID: req.CompanyID,
			Date:      date,
			Status:    status,
		})
		switch {
		case errors.Is(err, attendance.ErrDuplicateAttendance):
			result.Skipped++
		case err != nil:
			slog.Error("Failed to create leave day attendance", "member_id", req.MemberID, "request_id", req.ID, "error", err)
			result.Failed++
		default:
			result.Succeeded++
		}
	}

	return result, nil
}

// LeaveDayStatus maps an approved request to the status of the day it
// covers. TIME_OFF requests and unknown types have none.
func LeaveDayStatus(req leave.Request) (attendance.Status, bool) {
	switch req.Unit {
	case leave.UnitTimeOff:
		return "", false
	case leave.UnitHalfDayAM:
		return attendance.StatusHalfDayAM, true
	case leave.UnitHalfDayPM:
		return attendance.StatusHalfDayPM, true
	}

	if req.PolicyTypeCode == nil {
		return "", false
	}
	switch *req.PolicyTypeCode {
	case policy.TypeAnnualLeave:
		return attendance.StatusAnnualLeave, true
	case policy.TypeMaternityLeave:
		return attendance.StatusMaternityLeave, true
	case policy.TypePaternityLeave:
		return attendance.StatusPaternityLeave, true
	case policy.TypeChildcareLeave:
		return attendance.StatusChildcareLeave, true
	case policy.TypeFamilyCareLeave:
		return attendance.StatusFamilyCareLeave, true
	case policy.TypeMenstrualLeave:
		return attendance.StatusMenstrualLeave, true
	case policy.TypeBusinessTrip:
		return attendance.StatusBusinessTrip, true
	}
	return "", false
}

// AutoCompleteClockOut closes rows on date that were clocked in but never
// clocked out, assuming a full day of clock-in + 9h.
func (o *Orchestrator) AutoCompleteClockOut(ctx context.Context, date time.Time) (batch.Result, error) {
	result := o.newResult(batch.JobAutoCompleteClockOut, date)

	open, err := o.attendances.ListOpenClockIns(ctx, date, []attendance.Status{attendance.StatusNormalWork, attendance.StatusBusinessTrip})
	if err != nil {
		return result, fmt.Errorf("failed to list open clock-ins: %w", err)
	}

	endOfDay := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, o.loc)
	for _, a := range open {
		result.Processed++

		out := a.FirstClockIn.Add(autoClockOutAfter)
		if out.After(endOfDay) {
			out = endOfDay
		}

		if err := o.completeClockOut(ctx, a, out); err != nil {
			if errors.Is(err, attendance.ErrConcurrentModification) {
				slog.Info("Attendance changed during auto clock-out", "member_id", a.MemberID, "date", result.Date)
				result.Skipped++
				continue
			}
			slog.Error("Failed to auto complete clock-out", "member_id", a.MemberID, "attendance_id", a.ID, "error", err)
			result.Failed++
			continue
		}
		result.Succeeded++
	}

	return result, nil
}

func (o *Orchestrator) completeClockOut(ctx context.Context, a attendance.DailyAttendance, out time.Time) error {
	if a.GoOutStartedAt != nil {
		if _, err := a.EndGoOut(out); err != nil {
			return err
		}
	}
	if a.BreakStartedAt != nil {
		if _, err := a.EndBreak(out); err != nil {
			return err
		}
	}
	if a.TotalBreakMinutes == 0 {
		a.TotalBreakMinutes = autoClockOutBreak
	}

	a.ApplyClockOut(out, autoClockOutStandard)

	holiday, err := o.calc.IsHoliday(ctx, a.CompanyID, a.Date)
	if err != nil {
		return err
	}
	o.calc.WorkBreakdown(a, holiday).Apply(&a)

	_, err = o.attendances.Update(ctx, a)
	return err
}

// AccrueAnnualLeave runs the monthly first-year accrual for every company,
// plus the yearly accrual on Jan 1.
func (o *Orchestrator) AccrueAnnualLeave(ctx context.Context, date time.Time) (batch.Result, error) {
	result := o.newResult(batch.JobAccrueAnnualLeave, date)

	companies, err := o.directory.ListCompanyIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list companies: %w", err)
	}

	yearly := date.Month() == time.January && date.Day() == 1

	var (
		mu    sync.Mutex
		total leave.AccrualResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for _, companyID := range companies {
		companyID := companyID
		g.Go(func() error {
			var sum leave.AccrualResult

			if yearly {
				r, err := o.accrual.AccrueYearly(gctx, companyID, date)
				if err != nil {
					slog.Error("Yearly accrual failed for company", "company_id", companyID, "error", err)
					sum.Failed++
				}
				sum.Add(r)
			}

			r, err := o.accrual.AccrueMonthlyFirstYear(gctx, companyID, date)
			if err != nil {
				slog.Error("Monthly accrual failed for company", "company_id", companyID, "error", err)
				sum.Failed++
			}
			sum.Add(r)

			mu.Lock()
			total.Add(sum)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result.Processed = total.Processed
	result.Succeeded = total.Granted
	result.Skipped = total.Skipped
	result.Failed = total.Failed
	return result, nil
}

// AccrueAnniversaryLeave runs the JOIN_DATE anniversary grant for every company.
func (o *Orchestrator) AccrueAnniversaryLeave(ctx context.Context, date time.Time) (batch.Result, error) {
	result := o.newResult(batch.JobAccrueAnniversaryLeave, date)

	companies, err := o.directory.ListCompanyIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list companies: %w", err)
	}

	var (
		mu    sync.Mutex
		total leave.AccrualResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for _, companyID := range companies {
		companyID := companyID
		g.Go(func() error {
			r, err := o.accrual.AccrueAnniversary(gctx, companyID, date)
			if err != nil {
				slog.Error("Anniversary accrual failed for company", "company_id", companyID, "error", err)
				r.Failed++
			}

			mu.Lock()
			total.Add(r)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result.Processed = total.Processed
	result.Succeeded = total.Granted
	result.Skipped = total.Skipped
	result.Failed = total.Failed
	return result, nil
}

func (o *Orchestrator) newResult(job batch.Job, date time.Time) batch.Result {
	return batch.Result{Job: job, Date: date.Format("2006-01-02")}
}

func (o *Orchestrator) day(t time.Time) time.Time {
	t = t.In(o.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, o.loc)
}

func NewOrchestrator(
	attendanceRepo attendance.DailyAttendanceRepository,
	holidayRepo attendance.HolidayRepository,
	requestRepo leave.RequestRepository,
	directory member.Directory,
	accrual leave.AccrualService,
	locker lock.Locker,
	lockOpts lock.Options,
	workers int,
	loc *time.Location,
) *Orchestrator {
	if loc == nil {
		loc = time.UTC
	}
	if workers <= 0 {
		workers = defaultAccrualWorkers
	}
	return &Orchestrator{
		attendances: attendanceRepo,
		requests:    requestRepo,
		directory:   directory,
		accrual:     accrual,
		calc:        attendancesvc.NewCalculator(holidayRepo, loc),
		locker:      locker,
		lockOpts:    lockOpts,
		workers:     workers,
		loc:         loc,
	}
}
