package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/batch"
)

// AttendanceJobs registers the nightly attendance batch on a Scheduler.
type AttendanceJobs struct {
	svc               batch.Service
	loc               *time.Location
	closeBeforeAbsent bool
	now               func() time.Time
}

func NewAttendanceJobs(svc batch.Service, loc *time.Location, closeBeforeAbsent bool) *AttendanceJobs {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceJobs{
		svc:               svc,
		loc:               loc,
		closeBeforeAbsent: closeBeforeAbsent,
		now:               time.Now,
	}
}

// RegisterJobs schedules the daily close-out at 00:05, the clock-out sweep
// at 02:00, the accrual at 03:00 on the 1st and the anniversary grant daily
// at 03:30.
func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("daily_close_out", Daily{Hour: 0, Minute: 5, Loc: j.loc}, j.DailyCloseOut)
	scheduler.AddJob("auto_complete_clock_out", Daily{Hour: 2, Minute: 0, Loc: j.loc}, j.AutoCompleteClockOut)
	scheduler.AddJob("annual_leave_accrual", Monthly{Day: 1, Hour: 3, Minute: 0, Loc: j.loc}, j.AccrueAnnualLeave)
	scheduler.AddJob("anniversary_leave_accrual", Daily{Hour: 3, Minute: 30, Loc: j.loc}, j.AccrueAnniversaryLeave)
}

// DailyCloseOut marks yesterday's absentees and creates today's leave rows.
// With closeBeforeAbsent the clock-out sweep runs first so that open records
// are finished before absences are decided.
func (j *AttendanceJobs) DailyCloseOut(ctx context.Context) error {
	now := j.now().In(j.loc)

	if j.closeBeforeAbsent {
		if err := j.run(ctx, batch.JobAutoCompleteClockOut, now); err != nil {
			return err
		}
	}

	var errs []error
	if err := j.run(ctx, batch.JobMarkAbsent, now); err != nil {
		errs = append(errs, err)
	}
	if err := j.run(ctx, batch.JobCreateLeaveDayAttendance, now); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (j *AttendanceJobs) AutoCompleteClockOut(ctx context.Context) error {
	return j.run(ctx, batch.JobAutoCompleteClockOut, j.now().In(j.loc))
}

func (j *AttendanceJobs) AccrueAnnualLeave(ctx context.Context) error {
	return j.run(ctx, batch.JobAccrueAnnualLeave, j.now().In(j.loc))
}

func (j *AttendanceJobs) AccrueAnniversaryLeave(ctx context.Context) error {
	return j.run(ctx, batch.JobAccrueAnniversaryLeave, j.now().In(j.loc))
}

func (j *AttendanceJobs) run(ctx context.Context, job batch.Job, now time.Time) error {
	_, err := j.svc.Run(ctx, job, job.DefaultDate(now))
	if errors.Is(err, batch.ErrJobRunning) {
		slog.Info("Cron: job already running elsewhere", "job", job)
		return nil
	}
	if err != nil {
		return fmt.Errorf("cron job %s: %w", job, err)
	}
	return nil
}
