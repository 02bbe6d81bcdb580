package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/member"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/shopspring/decimal"
)

const accrualChunkSize = 100

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeGranted
)

type AccrualServiceImpl struct {
	leave.BalanceRepository
	attendances attendance.DailyAttendanceRepository
	directory   member.Directory
	resolver    policy.Resolver
	calc        *AccrualCalculator
	tx          database.Transactor
	loc         *time.Location
	now         func() time.Time
}

// GrantInitial implements leave.AccrualService.
func (s *AccrualServiceImpl) GrantInitial(ctx context.Context, req leave.GrantInitialRequest) (leave.BalanceResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.BalanceResponse{}, err
	}

	ref := s.today()
	if req.ReferenceDate != "" {
		d, _ := time.ParseInLocation("2006-01-02", req.ReferenceDate, s.loc)
		ref = d
	}

	m, err := s.directory.GetMember(ctx, req.MemberID)
	if err != nil {
		return leave.BalanceResponse{}, err
	}
	if req.CompanyID != "" && m.CompanyID != req.CompanyID {
		return leave.BalanceResponse{}, member.ErrMemberNotFound
	}
	if !m.IsActive() || m.JoinDate.IsZero() {
		return leave.BalanceResponse{}, leave.ErrMemberNotEligible
	}

	rule, err := s.annualRule(ctx, m, ref)
	if err != nil {
		return leave.BalanceResponse{}, err
	}

	join := s.inLoc(m.JoinDate)
	days := s.calc.Grant(join, ref, rule)

	var balance leave.MemberBalance
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b := leave.NewMemberBalance(m.ID, m.CompanyID, policy.TypeAnnualLeave, ref.Year(), decimal.NewFromInt(int64(days)), s.loc)
		if s.calc.TenureYears(join, ref) < 1 {
			b.MarkAccrued(ref)
		}
		created, err := s.BalanceRepository.CreateIfAbsent(ctx, b)
		if err != nil {
			return fmt.Errorf("failed to create annual leave balance: %w", err)
		}
		if created {
			slog.Info("Initial annual leave granted", "member_id", m.ID, "year", ref.Year(), "days", days)
		}

		balance, err = s.BalanceRepository.Get(ctx, m.ID, policy.TypeAnnualLeave, ref.Year())
		return err
	})
	if err != nil {
		return leave.BalanceResponse{}, err
	}

	return leave.NewBalanceResponse(balance), nil
}

// AccrueYearly implements leave.AccrualService.
func (s *AccrualServiceImpl) AccrueYearly(ctx context.Context, companyID string, ref time.Time) (leave.AccrualResult, error) {
	ref = s.inLoc(ref)
	members, err := s.eligibleMembers(ctx, companyID, func(m member.Member) bool {
		return s.calc.TenureYears(s.inLoc(m.JoinDate), ref) >= 1
	})
	if err != nil {
		return leave.AccrualResult{}, err
	}

	result := s.processInChunks(ctx, members, "yearly", func(ctx context.Context, m member.Member) (outcome, error) {
		return s.accrueYearlyFor(ctx, m, ref)
	})

	slog.Info("Yearly annual leave accrual finished",
		"company_id", companyID,
		"year", ref.Year(),
		"processed", result.Processed,
		"granted", result.Granted,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *AccrualServiceImpl) accrueYearlyFor(ctx context.Context, m member.Member, ref time.Time) (outcome, error) {
	rule, err := s.annualRule(ctx, m, ref)
	if err != nil {
		return outcomeSkipped, err
	}
	if joinDateStandard(rule) {
		return outcomeSkipped, nil
	}

	years := s.calc.TenureYears(s.inLoc(m.JoinDate), ref)
	days := s.calc.YearlyGrant(years, rule)

	b := leave.NewMemberBalance(m.ID, m.CompanyID, policy.TypeAnnualLeave, ref.Year(), decimal.NewFromInt(int64(days)), s.loc)
	created, err := s.BalanceRepository.CreateIfAbsent(ctx, b)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("failed to create annual leave balance: %w", err)
	}
	if !created {
		slog.Debug("Annual leave balance already exists", "member_id", m.ID, "year", ref.Year())
		return outcomeSkipped, nil
	}
	return outcomeGranted, nil
}

// AccrueMonthlyFirstYear implements leave.AccrualService.
func (s *AccrualServiceImpl) AccrueMonthlyFirstYear(ctx context.Context, companyID string, ref time.Time) (leave.AccrualResult, error) {
	ref = s.inLoc(ref)
	members, err := s.eligibleMembers(ctx, companyID, func(m member.Member) bool {
		join := s.inLoc(m.JoinDate)
		return !join.After(ref) && s.calc.TenureYears(join, ref) < 1
	})
	if err != nil {
		return leave.AccrualResult{}, err
	}

	result := s.processInChunks(ctx, members, "monthly", func(ctx context.Context, m member.Member) (outcome, error) {
		return s.accrueMonthlyFor(ctx, m, ref)
	})

	slog.Info("Monthly first-year accrual finished",
		"company_id", companyID,
		"month", ref.Format("2006-01"),
		"processed", result.Processed,
		"granted", result.Granted,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *AccrualServiceImpl) accrueMonthlyFor(ctx context.Context, m member.Member, ref time.Time) (outcome, error) {
	rule, err := s.annualRule(ctx, m, ref)
	if err != nil {
		return outcomeSkipped, err
	}

	if rule != nil && rule.MinimumAttendanceRateForAccrual != nil {
		rate, err := s.previousMonthAttendanceRate(ctx, m.ID, ref)
		if err != nil {
			return outcomeSkipped, err
		}
		if rate < *rule.MinimumAttendanceRateForAccrual {
			slog.Info("Attendance rate below accrual minimum",
				"member_id", m.ID,
				"rate", rate,
				"minimum", *rule.MinimumAttendanceRateForAccrual,
			)
			return outcomeSkipped, nil
		}
	}

	var result outcome
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.BalanceRepository.Get(ctx, m.ID, policy.TypeAnnualLeave, ref.Year())
		if errors.Is(err, leave.ErrBalanceNotFound) {
			b = leave.NewMemberBalance(m.ID, m.CompanyID, policy.TypeAnnualLeave, ref.Year(), s.calc.MonthlyAccrued(decimal.Zero, rule), s.loc)
			b.MarkAccrued(ref)
			created, err := s.BalanceRepository.CreateIfAbsent(ctx, b)
			if err != nil {
				return fmt.Errorf("failed to create annual leave balance: %w", err)
			}
			if created {
				result = outcomeGranted
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get annual leave balance: %w", err)
		}

		if b.AccruedInMonth(ref) {
			slog.Debug("Monthly accrual already applied", "member_id", m.ID, "month", ref.Format("2006-01"))
			return nil
		}

		next := s.calc.MonthlyAccrued(b.TotalGranted, rule)
		if !next.GreaterThan(b.TotalGranted) {
			return nil
		}

		b.Grant(next.Sub(b.TotalGranted))
		b.MarkAccrued(ref)
		if err := s.BalanceRepository.Update(ctx, b); err != nil {
			return fmt.Errorf("failed to update annual leave balance: %w", err)
		}
		result = outcomeGranted
		return nil
	})
	return result, err
}

// AccrueAnniversary implements leave.AccrualService.
func (s *AccrualServiceImpl) AccrueAnniversary(ctx context.Context, companyID string, ref time.Time) (leave.AccrualResult, error) {
	ref = s.inLoc(ref)
	members, err := s.eligibleMembers(ctx, companyID, func(m member.Member) bool {
		join := s.inLoc(m.JoinDate)
		return join.Month() == ref.Month() && join.Day() == ref.Day() && s.calc.TenureYears(join, ref) >= 1
	})
	if err != nil {
		return leave.AccrualResult{}, err
	}

	result := s.processInChunks(ctx, members, "anniversary", func(ctx context.Context, m member.Member) (outcome, error) {
		return s.accrueAnniversaryFor(ctx, m, ref)
	})

	slog.Info("Anniversary annual leave accrual finished",
		"company_id", companyID,
		"date", ref.Format("2006-01-02"),
		"processed", result.Processed,
		"granted", result.Granted,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

// accrueAnniversaryFor grants the yearly days on a JOIN_DATE anniversary. A
// balance left over from first-year accrual is topped up; one that already
// holds a yearly grant is left alone.
func (s *AccrualServiceImpl) accrueAnniversaryFor(ctx context.Context, m member.Member, ref time.Time) (outcome, error) {
	rule, err := s.annualRule(ctx, m, ref)
	if err != nil {
		return outcomeSkipped, err
	}
	if !joinDateStandard(rule) {
		return outcomeSkipped, nil
	}

	days := decimal.NewFromInt(int64(s.calc.YearlyGrant(s.calc.TenureYears(s.inLoc(m.JoinDate), ref), rule)))
	today := ref.Format("2006-01-02")

	var result outcome
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.BalanceRepository.Get(ctx, m.ID, policy.TypeAnnualLeave, ref.Year())
		if errors.Is(err, leave.ErrBalanceNotFound) {
			b = leave.NewMemberBalance(m.ID, m.CompanyID, policy.TypeAnnualLeave, ref.Year(), days, s.loc)
			b.MarkAccrued(ref)
			created, err := s.BalanceRepository.CreateIfAbsent(ctx, b)
			if err != nil {
				return fmt.Errorf("failed to create annual leave balance: %w", err)
			}
			if created {
				result = outcomeGranted
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get annual leave balance: %w", err)
		}

		if b.LastAccruedOn == nil || b.LastAccruedOn.Format("2006-01-02") >= today {
			slog.Debug("Anniversary grant already applied", "member_id", m.ID, "year", ref.Year())
			return nil
		}

		b.Grant(days)
		b.MarkAccrued(ref)
		if err := s.BalanceRepository.Update(ctx, b); err != nil {
			return fmt.Errorf("failed to update annual leave balance: %w", err)
		}
		result = outcomeGranted
		return nil
	})
	return result, err
}

func joinDateStandard(rule *policy.LeaveRule) bool {
	return rule != nil && rule.StandardType == policy.StandardJoinDate
}

// previousMonthAttendanceRate returns the percentage of weekdays in the month
// before ref that have a non-absent attendance row.
func (s *AccrualServiceImpl) previousMonthAttendanceRate(ctx context.Context, memberID string, ref time.Time) (float64, error) {
	first := time.Date(ref.Year(), ref.Month()-1, 1, 0, 0, 0, 0, s.loc)
	last := first.AddDate(0, 1, -1)

	weekdays := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			weekdays++
		}
	}
	if weekdays == 0 {
		return 100, nil
	}

	rows, err := s.attendances.ListByMember(ctx, attendance.MyAttendanceFilter{MemberID: memberID, From: first, To: last})
	if err != nil {
		return 0, fmt.Errorf("failed to list attendance: %w", err)
	}

	present := 0
	for _, row := range rows {
		if row.Status != attendance.StatusAbsent {
			present++
		}
	}
	return float64(present) * 100 / float64(weekdays), nil
}

func (s *AccrualServiceImpl) eligibleMembers(ctx context.Context, companyID string, keep func(member.Member) bool) ([]member.Member, error) {
	all, err := s.directory.ListActiveMembers(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active members: %w", err)
	}

	out := make([]member.Member, 0, len(all))
	for _, m := range all {
		if !m.IsActive() || m.JoinDate.IsZero() {
			continue
		}
		if keep(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// processInChunks runs fn for every member. A failing member is logged and
// counted and the run moves on.
func (s *AccrualServiceImpl) processInChunks(ctx context.Context, members []member.Member, run string, fn func(context.Context, member.Member) (outcome, error)) leave.AccrualResult {
	var result leave.AccrualResult

	for start := 0; start < len(members); start += accrualChunkSize {
		end := min(start+accrualChunkSize, len(members))

		for _, m := range members[start:end] {
			result.Processed++

			o, err := fn(ctx, m)
			if err != nil {
				slog.Error("Failed to accrue annual leave", "run", run, "member_id", m.ID, "error", err)
				result.Failed++
				continue
			}
			if o == outcomeGranted {
				result.Granted++
			} else {
				result.Skipped++
			}
		}

		slog.Debug("Accrual chunk processed", "run", run, "chunk_start", start, "chunk_end", end, "total", len(members))
	}
	return result
}

// annualRule returns the member's ANNUAL_LEAVE rule effective on ref, or nil
// when none applies and the statutory formula is used.
func (s *AccrualServiceImpl) annualRule(ctx context.Context, m member.Member, ref time.Time) (*policy.LeaveRule, error) {
	p, err := s.resolver.Resolve(ctx, m.ID, m.CompanyID, policy.TypeAnnualLeave, ref)
	if errors.Is(err, policy.ErrNoApplicablePolicy) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve annual leave policy: %w", err)
	}
	return p.RuleDetails.LeaveRule, nil
}

func (s *AccrualServiceImpl) inLoc(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

func (s *AccrualServiceImpl) today() time.Time {
	return s.inLoc(s.now().In(s.loc))
}

func NewAccrualService(
	balanceRepo leave.BalanceRepository,
	attendanceRepo attendance.DailyAttendanceRepository,
	directory member.Directory,
	resolver policy.Resolver,
	tx database.Transactor,
	loc *time.Location,
) leave.AccrualService {
	if loc == nil {
		loc = time.UTC
	}
	return &AccrualServiceImpl{
		BalanceRepository: balanceRepo,
		attendances:       attendanceRepo,
		directory:         directory,
		resolver:          resolver,
		calc:              NewAccrualCalculator(),
		tx:                tx,
		loc:               loc,
		now:               time.Now,
	}
}
