package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/shopspring/decimal"
)

type BalanceServiceImpl struct {
	leave.BalanceRepository
	requests leave.RequestRepository
	resolver policy.Resolver
	now      func() time.Time
}

// ListMyBalances implements leave.BalanceService.
func (s *BalanceServiceImpl) ListMyBalances(ctx context.Context, memberID string, year int) ([]leave.BalanceResponse, error) {
	balances, err := s.BalanceRepository.ListByMember(ctx, memberID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}

	out := make([]leave.BalanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, leave.NewBalanceResponse(b))
	}
	return out, nil
}

// PreviewDeduction implements leave.BalanceService.
func (s *BalanceServiceImpl) PreviewDeduction(ctx context.Context, req leave.DeductionPreviewRequest) (leave.DeductionPreviewResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.DeductionPreviewResponse{}, err
	}

	var work *policy.Policy
	if req.Unit == leave.UnitTimeOff {
		p, err := s.resolver.Resolve(ctx, req.MemberID, req.CompanyID, policy.TypeStandardWork, req.StartAt)
		switch {
		case err == nil:
			work = &p
		case !errors.Is(err, policy.ErrNoApplicablePolicy):
			return leave.DeductionPreviewResponse{}, fmt.Errorf("failed to resolve work policy: %w", err)
		}
	}
	standard, breakMinutes := standardDay(work)

	days, err := DeductionDays(req.Unit, req.StartAt, req.EndAt, standard, breakMinutes)
	if err != nil {
		return leave.DeductionPreviewResponse{}, err
	}
	if err := s.checkRequestRules(ctx, req, days); err != nil {
		return leave.DeductionPreviewResponse{}, err
	}
	from, to := Window(req.Unit, req.StartAt, req.EndAt)

	res := leave.DeductionPreviewResponse{
		TypeCode:      req.TypeCode,
		Unit:          req.Unit,
		WindowStart:   from,
		WindowEnd:     to,
		DeductionDays: days,
		Remaining:     decimal.Zero,
	}

	b, err := s.BalanceRepository.Get(ctx, req.MemberID, req.TypeCode, req.StartAt.Year())
	if errors.Is(err, leave.ErrBalanceNotFound) {
		return res, nil
	}
	if err != nil {
		return leave.DeductionPreviewResponse{}, fmt.Errorf("failed to get balance: %w", err)
	}

	res.Remaining = b.Remaining
	res.Sufficient = ValidateBalance(b, days) == nil
	return res, nil
}

// checkRequestRules applies the caps of the leave policy resolved for the
// request's type on its start date.
func (s *BalanceServiceImpl) checkRequestRules(ctx context.Context, req leave.DeductionPreviewRequest, days decimal.Decimal) error {
	p, err := s.resolver.Resolve(ctx, req.MemberID, req.CompanyID, req.TypeCode, req.StartAt)
	if errors.Is(err, policy.ErrNoApplicablePolicy) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve leave policy: %w", err)
	}
	rule := p.RuleDetails.LeaveRule
	if rule == nil {
		return nil
	}

	usage := RequestUsage{PeriodDays: decimal.Zero}
	if rule.MaxSplitCount != nil || (rule.MaxDaysPerPeriod != nil && rule.LimitPeriod != "") {
		from, to := yearRange(req.StartAt)
		open, err := s.requests.ListOpenByMemberAndType(ctx, req.MemberID, req.TypeCode, from, to)
		if err != nil {
			return fmt.Errorf("failed to list open requests: %w", err)
		}

		periodFrom, periodTo := LimitPeriodRange(rule.LimitPeriod, req.StartAt)
		usage.Splits = len(open)
		for _, o := range open {
			d := dateOf(o.StartAt)
			if !d.Before(dateOf(periodFrom)) && !d.After(dateOf(periodTo)) {
				usage.PeriodDays = usage.PeriodDays.Add(o.DeductionDays)
			}
		}
	}

	return ValidateRequestRules(rule, req.Unit, req.StartAt, days, s.now().In(req.StartAt.Location()), usage)
}

func NewBalanceService(balanceRepo leave.BalanceRepository, requestRepo leave.RequestRepository, resolver policy.Resolver) leave.BalanceService {
	return &BalanceServiceImpl{
		BalanceRepository: balanceRepo,
		requests:          requestRepo,
		resolver:          resolver,
		now:               time.Now,
	}
}
