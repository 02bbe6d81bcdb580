package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
)

type balanceRow struct {
	b leave.MemberBalance
}

type requestRow struct {
	r leave.Request
}

type balanceRepository struct{ s *Store }

type requestRepository struct{ s *Store }

func (s *Store) Balances() leave.BalanceRepository { return balanceRepository{s} }

func (s *Store) Requests() leave.RequestRepository { return requestRepository{s} }

func balanceKey(memberID string, typeCode policy.TypeCode, year int) string {
	return fmt.Sprintf("%s|%s|%d", memberID, typeCode, year)
}

// Get implements leave.BalanceRepository.
func (r balanceRepository) Get(ctx context.Context, memberID string, typeCode policy.TypeCode, year int) (leave.MemberBalance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.balances[balanceKey(memberID, typeCode, year)]
	if !ok {
		return leave.MemberBalance{}, leave.ErrBalanceNotFound
	}
	return row.b, nil
}

// CreateIfAbsent implements leave.BalanceRepository.
func (r balanceRepository) CreateIfAbsent(ctx context.Context, b leave.MemberBalance) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := balanceKey(b.MemberID, b.BalanceTypeCode, b.Year)
	if _, exists := r.s.balances[key]; exists {
		return false, nil
	}

	now := r.s.clockFunc()
	if b.ID == "" {
		b.ID = newID()
	}
	b.CreatedAt, b.UpdatedAt = now, now
	r.s.balances[key] = balanceRow{b: b}
	return true, nil
}

// Update implements leave.BalanceRepository.
func (r balanceRepository) Update(ctx context.Context, b leave.MemberBalance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := balanceKey(b.MemberID, b.BalanceTypeCode, b.Year)
	row, ok := r.s.balances[key]
	if !ok {
		return leave.ErrBalanceNotFound
	}
	b.ID = row.b.ID
	b.CreatedAt = row.b.CreatedAt
	b.UpdatedAt = r.s.clockFunc()
	b.Remaining = b.TotalGranted.Sub(b.TotalUsed)
	r.s.balances[key] = balanceRow{b: b}
	return nil
}

// ListByMember implements leave.BalanceRepository.
func (r balanceRepository) ListByMember(ctx context.Context, memberID string, year int) ([]leave.MemberBalance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]leave.MemberBalance, 0)
	for _, row := range r.s.balances {
		if row.b.MemberID == memberID && row.b.Year == year {
			out = append(out, row.b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BalanceTypeCode < out[j].BalanceTypeCode })
	return out, nil
}

// AddRequest stores a request as the approval workflow would.
func (s *Store) AddRequest(req leave.Request) leave.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ID == "" {
		req.ID = newID()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = s.clockFunc()
	}
	s.requests = append(s.requests, requestRow{r: req})
	return req
}

func isLeave(req leave.Request) bool {
	return req.PolicyTypeCode != nil && req.PolicyTypeCode.IsBalanceDeductible()
}

// HasApprovedFullDayLeave implements leave.RequestRepository.
func (r requestRepository) HasApprovedFullDayLeave(ctx context.Context, memberID string, date time.Time) (bool, error) {
	found := r.filter(func(req leave.Request) bool {
		return req.MemberID == memberID && req.Status == leave.RequestApproved &&
			isLeave(req) && req.Unit == leave.UnitDay && req.Covers(date)
	})
	return len(found) > 0, nil
}

// ApprovedLeaveOverlapping implements leave.RequestRepository.
func (r requestRepository) ApprovedLeaveOverlapping(ctx context.Context, date time.Time) ([]leave.Request, error) {
	return r.filter(func(req leave.Request) bool {
		trip := req.PolicyTypeCode != nil && *req.PolicyTypeCode == policy.TypeBusinessTrip
		return req.Status == leave.RequestApproved && (isLeave(req) || trip) && req.Covers(date)
	}), nil
}

// MemberIDsOnApprovedLeave implements leave.RequestRepository.
func (r requestRepository) MemberIDsOnApprovedLeave(ctx context.Context, date time.Time) ([]string, error) {
	found := r.filter(func(req leave.Request) bool {
		return req.Status == leave.RequestApproved && req.DeviceID == nil && req.Covers(date)
	})
	ids := make([]string, 0, len(found))
	for _, req := range found {
		ids = append(ids, req.MemberID)
	}
	return ids, nil
}

// HasApprovedDevice implements leave.RequestRepository.
func (r requestRepository) HasApprovedDevice(ctx context.Context, memberID, deviceID, deviceType string) (bool, error) {
	found := r.filter(func(req leave.Request) bool {
		return req.MemberID == memberID && req.Status == leave.RequestApproved &&
			req.DeviceID != nil && *req.DeviceID == deviceID &&
			req.DeviceType != nil && *req.DeviceType == deviceType
	})
	return len(found) > 0, nil
}

// ListOpenByMemberAndType implements leave.RequestRepository.
func (r requestRepository) ListOpenByMemberAndType(ctx context.Context, memberID string, typeCode policy.TypeCode, from, to time.Time) ([]leave.Request, error) {
	first, last := dateOnly(from), dateOnly(to)
	found := r.filter(func(req leave.Request) bool {
		open := req.Status == leave.RequestPending || req.Status == leave.RequestApproved
		start := dateOnly(req.StartAt)
		return req.MemberID == memberID && open &&
			req.PolicyTypeCode != nil && *req.PolicyTypeCode == typeCode &&
			!start.Before(first) && !start.After(last)
	})
	sort.Slice(found, func(i, j int) bool { return found[i].StartAt.Before(found[j].StartAt) })
	return found, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (r requestRepository) filter(match func(leave.Request) bool) []leave.Request {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]leave.Request, 0)
	for _, row := range r.s.requests {
		if match(row.r) {
			out = append(out, row.r)
		}
	}
	return out
}
