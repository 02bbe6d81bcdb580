package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
)

type attendanceRow struct {
	a attendance.DailyAttendance
}

type attendanceRepository struct{ s *Store }

type holidayRepository struct{ s *Store }

func (s *Store) Attendances() attendance.DailyAttendanceRepository { return attendanceRepository{s} }

func (s *Store) Holidays() attendance.HolidayRepository { return holidayRepository{s} }

func attendanceKey(memberID string, date time.Time) string {
	return memberID + "|" + dateKey(date)
}

// Create implements attendance.DailyAttendanceRepository.
func (r attendanceRepository) Create(ctx context.Context, a attendance.DailyAttendance) (attendance.DailyAttendance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insert(a)
}

// insert must be called with mu held.
func (r attendanceRepository) insert(a attendance.DailyAttendance) (attendance.DailyAttendance, error) {
	key := attendanceKey(a.MemberID, a.Date)
	if _, exists := r.s.attendances[key]; exists {
		return attendance.DailyAttendance{}, attendance.ErrDuplicateAttendance
	}

	now := r.s.clockFunc()
	if a.ID == "" {
		a.ID = newID()
	}
	a.Version = 1
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.attendances[key] = attendanceRow{a: a}
	return a, nil
}

// GetByMemberAndDate implements attendance.DailyAttendanceRepository.
func (r attendanceRepository) GetByMemberAndDate(ctx context.Context, memberID string, date time.Time) (*attendance.DailyAttendance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.attendances[attendanceKey(memberID, date)]
	if !ok {
		return nil, nil
	}
	a := row.a
	return &a, nil
}

// GetByMemberAndDateForUpdate implements attendance.DailyAttendanceRepository.
// There are no row locks in memory; Update's version check guards writers.
func (r attendanceRepository) GetByMemberAndDateForUpdate(ctx context.Context, memberID string, date time.Time) (*attendance.DailyAttendance, error) {
	return r.GetByMemberAndDate(ctx, memberID, date)
}

// GetByID implements attendance.DailyAttendanceRepository.
func (r attendanceRepository) GetByID(ctx context.Context, id string, companyID string) (attendance.DailyAttendance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, row := range r.s.attendances {
		if row.a.ID == id && row.a.CompanyID == companyID {
			return row.a, nil
		}
	}
	return attendance.DailyAttendance{}, attendance.ErrAttendanceNotFound
}

// Update implements attendance.DailyAttendanceRepository.
func (r attendanceRepository) Update(ctx context.Context, a attendance.DailyAttendance) (attendance.DailyAttendance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := attendanceKey(a.MemberID, a.Date)
	row, ok := r.s.attendances[key]
	if !ok || row.a.ID != a.ID {
		return attendance.DailyAttendance{}, attendance.ErrAttendanceNotFound
	}
	if row.a.Version != a.Version {
		return attendance.DailyAttendance{}, attendance.ErrConcurrentModification
	}

	a.Version++
	a.CreatedAt = row.a.CreatedAt
	a.UpdatedAt = r.s.clockFunc()
	r.s.attendances[key] = attendanceRow{a: a}
	return a, nil
}

// ListByMember implements attendance.DailyAttendanceRepository.
func (r attendanceRepository) ListByMember(ctx context.Context, filter attendance.MyAttendanceFilter) ([]attendance.DailyAttendance, error) {
	from, to := dateKey(filter.From), dateKey(filter.To)
	out := r.collect(func(a attendance.DailyAttendance) bool {
		d := dateKey(a.Date)
		return a.MemberID == filter.MemberID && d >= from && d <= to
	})
	return out, nil
}

// ListOpenClockIns implements attendance.DailyAttendanceRepository.
func (r attendanceRepository) ListOpenClockIns(ctx context.Context, date time.Time, statuses []attendance.Status) ([]attendance.DailyAttendance, error) {
	wanted := make(map[attendance.Status]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}
	return r.collect(func(a attendance.DailyAttendance) bool {
		return sameDate(a.Date, date) && a.FirstClockIn != nil && a.LastClockOut == nil && wanted[a.Status]
	}), nil
}

// ListRecentlyActiveMembers implements attendance.DailyAttendanceRepository.
func (r attendanceRepository) ListRecentlyActiveMembers(ctx context.Context, since time.Time) ([]attendance.MemberRef, error) {
	rows := r.collect(func(a attendance.DailyAttendance) bool {
		return dateKey(a.Date) >= dateKey(since)
	})

	// rows are date ascending, so the last row per member wins.
	latest := make(map[string]string)
	order := make([]string, 0)
	for _, a := range rows {
		if _, seen := latest[a.MemberID]; !seen {
			order = append(order, a.MemberID)
		}
		latest[a.MemberID] = a.CompanyID
	}

	refs := make([]attendance.MemberRef, 0, len(order))
	for _, id := range order {
		refs = append(refs, attendance.MemberRef{MemberID: id, CompanyID: latest[id]})
	}
	return refs, nil
}

// MemberIDsWithAttendanceOn implements attendance.DailyAttendanceRepository.
func (r attendanceRepository) MemberIDsWithAttendanceOn(ctx context.Context, date time.Time) ([]string, error) {
	rows := r.collect(func(a attendance.DailyAttendance) bool {
		return sameDate(a.Date, date)
	})
	ids := make([]string, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.MemberID)
	}
	return ids, nil
}

// BulkCreate implements attendance.DailyAttendanceRepository.
func (r attendanceRepository) BulkCreate(ctx context.Context, rows []attendance.DailyAttendance) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	inserted := 0
	for _, a := range rows {
		if _, err := r.insert(a); err == nil {
			inserted++
		}
	}
	return inserted, nil
}

// collect returns matching rows ordered by date, then member.
func (r attendanceRepository) collect(match func(attendance.DailyAttendance) bool) []attendance.DailyAttendance {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]attendance.DailyAttendance, 0)
	for _, row := range r.s.attendances {
		if match(row.a) {
			out = append(out, row.a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !sameDate(out[i].Date, out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].MemberID < out[j].MemberID
	})
	return out
}

// AddHoliday registers a company holiday.
func (s *Store) AddHoliday(h attendance.Holiday) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidays[h.CompanyID+"|"+dateKey(h.Date)] = h.Name
}

// ExistsOn implements attendance.HolidayRepository.
func (r holidayRepository) ExistsOn(ctx context.Context, companyID string, date time.Time) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.holidays[companyID+"|"+dateKey(date)]
	return ok, nil
}
