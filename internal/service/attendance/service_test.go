package attendance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/memory"
	policysvc "github.com/cmlabs-hris/hris-attendance-engine/internal/service/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCompanyID = "company-1"
	testMemberID  = "member-1"
	testLaptop    = "laptop-1"
	testPhone     = "phone-1"
	officeIP      = "10.0.0.7"
)

var (
	officeLat = 37.5663
	officeLng = 126.9779
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

type fixture struct {
	store *memory.Store
	svc   attendance.AttendanceService
}

// standardDetails is a FIXED 09:00-18:00 rule with an AUTO break. Laptops
// authenticate by office IP and phones by a 100m radius.
func standardDetails() policy.RuleDetails {
	d := fixedPolicy().RuleDetails
	d.AuthRule = &policy.AuthRule{Methods: []policy.AuthMethodRule{
		{
			DeviceType: attendance.DeviceLaptop,
			AuthMethod: policy.AuthMethodNetworkIP,
			Details:    policy.AuthDetails{AllowedIPs: []string{"10.0.0.0/24"}},
		},
		{
			DeviceType: attendance.DeviceMobile,
			AuthMethod: policy.AuthMethodGPS,
			Details: policy.AuthDetails{
				GPSRadiusMeters: floatPtr(100),
				OfficeLatitude:  &officeLat,
				OfficeLongitude: &officeLng,
			},
		},
	}}
	return d
}

func newFixture(t *testing.T, details policy.RuleDetails) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	_, err := store.Policies().Create(ctx, policy.Policy{
		CompanyID:     testCompanyID,
		TypeCode:      policy.TypeStandardWork,
		Name:          "Standard work",
		IsPaid:        true,
		EffectiveFrom: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		RuleDetails:   details,
		IsActive:      true,
	})
	require.NoError(t, err)

	for _, device := range []struct{ id, kind string }{
		{testLaptop, attendance.DeviceLaptop},
		{testPhone, attendance.DeviceMobile},
	} {
		store.AddRequest(leave.Request{
			MemberID:   testMemberID,
			CompanyID:  testCompanyID,
			Status:     leave.RequestApproved,
			DeviceID:   strPtr(device.id),
			DeviceType: strPtr(device.kind),
		})
	}

	resolver := policysvc.NewResolver(store.Assignments(), store.Policies(), store.Directory())
	svc := NewAttendanceService(store.Attendances(), store.Holidays(), store.Requests(), resolver, store, time.UTC)

	return &fixture{store: store, svc: svc}
}

func laptopEvent(eventType attendance.EventType, at time.Time) attendance.EventRequest {
	return attendance.EventRequest{
		MemberID:   testMemberID,
		CompanyID:  testCompanyID,
		ClientIP:   officeIP,
		EventType:  eventType,
		DeviceID:   testLaptop,
		DeviceType: attendance.DeviceLaptop,
		EventTime:  &at,
	}
}

func (f *fixture) stored(t *testing.T) *attendance.DailyAttendance {
	t.Helper()
	a, err := f.store.Attendances().GetByMemberAndDate(context.Background(), testMemberID, workday)
	require.NoError(t, err)
	return a
}

func TestAttendanceService_ClockInAndOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, standardDetails())

	res, err := f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockIn, clock(9, 5)))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusNormalWork, res.Status)
	assert.Equal(t, "2026-03-02", res.Date)
	assert.False(t, res.IsLate)
	assert.Equal(t, 1, res.Version)

	res, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockOut, clock(18, 0)))
	require.NoError(t, err)
	assert.Equal(t, 60, res.TotalBreakMinutes)
	assert.Equal(t, 475, res.WorkedMinutes)
	assert.Equal(t, 0, res.OvertimeMinutes)
	assert.False(t, res.IsEarlyLeave)
	assert.Equal(t, 2, res.Version)
	require.NotNil(t, res.PremiumMinutes)
	assert.True(t, res.PremiumMinutes.IsZero())

	_, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockOut, clock(18, 0)))
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedOut)
}

func TestAttendanceService_ClockIn_Late(t *testing.T) {
	f := newFixture(t, standardDetails())

	res, err := f.svc.RecordEvent(context.Background(), laptopEvent(attendance.EventClockIn, clock(9, 11)))
	require.NoError(t, err)
	assert.True(t, res.IsLate)
	assert.Equal(t, 11, res.LateMinutes)
}

func TestAttendanceService_ClockIn_Twice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, standardDetails())

	_, err := f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockIn, clock(9, 0)))
	require.NoError(t, err)

	_, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockIn, clock(9, 30)))
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedIn)
}

func TestAttendanceService_ClockOut_WithoutClockIn(t *testing.T) {
	f := newFixture(t, standardDetails())

	_, err := f.svc.RecordEvent(context.Background(), laptopEvent(attendance.EventClockOut, clock(18, 0)))
	assert.ErrorIs(t, err, attendance.ErrNotClockedIn)
}

func TestAttendanceService_ClockIn_OnApprovedLeave(t *testing.T) {
	f := newFixture(t, standardDetails())
	annual := policy.TypeAnnualLeave
	f.store.AddRequest(leave.Request{
		MemberID:       testMemberID,
		CompanyID:      testCompanyID,
		PolicyTypeCode: &annual,
		Unit:           leave.UnitDay,
		StartAt:        workday,
		EndAt:          workday.AddDate(0, 0, 1),
		Status:         leave.RequestApproved,
	})

	_, err := f.svc.RecordEvent(context.Background(), laptopEvent(attendance.EventClockIn, clock(9, 0)))
	assert.ErrorIs(t, err, attendance.ErrOnApprovedLeave)
	assert.Nil(t, f.stored(t))
}

func TestAttendanceService_Authentication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, standardDetails())

	t.Run("unknown device", func(t *testing.T) {
		req := laptopEvent(attendance.EventClockIn, clock(9, 0))
		req.DeviceID = "stolen-laptop"
		_, err := f.svc.RecordEvent(ctx, req)
		assert.ErrorIs(t, err, attendance.ErrDeviceNotApproved)
	})

	t.Run("ip outside allow list", func(t *testing.T) {
		req := laptopEvent(attendance.EventClockIn, clock(9, 0))
		req.ClientIP = "192.168.1.20"
		_, err := f.svc.RecordEvent(ctx, req)
		assert.ErrorIs(t, err, attendance.ErrIPNotAllowed)
	})

	phone := func(lat, lng float64) attendance.EventRequest {
		at := clock(9, 0)
		return attendance.EventRequest{
			MemberID:   testMemberID,
			CompanyID:  testCompanyID,
			EventType:  attendance.EventClockIn,
			DeviceID:   testPhone,
			DeviceType: attendance.DeviceMobile,
			Latitude:   &lat,
			Longitude:  &lng,
			EventTime:  &at,
		}
	}

	t.Run("gps outside radius", func(t *testing.T) {
		_, err := f.svc.RecordEvent(ctx, phone(37.5700, 126.9779))
		assert.ErrorIs(t, err, attendance.ErrOutsideAllowedRadius)
	})

	t.Run("gps inside radius", func(t *testing.T) {
		_, err := f.svc.RecordEvent(ctx, phone(37.5666, 126.9781))
		assert.NoError(t, err)
	})
}

func TestAttendanceService_ClockIn_AuthIgnoresNewerLeavePolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, standardDetails())

	_, err := f.store.Policies().Create(ctx, policy.Policy{
		CompanyID:     testCompanyID,
		TypeCode:      policy.TypeAnnualLeave,
		Name:          "Annual leave",
		IsPaid:        true,
		EffectiveFrom: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		RuleDetails:   policy.RuleDetails{LeaveRule: &policy.LeaveRule{AccrualType: policy.AccrualTypeAccrual}},
		IsActive:      true,
	})
	require.NoError(t, err)

	res, err := f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockIn, clock(9, 0)))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusNormalWork, res.Status)

	t.Run("work policy that starts later does not authenticate today", func(t *testing.T) {
		f := newFixture(t, standardDetails())
		_, err := f.store.Policies().Create(ctx, policy.Policy{
			CompanyID:     "company-2",
			TypeCode:      policy.TypeStandardWork,
			Name:          "Next year",
			IsPaid:        true,
			EffectiveFrom: time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC),
			RuleDetails:   standardDetails(),
			IsActive:      true,
		})
		require.NoError(t, err)

		req := laptopEvent(attendance.EventClockIn, clock(9, 0))
		req.CompanyID = "company-2"
		_, err = f.svc.RecordEvent(ctx, req)
		assert.ErrorIs(t, err, attendance.ErrAuthMethodNotConfigured)
	})
}

func TestAttendanceService_ClockIn_NoPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, standardDetails())

	req := laptopEvent(attendance.EventClockIn, clock(9, 0))
	req.CompanyID = "company-without-policy"
	_, err := f.svc.RecordEvent(ctx, req)
	assert.ErrorIs(t, err, attendance.ErrAuthMethodNotConfigured)
}

func TestAttendanceService_HalfDayAM(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, standardDetails())

	_, err := f.store.Attendances().Create(ctx, attendance.DailyAttendance{
		MemberID:  testMemberID,
		CompanyID: testCompanyID,
		Date:      workday,
		Status:    attendance.StatusHalfDayAM,
	})
	require.NoError(t, err)

	_, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockIn, clock(13, 15)))
	assert.ErrorIs(t, err, attendance.ErrHalfDayAMClockInTooLate)
	assert.Nil(t, f.stored(t).FirstClockIn)

	res, err := f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockIn, clock(13, 5)))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusHalfDayAM, res.Status)
	assert.False(t, res.IsLate)

	res, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockOut, clock(18, 0)))
	require.NoError(t, err)
	// 295 minute span gets the 30 minute four-hour break; 265 worked
	// against a 240 minute half day.
	assert.Equal(t, 30, res.TotalBreakMinutes)
	assert.Equal(t, 265, res.WorkedMinutes)
	assert.Equal(t, 25, res.OvertimeMinutes)
}

func TestAttendanceService_MandatoryBreakRejectsClockOut(t *testing.T) {
	ctx := context.Background()
	details := standardDetails()
	details.BreakRule = &policy.BreakRule{Type: policy.BreakManual, MandatoryBreakMinutes: intPtr(30)}
	f := newFixture(t, details)

	_, err := f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockIn, clock(9, 0)))
	require.NoError(t, err)

	_, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockOut, clock(14, 0)))
	assert.ErrorIs(t, err, attendance.ErrMandatoryBreakNotMet)
	assert.True(t, f.stored(t).IsClockedIn())

	_, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventBreakStart, clock(12, 0)))
	require.NoError(t, err)
	res, err := f.svc.RecordEvent(ctx, laptopEvent(attendance.EventBreakEnd, clock(12, 30)))
	require.NoError(t, err)
	assert.Equal(t, 30, res.TotalBreakMinutes)

	res, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockOut, clock(14, 0)))
	require.NoError(t, err)
	assert.Equal(t, 270, res.WorkedMinutes)
	assert.True(t, res.IsEarlyLeave)
	assert.Equal(t, 240, res.EarlyLeaveMinutes)
}

func TestAttendanceService_BreakEventsNeedManualMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, standardDetails())

	_, err := f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockIn, clock(9, 0)))
	require.NoError(t, err)

	_, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventBreakStart, clock(12, 0)))
	assert.ErrorIs(t, err, attendance.ErrManualBreakNotAllowed)
}

func TestAttendanceService_GoOutAndComeBack(t *testing.T) {
	ctx := context.Background()
	details := standardDetails()
	details.GoOutRule = &policy.GoOutRule{MaxSingleGoOutMinutes: intPtr(45)}
	f := newFixture(t, details)

	_, err := f.svc.RecordEvent(ctx, laptopEvent(attendance.EventComeBack, clock(8, 0)))
	assert.ErrorIs(t, err, attendance.ErrNotClockedIn)

	_, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockIn, clock(9, 0)))
	require.NoError(t, err)

	_, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventComeBack, clock(10, 0)))
	assert.ErrorIs(t, err, attendance.ErrNotOnGoOut)

	_, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventGoOut, clock(11, 0)))
	require.NoError(t, err)
	_, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventGoOut, clock(11, 5)))
	assert.ErrorIs(t, err, attendance.ErrAlreadyOnGoOut)

	_, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventComeBack, clock(12, 0)))
	assert.ErrorIs(t, err, attendance.ErrGoOutLimitExceeded)
	assert.NotNil(t, f.stored(t).GoOutStartedAt)
	assert.Equal(t, 0, f.stored(t).TotalGoOutMinutes)

	_, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventComeBack, clock(11, 30)))
	require.NoError(t, err)
	assert.Nil(t, f.stored(t).GoOutStartedAt)
	assert.Equal(t, 30, f.stored(t).TotalGoOutMinutes)
}

func TestAttendanceService_ConcurrentCorrection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, standardDetails())

	_, err := f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockIn, clock(9, 0)))
	require.NoError(t, err)
	row := f.stored(t)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out := clock(17, i)
			_, err := f.svc.Correct(ctx, attendance.CorrectionRequest{
				ID:           row.ID,
				CompanyID:    testCompanyID,
				Version:      row.Version,
				LastClockOut: &out,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, attendance.ErrConcurrentModification):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, writers-1, conflicts)
	assert.Equal(t, row.Version+1, f.stored(t).Version)
}

func TestAttendanceService_Correct_RecalculatesAndRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, standardDetails())

	_, err := f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockIn, clock(9, 30)))
	require.NoError(t, err)
	row := f.stored(t)
	require.True(t, row.IsLate)

	in, out := clock(9, 0), clock(19, 0)
	res, err := f.svc.Correct(ctx, attendance.CorrectionRequest{
		ID:           row.ID,
		CompanyID:    testCompanyID,
		Version:      row.Version,
		FirstClockIn: &in,
		LastClockOut: &out,
	})
	require.NoError(t, err)
	assert.False(t, res.IsLate)
	assert.Equal(t, 600, res.WorkedMinutes)
	assert.Equal(t, 120, res.OvertimeMinutes)
	assert.Equal(t, 120, res.DaytimeOvertimeMinutes)

	_, err = f.svc.Correct(ctx, attendance.CorrectionRequest{
		ID:           row.ID,
		CompanyID:    testCompanyID,
		Version:      row.Version,
		LastClockOut: &out,
	})
	assert.ErrorIs(t, err, attendance.ErrConcurrentModification)

	_, err = f.svc.Correct(ctx, attendance.CorrectionRequest{ID: "missing", CompanyID: testCompanyID, Version: 1})
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)
}

func TestAttendanceService_GetDailyAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, standardDetails())

	_, err := f.svc.GetDaily(ctx, testMemberID, workday)
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)

	_, err = f.svc.RecordEvent(ctx, laptopEvent(attendance.EventClockIn, clock(9, 0)))
	require.NoError(t, err)

	res, err := f.svc.GetDaily(ctx, testMemberID, workday)
	require.NoError(t, err)
	assert.Nil(t, res.PremiumMinutes)

	list, err := f.svc.ListMyAttendance(ctx, attendance.MyAttendanceFilter{
		MemberID: testMemberID,
		From:     workday.AddDate(0, 0, -7),
		To:       workday,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.ID, list[0].ID)

	_, err = f.svc.ListMyAttendance(ctx, attendance.MyAttendanceFilter{MemberID: testMemberID, From: workday, To: workday.AddDate(0, 0, -1)})
	assert.Error(t, err)
}
