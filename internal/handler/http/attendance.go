package http

import (
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

// defaultHistoryDays is the window of GET /attendance/me without from/to.
const defaultHistoryDays = 30

type AttendanceHandler interface {
	RecordEvent(w http.ResponseWriter, r *http.Request)
	GetMyAttendance(w http.ResponseWriter, r *http.Request)
	Correct(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	loc               *time.Location
	now               func() time.Time
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService, loc *time.Location) AttendanceHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		loc:               loc,
		now:               time.Now,
	}
}

// RecordEvent implements AttendanceHandler.
func (h *attendanceHandlerImpl) RecordEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req attendance.EventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.MemberID = id.MemberID
	req.CompanyID = id.CompanyID
	req.ClientIP = clientIP(r)

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.RecordEvent(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance event recorded", result)
}

// GetMyAttendance implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetMyAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	from, err := queryDate(r, "from", h.loc)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	to, err := queryDate(r, "to", h.loc)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	now := h.now().In(h.loc)
	filter := attendance.MyAttendanceFilter{
		MemberID: id.MemberID,
		To:       time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc),
	}
	if to != nil {
		filter.To = *to
	}
	filter.From = filter.To.AddDate(0, 0, -defaultHistoryDays)
	if from != nil {
		filter.From = *from
	}

	records, err := h.attendanceService.ListMyAttendance(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, records)
}

// Correct implements AttendanceHandler.
func (h *attendanceHandlerImpl) Correct(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req attendance.CorrectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")
	req.CompanyID = id.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.Correct(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance corrected", result)
}
