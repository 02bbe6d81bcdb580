package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
)

type BalanceHandler interface {
	GetMyBalances(w http.ResponseWriter, r *http.Request)
	GrantInitial(w http.ResponseWriter, r *http.Request)
	PreviewDeduction(w http.ResponseWriter, r *http.Request)
}

type balanceHandlerImpl struct {
	balanceService leave.BalanceService
	accrualService leave.AccrualService
	loc            *time.Location
	now            func() time.Time
}

func NewBalanceHandler(balanceService leave.BalanceService, accrualService leave.AccrualService, loc *time.Location) BalanceHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &balanceHandlerImpl{
		balanceService: balanceService,
		accrualService: accrualService,
		loc:            loc,
		now:            time.Now,
	}
}

// GetMyBalances implements BalanceHandler.
func (h *balanceHandlerImpl) GetMyBalances(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	year := h.now().In(h.loc).Year()
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil || parsed < 1900 || parsed > 9999 {
			response.HandleError(w, validator.ValidationErrors{{Field: "year", Message: "year must be a four-digit year"}})
			return
		}
		year = parsed
	}

	balances, err := h.balanceService.ListMyBalances(r.Context(), id.MemberID, year)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, balances)
}

// GrantInitial implements BalanceHandler.
func (h *balanceHandlerImpl) GrantInitial(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req leave.GrantInitialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = id.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	balance, err := h.accrualService.GrantInitial(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Annual leave granted", balance)
}

// PreviewDeduction implements BalanceHandler.
func (h *balanceHandlerImpl) PreviewDeduction(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req leave.DeductionPreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.MemberID = id.MemberID
	req.CompanyID = id.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	preview, err := h.balanceService.PreviewDeduction(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, preview)
}
