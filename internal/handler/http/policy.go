package http

import (
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type PolicyHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Assign(w http.ResponseWriter, r *http.Request)
	ListAssignments(w http.ResponseWriter, r *http.Request)
	Effective(w http.ResponseWriter, r *http.Request)
	Active(w http.ResponseWriter, r *http.Request)
}

type policyHandlerImpl struct {
	policyService policy.PolicyService
	resolver      policy.Resolver
	loc           *time.Location
	now           func() time.Time
}

func NewPolicyHandler(policyService policy.PolicyService, resolver policy.Resolver, loc *time.Location) PolicyHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &policyHandlerImpl{
		policyService: policyService,
		resolver:      resolver,
		loc:           loc,
		now:           time.Now,
	}
}

// onDate reads ?date=, defaulting to today in the handler's location.
func (h *policyHandlerImpl) onDate(r *http.Request) (time.Time, error) {
	d, err := queryDate(r, "date", h.loc)
	if err != nil {
		return time.Time{}, err
	}
	if d != nil {
		return *d, nil
	}
	now := h.now().In(h.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc), nil
}

// Create implements PolicyHandler.
func (h *policyHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req policy.CreatePolicyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = id.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	created, err := h.policyService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Policy created", created)
}

// List implements PolicyHandler.
func (h *policyHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	filter := policy.ListPolicyFilter{CompanyID: id.CompanyID}
	if t := r.URL.Query().Get("type"); t != "" {
		typeCode := policy.TypeCode(t)
		if !typeCode.IsValid() {
			response.HandleError(w, validator.ValidationErrors{{Field: "type", Message: "unknown policy type code"}})
			return
		}
		filter.TypeCode = &typeCode
	}
	if r.URL.Query().Get("active") == "true" {
		filter.ActiveOnly = true
	}

	policies, err := h.policyService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, policies)
}

// Get implements PolicyHandler.
func (h *policyHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	p, err := h.policyService.GetByID(r.Context(), chi.URLParam(r, "id"), id.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, p)
}

// Assign implements PolicyHandler.
func (h *policyHandlerImpl) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req policy.AssignPolicyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.PolicyID = chi.URLParam(r, "id")
	req.CompanyID = id.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	assignment, err := h.policyService.Assign(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Policy assigned", assignment)
}

// ListAssignments implements PolicyHandler.
func (h *policyHandlerImpl) ListAssignments(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	assignments, err := h.policyService.ListAssignments(r.Context(), chi.URLParam(r, "id"), id.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, assignments)
}

// Effective implements PolicyHandler. Members may only resolve their own
// policy; admins may resolve any member of their company.
func (h *policyHandlerImpl) Effective(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	memberID := r.URL.Query().Get("member_id")
	if memberID == "" {
		memberID = id.MemberID
	}
	if memberID != id.MemberID && !id.IsAdmin() {
		response.HandleError(w, auth.ErrAdminPrivilegeRequired)
		return
	}

	typeCode := policy.TypeCode(r.URL.Query().Get("type"))
	if !typeCode.IsValid() {
		response.HandleError(w, validator.ValidationErrors{{Field: "type", Message: "unknown policy type code"}})
		return
	}

	date, err := h.onDate(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	p, err := h.resolver.Resolve(r.Context(), memberID, id.CompanyID, typeCode, date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, policy.NewPolicyResponse(p))
}

// Active implements PolicyHandler. It returns the company's newest policy
// effective on ?date= regardless of type.
func (h *policyHandlerImpl) Active(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	date, err := h.onDate(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	p, err := h.policyService.FindActiveCompanyPolicy(r.Context(), id.CompanyID, date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, policy.NewPolicyResponse(p))
}
