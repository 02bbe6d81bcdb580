package policy

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
)

// ========================================
// POLICY DTOs
// ========================================

type CreatePolicyRequest struct {
	CompanyID     string      `json:"-"`
	TypeCode      TypeCode    `json:"type_code" validate:"required"`
	Name          string      `json:"name" validate:"required,max=100"`
	IsPaid        bool        `json:"is_paid"`
	EffectiveFrom string      `json:"effective_from" validate:"required"`
	EffectiveTo   *string     `json:"effective_to,omitempty"`
	RuleDetails   RuleDetails `json:"rule_details"`
}

func (r *CreatePolicyRequest) Validate() error {
	errs := validator.Struct(r)

	if r.TypeCode != "" && !r.TypeCode.IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "type_code",
			Message: "unknown policy type code",
		})
	}

	from, fromOK := validator.IsValidDate(r.EffectiveFrom)
	if r.EffectiveFrom != "" && !fromOK {
		errs = append(errs, validator.ValidationError{
			Field:   "effective_from",
			Message: "effective_from must be in YYYY-MM-DD format",
		})
	}

	if r.EffectiveTo != nil {
		to, ok := validator.IsValidDate(*r.EffectiveTo)
		if !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "effective_to",
				Message: "effective_to must be in YYYY-MM-DD format",
			})
		} else if fromOK && to.Before(from) {
			errs = append(errs, validator.ValidationError{
				Field:   "effective_to",
				Message: "effective_to must not be before effective_from",
			})
		}
	}

	return errs.Err()
}

type AssignPolicyRequest struct {
	PolicyID  string    `json:"-"`
	CompanyID string    `json:"-"`
	TargetID  string    `json:"target_id" validate:"required"`
	Scope     ScopeType `json:"scope" validate:"required,oneof=PST001 PST002 PST003"`
}

func (r *AssignPolicyRequest) Validate() error {
	errs := validator.Struct(r)
	if r.Scope == ScopeCompany && r.TargetID != "" && r.TargetID != r.CompanyID {
		errs = append(errs, validator.ValidationError{
			Field:   "target_id",
			Message: "company scope must target the caller's company",
		})
	}
	return errs.Err()
}

type ListPolicyFilter struct {
	CompanyID  string
	TypeCode   *TypeCode
	ActiveOnly bool
}

type PolicyResponse struct {
	ID            string      `json:"id"`
	CompanyID     string      `json:"company_id"`
	TypeCode      TypeCode    `json:"type_code"`
	TypeName      string      `json:"type_name"`
	Name          string      `json:"name"`
	IsPaid        bool        `json:"is_paid"`
	EffectiveFrom string      `json:"effective_from"`
	EffectiveTo   *string     `json:"effective_to,omitempty"`
	RuleDetails   RuleDetails `json:"rule_details"`
	IsActive      bool        `json:"is_active"`
	CreatedAt     time.Time   `json:"created_at"`
}

func NewPolicyResponse(p Policy) PolicyResponse {
	resp := PolicyResponse{
		ID:            p.ID,
		CompanyID:     p.CompanyID,
		TypeCode:      p.TypeCode,
		TypeName:      p.TypeCode.Name(),
		Name:          p.Name,
		IsPaid:        p.IsPaid,
		EffectiveFrom: p.EffectiveFrom.Format("2006-01-02"),
		RuleDetails:   p.RuleDetails,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
	}
	if p.EffectiveTo != nil {
		to := p.EffectiveTo.Format("2006-01-02")
		resp.EffectiveTo = &to
	}
	return resp
}

type AssignmentResponse struct {
	ID         string    `json:"id"`
	PolicyID   string    `json:"policy_id"`
	TargetID   string    `json:"target_id"`
	Scope      ScopeType `json:"scope"`
	IsActive   bool      `json:"is_active"`
	AssignedAt time.Time `json:"assigned_at"`
}

func NewAssignmentResponse(a Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:         a.ID,
		PolicyID:   a.PolicyID,
		TargetID:   a.TargetID,
		Scope:      a.Scope,
		IsActive:   a.IsActive,
		AssignedAt: a.AssignedAt,
	}
}
