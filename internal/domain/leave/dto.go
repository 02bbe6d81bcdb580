package leave

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// BALANCE DTOs
// ========================================

type GrantInitialRequest struct {
	MemberID      string `json:"member_id" validate:"required,uuid"`
	CompanyID     string `json:"-"`
	ReferenceDate string `json:"reference_date,omitempty"`
}

func (r *GrantInitialRequest) Validate() error {
	errs := validator.Struct(r)

	if r.ReferenceDate != "" {
		if _, ok := validator.IsValidDate(r.ReferenceDate); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "reference_date",
				Message: "reference_date must be in YYYY-MM-DD format",
			})
		}
	}

	return errs.Err()
}

type BalanceResponse struct {
	ID              string          `json:"id"`
	MemberID        string          `json:"member_id"`
	BalanceTypeCode policy.TypeCode `json:"balance_type_code"`
	BalanceTypeName string          `json:"balance_type_name"`
	Year            int             `json:"year"`
	TotalGranted    decimal.Decimal `json:"total_granted"`
	TotalUsed       decimal.Decimal `json:"total_used"`
	Remaining       decimal.Decimal `json:"remaining"`
	ExpirationDate  string          `json:"expiration_date"`
	IsUsable        bool            `json:"is_usable"`
}

func NewBalanceResponse(b MemberBalance) BalanceResponse {
	return BalanceResponse{
		ID:              b.ID,
		MemberID:        b.MemberID,
		BalanceTypeCode: b.BalanceTypeCode,
		BalanceTypeName: b.BalanceTypeCode.Name(),
		Year:            b.Year,
		TotalGranted:    b.TotalGranted,
		TotalUsed:       b.TotalUsed,
		Remaining:       b.Remaining,
		ExpirationDate:  b.ExpirationDate.Format("2006-01-02"),
		IsUsable:        b.IsUsable,
	}
}

// AccrualResult counts the outcome of one accrual run.
type AccrualResult struct {
	Processed int `json:"processed"`
	Granted   int `json:"granted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

func (r *AccrualResult) Add(o AccrualResult) {
	r.Processed += o.Processed
	r.Granted += o.Granted
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// ========================================
// DEDUCTION DTOs
// ========================================

type DeductionPreviewRequest struct {
	MemberID  string          `json:"-"`
	CompanyID string          `json:"-"`
	TypeCode  policy.TypeCode `json:"type_code" validate:"required"`
	Unit      RequestUnit     `json:"request_unit" validate:"required,oneof=RU001 RU002 RU003 RU004"`
	StartAt   time.Time       `json:"start_at" validate:"required"`
	EndAt     time.Time       `json:"end_at" validate:"required"`
}

func (r *DeductionPreviewRequest) Validate() error {
	errs := validator.Struct(r)

	if r.TypeCode != "" && !r.TypeCode.IsBalanceDeductible() {
		errs = append(errs, validator.ValidationError{
			Field:   "type_code",
			Message: "type_code must be a leave type",
		})
	}

	if !r.StartAt.IsZero() && !r.EndAt.IsZero() && r.EndAt.Before(r.StartAt) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_at",
			Message: "end_at must not be before start_at",
		})
	}

	return errs.Err()
}

type DeductionPreviewResponse struct {
	TypeCode      policy.TypeCode `json:"type_code"`
	Unit          RequestUnit     `json:"request_unit"`
	WindowStart   time.Time       `json:"window_start"`
	WindowEnd     time.Time       `json:"window_end"`
	DeductionDays decimal.Decimal `json:"deduction_days"`
	Remaining     decimal.Decimal `json:"remaining"`
	Sufficient    bool            `json:"sufficient"`
}
