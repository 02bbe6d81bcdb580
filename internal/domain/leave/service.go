package leave

import (
	"context"
	"time"
)

// AccrualService grants statutory annual leave.
type AccrualService interface {
	// GrantInitial creates this year's annual leave balance for a member.
	// Calling it again for the same year returns the existing balance.
	GrantInitial(ctx context.Context, req GrantInitialRequest) (BalanceResponse, error)

	// AccrueYearly runs the Jan 1 grant for members with at least one year of
	// tenure. Members under a JOIN_DATE policy are left to AccrueAnniversary.
	AccrueYearly(ctx context.Context, companyID string, ref time.Time) (AccrualResult, error)

	// AccrueMonthlyFirstYear runs the monthly grant for members in their first year.
	AccrueMonthlyFirstYear(ctx context.Context, companyID string, ref time.Time) (AccrualResult, error)

	// AccrueAnniversary grants the yearly days to members under a JOIN_DATE
	// policy whose join anniversary falls on ref.
	AccrueAnniversary(ctx context.Context, companyID string, ref time.Time) (AccrualResult, error)
}

type BalanceService interface {
	ListMyBalances(ctx context.Context, memberID string, year int) ([]BalanceResponse, error)

	// PreviewDeduction computes the days a prospective request would consume
	// and checks them against the member's balance.
	PreviewDeduction(ctx context.Context, req DeductionPreviewRequest) (DeductionPreviewResponse, error)
}
