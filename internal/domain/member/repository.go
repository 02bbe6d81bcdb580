package member

import (
	"context"
	"errors"
)

var (
	ErrMemberNotFound       = errors.New("member not found")
	ErrOrganizationNotFound = errors.New("organization not found")
)

// Directory is the read-only member/organization directory owned by the HR
// core. The attendance engine never writes through it.
type Directory interface {
	GetMember(ctx context.Context, memberID string) (Member, error)

	// OrganizationPath returns organizationID followed by its ancestors,
	// nearest first and the root last.
	OrganizationPath(ctx context.Context, organizationID string) ([]string, error)

	ListActiveMembers(ctx context.Context, companyID string) ([]Member, error)

	ListCompanyIDs(ctx context.Context) ([]string, error)
}
