package member

import "time"

// Status is the employment status kept by the member directory.
type Status string

const (
	StatusActive    Status = "MS001"
	StatusOnLeave   Status = "MS002"
	StatusSuspended Status = "MS003"
	StatusResigned  Status = "MS004"
)

// Member is the read-only view of an employee used by the rule engine.
type Member struct {
	ID             string
	CompanyID      string
	OrganizationID *string
	Name           string
	JoinDate       time.Time
	Status         Status
}

func (m Member) IsActive() bool {
	return m.Status == StatusActive
}

// Organization is a node of a company's organization tree.
type Organization struct {
	ID        string
	CompanyID string
	ParentID  *string
	Name      string
}
