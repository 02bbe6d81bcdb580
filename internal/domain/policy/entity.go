package policy

import "time"

// TypeCode classifies a policy and decides which rule blocks and legal
// floors apply to it.
type TypeCode string

const (
	TypeAnnualLeave     TypeCode = "PTC001"
	TypeMaternityLeave  TypeCode = "PTC002"
	TypePaternityLeave  TypeCode = "PTC003"
	TypeChildcareLeave  TypeCode = "PTC004"
	TypeFamilyCareLeave TypeCode = "PTC005"
	TypeMenstrualLeave  TypeCode = "PTC006"
	TypeStandardWork    TypeCode = "PTC101"
	TypeBusinessTrip    TypeCode = "PTC102"
	TypeOvertime        TypeCode = "PTC103"
	TypeNightWork       TypeCode = "PTC104"
	TypeHolidayWork     TypeCode = "PTC105"
)

// AllTypeCodes lists every known policy type.
var AllTypeCodes = []TypeCode{
	TypeAnnualLeave,
	TypeMaternityLeave,
	TypePaternityLeave,
	TypeChildcareLeave,
	TypeFamilyCareLeave,
	TypeMenstrualLeave,
	TypeStandardWork,
	TypeBusinessTrip,
	TypeOvertime,
	TypeNightWork,
	TypeHolidayWork,
}

var typeNames = map[TypeCode]string{
	TypeAnnualLeave:     "ANNUAL_LEAVE",
	TypeMaternityLeave:  "MATERNITY_LEAVE",
	TypePaternityLeave:  "PATERNITY_LEAVE",
	TypeChildcareLeave:  "CHILDCARE_LEAVE",
	TypeFamilyCareLeave: "FAMILY_CARE_LEAVE",
	TypeMenstrualLeave:  "MENSTRUAL_LEAVE",
	TypeStandardWork:    "STANDARD_WORK",
	TypeBusinessTrip:    "BUSINESS_TRIP",
	TypeOvertime:        "OVERTIME",
	TypeNightWork:       "NIGHT_WORK",
	TypeHolidayWork:     "HOLIDAY_WORK",
}

func (c TypeCode) IsValid() bool {
	_, ok := typeNames[c]
	return ok
}

// Name returns the symbolic name, e.g. "STANDARD_WORK".
func (c TypeCode) Name() string {
	if n, ok := typeNames[c]; ok {
		return n
	}
	return string(c)
}

// IsBalanceDeductible reports whether requests of this type consume a MemberBalance.
func (c TypeCode) IsBalanceDeductible() bool {
	switch c {
	case TypeAnnualLeave, TypeMaternityLeave, TypePaternityLeave,
		TypeChildcareLeave, TypeFamilyCareLeave, TypeMenstrualLeave:
		return true
	}
	return false
}

// ScopeType is the kind of target a policy is assigned to.
type ScopeType string

const (
	ScopeCompany      ScopeType = "PST001"
	ScopeOrganization ScopeType = "PST002"
	ScopeMember       ScopeType = "PST003"
)

func (s ScopeType) IsValid() bool {
	switch s {
	case ScopeCompany, ScopeOrganization, ScopeMember:
		return true
	}
	return false
}

// Policy entity
type Policy struct {
	ID            string
	CompanyID     string
	TypeCode      TypeCode
	Name          string
	IsPaid        bool
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	RuleDetails   RuleDetails
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsEffectiveOn reports whether date falls inside the policy's effective range.
// Only the calendar date is compared.
func (p Policy) IsEffectiveOn(date time.Time) bool {
	d := truncateDay(date)
	if d.Before(truncateDay(p.EffectiveFrom)) {
		return false
	}
	if p.EffectiveTo != nil && d.After(truncateDay(*p.EffectiveTo)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Assignment binds a policy to a member, an organization or a whole company.
type Assignment struct {
	ID         string
	PolicyID   string
	CompanyID  string
	TargetID   string
	Scope      ScopeType
	IsActive   bool
	AssignedAt time.Time
}
