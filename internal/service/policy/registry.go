package policy

import (
	"fmt"
	"sort"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/shopspring/decimal"
)

// RuleValidator checks a rule document against the structural and legal
// requirements of one policy type. It returns every violation found.
type RuleValidator interface {
	Validate(details policy.RuleDetails) []string
}

// RuleValidatorFunc adapts a plain function to RuleValidator.
type RuleValidatorFunc func(details policy.RuleDetails) []string

func (f RuleValidatorFunc) Validate(details policy.RuleDetails) []string {
	return f(details)
}

// Registry maps policy types to their validators.
type Registry struct {
	validators map[policy.TypeCode]RuleValidator
}

func NewRegistry() *Registry {
	return &Registry{
		validators: map[policy.TypeCode]RuleValidator{
			policy.TypeStandardWork:    RuleValidatorFunc(validateStandardWork),
			policy.TypeAnnualLeave:     RuleValidatorFunc(validateAnnualLeave),
			policy.TypeMaternityLeave:  RuleValidatorFunc(validateMaternityLeave),
			policy.TypePaternityLeave:  RuleValidatorFunc(validatePaternityLeave),
			policy.TypeChildcareLeave:  RuleValidatorFunc(validateChildcareLeave),
			policy.TypeFamilyCareLeave: RuleValidatorFunc(validateFamilyCareLeave),
			policy.TypeMenstrualLeave:  RuleValidatorFunc(validateMenstrualLeave),
			policy.TypeOvertime:        RuleValidatorFunc(validateOvertime),
			policy.TypeNightWork:       RuleValidatorFunc(validateNightWork),
			policy.TypeHolidayWork:     RuleValidatorFunc(validateHolidayWork),
			policy.TypeBusinessTrip:    RuleValidatorFunc(validateBusinessTrip),
		},
	}
}

// Lookup returns the validator for code. Unknown codes get a validator that
// accepts everything.
func (r *Registry) Lookup(code policy.TypeCode) RuleValidator {
	if v, ok := r.validators[code]; ok {
		return v
	}
	return noopValidator{}
}

// Has reports whether code has a dedicated validator.
func (r *Registry) Has(code policy.TypeCode) bool {
	_, ok := r.validators[code]
	return ok
}

type noopValidator struct{}

func (noopValidator) Validate(policy.RuleDetails) []string { return nil }

// violations collects rule failures in order.
type violations []string

func (v *violations) add(format string, args ...any) {
	*v = append(*v, fmt.Sprintf(format, args...))
}

func (v *violations) minRate(name string, rate *decimal.Decimal, floor decimal.Decimal) {
	if rate != nil && rate.LessThan(floor) {
		v.add("%s must be at least %s", name, floor.String())
	}
}

var (
	rateFloor          = decimal.RequireFromString("1.5")
	holidayOTRateFloor = decimal.RequireFromString("2.0")
)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
