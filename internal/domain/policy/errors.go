package policy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPolicyNotFound       = errors.New("policy not found")
	ErrInvalidPolicyRule    = errors.New("invalid policy rule")
	ErrMalformedRuleDetails = errors.New("malformed rule details")
	ErrNoApplicablePolicy   = errors.New("no applicable policy")
	ErrUnknownTypeCode      = errors.New("unknown policy type code")
	ErrPolicyInactive       = errors.New("policy is not active")
)

// RuleViolationError lists every legal-floor or structural rule a policy
// document violates. It matches ErrInvalidPolicyRule with errors.Is.
type RuleViolationError struct {
	TypeCode   TypeCode
	Violations []string
}

func (e *RuleViolationError) Error() string {
	return fmt.Sprintf("invalid %s policy: %s", e.TypeCode.Name(), strings.Join(e.Violations, "; "))
}

func (e *RuleViolationError) Unwrap() error {
	return ErrInvalidPolicyRule
}
