package fixtures_test

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/fixtures"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/memory"
	policysvc "github.com/cmlabs-hris/hris-attendance-engine/internal/service/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPoliciesPassValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := policysvc.NewPolicyService(policysvc.NewRegistry(), store.Policies(), store.Assignments(), store)

	auth := policy.AuthRule{Methods: []policy.AuthMethodRule{{
		DeviceType: "LAPTOP",
		AuthMethod: policy.AuthMethodNetworkIP,
		Details:    policy.AuthDetails{AllowedIPs: []string{"10.0.0.0/24"}},
	}}}

	defaults := fixtures.GetAllDefaultPolicies("company-1", "2026-01-01", auth)
	seen := make(map[policy.TypeCode]bool)
	for _, req := range defaults {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err, "default %s policy", req.TypeCode)
		seen[req.TypeCode] = true
	}

	assert.Len(t, seen, 11)
}
