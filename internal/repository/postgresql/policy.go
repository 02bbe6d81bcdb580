package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const policyColumns = `p.id, p.company_id, p.type_code, p.name, p.is_paid,
	p.effective_from, p.effective_to, p.rule_details, p.is_active,
	p.created_at, p.updated_at`

type policyRepositoryImpl struct {
	db *database.DB
}

func NewPolicyRepository(db *database.DB) policy.PolicyRepository {
	return &policyRepositoryImpl{db: db}
}

func scanPolicy(row pgx.Row) (policy.Policy, error) {
	var (
		p     policy.Policy
		rules []byte
	)
	if err := row.Scan(
		&p.ID, &p.CompanyID, &p.TypeCode, &p.Name, &p.IsPaid,
		&p.EffectiveFrom, &p.EffectiveTo, &rules, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return policy.Policy{}, err
	}
	if err := json.Unmarshal(rules, &p.RuleDetails); err != nil {
		return policy.Policy{}, fmt.Errorf("%w: %v", policy.ErrMalformedRuleDetails, err)
	}
	return p, nil
}

func collectPolicies(rows pgx.Rows) ([]policy.Policy, error) {
	defer rows.Close()

	policies := make([]policy.Policy, 0)
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// Create implements policy.PolicyRepository.
func (r *policyRepositoryImpl) Create(ctx context.Context, p policy.Policy) (policy.Policy, error) {
	q := GetQuerier(ctx, r.db)

	rules, err := json.Marshal(p.RuleDetails)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("failed to encode rule details: %w", err)
	}

	query := `
		INSERT INTO policies (
			company_id, type_code, name, is_paid, effective_from, effective_to, rule_details, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err = q.QueryRow(ctx, query,
		p.CompanyID, p.TypeCode, p.Name, p.IsPaid, p.EffectiveFrom, p.EffectiveTo, rules, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("failed to create policy: %w", err)
	}
	return p, nil
}

// GetByID implements policy.PolicyRepository.
func (r *policyRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (policy.Policy, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + policyColumns + ` FROM policies p WHERE p.id = $1 AND p.company_id = $2`

	p, err := scanPolicy(q.QueryRow(ctx, query, id, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return policy.Policy{}, policy.ErrPolicyNotFound
	}
	if err != nil {
		return policy.Policy{}, fmt.Errorf("failed to get policy: %w", err)
	}
	return p, nil
}

// List implements policy.PolicyRepository.
func (r *policyRepositoryImpl) List(ctx context.Context, filter policy.ListPolicyFilter) ([]policy.Policy, error) {
	q := GetQuerier(ctx, r.db)

	where := []string{"p.company_id = $1"}
	args := []any{filter.CompanyID}
	if filter.TypeCode != nil {
		args = append(args, *filter.TypeCode)
		where = append(where, fmt.Sprintf("p.type_code = $%d", len(args)))
	}
	if filter.ActiveOnly {
		where = append(where, "p.is_active")
	}

	query := `SELECT ` + policyColumns + ` FROM policies p
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.created_at DESC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return collectPolicies(rows)
}

// ListEffective implements policy.PolicyRepository.
func (r *policyRepositoryImpl) ListEffective(ctx context.Context, companyID string, date time.Time) ([]policy.Policy, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + policyColumns + ` FROM policies p
		WHERE p.company_id = $1
		  AND p.is_active
		  AND p.effective_from <= $2::date
		  AND (p.effective_to IS NULL OR p.effective_to >= $2::date)
		ORDER BY p.created_at DESC`

	rows, err := q.Query(ctx, query, companyID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list effective policies: %w", err)
	}
	return collectPolicies(rows)
}

// LatestUnassigned implements policy.PolicyRepository.
func (r *policyRepositoryImpl) LatestUnassigned(ctx context.Context, companyID string, typeCode policy.TypeCode, date time.Time) (*policy.Policy, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + policyColumns + ` FROM policies p
		WHERE p.company_id = $1
		  AND p.type_code = $2
		  AND p.is_active
		  AND p.effective_from <= $3::date
		  AND (p.effective_to IS NULL OR p.effective_to >= $3::date)
		  AND NOT EXISTS (
			SELECT 1 FROM policy_assignments pa
			WHERE pa.policy_id = p.id AND pa.is_active
		  )
		ORDER BY p.created_at DESC
		LIMIT 1`

	p, err := scanPolicy(q.QueryRow(ctx, query, companyID, typeCode, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unassigned policy: %w", err)
	}
	return &p, nil
}

type assignmentRepositoryImpl struct {
	db *database.DB
}

func NewAssignmentRepository(db *database.DB) policy.AssignmentRepository {
	return &assignmentRepositoryImpl{db: db}
}

// Assign implements policy.AssignmentRepository.
func (r *assignmentRepositoryImpl) Assign(ctx context.Context, a policy.Assignment, typeCode policy.TypeCode) (policy.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	deactivate := `
		UPDATE policy_assignments pa
		SET is_active = FALSE
		FROM policies p
		WHERE pa.policy_id = p.id
		  AND pa.target_id = $1
		  AND pa.scope_type = $2
		  AND pa.is_active
		  AND p.type_code = $3
	`
	if _, err := q.Exec(ctx, deactivate, a.TargetID, a.Scope, typeCode); err != nil {
		return policy.Assignment{}, fmt.Errorf("failed to deactivate previous assignments: %w", err)
	}

	insert := `
		INSERT INTO policy_assignments (policy_id, company_id, target_id, scope_type, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, is_active, assigned_at
	`
	if err := q.QueryRow(ctx, insert, a.PolicyID, a.CompanyID, a.TargetID, a.Scope).
		Scan(&a.ID, &a.IsActive, &a.AssignedAt); err != nil {
		return policy.Assignment{}, fmt.Errorf("failed to create assignment: %w", err)
	}
	return a, nil
}

// ListByPolicy implements policy.AssignmentRepository.
func (r *assignmentRepositoryImpl) ListByPolicy(ctx context.Context, policyID string) ([]policy.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, policy_id, company_id, target_id, scope_type, is_active, assigned_at
		FROM policy_assignments
		WHERE policy_id = $1
		ORDER BY assigned_at
	`

	rows, err := q.Query(ctx, query, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]policy.Assignment, 0)
	for rows.Next() {
		var a policy.Assignment
		if err := rows.Scan(&a.ID, &a.PolicyID, &a.CompanyID, &a.TargetID, &a.Scope, &a.IsActive, &a.AssignedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// FindEffectivePolicy implements policy.AssignmentRepository.
func (r *assignmentRepositoryImpl) FindEffectivePolicy(ctx context.Context, companyID string, targetID string, scope policy.ScopeType, typeCode policy.TypeCode, date time.Time) (*policy.Policy, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + policyColumns + `
		FROM policy_assignments pa
		JOIN policies p ON p.id = pa.policy_id
		WHERE pa.company_id = $1
		  AND p.company_id = $1
		  AND pa.target_id = $2
		  AND pa.scope_type = $3
		  AND pa.is_active
		  AND p.is_active
		  AND p.type_code = $4
		  AND p.effective_from <= $5::date
		  AND (p.effective_to IS NULL OR p.effective_to >= $5::date)
		ORDER BY pa.assigned_at DESC
		LIMIT 1`

	p, err := scanPolicy(q.QueryRow(ctx, query, companyID, targetID, scope, typeCode, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find effective policy: %w", err)
	}
	return &p, nil
}
