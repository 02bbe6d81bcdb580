package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/member"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type directoryImpl struct {
	db *database.DB
}

// NewDirectory reads the member and organization tables of the HR core.
func NewDirectory(db *database.DB) member.Directory {
	return &directoryImpl{db: db}
}

func scanMember(row pgx.Row) (member.Member, error) {
	var (
		m    member.Member
		join *time.Time
	)
	if err := row.Scan(&m.ID, &m.CompanyID, &m.OrganizationID, &m.Name, &join, &m.Status); err != nil {
		return member.Member{}, err
	}
	if join != nil {
		m.JoinDate = *join
	}
	return m, nil
}

// GetMember implements member.Directory.
func (d *directoryImpl) GetMember(ctx context.Context, memberID string) (member.Member, error) {
	q := GetQuerier(ctx, d.db)

	query := `
		SELECT id, company_id, organization_id, name, join_date, status
		FROM members
		WHERE id = $1
	`

	m, err := scanMember(q.QueryRow(ctx, query, memberID))
	if errors.Is(err, pgx.ErrNoRows) {
		return member.Member{}, member.ErrMemberNotFound
	}
	if err != nil {
		return member.Member{}, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// OrganizationPath implements member.Directory.
func (d *directoryImpl) OrganizationPath(ctx context.Context, organizationID string) ([]string, error) {
	q := GetQuerier(ctx, d.db)

	query := `
		WITH RECURSIVE path AS (
			SELECT id, parent_id, 0 AS depth
			FROM organizations
			WHERE id = $1
			UNION ALL
			SELECT o.id, o.parent_id, p.depth + 1
			FROM organizations o
			JOIN path p ON o.id = p.parent_id
			WHERE p.depth < 64
		)
		SELECT id FROM path ORDER BY depth
	`

	rows, err := q.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization path: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to get organization path: %w", err)
	}
	if len(ids) == 0 {
		return nil, member.ErrOrganizationNotFound
	}
	return ids, nil
}

// ListActiveMembers implements member.Directory.
func (d *directoryImpl) ListActiveMembers(ctx context.Context, companyID string) ([]member.Member, error) {
	q := GetQuerier(ctx, d.db)

	query := `
		SELECT id, company_id, organization_id, name, join_date, status
		FROM members
		WHERE company_id = $1 AND status = $2
		ORDER BY join_date, id
	`

	rows, err := q.Query(ctx, query, companyID, member.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active members: %w", err)
	}
	defer rows.Close()

	members := make([]member.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListCompanyIDs implements member.Directory.
func (d *directoryImpl) ListCompanyIDs(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, d.db)

	rows, err := q.Query(ctx, `SELECT DISTINCT company_id FROM members ORDER BY company_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
