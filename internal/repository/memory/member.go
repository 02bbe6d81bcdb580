package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/member"
)

type memberRow struct {
	m member.Member
}

type orgRow struct {
	o member.Organization
}

type directory struct{ s *Store }

func (s *Store) Directory() member.Directory { return directory{s} }

// AddMember registers or replaces a member.
func (s *Store) AddMember(m member.Member) member.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = newID()
	}
	s.members[m.ID] = memberRow{m: m}
	return m
}

// AddOrganization registers or replaces an organization node.
func (s *Store) AddOrganization(o member.Organization) member.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = newID()
	}
	s.orgs[o.ID] = orgRow{o: o}
	return o
}

// GetMember implements member.Directory.
func (d directory) GetMember(ctx context.Context, memberID string) (member.Member, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	row, ok := d.s.members[memberID]
	if !ok {
		return member.Member{}, member.ErrMemberNotFound
	}
	return row.m, nil
}

// OrganizationPath implements member.Directory.
func (d directory) OrganizationPath(ctx context.Context, organizationID string) ([]string, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	if _, ok := d.s.orgs[organizationID]; !ok {
		return nil, member.ErrOrganizationNotFound
	}

	var path []string
	seen := make(map[string]bool)
	for id := &organizationID; id != nil && !seen[*id]; {
		row, ok := d.s.orgs[*id]
		if !ok {
			break
		}
		seen[*id] = true
		path = append(path, row.o.ID)
		id = row.o.ParentID
	}
	return path, nil
}

// ListActiveMembers implements member.Directory.
func (d directory) ListActiveMembers(ctx context.Context, companyID string) ([]member.Member, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	out := make([]member.Member, 0)
	for _, row := range d.s.members {
		if row.m.CompanyID == companyID && row.m.IsActive() {
			out = append(out, row.m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListCompanyIDs implements member.Directory.
func (d directory) ListCompanyIDs(ctx context.Context) ([]string, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	set := make(map[string]bool)
	for _, row := range d.s.members {
		set[row.m.CompanyID] = true
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
