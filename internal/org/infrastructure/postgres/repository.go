package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"portledger/internal/auth"
	org "portledger/internal/org/domain"
)

// Repository persists organizations and members.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get fetches an organization.
func (r *Repository) Get(ctx context.Context, id string) (*org.Organization, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("org repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, country, tax_id, created_at, updated_at
FROM organizations
WHERE id = $1
LIMIT 1`, id)

	var o org.Organization
	var country, taxID sql.NullString
	err := row.Scan(&o.ID, &o.Name, &country, &taxID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if country.Valid {
		o.Country = country.String
	}
	if taxID.Valid {
		o.TaxID = taxID.String
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}

// Create inserts an organization.
func (r *Repository) Create(ctx context.Context, o *org.Organization) error {
	if r == nil || r.db == nil {
		return errors.New("org repo: nil db")
	}
	if o == nil {
		return errors.New("org repo: nil organization")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO organizations (id, name, country, tax_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.Name, nullString(o.Country), nullString(o.TaxID), o.CreatedAt, o.UpdatedAt)
	return err
}

// ListMembers returns members of an organization ordered by email.
func (r *Repository) ListMembers(ctx context.Context, orgID string) ([]org.Member, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("org repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, org_id, email, display_name, role, created_at, updated_at
FROM org_members
WHERE org_id = $1
ORDER BY email ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []org.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, member)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetMember fetches a member scoped to an organization.
func (r *Repository) GetMember(ctx context.Context, orgID, memberID string) (*org.Member, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("org repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, org_id, email, display_name, role, created_at, updated_at
FROM org_members
WHERE org_id = $1 AND id = $2
LIMIT 1`, orgID, memberID)
	member, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// FindMemberByEmail fetches a member by email within an organization.
func (r *Repository) FindMemberByEmail(ctx context.Context, orgID, email string) (*org.Member, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("org repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, org_id, email, display_name, role, created_at, updated_at
FROM org_members
WHERE org_id = $1 AND email = $2
LIMIT 1`, orgID, email)
	member, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// AddMember inserts a member.
func (r *Repository) AddMember(ctx context.Context, member org.Member) error {
	if r == nil || r.db == nil {
		return errors.New("org repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO org_members (id, org_id, email, display_name, role, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		member.ID, member.OrgID, member.Email, nullString(member.DisplayName), string(member.Role), member.CreatedAt, member.UpdatedAt)
	return err
}

// UpdateMemberRole changes a member role.
func (r *Repository) UpdateMemberRole(ctx context.Context, orgID, memberID string, role auth.Role, now time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("org repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE org_members
SET role = $1, updated_at = $2
WHERE org_id = $3 AND id = $4`, string(role), now, orgID, memberID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return org.ErrMemberNotFound
	}
	return nil
}

// RemoveMember deletes a member.
func (r *Repository) RemoveMember(ctx context.Context, orgID, memberID string) error {
	if r == nil || r.db == nil {
		return errors.New("org repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
DELETE FROM org_members
WHERE org_id = $1 AND id = $2`, orgID, memberID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return org.ErrMemberNotFound
	}
	return nil
}

// CountAdmins counts admins of an organization.
func (r *Repository) CountAdmins(ctx context.Context, orgID string) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("org repo: nil db")
	}
	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM org_members
WHERE org_id = $1 AND role = 'admin'`, orgID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (org.Member, error) {
	var member org.Member
	var displayName sql.NullString
	var role string
	err := row.Scan(&member.ID, &member.OrgID, &member.Email, &displayName, &role, &member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		return org.Member{}, err
	}
	if displayName.Valid {
		member.DisplayName = displayName.String
	}
	member.Role = auth.Role(role)
	member.CreatedAt = member.CreatedAt.UTC()
	member.UpdatedAt = member.UpdatedAt.UTC()
	return member, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
