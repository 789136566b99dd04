package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"portledger/internal/auth"
	org "portledger/internal/org/domain"
	orgrepo "portledger/internal/org/infrastructure/postgres"
)

// Service handles organization and team administration.
type Service struct {
	repo *orgrepo.Repository
}

// NewService constructs a service.
func NewService(repo *orgrepo.Repository) (*Service, error) {
	if repo == nil {
		return nil, errors.New("org service: nil repo")
	}
	return &Service{repo: repo}, nil
}

// Get returns the caller's organization.
func (s *Service) Get(ctx context.Context) (*org.Organization, error) {
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return nil, org.ErrNotFound
	}
	o, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, org.ErrNotFound
	}
	return o, nil
}

// ListMembers returns the caller organization's members.
func (s *Service) ListMembers(ctx context.Context) ([]org.Member, error) {
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return nil, org.ErrNotFound
	}
	return s.repo.ListMembers(ctx, tenantID)
}

// AddMember enrolls a user into the caller's organization.
func (s *Service) AddMember(ctx context.Context, email, displayName string, role auth.Role) (*org.Member, error) {
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return nil, org.ErrNotFound
	}
	existing, err := s.repo.FindMemberByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, org.ErrDuplicateMember
	}
	member, err := org.NewMember("member-"+uuid.NewString(), tenantID, email, displayName, role, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateMemberRole changes a member's role, refusing to demote the last
// admin.
func (s *Service) UpdateMemberRole(ctx context.Context, memberID string, role auth.Role) (*org.Member, error) {
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return nil, org.ErrNotFound
	}
	if _, ok := auth.NormalizeRole(string(role)); !ok {
		return nil, org.ErrInvalidRole
	}
	member, err := s.repo.GetMember(ctx, tenantID, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, org.ErrMemberNotFound
	}
	if member.Role == auth.RoleAdmin && role != auth.RoleAdmin {
		admins, err := s.repo.CountAdmins(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if admins <= 1 {
			return nil, org.ErrLastAdmin
		}
	}
	now := time.Now().UTC()
	if err := s.repo.UpdateMemberRole(ctx, tenantID, memberID, role, now); err != nil {
		return nil, err
	}
	member.Role = role
	member.UpdatedAt = now
	return member, nil
}

// RemoveMember removes a member, refusing to remove the last admin.
func (s *Service) RemoveMember(ctx context.Context, memberID string) error {
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return org.ErrNotFound
	}
	member, err := s.repo.GetMember(ctx, tenantID, memberID)
	if err != nil {
		return err
	}
	if member == nil {
		return org.ErrMemberNotFound
	}
	if member.Role == auth.RoleAdmin {
		admins, err := s.repo.CountAdmins(ctx, tenantID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return org.ErrLastAdmin
		}
	}
	return s.repo.RemoveMember(ctx, tenantID, memberID)
}
