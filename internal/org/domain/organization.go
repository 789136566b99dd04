package org

import (
	"errors"
	"time"

	"portledger/internal/auth"
)

var (
	// ErrNotFound is returned when an organization does not exist.
	ErrNotFound = errors.New("org: not found")
	// ErrMemberNotFound is returned when a member does not exist.
	ErrMemberNotFound = errors.New("org: member not found")
	// ErrDuplicateMember is returned when an email is already enrolled.
	ErrDuplicateMember = errors.New("org: member already exists")
	// ErrEmptyEmail is returned when a member has no email.
	ErrEmptyEmail = errors.New("org: member email required")
	// ErrInvalidRole is returned for a role outside viewer/operator/admin.
	ErrInvalidRole = errors.New("org: invalid member role")
	// ErrLastAdmin is returned when removing or demoting the only admin.
	ErrLastAdmin = errors.New("org: organization needs at least one admin")
)

// Organization is the tenant: one port agency office. Its id is the
// tenant_id every other table is scoped by.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country,omitempty"`
	TaxID     string    `json:"tax_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is a user enrolled in an organization with an access role.
type Member struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Role        auth.Role `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewMember validates and builds a member.
func NewMember(id, orgID, email, displayName string, role auth.Role, now time.Time) (Member, error) {
	if email == "" {
		return Member{}, ErrEmptyEmail
	}
	if _, ok := auth.NormalizeRole(string(role)); !ok {
		return Member{}, ErrInvalidRole
	}
	return Member{
		ID:          id,
		OrgID:       orgID,
		Email:       email,
		DisplayName: displayName,
		Role:        role,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}
