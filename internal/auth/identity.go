package auth

import "context"

type contextKey string

const contextKeyIdentity contextKey = "auth.identity"

// Identity is the authenticated caller: the organization (tenant) it acts
// for, its role inside that organization, and the user subject.
type Identity struct {
	TenantID string
	Role     Role
	Subject  string
}

// WithIdentity stores the caller identity in context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, identity)
}

// IdentityFromContext extracts the caller identity, zero when absent.
func IdentityFromContext(ctx context.Context) Identity {
	if ctx == nil {
		return Identity{}
	}
	if identity, ok := ctx.Value(contextKeyIdentity).(Identity); ok {
		return identity
	}
	return Identity{}
}

// TenantIDFromContext extracts the tenant id from context.
func TenantIDFromContext(ctx context.Context) string {
	return IdentityFromContext(ctx).TenantID
}

// RoleFromContext extracts the role from context.
func RoleFromContext(ctx context.Context) Role {
	return IdentityFromContext(ctx).Role
}

// SubjectFromContext extracts the user subject from context.
func SubjectFromContext(ctx context.Context) string {
	return IdentityFromContext(ctx).Subject
}
