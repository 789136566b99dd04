package auth

import "errors"

var (
	// ErrTenantMismatch indicates the resource belongs to another tenant.
	ErrTenantMismatch = errors.New("tenant mismatch")
	// ErrNotFound indicates the resource was not found.
	ErrNotFound = errors.New("resource not found")
)
