// Package authz holds the request identity and the role and location guards
// every service operation runs before touching data.
package authz

import (
	"context"
	"slices"
	"time"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
)

// Caller is the authenticated identity of a request.
type Caller struct {
	UserID     string
	Role       domain.Role
	LocationID *string
	ExpiresAt  time.Time
}

func (c Caller) IsSuperAdmin() bool { return c.Role == domain.RoleSuperAdmin }

// Location returns the caller's location id or "" for an unscoped caller.
func (c Caller) Location() string {
	if c.LocationID == nil {
		return ""
	}
	return *c.LocationID
}

// RequireRole fails with an authorization error unless the caller holds one
// of the allowed roles.
func RequireRole(c Caller, allowed ...domain.Role) error {
	if slices.Contains(allowed, c.Role) {
		return nil
	}
	return apperr.Authorization("Insufficient permissions")
}

// EnforceLocationScope allows SUPERADMIN everywhere. Any other caller must
// share a non-empty location with the resource.
func EnforceLocationScope(c Caller, resourceLocationID *string) error {
	if c.IsSuperAdmin() {
		return nil
	}
	if c.LocationID == nil || *c.LocationID == "" || resourceLocationID == nil || *resourceLocationID != *c.LocationID {
		return apperr.Authorization("Access denied: resource belongs to a different location")
	}
	return nil
}

// EnforceLocation is EnforceLocationScope for a non-null resource location.
func EnforceLocation(c Caller, resourceLocationID string) error {
	return EnforceLocationScope(c, &resourceLocationID)
}

// ScopeFilter returns the location a list query must be restricted to.
// SUPERADMIN may ask for any location (or none); everyone else gets their own.
func ScopeFilter(c Caller, requested *string) *string {
	if c.IsSuperAdmin() {
		if requested != nil && *requested == "" {
			return nil
		}
		return requested
	}
	return c.LocationID
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the authenticated caller or an authentication error.
func CallerFrom(ctx context.Context) (Caller, error) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	if !ok || c.UserID == "" {
		return Caller{}, apperr.Authentication("Authentication required")
	}
	return c, nil
}
