package domain

import (
	"time"

	"wastebank-backend/internal/apperr"
)

type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RolePetugas    Role = "PETUGAS"
	RoleNasabah    Role = "NASABAH"
)

// Roles lists every role in privilege order.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RolePetugas, RoleNasabah}

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RolePetugas, RoleNasabah:
		return true
	}
	return false
}

// IsStaff reports whether the role may process waste transactions.
func (r Role) IsStaff() bool {
	return r == RoleSuperAdmin || r == RoleAdmin || r == RolePetugas
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", apperr.Validation("Invalid role %q", s)
	}
	return r, nil
}

// ValidateRoleLocation enforces that SUPERADMIN is unscoped and every other
// role belongs to exactly one location.
func ValidateRoleLocation(role Role, locationID *string) error {
	if !role.Valid() {
		return apperr.Validation("Invalid role %q", role)
	}
	hasLocation := locationID != nil && *locationID != ""
	if role == RoleSuperAdmin && hasLocation {
		return apperr.Authorization("SUPERADMIN must not be assigned to a location")
	}
	if role != RoleSuperAdmin && !hasLocation {
		return apperr.Authorization("%s must be assigned to a location", role)
	}
	return nil
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	LocationID   *string   `json:"locationId"`
	Points       int64     `json:"points"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	RW           string    `json:"rw,omitempty"`
	RT           string    `json:"rt,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserUpdate is a partial profile update. Balance is intentionally absent:
// points only move through the ledger.
type UserUpdate struct {
	Name       *string
	Email      *string
	Password   *string
	Role       *Role
	LocationID **string
	AvatarURL  *string
	RW         *string
	RT         *string
}

// Apply merges the update into u. The password is hashed by the caller.
func (p UserUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.LocationID != nil {
		u.LocationID = *p.LocationID
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.RW != nil {
		u.RW = *p.RW
	}
	if p.RT != nil {
		u.RT = *p.RT
	}
}

type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	UserID     string  `json:"userId"`
	Name       string  `json:"name"`
	AvatarURL  string  `json:"avatarUrl,omitempty"`
	LocationID *string `json:"locationId"`
	Points     int64   `json:"points"`
}

// BalanceDiscrepancy is a user whose stored balance disagrees with the ledger.
type BalanceDiscrepancy struct {
	UserID   string `json:"userId"`
	Stored   int64  `json:"stored"`
	Expected int64  `json:"expected"`
}
