package service

import (
	"context"
	"strings"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository"
	"wastebank-backend/internal/security"
)

// EnsureSuperAdmin creates the first SUPERADMIN account when the store has
// none. It reports whether an account was created. An existing SUPERADMIN
// leaves the store untouched.
func EnsureSuperAdmin(ctx context.Context, userRepo repository.UserRepository, name, email, password string) (bool, error) {
	n, err := userRepo.CountByRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return false, internalOr("count superadmins", err)
	}
	if n > 0 {
		return false, nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Super Admin"
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateProfile(name, email, &password); err != nil {
		return false, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return false, apperr.Internal("hash password", err)
	}
	u := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: domain.RoleSuperAdmin}
	if err := userRepo.Create(ctx, u); err != nil {
		return false, internalOr("create superadmin", err)
	}
	logger.Info("Bootstrap SUPERADMIN created", "user_id", u.ID, "email", u.Email)
	return true, nil
}
