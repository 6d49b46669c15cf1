package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository"
	"wastebank-backend/internal/security"
)

const maxLeaderboard = 100

var validate = validator.New()

type userService struct {
	userRepo     repository.UserRepository
	locationRepo repository.LocationRepository
	audit        AuditRecorder
}

func NewUserService(userRepo repository.UserRepository, locationRepo repository.LocationRepository, audit AuditRecorder) UserService {
	return &userService{userRepo: userRepo, locationRepo: locationRepo, audit: recorderOrNoop(audit)}
}

func (s *userService) List(ctx context.Context, caller authz.Caller, filter domain.UserFilter) ([]domain.User, domain.PageMeta, error) {
	if err := authz.RequireRole(caller, staffRoles...); err != nil {
		return nil, domain.PageMeta{}, err
	}
	if err := filter.Normalize(); err != nil {
		return nil, domain.PageMeta{}, err
	}
	filter.LocationID = authz.ScopeFilter(caller, filter.LocationID)

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.PageMeta{}, internalOr("list users", err)
	}
	return users, filter.Meta(total), nil
}

func (s *userService) Get(ctx context.Context, caller authz.Caller, id string) (*domain.User, error) {
	if id != caller.UserID {
		if err := authz.RequireRole(caller, staffRoles...); err != nil {
			return nil, err
		}
	}
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if id != caller.UserID {
		if err := authz.EnforceLocationScope(caller, u.LocationID); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (s *userService) Create(ctx context.Context, caller authz.Caller, in CreateUserInput) (*domain.User, error) {
	logger.EnterMethod("userService.Create", "callerID", caller.UserID, "role", in.Role)

	if err := authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
		return nil, err
	}

	locationID := in.LocationID
	if caller.Role == domain.RoleAdmin {
		if in.Role == domain.RoleSuperAdmin {
			return nil, apperr.Authorization("Only SUPERADMIN can create SUPERADMIN accounts")
		}
		if locationID == nil || *locationID == "" {
			locationID = caller.LocationID
		}
		if err := authz.EnforceLocationScope(caller, locationID); err != nil {
			return nil, err
		}
	}
	if locationID != nil && *locationID == "" {
		locationID = nil
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateProfile(strings.TrimSpace(in.Name), email, &in.Password); err != nil {
		return nil, err
	}
	if err := domain.ValidateRoleLocation(in.Role, locationID); err != nil {
		return nil, err
	}
	if locationID != nil {
		if _, err := s.locationRepo.GetByID(ctx, *locationID); err != nil {
			return nil, err
		}
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	u := &domain.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		LocationID:   locationID,
		AvatarURL:    in.AvatarURL,
		RW:           in.RW,
		RT:           in.RT,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		logger.ExitMethodWithError("userService.Create", err)
		return nil, internalOr("create user", err)
	}

	s.audit.Record(ctx, auditEntry(domain.AuditUserCreate, caller, u.LocationID, map[string]any{
		"userId": u.ID,
		"role":   u.Role,
	}))

	logger.ExitMethod("userService.Create", "userID", u.ID)
	return u, nil
}

func (s *userService) Update(ctx context.Context, caller authz.Caller, id string, in UpdateUserInput) (*domain.User, error) {
	logger.EnterMethod("userService.Update", "userID", id, "callerID", caller.UserID)

	if in.Points != nil {
		return nil, apperr.ValidationFields(map[string]string{"points": "cannot be edited directly"})
	}

	self := id == caller.UserID
	changesAccess := in.Role != nil || in.LocationID != nil
	if !self || changesAccess {
		if err := authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
			return nil, err
		}
	}

	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	wasSuperAdmin := u.Role == domain.RoleSuperAdmin

	if !self {
		if err := authz.EnforceLocationScope(caller, u.LocationID); err != nil {
			return nil, err
		}
	}
	if caller.Role == domain.RoleAdmin && in.Role != nil && *in.Role == domain.RoleSuperAdmin {
		return nil, apperr.Authorization("Only SUPERADMIN can grant SUPERADMIN")
	}

	in.UserUpdate.Apply(u)
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.LocationID != nil && *u.LocationID == "" {
		u.LocationID = nil
	}

	if err := validateProfile(u.Name, u.Email, in.Password); err != nil {
		return nil, err
	}
	if err := domain.ValidateRoleLocation(u.Role, u.LocationID); err != nil {
		return nil, err
	}
	if caller.Role == domain.RoleAdmin {
		if err := authz.EnforceLocationScope(caller, u.LocationID); err != nil {
			return nil, err
		}
	}
	if in.LocationID != nil && u.LocationID != nil {
		if _, err := s.locationRepo.GetByID(ctx, *u.LocationID); err != nil {
			return nil, err
		}
	}
	if wasSuperAdmin && u.Role != domain.RoleSuperAdmin {
		if err := s.ensureAnotherSuperAdmin(ctx); err != nil {
			return nil, err
		}
	}

	if in.Password != nil {
		hash, err := security.HashPassword(*in.Password)
		if err != nil {
			return nil, apperr.Internal("hash password", err)
		}
		u.PasswordHash = hash
	}

	if err := s.userRepo.Update(ctx, u); err != nil {
		logger.ExitMethodWithError("userService.Update", err)
		return nil, internalOr("update user", err)
	}

	s.audit.Record(ctx, auditEntry(domain.AuditUserUpdate, caller, u.LocationID, map[string]any{
		"userId": u.ID,
		"role":   u.Role,
	}))

	logger.ExitMethod("userService.Update", "userID", id)
	return u, nil
}

func (s *userService) Delete(ctx context.Context, caller authz.Caller, id string) error {
	if err := authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
		return err
	}
	if id == caller.UserID {
		return apperr.Validation("Cannot delete your own account")
	}

	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.EnforceLocationScope(caller, u.LocationID); err != nil {
		return err
	}
	if u.Role == domain.RoleSuperAdmin {
		if err := s.ensureAnotherSuperAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return internalOr("delete user", err)
	}

	s.audit.Record(ctx, auditEntry(domain.AuditUserDelete, caller, u.LocationID, map[string]any{
		"userId": id,
		"role":   u.Role,
	}))
	return nil
}

func (s *userService) ensureAnotherSuperAdmin(ctx context.Context) error {
	n, err := s.userRepo.CountByRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return internalOr("count superadmins", err)
	}
	if n <= 1 {
		return apperr.Conflict("Cannot remove the last SUPERADMIN")
	}
	return nil
}

func (s *userService) Leaderboard(ctx context.Context, caller authz.Caller, locationID *string, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 || limit > maxLeaderboard {
		limit = maxLeaderboard
	}
	entries, err := s.userRepo.Leaderboard(ctx, authz.ScopeFilter(caller, locationID), limit)
	if err != nil {
		return nil, internalOr("leaderboard", err)
	}
	return entries, nil
}

// validateProfile checks the fields shared by create and update. A nil
// password means it is not being changed.
func validateProfile(name, email string, password *string) error {
	fields := map[string]string{}
	checkName(fields, "name", name)
	if err := validate.Var(email, "required,email"); err != nil {
		fields["email"] = "must be a valid email address"
	}
	if password != nil && len(*password) < security.MinPasswordLength {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		return apperr.ValidationFields(fields)
	}
	return nil
}
