package service

import (
	"context"
	"strings"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository"
	"wastebank-backend/internal/security"
)

// ErrInvalidCredentials is returned for an unknown email and a wrong
// password alike.
var ErrInvalidCredentials = apperr.Authentication("Invalid email or password")

type authService struct {
	userRepo repository.UserRepository
	tokens   security.TokenManager
}

func NewAuthService(userRepo repository.UserRepository, tokens security.TokenManager) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	logger.EnterMethod("authService.Login", "email", email)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			logger.ExitMethodWithWarning("authService.Login", ErrInvalidCredentials, "email", email)
			return nil, ErrInvalidCredentials
		}
		return nil, internalOr("login", err)
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		logger.ExitMethodWithWarning("authService.Login", ErrInvalidCredentials, "userID", user.ID)
		return nil, ErrInvalidCredentials
	}
	if err := domain.ValidateRoleLocation(user.Role, user.LocationID); err != nil {
		logger.Error("Stored user violates role/location rule", "userID", user.ID, "error", err)
		return nil, apperr.Authentication("Account is misconfigured")
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, apperr.Internal("generate token", err)
	}

	logger.ExitMethod("authService.Login", "userID", user.ID, "role", user.Role)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authService) Me(ctx context.Context, caller authz.Caller) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, caller.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Authentication("Account no longer exists")
		}
		return nil, err
	}
	return user, nil
}
