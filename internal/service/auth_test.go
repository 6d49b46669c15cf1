package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/security"
	"wastebank-backend/internal/service"
)

func authzCaller(role domain.Role) authz.Caller {
	loc := "loc-a"
	if role == domain.RoleSuperAdmin {
		return authz.Caller{UserID: "caller", Role: role}
	}
	return authz.Caller{UserID: "caller", Role: role, LocationID: &loc}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := security.HashPassword("rahasia123")
	require.NoError(t, err)
	loc := "loc-a"
	user := &domain.User{ID: "u1", Email: "ani@example.com", PasswordHash: hash, Role: domain.RolePetugas, LocationID: &loc}

	tokens := security.NewTokenManager("test-secret", time.Hour)

	t.Run("Success", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByEmail", ctx, "ani@example.com").Return(user, nil).Once()
		svc := service.NewAuthService(repo, tokens)

		res, err := svc.Login(ctx, " Ani@Example.com ", "rahasia123")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, "u1", res.User.ID)

		caller, err := tokens.Authenticate(res.Token)
		require.NoError(t, err)
		assert.Equal(t, domain.RolePetugas, caller.Role)
		assert.Equal(t, "loc-a", caller.Location())
		repo.AssertExpectations(t)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByEmail", ctx, "ani@example.com").Return(user, nil).Once()
		_, err := service.NewAuthService(repo, tokens).Login(ctx, "ani@example.com", "salah")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
		assert.True(t, apperr.IsAuthentication(err))
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, apperr.NotFound("User")).Once()
		_, err := service.NewAuthService(repo, tokens).Login(ctx, "nobody@example.com", "rahasia123")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("MissingFields", func(t *testing.T) {
		_, err := service.NewAuthService(new(MockUserRepo), tokens).Login(ctx, "", "")
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestAuthService_Me(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepo)
	repo.On("GetByID", ctx, "gone").Return(nil, apperr.NotFound("User")).Once()

	_, err := service.NewAuthService(repo, nil).Me(ctx, authz.Caller{UserID: "gone", Role: domain.RoleNasabah})
	assert.True(t, apperr.IsAuthentication(err))
}
