package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/repository/memory"
	"wastebank-backend/internal/security"
	"wastebank-backend/internal/service"
)

func TestEnsureSuperAdmin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	created, err := service.EnsureSuperAdmin(ctx, store.UserRepository, "", " Root@Example.com ", "rahasia123")
	require.NoError(t, err)
	assert.True(t, created)

	u, err := store.UserRepository.GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, u.Role)
	assert.Nil(t, u.LocationID)
	assert.True(t, security.CheckPassword(u.PasswordHash, "rahasia123"))

	created, err = service.EnsureSuperAdmin(ctx, store.UserRepository, "Other", "other@example.com", "rahasia123")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestEnsureSuperAdminValidates(t *testing.T) {
	_, err := service.EnsureSuperAdmin(context.Background(), memory.NewStore().UserRepository, "Root", "root@example.com", "short")
	assert.True(t, apperr.IsValidation(err))
}
