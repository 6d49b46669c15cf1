package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/service"
)

func newUserService(f *fixture) service.UserService {
	return service.NewUserService(f.store.UserRepository, f.store.LocationRepository, nil)
}

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("AdminCreatesInOwnLocation", func(t *testing.T) {
		f := newFixture(t)
		u, err := newUserService(f).Create(ctx, f.adminA, service.CreateUserInput{
			Name:     "Siti Aminah",
			Email:    "Siti@Example.com",
			Password: "rahasia123",
			Role:     domain.RoleNasabah,
		})
		require.NoError(t, err)
		assert.Equal(t, f.locA, *u.LocationID)
		assert.Equal(t, "siti@example.com", u.Email)
		assert.NotEqual(t, "rahasia123", u.PasswordHash)
		assert.Equal(t, int64(0), u.Points)
	})

	t.Run("AdminCannotCreateSuperAdmin", func(t *testing.T) {
		f := newFixture(t)
		_, err := newUserService(f).Create(ctx, f.adminA, service.CreateUserInput{
			Name: "Root", Email: "root@example.com", Password: "rahasia123", Role: domain.RoleSuperAdmin,
		})
		assert.True(t, apperr.IsAuthorization(err))
	})

	t.Run("AdminCannotCreateElsewhere", func(t *testing.T) {
		f := newFixture(t)
		_, err := newUserService(f).Create(ctx, f.adminA, service.CreateUserInput{
			Name: "Budi", Email: "budi@example.com", Password: "rahasia123", Role: domain.RolePetugas, LocationID: &f.locB,
		})
		assert.True(t, apperr.IsAuthorization(err))
	})

	t.Run("RoleLocationRule", func(t *testing.T) {
		f := newFixture(t)
		svc := newUserService(f)
		_, err := svc.Create(ctx, f.super, service.CreateUserInput{
			Name: "Root Two", Email: "root2@example.com", Password: "rahasia123", Role: domain.RoleSuperAdmin, LocationID: &f.locA,
		})
		assert.True(t, apperr.IsAuthorization(err))

		_, err = svc.Create(ctx, f.super, service.CreateUserInput{
			Name: "Budi", Email: "budi@example.com", Password: "rahasia123", Role: domain.RoleNasabah,
		})
		assert.True(t, apperr.IsAuthorization(err))
	})

	t.Run("InvalidProfile", func(t *testing.T) {
		f := newFixture(t)
		_, err := newUserService(f).Create(ctx, f.super, service.CreateUserInput{
			Name: "B", Email: "not-an-email", Password: "short", Role: domain.RoleNasabah, LocationID: &f.locA,
		})
		require.True(t, apperr.IsValidation(err))
		fields := apperr.FieldDetails(err)
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password")
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		f := newFixture(t)
		_, err := newUserService(f).Create(ctx, f.adminA, service.CreateUserInput{
			Name: "Copy", Email: "nasabah-a@example.com", Password: "rahasia123", Role: domain.RoleNasabah,
		})
		assert.True(t, apperr.IsConflict(err))
	})

	t.Run("NasabahCannotCreate", func(t *testing.T) {
		f := newFixture(t)
		_, err := newUserService(f).Create(ctx, f.nasabahA, service.CreateUserInput{
			Name: "Budi", Email: "budi@example.com", Password: "rahasia123", Role: domain.RoleNasabah,
		})
		assert.True(t, apperr.IsAuthorization(err))
	})
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("BalanceIsNotEditable", func(t *testing.T) {
		f := newFixture(t)
		points := int64(1000)
		_, err := newUserService(f).Update(ctx, f.super, f.nasabahA.UserID, service.UpdateUserInput{Points: &points})
		assert.True(t, apperr.IsValidation(err))
		assert.Equal(t, int64(0), f.points(t, f.nasabahA.UserID))
	})

	t.Run("SelfProfileUpdate", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, f.nasabahA.UserID, 42)
		name := "Ibu Ani"
		u, err := newUserService(f).Update(ctx, f.nasabahA, f.nasabahA.UserID, service.UpdateUserInput{
			UserUpdate: domain.UserUpdate{Name: &name},
		})
		require.NoError(t, err)
		assert.Equal(t, "Ibu Ani", u.Name)
		assert.Equal(t, int64(42), f.points(t, f.nasabahA.UserID))
	})

	t.Run("SelfCannotChangeRole", func(t *testing.T) {
		f := newFixture(t)
		role := domain.RoleAdmin
		_, err := newUserService(f).Update(ctx, f.nasabahA, f.nasabahA.UserID, service.UpdateUserInput{
			UserUpdate: domain.UserUpdate{Role: &role},
		})
		assert.True(t, apperr.IsAuthorization(err))
	})

	t.Run("AdminCannotPromoteToSuperAdmin", func(t *testing.T) {
		f := newFixture(t)
		role := domain.RoleSuperAdmin
		var noLocation *string
		_, err := newUserService(f).Update(ctx, f.adminA, f.petugasA.UserID, service.UpdateUserInput{
			UserUpdate: domain.UserUpdate{Role: &role, LocationID: &noLocation},
		})
		assert.True(t, apperr.IsAuthorization(err))
	})

	t.Run("AdminCannotMoveUserOut", func(t *testing.T) {
		f := newFixture(t)
		dest := &f.locB
		_, err := newUserService(f).Update(ctx, f.adminA, f.petugasA.UserID, service.UpdateUserInput{
			UserUpdate: domain.UserUpdate{LocationID: &dest},
		})
		assert.True(t, apperr.IsAuthorization(err))
	})

	t.Run("LastSuperAdminKeepsRole", func(t *testing.T) {
		f := newFixture(t)
		role := domain.RoleAdmin
		dest := &f.locA
		_, err := newUserService(f).Update(ctx, f.super, f.super.UserID, service.UpdateUserInput{
			UserUpdate: domain.UserUpdate{Role: &role, LocationID: &dest},
		})
		assert.True(t, apperr.IsConflict(err))
	})
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("LastSuperAdmin", func(t *testing.T) {
		f := newFixture(t)
		other := f.addUser(t, "super-2", domain.RoleSuperAdmin, nil)
		svc := newUserService(f)

		require.NoError(t, svc.Delete(ctx, other, f.super.UserID))
		err := svc.Delete(ctx, f.super, other.UserID)
		assert.True(t, apperr.IsConflict(err))
	})

	t.Run("OutOfScope", func(t *testing.T) {
		f := newFixture(t)
		err := newUserService(f).Delete(ctx, f.adminA, f.nasabahB.UserID)
		assert.True(t, apperr.IsAuthorization(err))
	})

	t.Run("CannotDeleteSelf", func(t *testing.T) {
		f := newFixture(t)
		err := newUserService(f).Delete(ctx, f.adminA, f.adminA.UserID)
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestUserService_GetAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newUserService(f)

	_, err := svc.Get(ctx, f.nasabahA, f.nasabahA.UserID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, f.nasabahA, f.petugasA.UserID)
	assert.True(t, apperr.IsAuthorization(err))
	_, err = svc.Get(ctx, f.adminA, f.nasabahB.UserID)
	assert.True(t, apperr.IsAuthorization(err))

	users, meta, err := svc.List(ctx, f.adminA, domain.UserFilter{})
	require.NoError(t, err)
	for _, u := range users {
		assert.Equal(t, f.locA, *u.LocationID)
	}
	assert.Equal(t, len(users), meta.Total)
}

func TestUserService_Leaderboard(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepo)
	svc := service.NewUserService(repo, nil, nil)
	entries := []domain.LeaderboardEntry{}
	locB := "loc-b"
	atLocation := func(id string) any {
		return mock.MatchedBy(func(l *string) bool { return l != nil && *l == id })
	}

	repo.On("Leaderboard", ctx, (*string)(nil), 100).Return(entries, nil).Once()
	_, err := svc.Leaderboard(ctx, authzCaller(domain.RoleSuperAdmin), nil, 500)
	require.NoError(t, err)

	repo.On("Leaderboard", ctx, atLocation("loc-b"), 10).Return(entries, nil).Once()
	_, err = svc.Leaderboard(ctx, authzCaller(domain.RoleSuperAdmin), &locB, 10)
	require.NoError(t, err)

	repo.On("Leaderboard", ctx, atLocation("loc-a"), 10).Return(entries, nil).Twice()
	_, err = svc.Leaderboard(ctx, authzCaller(domain.RoleNasabah), &locB, 10)
	require.NoError(t, err)
	_, err = svc.Leaderboard(ctx, authzCaller(domain.RoleAdmin), nil, 10)
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestUserService_LeaderboardStaysInLocation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.credit(t, f.nasabahA.UserID, 40)
	f.credit(t, f.nasabahB.UserID, 500)
	svc := newUserService(f)

	for _, c := range []authz.Caller{f.nasabahA, f.adminA, f.petugasA} {
		for _, requested := range []*string{nil, &f.locB} {
			entries, err := svc.Leaderboard(ctx, c, requested, 10)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, f.nasabahA.UserID, entries[0].UserID)
			assert.Equal(t, int64(40), entries[0].Points)
		}
	}

	entries, err := svc.Leaderboard(ctx, f.super, nil, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, f.nasabahB.UserID, entries[0].UserID)
}
