package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/repository"
	"wastebank-backend/internal/repository/memory"
)

// fixture seeds two locations with one account per role, plus one category
// and one reward in location A.
type fixture struct {
	store *repository.Store

	locA, locB string

	super    authz.Caller
	adminA   authz.Caller
	adminB   authz.Caller
	petugasA authz.Caller
	nasabahA authz.Caller
	nasabahB authz.Caller

	categoryA *domain.WasteCategory
	rewardA   *domain.Reward
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	f := &fixture{store: store, locA: "loc-a", locB: "loc-b"}

	for _, loc := range []*domain.Location{
		{ID: f.locA, Desa: "Sukamaju", Kecamatan: "Cibeunying", Kabupaten: "Bandung"},
		{ID: f.locB, Desa: "Mekarsari", Kecamatan: "Cimahi", Kabupaten: "Bandung Barat"},
	} {
		require.NoError(t, store.LocationRepository.Create(ctx, loc))
	}

	f.super = f.addUser(t, "super", domain.RoleSuperAdmin, nil)
	f.adminA = f.addUser(t, "admin-a", domain.RoleAdmin, &f.locA)
	f.adminB = f.addUser(t, "admin-b", domain.RoleAdmin, &f.locB)
	f.petugasA = f.addUser(t, "petugas-a", domain.RolePetugas, &f.locA)
	f.nasabahA = f.addUser(t, "nasabah-a", domain.RoleNasabah, &f.locA)
	f.nasabahB = f.addUser(t, "nasabah-b", domain.RoleNasabah, &f.locB)

	f.categoryA = &domain.WasteCategory{ID: "cat-a", LocationID: f.locA, Name: "Plastik", PointsPerKg: 10}
	require.NoError(t, store.CategoryRepository.Create(ctx, f.categoryA))

	f.rewardA = &domain.Reward{ID: "reward-a", LocationID: f.locA, Name: "Minyak Goreng 1L", PointsRequired: 80, Stock: 1}
	require.NoError(t, store.RewardRepository.Create(ctx, f.rewardA))

	return f
}

func (f *fixture) addUser(t *testing.T, id string, role domain.Role, loc *string) authz.Caller {
	t.Helper()
	u := &domain.User{ID: id, Name: "User " + id, Email: id + "@example.com", PasswordHash: "x", Role: role, LocationID: loc}
	require.NoError(t, f.store.UserRepository.Create(context.Background(), u))
	return authz.Caller{UserID: id, Role: role, LocationID: loc}
}

func (f *fixture) credit(t *testing.T, userID string, amount int64) {
	t.Helper()
	err := f.store.TxManager.WithTx(context.Background(), func(ctx context.Context, tx repository.LedgerTx) error {
		return tx.CreditPoints(ctx, userID, amount)
	})
	require.NoError(t, err)
}

func (f *fixture) points(t *testing.T, userID string) int64 {
	t.Helper()
	u, err := f.store.UserRepository.GetByID(context.Background(), userID)
	require.NoError(t, err)
	return u.Points
}

func (f *fixture) stock(t *testing.T, rewardID string) int64 {
	t.Helper()
	r, err := f.store.RewardRepository.GetByID(context.Background(), rewardID)
	require.NoError(t, err)
	return r.Stock
}
