package memory

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/repository"
)

func seed(t *testing.T, store *repository.Store) (*domain.User, *domain.Reward) {
	t.Helper()
	ctx := context.Background()
	loc := &domain.Location{Desa: "Sukamaju", Kecamatan: "Cibeber", Kabupaten: "Cianjur"}
	require.NoError(t, store.LocationRepository.Create(ctx, loc))
	u := &domain.User{Name: "Sari", Email: "sari@desa.id", Role: domain.RoleNasabah, LocationID: &loc.ID, Points: 100}
	require.NoError(t, store.UserRepository.Create(ctx, u))
	rw := &domain.Reward{LocationID: loc.ID, Name: "Beras 1kg", PointsRequired: 60, Stock: 1}
	require.NoError(t, store.RewardRepository.Create(ctx, rw))
	return u, rw
}

func TestWithTxCommits(t *testing.T) {
	store := NewStore()
	u, rw := seed(t, store)
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		if err := tx.DebitPoints(ctx, u.ID, 60); err != nil {
			return err
		}
		return tx.DecrementStock(ctx, rw.ID)
	})
	require.NoError(t, err)

	got, _ := store.UserRepository.GetByID(ctx, u.ID)
	assert.Equal(t, int64(40), got.Points)
	gotReward, _ := store.RewardRepository.GetByID(ctx, rw.ID)
	assert.Equal(t, int64(0), gotReward.Stock)
}

func TestWithTxRollsBack(t *testing.T) {
	store := NewStore()
	u, rw := seed(t, store)
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		if err := tx.DebitPoints(ctx, u.ID, 60); err != nil {
			return err
		}
		if err := tx.DecrementStock(ctx, rw.ID); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	got, _ := store.UserRepository.GetByID(ctx, u.ID)
	assert.Equal(t, int64(100), got.Points)
	gotReward, _ := store.RewardRepository.GetByID(ctx, rw.ID)
	assert.Equal(t, int64(1), gotReward.Stock)
}

func TestWithTxCancelledContext(t *testing.T) {
	store := NewStore()
	u, _ := seed(t, store)
	ctx, cancel := context.WithCancel(context.Background())

	err := store.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		cancel()
		return tx.CreditPoints(ctx, u.ID, 10)
	})
	assert.ErrorIs(t, err, context.Canceled)

	got, _ := store.UserRepository.GetByID(context.Background(), u.ID)
	assert.Equal(t, int64(100), got.Points)
}

func TestGuardedWrites(t *testing.T) {
	store := NewStore()
	u, rw := seed(t, store)
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		return tx.DebitPoints(ctx, u.ID, 101)
	})
	assert.True(t, apperr.IsConflict(err))

	err = store.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		if err := tx.DecrementStock(ctx, rw.ID); err != nil {
			return err
		}
		return tx.DecrementStock(ctx, rw.ID)
	})
	assert.True(t, apperr.IsConflict(err))

	gotReward, _ := store.RewardRepository.GetByID(ctx, rw.ID)
	assert.Equal(t, int64(1), gotReward.Stock)
}

func TestCreditPointsOverflow(t *testing.T) {
	store := NewStore()
	u, _ := seed(t, store)
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		return tx.CreditPoints(ctx, u.ID, math.MaxInt64-50)
	})
	assert.True(t, apperr.IsValidation(err))

	err = store.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		return tx.CreditPoints(ctx, u.ID, -1)
	})
	assert.True(t, apperr.IsValidation(err))

	got, _ := store.UserRepository.GetByID(ctx, u.ID)
	assert.Equal(t, int64(100), got.Points)
}

func TestUniqueEmailAndReferences(t *testing.T) {
	store := NewStore()
	u, rw := seed(t, store)
	ctx := context.Background()

	dup := &domain.User{Name: "X", Email: "SARI@desa.id", Role: domain.RoleNasabah, LocationID: u.LocationID}
	assert.True(t, apperr.IsConflict(store.UserRepository.Create(ctx, dup)))

	require.NoError(t, store.RedemptionRepository.Create(ctx, &domain.Redemption{
		UserID: u.ID, RewardID: rw.ID, LocationID: rw.LocationID, PointsSpent: 60, Status: domain.RedemptionStatusPending,
	}))
	assert.True(t, apperr.IsConflict(store.RewardRepository.Delete(ctx, rw.ID)))
	assert.True(t, apperr.IsConflict(store.LocationRepository.Delete(ctx, rw.LocationID)))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, paginate(items, domain.Page{Page: 2, PageSize: 2}))
	assert.Equal(t, []int{5}, paginate(items, domain.Page{Page: 3, PageSize: 2}))
	assert.Nil(t, paginate(items, domain.Page{Page: 4, PageSize: 2}))
}
