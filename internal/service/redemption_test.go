package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/service"
)

func newRedemptionService(f *fixture) service.RedemptionService {
	return service.NewRedemptionService(f.store.UserRepository, f.store.RewardRepository, f.store.RedemptionRepository, f.store.TxManager, nil)
}

func TestRedemptionService_Redeem(t *testing.T) {
	ctx := context.Background()

	t.Run("DebitsPointsAndStock", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, f.nasabahA.UserID, 100)

		r, err := newRedemptionService(f).Redeem(ctx, f.nasabahA, f.rewardA.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RedemptionStatusApproved, r.Status)
		assert.Equal(t, int64(80), r.PointsSpent)
		assert.Equal(t, int64(20), f.points(t, f.nasabahA.UserID))
		assert.Equal(t, int64(0), f.stock(t, f.rewardA.ID))
	})

	t.Run("InsufficientPoints", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, f.nasabahA.UserID, 79)

		_, err := newRedemptionService(f).Redeem(ctx, f.nasabahA, f.rewardA.ID)
		assert.True(t, apperr.IsConflict(err))
		assert.Equal(t, int64(79), f.points(t, f.nasabahA.UserID))
		assert.Equal(t, int64(1), f.stock(t, f.rewardA.ID))
	})

	t.Run("OtherLocationReward", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, f.nasabahB.UserID, 500)

		_, err := newRedemptionService(f).Redeem(ctx, f.nasabahB, f.rewardA.ID)
		assert.True(t, apperr.IsAuthorization(err))
		assert.Equal(t, int64(500), f.points(t, f.nasabahB.UserID))
	})

	t.Run("StaffCannotRedeem", func(t *testing.T) {
		f := newFixture(t)
		_, err := newRedemptionService(f).Redeem(ctx, f.adminA, f.rewardA.ID)
		assert.True(t, apperr.IsAuthorization(err))
	})

	t.Run("PriceChangeKeepsSnapshot", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, f.nasabahA.UserID, 100)
		svc := newRedemptionService(f)
		r, err := svc.Redeem(ctx, f.nasabahA, f.rewardA.ID)
		require.NoError(t, err)

		rewards := service.NewRewardService(f.store.RewardRepository, f.store.LocationRepository, nil)
		_, err = rewards.Update(ctx, f.adminA, f.rewardA.ID, service.RewardInput{Name: f.rewardA.Name, PointsRequired: 500, Stock: 3})
		require.NoError(t, err)

		stored, err := f.store.RedemptionRepository.GetByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(80), stored.PointsSpent)
	})
}

func TestRedemptionService_ConcurrentRedeemLastUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const n = 8
	callers := make([]authz.Caller, n)
	for i := range callers {
		callers[i] = f.addUser(t, "racer-"+string(rune('a'+i)), domain.RoleNasabah, &f.locA)
		f.credit(t, callers[i].UserID, 100)
	}
	svc := newRedemptionService(f)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, c := range callers {
		wg.Add(1)
		go func(c authz.Caller) {
			defer wg.Done()
			_, err := svc.Redeem(ctx, c, f.rewardA.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperr.IsConflict(err):
				conflicts++
			}
		}(c)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, int64(0), f.stock(t, f.rewardA.ID))

	var total int64
	for _, c := range callers {
		total += f.points(t, c.UserID)
	}
	assert.Equal(t, int64(n*100-80), total)
}

func TestRedemptionService_RequestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("RequestMovesNothing", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, f.nasabahA.UserID, 100)

		r, err := newRedemptionService(f).Request(ctx, f.nasabahA, f.rewardA.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RedemptionStatusPending, r.Status)
		assert.Equal(t, int64(100), f.points(t, f.nasabahA.UserID))
		assert.Equal(t, int64(1), f.stock(t, f.rewardA.ID))
	})

	t.Run("ApproveChargesCurrentPrice", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, f.nasabahA.UserID, 100)
		svc := newRedemptionService(f)
		r, err := svc.Request(ctx, f.nasabahA, f.rewardA.ID)
		require.NoError(t, err)

		rewards := service.NewRewardService(f.store.RewardRepository, f.store.LocationRepository, nil)
		_, err = rewards.Update(ctx, f.adminA, f.rewardA.ID, service.RewardInput{Name: f.rewardA.Name, PointsRequired: 90, Stock: 1})
		require.NoError(t, err)

		approved, err := svc.Approve(ctx, f.adminA, r.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RedemptionStatusApproved, approved.Status)
		assert.Equal(t, int64(90), approved.PointsSpent)
		assert.Equal(t, f.adminA.UserID, *approved.ProcessedBy)
		assert.Equal(t, int64(10), f.points(t, f.nasabahA.UserID))
		assert.Equal(t, int64(0), f.stock(t, f.rewardA.ID))

		_, err = svc.Approve(ctx, f.adminA, r.ID)
		assert.True(t, apperr.IsConflict(err))
		_, err = svc.Reject(ctx, f.adminA, r.ID)
		assert.True(t, apperr.IsConflict(err))
		assert.Equal(t, int64(10), f.points(t, f.nasabahA.UserID))
	})

	t.Run("ApproveRevalidatesBalance", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, f.nasabahA.UserID, 100)
		svc := newRedemptionService(f)
		r, err := svc.Request(ctx, f.nasabahA, f.rewardA.ID)
		require.NoError(t, err)

		rewards := service.NewRewardService(f.store.RewardRepository, f.store.LocationRepository, nil)
		_, err = rewards.Update(ctx, f.adminA, f.rewardA.ID, service.RewardInput{Name: f.rewardA.Name, PointsRequired: 150, Stock: 1})
		require.NoError(t, err)

		_, err = svc.Approve(ctx, f.adminA, r.ID)
		assert.True(t, apperr.IsConflict(err))

		stored, err := f.store.RedemptionRepository.GetByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RedemptionStatusPending, stored.Status)
		assert.Equal(t, int64(100), f.points(t, f.nasabahA.UserID))
	})

	t.Run("ConcurrentApproveSingleWinner", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, f.nasabahA.UserID, 1000)
		svc := newRedemptionService(f)
		rewards := service.NewRewardService(f.store.RewardRepository, f.store.LocationRepository, nil)
		_, err := rewards.Update(ctx, f.adminA, f.rewardA.ID, service.RewardInput{Name: f.rewardA.Name, PointsRequired: 80, Stock: 10})
		require.NoError(t, err)
		r, err := svc.Request(ctx, f.nasabahA, f.rewardA.ID)
		require.NoError(t, err)

		const n = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(approver authz.Caller) {
				defer wg.Done()
				_, err := svc.Approve(ctx, approver, r.ID)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case apperr.IsConflict(err):
					conflicts++
				}
			}([]authz.Caller{f.adminA, f.super}[i%2])
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, n-1, conflicts)
		assert.Equal(t, int64(920), f.points(t, f.nasabahA.UserID))
		assert.Equal(t, int64(9), f.stock(t, f.rewardA.ID))

		stored, err := f.store.RedemptionRepository.GetByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RedemptionStatusApproved, stored.Status)
	})

	t.Run("OtherLocationAdminCannotApprove", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, f.nasabahA.UserID, 100)
		svc := newRedemptionService(f)
		r, err := svc.Request(ctx, f.nasabahA, f.rewardA.ID)
		require.NoError(t, err)

		_, err = svc.Approve(ctx, f.adminB, r.ID)
		assert.True(t, apperr.IsAuthorization(err))

		stored, err := f.store.RedemptionRepository.GetByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RedemptionStatusPending, stored.Status)
		assert.Equal(t, int64(100), f.points(t, f.nasabahA.UserID))
		assert.Equal(t, int64(1), f.stock(t, f.rewardA.ID))
	})

	t.Run("RejectMovesNothing", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, f.nasabahA.UserID, 100)
		svc := newRedemptionService(f)
		r, err := svc.Request(ctx, f.nasabahA, f.rewardA.ID)
		require.NoError(t, err)

		rejected, err := svc.Reject(ctx, f.super, r.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RedemptionStatusRejected, rejected.Status)
		assert.Equal(t, int64(100), f.points(t, f.nasabahA.UserID))
		assert.Equal(t, int64(1), f.stock(t, f.rewardA.ID))
	})

	t.Run("PetugasCannotApprove", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, f.nasabahA.UserID, 100)
		svc := newRedemptionService(f)
		r, err := svc.Request(ctx, f.nasabahA, f.rewardA.ID)
		require.NoError(t, err)

		_, err = svc.Approve(ctx, f.petugasA, r.ID)
		assert.True(t, apperr.IsAuthorization(err))
	})
}

func TestRedemptionService_HistoryAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.credit(t, f.nasabahA.UserID, 100)
	svc := newRedemptionService(f)
	_, err := svc.Redeem(ctx, f.nasabahA, f.rewardA.ID)
	require.NoError(t, err)

	history, err := svc.History(ctx, f.nasabahA)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, f.rewardA.Name, history[0].RewardName)

	items, _, err := svc.List(ctx, f.adminB, domain.RedemptionFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, meta, err := svc.List(ctx, f.adminA, domain.RedemptionFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, meta.Total)

	_, _, err = svc.List(ctx, f.nasabahA, domain.RedemptionFilter{})
	assert.True(t, apperr.IsAuthorization(err))
}
