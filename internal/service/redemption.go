package service

import (
	"context"
	"time"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/metrics"
	"wastebank-backend/internal/repository"
)

const historyLimit = 50

type redemptionService struct {
	userRepo       repository.UserRepository
	rewardRepo     repository.RewardRepository
	redemptionRepo repository.RedemptionRepository
	ledger         repository.TxManager
	audit          AuditRecorder
	now            func() time.Time
}

func NewRedemptionService(
	userRepo repository.UserRepository,
	rewardRepo repository.RewardRepository,
	redemptionRepo repository.RedemptionRepository,
	ledger repository.TxManager,
	audit AuditRecorder,
) RedemptionService {
	return &redemptionService{
		userRepo:       userRepo,
		rewardRepo:     rewardRepo,
		redemptionRepo: redemptionRepo,
		ledger:         ledger,
		audit:          recorderOrNoop(audit),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// chargeReward locks the user and the reward (always in that order), checks
// location, balance and stock against the current rows, then debits the
// current price and takes one unit of stock. It returns the charged amount.
func chargeReward(ctx context.Context, tx repository.LedgerTx, userID, rewardID string) (int64, *domain.Reward, error) {
	user, err := tx.GetUserForUpdate(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	reward, err := tx.GetRewardForUpdate(ctx, rewardID)
	if err != nil {
		return 0, nil, err
	}
	if err := checkRedeemable(user, reward); err != nil {
		return 0, nil, err
	}

	cost := reward.PointsRequired
	if err := tx.DebitPoints(ctx, user.ID, cost); err != nil {
		return 0, nil, err
	}
	if err := tx.DecrementStock(ctx, reward.ID); err != nil {
		return 0, nil, err
	}
	return cost, reward, nil
}

func checkRedeemable(user *domain.User, reward *domain.Reward) error {
	if !domain.SameLocation(user.LocationID, &reward.LocationID) {
		return apperr.Authorization("Reward is not available at this location")
	}
	if user.Points < reward.PointsRequired {
		return apperr.Conflict("Insufficient points")
	}
	if reward.Stock <= 0 {
		return apperr.Conflict("Reward out of stock")
	}
	return nil
}

func (s *redemptionService) Redeem(ctx context.Context, caller authz.Caller, rewardID string) (*domain.Redemption, error) {
	logger.EnterMethod("redemptionService.Redeem", "userID", caller.UserID, "rewardID", rewardID)

	if err := authz.RequireRole(caller, domain.RoleNasabah); err != nil {
		return nil, err
	}

	var result *domain.Redemption
	err := s.ledger.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		cost, reward, err := chargeReward(ctx, tx, caller.UserID, rewardID)
		if err != nil {
			return err
		}
		now := s.now()
		r := &domain.Redemption{
			UserID:      caller.UserID,
			RewardID:    reward.ID,
			LocationID:  reward.LocationID,
			PointsSpent: cost,
			Status:      domain.RedemptionStatusApproved,
			ProcessedAt: &now,
			RedeemedAt:  now,
			RewardName:  reward.Name,
		}
		if err := tx.InsertRedemption(ctx, r); err != nil {
			return err
		}
		result = r
		return nil
	})
	metrics.RecordLedger("redemption.redeem", err)
	if err != nil {
		logger.ExitMethodWithWarning("redemptionService.Redeem", err, "rewardID", rewardID)
		return nil, internalOr("redeem reward", err)
	}
	metrics.AddPointsRedeemed(result.PointsSpent)

	s.audit.Record(ctx, auditEntry(domain.AuditRewardRedeem, caller, &result.LocationID, map[string]any{
		"redemptionId": result.ID,
		"rewardId":     result.RewardID,
		"pointsSpent":  result.PointsSpent,
	}))

	logger.ExitMethod("redemptionService.Redeem", "redemptionID", result.ID)
	return result, nil
}

func (s *redemptionService) Request(ctx context.Context, caller authz.Caller, rewardID string) (*domain.Redemption, error) {
	logger.EnterMethod("redemptionService.Request", "userID", caller.UserID, "rewardID", rewardID)

	if err := authz.RequireRole(caller, domain.RoleNasabah); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	reward, err := s.rewardRepo.GetByID(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	// Advisory only: approval checks again against the rows it locks.
	if err := checkRedeemable(user, reward); err != nil {
		return nil, err
	}

	r := &domain.Redemption{
		UserID:      user.ID,
		RewardID:    reward.ID,
		LocationID:  reward.LocationID,
		PointsSpent: reward.PointsRequired,
		Status:      domain.RedemptionStatusPending,
		RedeemedAt:  s.now(),
		RewardName:  reward.Name,
	}
	if err := s.redemptionRepo.Create(ctx, r); err != nil {
		return nil, internalOr("request redemption", err)
	}

	s.audit.Record(ctx, auditEntry(domain.AuditRedemptionRequest, caller, &r.LocationID, map[string]any{
		"redemptionId": r.ID,
		"rewardId":     r.RewardID,
	}))

	logger.ExitMethod("redemptionService.Request", "redemptionID", r.ID)
	return r, nil
}

func (s *redemptionService) Approve(ctx context.Context, caller authz.Caller, id string) (*domain.Redemption, error) {
	return s.finalize(ctx, caller, id, domain.RedemptionStatusApproved)
}

func (s *redemptionService) Reject(ctx context.Context, caller authz.Caller, id string) (*domain.Redemption, error) {
	return s.finalize(ctx, caller, id, domain.RedemptionStatusRejected)
}

// finalize moves a PENDING redemption to APPROVED or REJECTED. Approval
// charges the reward's current price, which may differ from the price
// shown when the request was made.
func (s *redemptionService) finalize(ctx context.Context, caller authz.Caller, id string, to domain.RedemptionStatus) (*domain.Redemption, error) {
	logger.EnterMethod("redemptionService.finalize", "redemptionID", id, "status", to, "callerID", caller.UserID)

	if err := authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
		return nil, err
	}

	var result *domain.Redemption
	err := s.ledger.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		r, err := tx.GetRedemptionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		requester, err := tx.GetUserForUpdate(ctx, r.UserID)
		if err != nil {
			return err
		}
		if err := authz.EnforceLocationScope(caller, requester.LocationID); err != nil {
			return err
		}
		if r.Status != domain.RedemptionStatusPending {
			return apperr.Conflict("Redemption already processed")
		}

		if to == domain.RedemptionStatusApproved {
			cost, _, err := chargeReward(ctx, tx, r.UserID, r.RewardID)
			if err != nil {
				return err
			}
			r.PointsSpent = cost
		}

		now := s.now()
		r.Status = to
		r.ProcessedBy = strPtr(caller.UserID)
		r.ProcessedAt = &now
		if err := tx.FinalizeRedemption(ctx, r); err != nil {
			return err
		}
		result = r
		return nil
	})

	op, action := "redemption.approve", domain.AuditRedemptionApprove
	if to == domain.RedemptionStatusRejected {
		op, action = "redemption.reject", domain.AuditRedemptionReject
	}
	metrics.RecordLedger(op, err)
	if err != nil {
		logger.ExitMethodWithWarning("redemptionService.finalize", err, "redemptionID", id)
		return nil, internalOr(op, err)
	}
	if to == domain.RedemptionStatusApproved {
		metrics.AddPointsRedeemed(result.PointsSpent)
	}

	s.audit.Record(ctx, auditEntry(action, caller, &result.LocationID, map[string]any{
		"redemptionId": result.ID,
		"userId":       result.UserID,
		"rewardId":     result.RewardID,
		"pointsSpent":  result.PointsSpent,
	}))

	logger.ExitMethod("redemptionService.finalize", "redemptionID", id, "status", to)
	return result, nil
}

func (s *redemptionService) History(ctx context.Context, caller authz.Caller) ([]domain.Redemption, error) {
	if err := authz.RequireRole(caller, domain.RoleNasabah); err != nil {
		return nil, err
	}
	filter := domain.RedemptionFilter{
		Page:   domain.Page{Page: 1, PageSize: historyLimit},
		UserID: strPtr(caller.UserID),
	}
	items, _, err := s.redemptionRepo.List(ctx, filter)
	if err != nil {
		return nil, internalOr("redemption history", err)
	}
	return items, nil
}

func (s *redemptionService) List(ctx context.Context, caller authz.Caller, filter domain.RedemptionFilter) ([]domain.Redemption, domain.PageMeta, error) {
	if err := authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
		return nil, domain.PageMeta{}, err
	}
	if err := filter.Normalize(); err != nil {
		return nil, domain.PageMeta{}, err
	}
	filter.LocationID = authz.ScopeFilter(caller, filter.LocationID)

	items, total, err := s.redemptionRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.PageMeta{}, internalOr("list redemptions", err)
	}
	return items, filter.Meta(total), nil
}
