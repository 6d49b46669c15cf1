package service

import (
	"context"
	"strings"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/repository"
)

type rewardService struct {
	rewardRepo   repository.RewardRepository
	locationRepo repository.LocationRepository
	audit        AuditRecorder
}

func NewRewardService(rewardRepo repository.RewardRepository, locationRepo repository.LocationRepository, audit AuditRecorder) RewardService {
	return &rewardService{rewardRepo: rewardRepo, locationRepo: locationRepo, audit: recorderOrNoop(audit)}
}

func (s *rewardService) List(ctx context.Context, caller authz.Caller, filter domain.CatalogFilter) ([]domain.Reward, domain.PageMeta, error) {
	if err := filter.Normalize(); err != nil {
		return nil, domain.PageMeta{}, err
	}
	filter.LocationID = authz.ScopeFilter(caller, filter.LocationID)

	items, total, err := s.rewardRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.PageMeta{}, internalOr("list rewards", err)
	}
	return items, filter.Meta(total), nil
}

func (s *rewardService) Get(ctx context.Context, caller authz.Caller, id string) (*domain.Reward, error) {
	r, err := s.rewardRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.EnforceLocation(caller, r.LocationID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *rewardService) Create(ctx context.Context, caller authz.Caller, in RewardInput) (*domain.Reward, error) {
	if err := authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	locationID, err := catalogLocation(ctx, s.locationRepo, caller, in.LocationID)
	if err != nil {
		return nil, err
	}

	r := &domain.Reward{
		LocationID:     locationID,
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		ImageURL:       in.ImageURL,
		PointsRequired: in.PointsRequired,
		Stock:          in.Stock,
	}
	if err := s.rewardRepo.Create(ctx, r); err != nil {
		return nil, internalOr("create reward", err)
	}

	s.audit.Record(ctx, auditEntry(domain.AuditRewardCreate, caller, &r.LocationID, map[string]any{
		"rewardId":       r.ID,
		"pointsRequired": r.PointsRequired,
		"stock":          r.Stock,
	}))
	return r, nil
}

// Update never touches existing redemptions: their pointsSpent stays as charged.
func (s *rewardService) Update(ctx context.Context, caller authz.Caller, id string, in RewardInput) (*domain.Reward, error) {
	if err := authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	r, err := s.rewardRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.EnforceLocation(caller, r.LocationID); err != nil {
		return nil, err
	}
	if in.LocationID != nil && *in.LocationID != "" && *in.LocationID != r.LocationID {
		return nil, apperr.Validation("Reward location cannot be changed")
	}

	r.Name = strings.TrimSpace(in.Name)
	r.Description = in.Description
	r.ImageURL = in.ImageURL
	r.PointsRequired = in.PointsRequired
	r.Stock = in.Stock
	if err := s.rewardRepo.Update(ctx, r); err != nil {
		return nil, internalOr("update reward", err)
	}

	s.audit.Record(ctx, auditEntry(domain.AuditRewardUpdate, caller, &r.LocationID, map[string]any{
		"rewardId":       r.ID,
		"pointsRequired": r.PointsRequired,
		"stock":          r.Stock,
	}))
	return r, nil
}

// Delete fails with a conflict once the reward has redemptions.
func (s *rewardService) Delete(ctx context.Context, caller authz.Caller, id string) error {
	if err := authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
		return err
	}
	r, err := s.rewardRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.EnforceLocation(caller, r.LocationID); err != nil {
		return err
	}
	if err := s.rewardRepo.Delete(ctx, id); err != nil {
		return internalOr("delete reward", err)
	}

	s.audit.Record(ctx, auditEntry(domain.AuditRewardDelete, caller, &r.LocationID, map[string]any{"rewardId": id}))
	return nil
}

func (in RewardInput) validate() error {
	fields := map[string]string{}
	checkName(fields, "name", strings.TrimSpace(in.Name))
	if in.PointsRequired < 0 {
		fields["pointsRequired"] = "must not be negative"
	}
	if in.Stock < 0 {
		fields["stock"] = "must not be negative"
	}
	if len(fields) > 0 {
		return apperr.ValidationFields(fields)
	}
	return nil
}
