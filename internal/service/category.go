package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/repository"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type categoryService struct {
	categoryRepo repository.CategoryRepository
	locationRepo repository.LocationRepository
	audit        AuditRecorder
}

func NewCategoryService(categoryRepo repository.CategoryRepository, locationRepo repository.LocationRepository, audit AuditRecorder) CategoryService {
	return &categoryService{categoryRepo: categoryRepo, locationRepo: locationRepo, audit: recorderOrNoop(audit)}
}

func (s *categoryService) List(ctx context.Context, caller authz.Caller, filter domain.CatalogFilter) ([]domain.WasteCategory, domain.PageMeta, error) {
	if err := filter.Normalize(); err != nil {
		return nil, domain.PageMeta{}, err
	}
	filter.LocationID = authz.ScopeFilter(caller, filter.LocationID)

	items, total, err := s.categoryRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.PageMeta{}, internalOr("list categories", err)
	}
	return items, filter.Meta(total), nil
}

func (s *categoryService) Create(ctx context.Context, caller authz.Caller, in CategoryInput) (*domain.WasteCategory, error) {
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

	c := &domain.WasteCategory{
		LocationID:  locationID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Color:       in.Color,
		PointsPerKg: in.PointsPerKg,
	}
	if err := s.categoryRepo.Create(ctx, c); err != nil {
		return nil, internalOr("create category", err)
	}

	s.audit.Record(ctx, auditEntry(domain.AuditCategoryCreate, caller, &c.LocationID, map[string]any{
		"categoryId":  c.ID,
		"pointsPerKg": c.PointsPerKg,
	}))
	return c, nil
}

// Update edits a category that no completed transaction references yet.
// Once points have been awarded at a rate, the category is frozen and a new
// category must be created instead.
func (s *categoryService) Update(ctx context.Context, caller authz.Caller, id string, in CategoryInput) (*domain.WasteCategory, error) {
	if err := authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	c, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.EnforceLocation(caller, c.LocationID); err != nil {
		return nil, err
	}
	if in.LocationID != nil && *in.LocationID != "" && *in.LocationID != c.LocationID {
		return nil, apperr.Validation("Category location cannot be changed")
	}

	previous := c.PointsPerKg
	c.Name = strings.TrimSpace(in.Name)
	c.Description = in.Description
	c.Color = in.Color
	c.PointsPerKg = in.PointsPerKg
	if err := s.categoryRepo.Update(ctx, c); err != nil {
		return nil, internalOr("update category", err)
	}

	s.audit.Record(ctx, auditEntry(domain.AuditCategoryUpdate, caller, &c.LocationID, map[string]any{
		"categoryId":          c.ID,
		"previousPointsPerKg": previous,
		"pointsPerKg":         c.PointsPerKg,
	}))
	return c, nil
}

func (s *categoryService) Delete(ctx context.Context, caller authz.Caller, id string) error {
	if err := authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
		return err
	}
	c, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.EnforceLocation(caller, c.LocationID); err != nil {
		return err
	}
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return internalOr("delete category", err)
	}

	s.audit.Record(ctx, auditEntry(domain.AuditCategoryDelete, caller, &c.LocationID, map[string]any{"categoryId": id}))
	return nil
}

func (in CategoryInput) validate() error {
	fields := map[string]string{}
	checkName(fields, "name", strings.TrimSpace(in.Name))
	if in.PointsPerKg < 0 {
		fields["pointsPerKg"] = "must not be negative"
	} else if in.PointsPerKg > domain.MaxPointsPerKg {
		fields["pointsPerKg"] = fmt.Sprintf("must be at most %d", domain.MaxPointsPerKg)
	}
	if in.Color != "" && !colorPattern.MatchString(in.Color) {
		fields["color"] = "must be a hex color like #22C55E"
	}
	if len(fields) > 0 {
		return apperr.ValidationFields(fields)
	}
	return nil
}
