package service

import (
	"context"
	"strings"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository"
)

type locationService struct {
	locationRepo repository.LocationRepository
	audit        AuditRecorder
}

func NewLocationService(locationRepo repository.LocationRepository, audit AuditRecorder) LocationService {
	return &locationService{locationRepo: locationRepo, audit: recorderOrNoop(audit)}
}

func (s *locationService) List(ctx context.Context, caller authz.Caller) ([]domain.Location, error) {
	locations, err := s.locationRepo.List(ctx)
	if err != nil {
		return nil, internalOr("list locations", err)
	}
	return locations, nil
}

func (s *locationService) Get(ctx context.Context, caller authz.Caller, id string) (*domain.Location, error) {
	return s.locationRepo.GetByID(ctx, id)
}

func (s *locationService) Create(ctx context.Context, caller authz.Caller, in LocationInput) (*domain.Location, error) {
	if err := authz.RequireRole(caller, domain.RoleSuperAdmin); err != nil {
		return nil, err
	}
	in = in.trimmed()
	if err := in.validate(); err != nil {
		return nil, err
	}

	loc := &domain.Location{Desa: in.Desa, Kecamatan: in.Kecamatan, Kabupaten: in.Kabupaten}
	if err := s.locationRepo.Create(ctx, loc); err != nil {
		return nil, internalOr("create location", err)
	}
	logger.Info("Location created", "locationID", loc.ID, "by", caller.UserID)

	s.audit.Record(ctx, auditEntry(domain.AuditLocationCreate, caller, &loc.ID, map[string]any{
		"desa":      loc.Desa,
		"kecamatan": loc.Kecamatan,
		"kabupaten": loc.Kabupaten,
	}))
	return loc, nil
}

func (s *locationService) Update(ctx context.Context, caller authz.Caller, id string, in LocationInput) (*domain.Location, error) {
	if err := authz.RequireRole(caller, domain.RoleSuperAdmin); err != nil {
		return nil, err
	}
	in = in.trimmed()
	if err := in.validate(); err != nil {
		return nil, err
	}

	loc, err := s.locationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	loc.Desa, loc.Kecamatan, loc.Kabupaten = in.Desa, in.Kecamatan, in.Kabupaten
	if err := s.locationRepo.Update(ctx, loc); err != nil {
		return nil, internalOr("update location", err)
	}

	s.audit.Record(ctx, auditEntry(domain.AuditLocationUpdate, caller, &loc.ID, nil))
	return loc, nil
}

// Delete fails with a conflict while users, catalog entries or
// transactions still reference the location.
func (s *locationService) Delete(ctx context.Context, caller authz.Caller, id string) error {
	if err := authz.RequireRole(caller, domain.RoleSuperAdmin); err != nil {
		return err
	}
	if err := s.locationRepo.Delete(ctx, id); err != nil {
		return internalOr("delete location", err)
	}
	s.audit.Record(ctx, auditEntry(domain.AuditLocationDelete, caller, nil, map[string]any{"locationId": id}))
	return nil
}

func (in LocationInput) trimmed() LocationInput {
	return LocationInput{
		Desa:      strings.TrimSpace(in.Desa),
		Kecamatan: strings.TrimSpace(in.Kecamatan),
		Kabupaten: strings.TrimSpace(in.Kabupaten),
	}
}

func (in LocationInput) validate() error {
	fields := map[string]string{}
	checkName(fields, "desa", in.Desa)
	checkName(fields, "kecamatan", in.Kecamatan)
	checkName(fields, "kabupaten", in.Kabupaten)
	if len(fields) > 0 {
		return apperr.ValidationFields(fields)
	}
	return nil
}

func checkName(fields map[string]string, field, value string) {
	if n := len([]rune(value)); n < 2 || n > 100 {
		fields[field] = "must be between 2 and 100 characters"
	}
}

// catalogLocation picks the location a new catalog entry belongs to. ADMIN
// may only create for their own location; SUPERADMIN must name one.
func catalogLocation(ctx context.Context, locations repository.LocationRepository, caller authz.Caller, requested *string) (string, error) {
	if !caller.IsSuperAdmin() {
		if requested != nil && *requested != "" && *requested != caller.Location() {
			return "", apperr.Authorization("Access denied: resource belongs to a different location")
		}
		return caller.Location(), nil
	}
	if requested == nil || *requested == "" {
		return "", apperr.ValidationFields(map[string]string{"locationId": "is required"})
	}
	if _, err := locations.GetByID(ctx, *requested); err != nil {
		return "", err
	}
	return *requested, nil
}
