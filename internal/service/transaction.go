package service

import (
	"context"
	"strings"
	"time"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/metrics"
	"wastebank-backend/internal/repository"
)

var staffRoles = []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin, domain.RolePetugas}

// maxWeightScale matches the NUMERIC(12,3) weight column.
const maxWeightScale = 3

type transactionService struct {
	txRepo       repository.TransactionRepository
	userRepo     repository.UserRepository
	categoryRepo repository.CategoryRepository
	ledger       repository.TxManager
	audit        AuditRecorder
	now          func() time.Time
}

func NewTransactionService(
	txRepo repository.TransactionRepository,
	userRepo repository.UserRepository,
	categoryRepo repository.CategoryRepository,
	ledger repository.TxManager,
	audit AuditRecorder,
) TransactionService {
	return &transactionService{
		txRepo:       txRepo,
		userRepo:     userRepo,
		categoryRepo: categoryRepo,
		ledger:       ledger,
		audit:        recorderOrNoop(audit),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *transactionService) Create(ctx context.Context, caller authz.Caller, in CreateTransactionInput) (*domain.Transaction, error) {
	logger.EnterMethod("transactionService.Create", "callerID", caller.UserID, "role", caller.Role)

	if err := validateCreateTransaction(in); err != nil {
		return nil, err
	}

	ownerID, locationID, err := s.resolveOwner(ctx, caller, in)
	if err != nil {
		logger.ExitMethodWithWarning("transactionService.Create", err)
		return nil, err
	}

	category, err := s.categoryRepo.GetByID(ctx, in.WasteCategoryID)
	if err != nil {
		return nil, err
	}
	if category.LocationID != locationID {
		return nil, apperr.Validation("Waste category does not belong to this location")
	}

	t := &domain.Transaction{
		UserID:          ownerID,
		WasteCategoryID: category.ID,
		LocationID:      locationID,
		Type:            in.Type,
		Status:          domain.TransactionStatusPending,
		LocationDetail:  strings.TrimSpace(in.LocationDetail),
		ScheduledDate:   in.ScheduledDate,
		Photos:          in.Photos,
		Notes:           in.Notes,
	}
	if err := s.txRepo.Create(ctx, t); err != nil {
		logger.ExitMethodWithError("transactionService.Create", err)
		return nil, internalOr("create transaction", err)
	}

	s.audit.Record(ctx, auditEntry(domain.AuditTransactionCreate, caller, &t.LocationID, map[string]any{
		"transactionId": t.ID,
		"userId":        t.UserID,
		"type":          t.Type,
	}))

	logger.ExitMethod("transactionService.Create", "transactionID", t.ID)
	return t, nil
}

// resolveOwner decides who owns a new transaction and where it lives.
// NASABAH create for themselves; staff name the owner, who must be in scope.
func (s *transactionService) resolveOwner(ctx context.Context, caller authz.Caller, in CreateTransactionInput) (string, string, error) {
	if caller.Role == domain.RoleNasabah {
		if in.UserID != nil && *in.UserID != caller.UserID {
			return "", "", apperr.Authorization("Cannot create transactions for another user")
		}
		return caller.UserID, caller.Location(), nil
	}

	if in.UserID == nil || *in.UserID == "" {
		return "", "", apperr.Validation("userId is required")
	}
	if caller.IsSuperAdmin() && (in.LocationID == nil || *in.LocationID == "") {
		return "", "", apperr.Validation("locationId is required")
	}

	owner, err := s.userRepo.GetByID(ctx, *in.UserID)
	if err != nil {
		return "", "", err
	}
	if err := authz.EnforceLocationScope(caller, owner.LocationID); err != nil {
		return "", "", err
	}

	if caller.IsSuperAdmin() {
		if !domain.SameLocation(owner.LocationID, in.LocationID) {
			return "", "", apperr.Validation("User does not belong to this location")
		}
		return owner.ID, *in.LocationID, nil
	}
	return owner.ID, caller.Location(), nil
}

func validateCreateTransaction(in CreateTransactionInput) error {
	fields := map[string]string{}
	if in.WasteCategoryID == "" {
		fields["wasteCategoryId"] = "is required"
	}
	if !in.Type.Valid() {
		fields["type"] = "must be PICKUP or DROPOFF"
	}
	if len(strings.TrimSpace(in.LocationDetail)) < 3 {
		fields["locationDetail"] = "must be at least 3 characters"
	}
	if in.ScheduledDate.IsZero() {
		fields["scheduledDate"] = "is required"
	}
	if len(fields) > 0 {
		return apperr.ValidationFields(fields)
	}
	return nil
}

func (s *transactionService) Get(ctx context.Context, caller authz.Caller, id string) (*domain.Transaction, error) {
	t, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(caller, t); err != nil {
		return nil, err
	}
	return t, nil
}

// canView lets NASABAH see only their own transactions and staff see their location.
func canView(caller authz.Caller, t *domain.Transaction) error {
	if caller.Role == domain.RoleNasabah {
		if t.UserID != caller.UserID {
			return apperr.Authorization("Access denied")
		}
		return nil
	}
	return authz.EnforceLocation(caller, t.LocationID)
}

func (s *transactionService) List(ctx context.Context, caller authz.Caller, filter domain.TransactionFilter) ([]domain.Transaction, domain.PageMeta, error) {
	if err := filter.Normalize(); err != nil {
		return nil, domain.PageMeta{}, err
	}
	filter.LocationID = authz.ScopeFilter(caller, filter.LocationID)
	if caller.Role == domain.RoleNasabah {
		filter.UserID = strPtr(caller.UserID)
	}

	txs, total, err := s.txRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.PageMeta{}, internalOr("list transactions", err)
	}
	return txs, filter.Meta(total), nil
}

func (s *transactionService) Cancel(ctx context.Context, caller authz.Caller, id string) (*domain.Transaction, error) {
	logger.EnterMethod("transactionService.Cancel", "transactionID", id, "callerID", caller.UserID)

	var result *domain.Transaction
	err := s.ledger.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		t, err := tx.GetTransactionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.UserID != caller.UserID {
			if err := authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
				return err
			}
			if err := authz.EnforceLocation(caller, t.LocationID); err != nil {
				return err
			}
		}
		if !t.Status.CanTransition(domain.TransactionStatusCancelled) {
			return apperr.Conflict("Transaction already processed")
		}

		now := s.now()
		if err := tx.CancelTransaction(ctx, t.ID, now); err != nil {
			return err
		}
		t.Status = domain.TransactionStatusCancelled
		t.UpdatedAt = now
		result = t
		return nil
	})
	metrics.RecordLedger("transaction.cancel", err)
	if err != nil {
		logger.ExitMethodWithWarning("transactionService.Cancel", err, "transactionID", id)
		return nil, internalOr("cancel transaction", err)
	}

	s.audit.Record(ctx, auditEntry(domain.AuditTransactionCancel, caller, &result.LocationID, map[string]any{
		"transactionId": result.ID,
		"userId":        result.UserID,
	}))

	logger.ExitMethod("transactionService.Cancel", "transactionID", id)
	return result, nil
}

func (s *transactionService) Process(ctx context.Context, caller authz.Caller, id string, in ProcessTransactionInput) (*domain.Transaction, error) {
	logger.EnterMethod("transactionService.Process", "transactionID", id, "callerID", caller.UserID)

	if err := authz.RequireRole(caller, staffRoles...); err != nil {
		return nil, err
	}
	if !in.ActualWeight.IsPositive() {
		return nil, apperr.ValidationFields(map[string]string{"actualWeight": "must be greater than 0"})
	}
	if in.ActualWeight.Exponent() < -maxWeightScale && !in.ActualWeight.Equal(in.ActualWeight.Truncate(maxWeightScale)) {
		return nil, apperr.ValidationFields(map[string]string{"actualWeight": "must have at most 3 decimal places"})
	}
	if !in.ActualWeight.LessThan(domain.MaxWeight) {
		return nil, apperr.ValidationFields(map[string]string{"actualWeight": "must be less than " + domain.MaxWeight.String()})
	}

	var result *domain.Transaction
	err := s.ledger.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		t, err := tx.GetTransactionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authz.EnforceLocation(caller, t.LocationID); err != nil {
			return err
		}
		if !t.Status.CanTransition(domain.TransactionStatusCompleted) {
			return apperr.Conflict("Transaction already processed")
		}

		category, err := tx.GetCategory(ctx, t.WasteCategoryID)
		if err != nil {
			return err
		}

		weight := in.ActualWeight
		points, err := domain.ComputePoints(weight, category.PointsPerKg)
		if err != nil {
			return err
		}
		now := s.now()

		t.Status = domain.TransactionStatusCompleted
		t.ActualWeight = &weight
		t.Points = &points
		t.ProcessedBy = strPtr(caller.UserID)
		t.CompletedAt = &now
		t.UpdatedAt = now
		if in.Notes != nil {
			t.Notes = in.Notes
		}

		if err := tx.CompleteTransaction(ctx, t); err != nil {
			return err
		}
		if err := tx.CreditPoints(ctx, t.UserID, points); err != nil {
			return err
		}
		result = t
		return nil
	})
	metrics.RecordLedger("transaction.process", err)
	if err != nil {
		logger.ExitMethodWithWarning("transactionService.Process", err, "transactionID", id)
		return nil, internalOr("process transaction", err)
	}
	metrics.AddPointsAwarded(*result.Points)

	s.audit.Record(ctx, auditEntry(domain.AuditTransactionProcess, caller, &result.LocationID, map[string]any{
		"transactionId": result.ID,
		"userId":        result.UserID,
		"actualWeight":  result.ActualWeight.String(),
		"points":        *result.Points,
	}))

	logger.ExitMethod("transactionService.Process", "transactionID", id, "points", *result.Points)
	return result, nil
}
