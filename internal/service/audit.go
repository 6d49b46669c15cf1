package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/metrics"
	"wastebank-backend/internal/repository"
)

const auditWriteTimeout = 5 * time.Second

// AsyncAuditRecorder queues entries and writes them from a background
// worker. A full queue drops the entry with a warning.
type AsyncAuditRecorder struct {
	repo    repository.AuditRepository
	entries chan domain.AuditEntry
	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
}

func NewAuditRecorder(repo repository.AuditRepository, bufferSize int) *AsyncAuditRecorder {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	r := &AsyncAuditRecorder{
		repo:    repo,
		entries: make(chan domain.AuditEntry, bufferSize),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *AsyncAuditRecorder) Record(ctx context.Context, entry domain.AuditEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		logger.WarnContext(ctx, "Audit recorder closed, dropping entry", "action", entry.Action)
		metrics.IncAuditDropped()
		return
	}
	select {
	case r.entries <- entry:
	default:
		logger.WarnContext(ctx, "Audit queue full, dropping entry", "action", entry.Action)
		metrics.IncAuditDropped()
	}
}

// Close stops accepting entries and waits for the queue to drain.
func (r *AsyncAuditRecorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.entries)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *AsyncAuditRecorder) run() {
	defer close(r.done)
	for entry := range r.entries {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		if err := r.repo.Append(ctx, &entry); err != nil {
			logger.Error("Failed to write audit log", "action", entry.Action, "error", err)
			metrics.IncAuditDropped()
		}
		cancel()
	}
}

func auditEntry(action domain.AuditAction, caller authz.Caller, locationID *string, details map[string]any) domain.AuditEntry {
	return domain.AuditEntry{
		Action:     action,
		UserID:     strPtr(caller.UserID),
		LocationID: locationID,
		Details:    details,
	}
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) List(ctx context.Context, caller authz.Caller, filter domain.AuditFilter) ([]domain.AuditEntry, domain.PageMeta, error) {
	if err := authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
		return nil, domain.PageMeta{}, err
	}
	if err := filter.Normalize(); err != nil {
		return nil, domain.PageMeta{}, err
	}
	filter.LocationID = authz.ScopeFilter(caller, filter.LocationID)

	entries, total, err := s.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.PageMeta{}, err
	}
	return entries, filter.Meta(total), nil
}

// noopAuditRecorder is used when no recorder is configured.
type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, domain.AuditEntry) {}

func recorderOrNoop(r AuditRecorder) AuditRecorder {
	if r == nil {
		return noopAuditRecorder{}
	}
	return r
}

// internalOr passes application errors through and wraps anything else.
func internalOr(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperr.Internal(op, err)
}
