package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/repository"
)

type auditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	details, err := json.Marshal(e.Details)
	if err != nil {
		return translateError("Audit log", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, user_id, location_id, details, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Action, nullString(e.UserID), nullString(e.LocationID), details, e.CreatedAt,
	)
	return translateError("Audit log", err)
}

func (r *auditRepository) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEntry, int, error) {
	b := &filterBuilder{}
	if f.LocationID != nil {
		b.add("location_id = $%d", *f.LocationID)
	}
	if f.Action != nil {
		b.add("action = $%d", *f.Action)
	}

	total, err := b.count(ctx, r.db, "audit_logs")
	if err != nil {
		return nil, 0, translateError("Audit log", err)
	}

	suffix, args := b.page(f.Page)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, action, user_id, location_id, details, created_at FROM audit_logs`+b.where()+` ORDER BY created_at DESC`+suffix,
		args...)
	if err != nil {
		return nil, 0, translateError("Audit log", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e        domain.AuditEntry
			userID   sql.NullString
			location sql.NullString
			details  []byte
		)
		if err := rows.Scan(&e.ID, &e.Action, &userID, &location, &details, &e.CreatedAt); err != nil {
			return nil, 0, translateError("Audit log", err)
		}
		e.UserID, e.LocationID = stringPtr(userID), stringPtr(location)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, 0, translateError("Audit log", err)
			}
		}
		out = append(out, e)
	}
	return out, total, translateError("Audit log", rows.Err())
}
