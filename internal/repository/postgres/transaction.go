package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository"
)

const transactionColumns = `id, user_id, waste_category_id, location_id, type, status, location_detail,
	scheduled_date, photos, notes, actual_weight, points, processed_by_user_id, completed_at, created_at, updated_at`

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var (
		photos      pq.StringArray
		notes       sql.NullString
		weight      decimal.NullDecimal
		points      sql.NullInt64
		processedBy sql.NullString
		completedAt sql.NullTime
	)
	err := s.Scan(&t.ID, &t.UserID, &t.WasteCategoryID, &t.LocationID, &t.Type, &t.Status, &t.LocationDetail,
		&t.ScheduledDate, &photos, &notes, &weight, &points, &processedBy, &completedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Photos = []string(photos)
	if t.Photos == nil {
		t.Photos = []string{}
	}
	t.Notes = stringPtr(notes)
	if weight.Valid {
		w := weight.Decimal
		t.ActualWeight = &w
	}
	if points.Valid {
		p := points.Int64
		t.Points = &p
	}
	t.ProcessedBy = stringPtr(processedBy)
	if completedAt.Valid {
		c := completedAt.Time
		t.CompletedAt = &c
	}
	return t, nil
}

func (r *transactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	logger.EnterMethod("transactionRepository.Create", "userID", t.UserID, "locationID", t.LocationID)

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Photos == nil {
		t.Photos = []string{}
	}
	query := `
		INSERT INTO waste_transactions (
			id, user_id, waste_category_id, location_id, type, status, location_detail,
			scheduled_date, photos, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.UserID, t.WasteCategoryID, t.LocationID, t.Type, t.Status, t.LocationDetail,
		t.ScheduledDate, pq.Array(t.Photos), nullString(t.Notes), time.Now().UTC(),
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("transactionRepository.Create", err, "userID", t.UserID)
		return translateError("Transaction", err)
	}

	logger.ExitMethod("transactionRepository.Create", "transactionID", t.ID)
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM waste_transactions WHERE id = $1`, id))
	if err != nil {
		return nil, translateError("Transaction", err)
	}
	return t, nil
}

func (r *transactionRepository) List(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, int, error) {
	b := &filterBuilder{}
	if f.LocationID != nil {
		b.add("location_id = $%d", *f.LocationID)
	}
	if f.UserID != nil {
		b.add("user_id = $%d", *f.UserID)
	}
	if f.Status != nil {
		b.add("status = $%d", *f.Status)
	}
	if f.Type != nil {
		b.add("type = $%d", *f.Type)
	}
	if f.From != nil {
		b.add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		b.add("created_at <= $%d", *f.To)
	}

	total, err := b.count(ctx, r.db, "waste_transactions")
	if err != nil {
		return nil, 0, translateError("Transaction", err)
	}

	suffix, args := b.page(f.Page)
	query := `SELECT ` + transactionColumns + ` FROM waste_transactions` + b.where() + ` ORDER BY created_at DESC` + suffix
	logger.DatabaseCall("transactionRepository.List", query)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translateError("Transaction", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, translateError("Transaction", err)
		}
		out = append(out, *t)
	}
	return out, total, translateError("Transaction", rows.Err())
}
