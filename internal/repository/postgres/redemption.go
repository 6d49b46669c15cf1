package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/repository"
)

const redemptionColumns = `rr.id, rr.user_id, rr.reward_id, rr.location_id, rr.points_spent, rr.status,
	rr.processed_by_user_id, rr.processed_at, rr.redeemed_at`

const redemptionFrom = ` FROM reward_redemptions rr`

type redemptionRepository struct {
	db *sql.DB
}

func NewRedemptionRepository(db *sql.DB) repository.RedemptionRepository {
	return &redemptionRepository{db: db}
}

func scanRedemption(s scanner, extra ...any) (*domain.Redemption, error) {
	rd := &domain.Redemption{}
	var (
		processedBy sql.NullString
		processedAt sql.NullTime
	)
	dest := append([]any{&rd.ID, &rd.UserID, &rd.RewardID, &rd.LocationID, &rd.PointsSpent, &rd.Status,
		&processedBy, &processedAt, &rd.RedeemedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	rd.ProcessedBy = stringPtr(processedBy)
	if processedAt.Valid {
		t := processedAt.Time
		rd.ProcessedAt = &t
	}
	return rd, nil
}

func insertRedemption(ctx context.Context, q querier, rd *domain.Redemption) error {
	if rd.ID == "" {
		rd.ID = uuid.NewString()
	}
	if rd.RedeemedAt.IsZero() {
		rd.RedeemedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO reward_redemptions (id, user_id, reward_id, location_id, points_spent, status, processed_by_user_id, processed_at, redeemed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := q.ExecContext(ctx, query,
		rd.ID, rd.UserID, rd.RewardID, rd.LocationID, rd.PointsSpent, rd.Status,
		nullString(rd.ProcessedBy), rd.ProcessedAt, rd.RedeemedAt,
	)
	return translateError("Redemption", err)
}

func (r *redemptionRepository) Create(ctx context.Context, rd *domain.Redemption) error {
	return insertRedemption(ctx, r.db, rd)
}

func (r *redemptionRepository) GetByID(ctx context.Context, id string) (*domain.Redemption, error) {
	rd, err := scanRedemption(r.db.QueryRowContext(ctx, `SELECT `+redemptionColumns+redemptionFrom+` WHERE rr.id = $1`, id))
	if err != nil {
		return nil, translateError("Redemption", err)
	}
	return rd, nil
}

func (r *redemptionRepository) List(ctx context.Context, f domain.RedemptionFilter) ([]domain.Redemption, int, error) {
	b := &filterBuilder{}
	if f.LocationID != nil {
		b.add("rr.location_id = $%d", *f.LocationID)
	}
	if f.UserID != nil {
		b.add("rr.user_id = $%d", *f.UserID)
	}
	if f.Status != nil {
		b.add("rr.status = $%d", *f.Status)
	}

	total, err := b.count(ctx, r.db, "reward_redemptions rr")
	if err != nil {
		return nil, 0, translateError("Redemption", err)
	}

	suffix, args := b.page(f.Page)
	query := `SELECT ` + redemptionColumns + `, rw.name, u.name` + redemptionFrom + `
		JOIN rewards rw ON rw.id = rr.reward_id
		JOIN users u ON u.id = rr.user_id` + b.where() + ` ORDER BY rr.redeemed_at DESC` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translateError("Redemption", err)
	}
	defer rows.Close()

	var out []domain.Redemption
	for rows.Next() {
		var rewardName, userName string
		rd, err := scanRedemption(rows, &rewardName, &userName)
		if err != nil {
			return nil, 0, translateError("Redemption", err)
		}
		rd.RewardName, rd.UserName = rewardName, userName
		out = append(out, *rd)
	}
	return out, total, translateError("Redemption", rows.Err())
}
