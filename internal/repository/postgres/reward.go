package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository"
)

const rewardColumns = `id, location_id, name, COALESCE(description, ''), COALESCE(image_url, ''), points_required, stock, created_at, updated_at`

type rewardRepository struct {
	db *sql.DB
}

func NewRewardRepository(db *sql.DB) repository.RewardRepository {
	return &rewardRepository{db: db}
}

func scanReward(s scanner) (*domain.Reward, error) {
	rw := &domain.Reward{}
	err := s.Scan(&rw.ID, &rw.LocationID, &rw.Name, &rw.Description, &rw.ImageURL, &rw.PointsRequired, &rw.Stock, &rw.CreatedAt, &rw.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rw, nil
}

func (r *rewardRepository) Create(ctx context.Context, rw *domain.Reward) error {
	logger.EnterMethod("rewardRepository.Create", "locationID", rw.LocationID, "name", rw.Name)

	if rw.ID == "" {
		rw.ID = uuid.NewString()
	}
	query := `
		INSERT INTO rewards (id, location_id, name, description, image_url, points_required, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rw.ID, rw.LocationID, rw.Name, rw.Description, rw.ImageURL, rw.PointsRequired, rw.Stock, time.Now().UTC(),
	).Scan(&rw.CreatedAt, &rw.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("rewardRepository.Create", err)
		return translateError("Reward", err)
	}

	logger.ExitMethod("rewardRepository.Create", "rewardID", rw.ID)
	return nil
}

func (r *rewardRepository) GetByID(ctx context.Context, id string) (*domain.Reward, error) {
	rw, err := scanReward(r.db.QueryRowContext(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1`, id))
	if err != nil {
		return nil, translateError("Reward", err)
	}
	return rw, nil
}

func (r *rewardRepository) List(ctx context.Context, filter domain.CatalogFilter) ([]domain.Reward, int, error) {
	b := &filterBuilder{}
	if filter.LocationID != nil {
		b.add("location_id = $%d", *filter.LocationID)
	}
	if filter.Search != "" {
		b.add("name ILIKE $%d", likePattern(filter.Search))
	}

	total, err := b.count(ctx, r.db, "rewards")
	if err != nil {
		return nil, 0, translateError("Reward", err)
	}

	suffix, args := b.page(filter.Page)
	rows, err := r.db.QueryContext(ctx, `SELECT `+rewardColumns+` FROM rewards`+b.where()+` ORDER BY points_required ASC`+suffix, args...)
	if err != nil {
		return nil, 0, translateError("Reward", err)
	}
	defer rows.Close()

	var out []domain.Reward
	for rows.Next() {
		rw, err := scanReward(rows)
		if err != nil {
			return nil, 0, translateError("Reward", err)
		}
		out = append(out, *rw)
	}
	return out, total, translateError("Reward", rows.Err())
}

func (r *rewardRepository) Update(ctx context.Context, rw *domain.Reward) error {
	query := `
		UPDATE rewards
		SET name = $2, description = $3, image_url = $4, points_required = $5, stock = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, rw.ID, rw.Name, rw.Description, rw.ImageURL, rw.PointsRequired, rw.Stock).
		Scan(&rw.UpdatedAt)
	return translateError("Reward", err)
}

func (r *rewardRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rewards WHERE id = $1`, id)
	if err != nil {
		return translateError("Reward", err)
	}
	return expectOneRow(res, "Reward")
}
