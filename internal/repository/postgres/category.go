package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository"
)

const categoryColumns = `id, location_id, name, COALESCE(description, ''), COALESCE(color, ''), points_per_kg, created_at, updated_at`

type categoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) repository.CategoryRepository {
	return &categoryRepository{db: db}
}

func scanCategory(s scanner) (*domain.WasteCategory, error) {
	c := &domain.WasteCategory{}
	err := s.Scan(&c.ID, &c.LocationID, &c.Name, &c.Description, &c.Color, &c.PointsPerKg, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func getCategory(ctx context.Context, q querier, id string) (*domain.WasteCategory, error) {
	return queryCategory(ctx, q, `SELECT `+categoryColumns+` FROM waste_categories WHERE id = $1`, id)
}

func queryCategory(ctx context.Context, q querier, query, id string) (*domain.WasteCategory, error) {
	c, err := scanCategory(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError("Waste category", err)
	}
	return c, nil
}

func (r *categoryRepository) Create(ctx context.Context, c *domain.WasteCategory) error {
	logger.EnterMethod("categoryRepository.Create", "locationID", c.LocationID, "name", c.Name)

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	query := `
		INSERT INTO waste_categories (id, location_id, name, description, color, points_per_kg, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, c.ID, c.LocationID, c.Name, c.Description, c.Color, c.PointsPerKg, time.Now().UTC()).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("categoryRepository.Create", err)
		return translateError("Waste category", err)
	}

	logger.ExitMethod("categoryRepository.Create", "categoryID", c.ID)
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.WasteCategory, error) {
	return getCategory(ctx, r.db, id)
}

func (r *categoryRepository) List(ctx context.Context, filter domain.CatalogFilter) ([]domain.WasteCategory, int, error) {
	b := &filterBuilder{}
	if filter.LocationID != nil {
		b.add("location_id = $%d", *filter.LocationID)
	}
	if filter.Search != "" {
		b.add("name ILIKE $%d", likePattern(filter.Search))
	}

	total, err := b.count(ctx, r.db, "waste_categories")
	if err != nil {
		return nil, 0, translateError("Waste category", err)
	}

	suffix, args := b.page(filter.Page)
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM waste_categories`+b.where()+` ORDER BY name`+suffix, args...)
	if err != nil {
		return nil, 0, translateError("Waste category", err)
	}
	defer rows.Close()

	var out []domain.WasteCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, translateError("Waste category", err)
		}
		out = append(out, *c)
	}
	return out, total, translateError("Waste category", rows.Err())
}

// Update rewrites the catalog entry unless a completed transaction already
// references it.
func (r *categoryRepository) Update(ctx context.Context, c *domain.WasteCategory) error {
	query := `
		UPDATE waste_categories c SET name = $2, description = $3, color = $4, points_per_kg = $5, updated_at = NOW()
		WHERE c.id = $1 AND NOT EXISTS (
			SELECT 1 FROM waste_transactions t WHERE t.waste_category_id = c.id AND t.status = 'COMPLETED'
		)
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, c.ID, c.Name, c.Description, c.Color, c.PointsPerKg).Scan(&c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := getCategory(ctx, r.db, c.ID); err != nil {
			return err
		}
		return apperr.Conflict(repository.MsgCategoryInUse)
	}
	return translateError("Waste category", err)
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM waste_categories WHERE id = $1`, id)
	if err != nil {
		return translateError("Waste category", err)
	}
	return expectOneRow(res, "Waste category")
}
