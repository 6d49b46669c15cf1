package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/repository"
)

type locationRepository struct {
	db *sql.DB
}

func NewLocationRepository(db *sql.DB) repository.LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) Create(ctx context.Context, loc *domain.Location) error {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	query := `
		INSERT INTO locations (id, desa, kecamatan, kabupaten, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, loc.ID, loc.Desa, loc.Kecamatan, loc.Kabupaten, time.Now().UTC()).
		Scan(&loc.CreatedAt, &loc.UpdatedAt)
	return translateError("Location", err)
}

func (r *locationRepository) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	loc := &domain.Location{}
	query := `SELECT id, desa, kecamatan, kabupaten, created_at, updated_at FROM locations WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&loc.ID, &loc.Desa, &loc.Kecamatan, &loc.Kabupaten, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return nil, translateError("Location", err)
	}
	return loc, nil
}

func (r *locationRepository) List(ctx context.Context) ([]domain.Location, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, desa, kecamatan, kabupaten, created_at, updated_at FROM locations ORDER BY kabupaten, kecamatan, desa`)
	if err != nil {
		return nil, translateError("Location", err)
	}
	defer rows.Close()

	var locs []domain.Location
	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(&l.ID, &l.Desa, &l.Kecamatan, &l.Kabupaten, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, translateError("Location", err)
		}
		locs = append(locs, l)
	}
	return locs, translateError("Location", rows.Err())
}

func (r *locationRepository) Update(ctx context.Context, loc *domain.Location) error {
	query := `
		UPDATE locations SET desa = $2, kecamatan = $3, kabupaten = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, loc.ID, loc.Desa, loc.Kecamatan, loc.Kabupaten).Scan(&loc.UpdatedAt)
	return translateError("Location", err)
}

func (r *locationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return translateError("Location", err)
	}
	return expectOneRow(res, "Location")
}
