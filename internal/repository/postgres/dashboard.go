package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository"
)

type dashboardRepository struct {
	db *sql.DB
}

func NewDashboardRepository(db *sql.DB) repository.DashboardRepository {
	return &dashboardRepository{db: db}
}

// completedFilter builds the WHERE clause shared by the weight aggregates.
// Columns are qualified with the t alias.
func completedFilter(f domain.WeightFilter) *filterBuilder {
	b := &filterBuilder{}
	b.add("t.status = $%d", domain.TransactionStatusCompleted)
	b.clauses = append(b.clauses, "t.actual_weight IS NOT NULL")
	if f.LocationID != nil {
		b.add("t.location_id = $%d", *f.LocationID)
	}
	if f.UserID != nil {
		b.add("t.user_id = $%d", *f.UserID)
	}
	if f.From != nil {
		b.add("t.created_at >= $%d", *f.From)
	}
	if f.To != nil {
		b.add("t.created_at <= $%d", *f.To)
	}
	return b
}

func (r *dashboardRepository) WeightByCategory(ctx context.Context, f domain.WeightFilter) ([]domain.WasteShare, error) {
	logger.EnterMethod("dashboardRepository.WeightByCategory", "limit", f.Limit)

	b := completedFilter(f)
	query := `
		SELECT t.waste_category_id, COALESCE(c.name, 'Other'), COALESCE(NULLIF(c.color, ''), '` + domain.DefaultChartColor + `'),
		       SUM(t.actual_weight) AS weight
		FROM waste_transactions t
		LEFT JOIN waste_categories c ON c.id = t.waste_category_id` + b.where() + `
		GROUP BY t.waste_category_id, c.name, c.color
		ORDER BY weight DESC, 2 ASC`
	args := b.args
	if f.Limit > 0 {
		args = append(append([]any{}, b.args...), f.Limit)
		query += " LIMIT $" + itoa(len(args))
	}
	logger.DatabaseCall("select", query)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.ExitMethodWithError("dashboardRepository.WeightByCategory", err)
		return nil, translateError("Waste category", err)
	}
	defer rows.Close()

	var out []domain.WasteShare
	for rows.Next() {
		var s domain.WasteShare
		if err := rows.Scan(&s.CategoryID, &s.Name, &s.Color, &s.WeightKg); err != nil {
			return nil, translateError("Waste category", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("Waste category", err)
	}

	logger.ExitMethod("dashboardRepository.WeightByCategory", "categories", len(out))
	return out, nil
}

func (r *dashboardRepository) CompletedTotals(ctx context.Context, f domain.WeightFilter) (int, decimal.Decimal, error) {
	b := completedFilter(f)
	query := `SELECT COUNT(*), COALESCE(SUM(t.actual_weight), 0) FROM waste_transactions t` + b.where()
	logger.DatabaseCall("select", query)

	var (
		count int
		total decimal.Decimal
	)
	if err := r.db.QueryRowContext(ctx, query, b.args...).Scan(&count, &total); err != nil {
		return 0, decimal.Zero, translateError("Transaction", err)
	}
	return count, total, nil
}

func (r *dashboardRepository) CountNasabah(ctx context.Context, locationID *string) (int, error) {
	b := &filterBuilder{}
	b.add("role = $%d", domain.RoleNasabah)
	if locationID != nil {
		b.add("location_id = $%d", *locationID)
	}
	total, err := b.count(ctx, r.db, "users")
	if err != nil {
		return 0, translateError("User", err)
	}
	return total, nil
}

func (r *dashboardRepository) NextReward(ctx context.Context, locationID string, points int64) (*domain.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards
		WHERE location_id = $1 AND points_required > $2
		ORDER BY points_required ASC, name ASC
		LIMIT 1`
	rw, err := scanReward(r.db.QueryRowContext(ctx, query, locationID, points))
	if err != nil {
		return nil, translateError("Reward", err)
	}
	return rw, nil
}
