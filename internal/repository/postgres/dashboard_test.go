package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/repository/postgres"
)

func TestDashboardRepository_WeightByCategory(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewDashboardRepository(db)

	loc := "loc-1"
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT t.waste_category_id, (.+) FROM waste_transactions t\s+LEFT JOIN waste_categories c ON c.id = t.waste_category_id `+
		`WHERE t.status = \$1 AND t.actual_weight IS NOT NULL AND t.location_id = \$2 AND t.created_at >= \$3\s+`+
		`GROUP BY t.waste_category_id, c.name, c.color\s+ORDER BY weight DESC, 2 ASC LIMIT \$4`).
		WithArgs("COMPLETED", "loc-1", from, 5).
		WillReturnRows(sqlmock.NewRows([]string{"waste_category_id", "name", "color", "weight"}).
			AddRow("c1", "Plastik", "#22C55E", "12.500").
			AddRow("c2", "Kertas", domain.DefaultChartColor, "3.250"))

	shares, err := repo.WeightByCategory(context.Background(), domain.WeightFilter{LocationID: &loc, From: &from, Limit: 5})
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, "Plastik", shares[0].Name)
	assert.Equal(t, "12.5", shares[0].WeightKg.String())
	assert.Equal(t, "3.25", shares[1].WeightKg.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepository_WeightByUser(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewDashboardRepository(db)

	user := "u1"
	mock.ExpectQuery(`WHERE t.status = \$1 AND t.actual_weight IS NOT NULL AND t.user_id = \$2\s+GROUP BY`).
		WithArgs("COMPLETED", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"waste_category_id", "name", "color", "weight"}))

	shares, err := repo.WeightByCategory(context.Background(), domain.WeightFilter{UserID: &user})
	require.NoError(t, err)
	assert.Empty(t, shares)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepository_CompletedTotals(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewDashboardRepository(db)

	to := time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(SUM\(t.actual_weight\), 0\) FROM waste_transactions t WHERE t.status = \$1 AND t.actual_weight IS NOT NULL AND t.created_at <= \$2`).
		WithArgs("COMPLETED", to).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(int64(4), "11.000"))

	count, weight, err := repo.CompletedTotals(context.Background(), domain.WeightFilter{To: &to})
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, "11", weight.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepository_CountNasabah(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewDashboardRepository(db)

	loc := "loc-1"
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE role = \$1 AND location_id = \$2`).
		WithArgs("NASABAH", "loc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := repo.CountNasabah(context.Background(), &loc)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepository_NextReward(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewDashboardRepository(db)
	ctx := context.Background()
	rewardCols := []string{"id", "location_id", "name", "description", "image_url", "points_required", "stock", "created_at", "updated_at"}
	query := `SELECT (.+) FROM rewards\s+WHERE location_id = \$1 AND points_required > \$2\s+ORDER BY points_required ASC, name ASC\s+LIMIT 1`

	now := time.Now()
	mock.ExpectQuery(query).
		WithArgs("loc-1", int64(60)).
		WillReturnRows(sqlmock.NewRows(rewardCols).AddRow("r1", "loc-1", "Minyak Goreng 1L", "", "", int64(80), int64(3), now, now))

	rw, err := repo.NextReward(ctx, "loc-1", 60)
	require.NoError(t, err)
	assert.Equal(t, int64(80), rw.PointsRequired)

	mock.ExpectQuery(query).WithArgs("loc-1", int64(500)).WillReturnRows(sqlmock.NewRows(rewardCols))
	_, err = repo.NextReward(ctx, "loc-1", 500)
	assert.True(t, apperr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
