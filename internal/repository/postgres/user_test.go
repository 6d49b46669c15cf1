package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/repository/postgres"
)

var userCols = []string{"id", "name", "email", "password_hash", "role", "location_id", "points",
	"avatar_url", "rw", "rt", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewUserRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows(userCols).
			AddRow("u1", "Sari", "sari@desa.id", "hash", "NASABAH", "loc-1", int64(120), "", "02", "05", now, now)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
			WithArgs("u1").
			WillReturnRows(rows)

		user, err := repo.GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleNasabah, user.Role)
		assert.Equal(t, "loc-1", *user.LocationID)
		assert.Equal(t, int64(120), user.Points)
	})

	t.Run("SuperadminHasNoLocation", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows(userCols).
			AddRow("u0", "Root", "root@desa.id", "hash", "SUPERADMIN", nil, int64(0), "", "", "", now, now)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").WithArgs("u0").WillReturnRows(rows)

		user, err := repo.GetByID(ctx, "u0")
		require.NoError(t, err)
		assert.Nil(t, user.LocationID)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		user, err := repo.GetByID(ctx, "missing")
		assert.True(t, apperr.IsNotFound(err))
		assert.Nil(t, user)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewUserRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		u := &domain.User{Name: "Budi", Email: "Budi@Desa.id", PasswordHash: "hash", Role: domain.RolePetugas, LocationID: domain.StringPtr("loc-1")}
		now := time.Now()
		mock.ExpectQuery("INSERT INTO users").
			WithArgs(sqlmock.AnyArg(), "Budi", "budi@desa.id", "hash", domain.RolePetugas, "loc-1", int64(0), "", "", "", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		require.NoError(t, repo.Create(ctx, u))
		assert.NotEmpty(t, u.ID)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		u := &domain.User{Name: "Budi", Email: "budi@desa.id", PasswordHash: "hash", Role: domain.RoleNasabah, LocationID: domain.StringPtr("loc-1")}
		mock.ExpectQuery("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(ctx, u)
		assert.True(t, apperr.IsConflict(err))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateNeverWritesPoints(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewUserRepository(db)

	u := &domain.User{ID: "u1", Name: "Sari", Email: "sari@desa.id", PasswordHash: "hash", Role: domain.RoleNasabah,
		LocationID: domain.StringPtr("loc-1"), Points: 9999}
	mock.ExpectQuery(`UPDATE users\s+SET name = \$2, email = \$3, password_hash = \$4, role = \$5, location_id = \$6,\s+avatar_url = \$7, rw = \$8, rt = \$9, updated_at = NOW\(\)`).
		WithArgs("u1", "Sari", "sari@desa.id", "hash", domain.RoleNasabah, "loc-1", "", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	require.NoError(t, repo.Update(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewUserRepository(db)

	role := domain.RoleNasabah
	filter := domain.UserFilter{Page: domain.Page{Page: 2, PageSize: 10}, LocationID: domain.StringPtr("loc-1"), Role: &role, Search: "sa"}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE location_id = \$1 AND role = \$2 AND \(name ILIKE \$3 OR email ILIKE \$3\)`).
		WithArgs("loc-1", domain.RoleNasabah, "%sa%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE (.+) ORDER BY created_at DESC LIMIT \$4 OFFSET \$5`).
		WithArgs("loc-1", domain.RoleNasabah, "%sa%", 10, 10).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "Sari", "sari@desa.id", "hash", "NASABAH", "loc-1", int64(5), "", "", "", now, now))

	users, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, users, 1)
	assert.Equal(t, "Sari", users[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Leaderboard(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewUserRepository(db)

	mock.ExpectQuery(`SELECT id, name, (.+) FROM users WHERE role = \$1 AND location_id = \$2 ORDER BY points DESC, created_at ASC LIMIT \$3`).
		WithArgs(domain.RoleNasabah, "loc-1", 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "avatar_url", "location_id", "points"}).
			AddRow("u1", "Sari", "", "loc-1", int64(300)).
			AddRow("u2", "Budi", "", "loc-1", int64(120)))

	entries, err := repo.Leaderboard(context.Background(), domain.StringPtr("loc-1"), 100)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, int64(120), entries[1].Points)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_BalanceDiscrepancies(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewUserRepository(db)

	mock.ExpectQuery(`SELECT u.id, u.points, (.+) FROM users u`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "points", "expected"}).AddRow("u1", int64(50), int64(40)))

	out, err := repo.BalanceDiscrepancies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.BalanceDiscrepancy{{UserID: "u1", Stored: 50, Expected: 40}}, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}
