package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/repository/postgres"
)

func TestTransactionRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewTransactionRepository(db)

	scheduled := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	txn := &domain.Transaction{
		UserID: "u1", WasteCategoryID: "c1", LocationID: "loc-1",
		Type: domain.TransactionTypePickup, Status: domain.TransactionStatusPending,
		LocationDetail: "Jl. Melati 4", ScheduledDate: scheduled,
	}
	now := time.Now()
	mock.ExpectQuery("INSERT INTO waste_transactions").
		WithArgs(sqlmock.AnyArg(), "u1", "c1", "loc-1", domain.TransactionTypePickup, domain.TransactionStatusPending,
			"Jl. Melati 4", scheduled, sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	require.NoError(t, repo.Create(context.Background(), txn))
	assert.NotEmpty(t, txn.ID)
	assert.Equal(t, []string{}, txn.Photos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_GetByIDCompleted(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewTransactionRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM waste_transactions WHERE id = \$1`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows(transactionCols).AddRow(
			"t1", "u1", "c1", "loc-1", "DROPOFF", "COMPLETED", "Pos RW 02",
			now, "{}", "ditimbang", "3.700", int64(37), "staff", now, now, now))

	txn, err := repo.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, "3.7", txn.ActualWeight.String())
	assert.Equal(t, int64(37), *txn.Points)
	assert.Equal(t, "staff", *txn.ProcessedBy)
	assert.Equal(t, "ditimbang", *txn.Notes)
	assert.NotNil(t, txn.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_ListFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewTransactionRepository(db)

	status := domain.TransactionStatusPending
	filter := domain.TransactionFilter{Page: domain.Page{Page: 1, PageSize: 20}, LocationID: domain.StringPtr("loc-1"), Status: &status}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM waste_transactions WHERE location_id = \$1 AND status = \$2`).
		WithArgs("loc-1", domain.TransactionStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT (.+) FROM waste_transactions WHERE location_id = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("loc-1", domain.TransactionStatusPending, 20, 0).
		WillReturnRows(sqlmock.NewRows(transactionCols))

	out, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}
