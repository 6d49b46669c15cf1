package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/service"
)

func TestAsyncAuditRecorder_WritesEntries(t *testing.T) {
	repo := new(MockAuditRepo)
	repo.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.AuditEntry) bool {
		return e.Action == domain.AuditRewardRedeem && !e.CreatedAt.IsZero()
	})).Return(nil).Once()

	rec := service.NewAuditRecorder(repo, 4)
	rec.Record(context.Background(), domain.AuditEntry{Action: domain.AuditRewardRedeem})
	rec.Close()

	repo.AssertExpectations(t)
}

func TestAsyncAuditRecorder_FailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	repo := new(MockAuditRepo)
	repo.On("Append", mock.Anything, mock.Anything).Return(errors.New("audit table unavailable"))
	rec := service.NewAuditRecorder(repo, 16)

	svc := service.NewTransactionService(f.store.TransactionRepository, f.store.UserRepository, f.store.CategoryRepository, f.store.TxManager, rec)
	tx, err := svc.Create(ctx, f.nasabahA, service.CreateTransactionInput{
		WasteCategoryID: f.categoryA.ID,
		Type:            domain.TransactionTypeDropoff,
		LocationDetail:  "Pos RW 05",
		ScheduledDate:   time.Now(),
	})
	require.NoError(t, err)

	done, err := svc.Process(ctx, f.adminA, tx.ID, service.ProcessTransactionInput{ActualWeight: decimal.NewFromInt(3)})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, done.Status)
	assert.Equal(t, int64(30), f.points(t, f.nasabahA.UserID))

	rec.Close()
	repo.AssertNumberOfCalls(t, "Append", 2)
}

func TestAsyncAuditRecorder_ClosedDrops(t *testing.T) {
	repo := new(MockAuditRepo)
	rec := service.NewAuditRecorder(repo, 1)
	rec.Close()

	rec.Record(context.Background(), domain.AuditEntry{Action: domain.AuditUserCreate})
	repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestAuditService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.AuditRepository.Append(ctx, &domain.AuditEntry{Action: domain.AuditRewardCreate, LocationID: &f.locA}))
	require.NoError(t, f.store.AuditRepository.Append(ctx, &domain.AuditEntry{Action: domain.AuditRewardCreate, LocationID: &f.locB}))

	svc := service.NewAuditService(f.store.AuditRepository)

	entries, meta, err := svc.List(ctx, f.adminA, domain.AuditFilter{LocationID: &f.locB})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, f.locA, *entries[0].LocationID)
	assert.Equal(t, 1, meta.Total)

	entries, _, err = svc.List(ctx, f.super, domain.AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, _, err = svc.List(ctx, f.petugasA, domain.AuditFilter{})
	assert.True(t, apperr.IsAuthorization(err))
}
