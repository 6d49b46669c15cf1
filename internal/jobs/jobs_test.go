package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/config"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/repository"
	"wastebank-backend/internal/repository/memory"
	"wastebank-backend/internal/service"
)

type fakeEvicter struct {
	ttl   time.Duration
	calls int
}

func (f *fakeEvicter) Evict(idleTTL time.Duration) int {
	f.ttl = idleTTL
	f.calls++
	return 3
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("database:\n  driver: memory\njwt:\n  secret: 0123456789abcdef0123456789abcdef\n"))
	require.NoError(t, err)
	return cfg
}

func seedLedger(t *testing.T, store *repository.Store) (authz.Caller, string) {
	t.Helper()
	ctx := context.Background()
	loc := "loc-a"
	require.NoError(t, store.LocationRepository.Create(ctx, &domain.Location{ID: loc, Desa: "Sukamaju", Kecamatan: "Coblong", Kabupaten: "Bandung"}))
	require.NoError(t, store.UserRepository.Create(ctx, &domain.User{ID: "nasabah", Name: "Ani", Email: "ani@example.com", Role: domain.RoleNasabah, LocationID: &loc}))
	require.NoError(t, store.UserRepository.Create(ctx, &domain.User{ID: "admin", Name: "Budi", Email: "budi@example.com", Role: domain.RoleAdmin, LocationID: &loc}))
	require.NoError(t, store.CategoryRepository.Create(ctx, &domain.WasteCategory{ID: "cat", LocationID: loc, Name: "Kardus", PointsPerKg: 10}))
	return authz.Caller{UserID: "admin", Role: domain.RoleAdmin, LocationID: &loc}, loc
}

func TestReconcileLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	admin, _ := seedLedger(t, store)
	nasabah := authz.Caller{UserID: "nasabah", Role: domain.RoleNasabah, LocationID: admin.LocationID}

	txs := service.NewTransactionService(store.TransactionRepository, store.UserRepository, store.CategoryRepository, store.TxManager, nil)
	tx, err := txs.Create(ctx, nasabah, service.CreateTransactionInput{
		WasteCategoryID: "cat",
		Type:            domain.TransactionTypeDropoff,
		LocationDetail:  "Bank Sampah RW 02",
		ScheduledDate:   time.Now(),
	})
	require.NoError(t, err)
	_, err = txs.Process(ctx, admin, tx.ID, service.ProcessTransactionInput{ActualWeight: decimal.RequireFromString("4.25")})
	require.NoError(t, err)

	jr := NewJobRunner(store, nil, nil, testConfig(t))
	found, err := jr.reconcileLedger(ctx)
	require.NoError(t, err)
	assert.Empty(t, found)

	// A credit that bypasses the transaction flow shows up as drift.
	require.NoError(t, store.TxManager.WithTx(ctx, func(ctx context.Context, ltx repository.LedgerTx) error {
		return ltx.CreditPoints(ctx, "nasabah", 5)
	}))
	found, err = jr.reconcileLedger(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(47), found[0].Stored)
	assert.Equal(t, int64(42), found[0].Expected)
}

func TestRun(t *testing.T) {
	store := memory.NewStore()
	ev := &fakeEvicter{}
	jr := NewJobRunner(store, ev, nil, testConfig(t))

	require.NoError(t, jr.Run(JobEvictRateLimiters))
	assert.Equal(t, 1, ev.calls)
	assert.Equal(t, 10*time.Minute, ev.ttl)

	require.NoError(t, jr.Run(JobAll))
	assert.Equal(t, 2, ev.calls)

	assert.Error(t, jr.Run("send-newsletter"))
}

func TestRunWithRecovery(t *testing.T) {
	jr := NewJobRunner(memory.NewStore(), nil, nil, testConfig(t))
	err := jr.runWithRecovery("Boom", func(context.Context) error { panic("boom") })
	assert.Error(t, err)
}
