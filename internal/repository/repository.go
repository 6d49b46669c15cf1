package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"wastebank-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update writes profile, role and location fields. Points are never written here.
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error)
	CountByRole(ctx context.Context, role domain.Role) (int, error)
	Leaderboard(ctx context.Context, locationID *string, limit int) ([]domain.LeaderboardEntry, error)
	// BalanceDiscrepancies lists users whose stored points differ from
	// completed transaction points minus approved redemption spend.
	BalanceDiscrepancies(ctx context.Context) ([]domain.BalanceDiscrepancy, error)
}

type LocationRepository interface {
	Create(ctx context.Context, loc *domain.Location) error
	GetByID(ctx context.Context, id string) (*domain.Location, error)
	List(ctx context.Context) ([]domain.Location, error)
	Update(ctx context.Context, loc *domain.Location) error
	Delete(ctx context.Context, id string) error
}

// MsgCategoryInUse is the conflict message for edits to a category that a
// completed transaction references.
const MsgCategoryInUse = "Waste category is referenced by completed transactions"

type CategoryRepository interface {
	Create(ctx context.Context, category *domain.WasteCategory) error
	GetByID(ctx context.Context, id string) (*domain.WasteCategory, error)
	List(ctx context.Context, filter domain.CatalogFilter) ([]domain.WasteCategory, int, error)
	// Update fails with a conflict once a COMPLETED transaction references
	// the category.
	Update(ctx context.Context, category *domain.WasteCategory) error
	Delete(ctx context.Context, id string) error
}

type RewardRepository interface {
	Create(ctx context.Context, reward *domain.Reward) error
	GetByID(ctx context.Context, id string) (*domain.Reward, error)
	List(ctx context.Context, filter domain.CatalogFilter) ([]domain.Reward, int, error)
	Update(ctx context.Context, reward *domain.Reward) error
	Delete(ctx context.Context, id string) error
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int, error)
}

type RedemptionRepository interface {
	// Create stores a PENDING request. No counters move.
	Create(ctx context.Context, r *domain.Redemption) error
	GetByID(ctx context.Context, id string) (*domain.Redemption, error)
	List(ctx context.Context, filter domain.RedemptionFilter) ([]domain.Redemption, int, error)
}

// DashboardRepository aggregates the ledger for read-only dashboards.
type DashboardRepository interface {
	// WeightByCategory sums the weight of matching COMPLETED transactions per
	// category, heaviest first.
	WeightByCategory(ctx context.Context, filter domain.WeightFilter) ([]domain.WasteShare, error)
	// CompletedTotals counts matching COMPLETED transactions and sums their weight.
	CompletedTotals(ctx context.Context, filter domain.WeightFilter) (int, decimal.Decimal, error)
	// CountNasabah counts NASABAH accounts, in one location when locationID is set.
	CountNasabah(ctx context.Context, locationID *string) (int, error)
	// NextReward returns the cheapest reward at a location costing more than
	// points, or a not-found error.
	NextReward(ctx context.Context, locationID string, points int64) (*domain.Reward, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int, error)
}

// LedgerTx is the view of the store inside one atomic unit of work. The
// ...ForUpdate reads lock the row until the unit commits or rolls back; the
// guarded writes fail with a conflict error when their precondition no
// longer holds.
type LedgerTx interface {
	GetTransactionForUpdate(ctx context.Context, id string) (*domain.Transaction, error)
	GetUserForUpdate(ctx context.Context, id string) (*domain.User, error)
	GetRewardForUpdate(ctx context.Context, id string) (*domain.Reward, error)
	GetRedemptionForUpdate(ctx context.Context, id string) (*domain.Redemption, error)
	GetCategory(ctx context.Context, id string) (*domain.WasteCategory, error)

	// CompleteTransaction writes status, weight, points, processor, notes and
	// completion time, only while the row is still PENDING.
	CompleteTransaction(ctx context.Context, tx *domain.Transaction) error
	// CancelTransaction moves a PENDING row to CANCELLED.
	CancelTransaction(ctx context.Context, id string, at time.Time) error
	CreditPoints(ctx context.Context, userID string, amount int64) error
	// DebitPoints fails with a conflict unless the balance covers amount.
	DebitPoints(ctx context.Context, userID string, amount int64) error
	// DecrementStock fails with a conflict when stock is exhausted.
	DecrementStock(ctx context.Context, rewardID string) error
	InsertRedemption(ctx context.Context, r *domain.Redemption) error
	// FinalizeRedemption moves a PENDING redemption to r.Status, recording the
	// charged points and the processor.
	FinalizeRedemption(ctx context.Context, r *domain.Redemption) error
}

// TxManager runs fn inside one atomic unit of work. Any error returned by fn,
// or cancellation of ctx, rolls every write back.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Store groups the repositories and the transaction boundary of one backend.
type Store struct {
	UserRepository
	LocationRepository
	CategoryRepository
	RewardRepository
	TransactionRepository
	RedemptionRepository
	AuditRepository
	DashboardRepository
	TxManager
	HealthChecker
}
