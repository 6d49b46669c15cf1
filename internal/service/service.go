package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Me(ctx context.Context, caller authz.Caller) (*domain.User, error)
}

type TransactionService interface {
	Create(ctx context.Context, caller authz.Caller, in CreateTransactionInput) (*domain.Transaction, error)
	Get(ctx context.Context, caller authz.Caller, id string) (*domain.Transaction, error)
	List(ctx context.Context, caller authz.Caller, filter domain.TransactionFilter) ([]domain.Transaction, domain.PageMeta, error)
	Cancel(ctx context.Context, caller authz.Caller, id string) (*domain.Transaction, error)
	Process(ctx context.Context, caller authz.Caller, id string, in ProcessTransactionInput) (*domain.Transaction, error)
}

type RedemptionService interface {
	// Redeem debits points and stock immediately and records an APPROVED redemption.
	Redeem(ctx context.Context, caller authz.Caller, rewardID string) (*domain.Redemption, error)
	// Request records a PENDING redemption for staff approval. No counters move.
	Request(ctx context.Context, caller authz.Caller, rewardID string) (*domain.Redemption, error)
	Approve(ctx context.Context, caller authz.Caller, id string) (*domain.Redemption, error)
	Reject(ctx context.Context, caller authz.Caller, id string) (*domain.Redemption, error)
	History(ctx context.Context, caller authz.Caller) ([]domain.Redemption, error)
	List(ctx context.Context, caller authz.Caller, filter domain.RedemptionFilter) ([]domain.Redemption, domain.PageMeta, error)
}

type RewardService interface {
	List(ctx context.Context, caller authz.Caller, filter domain.CatalogFilter) ([]domain.Reward, domain.PageMeta, error)
	Get(ctx context.Context, caller authz.Caller, id string) (*domain.Reward, error)
	Create(ctx context.Context, caller authz.Caller, in RewardInput) (*domain.Reward, error)
	Update(ctx context.Context, caller authz.Caller, id string, in RewardInput) (*domain.Reward, error)
	Delete(ctx context.Context, caller authz.Caller, id string) error
}

type CategoryService interface {
	List(ctx context.Context, caller authz.Caller, filter domain.CatalogFilter) ([]domain.WasteCategory, domain.PageMeta, error)
	Create(ctx context.Context, caller authz.Caller, in CategoryInput) (*domain.WasteCategory, error)
	Update(ctx context.Context, caller authz.Caller, id string, in CategoryInput) (*domain.WasteCategory, error)
	Delete(ctx context.Context, caller authz.Caller, id string) error
}

type LocationService interface {
	List(ctx context.Context, caller authz.Caller) ([]domain.Location, error)
	Get(ctx context.Context, caller authz.Caller, id string) (*domain.Location, error)
	Create(ctx context.Context, caller authz.Caller, in LocationInput) (*domain.Location, error)
	Update(ctx context.Context, caller authz.Caller, id string, in LocationInput) (*domain.Location, error)
	Delete(ctx context.Context, caller authz.Caller, id string) error
}

type UserService interface {
	List(ctx context.Context, caller authz.Caller, filter domain.UserFilter) ([]domain.User, domain.PageMeta, error)
	Get(ctx context.Context, caller authz.Caller, id string) (*domain.User, error)
	Create(ctx context.Context, caller authz.Caller, in CreateUserInput) (*domain.User, error)
	Update(ctx context.Context, caller authz.Caller, id string, in UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, caller authz.Caller, id string) error
	Leaderboard(ctx context.Context, caller authz.Caller, locationID *string, limit int) ([]domain.LeaderboardEntry, error)
}

type DashboardService interface {
	// CustomerSummary is the calling NASABAH's balance, completed weight by
	// category and a few hints.
	CustomerSummary(ctx context.Context, caller authz.Caller) (*domain.CustomerSummary, error)
	// Report aggregates one location, or every location for SUPERADMIN.
	Report(ctx context.Context, caller authz.Caller, in ReportInput) (*domain.Report, error)
}

type AuditService interface {
	List(ctx context.Context, caller authz.Caller, filter domain.AuditFilter) ([]domain.AuditEntry, domain.PageMeta, error)
}

// AuditRecorder persists audit entries on a best-effort basis. Record never
// fails the caller.
type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// ReportInput bounds a report by transaction creation time, inclusive.
type ReportInput struct {
	LocationID *string
	From       *time.Time
	To         *time.Time
}

type CreateTransactionInput struct {
	UserID          *string
	LocationID      *string
	WasteCategoryID string
	Type            domain.TransactionType
	LocationDetail  string
	ScheduledDate   time.Time
	Photos          []string
	Notes           *string
}

type ProcessTransactionInput struct {
	ActualWeight decimal.Decimal
	Notes        *string
}

type RewardInput struct {
	LocationID     *string
	Name           string
	Description    string
	ImageURL       string
	PointsRequired int64
	Stock          int64
}

type CategoryInput struct {
	LocationID  *string
	Name        string
	Description string
	Color       string
	PointsPerKg int64
}

type LocationInput struct {
	Desa      string
	Kecamatan string
	Kabupaten string
}

type CreateUserInput struct {
	Name       string
	Email      string
	Password   string
	Role       domain.Role
	LocationID *string
	AvatarURL  string
	RW         string
	RT         string
}

// UpdateUserInput is a partial update. Points is carried only so that an
// attempt to set it can be rejected.
type UpdateUserInput struct {
	domain.UserUpdate
	Points *int64
}

func strPtr(s string) *string { return &s }
