package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"wastebank-backend/internal/apperr"
)

type TransactionType string

const (
	TransactionTypePickup  TransactionType = "PICKUP"
	TransactionTypeDropoff TransactionType = "DROPOFF"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypePickup || t == TransactionTypeDropoff
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

func (s TransactionStatus) Valid() bool {
	return s == TransactionStatusPending || s == TransactionStatusCompleted || s == TransactionStatusCancelled
}

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending: {TransactionStatusCompleted, TransactionStatusCancelled},
}

// CanTransition reports whether a transaction may move from one status to another.
// COMPLETED and CANCELLED are terminal.
func (s TransactionStatus) CanTransition(to TransactionStatus) bool {
	for _, next := range transactionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Transaction struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId"`
	WasteCategoryID string            `json:"wasteCategoryId"`
	LocationID      string            `json:"locationId"`
	Type            TransactionType   `json:"type"`
	Status          TransactionStatus `json:"status"`
	LocationDetail  string            `json:"locationDetail"`
	ScheduledDate   time.Time         `json:"scheduledDate"`
	Photos          []string          `json:"photos"`
	Notes           *string           `json:"notes"`
	ActualWeight    *decimal.Decimal  `json:"actualWeight"`
	Points          *int64            `json:"points"`
	ProcessedBy     *string           `json:"processedByUserId"`
	CompletedAt     *time.Time        `json:"completedAt"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// MaxPointsPerKg bounds category rates. Together with MaxWeight it keeps a
// single award below 1e15.
const MaxPointsPerKg int64 = 1_000_000

// MaxWeight is the exclusive upper bound of the NUMERIC(12,3) weight column.
var MaxWeight = decimal.NewFromInt(1_000_000_000)

var maxPoints = decimal.NewFromInt(math.MaxInt64)

// ComputePoints returns floor(weight * pointsPerKg) using exact decimal
// arithmetic, so 0.29kg at 100/kg is 29 and not 28. A product outside
// [0, MaxInt64] is a validation error, never a wrapped value.
func ComputePoints(weight decimal.Decimal, pointsPerKg int64) (int64, error) {
	points := weight.Mul(decimal.NewFromInt(pointsPerKg)).Floor()
	if points.IsNegative() || points.GreaterThan(maxPoints) {
		return 0, apperr.ValidationFields(map[string]string{"actualWeight": "awards more points than a balance can hold"})
	}
	return points.IntPart(), nil
}
