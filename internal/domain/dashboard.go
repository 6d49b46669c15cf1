package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"wastebank-backend/internal/apperr"
)

// DefaultChartColor is used for categories stored without a color.
const DefaultChartColor = "#8884d8"

// TopWasteCategories is how many categories a report's distribution keeps.
const TopWasteCategories = 5

// WasteShare is the completed weight of one category.
type WasteShare struct {
	CategoryID string          `json:"categoryId"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	WeightKg   decimal.Decimal `json:"value"`
}

type InsightType string

const (
	InsightPositive   InsightType = "positive"
	InsightSuggestion InsightType = "suggestion"
	InsightInfo       InsightType = "info"
)

type Insight struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Type        InsightType `json:"type"`
}

// CustomerSummary is a NASABAH's own dashboard.
type CustomerSummary struct {
	Points           int64        `json:"points"`
	WasteComposition []WasteShare `json:"wasteComposition"`
	Insights         []Insight    `json:"insights"`
}

type ReportMetrics struct {
	TotalNasabah      int             `json:"totalUsers"`
	TotalTransactions int             `json:"totalTransactions"`
	TotalWeightKg     decimal.Decimal `json:"totalWeightKg"`
}

type Report struct {
	KeyMetrics        ReportMetrics `json:"keyMetrics"`
	WasteDistribution []WasteShare  `json:"wasteDistribution"`
}

// WeightFilter narrows the COMPLETED transactions a dashboard aggregates.
// From and To bound the creation time, inclusive. Limit 0 means no limit.
type WeightFilter struct {
	LocationID *string
	UserID     *string
	From       *time.Time
	To         *time.Time
	Limit      int
}

func (f WeightFilter) Validate() error {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return apperr.Validation("endDate must not be before startDate")
	}
	return nil
}

// Includes reports whether a transaction counts toward the filter.
func (f WeightFilter) Includes(t Transaction) bool {
	if t.Status != TransactionStatusCompleted || t.ActualWeight == nil {
		return false
	}
	if f.LocationID != nil && t.LocationID != *f.LocationID {
		return false
	}
	if f.UserID != nil && t.UserID != *f.UserID {
		return false
	}
	if f.From != nil && t.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && t.CreatedAt.After(*f.To) {
		return false
	}
	return true
}
