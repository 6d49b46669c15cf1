package domain

import "time"

type Reward struct {
	ID             string    `json:"id"`
	LocationID     string    `json:"locationId"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	PointsRequired int64     `json:"pointsRequired"`
	Stock          int64     `json:"stock"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type RedemptionStatus string

const (
	RedemptionStatusPending  RedemptionStatus = "PENDING"
	RedemptionStatusApproved RedemptionStatus = "APPROVED"
	RedemptionStatusRejected RedemptionStatus = "REJECTED"
)

func (s RedemptionStatus) Valid() bool {
	return s == RedemptionStatusPending || s == RedemptionStatusApproved || s == RedemptionStatusRejected
}

// Redemption records points exchanged for a reward. PointsSpent is the
// amount actually charged and never follows later price changes.
type Redemption struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	RewardID    string           `json:"rewardId"`
	LocationID  string           `json:"locationId"`
	PointsSpent int64            `json:"pointsSpent"`
	Status      RedemptionStatus `json:"status"`
	ProcessedBy *string          `json:"processedByUserId"`
	ProcessedAt *time.Time       `json:"processedAt"`
	RedeemedAt  time.Time        `json:"redeemedAt"`

	RewardName string `json:"rewardName,omitempty"`
	UserName   string `json:"userName,omitempty"`
}
