package domain

import "time"

type AuditAction string

const (
	AuditTransactionCreate  AuditAction = "TRANSACTION_CREATE"
	AuditTransactionCancel  AuditAction = "TRANSACTION_CANCEL"
	AuditTransactionProcess AuditAction = "TRANSACTION_PROCESS"
	AuditRewardCreate       AuditAction = "REWARD_CREATE"
	AuditRewardUpdate       AuditAction = "REWARD_UPDATE"
	AuditRewardDelete       AuditAction = "REWARD_DELETE"
	AuditRewardRedeem       AuditAction = "REWARD_REDEEM"
	AuditRedemptionRequest  AuditAction = "REDEMPTION_REQUEST"
	AuditRedemptionApprove  AuditAction = "REDEMPTION_APPROVE"
	AuditRedemptionReject   AuditAction = "REDEMPTION_REJECT"
	AuditCategoryCreate     AuditAction = "CATEGORY_CREATE"
	AuditCategoryUpdate     AuditAction = "CATEGORY_UPDATE"
	AuditCategoryDelete     AuditAction = "CATEGORY_DELETE"
	AuditUserCreate         AuditAction = "USER_CREATE"
	AuditUserUpdate         AuditAction = "USER_UPDATE"
	AuditUserDelete         AuditAction = "USER_DELETE"
	AuditLocationCreate     AuditAction = "LOCATION_CREATE"
	AuditLocationUpdate     AuditAction = "LOCATION_UPDATE"
	AuditLocationDelete     AuditAction = "LOCATION_DELETE"
)

type AuditEntry struct {
	ID         string         `json:"id"`
	Action     AuditAction    `json:"action"`
	UserID     *string        `json:"userId"`
	LocationID *string        `json:"locationId"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"createdAt"`
}
