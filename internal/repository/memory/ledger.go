package memory

import (
	"context"
	"math"
	"time"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
)

// ledgerTx mutates the staged copy owned by one WithTx call.
type ledgerTx struct {
	d   *data
	now func() time.Time
}

func (l *ledgerTx) GetTransactionForUpdate(_ context.Context, id string) (*domain.Transaction, error) {
	t, ok := l.d.transactions[id]
	if !ok {
		return nil, apperr.NotFound("Transaction")
	}
	return &t, nil
}

func (l *ledgerTx) GetUserForUpdate(_ context.Context, id string) (*domain.User, error) {
	u, ok := l.d.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return &u, nil
}

func (l *ledgerTx) GetRewardForUpdate(_ context.Context, id string) (*domain.Reward, error) {
	rw, ok := l.d.rewards[id]
	if !ok {
		return nil, apperr.NotFound("Reward")
	}
	return &rw, nil
}

func (l *ledgerTx) GetRedemptionForUpdate(_ context.Context, id string) (*domain.Redemption, error) {
	rd, ok := l.d.redemptions[id]
	if !ok {
		return nil, apperr.NotFound("Redemption")
	}
	return &rd, nil
}

func (l *ledgerTx) GetCategory(_ context.Context, id string) (*domain.WasteCategory, error) {
	c, ok := l.d.categories[id]
	if !ok {
		return nil, apperr.NotFound("Waste category")
	}
	return &c, nil
}

func (l *ledgerTx) CompleteTransaction(_ context.Context, t *domain.Transaction) error {
	existing, ok := l.d.transactions[t.ID]
	if !ok {
		return apperr.NotFound("Transaction")
	}
	if existing.Status != domain.TransactionStatusPending {
		return apperr.Conflict("Transaction already processed")
	}
	existing.Status = domain.TransactionStatusCompleted
	existing.ActualWeight = t.ActualWeight
	existing.Points = t.Points
	existing.ProcessedBy = t.ProcessedBy
	if t.Notes != nil {
		existing.Notes = t.Notes
	}
	existing.CompletedAt = t.CompletedAt
	existing.UpdatedAt = *t.CompletedAt
	l.d.transactions[t.ID] = existing
	return nil
}

func (l *ledgerTx) CancelTransaction(_ context.Context, id string, at time.Time) error {
	existing, ok := l.d.transactions[id]
	if !ok {
		return apperr.NotFound("Transaction")
	}
	if existing.Status != domain.TransactionStatusPending {
		return apperr.Conflict("Transaction already processed")
	}
	existing.Status = domain.TransactionStatusCancelled
	existing.UpdatedAt = at
	l.d.transactions[id] = existing
	return nil
}

func (l *ledgerTx) CreditPoints(_ context.Context, userID string, amount int64) error {
	u, ok := l.d.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	if amount < 0 || u.Points > math.MaxInt64-amount {
		return apperr.Validation("Points balance out of range")
	}
	u.Points += amount
	u.UpdatedAt = l.now()
	l.d.users[userID] = u
	return nil
}

func (l *ledgerTx) DebitPoints(_ context.Context, userID string, amount int64) error {
	u, ok := l.d.users[userID]
	if !ok || u.Points < amount {
		return apperr.Conflict("Insufficient points")
	}
	u.Points -= amount
	u.UpdatedAt = l.now()
	l.d.users[userID] = u
	return nil
}

func (l *ledgerTx) DecrementStock(_ context.Context, rewardID string) error {
	rw, ok := l.d.rewards[rewardID]
	if !ok || rw.Stock <= 0 {
		return apperr.Conflict("Reward out of stock")
	}
	rw.Stock--
	rw.UpdatedAt = l.now()
	l.d.rewards[rewardID] = rw
	return nil
}

func (l *ledgerTx) InsertRedemption(_ context.Context, rd *domain.Redemption) error {
	return insertRedemption(l.d, rd, l.now())
}

func (l *ledgerTx) FinalizeRedemption(_ context.Context, rd *domain.Redemption) error {
	existing, ok := l.d.redemptions[rd.ID]
	if !ok || existing.Status != domain.RedemptionStatusPending {
		return apperr.Conflict("Redemption already processed")
	}
	existing.Status = rd.Status
	existing.PointsSpent = rd.PointsSpent
	existing.ProcessedBy = rd.ProcessedBy
	existing.ProcessedAt = rd.ProcessedAt
	l.d.redemptions[rd.ID] = existing
	return nil
}
