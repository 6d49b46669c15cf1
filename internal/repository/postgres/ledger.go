package postgres

import (
	"context"
	"time"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
)

// ledgerTx runs the state machine primitives on one *sql.Tx. Row locks are
// taken with SELECT ... FOR UPDATE and every write re-checks its
// precondition in the WHERE clause.
type ledgerTx struct {
	q querier
}

func (l *ledgerTx) GetTransactionForUpdate(ctx context.Context, id string) (*domain.Transaction, error) {
	t, err := scanTransaction(l.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM waste_transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translateError("Transaction", err)
	}
	return t, nil
}

func (l *ledgerTx) GetUserForUpdate(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(l.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translateError("User", err)
	}
	return u, nil
}

func (l *ledgerTx) GetRewardForUpdate(ctx context.Context, id string) (*domain.Reward, error) {
	rw, err := scanReward(l.q.QueryRowContext(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translateError("Reward", err)
	}
	return rw, nil
}

func (l *ledgerTx) GetRedemptionForUpdate(ctx context.Context, id string) (*domain.Redemption, error) {
	rd, err := scanRedemption(l.q.QueryRowContext(ctx,
		`SELECT `+redemptionColumns+redemptionFrom+` WHERE rr.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translateError("Redemption", err)
	}
	return rd, nil
}

// GetCategory holds a share lock so a concurrent rate change waits for the
// processing unit to commit.
func (l *ledgerTx) GetCategory(ctx context.Context, id string) (*domain.WasteCategory, error) {
	return queryCategory(ctx, l.q, `SELECT `+categoryColumns+` FROM waste_categories WHERE id = $1 FOR SHARE`, id)
}

func (l *ledgerTx) CompleteTransaction(ctx context.Context, t *domain.Transaction) error {
	logger.EnterMethod("ledgerTx.CompleteTransaction", "transactionID", t.ID)

	query := `
		UPDATE waste_transactions
		SET status = $2, actual_weight = $3, points = $4, processed_by_user_id = $5,
		    notes = COALESCE($6, notes), completed_at = $7, updated_at = $7
		WHERE id = $1 AND status = 'PENDING'`
	res, err := l.q.ExecContext(ctx, query,
		t.ID, domain.TransactionStatusCompleted, t.ActualWeight, t.Points, nullString(t.ProcessedBy),
		nullString(t.Notes), t.CompletedAt,
	)
	if err != nil {
		logger.ExitMethodWithError("ledgerTx.CompleteTransaction", err, "transactionID", t.ID)
		return translateError("Transaction", err)
	}
	if err := guardedRow(res, "Transaction already processed"); err != nil {
		return err
	}

	logger.ExitMethod("ledgerTx.CompleteTransaction", "transactionID", t.ID, "points", *t.Points)
	return nil
}

func (l *ledgerTx) CancelTransaction(ctx context.Context, id string, at time.Time) error {
	res, err := l.q.ExecContext(ctx,
		`UPDATE waste_transactions SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'PENDING'`,
		id, domain.TransactionStatusCancelled, at)
	if err != nil {
		return translateError("Transaction", err)
	}
	return guardedRow(res, "Transaction already processed")
}

func (l *ledgerTx) CreditPoints(ctx context.Context, userID string, amount int64) error {
	res, err := l.q.ExecContext(ctx,
		`UPDATE users SET points = points + $2, updated_at = NOW() WHERE id = $1`, userID, amount)
	if err != nil {
		return translateError("User", err)
	}
	return expectOneRow(res, "User")
}

func (l *ledgerTx) DebitPoints(ctx context.Context, userID string, amount int64) error {
	res, err := l.q.ExecContext(ctx,
		`UPDATE users SET points = points - $2, updated_at = NOW() WHERE id = $1 AND points >= $2`, userID, amount)
	if err != nil {
		return translateError("User", err)
	}
	return guardedRow(res, "Insufficient points")
}

func (l *ledgerTx) DecrementStock(ctx context.Context, rewardID string) error {
	res, err := l.q.ExecContext(ctx,
		`UPDATE rewards SET stock = stock - 1, updated_at = NOW() WHERE id = $1 AND stock > 0`, rewardID)
	if err != nil {
		return translateError("Reward", err)
	}
	return guardedRow(res, "Reward out of stock")
}

func (l *ledgerTx) InsertRedemption(ctx context.Context, rd *domain.Redemption) error {
	return insertRedemption(ctx, l.q, rd)
}

func (l *ledgerTx) FinalizeRedemption(ctx context.Context, rd *domain.Redemption) error {
	res, err := l.q.ExecContext(ctx, `
		UPDATE reward_redemptions
		SET status = $2, points_spent = $3, processed_by_user_id = $4, processed_at = $5
		WHERE id = $1 AND status = 'PENDING'`,
		rd.ID, rd.Status, rd.PointsSpent, nullString(rd.ProcessedBy), rd.ProcessedAt)
	if err != nil {
		return translateError("Redemption", err)
	}
	return guardedRow(res, "Redemption already processed")
}

// guardedRow turns "no row matched the guard" into a conflict.
func guardedRow(res interface{ RowsAffected() (int64, error) }, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal("rows affected", err)
	}
	if n == 0 {
		return apperr.Conflict("%s", msg)
	}
	return nil
}
