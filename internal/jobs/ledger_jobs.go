package jobs

import (
	"context"
	"fmt"

	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
)

// reconcileLedger checks every user's stored balance against the sum of
// completed transaction points minus approved redemption spend. It only
// reports; balances are never corrected automatically.
func (jr *JobRunner) reconcileLedger(ctx context.Context) ([]domain.BalanceDiscrepancy, error) {
	discrepancies, err := jr.store.UserRepository.BalanceDiscrepancies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute balance discrepancies: %w", err)
	}

	for _, d := range discrepancies {
		logger.Warn("Balance does not match ledger",
			"user_id", d.UserID,
			"stored", d.Stored,
			"expected", d.Expected,
			"difference", d.Stored-d.Expected)
	}
	logger.Info("Ledger reconciliation finished", "discrepancies", len(discrepancies))
	return discrepancies, nil
}
