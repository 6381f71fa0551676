// Package reconcile implements the bank-reconciliation computations: item
// seeding when a statement period opens, the matched-balance/difference
// arithmetic rerun after every toggle or removal, orphan pruning, and the
// completion check. Reconciliation always runs against a cash/bank asset
// account, so the Assets sign convention applies throughout.
package reconcile

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"koperasi-server/src/ledger"
	"koperasi-server/src/models"
)

// Tolerance is the largest absolute difference a reconciliation may carry
// and still complete.
var Tolerance = decimal.NewFromFloat(0.01)

var (
	// ErrAlreadyInProgress rejects starting a second open reconciliation
	// for the same account.
	ErrAlreadyInProgress = errors.New("account already has a reconciliation in progress")
	// ErrNotInProgress rejects mutations against a completed (or missing)
	// reconciliation.
	ErrNotInProgress = errors.New("reconciliation is not in progress")
	// ErrOutOfBalance rejects completing while the difference exceeds the
	// tolerance.
	ErrOutOfBalance = errors.New("reconciliation difference exceeds tolerance")
)

// CheckStart guards opening a new reconciliation: an account holds at most
// one in-progress session. Completed history never blocks a new start.
func CheckStart(open *models.Reconciliation) error {
	if open != nil && open.Status == models.ReconciliationInProgress {
		return ErrAlreadyInProgress
	}
	return nil
}

// SeedTransactionIDs selects the transactions to enroll when a
// reconciliation starts: every transaction on the account dated on or
// before the statement end that is not already matched in a completed
// reconciliation for that account. Already-reconciled history stays locked.
func SeedTransactionIDs(transactions []models.Transaction, endDate time.Time, alreadyMatched map[int64]bool) []int64 {
	var ids []int64
	for _, tx := range transactions {
		if tx.TransactionDate.After(endDate) {
			continue
		}
		if alreadyMatched[tx.ID] {
			continue
		}
		ids = append(ids, tx.ID)
	}
	return ids
}

// MatchedSum totals the signed effect of the matched items: +amount for a
// deposit, -amount for a withdrawal. Items whose transaction is missing
// contribute nothing; PruneOrphans removes them on read.
func MatchedSum(items []models.ReconciliationItem, txByID map[int64]models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if !item.IsMatched {
			continue
		}
		tx, ok := txByID[item.TransactionID]
		if !ok {
			continue
		}
		total = total.Add(ledger.BalanceDelta(tx.Type, tx.Amount))
	}
	return total
}

// Recalculate refreshes the reconciliation's derived fields from its items:
// matched_balance = starting + matched sum, difference = closing - matched.
func Recalculate(rec *models.Reconciliation, items []models.ReconciliationItem, txByID map[int64]models.Transaction) {
	rec.MatchedBalance = rec.StartingBalance.Add(MatchedSum(items, txByID))
	rec.Difference = rec.ClosingBalance.Sub(rec.MatchedBalance)
}

// CanComplete reports whether the difference is within tolerance.
func CanComplete(difference decimal.Decimal) bool {
	return difference.Abs().LessThanOrEqual(Tolerance)
}

// Complete marks the reconciliation completed, or fails when it is not in
// progress or still out of balance. Completion is terminal.
func Complete(rec *models.Reconciliation, now time.Time) error {
	if rec.Status != models.ReconciliationInProgress {
		return ErrNotInProgress
	}
	if !CanComplete(rec.Difference) {
		return ErrOutOfBalance
	}
	rec.Status = models.ReconciliationCompleted
	rec.ReconciledOn = &now
	return nil
}

// PruneOrphans splits items into those whose transaction still exists and
// the ids of items referencing a since-deleted transaction. Orphans are
// self-healed by deletion on the next read rather than surfaced as errors.
func PruneOrphans(items []models.ReconciliationItem, txByID map[int64]models.Transaction) (kept []models.ReconciliationItem, orphanIDs []int64) {
	for _, item := range items {
		if _, ok := txByID[item.TransactionID]; ok {
			kept = append(kept, item)
		} else {
			orphanIDs = append(orphanIDs, item.ID)
		}
	}
	return kept, orphanIDs
}

// StartingBalance derives the opening balance for a new reconciliation from
// the account's last completed one, or zero for the first.
func StartingBalance(lastCompleted *models.Reconciliation) decimal.Decimal {
	if lastCompleted == nil {
		return decimal.Zero
	}
	return lastCompleted.ClosingBalance
}
