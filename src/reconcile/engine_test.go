package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koperasi-server/src/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCheckStart(t *testing.T) {
	require.NoError(t, CheckStart(nil), "no open session on the account")

	completed := models.Reconciliation{Status: models.ReconciliationCompleted}
	require.NoError(t, CheckStart(&completed), "completed history does not block a new session")

	open := models.Reconciliation{Status: models.ReconciliationInProgress}
	assert.ErrorIs(t, CheckStart(&open), ErrAlreadyInProgress)
}

func TestSeedTransactionIDs(t *testing.T) {
	txs := []models.Transaction{
		{ID: 1, TransactionDate: day(2024, 1, 5)},
		{ID: 2, TransactionDate: day(2024, 1, 31)},
		{ID: 3, TransactionDate: day(2024, 2, 1)},  // after statement end
		{ID: 4, TransactionDate: day(2023, 12, 15)}, // already reconciled
	}
	ids := SeedTransactionIDs(txs, day(2024, 1, 31), map[int64]bool{4: true})
	assert.Equal(t, []int64{1, 2}, ids)
}

func txIndex(txs ...models.Transaction) map[int64]models.Transaction {
	m := make(map[int64]models.Transaction, len(txs))
	for _, tx := range txs {
		m[tx.ID] = tx
	}
	return m
}

func TestMatchedSum(t *testing.T) {
	byID := txIndex(
		models.Transaction{ID: 1, Type: models.TypeDeposit, Amount: dec("1000")},
		models.Transaction{ID: 2, Type: models.TypeWithdrawal, Amount: dec("300")},
		models.Transaction{ID: 3, Type: models.TypeDeposit, Amount: dec("500")},
	)
	items := []models.ReconciliationItem{
		{TransactionID: 1, IsMatched: true},
		{TransactionID: 2, IsMatched: true},
		{TransactionID: 3, IsMatched: false}, // unmatched, ignored
		{TransactionID: 9, IsMatched: true},  // orphan, ignored
	}
	assert.True(t, dec("700").Equal(MatchedSum(items, byID)))
}

func TestRecalculate_InvariantHolds(t *testing.T) {
	byID := txIndex(
		models.Transaction{ID: 1, Type: models.TypeDeposit, Amount: dec("1000")},
		models.Transaction{ID: 2, Type: models.TypeWithdrawal, Amount: dec("250")},
	)
	rec := models.Reconciliation{
		StartingBalance: dec("100"),
		ClosingBalance:  dec("850"),
		Status:          models.ReconciliationInProgress,
	}
	items := []models.ReconciliationItem{
		{TransactionID: 1, IsMatched: true},
		{TransactionID: 2, IsMatched: false},
	}

	Recalculate(&rec, items, byID)
	assert.True(t, dec("1100").Equal(rec.MatchedBalance), "starting + matched deposits")
	assert.True(t, dec("-250").Equal(rec.Difference))

	// Toggle the withdrawal on; the invariant must hold after any toggle.
	items[1].IsMatched = true
	Recalculate(&rec, items, byID)
	assert.True(t, dec("850").Equal(rec.MatchedBalance))
	assert.True(t, rec.Difference.IsZero())
}

func TestCanComplete_ToleranceBoundary(t *testing.T) {
	assert.True(t, CanComplete(decimal.Zero))
	assert.True(t, CanComplete(dec("0.01")))
	assert.True(t, CanComplete(dec("-0.01")))
	assert.False(t, CanComplete(dec("0.011")))
	assert.False(t, CanComplete(dec("-5")))
}

func TestComplete(t *testing.T) {
	now := day(2024, 2, 1)

	rec := models.Reconciliation{Status: models.ReconciliationInProgress, Difference: dec("0.01")}
	require.NoError(t, Complete(&rec, now))
	assert.Equal(t, models.ReconciliationCompleted, rec.Status)
	require.NotNil(t, rec.ReconciledOn)
	assert.True(t, rec.ReconciledOn.Equal(now))

	// Terminal: completing again fails.
	assert.ErrorIs(t, Complete(&rec, now), ErrNotInProgress)

	outOfBalance := models.Reconciliation{Status: models.ReconciliationInProgress, Difference: dec("10")}
	assert.ErrorIs(t, Complete(&outOfBalance, now), ErrOutOfBalance)
	assert.Equal(t, models.ReconciliationInProgress, outOfBalance.Status, "failed complete leaves state untouched")
}

func TestPruneOrphans(t *testing.T) {
	byID := txIndex(models.Transaction{ID: 1})
	items := []models.ReconciliationItem{
		{ID: 10, TransactionID: 1},
		{ID: 11, TransactionID: 2},
		{ID: 12, TransactionID: 3},
	}
	kept, orphans := PruneOrphans(items, byID)
	require.Len(t, kept, 1)
	assert.Equal(t, int64(10), kept[0].ID)
	assert.Equal(t, []int64{11, 12}, orphans)
}

func TestStartingBalance(t *testing.T) {
	assert.True(t, StartingBalance(nil).IsZero())
	last := models.Reconciliation{ClosingBalance: dec("1234.56"), Status: models.ReconciliationCompleted}
	assert.True(t, dec("1234.56").Equal(StartingBalance(&last)))
}

func TestStatementScenario(t *testing.T) {
	// Bank BCA: one deposit of 1,000,000 on the statement; closing balance
	// from the bank is 1,000,000. Matching the deposit zeroes the
	// difference and the reconciliation completes.
	byID := txIndex(models.Transaction{ID: 1, Type: models.TypeDeposit, Amount: dec("1000000"), TransactionDate: day(2024, 1, 5)})

	ids := SeedTransactionIDs([]models.Transaction{byID[1]}, day(2024, 1, 31), nil)
	require.Equal(t, []int64{1}, ids)

	rec := models.Reconciliation{
		StartingBalance: decimal.Zero,
		ClosingBalance:  dec("1000000"),
		Status:          models.ReconciliationInProgress,
	}
	items := []models.ReconciliationItem{{TransactionID: 1, IsMatched: false}}

	Recalculate(&rec, items, byID)
	assert.True(t, dec("1000000").Equal(rec.Difference))

	items[0].IsMatched = true
	Recalculate(&rec, items, byID)
	assert.True(t, rec.Difference.IsZero())
	require.NoError(t, Complete(&rec, day(2024, 2, 1)))
}
