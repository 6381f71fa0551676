package reports

import (
	"github.com/shopspring/decimal"

	"koperasi-server/src/ledger"
	"koperasi-server/src/models"
)

// SplitAllocation flags a split transaction whose lines do not sum to the
// transaction amount. Split sums are validated when expenses convert to
// transactions but not for manual entry, so the gap is surfaced as a
// diagnostic instead of an error.
type SplitAllocation struct {
	TransactionID        int64           `json:"transaction_id"`
	Amount               decimal.Decimal `json:"amount"`
	Allocated            decimal.Decimal `json:"allocated"`
	RemainingUnallocated decimal.Decimal `json:"remaining_unallocated"`
}

// CheckSplitAllocation reports every split transaction with a nonzero
// unallocated remainder.
func CheckSplitAllocation(txs []models.Transaction) []SplitAllocation {
	var out []SplitAllocation
	for _, tx := range txs {
		if !tx.IsSplit {
			continue
		}
		allocated := ledger.SumSplits(tx.Splits)
		remaining := tx.Amount.Sub(allocated)
		if remaining.IsZero() {
			continue
		}
		out = append(out, SplitAllocation{
			TransactionID:        tx.ID,
			Amount:               tx.Amount,
			Allocated:            allocated,
			RemainingUnallocated: remaining,
		})
	}
	return out
}
