// Package reports builds the profit and loss statement, the balance sheet
// and the general ledger from the COA hierarchy and an in-memory window of
// transactions and splits. Every builder flattens transactions into
// categorized lines first and then applies exactly one sign function from
// the accounting package, so signs cannot drift within a report.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"koperasi-server/src/models"
)

// Line is one categorized contribution to a report: a non-split
// transaction yields one line, a split transaction yields one line per
// split carrying the split's amount and category.
type Line struct {
	TransactionID int64
	AccountID     int64 // the bank/cash account the money moved through
	Type          models.TransactionType
	Amount        decimal.Decimal
	Date          time.Time
	CreatedAt     time.Time
	Category      models.Category
	VendorID      *int64
	CustomerID    *int64
	Notes         *string
}

// Flatten expands transactions (with their splits loaded) into report
// lines. Split transactions without lines and non-split transactions
// without a category contribute nothing.
func Flatten(txs []models.Transaction) []Line {
	var lines []Line
	for _, tx := range txs {
		if tx.IsSplit {
			for _, s := range tx.Splits {
				lines = append(lines, Line{
					TransactionID: tx.ID,
					AccountID:     tx.AccountID,
					Type:          tx.Type,
					Amount:        s.Amount,
					Date:          tx.TransactionDate,
					CreatedAt:     tx.CreatedAt,
					Category:      s.Category(),
					VendorID:      tx.VendorID,
					CustomerID:    tx.CustomerID,
					Notes:         tx.Notes,
				})
			}
			continue
		}
		cat := tx.Category()
		if cat == nil {
			continue
		}
		lines = append(lines, Line{
			TransactionID: tx.ID,
			AccountID:     tx.AccountID,
			Type:          tx.Type,
			Amount:        tx.Amount,
			Date:          tx.TransactionDate,
			CreatedAt:     tx.CreatedAt,
			Category:      *cat,
			VendorID:      tx.VendorID,
			CustomerID:    tx.CustomerID,
			Notes:         tx.Notes,
		})
	}
	return lines
}

// inRange reports start <= d <= end.
func inRange(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}

// onOrBefore reports d <= end.
func onOrBefore(d, end time.Time) bool {
	return !d.After(end)
}
