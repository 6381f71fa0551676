// Package ledger holds the pure transaction-side rules: input validation,
// the cached-balance delta an entry applies to its bank/cash account, bulk
// import row parsing, and the recompute-from-log oracle used to repair
// balance drift.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"koperasi-server/src/models"
)

// ErrValidation marks caller errors: missing or invalid fields, bad enums,
// non-positive amounts. Wrapped with a descriptive message.
var ErrValidation = errors.New("validation failed")

// SplitInput is one categorized line of a split transaction.
type SplitInput struct {
	Amount       decimal.Decimal     `json:"amount"`
	CategoryID   int64               `json:"category_id"`
	CategoryType models.CategoryType `json:"category_type"`
}

// Input is the payload for creating or updating a transaction.
type Input struct {
	AccountID       int64                  `json:"account_id"`
	Type            models.TransactionType `json:"transaction_type"`
	Amount          decimal.Decimal        `json:"amount"`
	TransactionDate string                 `json:"transaction_date"`
	CategoryID      *int64                 `json:"category_id"`
	CategoryType    *models.CategoryType   `json:"category_type"`
	IsSplit         bool                   `json:"is_split"`
	Splits          []SplitInput           `json:"splits"`
	Notes           *string                `json:"notes"`
	VendorID        *int64                 `json:"vendor_id"`
	CustomerID      *int64                 `json:"customer_id"`
	SalesTaxID      *int64                 `json:"sales_tax_id"`
	ReceiptRef      *string                `json:"receipt_ref"`
}

// Validate checks the invariants every transaction must satisfy: a known
// type, a positive amount (the absolute value is what gets stored), and
// exactly one categorization mode — a single category or splits, never
// both, never neither.
func (in *Input) Validate() error {
	if in.AccountID == 0 {
		return fmt.Errorf("%w: account_id is required", ErrValidation)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: transaction_type must be Deposit or Withdrawal", ErrValidation)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}
	if in.TransactionDate == "" {
		return fmt.Errorf("%w: transaction_date is required", ErrValidation)
	}

	hasCategory := in.CategoryID != nil && in.CategoryType != nil
	if in.IsSplit {
		if hasCategory {
			return fmt.Errorf("%w: a split transaction cannot also carry a direct category", ErrValidation)
		}
		if len(in.Splits) == 0 {
			return fmt.Errorf("%w: a split transaction needs at least one split line", ErrValidation)
		}
		for i, s := range in.Splits {
			if !s.Amount.IsPositive() {
				return fmt.Errorf("%w: split %d amount must be greater than zero", ErrValidation, i+1)
			}
			if !s.CategoryType.Valid() {
				return fmt.Errorf("%w: split %d has an invalid category_type", ErrValidation, i+1)
			}
		}
		return nil
	}
	if !hasCategory {
		return fmt.Errorf("%w: category_id and category_type are required for a non-split transaction", ErrValidation)
	}
	if !in.CategoryType.Valid() {
		return fmt.Errorf("%w: category_type must be master, submenu or account", ErrValidation)
	}
	return nil
}

// BalanceDelta is the change a transaction applies to its own account's
// cached balance. The affected account is always a bank/cash asset, so the
// Assets sign convention applies: deposits add, withdrawals subtract.
func BalanceDelta(txType models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	if txType == models.TypeDeposit {
		return amount
	}
	return amount.Neg()
}

// ReverseDelta undoes a previously applied balance effect.
func ReverseDelta(txType models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	return BalanceDelta(txType, amount).Neg()
}

// Recompute rebuilds an account balance strictly from its transaction log.
// It is both the test oracle for the incremental delta path and the repair
// routine for drift left behind by interrupted multi-step mutations.
func Recompute(transactions []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range transactions {
		total = total.Add(BalanceDelta(tx.Type, tx.Amount))
	}
	return total
}

// SumSplits totals the split amounts of a transaction.
func SumSplits(splits []models.Split) decimal.Decimal {
	total := decimal.Zero
	for _, s := range splits {
		total = total.Add(s.Amount)
	}
	return total
}
