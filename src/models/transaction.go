package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the ledger direction of a transaction against its
// bank/cash account. "Deposit" and "Withdrawal" name the movement of money
// through that account, not the accounting side of the category it hits.
type TransactionType string

const (
	TypeDeposit    TransactionType = "Deposit"
	TypeWithdrawal TransactionType = "Withdrawal"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TypeDeposit || t == TypeWithdrawal
}

// CategoryType tags which level of the COA hierarchy a category id points at.
type CategoryType string

const (
	CategoryMaster  CategoryType = "master"
	CategorySubmenu CategoryType = "submenu"
	CategoryAccount CategoryType = "account"
)

// Valid reports whether c is a known category type.
func (c CategoryType) Valid() bool {
	return c == CategoryMaster || c == CategorySubmenu || c == CategoryAccount
}

// Category is the tagged categorization variant carried by a transaction or
// split: one id, interpreted per Type.
type Category struct {
	Type CategoryType `json:"category_type"`
	ID   int64        `json:"category_id"`
}

type Transaction struct {
	ID              int64           `json:"id"`
	AccountID       int64           `json:"account_id"`
	Type            TransactionType `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate time.Time       `json:"transaction_date"`
	CategoryID      *int64          `json:"category_id"`
	CategoryType    *CategoryType   `json:"category_type"`
	IsSplit         bool            `json:"is_split"`
	Notes           *string         `json:"notes"`
	VendorID        *int64          `json:"vendor_id"`
	CustomerID      *int64          `json:"customer_id"`
	SalesTaxID      *int64          `json:"sales_tax_id"`
	ReceiptRef      *string         `json:"receipt_ref"`
	Reviewed        bool            `json:"reviewed"`
	CreatedAt       time.Time       `json:"created_at"`

	Splits []Split `json:"splits,omitempty"`
}

// Category returns the transaction's single-category variant, or nil when
// the transaction is split (categorization lives in the child splits).
func (t *Transaction) Category() *Category {
	if t.IsSplit || t.CategoryID == nil || t.CategoryType == nil {
		return nil
	}
	return &Category{Type: *t.CategoryType, ID: *t.CategoryID}
}

type Split struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	CategoryID    int64           `json:"category_id"`
	CategoryType  CategoryType    `json:"category_type"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Category returns the split's categorization as a tagged variant.
func (s *Split) Category() Category {
	return Category{Type: s.CategoryType, ID: s.CategoryID}
}
