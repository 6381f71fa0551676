package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a leaf of the COA hierarchy. Balance is a denormalized cache
// maintained by the ledger; the transaction log is the source of truth.
type Account struct {
	ID              int64           `json:"id"`
	SubmenuID       int64           `json:"submenu_id"`
	Code            *string         `json:"code"`
	Name            string          `json:"name"`
	Currency        string          `json:"currency"`
	Balance         decimal.Decimal `json:"balance"`
	LastTransaction *time.Time      `json:"last_transaction"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`

	// Resolved display fields, not stored.
	SubmenuName string     `json:"submenu_name,omitempty"`
	MasterName  MasterName `json:"master_name,omitempty"`
}
