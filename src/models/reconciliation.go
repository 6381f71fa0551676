package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationStatus constants. A reconciliation is created in_progress
// and either completed (terminal) or cancelled (row deleted).
const (
	ReconciliationInProgress = "in_progress"
	ReconciliationCompleted  = "completed"
)

type Reconciliation struct {
	ID               int64           `json:"id"`
	AccountID        int64           `json:"account_id"`
	StatementEndDate time.Time       `json:"statement_end_date"`
	StartingBalance  decimal.Decimal `json:"starting_balance"`
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
	MatchedBalance   decimal.Decimal `json:"matched_balance"`
	Difference       decimal.Decimal `json:"difference"`
	Status           string          `json:"status"`
	ReconciledOn     *time.Time      `json:"reconciled_on"`
	CreatedAt        time.Time       `json:"created_at"`
}

type ReconciliationItem struct {
	ID               int64      `json:"id"`
	ReconciliationID int64      `json:"reconciliation_id"`
	TransactionID    int64      `json:"transaction_id"`
	IsMatched        bool       `json:"is_matched"`
	MatchedAt        *time.Time `json:"matched_at"`
	CreatedAt        time.Time  `json:"created_at"`
}
