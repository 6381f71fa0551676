package models

import "time"

// MasterName is one of the five fixed top-level chart-of-accounts categories.
type MasterName string

const (
	MasterAssets      MasterName = "Assets"
	MasterLiabilities MasterName = "Liabilities"
	MasterIncome      MasterName = "Income"
	MasterExpenses    MasterName = "Expenses"
	MasterEquity      MasterName = "Equity"
)

// AllMasters lists every master in display order.
var AllMasters = []MasterName{
	MasterAssets,
	MasterLiabilities,
	MasterEquity,
	MasterIncome,
	MasterExpenses,
}

// BaseCode returns the start of the master's numeric account-code range.
func (m MasterName) BaseCode() int {
	switch m {
	case MasterAssets:
		return 1000
	case MasterLiabilities:
		return 2000
	case MasterEquity:
		return 3000
	case MasterIncome:
		return 4000
	case MasterExpenses:
		return 5000
	}
	return 0
}

// Valid reports whether m is one of the five seeded masters.
func (m MasterName) Valid() bool {
	return m.BaseCode() != 0
}

type Master struct {
	ID        int64      `json:"id"`
	Name      MasterName `json:"name"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
}

type Submenu struct {
	ID         int64      `json:"id"`
	MasterID   int64      `json:"master_id"`
	Name       string     `json:"name"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	MasterName MasterName `json:"master_name,omitempty"` // resolved, not stored
}
