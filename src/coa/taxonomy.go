package coa

import "koperasi-server/src/models"

// Taxonomy carries the business-taxonomy tables the report builders depend
// on: canonical submenu display order, the COGS allowlist for the P&L, and
// the cash/bank and balance-sheet bucket allowlists. It is configuration
// data injected into the builders so tests can substitute fixtures.
type Taxonomy struct {
	// SubmenuOrder maps a master to its canonical submenu display order.
	// Submenus not listed sort after the listed ones, alphabetically.
	SubmenuOrder map[models.MasterName][]string

	// COGSSubmenus names the expense submenus counted as cost of goods
	// sold on the profit and loss report.
	COGSSubmenus map[string]bool

	// CashBankSubmenus names the asset submenus whose accounts hold real
	// money movement: their balance-sheet balance comes from the account's
	// own transactions rather than category attribution, and
	// reconciliation only makes sense against them.
	CashBankSubmenus map[string]bool

	// Balance-sheet bucketing by submenu name. Asset submenus not found in
	// CashBankSubmenus or LongTermAssetSubmenus fall into other current
	// assets; liability submenus not in LongTermLiabilitySubmenus are
	// current.
	LongTermAssetSubmenus     map[string]bool
	LongTermLiabilitySubmenus map[string]bool
}

// DefaultTaxonomy returns the production tables for the cooperative's chart
// of accounts.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		SubmenuOrder: map[models.MasterName][]string{
			models.MasterAssets: {
				"Cash and Bank",
				"Accounts Receivable",
				"Loans Receivable",
				"Other Current Assets",
				"Long-term Assets",
			},
			models.MasterLiabilities: {
				"Member Savings",
				"Accounts Payable",
				"Current Liabilities",
				"Long-term Liabilities",
			},
			models.MasterEquity: {
				"Member Equity",
				"Retained Earnings",
			},
			models.MasterIncome: {
				"Interest Income",
				"Service Income",
				"Other Income",
			},
			models.MasterExpenses: {
				"Cost of Goods Sold",
				"Operating Expense",
				"Payroll Expense",
				"Other Expense",
			},
		},
		COGSSubmenus: map[string]bool{
			"Cost of Goods Sold": true,
		},
		CashBankSubmenus: map[string]bool{
			"Cash and Bank": true,
		},
		LongTermAssetSubmenus: map[string]bool{
			"Long-term Assets": true,
		},
		LongTermLiabilitySubmenus: map[string]bool{
			"Long-term Liabilities": true,
		},
	}
}
