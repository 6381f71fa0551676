package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"koperasi-server/src/accounting"
	"koperasi-server/src/coa"
	"koperasi-server/src/models"
)

// PLRow is one named line of a profit-and-loss section.
type PLRow struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// PLSection groups rows under a section total.
type PLSection struct {
	Rows  []PLRow         `json:"rows"`
	Total decimal.Decimal `json:"total"`
}

// ProfitLoss is the full P&L payload for one period, optionally carrying a
// comparison period computed by the identical builder over different
// bounds.
type ProfitLoss struct {
	StartDate         string          `json:"start_date"`
	EndDate           string          `json:"end_date"`
	Income            PLSection       `json:"income"`
	CostOfGoodsSold   PLSection       `json:"cost_of_goods_sold"`
	OperatingExpenses PLSection       `json:"operating_expenses"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	NetProfit         decimal.Decimal `json:"net_profit"`
	GrossMargin       decimal.Decimal `json:"gross_margin"`
	NetMargin         decimal.Decimal `json:"net_margin"`
	Comparison        *ProfitLoss     `json:"comparison,omitempty"`
}

// BuildProfitLoss aggregates income and expense lines in [start, end] with
// the P&L sign convention. Expense lines whose submenu is in the COGS
// allowlist report as cost of goods sold; the rest are operating expenses.
// Zero-value rows are skipped.
func BuildProfitLoss(h *coa.Hierarchy, tax coa.Taxonomy, lines []Line, start, end time.Time) *ProfitLoss {
	incomeTotals := make(map[models.Category]decimal.Decimal)
	expenseTotals := make(map[models.Category]decimal.Decimal)

	for _, line := range lines {
		if !inRange(line.Date, start, end) {
			continue
		}
		master, ok := h.MasterOf(line.Category)
		if !ok {
			continue
		}
		switch master {
		case models.MasterIncome:
			incomeTotals[line.Category] = incomeTotals[line.Category].
				Add(accounting.ReportSigned(master, line.Type, line.Amount))
		case models.MasterExpenses:
			expenseTotals[line.Category] = expenseTotals[line.Category].
				Add(accounting.ReportSigned(master, line.Type, line.Amount))
		}
	}

	pl := &ProfitLoss{
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
	}
	pl.Income = buildSection(h, tax, models.MasterIncome, incomeTotals, nil)

	cogs := func(submenuName string) bool { return tax.COGSSubmenus[submenuName] }
	notCOGS := func(submenuName string) bool { return !tax.COGSSubmenus[submenuName] }
	pl.CostOfGoodsSold = buildSection(h, tax, models.MasterExpenses, expenseTotals, cogs)
	pl.OperatingExpenses = buildSection(h, tax, models.MasterExpenses, expenseTotals, notCOGS)

	pl.GrossProfit = pl.Income.Total.Sub(pl.CostOfGoodsSold.Total)
	pl.NetProfit = pl.GrossProfit.Sub(pl.OperatingExpenses.Total)
	if !pl.Income.Total.IsZero() {
		hundred := decimal.NewFromInt(100)
		pl.GrossMargin = pl.GrossProfit.Div(pl.Income.Total).Mul(hundred).Round(2)
		pl.NetMargin = pl.NetProfit.Div(pl.Income.Total).Mul(hundred).Round(2)
	}
	return pl
}

// buildSection renders the master's rows in canonical display order:
// each submenu in taxonomy order, the submenu's own directly-categorized
// total first, then its accounts, then master-level categorized lines
// last. The submenuFilter (nil = all) selects which submenus belong to the
// section; master-level lines belong to sections with no filter or a
// negative filter over the empty name.
func buildSection(h *coa.Hierarchy, tax coa.Taxonomy, master models.MasterName, totals map[models.Category]decimal.Decimal, submenuFilter func(string) bool) PLSection {
	section := PLSection{Total: decimal.Zero}
	add := func(name string, amount decimal.Decimal) {
		if amount.IsZero() {
			return
		}
		section.Rows = append(section.Rows, PLRow{Name: name, Amount: amount})
		section.Total = section.Total.Add(amount)
	}

	for _, sub := range h.SubmenusFor(master, tax) {
		if submenuFilter != nil && !submenuFilter(sub.Name) {
			continue
		}
		add(sub.Name, totals[models.Category{Type: models.CategorySubmenu, ID: sub.ID}])
		for _, acct := range h.AccountsForSubmenu(sub.ID) {
			add(acct.Name, totals[models.Category{Type: models.CategoryAccount, ID: acct.ID}])
		}
	}

	// Lines categorized at the master level have no submenu; they never
	// count as cost of goods sold.
	if submenuFilter == nil || submenuFilter("") {
		if m, ok := h.Master(master); ok {
			add("Uncategorized "+string(master), totals[models.Category{Type: models.CategoryMaster, ID: m.ID}])
		}
	}
	return section
}

// IncomeExpenseTotals runs the P&L aggregation over [start, end] and
// returns the income and expense totals. A zero start means unbounded
// history; the balance sheet uses both forms for retained earnings.
func IncomeExpenseTotals(h *coa.Hierarchy, lines []Line, start, end time.Time) (income, expenses decimal.Decimal) {
	income, expenses = decimal.Zero, decimal.Zero
	for _, line := range lines {
		if !onOrBefore(line.Date, end) {
			continue
		}
		if !start.IsZero() && line.Date.Before(start) {
			continue
		}
		master, ok := h.MasterOf(line.Category)
		if !ok {
			continue
		}
		switch master {
		case models.MasterIncome:
			income = income.Add(accounting.ReportSigned(master, line.Type, line.Amount))
		case models.MasterExpenses:
			expenses = expenses.Add(accounting.ReportSigned(master, line.Type, line.Amount))
		}
	}
	return income, expenses
}
