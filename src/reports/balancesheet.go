package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"koperasi-server/src/accounting"
	"koperasi-server/src/coa"
	"koperasi-server/src/ledger"
	"koperasi-server/src/models"
)

// Balance-sheet group names. Assets bucket three ways, liabilities two.
const (
	GroupCashAndBank         = "Cash and Bank"
	GroupOtherCurrentAssets  = "Other Current Assets"
	GroupLongTermAssets      = "Long-term Assets"
	GroupCurrentLiabilities  = "Current Liabilities"
	GroupLongTermLiabilities = "Long-term Liabilities"
)

// BSRow is one named balance-sheet line.
type BSRow struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// BSGroup is a bucket of rows with a subtotal.
type BSGroup struct {
	Name  string          `json:"name"`
	Rows  []BSRow         `json:"rows"`
	Total decimal.Decimal `json:"total"`
}

// RetainedEarnings is the computed equity component: all-time income minus
// all-time expenses up to the as-of date, split for display into prior
// calendar years and the current year through the as-of date.
type RetainedEarnings struct {
	PriorYears    decimal.Decimal `json:"prior_years_profit"`
	CurrentPeriod decimal.Decimal `json:"current_period_profit"`
	Total         decimal.Decimal `json:"total"`
}

// BalanceSheet is the full payload as of a date. IsBalanced is a derived
// diagnostic: real data may legitimately be out of balance and the report
// surfaces that instead of failing.
type BalanceSheet struct {
	AsOf             string           `json:"as_of"`
	AssetGroups      []BSGroup        `json:"assets"`
	TotalAssets      decimal.Decimal  `json:"total_assets"`
	LiabilityGroups  []BSGroup        `json:"liabilities"`
	TotalLiabilities decimal.Decimal  `json:"total_liabilities"`
	EquityRows       []BSRow          `json:"equity"`
	RetainedEarnings RetainedEarnings `json:"retained_earnings"`
	TotalEquity      decimal.Decimal  `json:"total_equity"`
	IsBalanced       bool             `json:"is_balanced"`
}

var balanceTolerance = decimal.NewFromFloat(0.01)

// BuildBalanceSheet computes account balances as of a date. Cash/bank
// asset accounts are valued by their own direct transaction flow; every
// other account is valued by what was categorized to it. Liabilities
// display as magnitudes; equity combines explicit equity accounts with
// computed retained earnings.
func BuildBalanceSheet(h *coa.Hierarchy, tax coa.Taxonomy, txs []models.Transaction, asOf time.Time) *BalanceSheet {
	lines := Flatten(txs)

	// Direct money flow through each bank/cash account.
	directFlow := make(map[int64]decimal.Decimal)
	for _, tx := range txs {
		if !onOrBefore(tx.TransactionDate, asOf) {
			continue
		}
		directFlow[tx.AccountID] = directFlow[tx.AccountID].Add(ledger.BalanceDelta(tx.Type, tx.Amount))
	}

	// Category attribution: account-level lines accrue to their account;
	// submenu- and master-level lines stay at that grouping level and
	// surface as unallocated rows in the matching bucket.
	attributed := make(map[int64]decimal.Decimal)          // by account id
	submenuAttributed := make(map[int64]decimal.Decimal)   // by submenu id
	masterAttributed := make(map[int64]decimal.Decimal)    // by master id
	for _, line := range lines {
		if !onOrBefore(line.Date, asOf) {
			continue
		}
		master, ok := h.MasterOf(line.Category)
		if !ok {
			continue
		}
		signed := accounting.SignedBalance(master, line.Type, line.Amount)
		switch line.Category.Type {
		case models.CategoryAccount:
			attributed[line.Category.ID] = attributed[line.Category.ID].Add(signed)
		case models.CategorySubmenu:
			submenuAttributed[line.Category.ID] = submenuAttributed[line.Category.ID].Add(signed)
		case models.CategoryMaster:
			masterAttributed[line.Category.ID] = masterAttributed[line.Category.ID].Add(signed)
		}
	}

	bs := &BalanceSheet{AsOf: asOf.Format(dateLayout)}
	bs.buildAssets(h, tax, directFlow, attributed, submenuAttributed, masterAttributed)
	bs.buildLiabilities(h, tax, attributed, submenuAttributed, masterAttributed)
	bs.buildEquity(h, tax, lines, attributed, submenuAttributed, masterAttributed, asOf)

	bs.IsBalanced = bs.TotalAssets.
		Sub(bs.TotalLiabilities.Add(bs.TotalEquity)).
		Abs().
		LessThan(balanceTolerance)
	return bs
}

func (bs *BalanceSheet) buildAssets(h *coa.Hierarchy, tax coa.Taxonomy, directFlow, attributed, submenuAttributed, masterAttributed map[int64]decimal.Decimal) {
	groups := map[string]*BSGroup{
		GroupCashAndBank:        {Name: GroupCashAndBank},
		GroupOtherCurrentAssets: {Name: GroupOtherCurrentAssets},
		GroupLongTermAssets:     {Name: GroupLongTermAssets},
	}
	bucketOf := func(submenuName string) *BSGroup {
		switch {
		case tax.CashBankSubmenus[submenuName]:
			return groups[GroupCashAndBank]
		case tax.LongTermAssetSubmenus[submenuName]:
			return groups[GroupLongTermAssets]
		}
		return groups[GroupOtherCurrentAssets]
	}

	for _, sub := range h.SubmenusFor(models.MasterAssets, tax) {
		group := bucketOf(sub.Name)
		cash := tax.CashBankSubmenus[sub.Name]
		for _, acct := range h.AccountsForSubmenu(sub.ID) {
			amount := attributed[acct.ID]
			if cash {
				amount = directFlow[acct.ID]
			}
			addRow(group, acct.Name, amount)
		}
		// Cash submenus are valued by direct flow; an unallocated row
		// would count the same money twice.
		if !cash {
			addRow(group, sub.Name+" (unallocated)", submenuAttributed[sub.ID])
		}
	}
	if m, ok := h.Master(models.MasterAssets); ok {
		addRow(groups[GroupOtherCurrentAssets], "Unallocated Assets", masterAttributed[m.ID])
	}

	for _, name := range []string{GroupCashAndBank, GroupOtherCurrentAssets, GroupLongTermAssets} {
		bs.AssetGroups = append(bs.AssetGroups, *groups[name])
		bs.TotalAssets = bs.TotalAssets.Add(groups[name].Total)
	}
}

func (bs *BalanceSheet) buildLiabilities(h *coa.Hierarchy, tax coa.Taxonomy, attributed, submenuAttributed, masterAttributed map[int64]decimal.Decimal) {
	groups := map[string]*BSGroup{
		GroupCurrentLiabilities:  {Name: GroupCurrentLiabilities},
		GroupLongTermLiabilities: {Name: GroupLongTermLiabilities},
	}
	bucketOf := func(submenuName string) *BSGroup {
		if tax.LongTermLiabilitySubmenus[submenuName] {
			return groups[GroupLongTermLiabilities]
		}
		return groups[GroupCurrentLiabilities]
	}

	for _, sub := range h.SubmenusFor(models.MasterLiabilities, tax) {
		group := bucketOf(sub.Name)
		for _, acct := range h.AccountsForSubmenu(sub.ID) {
			addRow(group, acct.Name, attributed[acct.ID].Abs())
		}
		addRow(group, sub.Name+" (unallocated)", submenuAttributed[sub.ID].Abs())
	}
	if m, ok := h.Master(models.MasterLiabilities); ok {
		addRow(groups[GroupCurrentLiabilities], "Unallocated Liabilities", masterAttributed[m.ID].Abs())
	}

	for _, name := range []string{GroupCurrentLiabilities, GroupLongTermLiabilities} {
		bs.LiabilityGroups = append(bs.LiabilityGroups, *groups[name])
		bs.TotalLiabilities = bs.TotalLiabilities.Add(groups[name].Total)
	}
}

func (bs *BalanceSheet) buildEquity(h *coa.Hierarchy, tax coa.Taxonomy, lines []Line, attributed, submenuAttributed, masterAttributed map[int64]decimal.Decimal, asOf time.Time) {
	addEquity := func(name string, amount decimal.Decimal) {
		if amount.IsZero() {
			return
		}
		bs.EquityRows = append(bs.EquityRows, BSRow{Name: name, Amount: amount})
		bs.TotalEquity = bs.TotalEquity.Add(amount)
	}

	// Explicit equity accounts display credit-positive: a deposit
	// categorized to equity grows it.
	for _, sub := range h.SubmenusFor(models.MasterEquity, tax) {
		for _, acct := range h.AccountsForSubmenu(sub.ID) {
			addEquity(acct.Name, attributed[acct.ID].Neg())
		}
		addEquity(sub.Name+" (unallocated)", submenuAttributed[sub.ID].Neg())
	}
	if m, ok := h.Master(models.MasterEquity); ok {
		addEquity("Unallocated Equity", masterAttributed[m.ID].Neg())
	}

	allIncome, allExpenses := IncomeExpenseTotals(h, lines, time.Time{}, asOf)
	yearStart := time.Date(asOf.Year(), time.January, 1, 0, 0, 0, 0, asOf.Location())
	curIncome, curExpenses := IncomeExpenseTotals(h, lines, yearStart, asOf)

	re := RetainedEarnings{Total: allIncome.Sub(allExpenses)}
	re.CurrentPeriod = curIncome.Sub(curExpenses)
	re.PriorYears = re.Total.Sub(re.CurrentPeriod)
	bs.RetainedEarnings = re
	bs.TotalEquity = bs.TotalEquity.Add(re.Total)
}

func addRow(group *BSGroup, name string, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	group.Rows = append(group.Rows, BSRow{Name: name, Amount: amount})
	group.Total = group.Total.Add(amount)
}
