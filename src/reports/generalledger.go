package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"koperasi-server/src/accounting"
	"koperasi-server/src/coa"
	"koperasi-server/src/models"
)

// GLFilter narrows the general ledger to the accounts under one category
// (nil = every account) and optionally to one contact.
type GLFilter struct {
	Category   *models.Category
	VendorID   *int64
	CustomerID *int64
}

// GLRow is one ledger line with its running balance.
type GLRow struct {
	TransactionID  int64           `json:"transaction_id"`
	Date           string          `json:"date"`
	Description    string          `json:"description"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// GLAccount is one account's ledger for the period.
type GLAccount struct {
	AccountID       int64           `json:"account_id"`
	Code            *string         `json:"code"`
	Name            string          `json:"name"`
	MasterName      models.MasterName `json:"master_name"`
	SubmenuName     string          `json:"submenu_name"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	Rows            []GLRow         `json:"rows"`
	TotalDebit      decimal.Decimal `json:"total_debit"`
	TotalCredit     decimal.Decimal `json:"total_credit"`
	EndingBalance   decimal.Decimal `json:"ending_balance"`
}

// GeneralLedger is the account-transactions report payload.
type GeneralLedger struct {
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Accounts    []GLAccount     `json:"accounts"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
}

// glEntry is one contribution to an account's ledger before rendering:
// either the transaction's direct movement through its own bank/cash
// account or a line categorized to the account.
type glEntry struct {
	txID      int64
	date      time.Time
	createdAt time.Time
	notes     *string
	entry     accounting.Entry
}

// BuildGeneralLedger renders each passing account's ledger: a starting
// balance from everything strictly before the window, then rows sorted by
// date, creation time and id with debit/credit/running balance. With no
// explicit account filter, accounts without rows in the window are
// omitted; an explicitly filtered account always appears.
func BuildGeneralLedger(h *coa.Hierarchy, tax coa.Taxonomy, txs []models.Transaction, start, end time.Time, filter GLFilter) *GeneralLedger {
	wanted := make(map[int64]bool)
	if filter.Category != nil {
		for _, id := range h.AccountsUnder(*filter.Category) {
			wanted[id] = true
		}
	}
	include := func(accountID int64) bool {
		return filter.Category == nil || wanted[accountID]
	}

	matchContact := func(vendorID, customerID *int64) bool {
		if filter.VendorID != nil && (vendorID == nil || *vendorID != *filter.VendorID) {
			return false
		}
		if filter.CustomerID != nil && (customerID == nil || *customerID != *filter.CustomerID) {
			return false
		}
		return true
	}

	entries := make(map[int64][]glEntry)

	// Direct movement through the transaction's own account.
	for _, tx := range txs {
		if !include(tx.AccountID) || !matchContact(tx.VendorID, tx.CustomerID) {
			continue
		}
		acct, ok := h.Account(tx.AccountID)
		if !ok {
			continue
		}
		entries[tx.AccountID] = append(entries[tx.AccountID], glEntry{
			txID:      tx.ID,
			date:      tx.TransactionDate,
			createdAt: tx.CreatedAt,
			notes:     tx.Notes,
			entry:     accounting.DebitCredit(acct.MasterName, tx.Type, tx.Amount),
		})
	}

	// The categorized counter-side: account-level lines land on the
	// category account's ledger.
	for _, line := range Flatten(txs) {
		if line.Category.Type != models.CategoryAccount {
			continue
		}
		if !include(line.Category.ID) || !matchContact(line.VendorID, line.CustomerID) {
			continue
		}
		acct, ok := h.Account(line.Category.ID)
		if !ok {
			continue
		}
		entries[line.Category.ID] = append(entries[line.Category.ID], glEntry{
			txID:      line.TransactionID,
			date:      line.Date,
			createdAt: line.CreatedAt,
			notes:     line.Notes,
			entry:     accounting.DebitCredit(acct.MasterName, line.Type, line.Amount),
		})
	}

	gl := &GeneralLedger{
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
	}

	for _, master := range models.AllMasters {
		for _, sub := range h.SubmenusFor(master, tax) {
			for _, acct := range h.AccountsForSubmenu(sub.ID) {
				if !include(acct.ID) {
					continue
				}
				la := buildAccountLedger(acct, entries[acct.ID], start, end)
				// Explicitly filtered accounts always render, even empty.
				if filter.Category == nil && len(la.Rows) == 0 {
					continue
				}
				gl.Accounts = append(gl.Accounts, la)
				gl.TotalDebit = gl.TotalDebit.Add(la.TotalDebit)
				gl.TotalCredit = gl.TotalCredit.Add(la.TotalCredit)
			}
		}
	}
	return gl
}

func buildAccountLedger(acct *models.Account, all []glEntry, start, end time.Time) GLAccount {
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].date.Equal(all[j].date) {
			return all[i].date.Before(all[j].date)
		}
		if !all[i].createdAt.Equal(all[j].createdAt) {
			return all[i].createdAt.Before(all[j].createdAt)
		}
		return all[i].txID < all[j].txID
	})

	la := GLAccount{
		AccountID:   acct.ID,
		Code:        acct.Code,
		Name:        acct.Name,
		MasterName:  acct.MasterName,
		SubmenuName: acct.SubmenuName,
	}

	for _, e := range all {
		if e.date.Before(start) {
			la.StartingBalance = la.StartingBalance.Add(e.entry.Signed)
		}
	}

	running := la.StartingBalance
	for _, e := range all {
		if !inRange(e.date, start, end) {
			continue
		}
		running = running.Add(e.entry.Signed)
		row := GLRow{
			TransactionID:  e.txID,
			Date:           e.date.Format(dateLayout),
			Debit:          e.entry.Debit,
			Credit:         e.entry.Credit,
			RunningBalance: running,
		}
		if e.notes != nil {
			row.Description = *e.notes
		}
		la.Rows = append(la.Rows, row)
		la.TotalDebit = la.TotalDebit.Add(e.entry.Debit)
		la.TotalCredit = la.TotalCredit.Add(e.entry.Credit)
	}
	la.EndingBalance = running
	return la
}
