package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"koperasi-server/src/coa"
	"koperasi-server/src/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func i64(v int64) *int64 { return &v }

// Fixture account ids, named for readability in the tests.
const (
	acctBankBCA   int64 = 100
	acctPettyCash int64 = 101
	acctInventory int64 = 102
	acctSavings   int64 = 200
	acctCapital   int64 = 300
	acctInterest  int64 = 400
	acctRent      int64 = 500
	acctPurchases int64 = 501
)

func fixtureHierarchy() *coa.Hierarchy {
	masters := []models.Master{
		{ID: 1, Name: models.MasterAssets, Active: true},
		{ID: 2, Name: models.MasterLiabilities, Active: true},
		{ID: 3, Name: models.MasterEquity, Active: true},
		{ID: 4, Name: models.MasterIncome, Active: true},
		{ID: 5, Name: models.MasterExpenses, Active: true},
	}
	submenus := []models.Submenu{
		{ID: 10, MasterID: 1, Name: "Cash and Bank", Active: true},
		{ID: 11, MasterID: 1, Name: "Other Current Assets", Active: true},
		{ID: 20, MasterID: 2, Name: "Member Savings", Active: true},
		{ID: 21, MasterID: 2, Name: "Long-term Liabilities", Active: true},
		{ID: 30, MasterID: 3, Name: "Member Equity", Active: true},
		{ID: 40, MasterID: 4, Name: "Interest Income", Active: true},
		{ID: 50, MasterID: 5, Name: "Operating Expense", Active: true},
		{ID: 51, MasterID: 5, Name: "Cost of Goods Sold", Active: true},
	}
	accounts := []models.Account{
		{ID: acctBankBCA, SubmenuID: 10, Code: strPtr("1001"), Name: "Bank BCA", Active: true},
		{ID: acctPettyCash, SubmenuID: 10, Code: strPtr("1000"), Name: "Petty Cash", Active: true},
		{ID: acctInventory, SubmenuID: 11, Code: strPtr("1100"), Name: "Inventory", Active: true},
		{ID: acctSavings, SubmenuID: 20, Code: strPtr("2000"), Name: "Voluntary Savings", Active: true},
		{ID: acctCapital, SubmenuID: 30, Code: strPtr("3000"), Name: "Member Capital", Active: true},
		{ID: acctInterest, SubmenuID: 40, Code: strPtr("4000"), Name: "Loan Interest", Active: true},
		{ID: acctRent, SubmenuID: 50, Code: strPtr("5001"), Name: "Office Rent", Active: true},
		{ID: acctPurchases, SubmenuID: 51, Code: strPtr("5000"), Name: "Goods Purchases", Active: true},
	}
	return coa.Build(masters, submenus, accounts)
}

func acctCat(id int64) models.Category {
	return models.Category{Type: models.CategoryAccount, ID: id}
}

var txSeq int64

// txn builds a simple categorized transaction; CreatedAt follows call
// order so display tie-breaks are deterministic.
func txn(accountID int64, txType models.TransactionType, amount string, date time.Time, cat models.Category) models.Transaction {
	txSeq++
	catType := cat.Type
	return models.Transaction{
		ID:              txSeq,
		AccountID:       accountID,
		Type:            txType,
		Amount:          dec(amount),
		TransactionDate: date,
		CategoryID:      i64(cat.ID),
		CategoryType:    &catType,
		CreatedAt:       day(2024, 1, 1).Add(time.Duration(txSeq) * time.Minute),
	}
}
