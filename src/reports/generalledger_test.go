package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koperasi-server/src/coa"
	"koperasi-server/src/models"
)

func findAccount(t *testing.T, gl *GeneralLedger, id int64) GLAccount {
	t.Helper()
	for _, a := range gl.Accounts {
		if a.AccountID == id {
			return a
		}
	}
	t.Fatalf("account %d not in ledger", id)
	return GLAccount{}
}

func TestGeneralLedger_DoubleSidedEntries(t *testing.T) {
	// One deposit categorized to income produces a debit on the bank
	// ledger and a credit on the income ledger; total debits equal total
	// credits across the report.
	h := fixtureHierarchy()
	txs := []models.Transaction{
		txn(acctBankBCA, models.TypeDeposit, "1000000", day(2024, 1, 5), acctCat(acctInterest)),
	}

	gl := BuildGeneralLedger(h, coa.DefaultTaxonomy(), txs, day(2024, 1, 1), day(2024, 1, 31), GLFilter{})

	bank := findAccount(t, gl, acctBankBCA)
	require.Len(t, bank.Rows, 1)
	assert.True(t, dec("1000000").Equal(bank.Rows[0].Debit))
	assert.True(t, dec("1000000").Equal(bank.EndingBalance))

	income := findAccount(t, gl, acctInterest)
	require.Len(t, income.Rows, 1)
	assert.True(t, dec("1000000").Equal(income.Rows[0].Credit))

	assert.True(t, gl.TotalDebit.Equal(gl.TotalCredit))
}

func TestGeneralLedger_StartingAndRunningBalance(t *testing.T) {
	h := fixtureHierarchy()
	txs := []models.Transaction{
		txn(acctBankBCA, models.TypeDeposit, "1000", day(2024, 1, 10), acctCat(acctInterest)),
		txn(acctBankBCA, models.TypeWithdrawal, "300", day(2024, 2, 5), acctCat(acctRent)),
		txn(acctBankBCA, models.TypeDeposit, "200", day(2024, 2, 20), acctCat(acctInterest)),
	}

	gl := BuildGeneralLedger(h, coa.DefaultTaxonomy(), txs, day(2024, 2, 1), day(2024, 2, 29),
		GLFilter{Category: &models.Category{Type: models.CategoryAccount, ID: acctBankBCA}})

	bank := findAccount(t, gl, acctBankBCA)
	assert.True(t, dec("1000").Equal(bank.StartingBalance), "January deposit lands before the window")
	require.Len(t, bank.Rows, 2)
	assert.True(t, dec("700").Equal(bank.Rows[0].RunningBalance))
	assert.True(t, dec("900").Equal(bank.Rows[1].RunningBalance))
	assert.True(t, dec("900").Equal(bank.EndingBalance))
	assert.True(t, dec("200").Equal(bank.TotalDebit))
	assert.True(t, dec("300").Equal(bank.TotalCredit))
}

func TestGeneralLedger_OmitsIdleAccountsUnlessFiltered(t *testing.T) {
	h := fixtureHierarchy()
	txs := []models.Transaction{
		txn(acctBankBCA, models.TypeDeposit, "100", day(2024, 1, 5), acctCat(acctInterest)),
	}

	all := BuildGeneralLedger(h, coa.DefaultTaxonomy(), txs, day(2024, 1, 1), day(2024, 1, 31), GLFilter{})
	for _, a := range all.Accounts {
		assert.NotEmpty(t, a.Rows, "unfiltered report must omit accounts without activity (%s)", a.Name)
	}

	filtered := BuildGeneralLedger(h, coa.DefaultTaxonomy(), txs, day(2024, 1, 1), day(2024, 1, 31),
		GLFilter{Category: &models.Category{Type: models.CategoryAccount, ID: acctRent}})
	require.Len(t, filtered.Accounts, 1, "explicitly filtered account appears even when idle")
	assert.Empty(t, filtered.Accounts[0].Rows)
}

func TestGeneralLedger_SubmenuFilter(t *testing.T) {
	h := fixtureHierarchy()
	txs := []models.Transaction{
		txn(acctBankBCA, models.TypeDeposit, "100", day(2024, 1, 5), acctCat(acctInterest)),
		txn(acctPettyCash, models.TypeWithdrawal, "40", day(2024, 1, 6), acctCat(acctRent)),
	}

	gl := BuildGeneralLedger(h, coa.DefaultTaxonomy(), txs, day(2024, 1, 1), day(2024, 1, 31),
		GLFilter{Category: &models.Category{Type: models.CategorySubmenu, ID: 10}})

	require.Len(t, gl.Accounts, 2, "both cash accounts under the submenu, nothing else")
	ids := []int64{gl.Accounts[0].AccountID, gl.Accounts[1].AccountID}
	assert.ElementsMatch(t, []int64{acctBankBCA, acctPettyCash}, ids)
}

func TestGeneralLedger_ContactFilter(t *testing.T) {
	h := fixtureHierarchy()
	withVendor := txn(acctBankBCA, models.TypeWithdrawal, "75", day(2024, 1, 8), acctCat(acctRent))
	withVendor.VendorID = i64(42)
	other := txn(acctBankBCA, models.TypeWithdrawal, "25", day(2024, 1, 9), acctCat(acctRent))

	gl := BuildGeneralLedger(h, coa.DefaultTaxonomy(), []models.Transaction{withVendor, other},
		day(2024, 1, 1), day(2024, 1, 31), GLFilter{VendorID: i64(42)})

	rent := findAccount(t, gl, acctRent)
	require.Len(t, rent.Rows, 1)
	assert.Equal(t, withVendor.ID, rent.Rows[0].TransactionID)
}

func TestGeneralLedger_SortsByDateThenCreation(t *testing.T) {
	h := fixtureHierarchy()
	// Same date: creation order breaks the tie.
	first := txn(acctBankBCA, models.TypeDeposit, "10", day(2024, 1, 5), acctCat(acctInterest))
	second := txn(acctBankBCA, models.TypeDeposit, "20", day(2024, 1, 5), acctCat(acctInterest))
	earlier := txn(acctBankBCA, models.TypeDeposit, "5", day(2024, 1, 2), acctCat(acctInterest))

	gl := BuildGeneralLedger(h, coa.DefaultTaxonomy(), []models.Transaction{second, earlier, first},
		day(2024, 1, 1), day(2024, 1, 31),
		GLFilter{Category: &models.Category{Type: models.CategoryAccount, ID: acctBankBCA}})

	bank := findAccount(t, gl, acctBankBCA)
	require.Len(t, bank.Rows, 3)
	assert.Equal(t, earlier.ID, bank.Rows[0].TransactionID)
	assert.Equal(t, first.ID, bank.Rows[1].TransactionID)
	assert.Equal(t, second.ID, bank.Rows[2].TransactionID)
}
