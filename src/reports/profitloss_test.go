package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koperasi-server/src/coa"
	"koperasi-server/src/models"
)

func TestProfitLoss_OfficeRentScenario(t *testing.T) {
	// A withdrawal of 500,000 categorized to Office Rent on 2024-03-10:
	// March operating expenses total 500,000, net profit -500,000.
	h := fixtureHierarchy()
	txs := []models.Transaction{
		txn(acctBankBCA, models.TypeWithdrawal, "500000", day(2024, 3, 10), acctCat(acctRent)),
	}

	pl := BuildProfitLoss(h, coa.DefaultTaxonomy(), Flatten(txs), day(2024, 3, 1), day(2024, 3, 31))

	assert.True(t, pl.Income.Total.IsZero())
	assert.True(t, dec("500000").Equal(pl.OperatingExpenses.Total))
	require.Len(t, pl.OperatingExpenses.Rows, 1)
	assert.Equal(t, "Office Rent", pl.OperatingExpenses.Rows[0].Name)
	assert.True(t, dec("-500000").Equal(pl.NetProfit))
	assert.True(t, pl.NetMargin.IsZero(), "no income means zero margin, not an error")
}

func TestProfitLoss_RoundTripIdentities(t *testing.T) {
	h := fixtureHierarchy()
	txs := []models.Transaction{
		txn(acctBankBCA, models.TypeDeposit, "2000000", day(2024, 3, 5), acctCat(acctInterest)),
		txn(acctBankBCA, models.TypeWithdrawal, "600000", day(2024, 3, 12), acctCat(acctPurchases)),
		txn(acctBankBCA, models.TypeWithdrawal, "300000", day(2024, 3, 20), acctCat(acctRent)),
	}

	pl := BuildProfitLoss(h, coa.DefaultTaxonomy(), Flatten(txs), day(2024, 3, 1), day(2024, 3, 31))

	assert.True(t, dec("2000000").Equal(pl.Income.Total))
	assert.True(t, dec("600000").Equal(pl.CostOfGoodsSold.Total), "Goods Purchases sits in the COGS submenu")
	assert.True(t, dec("300000").Equal(pl.OperatingExpenses.Total))
	assert.True(t, pl.GrossProfit.Equal(pl.Income.Total.Sub(pl.CostOfGoodsSold.Total)))
	assert.True(t, pl.NetProfit.Equal(pl.GrossProfit.Sub(pl.OperatingExpenses.Total)))
	assert.True(t, dec("70").Equal(pl.GrossMargin))
	assert.True(t, dec("55").Equal(pl.NetMargin))
}

func TestProfitLoss_RangeExcludesOutsideDates(t *testing.T) {
	h := fixtureHierarchy()
	txs := []models.Transaction{
		txn(acctBankBCA, models.TypeDeposit, "100", day(2024, 2, 28), acctCat(acctInterest)),
		txn(acctBankBCA, models.TypeDeposit, "250", day(2024, 3, 15), acctCat(acctInterest)),
		txn(acctBankBCA, models.TypeDeposit, "999", day(2024, 4, 1), acctCat(acctInterest)),
	}

	pl := BuildProfitLoss(h, coa.DefaultTaxonomy(), Flatten(txs), day(2024, 3, 1), day(2024, 3, 31))
	assert.True(t, dec("250").Equal(pl.Income.Total))
}

func TestProfitLoss_IncomeRefundReducesTotal(t *testing.T) {
	// A withdrawal against an income category is a refund: it reduces the
	// reported income magnitude.
	h := fixtureHierarchy()
	txs := []models.Transaction{
		txn(acctBankBCA, models.TypeDeposit, "1000", day(2024, 3, 5), acctCat(acctInterest)),
		txn(acctBankBCA, models.TypeWithdrawal, "200", day(2024, 3, 6), acctCat(acctInterest)),
	}

	pl := BuildProfitLoss(h, coa.DefaultTaxonomy(), Flatten(txs), day(2024, 3, 1), day(2024, 3, 31))
	assert.True(t, dec("800").Equal(pl.Income.Total))
}

func TestProfitLoss_SplitLinesContributePerSplit(t *testing.T) {
	h := fixtureHierarchy()
	tx := models.Transaction{
		ID:              900,
		AccountID:       acctBankBCA,
		Type:            models.TypeWithdrawal,
		Amount:          dec("900"),
		TransactionDate: day(2024, 3, 8),
		IsSplit:         true,
		Splits: []models.Split{
			{ID: 1, TransactionID: 900, Amount: dec("600"), CategoryID: acctPurchases, CategoryType: models.CategoryAccount},
			{ID: 2, TransactionID: 900, Amount: dec("300"), CategoryID: acctRent, CategoryType: models.CategoryAccount},
		},
	}

	pl := BuildProfitLoss(h, coa.DefaultTaxonomy(), Flatten([]models.Transaction{tx}), day(2024, 3, 1), day(2024, 3, 31))
	assert.True(t, dec("600").Equal(pl.CostOfGoodsSold.Total))
	assert.True(t, dec("300").Equal(pl.OperatingExpenses.Total))
}

func TestProfitLoss_SubmenuLevelCategoryAggregates(t *testing.T) {
	h := fixtureHierarchy()
	txs := []models.Transaction{
		txn(acctBankBCA, models.TypeWithdrawal, "120", day(2024, 3, 3),
			models.Category{Type: models.CategorySubmenu, ID: 50}), // Operating Expense submenu
	}

	pl := BuildProfitLoss(h, coa.DefaultTaxonomy(), Flatten(txs), day(2024, 3, 1), day(2024, 3, 31))
	assert.True(t, dec("120").Equal(pl.OperatingExpenses.Total))
	require.Len(t, pl.OperatingExpenses.Rows, 1)
	assert.Equal(t, "Operating Expense", pl.OperatingExpenses.Rows[0].Name)
}

func TestComparisonBounds(t *testing.T) {
	start, end := day(2024, 3, 1), day(2024, 3, 31)

	s, e, ok := ComparisonBounds(start, end, ComparePreviousYear, time.Time{}, time.Time{})
	require.True(t, ok)
	assert.Equal(t, day(2023, 3, 1), s)
	assert.Equal(t, day(2023, 3, 31), e)

	s, e, ok = ComparisonBounds(start, end, ComparePreviousPeriod, time.Time{}, time.Time{})
	require.True(t, ok)
	// March is 31 days, so the preceding equal-length window is Jan 30
	// through Feb 29.
	assert.Equal(t, day(2024, 1, 30), s, "equal-length window immediately preceding")
	assert.Equal(t, day(2024, 2, 29), e)

	s, e, ok = ComparisonBounds(start, end, CompareCustom, day(2022, 1, 1), day(2022, 6, 30))
	require.True(t, ok)
	assert.Equal(t, day(2022, 1, 1), s)
	assert.Equal(t, day(2022, 6, 30), e)

	_, _, ok = ComparisonBounds(start, end, CompareNone, time.Time{}, time.Time{})
	assert.False(t, ok)
}

func TestParseDateOr(t *testing.T) {
	fallback := day(2024, 5, 1)
	assert.Equal(t, day(2024, 3, 10), ParseDateOr("2024-03-10", fallback))
	assert.Equal(t, fallback, ParseDateOr("", fallback))
	assert.Equal(t, fallback, ParseDateOr("10/03/2024", fallback))
}

func TestCheckSplitAllocation(t *testing.T) {
	under := models.Transaction{
		ID: 1, Amount: dec("500"), IsSplit: true,
		Splits: []models.Split{{Amount: dec("300")}, {Amount: dec("150")}},
	}
	exact := models.Transaction{
		ID: 2, Amount: dec("100"), IsSplit: true,
		Splits: []models.Split{{Amount: dec("100")}},
	}
	plain := models.Transaction{ID: 3, Amount: dec("42")}

	diags := CheckSplitAllocation([]models.Transaction{under, exact, plain})
	require.Len(t, diags, 1)
	assert.Equal(t, int64(1), diags[0].TransactionID)
	assert.True(t, dec("50").Equal(diags[0].RemainingUnallocated))
}
