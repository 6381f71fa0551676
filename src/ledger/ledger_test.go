package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koperasi-server/src/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func i64(v int64) *int64 { return &v }

func catType(c models.CategoryType) *models.CategoryType { return &c }

func validInput() Input {
	return Input{
		AccountID:       1,
		Type:            models.TypeDeposit,
		Amount:          dec("100"),
		TransactionDate: "2024-03-10",
		CategoryID:      i64(7),
		CategoryType:    catType(models.CategoryAccount),
	}
}

func TestValidate_OK(t *testing.T) {
	in := validInput()
	require.NoError(t, in.Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"missing account", func(in *Input) { in.AccountID = 0 }},
		{"bad type", func(in *Input) { in.Type = "Transfer" }},
		{"zero amount", func(in *Input) { in.Amount = decimal.Zero }},
		{"negative amount", func(in *Input) { in.Amount = dec("-5") }},
		{"missing date", func(in *Input) { in.TransactionDate = "" }},
		{"no categorization", func(in *Input) { in.CategoryID = nil }},
		{"bad category type", func(in *Input) { in.CategoryType = catType("folder") }},
		{"split with direct category", func(in *Input) {
			in.IsSplit = true
			in.Splits = []SplitInput{{Amount: dec("100"), CategoryID: 7, CategoryType: models.CategoryAccount}}
		}},
		{"split without lines", func(in *Input) {
			in.IsSplit = true
			in.CategoryID = nil
			in.CategoryType = nil
		}},
		{"split line with zero amount", func(in *Input) {
			in.IsSplit = true
			in.CategoryID = nil
			in.CategoryType = nil
			in.Splits = []SplitInput{{Amount: decimal.Zero, CategoryID: 7, CategoryType: models.CategoryAccount}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			err := in.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestValidate_SplitMode(t *testing.T) {
	in := validInput()
	in.CategoryID = nil
	in.CategoryType = nil
	in.IsSplit = true
	in.Splits = []SplitInput{
		{Amount: dec("60"), CategoryID: 7, CategoryType: models.CategoryAccount},
		{Amount: dec("40"), CategoryID: 8, CategoryType: models.CategorySubmenu},
	}
	require.NoError(t, in.Validate())
}

func TestBalanceDelta(t *testing.T) {
	assert.True(t, dec("100").Equal(BalanceDelta(models.TypeDeposit, dec("100"))))
	assert.True(t, dec("-100").Equal(BalanceDelta(models.TypeWithdrawal, dec("100"))))
	assert.True(t, dec("-100").Equal(ReverseDelta(models.TypeDeposit, dec("100"))))
	assert.True(t, dec("100").Equal(ReverseDelta(models.TypeWithdrawal, dec("100"))))
}

func TestUpdateIsIdempotentOnBalance(t *testing.T) {
	// Reverse-then-reapply with identical input must net to zero extra
	// delta, no matter how many times it replays.
	balance := dec("1000")
	apply := func(b decimal.Decimal) decimal.Decimal {
		b = b.Add(ReverseDelta(models.TypeWithdrawal, dec("250")))
		return b.Add(BalanceDelta(models.TypeWithdrawal, dec("250")))
	}
	once := apply(balance)
	twice := apply(once)
	assert.True(t, once.Equal(twice))
	assert.True(t, balance.Equal(twice))
}

func TestRecompute(t *testing.T) {
	txs := []models.Transaction{
		{Type: models.TypeDeposit, Amount: dec("1000")},
		{Type: models.TypeWithdrawal, Amount: dec("300")},
		{Type: models.TypeDeposit, Amount: dec("50.25")},
	}
	assert.True(t, dec("750.25").Equal(Recompute(txs)))
	assert.True(t, Recompute(nil).IsZero())
}

func TestParseRows(t *testing.T) {
	rows := []ImportRow{
		{Date: "2024-01-05", Amount: "1000", Description: "member deposit"},
		{Date: "05/01/2024", Amount: "-250.50", Description: "rent"},
		{Date: "2024-01-06", Amount: "75", Description: "fee", Type: "Withdrawal"},
		{Date: "not-a-date", Amount: "10", Description: "bad date"},
		{Date: "2024-01-07", Amount: "abc", Description: "bad amount"},
		{Date: "2024-01-08", Amount: "0", Description: "zero"},
		{Date: "2024-01-09", Amount: "10", Description: "bad type", Type: "Transfer"},
	}

	parsed, errs := ParseRows(rows)
	require.Len(t, parsed, 3)
	require.Len(t, errs, 4)

	assert.Equal(t, models.TypeDeposit, parsed[0].Type)
	assert.Equal(t, models.TypeWithdrawal, parsed[1].Type, "negative amount infers withdrawal")
	assert.True(t, dec("250.50").Equal(parsed[1].Amount), "amount stored absolute")
	assert.Equal(t, models.TypeWithdrawal, parsed[2].Type, "explicit type wins")

	// Parsed rows keep their source line so a row that later fails to save
	// can be reported against it.
	assert.Equal(t, 1, parsed[0].Line)
	assert.Equal(t, 2, parsed[1].Line)
	assert.Equal(t, 3, parsed[2].Line)

	assert.Equal(t, 4, errs[0].Line)
	assert.Equal(t, 5, errs[1].Line)
	assert.Equal(t, 6, errs[2].Line)
	assert.Equal(t, 7, errs[3].Line)
}

func TestReadCSV(t *testing.T) {
	body := "date,amount,description,type\n2024-01-05,1000,member deposit,\n2024-01-06,-40,stamp duty,\n"
	rows, err := ReadCSV([]byte(body))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "member deposit", rows[0].Description)

	parsed, errs := ParseRows(rows)
	assert.Len(t, parsed, 2)
	assert.Empty(t, errs)
}

func TestSumSplits(t *testing.T) {
	splits := []models.Split{
		{Amount: dec("60")},
		{Amount: dec("40")},
	}
	assert.True(t, dec("100").Equal(SumSplits(splits)))
}
