// Package accounting holds the pure sign/balance functions shared by the
// ledger, the reconciliation engine, and every report builder. Each report
// type uses exactly one of these functions for all of its aggregation so
// signs cannot drift within a computation.
package accounting

import (
	"koperasi-server/src/models"

	"github.com/shopspring/decimal"
)

// IsDebitNormal reports whether the master's normal balance is on the debit
// side. Assets and Expenses grow with debits; Liabilities, Income and Equity
// grow with credits.
func IsDebitNormal(master models.MasterName) bool {
	return master == models.MasterAssets || master == models.MasterExpenses
}

// SignedBalance returns +amount when the transaction moves the account's
// normal balance up, -amount when it moves it down. This is the convention
// used by the balance sheet and the general ledger.
func SignedBalance(master models.MasterName, txType models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	if IsDebitNormal(master) {
		if txType == models.TypeDeposit {
			return amount
		}
		return amount.Neg()
	}
	if txType == models.TypeDeposit {
		return amount.Neg()
	}
	return amount
}

// ReportSigned is the profit-and-loss variant of SignedBalance: Income and
// Expense totals come out as positive magnitudes under normal usage
// (Income: Deposit +, Withdrawal -; Expenses: Withdrawal +, Deposit -).
// Other masters behave exactly like SignedBalance.
func ReportSigned(master models.MasterName, txType models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch master {
	case models.MasterIncome:
		if txType == models.TypeDeposit {
			return amount
		}
		return amount.Neg()
	case models.MasterExpenses:
		if txType == models.TypeWithdrawal {
			return amount
		}
		return amount.Neg()
	}
	return SignedBalance(master, txType, amount)
}

// Entry classifies one ledger line for general-ledger display. Exactly one
// of Debit/Credit is nonzero and they sum to the line amount.
type Entry struct {
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
	Signed decimal.Decimal `json:"signed"`
}

// DebitCredit classifies an amount as a debit or credit entry. The line is
// a debit iff it increases a debit-normal account or decreases a
// credit-normal one.
func DebitCredit(master models.MasterName, txType models.TransactionType, amount decimal.Decimal) Entry {
	debit := (IsDebitNormal(master) && txType == models.TypeDeposit) ||
		(!IsDebitNormal(master) && txType == models.TypeWithdrawal)
	e := Entry{Signed: SignedBalance(master, txType, amount)}
	if debit {
		e.Debit = amount
	} else {
		e.Credit = amount
	}
	return e
}
