package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/jackc/pgx/v5/pgxpool"

	"koperasi-server/src/coa"
	db "koperasi-server/src/db/sql"
	"koperasi-server/src/reports"
	"koperasi-server/src/util"
)

func writeCSV(w http.ResponseWriter, filename string, rows interface{}) {
	out, err := gocsv.MarshalString(rows)
	if err != nil {
		log.Printf("ERROR: Failed to encode csv export: %v", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to encode export")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(out))
}

type transactionExportRow struct {
	ID           int64  `csv:"id"`
	Date         string `csv:"date"`
	Type         string `csv:"type"`
	Amount       string `csv:"amount"`
	CategoryName string `csv:"category"`
	Notes        string `csv:"notes"`
	Reviewed     bool   `csv:"reviewed"`
}

// ExportTransactions streams the account's transactions as CSV, split lines
// exported one row per split with the split's category.
func ExportTransactions(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := util.ParseID(r.URL.Query().Get("account_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "account_id query parameter is required")
			return
		}
		txs, err := db.GetAllAccountTransactions(r.Context(), pool, accountID)
		if err != nil {
			log.Printf("ERROR: Failed to load transactions for account %d: %v", accountID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to export transactions")
			return
		}
		h, err := loadHierarchy(r.Context(), pool)
		if err != nil {
			log.Printf("ERROR: Failed to load COA hierarchy: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to export transactions")
			return
		}

		rows := make([]transactionExportRow, 0, len(txs))
		for _, tx := range txs {
			row := transactionExportRow{
				ID:       tx.ID,
				Date:     tx.TransactionDate.Format("2006-01-02"),
				Type:     string(tx.Type),
				Amount:   tx.Amount.String(),
				Reviewed: tx.Reviewed,
			}
			if tx.Notes != nil {
				row.Notes = *tx.Notes
			}
			if !tx.IsSplit {
				if cat := tx.Category(); cat != nil {
					row.CategoryName = categoryName(h, *cat)
				}
				rows = append(rows, row)
				continue
			}
			for _, s := range tx.Splits {
				sr := row
				sr.Amount = s.Amount.String()
				sr.CategoryName = categoryName(h, s.Category())
				rows = append(rows, sr)
			}
		}
		writeCSV(w, fmt.Sprintf("transactions-%d.csv", accountID), rows)
	}
}

type plExportRow struct {
	Section string `csv:"section"`
	Name    string `csv:"name"`
	Amount  string `csv:"amount"`
}

// ExportProfitLoss re-runs the P&L builder for the requested window and
// flattens the sections into CSV rows.
func ExportProfitLoss(pool *pgxpool.Pool, tax coa.Taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := paramsFromQuery(r)
		start, end := p.window(time.Now())

		h, err := loadHierarchy(r.Context(), pool)
		if err != nil {
			log.Printf("ERROR: Failed to load COA hierarchy: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to export profit and loss")
			return
		}
		txs, err := loadLedgerThrough(r.Context(), pool, end)
		if err != nil {
			log.Printf("ERROR: Failed to load transactions: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to export profit and loss")
			return
		}

		report := reports.BuildProfitLoss(h, tax, reports.Flatten(txs), start, end)

		var rows []plExportRow
		appendSection := func(section string, s reports.PLSection) {
			for _, row := range s.Rows {
				rows = append(rows, plExportRow{Section: section, Name: row.Name, Amount: row.Amount.String()})
			}
			rows = append(rows, plExportRow{Section: section, Name: "Total", Amount: s.Total.String()})
		}
		appendSection("Income", report.Income)
		appendSection("Cost of Goods Sold", report.CostOfGoodsSold)
		appendSection("Operating Expenses", report.OperatingExpenses)
		rows = append(rows,
			plExportRow{Section: "Summary", Name: "Gross Profit", Amount: report.GrossProfit.String()},
			plExportRow{Section: "Summary", Name: "Net Profit", Amount: report.NetProfit.String()},
		)
		writeCSV(w, fmt.Sprintf("profit-loss-%s-%s.csv", report.StartDate, report.EndDate), rows)
	}
}

type bsExportRow struct {
	Section string `csv:"section"`
	Group   string `csv:"group"`
	Name    string `csv:"name"`
	Amount  string `csv:"amount"`
}

// ExportBalanceSheet re-runs the balance-sheet builder as of the requested
// date and flattens the groups into CSV rows.
func ExportBalanceSheet(pool *pgxpool.Pool, tax coa.Taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := paramsFromQuery(r)
		now := time.Now()
		asOf := reports.ParseDateOr(p.AsOf, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()))

		h, err := loadHierarchy(r.Context(), pool)
		if err != nil {
			log.Printf("ERROR: Failed to load COA hierarchy: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to export balance sheet")
			return
		}
		txs, err := loadLedgerThrough(r.Context(), pool, asOf)
		if err != nil {
			log.Printf("ERROR: Failed to load transactions: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to export balance sheet")
			return
		}

		report := reports.BuildBalanceSheet(h, tax, txs, asOf)

		var rows []bsExportRow
		appendGroups := func(section string, groups []reports.BSGroup) {
			for _, g := range groups {
				for _, row := range g.Rows {
					rows = append(rows, bsExportRow{Section: section, Group: g.Name, Name: row.Name, Amount: row.Amount.String()})
				}
				rows = append(rows, bsExportRow{Section: section, Group: g.Name, Name: "Total", Amount: g.Total.String()})
			}
		}
		appendGroups("Assets", report.AssetGroups)
		appendGroups("Liabilities", report.LiabilityGroups)
		for _, row := range report.EquityRows {
			rows = append(rows, bsExportRow{Section: "Equity", Name: row.Name, Amount: row.Amount.String()})
		}
		rows = append(rows,
			bsExportRow{Section: "Equity", Name: "Retained Earnings", Amount: report.RetainedEarnings.Total.String()},
			bsExportRow{Section: "Summary", Name: "Total Assets", Amount: report.TotalAssets.String()},
			bsExportRow{Section: "Summary", Name: "Total Liabilities", Amount: report.TotalLiabilities.String()},
			bsExportRow{Section: "Summary", Name: "Total Equity", Amount: report.TotalEquity.String()},
		)
		writeCSV(w, fmt.Sprintf("balance-sheet-%s.csv", report.AsOf), rows)
	}
}

type glExportRow struct {
	Account        string `csv:"account"`
	TransactionID  int64  `csv:"transaction_id"`
	Date           string `csv:"date"`
	Description    string `csv:"description"`
	Debit          string `csv:"debit"`
	Credit         string `csv:"credit"`
	RunningBalance string `csv:"running_balance"`
}

// ExportGeneralLedger re-runs the account-transactions builder and flattens
// every account's rows into one CSV.
func ExportGeneralLedger(pool *pgxpool.Pool, tax coa.Taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := paramsFromQuery(r)
		start, end := p.window(time.Now())

		h, err := loadHierarchy(r.Context(), pool)
		if err != nil {
			log.Printf("ERROR: Failed to load COA hierarchy: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to export general ledger")
			return
		}
		txs, err := loadLedgerThrough(r.Context(), pool, end)
		if err != nil {
			log.Printf("ERROR: Failed to load transactions: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to export general ledger")
			return
		}

		report := reports.BuildGeneralLedger(h, tax, txs, start, end, p.glFilter())

		var rows []glExportRow
		for _, acct := range report.Accounts {
			for _, row := range acct.Rows {
				rows = append(rows, glExportRow{
					Account:        acct.Name,
					TransactionID:  row.TransactionID,
					Date:           row.Date,
					Description:    row.Description,
					Debit:          row.Debit.String(),
					Credit:         row.Credit.String(),
					RunningBalance: row.RunningBalance.String(),
				})
			}
		}
		writeCSV(w, fmt.Sprintf("general-ledger-%s-%s.csv", report.StartDate, report.EndDate), rows)
	}
}
