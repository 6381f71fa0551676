package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"koperasi-server/src/coa"
	"koperasi-server/src/config"
	"koperasi-server/src/handlers"
	"koperasi-server/src/middleware"
)

func NewRouter(pool *pgxpool.Pool, tax coa.Taxonomy, cfg config.Config) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middleware.ReadOnlyMiddleware(cfg.ReadOnly))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		// Chart of accounts
		r.Get("/masters", handlers.ListMasters(pool))
		r.Get("/masters/{master}/submenus", handlers.ListSubmenusByMaster(pool))
		r.Post("/submenus", handlers.LegacySubmenusByType(pool))

		// Accounts
		r.Get("/accounts", handlers.ListAccounts(pool, tax))
		r.Post("/accounts", handlers.CreateAccount(pool))
		r.Get("/accounts/{account_id}", handlers.GetAccount(pool))
		r.Put("/accounts/{account_id}", handlers.UpdateAccount(pool))
		r.Delete("/accounts/{account_id}", handlers.DeleteAccount(pool))
		r.Post("/accounts/{account_id}/recompute-balance", handlers.RecomputeAccountBalance(pool))

		// Transactions
		r.Get("/transactions", handlers.ListTransactions(pool))
		r.Post("/transactions", handlers.CreateTransaction(pool))
		r.Post("/transactions/import", handlers.ImportTransactions(pool))
		r.Get("/transactions/export", handlers.ExportTransactions(pool))
		r.Get("/transactions/{transaction_id}", handlers.GetTransaction(pool))
		r.Put("/transactions/{transaction_id}", handlers.UpdateTransaction(pool))
		r.Delete("/transactions/{transaction_id}", handlers.DeleteTransaction(pool))
		r.Post("/transactions/{transaction_id}/toggle-reviewed", handlers.ToggleReviewed(pool))

		// Reconciliation
		r.Get("/reconciliation/account/{account_id}", handlers.GetReconciliationState(pool))
		r.Post("/reconciliation/start", handlers.StartReconciliation(pool))
		r.Get("/reconciliation/{reconciliation_id}/process", handlers.GetReconciliationWorksheet(pool))
		r.Get("/reconciliation/{reconciliation_id}/view", handlers.ViewReconciliation(pool))
		r.Post("/reconciliation/{reconciliation_id}/toggle/{transaction_id}", handlers.ToggleMatch(pool))
		r.Post("/reconciliation/{reconciliation_id}/remove-items", handlers.RemoveReconciliationItems(pool))
		r.Put("/reconciliation/{reconciliation_id}/closing-balance", handlers.UpdateClosingBalance(pool))
		r.Post("/reconciliation/{reconciliation_id}/complete", handlers.CompleteReconciliation(pool))
		r.Delete("/reconciliation/{reconciliation_id}", handlers.CancelReconciliation(pool))

		// Reports
		r.Get("/reports/profit-loss", handlers.ProfitLossReport(pool, tax))
		r.Post("/reports/profit-loss/filter", handlers.ProfitLossReportFiltered(pool, tax))
		r.Get("/reports/profit-loss/export", handlers.ExportProfitLoss(pool, tax))
		r.Get("/reports/balance-sheet", handlers.BalanceSheetReport(pool, tax))
		r.Post("/reports/balance-sheet/filter", handlers.BalanceSheetReportFiltered(pool, tax))
		r.Get("/reports/balance-sheet/export", handlers.ExportBalanceSheet(pool, tax))
		r.Get("/reports/account-transactions", handlers.GeneralLedgerReport(pool, tax))
		r.Post("/reports/account-transactions/filter", handlers.GeneralLedgerReportFiltered(pool, tax))
		r.Get("/reports/account-transactions/export", handlers.ExportGeneralLedger(pool, tax))
		r.Get("/reports/split-allocation", handlers.SplitAllocationReport(pool))
	})

	return r
}
