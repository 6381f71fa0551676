package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	cache "koperasi-server/src/db"
	db "koperasi-server/src/db/sql"
	"koperasi-server/src/ledger"
	"koperasi-server/src/models"
	"koperasi-server/src/util"
)

// transactionView enriches a transaction with resolved category names and
// the reconciliation state for list rendering.
type transactionView struct {
	models.Transaction
	CategoryName string `json:"category_name,omitempty"`
	Reconciled   bool   `json:"reconciled"`
}

func ListTransactions(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var accountID *int64
		if raw := r.URL.Query().Get("account_id"); raw != "" {
			id, err := util.ParseID(raw)
			if err != nil {
				util.WriteError(w, http.StatusBadRequest, "invalid account id")
				return
			}
			accountID = &id
		}

		cacheKey := "transactions:all"
		if accountID != nil {
			cacheKey = fmt.Sprintf("transactions:account:%d", *accountID)
		}
		var txs []models.Transaction
		if cached, found := cache.Cache.Get(cacheKey); found {
			if v, ok := cached.([]models.Transaction); ok {
				txs = v
			}
		}
		if txs == nil {
			var err error
			txs, err = db.GetTransactions(r.Context(), pool, accountID)
			if err != nil {
				log.Printf("ERROR: Failed to list transactions: %v", err)
				util.WriteError(w, http.StatusInternalServerError, "failed to list transactions")
				return
			}
			cache.SetTransactionCache(cacheKey, txs)
		}
		h, err := loadHierarchy(r.Context(), pool)
		if err != nil {
			log.Printf("ERROR: Failed to load COA hierarchy: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to list transactions")
			return
		}

		reconciled := map[int64]bool{}
		if accountID != nil {
			reconciled, err = db.GetReconciledTransactionIDs(r.Context(), pool, *accountID)
			if err != nil {
				log.Printf("ERROR: Failed to load reconciled transactions: %v", err)
				util.WriteError(w, http.StatusInternalServerError, "failed to list transactions")
				return
			}
		}

		views := make([]transactionView, 0, len(txs))
		for _, tx := range txs {
			v := transactionView{Transaction: tx, Reconciled: reconciled[tx.ID]}
			if cat := tx.Category(); cat != nil {
				v.CategoryName = categoryName(h, *cat)
			}
			views = append(views, v)
		}
		util.WriteJSON(w, http.StatusOK, "transactions", views)
	}
}

func GetTransaction(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := util.ParseID(chi.URLParam(r, "transaction_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid transaction id")
			return
		}
		tx, err := db.GetTransactionByID(r.Context(), pool, id)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "transaction not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to get transaction %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to get transaction")
			return
		}
		util.WriteJSON(w, http.StatusOK, "transaction", tx)
	}
}

// CreateTransaction validates the input, persists the transaction and its
// splits, and applies the balance effect to the affected account.
func CreateTransaction(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in ledger.Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}
		if err := in.Validate(); err != nil {
			util.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		date, err := util.ParseDate(in.TransactionDate)
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		tx, err := pool.Begin(r.Context())
		if err != nil {
			log.Printf("ERROR: Failed to begin transaction: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to create transaction")
			return
		}
		defer tx.Rollback(r.Context())

		created, err := db.CreateTransaction(r.Context(), tx, &models.Transaction{
			AccountID:       in.AccountID,
			Type:            in.Type,
			Amount:          in.Amount.Abs(),
			TransactionDate: date,
			CategoryID:      in.CategoryID,
			CategoryType:    in.CategoryType,
			IsSplit:         in.IsSplit,
			Notes:           in.Notes,
			VendorID:        in.VendorID,
			CustomerID:      in.CustomerID,
			SalesTaxID:      in.SalesTaxID,
			ReceiptRef:      in.ReceiptRef,
		})
		if err != nil {
			log.Printf("ERROR: Failed to create transaction: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to create transaction")
			return
		}

		if in.IsSplit {
			splits := make([]models.Split, 0, len(in.Splits))
			for _, s := range in.Splits {
				splits = append(splits, models.Split{Amount: s.Amount, CategoryID: s.CategoryID, CategoryType: s.CategoryType})
			}
			if err := db.CreateSplits(r.Context(), tx, created.ID, splits); err != nil {
				log.Printf("ERROR: Failed to create splits for transaction %d: %v", created.ID, err)
				util.WriteError(w, http.StatusInternalServerError, "failed to create transaction splits")
				return
			}
		}

		if err := db.ApplyBalanceDelta(r.Context(), tx, created.AccountID, ledger.BalanceDelta(created.Type, created.Amount)); err != nil {
			log.Printf("ERROR: Failed to apply balance for transaction %d: %v", created.ID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to create transaction")
			return
		}
		if err := tx.Commit(r.Context()); err != nil {
			log.Printf("ERROR: Failed to commit transaction create: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to create transaction")
			return
		}
		cache.ClearAllTransactionCaches()
		log.Printf("INFO: Created transaction id %d (%s %s) on account %d", created.ID, created.Type, created.Amount, created.AccountID)
		util.WriteJSON(w, http.StatusCreated, "transaction created", created)
	}
}

// UpdateTransaction reverses the old balance effect on the old account,
// replaces the row and its splits, then applies the new effect on the new
// account.
func UpdateTransaction(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := util.ParseID(chi.URLParam(r, "transaction_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid transaction id")
			return
		}
		var in ledger.Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}
		if err := in.Validate(); err != nil {
			util.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		date, err := util.ParseDate(in.TransactionDate)
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		old, err := db.GetTransactionByID(r.Context(), pool, id)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "transaction not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to load transaction %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to update transaction")
			return
		}

		tx, err := pool.Begin(r.Context())
		if err != nil {
			log.Printf("ERROR: Failed to begin transaction: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to update transaction")
			return
		}
		defer tx.Rollback(r.Context())

		if err := db.ApplyBalanceDelta(r.Context(), tx, old.AccountID, ledger.ReverseDelta(old.Type, old.Amount)); err != nil {
			log.Printf("ERROR: Failed to reverse balance for transaction %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to update transaction")
			return
		}

		updated, err := db.UpdateTransaction(r.Context(), tx, &models.Transaction{
			ID:              id,
			AccountID:       in.AccountID,
			Type:            in.Type,
			Amount:          in.Amount.Abs(),
			TransactionDate: date,
			CategoryID:      in.CategoryID,
			CategoryType:    in.CategoryType,
			IsSplit:         in.IsSplit,
			Notes:           in.Notes,
			VendorID:        in.VendorID,
			CustomerID:      in.CustomerID,
			SalesTaxID:      in.SalesTaxID,
			ReceiptRef:      in.ReceiptRef,
		})
		if err != nil {
			log.Printf("ERROR: Failed to update transaction %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to update transaction")
			return
		}

		// Splits are fully replaced on every update.
		if err := db.DeleteSplitsForTransaction(r.Context(), tx, id); err != nil {
			log.Printf("ERROR: Failed to clear splits for transaction %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to update transaction")
			return
		}
		if in.IsSplit {
			splits := make([]models.Split, 0, len(in.Splits))
			for _, s := range in.Splits {
				splits = append(splits, models.Split{Amount: s.Amount, CategoryID: s.CategoryID, CategoryType: s.CategoryType})
			}
			if err := db.CreateSplits(r.Context(), tx, id, splits); err != nil {
				log.Printf("ERROR: Failed to recreate splits for transaction %d: %v", id, err)
				util.WriteError(w, http.StatusInternalServerError, "failed to update transaction")
				return
			}
		}

		if err := db.ApplyBalanceDelta(r.Context(), tx, updated.AccountID, ledger.BalanceDelta(updated.Type, updated.Amount)); err != nil {
			log.Printf("ERROR: Failed to apply balance for transaction %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to update transaction")
			return
		}
		if err := tx.Commit(r.Context()); err != nil {
			log.Printf("ERROR: Failed to commit transaction update: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to update transaction")
			return
		}
		cache.ClearAllTransactionCaches()
		log.Printf("INFO: Updated transaction id %d", id)
		util.WriteJSON(w, http.StatusOK, "transaction updated", updated)
	}
}

// DeleteTransaction reverses the balance effect, removes splits and every
// reconciliation item referencing the transaction, then deletes the row.
// In-progress reconciliations that lost an item are recomputed.
func DeleteTransaction(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := util.ParseID(chi.URLParam(r, "transaction_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid transaction id")
			return
		}
		old, err := db.GetTransactionByID(r.Context(), pool, id)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "transaction not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to load transaction %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to delete transaction")
			return
		}

		tx, err := pool.Begin(r.Context())
		if err != nil {
			log.Printf("ERROR: Failed to begin transaction: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to delete transaction")
			return
		}
		defer tx.Rollback(r.Context())

		if err := db.ApplyBalanceDelta(r.Context(), tx, old.AccountID, ledger.ReverseDelta(old.Type, old.Amount)); err != nil {
			log.Printf("ERROR: Failed to reverse balance for transaction %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to delete transaction")
			return
		}
		if err := db.DeleteSplitsForTransaction(r.Context(), tx, id); err != nil {
			log.Printf("ERROR: Failed to delete splits for transaction %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to delete transaction")
			return
		}

		touched, err := db.DeleteItemsForTransaction(r.Context(), tx, id)
		if err != nil {
			log.Printf("ERROR: Failed to delete reconciliation items for transaction %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to delete transaction")
			return
		}

		if err := db.DeleteTransaction(r.Context(), tx, id); err != nil {
			log.Printf("ERROR: Failed to delete transaction %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to delete transaction")
			return
		}

		for _, recID := range touched {
			if err := recomputeReconciliation(r.Context(), tx, recID); err != nil {
				log.Printf("ERROR: Failed to recompute reconciliation %d: %v", recID, err)
				util.WriteError(w, http.StatusInternalServerError, "failed to delete transaction")
				return
			}
		}
		if err := tx.Commit(r.Context()); err != nil {
			log.Printf("ERROR: Failed to commit transaction delete: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to delete transaction")
			return
		}
		cache.ClearAllTransactionCaches()
		log.Printf("INFO: Deleted transaction id %d", id)
		util.WriteJSON(w, http.StatusOK, "transaction deleted", nil)
	}
}

// ToggleReviewed flips the triage flag; no balance effect.
func ToggleReviewed(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := util.ParseID(chi.URLParam(r, "transaction_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid transaction id")
			return
		}
		tx, err := db.GetTransactionByID(r.Context(), pool, id)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "transaction not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to load transaction %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to toggle reviewed")
			return
		}
		if err := db.SetTransactionReviewed(r.Context(), pool, id, !tx.Reviewed); err != nil {
			log.Printf("ERROR: Failed to toggle reviewed on transaction %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to toggle reviewed")
			return
		}
		cache.ClearAllTransactionCaches()
		util.WriteJSON(w, http.StatusOK, "reviewed toggled", map[string]bool{"reviewed": !tx.Reviewed})
	}
}

func importRow(ctx context.Context, pool *pgxpool.Pool, accountID int64, row ledger.ParsedRow, notes *string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	created, err := db.CreateTransaction(ctx, tx, &models.Transaction{
		AccountID:       accountID,
		Type:            row.Type,
		Amount:          row.Amount,
		TransactionDate: row.Date,
		Notes:           notes,
	})
	if err != nil {
		return err
	}
	if err := db.ApplyBalanceDelta(ctx, tx, accountID, ledger.BalanceDelta(created.Type, created.Amount)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type importRequest struct {
	AccountID int64              `json:"account_id"`
	Rows      []ledger.ImportRow `json:"rows"`
}

// ImportTransactions bulk-creates simple transactions from JSON rows or a
// CSV body. Each row validates independently; invalid rows are reported by
// line number and the rest import anyway.
func ImportTransactions(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var accountID int64
		var rows []ledger.ImportRow

		if strings.Contains(r.Header.Get("Content-Type"), "text/csv") {
			id, err := util.ParseID(r.URL.Query().Get("account_id"))
			if err != nil {
				util.WriteError(w, http.StatusBadRequest, "account_id query parameter is required for csv import")
				return
			}
			accountID = id
			body, err := io.ReadAll(r.Body)
			if err != nil {
				util.WriteError(w, http.StatusBadRequest, "failed to read request body")
				return
			}
			rows, err = ledger.ReadCSV(body)
			if err != nil {
				util.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
		} else {
			var req importRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				util.WriteError(w, http.StatusBadRequest, "invalid request")
				return
			}
			if req.AccountID == 0 {
				util.WriteError(w, http.StatusBadRequest, "account_id is required")
				return
			}
			accountID = req.AccountID
			rows = req.Rows
		}

		if _, err := db.GetAccountByID(r.Context(), pool, accountID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				util.WriteError(w, http.StatusNotFound, "account not found")
				return
			}
			log.Printf("ERROR: Failed to load account %d: %v", accountID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to import transactions")
			return
		}

		parsed, rowErrs := ledger.ParseRows(rows)
		imported := 0
		// Each row commits on its own: partial success is the contract.
		for _, row := range parsed {
			var notes *string
			if row.Description != "" {
				d := row.Description
				notes = &d
			}
			if err := importRow(r.Context(), pool, accountID, row, notes); err != nil {
				log.Printf("ERROR: Failed to import transaction (%s %s): %v", row.Type, row.Amount, err)
				rowErrs = append(rowErrs, ledger.ImportError{Line: row.Line, Message: "failed to save row"})
				continue
			}
			imported++
		}
		cache.ClearAllTransactionCaches()
		log.Printf("INFO: Imported %d transactions into account %d (%d rows rejected)", imported, accountID, len(rowErrs))
		util.WriteJSON(w, http.StatusOK, "import finished", map[string]interface{}{
			"imported": imported,
			"errors":   rowErrs,
		})
	}
}
