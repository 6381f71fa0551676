package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	db "koperasi-server/src/db/sql"
	"koperasi-server/src/models"
	"koperasi-server/src/reconcile"
	"koperasi-server/src/util"
)

// recomputeReconciliation reloads an in-progress reconciliation, reruns the
// matched/difference arithmetic from its surviving items, and saves the
// result. Runs on whatever query surface the caller is in the middle of, so
// a mutation and its recompute commit together.
func recomputeReconciliation(ctx context.Context, q db.DB, recID int64) error {
	rec, err := db.GetReconciliationByID(ctx, q, recID)
	if err != nil {
		return err
	}
	items, err := db.GetReconciliationItems(ctx, q, recID)
	if err != nil {
		return err
	}
	txByID, err := loadItemTransactions(ctx, q, items)
	if err != nil {
		return err
	}
	reconcile.Recalculate(rec, items, txByID)
	return db.SaveReconciliationComputed(ctx, q, rec)
}

func loadItemTransactions(ctx context.Context, pool db.DB, items []models.ReconciliationItem) (map[int64]models.Transaction, error) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.TransactionID)
	}
	txs, err := db.GetTransactionsByIDs(ctx, pool, ids)
	if err != nil {
		return nil, err
	}
	txByID := make(map[int64]models.Transaction, len(txs))
	for _, tx := range txs {
		txByID[tx.ID] = tx
	}
	return txByID, nil
}

type reconciliationState struct {
	InProgress      *models.Reconciliation  `json:"in_progress"`
	History         []models.Reconciliation `json:"history"`
	StartingBalance decimal.Decimal         `json:"starting_balance"`
}

// GetReconciliationState returns the account's open reconciliation (if any),
// its completed history, and the starting balance a new session would open
// with.
func GetReconciliationState(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := util.ParseID(chi.URLParam(r, "account_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid account id")
			return
		}

		state := reconciliationState{History: []models.Reconciliation{}}

		inProgress, err := db.GetInProgressForAccount(r.Context(), pool, accountID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			log.Printf("ERROR: Failed to load in-progress reconciliation for account %d: %v", accountID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to load reconciliation state")
			return
		}
		state.InProgress = inProgress

		all, err := db.GetReconciliationsForAccount(r.Context(), pool, accountID)
		if err != nil {
			log.Printf("ERROR: Failed to load reconciliations for account %d: %v", accountID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to load reconciliation state")
			return
		}
		for _, rec := range all {
			if rec.Status == models.ReconciliationCompleted {
				state.History = append(state.History, rec)
			}
		}

		last, err := db.GetLastCompletedForAccount(r.Context(), pool, accountID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			log.Printf("ERROR: Failed to load last completed reconciliation for account %d: %v", accountID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to load reconciliation state")
			return
		}
		state.StartingBalance = reconcile.StartingBalance(last)

		util.WriteJSON(w, http.StatusOK, "reconciliation state", state)
	}
}

type startReconciliationRequest struct {
	AccountID        int64           `json:"account_id"`
	StatementEndDate string          `json:"statement_end_date"`
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
}

// StartReconciliation opens a reconciliation session for the account and
// enrolls every unreconciled transaction dated on or before the statement
// end.
func StartReconciliation(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startReconciliationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}
		if req.AccountID == 0 {
			util.WriteError(w, http.StatusBadRequest, "account_id is required")
			return
		}
		accountID := req.AccountID
		endDate, err := util.ParseDate(req.StatementEndDate)
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := db.GetAccountByID(r.Context(), pool, accountID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				util.WriteError(w, http.StatusNotFound, "account not found")
				return
			}
			log.Printf("ERROR: Failed to load account %d: %v", accountID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to start reconciliation")
			return
		}

		open, err := db.GetInProgressForAccount(r.Context(), pool, accountID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			log.Printf("ERROR: Failed to check in-progress reconciliation for account %d: %v", accountID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to start reconciliation")
			return
		}
		if err := reconcile.CheckStart(open); err != nil {
			util.WriteError(w, http.StatusConflict, err.Error())
			return
		}

		last, err := db.GetLastCompletedForAccount(r.Context(), pool, accountID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			log.Printf("ERROR: Failed to load last completed reconciliation for account %d: %v", accountID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to start reconciliation")
			return
		}
		starting := reconcile.StartingBalance(last)

		txs, err := db.GetAccountTransactionsThrough(r.Context(), pool, accountID, endDate)
		if err != nil {
			log.Printf("ERROR: Failed to load transactions for account %d: %v", accountID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to start reconciliation")
			return
		}
		alreadyMatched, err := db.GetReconciledTransactionIDs(r.Context(), pool, accountID)
		if err != nil {
			log.Printf("ERROR: Failed to load reconciled transaction ids for account %d: %v", accountID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to start reconciliation")
			return
		}
		seedIDs := reconcile.SeedTransactionIDs(txs, endDate, alreadyMatched)

		tx, err := pool.Begin(r.Context())
		if err != nil {
			log.Printf("ERROR: Failed to begin transaction: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to start reconciliation")
			return
		}
		defer tx.Rollback(r.Context())

		created, err := db.CreateReconciliation(r.Context(), tx, &models.Reconciliation{
			AccountID:        accountID,
			StatementEndDate: endDate,
			StartingBalance:  starting,
			ClosingBalance:   req.ClosingBalance,
			MatchedBalance:   starting,
			Difference:       req.ClosingBalance.Sub(starting),
			Status:           models.ReconciliationInProgress,
		})
		if err != nil {
			log.Printf("ERROR: Failed to create reconciliation for account %d: %v", accountID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to start reconciliation")
			return
		}
		if err := db.CreateReconciliationItems(r.Context(), tx, created.ID, seedIDs); err != nil {
			log.Printf("ERROR: Failed to seed items for reconciliation %d: %v", created.ID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to start reconciliation")
			return
		}
		if err := tx.Commit(r.Context()); err != nil {
			log.Printf("ERROR: Failed to commit reconciliation start: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to start reconciliation")
			return
		}

		log.Printf("INFO: Started reconciliation %d for account %d with %d candidate transactions", created.ID, accountID, len(seedIDs))
		util.WriteJSON(w, http.StatusCreated, "reconciliation started", created)
	}
}

// reconciliationTxView is one candidate transaction in the worksheet.
type reconciliationTxView struct {
	models.Transaction
	ItemID    int64 `json:"item_id"`
	IsMatched bool  `json:"is_matched"`
}

type reconciliationWorksheet struct {
	Reconciliation models.Reconciliation  `json:"reconciliation"`
	Transactions   []reconciliationTxView `json:"transactions"`
}

// GetReconciliationWorksheet renders the open session: its derived balances
// and every enrolled transaction with its match state. Items whose
// transaction has since been deleted are pruned on the way through.
func GetReconciliationWorksheet(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recID, err := util.ParseID(chi.URLParam(r, "reconciliation_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid reconciliation id")
			return
		}
		rec, err := db.GetReconciliationByID(r.Context(), pool, recID)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "reconciliation not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to load reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to load reconciliation")
			return
		}

		items, err := db.GetReconciliationItems(r.Context(), pool, recID)
		if err != nil {
			log.Printf("ERROR: Failed to load items for reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to load reconciliation")
			return
		}
		txByID, err := loadItemTransactions(r.Context(), pool, items)
		if err != nil {
			log.Printf("ERROR: Failed to load transactions for reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to load reconciliation")
			return
		}

		kept, orphanIDs := reconcile.PruneOrphans(items, txByID)
		if len(orphanIDs) > 0 {
			if err := db.DeleteReconciliationItemsByID(r.Context(), pool, orphanIDs); err != nil {
				log.Printf("ERROR: Failed to prune %d orphan items on reconciliation %d: %v", len(orphanIDs), recID, err)
			}
			reconcile.Recalculate(rec, kept, txByID)
			if err := db.SaveReconciliationComputed(r.Context(), pool, rec); err != nil {
				log.Printf("ERROR: Failed to save reconciliation %d after pruning: %v", recID, err)
			}
		}

		views := make([]reconciliationTxView, 0, len(kept))
		for _, item := range kept {
			tx := txByID[item.TransactionID]
			views = append(views, reconciliationTxView{Transaction: tx, ItemID: item.ID, IsMatched: item.IsMatched})
		}
		util.WriteJSON(w, http.StatusOK, "reconciliation", reconciliationWorksheet{Reconciliation: *rec, Transactions: views})
	}
}

// ToggleMatch flips one transaction's matched flag and returns the refreshed
// derived balances.
func ToggleMatch(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recID, err := util.ParseID(chi.URLParam(r, "reconciliation_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid reconciliation id")
			return
		}
		txID, err := util.ParseID(chi.URLParam(r, "transaction_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid transaction id")
			return
		}

		rec, err := db.GetReconciliationByID(r.Context(), pool, recID)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "reconciliation not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to load reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to toggle match")
			return
		}
		if rec.Status != models.ReconciliationInProgress {
			util.WriteError(w, http.StatusConflict, reconcile.ErrNotInProgress.Error())
			return
		}

		tx, err := pool.Begin(r.Context())
		if err != nil {
			log.Printf("ERROR: Failed to begin transaction: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to toggle match")
			return
		}
		defer tx.Rollback(r.Context())

		if _, err := db.ToggleReconciliationItem(r.Context(), tx, recID, txID, time.Now()); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				util.WriteError(w, http.StatusNotFound, "transaction is not part of this reconciliation")
				return
			}
			log.Printf("ERROR: Failed to toggle item on reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to toggle match")
			return
		}
		if err := recomputeReconciliation(r.Context(), tx, recID); err != nil {
			log.Printf("ERROR: Failed to recompute reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to toggle match")
			return
		}
		if err := tx.Commit(r.Context()); err != nil {
			log.Printf("ERROR: Failed to commit match toggle: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to toggle match")
			return
		}
		rec, err = db.GetReconciliationByID(r.Context(), pool, recID)
		if err != nil {
			log.Printf("ERROR: Failed to reload reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to toggle match")
			return
		}
		util.WriteJSON(w, http.StatusOK, "match toggled", rec)
	}
}

type removeItemsRequest struct {
	TransactionIDs []int64 `json:"transaction_ids"`
}

// RemoveReconciliationItems drops transactions from the open worksheet
// without touching the transactions themselves.
func RemoveReconciliationItems(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recID, err := util.ParseID(chi.URLParam(r, "reconciliation_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid reconciliation id")
			return
		}
		var req removeItemsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.TransactionIDs) == 0 {
			util.WriteError(w, http.StatusBadRequest, "transaction_ids is required")
			return
		}

		rec, err := db.GetReconciliationByID(r.Context(), pool, recID)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "reconciliation not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to load reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to remove items")
			return
		}
		if rec.Status != models.ReconciliationInProgress {
			util.WriteError(w, http.StatusConflict, reconcile.ErrNotInProgress.Error())
			return
		}

		tx, err := pool.Begin(r.Context())
		if err != nil {
			log.Printf("ERROR: Failed to begin transaction: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to remove items")
			return
		}
		defer tx.Rollback(r.Context())

		if err := db.DeleteReconciliationItems(r.Context(), tx, recID, req.TransactionIDs); err != nil {
			log.Printf("ERROR: Failed to remove items from reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to remove items")
			return
		}
		if err := recomputeReconciliation(r.Context(), tx, recID); err != nil {
			log.Printf("ERROR: Failed to recompute reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to remove items")
			return
		}
		if err := tx.Commit(r.Context()); err != nil {
			log.Printf("ERROR: Failed to commit item removal: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to remove items")
			return
		}
		rec, err = db.GetReconciliationByID(r.Context(), pool, recID)
		if err != nil {
			log.Printf("ERROR: Failed to reload reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to remove items")
			return
		}
		util.WriteJSON(w, http.StatusOK, "items removed", rec)
	}
}

type closingBalanceRequest struct {
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// UpdateClosingBalance corrects the statement closing balance mid-session
// and refreshes the difference.
func UpdateClosingBalance(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recID, err := util.ParseID(chi.URLParam(r, "reconciliation_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid reconciliation id")
			return
		}
		var req closingBalanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}

		rec, err := db.GetReconciliationByID(r.Context(), pool, recID)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "reconciliation not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to load reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to update closing balance")
			return
		}
		if rec.Status != models.ReconciliationInProgress {
			util.WriteError(w, http.StatusConflict, reconcile.ErrNotInProgress.Error())
			return
		}

		rec.ClosingBalance = req.ClosingBalance
		rec.Difference = rec.ClosingBalance.Sub(rec.MatchedBalance)
		if err := db.SaveReconciliationComputed(r.Context(), pool, rec); err != nil {
			log.Printf("ERROR: Failed to save reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to update closing balance")
			return
		}
		util.WriteJSON(w, http.StatusOK, "closing balance updated", rec)
	}
}

// CompleteReconciliation finalizes the session. Fails with 409 when the
// difference still exceeds the tolerance.
func CompleteReconciliation(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recID, err := util.ParseID(chi.URLParam(r, "reconciliation_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid reconciliation id")
			return
		}
		rec, err := db.GetReconciliationByID(r.Context(), pool, recID)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "reconciliation not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to load reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to complete reconciliation")
			return
		}

		now := time.Now()
		if err := reconcile.Complete(rec, now); err != nil {
			util.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		if err := db.CompleteReconciliation(r.Context(), pool, recID, now); err != nil {
			log.Printf("ERROR: Failed to complete reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to complete reconciliation")
			return
		}
		log.Printf("INFO: Completed reconciliation %d for account %d", recID, rec.AccountID)
		util.WriteJSON(w, http.StatusOK, "reconciliation completed", rec)
	}
}

// CancelReconciliation discards an in-progress session entirely; its items
// go with it and the enrolled transactions stay untouched.
func CancelReconciliation(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recID, err := util.ParseID(chi.URLParam(r, "reconciliation_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid reconciliation id")
			return
		}
		rec, err := db.GetReconciliationByID(r.Context(), pool, recID)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "reconciliation not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to load reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to cancel reconciliation")
			return
		}
		if rec.Status != models.ReconciliationInProgress {
			util.WriteError(w, http.StatusConflict, reconcile.ErrNotInProgress.Error())
			return
		}
		if err := db.DeleteReconciliation(r.Context(), pool, recID); err != nil {
			log.Printf("ERROR: Failed to cancel reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to cancel reconciliation")
			return
		}
		log.Printf("INFO: Cancelled reconciliation %d for account %d", recID, rec.AccountID)
		util.WriteJSON(w, http.StatusOK, "reconciliation cancelled", nil)
	}
}

// ViewReconciliation renders a completed reconciliation: the statement
// figures plus only the transactions that were matched.
func ViewReconciliation(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recID, err := util.ParseID(chi.URLParam(r, "reconciliation_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid reconciliation id")
			return
		}
		rec, err := db.GetReconciliationByID(r.Context(), pool, recID)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "reconciliation not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to load reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to load reconciliation")
			return
		}

		items, err := db.GetReconciliationItems(r.Context(), pool, recID)
		if err != nil {
			log.Printf("ERROR: Failed to load items for reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to load reconciliation")
			return
		}
		txByID, err := loadItemTransactions(r.Context(), pool, items)
		if err != nil {
			log.Printf("ERROR: Failed to load transactions for reconciliation %d: %v", recID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to load reconciliation")
			return
		}

		views := make([]reconciliationTxView, 0, len(items))
		for _, item := range items {
			if !item.IsMatched {
				continue
			}
			tx, ok := txByID[item.TransactionID]
			if !ok {
				continue
			}
			views = append(views, reconciliationTxView{Transaction: tx, ItemID: item.ID, IsMatched: true})
		}
		util.WriteJSON(w, http.StatusOK, "reconciliation", reconciliationWorksheet{Reconciliation: *rec, Transactions: views})
	}
}
