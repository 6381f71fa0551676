package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"koperasi-server/src/models"
)

const reconciliationColumns = `id, account_id, statement_end_date, starting_balance,
	closing_balance, matched_balance, difference, status, reconciled_on, created_at`

func scanReconciliation(row pgx.Row) (*models.Reconciliation, error) {
	var r models.Reconciliation
	err := row.Scan(&r.ID, &r.AccountID, &r.StatementEndDate, &r.StartingBalance,
		&r.ClosingBalance, &r.MatchedBalance, &r.Difference, &r.Status, &r.ReconciledOn, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func GetReconciliationByID(ctx context.Context, pool DB, id int64) (*models.Reconciliation, error) {
	query := `SELECT ` + reconciliationColumns + ` FROM reconciliations WHERE id = $1`
	return scanReconciliation(pool.QueryRow(ctx, query, id))
}

// GetInProgressForAccount returns the account's open reconciliation, or
// ErrNotFound. At most one exists at a time.
func GetInProgressForAccount(ctx context.Context, pool DB, accountID int64) (*models.Reconciliation, error) {
	query := `SELECT ` + reconciliationColumns + ` FROM reconciliations
		WHERE account_id = $1 AND status = $2`
	return scanReconciliation(pool.QueryRow(ctx, query, accountID, models.ReconciliationInProgress))
}

// GetLastCompletedForAccount returns the most recently completed
// reconciliation, whose closing balance seeds the next starting balance.
func GetLastCompletedForAccount(ctx context.Context, pool DB, accountID int64) (*models.Reconciliation, error) {
	query := `SELECT ` + reconciliationColumns + ` FROM reconciliations
		WHERE account_id = $1 AND status = $2
		ORDER BY statement_end_date DESC, id DESC
		LIMIT 1`
	return scanReconciliation(pool.QueryRow(ctx, query, accountID, models.ReconciliationCompleted))
}

func GetReconciliationsForAccount(ctx context.Context, pool DB, accountID int64) ([]models.Reconciliation, error) {
	query := `SELECT ` + reconciliationColumns + ` FROM reconciliations
		WHERE account_id = $1 ORDER BY statement_end_date DESC, id DESC`

	rows, err := pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.Reconciliation
	for rows.Next() {
		var r models.Reconciliation
		err := rows.Scan(&r.ID, &r.AccountID, &r.StatementEndDate, &r.StartingBalance,
			&r.ClosingBalance, &r.MatchedBalance, &r.Difference, &r.Status, &r.ReconciledOn, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func CreateReconciliation(ctx context.Context, pool DB, r *models.Reconciliation) (*models.Reconciliation, error) {
	query := `
		INSERT INTO reconciliations (account_id, statement_end_date, starting_balance,
			closing_balance, matched_balance, difference, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + reconciliationColumns
	return scanReconciliation(pool.QueryRow(ctx, query, r.AccountID, r.StatementEndDate,
		r.StartingBalance, r.ClosingBalance, r.MatchedBalance, r.Difference, r.Status))
}

// SaveReconciliationComputed persists the recomputed derived fields after a
// toggle, removal or closing-balance change.
func SaveReconciliationComputed(ctx context.Context, pool DB, r *models.Reconciliation) error {
	query := `UPDATE reconciliations
		SET closing_balance = $1, matched_balance = $2, difference = $3
		WHERE id = $4`
	cmd, err := pool.Exec(ctx, query, r.ClosingBalance, r.MatchedBalance, r.Difference, r.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func CompleteReconciliation(ctx context.Context, pool DB, id int64, reconciledOn time.Time) error {
	query := `UPDATE reconciliations SET status = $1, reconciled_on = $2 WHERE id = $3`
	cmd, err := pool.Exec(ctx, query, models.ReconciliationCompleted, reconciledOn, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReconciliation removes the reconciliation; items cascade.
func DeleteReconciliation(ctx context.Context, pool DB, id int64) error {
	cmd, err := pool.Exec(ctx, `DELETE FROM reconciliations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func CreateReconciliationItems(ctx context.Context, pool DB, reconciliationID int64, transactionIDs []int64) error {
	query := `INSERT INTO reconciliation_items (reconciliation_id, transaction_id) VALUES ($1, $2)`
	for _, txID := range transactionIDs {
		if _, err := pool.Exec(ctx, query, reconciliationID, txID); err != nil {
			return err
		}
	}
	return nil
}

func GetReconciliationItems(ctx context.Context, pool DB, reconciliationID int64) ([]models.ReconciliationItem, error) {
	query := `
		SELECT id, reconciliation_id, transaction_id, is_matched, matched_at, created_at
		FROM reconciliation_items WHERE reconciliation_id = $1
		ORDER BY created_at, id
	`
	rows, err := pool.Query(ctx, query, reconciliationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.ReconciliationItem
	for rows.Next() {
		var item models.ReconciliationItem
		if err := rows.Scan(&item.ID, &item.ReconciliationID, &item.TransactionID, &item.IsMatched, &item.MatchedAt, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ToggleReconciliationItem flips the match flag for one transaction within
// a reconciliation and returns the new state.
func ToggleReconciliationItem(ctx context.Context, pool DB, reconciliationID, transactionID int64, now time.Time) (bool, error) {
	query := `
		UPDATE reconciliation_items
		SET is_matched = NOT is_matched,
			matched_at = CASE WHEN is_matched THEN NULL ELSE $1 END
		WHERE reconciliation_id = $2 AND transaction_id = $3
		RETURNING is_matched
	`
	var matched bool
	err := pool.QueryRow(ctx, query, now, reconciliationID, transactionID).Scan(&matched)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	return matched, err
}

func DeleteReconciliationItems(ctx context.Context, pool DB, reconciliationID int64, transactionIDs []int64) error {
	query := `DELETE FROM reconciliation_items
		WHERE reconciliation_id = $1 AND transaction_id = ANY($2)`
	_, err := pool.Exec(ctx, query, reconciliationID, transactionIDs)
	return err
}

func DeleteReconciliationItemsByID(ctx context.Context, pool DB, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	_, err := pool.Exec(ctx, `DELETE FROM reconciliation_items WHERE id = ANY($1)`, itemIDs)
	return err
}

// DeleteItemsForTransaction removes every reconciliation item referencing
// the transaction, across all reconciliations, and returns the ids of the
// in-progress reconciliations that lost an item so callers can recompute.
func DeleteItemsForTransaction(ctx context.Context, pool DB, transactionID int64) ([]int64, error) {
	query := `
		DELETE FROM reconciliation_items ri
		USING reconciliations r
		WHERE ri.transaction_id = $1 AND r.id = ri.reconciliation_id
		RETURNING r.id, r.status
	`
	rows, err := pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inProgress []int64
	seen := make(map[int64]bool)
	for rows.Next() {
		var recID int64
		var status string
		if err := rows.Scan(&recID, &status); err != nil {
			return nil, err
		}
		if status == models.ReconciliationInProgress && !seen[recID] {
			seen[recID] = true
			inProgress = append(inProgress, recID)
		}
	}
	return inProgress, rows.Err()
}

// GetReconciledTransactionIDs returns the transactions already matched in
// any completed reconciliation for the account, which never re-enroll.
func GetReconciledTransactionIDs(ctx context.Context, pool DB, accountID int64) (map[int64]bool, error) {
	query := `
		SELECT ri.transaction_id
		FROM reconciliation_items ri
		JOIN reconciliations r ON r.id = ri.reconciliation_id
		WHERE r.account_id = $1 AND r.status = $2 AND ri.is_matched = TRUE
	`
	rows, err := pool.Query(ctx, query, accountID, models.ReconciliationCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}
