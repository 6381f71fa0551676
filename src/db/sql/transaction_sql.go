package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"koperasi-server/src/models"
)

const transactionColumns = `id, account_id, transaction_type, amount, transaction_date,
	category_id, category_type, is_split, notes, vendor_id, customer_id,
	sales_tax_id, receipt_ref, reviewed, created_at`

func scanTransactionRows(rows pgx.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount, &t.TransactionDate,
			&t.CategoryID, &t.CategoryType, &t.IsSplit, &t.Notes, &t.VendorID, &t.CustomerID,
			&t.SalesTaxID, &t.ReceiptRef, &t.Reviewed, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// attachSplits loads the splits of every split transaction in one query.
func attachSplits(ctx context.Context, pool DB, txs []models.Transaction) error {
	var ids []int64
	index := make(map[int64]*models.Transaction)
	for i := range txs {
		if txs[i].IsSplit {
			ids = append(ids, txs[i].ID)
			index[txs[i].ID] = &txs[i]
		}
	}
	if len(ids) == 0 {
		return nil
	}

	query := `
		SELECT id, transaction_id, amount, category_id, category_type, created_at
		FROM splits WHERE transaction_id = ANY($1)
		ORDER BY created_at, id
	`
	rows, err := pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Split
		if err := rows.Scan(&s.ID, &s.TransactionID, &s.Amount, &s.CategoryID, &s.CategoryType, &s.CreatedAt); err != nil {
			return err
		}
		if tx, ok := index[s.TransactionID]; ok {
			tx.Splits = append(tx.Splits, s)
		}
	}
	return rows.Err()
}

// GetTransactions lists transactions, optionally for one account, with
// splits attached, newest first.
func GetTransactions(ctx context.Context, pool DB, accountID *int64) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	args := []interface{}{}
	if accountID != nil {
		query += ` WHERE account_id = $1`
		args = append(args, *accountID)
	}
	query += ` ORDER BY transaction_date DESC, created_at DESC, id DESC`

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	txs, err := scanTransactionRows(rows)
	if err != nil {
		return nil, err
	}
	return txs, attachSplits(ctx, pool, txs)
}

// GetTransactionsThrough loads every transaction dated on or before end,
// splits attached, for the report builders.
func GetTransactionsThrough(ctx context.Context, pool DB, end time.Time) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_date <= $1
		ORDER BY transaction_date, created_at, id`

	rows, err := pool.Query(ctx, query, end)
	if err != nil {
		return nil, err
	}
	txs, err := scanTransactionRows(rows)
	if err != nil {
		return nil, err
	}
	return txs, attachSplits(ctx, pool, txs)
}

// GetAccountTransactionsThrough loads one account's own transactions dated
// on or before end, for reconciliation seeding and balance recompute.
func GetAccountTransactionsThrough(ctx context.Context, pool DB, accountID int64, end time.Time) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE account_id = $1 AND transaction_date <= $2
		ORDER BY transaction_date, created_at, id`

	rows, err := pool.Query(ctx, query, accountID, end)
	if err != nil {
		return nil, err
	}
	return scanTransactionRows(rows)
}

// GetAllAccountTransactions loads one account's full transaction log.
func GetAllAccountTransactions(ctx context.Context, pool DB, accountID int64) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1
		ORDER BY transaction_date, created_at, id`

	rows, err := pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	return scanTransactionRows(rows)
}

func GetTransactionByID(ctx context.Context, pool DB, id int64) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	rows, err := pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	txs, err := scanTransactionRows(rows)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, ErrNotFound
	}
	if err := attachSplits(ctx, pool, txs); err != nil {
		return nil, err
	}
	return &txs[0], nil
}

// GetTransactionsByIDs loads the given transactions without splits, for
// reconciliation recompute.
func GetTransactionsByIDs(ctx context.Context, pool DB, ids []int64) ([]models.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ANY($1)`

	rows, err := pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	return scanTransactionRows(rows)
}

func CreateTransaction(ctx context.Context, pool DB, t *models.Transaction) (*models.Transaction, error) {
	query := `
		INSERT INTO transactions (account_id, transaction_type, amount, transaction_date,
			category_id, category_type, is_split, notes, vendor_id, customer_id,
			sales_tax_id, receipt_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + transactionColumns

	rows, err := pool.Query(ctx, query, t.AccountID, t.Type, t.Amount, t.TransactionDate,
		t.CategoryID, t.CategoryType, t.IsSplit, t.Notes, t.VendorID, t.CustomerID,
		t.SalesTaxID, t.ReceiptRef)
	if err != nil {
		return nil, err
	}
	txs, err := scanTransactionRows(rows)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, errors.New("insert returned no row")
	}
	return &txs[0], nil
}

func UpdateTransaction(ctx context.Context, pool DB, t *models.Transaction) (*models.Transaction, error) {
	query := `
		UPDATE transactions
		SET account_id = $1, transaction_type = $2, amount = $3, transaction_date = $4,
			category_id = $5, category_type = $6, is_split = $7, notes = $8,
			vendor_id = $9, customer_id = $10, sales_tax_id = $11, receipt_ref = $12
		WHERE id = $13
		RETURNING ` + transactionColumns

	rows, err := pool.Query(ctx, query, t.AccountID, t.Type, t.Amount, t.TransactionDate,
		t.CategoryID, t.CategoryType, t.IsSplit, t.Notes, t.VendorID, t.CustomerID,
		t.SalesTaxID, t.ReceiptRef, t.ID)
	if err != nil {
		return nil, err
	}
	txs, err := scanTransactionRows(rows)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, ErrNotFound
	}
	return &txs[0], nil
}

func DeleteTransaction(ctx context.Context, pool DB, id int64) error {
	cmd, err := pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func SetTransactionReviewed(ctx context.Context, pool DB, id int64, reviewed bool) error {
	cmd, err := pool.Exec(ctx, `UPDATE transactions SET reviewed = $1 WHERE id = $2`, reviewed, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func CreateSplits(ctx context.Context, pool DB, transactionID int64, splits []models.Split) error {
	query := `
		INSERT INTO splits (transaction_id, amount, category_id, category_type)
		VALUES ($1, $2, $3, $4)
	`
	for _, s := range splits {
		if _, err := pool.Exec(ctx, query, transactionID, s.Amount, s.CategoryID, s.CategoryType); err != nil {
			return err
		}
	}
	return nil
}

func DeleteSplitsForTransaction(ctx context.Context, pool DB, transactionID int64) error {
	_, err := pool.Exec(ctx, `DELETE FROM splits WHERE transaction_id = $1`, transactionID)
	return err
}
