package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"koperasi-server/src/models"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

const accountColumns = `id, submenu_id, code, name, currency, balance, last_transaction, active, created_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.SubmenuID, &a.Code, &a.Name, &a.Currency, &a.Balance, &a.LastTransaction, &a.Active, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func GetAccounts(ctx context.Context, pool DB) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE active = TRUE ORDER BY code NULLS LAST, name`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.SubmenuID, &a.Code, &a.Name, &a.Currency, &a.Balance, &a.LastTransaction, &a.Active, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func GetAccountByID(ctx context.Context, pool DB, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(pool.QueryRow(ctx, query, id))
}

func AccountCodeExists(ctx context.Context, pool DB, code string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE code = $1 AND id <> $2)`
	var exists bool
	err := pool.QueryRow(ctx, query, code, excludeID).Scan(&exists)
	return exists, err
}

func CreateAccount(ctx context.Context, pool DB, a *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (submenu_id, code, name, currency)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + accountColumns
	return scanAccount(pool.QueryRow(ctx, query, a.SubmenuID, a.Code, a.Name, a.Currency))
}

func UpdateAccount(ctx context.Context, pool DB, a *models.Account) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET submenu_id = $1, code = $2, name = $3, currency = $4
		WHERE id = $5
		RETURNING ` + accountColumns
	return scanAccount(pool.QueryRow(ctx, query, a.SubmenuID, a.Code, a.Name, a.Currency, a.ID))
}

func SoftDeleteAccount(ctx context.Context, pool DB, id int64) error {
	cmd, err := pool.Exec(ctx, `UPDATE accounts SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyBalanceDelta adjusts the cached balance and stamps the last
// transaction time. A missing account is a silent no-op: the cached
// balance is best-effort and Recompute repairs any drift.
func ApplyBalanceDelta(ctx context.Context, pool DB, accountID int64, delta decimal.Decimal) error {
	query := `UPDATE accounts SET balance = balance + $1, last_transaction = NOW() WHERE id = $2`
	_, err := pool.Exec(ctx, query, delta, accountID)
	return err
}

// SetAccountBalance overwrites the cached balance, used by the
// recompute-from-ledger repair.
func SetAccountBalance(ctx context.Context, pool DB, accountID int64, balance decimal.Decimal) error {
	cmd, err := pool.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
