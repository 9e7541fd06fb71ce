/**
 * @description
 * PostgreSQL-backed account gateway. Accounts are owned by the core banking
 * schema; this service only looks them up by IBAN and applies debits.
 *
 * Key features:
 * - DebitIfSufficient is a single conditional UPDATE, so the balance check
 *   and the write happen atomically inside Postgres. Two concurrent debits
 *   on the same account can no longer both observe the pre-debit balance.
 * - Balances travel as numeric text and are parsed into decimals, never
 *   through float64.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver and pool.
 * - github.com/shopspring/decimal: exact decimal arithmetic.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vervebank/directdebit-service/internal/domain"
)

// AccountRepository handles account reads and balance debits.
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByIBAN fetches one account by IBAN. A missing account returns
// (nil, nil); the caller decides whether that is fatal.
func (r *AccountRepository) GetByIBAN(ctx context.Context, iban string) (*domain.Account, error) {
	query := `
        SELECT id, client_id, iban, balance::text, active
        FROM accounts
        WHERE iban = $1
    `
	var (
		account     domain.Account
		balanceText string
	)
	err := r.db.QueryRow(ctx, query, iban).Scan(
		&account.ID, &account.ClientID, &account.IBAN, &balanceText, &account.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching account by iban: %w", err)
	}

	account.Balance, err = decimal.NewFromString(balanceText)
	if err != nil {
		return nil, fmt.Errorf("account %s has unparseable balance %q: %w", account.ID, balanceText, err)
	}
	return &account, nil
}

// DebitIfSufficient atomically subtracts amount from the account's balance
// and returns the new balance. When the balance does not cover the amount
// the row is untouched and domain.ErrInsufficientBalance comes back.
func (r *AccountRepository) DebitIfSufficient(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
        UPDATE accounts
        SET balance = balance - $1::numeric,
            updated_at = NOW()
        WHERE id = $2
          AND balance >= $1::numeric
        RETURNING balance::text
    `
	var balanceText string
	err := r.db.QueryRow(ctx, query, amount.String(), accountID).Scan(&balanceText)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the account vanished or the balance no longer covers the
		// amount. Distinguish so the caller can classify the outcome.
		var exists bool
		if checkErr := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); checkErr != nil {
			return decimal.Zero, fmt.Errorf("checking account %s after conditional debit: %w", accountID, checkErr)
		}
		if !exists {
			return decimal.Zero, fmt.Errorf("account %s: %w", accountID, domain.ErrAccountNotFound)
		}
		return decimal.Zero, domain.ErrInsufficientBalance
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("debiting account %s: %w", accountID, err)
	}

	newBalance, err := decimal.NewFromString(balanceText)
	if err != nil {
		return decimal.Zero, fmt.Errorf("account %s returned unparseable balance %q: %w", accountID, balanceText, err)
	}
	return newBalance, nil
}
