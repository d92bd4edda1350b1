package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/movebridge/relofund/internal/storage"
)

// MoveBalance atomically debits from and credits to. Accounts are
// created at zero on first touch; overdrawing the source aborts the
// transaction with ErrInsufficientFunds.
func (s *SQLiteStore) MoveBalance(ctx context.Context, amount int64, from, to string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, account := range []string{from, to} {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO balances (account, balance) VALUES (?, 0) ON CONFLICT(account) DO NOTHING",
			account,
		)
		if err != nil {
			return fmt.Errorf("failed to ensure account: %w", err)
		}
	}

	var available int64
	err = tx.QueryRowContext(ctx,
		"SELECT balance FROM balances WHERE account = ?", from,
	).Scan(&available)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}
	if available < amount {
		return storage.ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE balances SET balance = balance - ? WHERE account = ?",
		amount, from,
	)
	if err != nil {
		return fmt.Errorf("failed to debit: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE balances SET balance = balance + ? WHERE account = ?",
		amount, to,
	)
	if err != nil {
		return fmt.Errorf("failed to credit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreditBalance mints amount onto an account.
func (s *SQLiteStore) CreditBalance(ctx context.Context, account string, amount int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO balances (account, balance) VALUES (?, ?)
		 ON CONFLICT(account) DO UPDATE SET balance = balance + excluded.balance`,
		account, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}

// GetBalance returns an account's balance, zero if never touched.
func (s *SQLiteStore) GetBalance(ctx context.Context, account string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		"SELECT balance FROM balances WHERE account = ?", account,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}
