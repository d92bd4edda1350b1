// Package treasury implements the transfer collaborator over the
// store's account balances. It is the only component that moves value;
// the ledger never touches balances directly.
package treasury

import (
	"context"
	"errors"
	"fmt"

	"github.com/movebridge/relofund/internal/storage"
)

// ErrInsufficientFunds is returned when the source account cannot cover
// the transfer.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Treasury moves value between accounts held in the store. It satisfies
// the ledger's transfer collaborator interface; the assertion lives in
// the package test to keep this package free of a ledger import.
type Treasury struct {
	store storage.Store
}

// New creates a Treasury over the given store.
func New(store storage.Store) *Treasury {
	return &Treasury{store: store}
}

// Move transfers amount from one account to another. The move is
// all-or-nothing; a short source account fails with
// ErrInsufficientFunds and leaves both balances unchanged.
func (t *Treasury) Move(ctx context.Context, amount int64, from, to string) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	if err := t.store.MoveBalance(ctx, amount, from, to); err != nil {
		if errors.Is(err, storage.ErrInsufficientFunds) {
			return ErrInsufficientFunds
		}
		return fmt.Errorf("move %d from %s to %s: %w", amount, from, to, err)
	}
	return nil
}

// Credit mints amount onto an account. Operator-only entry point used
// to seed contributor balances.
func (t *Treasury) Credit(ctx context.Context, account string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	return t.store.CreditBalance(ctx, account, amount)
}

// Balance returns an account's balance.
func (t *Treasury) Balance(ctx context.Context, account string) (int64, error) {
	return t.store.GetBalance(ctx, account)
}
