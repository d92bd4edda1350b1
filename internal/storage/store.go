// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/movebridge/relofund/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when an insert collides with an existing record.
var ErrConflict = errors.New("record already exists")

// ErrInsufficientFunds is returned by balance moves that would overdraw
// the source account.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Store defines the interface for escrow persistence. Every mutating
// method commits as a single transaction: it either applies all of its
// row changes or none. This abstraction allows swapping storage backends
// (SQLite, PostgreSQL, etc.) without changing the ledger.
type Store interface {
	// CreateFund persists a new fund with its milestone schedule.
	// Returns ErrConflict if the id is already taken.
	CreateFund(ctx context.Context, fund *models.Fund) error

	// GetFund retrieves a fund with its milestones and donor history.
	GetFund(ctx context.Context, id int64) (*models.Fund, error)

	// RecordDonation appends a donor entry, adds amount to the fund
	// total, and accumulates the contributor's refundable balance, all
	// in one transaction. Returns the new fund total.
	RecordDonation(ctx context.Context, fundID int64, contributor string, amount int64) (int64, error)

	// MarkMilestonePaid flips the milestone's paid flag and adds the
	// released amount to the fund's released counter.
	MarkMilestonePaid(ctx context.Context, fundID int64, name string, amount int64) error

	// SetFundStatus replaces the fund's lifecycle status.
	SetFundStatus(ctx context.Context, fundID int64, status models.Status) error

	// AddReleased adds amount to the fund's released counter without
	// touching milestones (emergency withdrawals).
	AddReleased(ctx context.Context, fundID int64, amount int64) error

	// GetContribution returns the contributor's refundable balance
	// record. Returns ErrNotFound when the contributor never donated.
	GetContribution(ctx context.Context, fundID int64, contributor string) (*models.Contribution, error)

	// CreateRefundClaim inserts the claim and zeroes the contributor's
	// balance in one transaction. Returns ErrConflict if a claim for
	// the pair already exists.
	CreateRefundClaim(ctx context.Context, claim *models.RefundClaim) error

	// GetRefundClaim retrieves a refund claim.
	GetRefundClaim(ctx context.Context, fundID int64, contributor string) (*models.RefundClaim, error)

	// MarkRefundClaimed flips the claim's claimed flag. Returns
	// ErrConflict if it was already claimed.
	MarkRefundClaimed(ctx context.Context, fundID int64, contributor string) error

	// CreateAccount persists a new account.
	CreateAccount(ctx context.Context, account *models.Account) error

	// GetAccountByEmail retrieves an account by its login email.
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)

	// GetAccountByID retrieves an account by id.
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)

	// MoveBalance atomically debits from and credits to. Accounts are
	// created at zero on first touch; overdrawing from returns
	// ErrInsufficientFunds.
	MoveBalance(ctx context.Context, amount int64, from, to string) error

	// CreditBalance mints amount onto an account (operator faucet).
	CreditBalance(ctx context.Context, account string, amount int64) error

	// GetBalance returns an account's balance (zero if never touched).
	GetBalance(ctx context.Context, account string) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}
