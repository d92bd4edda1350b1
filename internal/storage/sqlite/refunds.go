package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/movebridge/relofund/internal/models"
	"github.com/movebridge/relofund/internal/storage"
)

// GetContribution returns the contributor's refundable balance record.
func (s *SQLiteStore) GetContribution(ctx context.Context, fundID int64, contributor string) (*models.Contribution, error) {
	contribution := &models.Contribution{FundID: fundID, Contributor: contributor}
	err := s.db.QueryRowContext(ctx,
		"SELECT balance FROM contributions WHERE fund_id = ? AND contributor = ?",
		fundID, contributor,
	).Scan(&contribution.Balance)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return contribution, nil
}

// CreateRefundClaim inserts the claim and zeroes the contributor's
// balance in one transaction.
func (s *SQLiteStore) CreateRefundClaim(ctx context.Context, claim *models.RefundClaim) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO refund_claims (fund_id, contributor, amount, claimed, created_at) VALUES (?, ?, ?, 0, ?)",
		claim.FundID, claim.Contributor, claim.Amount, claim.CreatedAt,
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert refund claim: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE contributions SET balance = 0 WHERE fund_id = ? AND contributor = ?",
		claim.FundID, claim.Contributor,
	)
	if err != nil {
		return fmt.Errorf("failed to zero contribution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetRefundClaim retrieves a refund claim.
func (s *SQLiteStore) GetRefundClaim(ctx context.Context, fundID int64, contributor string) (*models.RefundClaim, error) {
	claim := &models.RefundClaim{}
	err := s.db.QueryRowContext(ctx,
		"SELECT fund_id, contributor, amount, claimed, created_at FROM refund_claims WHERE fund_id = ? AND contributor = ?",
		fundID, contributor,
	).Scan(&claim.FundID, &claim.Contributor, &claim.Amount, &claim.Claimed, &claim.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refund claim: %w", err)
	}
	return claim, nil
}

// MarkRefundClaimed flips the claim's claimed flag exactly once.
func (s *SQLiteStore) MarkRefundClaimed(ctx context.Context, fundID int64, contributor string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE refund_claims SET claimed = 1 WHERE fund_id = ? AND contributor = ? AND claimed = 0",
		fundID, contributor,
	)
	if err != nil {
		return fmt.Errorf("failed to mark refund claimed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check claim update: %w", err)
	}
	if n == 0 {
		return storage.ErrConflict
	}
	return nil
}
