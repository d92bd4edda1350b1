package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/movebridge/relofund/internal/models"
	"github.com/movebridge/relofund/internal/storage"
)

// CreateFund persists a new fund with its milestone schedule.
func (s *SQLiteStore) CreateFund(ctx context.Context, fund *models.Fund) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO funds (id, owner, status, total_raised, released, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		fund.ID, fund.Owner, fund.Status, fund.TotalRaised, fund.Released, fund.CreatedAt,
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert fund: %w", err)
	}

	for i, m := range fund.Milestones {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO milestones (fund_id, name, percent, paid, position) VALUES (?, ?, ?, ?, ?)",
			fund.ID, m.Name, m.Percent, m.Paid, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert milestone: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetFund retrieves a fund by ID, including milestones and donor history.
func (s *SQLiteStore) GetFund(ctx context.Context, id int64) (*models.Fund, error) {
	fund := &models.Fund{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, owner, status, total_raised, released, created_at FROM funds WHERE id = ?",
		id,
	).Scan(&fund.ID, &fund.Owner, &fund.Status, &fund.TotalRaised, &fund.Released, &fund.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fund: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, percent, paid FROM milestones WHERE fund_id = ? ORDER BY position",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get milestones: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Milestone
		if err := rows.Scan(&m.Name, &m.Percent, &m.Paid); err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		fund.Milestones = append(fund.Milestones, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate milestones: %w", err)
	}

	donorRows, err := s.db.QueryContext(ctx,
		"SELECT contributor, amount FROM donors WHERE fund_id = ? ORDER BY position",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get donors: %w", err)
	}
	defer donorRows.Close()

	for donorRows.Next() {
		var d models.DonorEntry
		if err := donorRows.Scan(&d.Contributor, &d.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan donor: %w", err)
		}
		fund.Donors = append(fund.Donors, d)
	}
	if err := donorRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate donors: %w", err)
	}

	return fund, nil
}

// RecordDonation appends a donor entry, bumps the fund total, and
// accumulates the contributor's refundable balance in one transaction.
func (s *SQLiteStore) RecordDonation(ctx context.Context, fundID int64, contributor string, amount int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO donors (fund_id, position, contributor, amount)
		 VALUES (?, (SELECT COUNT(*) FROM donors WHERE fund_id = ?), ?, ?)`,
		fundID, fundID, contributor, amount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert donor: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE funds SET total_raised = total_raised + ? WHERE id = ?",
		amount, fundID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update fund total: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO contributions (fund_id, contributor, balance) VALUES (?, ?, ?)
		 ON CONFLICT(fund_id, contributor) DO UPDATE SET balance = balance + excluded.balance`,
		fundID, contributor, amount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update contribution: %w", err)
	}

	var total int64
	err = tx.QueryRowContext(ctx,
		"SELECT total_raised FROM funds WHERE id = ?", fundID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to read fund total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return total, nil
}

// MarkMilestonePaid flips the milestone's paid flag and adds the
// released amount to the fund's released counter.
func (s *SQLiteStore) MarkMilestonePaid(ctx context.Context, fundID int64, name string, amount int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE milestones SET paid = 1 WHERE fund_id = ? AND name = ? AND paid = 0",
		fundID, name,
	)
	if err != nil {
		return fmt.Errorf("failed to mark milestone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check milestone update: %w", err)
	}
	if n == 0 {
		return storage.ErrConflict
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE funds SET released = released + ? WHERE id = ?",
		amount, fundID,
	)
	if err != nil {
		return fmt.Errorf("failed to update released: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetFundStatus replaces the fund's lifecycle status.
func (s *SQLiteStore) SetFundStatus(ctx context.Context, fundID int64, status models.Status) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE funds SET status = ? WHERE id = ?",
		status, fundID,
	)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status update: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddReleased adds amount to the fund's released counter.
func (s *SQLiteStore) AddReleased(ctx context.Context, fundID int64, amount int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE funds SET released = released + ? WHERE id = ?",
		amount, fundID,
	)
	if err != nil {
		return fmt.Errorf("failed to update released: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check released update: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
