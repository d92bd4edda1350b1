package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/movebridge/relofund/internal/models"
	"github.com/movebridge/relofund/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestFundStorage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fund := &models.Fund{
		ID:     1,
		Owner:  "owner-1",
		Status: models.StatusPending,
		Milestones: []models.Milestone{
			{Name: "arrival", Percent: 50},
			{Name: "settled", Percent: 50},
		},
		CreatedAt: 1700000000,
	}

	t.Run("CreateFund and GetFund round trip", func(t *testing.T) {
		if err := store.CreateFund(ctx, fund); err != nil {
			t.Fatalf("CreateFund failed: %v", err)
		}

		got, err := store.GetFund(ctx, 1)
		if err != nil {
			t.Fatalf("GetFund failed: %v", err)
		}
		if got.Owner != fund.Owner || got.Status != fund.Status || got.CreatedAt != fund.CreatedAt {
			t.Errorf("fund mismatch: got %+v, want %+v", got, fund)
		}
		if len(got.Milestones) != 2 {
			t.Fatalf("milestones = %d, want 2", len(got.Milestones))
		}
		// Milestones keep creation order.
		if got.Milestones[0].Name != "arrival" || got.Milestones[1].Name != "settled" {
			t.Errorf("milestone order = %v", got.Milestones)
		}
	})

	t.Run("CreateFund rejects duplicate id", func(t *testing.T) {
		err := store.CreateFund(ctx, fund)
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("error = %v, want ErrConflict", err)
		}
	})

	t.Run("GetFund returns ErrNotFound for unknown id", func(t *testing.T) {
		_, err := store.GetFund(ctx, 99)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("RecordDonation accumulates", func(t *testing.T) {
		total, err := store.RecordDonation(ctx, 1, "alice", 300)
		if err != nil {
			t.Fatalf("RecordDonation failed: %v", err)
		}
		if total != 300 {
			t.Errorf("total = %d, want 300", total)
		}

		total, err = store.RecordDonation(ctx, 1, "alice", 200)
		if err != nil {
			t.Fatalf("RecordDonation failed: %v", err)
		}
		if total != 500 {
			t.Errorf("total = %d, want 500", total)
		}

		got, _ := store.GetFund(ctx, 1)
		if len(got.Donors) != 2 {
			t.Errorf("donors = %d, want 2", len(got.Donors))
		}
		if got.Donors[0].Amount != 300 || got.Donors[1].Amount != 200 {
			t.Errorf("donor history out of order: %v", got.Donors)
		}

		contribution, err := store.GetContribution(ctx, 1, "alice")
		if err != nil {
			t.Fatalf("GetContribution failed: %v", err)
		}
		if contribution.Balance != 500 {
			t.Errorf("balance = %d, want 500", contribution.Balance)
		}
	})

	t.Run("MarkMilestonePaid is one-shot", func(t *testing.T) {
		if err := store.MarkMilestonePaid(ctx, 1, "arrival", 250); err != nil {
			t.Fatalf("MarkMilestonePaid failed: %v", err)
		}
		got, _ := store.GetFund(ctx, 1)
		if !got.Milestones[0].Paid {
			t.Error("milestone not marked paid")
		}
		if got.Released != 250 {
			t.Errorf("released = %d, want 250", got.Released)
		}

		err := store.MarkMilestonePaid(ctx, 1, "arrival", 250)
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("second mark error = %v, want ErrConflict", err)
		}
		// A failed mark must not bump released.
		got, _ = store.GetFund(ctx, 1)
		if got.Released != 250 {
			t.Errorf("released changed by failed mark: %d", got.Released)
		}
	})

	t.Run("SetFundStatus", func(t *testing.T) {
		if err := store.SetFundStatus(ctx, 1, models.StatusApproved); err != nil {
			t.Fatalf("SetFundStatus failed: %v", err)
		}
		got, _ := store.GetFund(ctx, 1)
		if got.Status != models.StatusApproved {
			t.Errorf("status = %s, want approved", got.Status)
		}

		if err := store.SetFundStatus(ctx, 99, models.StatusApproved); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("AddReleased", func(t *testing.T) {
		if err := store.AddReleased(ctx, 1, 100); err != nil {
			t.Fatalf("AddReleased failed: %v", err)
		}
		got, _ := store.GetFund(ctx, 1)
		if got.Released != 350 {
			t.Errorf("released = %d, want 350", got.Released)
		}
	})
}

func TestRefundStorage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fund := &models.Fund{ID: 1, Owner: "owner-1", Status: models.StatusPending, CreatedAt: 1700000000}
	if err := store.CreateFund(ctx, fund); err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}
	if _, err := store.RecordDonation(ctx, 1, "alice", 700); err != nil {
		t.Fatalf("RecordDonation failed: %v", err)
	}

	t.Run("GetContribution unknown contributor", func(t *testing.T) {
		_, err := store.GetContribution(ctx, 1, "nobody")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("CreateRefundClaim zeroes balance", func(t *testing.T) {
		claim := &models.RefundClaim{FundID: 1, Contributor: "alice", Amount: 700, CreatedAt: 1700000100}
		if err := store.CreateRefundClaim(ctx, claim); err != nil {
			t.Fatalf("CreateRefundClaim failed: %v", err)
		}

		contribution, err := store.GetContribution(ctx, 1, "alice")
		if err != nil {
			t.Fatalf("GetContribution failed: %v", err)
		}
		if contribution.Balance != 0 {
			t.Errorf("balance = %d, want 0", contribution.Balance)
		}

		got, err := store.GetRefundClaim(ctx, 1, "alice")
		if err != nil {
			t.Fatalf("GetRefundClaim failed: %v", err)
		}
		if got.Amount != 700 || got.Claimed {
			t.Errorf("claim = %+v, want unclaimed 700", got)
		}
	})

	t.Run("duplicate claim conflicts", func(t *testing.T) {
		claim := &models.RefundClaim{FundID: 1, Contributor: "alice", Amount: 1, CreatedAt: 1700000200}
		if err := store.CreateRefundClaim(ctx, claim); !errors.Is(err, storage.ErrConflict) {
			t.Errorf("error = %v, want ErrConflict", err)
		}
	})

	t.Run("MarkRefundClaimed flips once", func(t *testing.T) {
		if err := store.MarkRefundClaimed(ctx, 1, "alice"); err != nil {
			t.Fatalf("MarkRefundClaimed failed: %v", err)
		}
		got, _ := store.GetRefundClaim(ctx, 1, "alice")
		if !got.Claimed {
			t.Error("claim not marked claimed")
		}

		if err := store.MarkRefundClaimed(ctx, 1, "alice"); !errors.Is(err, storage.ErrConflict) {
			t.Errorf("second mark error = %v, want ErrConflict", err)
		}
	})

	t.Run("GetRefundClaim unknown pair", func(t *testing.T) {
		_, err := store.GetRefundClaim(ctx, 1, "nobody")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestBalanceStorage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("untouched account reads zero", func(t *testing.T) {
		balance, err := store.GetBalance(ctx, "nobody")
		if err != nil {
			t.Fatalf("GetBalance failed: %v", err)
		}
		if balance != 0 {
			t.Errorf("balance = %d, want 0", balance)
		}
	})

	t.Run("credit and move", func(t *testing.T) {
		if err := store.CreditBalance(ctx, "alice", 500); err != nil {
			t.Fatalf("CreditBalance failed: %v", err)
		}
		if err := store.MoveBalance(ctx, 200, "alice", "custody"); err != nil {
			t.Fatalf("MoveBalance failed: %v", err)
		}

		aliceBalance, _ := store.GetBalance(ctx, "alice")
		custodyBalance, _ := store.GetBalance(ctx, "custody")
		if aliceBalance != 300 || custodyBalance != 200 {
			t.Errorf("balances = (%d, %d), want (300, 200)", aliceBalance, custodyBalance)
		}
	})

	t.Run("overdraw fails and changes nothing", func(t *testing.T) {
		err := store.MoveBalance(ctx, 1000, "alice", "custody")
		if !errors.Is(err, storage.ErrInsufficientFunds) {
			t.Fatalf("error = %v, want ErrInsufficientFunds", err)
		}
		aliceBalance, _ := store.GetBalance(ctx, "alice")
		custodyBalance, _ := store.GetBalance(ctx, "custody")
		if aliceBalance != 300 || custodyBalance != 200 {
			t.Errorf("balances changed by failed move: (%d, %d)", aliceBalance, custodyBalance)
		}
	})
}

func TestAccountStorage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account := &models.Account{Name: "Alice", Email: "alice@example.com", PasswordHash: "hash"}

	t.Run("CreateAccount generates id", func(t *testing.T) {
		if err := store.CreateAccount(ctx, account); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		if account.ID == "" {
			t.Error("expected account ID to be generated")
		}
		if account.CreatedAt == 0 {
			t.Error("expected CreatedAt to be set")
		}
	})

	t.Run("lookup by email and id", func(t *testing.T) {
		byEmail, err := store.GetAccountByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetAccountByEmail failed: %v", err)
		}
		byID, err := store.GetAccountByID(ctx, account.ID)
		if err != nil {
			t.Fatalf("GetAccountByID failed: %v", err)
		}
		if byEmail.ID != byID.ID || byEmail.Name != "Alice" {
			t.Errorf("lookups disagree: %+v vs %+v", byEmail, byID)
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		dup := &models.Account{Name: "Other", Email: "alice@example.com", PasswordHash: "hash"}
		if err := store.CreateAccount(ctx, dup); !errors.Is(err, storage.ErrConflict) {
			t.Errorf("error = %v, want ErrConflict", err)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		if _, err := store.GetAccountByEmail(ctx, "nobody@example.com"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}
