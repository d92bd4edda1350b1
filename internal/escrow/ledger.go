// Package escrow implements the milestone-based conditional escrow ledger.
//
// The Ledger custodies pooled contributions for relocation funding
// campaigns, releases funds only against oracle-verified milestones, and
// provides a time-boxed refund path when a campaign stalls or is
// cancelled. Funds move through an injected Treasury; milestone proofs
// are checked by an injected Oracle. All validation happens before any
// side effect, so a failing operation leaves state untouched.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/movebridge/relofund/internal/models"
	"github.com/movebridge/relofund/internal/storage"
)

const (
	// MaxDonors bounds a fund's append-only donor history.
	MaxDonors = 200

	// MaxMilestones bounds a fund's release schedule.
	MaxMilestones = 5

	// DefaultMilestoneName is used when a fund is created without an
	// explicit schedule; the single milestone carries the configured
	// default percent.
	DefaultMilestoneName = "completion"
)

// Treasury moves value between accounts. A failed move aborts the whole
// enclosing ledger operation.
type Treasury interface {
	Move(ctx context.Context, amount int64, from, to string) error
}

// Oracle verifies milestone completion proofs. The ledger treats the
// proof bytes as opaque.
type Oracle interface {
	VerifyProof(ctx context.Context, fundID int64, milestone string, proof []byte) (bool, error)
}

// OracleDialer builds an Oracle client for a verifier address. Injected
// so the ledger can be tested against fakes.
type OracleDialer func(addr string) Oracle

// MilestoneSpec describes one milestone at fund creation.
type MilestoneSpec struct {
	Name    string
	Percent int64
}

// Options configures a Ledger at construction. Admin identity, refund
// window, and capacity ceiling are fixed for the process lifetime; the
// oracle binding and default percent are mutated only through the gated
// setters.
type Options struct {
	// Admin is the administrator account id.
	Admin string

	// Custody is the treasury account holding contributed funds prior
	// to release or refund.
	Custody string

	// RefundWindow is how long after creation a non-cancelled campaign
	// stays refund-eligible.
	RefundWindow time.Duration

	// MaxFunds is the exclusive upper bound on fund ids.
	MaxFunds int64

	// Dial builds oracle clients for SetOracle.
	Dial OracleDialer

	// Now supplies the clock; defaults to time.Now.
	Now func() time.Time
}

// Ledger is the escrow engine. All mutating operations on the same fund
// id are serialized through a per-id lock; operations on different ids
// proceed independently.
type Ledger struct {
	store    storage.Store
	treasury Treasury
	dial     OracleDialer
	now      func() time.Time

	admin        string
	custody      string
	refundWindow time.Duration
	maxFunds     int64

	// cfgMu guards the runtime-mutable configuration below.
	cfgMu          sync.Mutex
	oracle         Oracle
	oracleAddr     string
	defaultPercent int64

	locks *lockTable
}

// New creates a Ledger over the given store and treasury.
func New(store storage.Store, treasury Treasury, opts Options) *Ledger {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Custody == "" {
		opts.Custody = "escrow:custody"
	}
	return &Ledger{
		store:          store,
		treasury:       treasury,
		dial:           opts.Dial,
		now:            opts.Now,
		admin:          opts.Admin,
		custody:        opts.Custody,
		refundWindow:   opts.RefundWindow,
		maxFunds:       opts.MaxFunds,
		defaultPercent: 100,
		locks:          newLockTable(),
	}
}

// InitFunds creates the escrow record for a new campaign. The caller
// must be the owner, the id must sit below the capacity ceiling, and the
// milestone percents must sum to exactly 100. An empty spec list yields
// a single milestone at the configured default percent.
func (l *Ledger) InitFunds(ctx context.Context, caller string, id int64, owner string, specs []MilestoneSpec) (int64, error) {
	if caller == "" || caller != owner {
		return 0, ErrUnauthorized
	}
	if id < 0 || id >= l.maxFunds {
		return 0, ErrCapacityExceeded
	}
	if len(specs) == 0 {
		specs = []MilestoneSpec{{Name: DefaultMilestoneName, Percent: l.DefaultPercent()}}
	}
	milestones, err := buildMilestones(specs)
	if err != nil {
		return 0, err
	}

	unlock := l.lock(id)
	defer unlock()

	fund := &models.Fund{
		ID:         id,
		Owner:      owner,
		Status:     models.StatusPending,
		Milestones: milestones,
		CreatedAt:  l.now().Unix(),
	}
	if err := l.store.CreateFund(ctx, fund); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return 0, ErrFundExists
		}
		return 0, fmt.Errorf("create fund: %w", err)
	}
	slog.Info("Fund created", "fund_id", id, "owner", owner, "milestones", len(milestones))
	return id, nil
}

// buildMilestones validates a milestone schedule: at most MaxMilestones
// entries, unique names, each percent in 0-100, percents summing to
// exactly 100.
func buildMilestones(specs []MilestoneSpec) ([]models.Milestone, error) {
	if len(specs) > MaxMilestones {
		return nil, ErrInvalidPercent
	}
	seen := make(map[string]bool, len(specs))
	var sum int64
	milestones := make([]models.Milestone, len(specs))
	for i, spec := range specs {
		if spec.Name == "" || seen[spec.Name] {
			return nil, ErrInvalidPercent
		}
		if spec.Percent < 0 || spec.Percent > 100 {
			return nil, ErrInvalidPercent
		}
		seen[spec.Name] = true
		sum += spec.Percent
		milestones[i] = models.Milestone{Name: spec.Name, Percent: spec.Percent}
	}
	if sum != 100 {
		return nil, ErrInvalidPercent
	}
	return milestones, nil
}

// Donate transfers amount from the caller into custody and records it
// against the fund. Returns the new fund total.
func (l *Ledger) Donate(ctx context.Context, caller string, id, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	unlock := l.lock(id)
	defer unlock()

	fund, err := l.getFund(ctx, id)
	if err != nil {
		return 0, err
	}
	if len(fund.Donors) >= MaxDonors {
		return 0, ErrDonorCapacityExceeded
	}
	if fund.TotalRaised > math.MaxInt64-amount {
		return 0, ErrAmountOverflow
	}

	if err := l.treasury.Move(ctx, amount, caller, l.custody); err != nil {
		return 0, fmt.Errorf("donation transfer: %w", err)
	}
	total, err := l.store.RecordDonation(ctx, id, caller, amount)
	if err != nil {
		// Put the money back so a failed write leaves no value
		// stranded in custody.
		if rbErr := l.treasury.Move(ctx, amount, l.custody, caller); rbErr != nil {
			slog.Error("Failed to reverse donation transfer", "fund_id", id, "contributor", caller, "amount", amount, "error", rbErr)
		}
		return 0, fmt.Errorf("record donation: %w", err)
	}
	slog.Info("Donation recorded", "fund_id", id, "contributor", caller, "amount", amount, "total_raised", total)
	return total, nil
}

// ReleaseMilestone pays out one milestone's share to the fund owner.
// Requires a configured oracle, an unpaid milestone, status approved,
// and an accepted proof. The share is floor(totalRaised*percent/100),
// capped at the funds still in custody so released never exceeds
// totalRaised. Marking the milestone paid is irrevocable.
func (l *Ledger) ReleaseMilestone(ctx context.Context, id int64, name string, proof []byte) (int64, error) {
	oracle := l.currentOracle()
	if oracle == nil {
		return 0, ErrOracleNotVerified
	}

	unlock := l.lock(id)
	defer unlock()

	fund, err := l.getFund(ctx, id)
	if err != nil {
		return 0, err
	}
	milestone := fund.Milestone(name)
	if milestone == nil {
		return 0, ErrMilestoneNotFound
	}
	if milestone.Paid {
		return 0, ErrMilestonePaid
	}
	if fund.Status != models.StatusApproved {
		return 0, ErrWrongStatus
	}

	accepted, err := oracle.VerifyProof(ctx, id, name, proof)
	if err != nil {
		return 0, fmt.Errorf("verify proof: %w", err)
	}
	if !accepted {
		return 0, ErrProofRejected
	}

	share := milestoneShare(fund.TotalRaised, milestone.Percent)
	if remaining := fund.Remaining(); share > remaining {
		share = remaining
	}

	if share > 0 {
		if err := l.treasury.Move(ctx, share, l.custody, fund.Owner); err != nil {
			return 0, fmt.Errorf("milestone payout: %w", err)
		}
	}
	if err := l.store.MarkMilestonePaid(ctx, id, name, share); err != nil {
		if share > 0 {
			if rbErr := l.treasury.Move(ctx, share, fund.Owner, l.custody); rbErr != nil {
				slog.Error("Failed to reverse milestone payout", "fund_id", id, "milestone", name, "amount", share, "error", rbErr)
			}
		}
		return 0, fmt.Errorf("mark milestone paid: %w", err)
	}
	slog.Info("Milestone released", "fund_id", id, "milestone", name, "amount", share, "owner", fund.Owner)
	return share, nil
}

// CancelRelocation moves a pending campaign to cancelled. Cancellation
// is terminal for approvals but leaves the campaign refund-eligible
// without a deadline.
func (l *Ledger) CancelRelocation(ctx context.Context, caller string, id int64) error {
	unlock := l.lock(id)
	defer unlock()

	fund, err := l.getFund(ctx, id)
	if err != nil {
		return err
	}
	if !l.isAdminOrOwner(caller, fund.Owner) {
		return ErrUnauthorized
	}
	if fund.Status != models.StatusPending {
		return ErrWrongStatus
	}
	if err := l.store.SetFundStatus(ctx, id, models.StatusCancelled); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	slog.Info("Campaign cancelled", "fund_id", id, "caller", caller)
	return nil
}

// UpdateStatus sets the campaign status to approved or completed. Only
// the target status is validated; the current status is deliberately
// unchecked, so completed or cancelled campaigns can move back to
// approved. Cancellation has its own path.
func (l *Ledger) UpdateStatus(ctx context.Context, caller string, id int64, status models.Status) error {
	if status != models.StatusApproved && status != models.StatusCompleted {
		return ErrWrongStatus
	}

	unlock := l.lock(id)
	defer unlock()

	fund, err := l.getFund(ctx, id)
	if err != nil {
		return err
	}
	if !l.isAdminOrOwner(caller, fund.Owner) {
		return ErrUnauthorized
	}
	if err := l.store.SetFundStatus(ctx, id, status); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	slog.Info("Campaign status updated", "fund_id", id, "status", status, "caller", caller)
	return nil
}

// EmergencyWithdraw is the admin-only escape hatch: it bypasses status
// and milestone checks but can never pull more than the funds still in
// custody.
func (l *Ledger) EmergencyWithdraw(ctx context.Context, caller string, id, amount int64) (int64, error) {
	if !l.IsAdmin(caller) {
		return 0, ErrUnauthorized
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	unlock := l.lock(id)
	defer unlock()

	fund, err := l.getFund(ctx, id)
	if err != nil {
		return 0, err
	}
	if amount > fund.Remaining() {
		return 0, ErrOverdraft
	}
	if err := l.treasury.Move(ctx, amount, l.custody, caller); err != nil {
		return 0, fmt.Errorf("emergency withdrawal: %w", err)
	}
	if err := l.store.AddReleased(ctx, id, amount); err != nil {
		if rbErr := l.treasury.Move(ctx, amount, caller, l.custody); rbErr != nil {
			slog.Error("Failed to reverse emergency withdrawal", "fund_id", id, "amount", amount, "error", rbErr)
		}
		return 0, fmt.Errorf("record withdrawal: %w", err)
	}
	slog.Warn("Emergency withdrawal", "fund_id", id, "amount", amount, "admin", caller)
	return amount, nil
}

// RequestRefund records a refund claim for the caller's full balance and
// zeroes that balance so a repeat request yields nothing. Eligible when
// the campaign is cancelled, or unconditionally while the refund window
// (measured from campaign creation, uniformly for every contributor) is
// still open.
func (l *Ledger) RequestRefund(ctx context.Context, caller string, id int64) (int64, error) {
	unlock := l.lock(id)
	defer unlock()

	fund, err := l.getFund(ctx, id)
	if err != nil {
		return 0, err
	}
	contribution, err := l.store.GetContribution(ctx, id, caller)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, ErrNoContribution
	}
	if err != nil {
		return 0, fmt.Errorf("get contribution: %w", err)
	}
	balance := contribution.Balance
	if balance <= 0 {
		return 0, ErrNoContribution
	}
	if fund.Status != models.StatusCancelled {
		elapsed := l.now().Sub(time.Unix(fund.CreatedAt, 0))
		if elapsed >= l.refundWindow {
			return 0, ErrRefundIneligible
		}
	}

	claim := &models.RefundClaim{
		FundID:      id,
		Contributor: caller,
		Amount:      balance,
		CreatedAt:   l.now().Unix(),
	}
	if err := l.store.CreateRefundClaim(ctx, claim); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return 0, ErrRefundExists
		}
		return 0, fmt.Errorf("create refund claim: %w", err)
	}
	slog.Info("Refund requested", "fund_id", id, "contributor", caller, "amount", balance)
	return balance, nil
}

// ClaimRefund pays out a previously requested refund. A claim pays
// exactly once; repeat calls fail.
func (l *Ledger) ClaimRefund(ctx context.Context, caller string, id int64) error {
	unlock := l.lock(id)
	defer unlock()

	claim, err := l.store.GetRefundClaim(ctx, id, caller)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrRefundNotFound
		}
		return fmt.Errorf("get refund claim: %w", err)
	}
	if claim.Claimed {
		return ErrWithdrawalNotAllowed
	}
	if err := l.treasury.Move(ctx, claim.Amount, l.custody, caller); err != nil {
		return fmt.Errorf("refund payout: %w", err)
	}
	if err := l.store.MarkRefundClaimed(ctx, id, caller); err != nil {
		if rbErr := l.treasury.Move(ctx, claim.Amount, caller, l.custody); rbErr != nil {
			slog.Error("Failed to reverse refund payout", "fund_id", id, "contributor", caller, "amount", claim.Amount, "error", rbErr)
		}
		if errors.Is(err, storage.ErrConflict) {
			return ErrWithdrawalNotAllowed
		}
		return fmt.Errorf("mark refund claimed: %w", err)
	}
	slog.Info("Refund claimed", "fund_id", id, "contributor", caller, "amount", claim.Amount)
	return nil
}

// SetOracle binds the milestone verifier. Admin-only and one-time: once
// verification authority is set it cannot be swapped.
func (l *Ledger) SetOracle(caller, addr string) error {
	if !l.IsAdmin(caller) {
		return ErrUnauthorized
	}
	if addr == "" {
		return ErrInvalidAddress
	}
	if l.dial == nil {
		return ErrOracleNotVerified
	}
	l.cfgMu.Lock()
	defer l.cfgMu.Unlock()
	if l.oracle != nil {
		return ErrOracleConfigured
	}
	l.oracle = l.dial(addr)
	l.oracleAddr = addr
	slog.Info("Oracle configured", "address", addr)
	return nil
}

// SetDefaultPercent sets the percent used for the implicit milestone of
// funds created without a schedule. Admin-only, 0-100 inclusive.
func (l *Ledger) SetDefaultPercent(caller string, pct int64) error {
	if !l.IsAdmin(caller) {
		return ErrUnauthorized
	}
	if pct < 0 || pct > 100 {
		return ErrInvalidPercent
	}
	l.cfgMu.Lock()
	defer l.cfgMu.Unlock()
	l.defaultPercent = pct
	return nil
}

// DefaultPercent returns the configured default release percent.
func (l *Ledger) DefaultPercent() int64 {
	l.cfgMu.Lock()
	defer l.cfgMu.Unlock()
	return l.defaultPercent
}

// OracleAddr returns the bound oracle address, empty if unset.
func (l *Ledger) OracleAddr() string {
	l.cfgMu.Lock()
	defer l.cfgMu.Unlock()
	return l.oracleAddr
}

// GetFunds returns the fund record. Pure query.
func (l *Ledger) GetFunds(ctx context.Context, id int64) (*models.Fund, error) {
	return l.getFund(ctx, id)
}

// GetContributionBalance returns a contributor's refundable balance.
// Pure query; a contributor who never donated has no record.
func (l *Ledger) GetContributionBalance(ctx context.Context, id int64, contributor string) (int64, error) {
	contribution, err := l.store.GetContribution(ctx, id, contributor)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, ErrContributionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get contribution: %w", err)
	}
	return contribution.Balance, nil
}

// GetRefundClaim returns a refund claim. Pure query.
func (l *Ledger) GetRefundClaim(ctx context.Context, id int64, contributor string) (*models.RefundClaim, error) {
	claim, err := l.store.GetRefundClaim(ctx, id, contributor)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRefundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get refund claim: %w", err)
	}
	return claim, nil
}

func (l *Ledger) getFund(ctx context.Context, id int64) (*models.Fund, error) {
	fund, err := l.store.GetFund(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrFundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fund: %w", err)
	}
	return fund, nil
}

func (l *Ledger) currentOracle() Oracle {
	l.cfgMu.Lock()
	defer l.cfgMu.Unlock()
	return l.oracle
}

func (l *Ledger) lock(id int64) func() {
	m := l.locks.get(id)
	m.Lock()
	return m.Unlock
}
