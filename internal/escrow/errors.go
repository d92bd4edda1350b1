package escrow

import "errors"

// Typed errors returned by ledger operations. Every operation returns
// either a success value or exactly one of these; a failing operation
// leaves all state unchanged.
var (
	// Not found.
	ErrFundNotFound         = errors.New("fund not found")
	ErrMilestoneNotFound    = errors.New("milestone not found")
	ErrRefundNotFound       = errors.New("refund claim not found")
	ErrContributionNotFound = errors.New("no contribution recorded")

	// Unauthorized.
	ErrUnauthorized   = errors.New("caller not permitted")
	ErrNoContribution = errors.New("caller has no contribution balance")

	// Invalid input.
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidPercent        = errors.New("milestone percents must each be 0-100 and sum to exactly 100")
	ErrDonorCapacityExceeded = errors.New("donor capacity exceeded")
	ErrCapacityExceeded      = errors.New("fund id exceeds capacity ceiling")
	ErrAmountOverflow        = errors.New("amount overflows the fund total")
	ErrInvalidAddress        = errors.New("oracle address required")

	// State conflict.
	ErrWrongStatus          = errors.New("campaign status does not allow this operation")
	ErrMilestonePaid        = errors.New("milestone already paid")
	ErrFundExists           = errors.New("fund already exists")
	ErrRefundExists         = errors.New("refund already requested")
	ErrWithdrawalNotAllowed = errors.New("refund already claimed")
	ErrOracleConfigured     = errors.New("oracle already configured")

	// Oracle gate.
	ErrOracleNotVerified = errors.New("no oracle configured")
	ErrProofRejected     = errors.New("oracle rejected proof")

	// Refund eligibility.
	ErrRefundIneligible = errors.New("refund window closed and campaign not cancelled")

	// Overdraft.
	ErrOverdraft = errors.New("withdrawal exceeds funds held in custody")
)
