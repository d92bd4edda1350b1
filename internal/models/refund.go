package models

// RefundClaim records a requested refund for one (fund, contributor) pair.
// Claimed flips false to true exactly once, at payout; the record is then
// immutable.
type RefundClaim struct {
	// FundID is the campaign the refund is drawn from.
	FundID int64

	// Contributor is the account the refund pays out to.
	Contributor string

	// Amount is the contributor's balance at the time of the request.
	Amount int64

	// Claimed reports whether the refund has been paid out.
	Claimed bool

	// CreatedAt is the Unix timestamp when the refund was requested.
	CreatedAt int64
}
