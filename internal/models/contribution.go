package models

// Contribution tracks one contributor's refundable balance in one fund.
// It is created on first donation, accumulated by later donations, and
// zeroed when a refund is requested so a second request yields nothing.
type Contribution struct {
	// FundID is the campaign this balance belongs to.
	FundID int64

	// Contributor is the donating account.
	Contributor string

	// Balance is the refundable amount. Non-negative.
	Balance int64
}
