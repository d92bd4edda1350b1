package models

// Status is the lifecycle state of a funding campaign.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known campaign states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Milestone is a named, percentage-weighted release condition.
// Once Paid flips to true it is never reset.
type Milestone struct {
	// Name identifies the milestone within its fund (unique per fund).
	Name string

	// Percent is this milestone's share of the raised total (0-100).
	// All milestone percents of a fund sum to exactly 100.
	Percent int64

	// Paid records whether this milestone's share has been released.
	Paid bool
}

// DonorEntry is one donation in a fund's append-only donor history.
// The same contributor may appear multiple times.
type DonorEntry struct {
	Contributor string
	Amount      int64
}

// Fund is the escrow record for one relocation funding campaign.
type Fund struct {
	// ID is the caller-chosen campaign identifier, bounded by the
	// configured capacity ceiling.
	ID int64

	// Owner is the account that receives released funds.
	Owner string

	// Status is the campaign lifecycle state.
	Status Status

	// TotalRaised is the sum of all donations. Monotonic non-decreasing.
	TotalRaised int64

	// Released is the sum of all payouts (milestone releases and
	// emergency withdrawals). Monotonic non-decreasing; never exceeds
	// TotalRaised.
	Released int64

	// Milestones is the fixed release schedule set at creation.
	Milestones []Milestone

	// Donors is the append-only donation history, capacity-bounded.
	Donors []DonorEntry

	// CreatedAt is the Unix timestamp when the fund was created.
	// The refund window is measured from this instant.
	CreatedAt int64
}

// Remaining returns the funds still held in custody.
func (f *Fund) Remaining() int64 {
	return f.TotalRaised - f.Released
}

// Milestone returns the named milestone, or nil if the fund has none by
// that name.
func (f *Fund) Milestone(name string) *Milestone {
	for i := range f.Milestones {
		if f.Milestones[i].Name == name {
			return &f.Milestones[i]
		}
	}
	return nil
}
