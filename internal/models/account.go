package models

// Account represents a registered actor: a contributor, a campaign owner,
// or the administrator. The account ID is the caller identity every escrow
// operation is authorized against.
type Account struct {
	// ID is the unique identifier for the account (UUID format).
	ID string

	// Name is the display name of the account.
	Name string

	// Email is the account's email address (unique). Used for login.
	Email string

	// PasswordHash is the bcrypt hash of the account's password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}
