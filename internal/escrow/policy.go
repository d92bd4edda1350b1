package escrow

// IsAdmin reports whether the caller is the configured administrator.
func (l *Ledger) IsAdmin(caller string) bool {
	return caller != "" && caller == l.admin
}

// isAdminOrOwner reports whether the caller may manage a fund owned by
// owner. Used by cancellation and status updates.
func (l *Ledger) isAdminOrOwner(caller, owner string) bool {
	return l.IsAdmin(caller) || (caller != "" && caller == owner)
}
