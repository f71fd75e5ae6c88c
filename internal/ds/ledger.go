package ds

// Ledger records the canonical basenames of every artifact ever downloaded.
// Entries are never removed, so a file the user deleted locally is not
// downloaded again.
type Ledger interface {
	Contains(name string) bool
	Append(name string) error
}
