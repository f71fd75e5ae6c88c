package testutil

import (
	"testing"

	"dropscan-go/internal/database"
)

// NewTestJournal creates an in-memory journal with the schema applied and a
// FixedClock. It is closed when the test completes.
func NewTestJournal(t *testing.T) *database.SQLiteJournal {
	t.Helper()

	j, err := database.NewSQLiteJournal(":memory:", FixedClock())
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	t.Cleanup(func() {
		j.Close()
	})
	return j
}
