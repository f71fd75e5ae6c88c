package database

import (
	"fmt"
	"path/filepath"

	"dropscan-go/internal/config"
	"dropscan-go/internal/ds"
)

// JournalFileName is the journal database file inside the data directory.
const JournalFileName = "journal.db"

// NewJournalFromConfig creates a journal based on the database config type.
func NewJournalFromConfig(cfg config.DatabaseConfig, clock ds.Clock) (*SQLiteJournal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		return NewSQLiteJournal(filepath.Join(cfg.DataDir, JournalFileName), clock)
	case "memory":
		return NewSQLiteJournal(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
