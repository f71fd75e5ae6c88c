package database

import (
	"os"
	"path/filepath"
	"testing"

	"dropscan-go/internal/config"
	"dropscan-go/internal/ds"
)

func TestNewJournalFromConfig(t *testing.T) {
	clock := ds.RealClock{}

	t.Run("memory database", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.DatabaseConfig{Type: "memory"}, clock)
		if err != nil {
			t.Fatalf("NewJournalFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if got.Path() != ":memory:" {
			t.Errorf("Path() = %q, want :memory:", got.Path())
		}
	})

	t.Run("sqlite database", func(t *testing.T) {
		dir := t.TempDir()
		got, err := NewJournalFromConfig(config.DatabaseConfig{Type: "sqlite", DataDir: dir}, clock)
		if err != nil {
			t.Fatalf("NewJournalFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		want := filepath.Join(dir, JournalFileName)
		if got.Path() != want {
			t.Errorf("Path() = %q, want %q", got.Path(), want)
		}
		if _, err := os.Stat(want); err != nil {
			t.Errorf("journal file not created: %v", err)
		}
	})

	t.Run("sqlite database without data_dir", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.DatabaseConfig{Type: "sqlite"}, clock)
		if err == nil {
			t.Error("NewJournalFromConfig() expected error for missing data_dir, got nil")
		}
		if got != nil {
			t.Error("NewJournalFromConfig() should return nil on error")
			got.Close()
		}
	})

	t.Run("unknown database type", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.DatabaseConfig{Type: "postgres"}, clock)
		if err == nil {
			t.Error("NewJournalFromConfig() expected error for unknown type, got nil")
		}
		if got != nil {
			t.Error("NewJournalFromConfig() should return nil on error")
			got.Close()
		}
	})
}
