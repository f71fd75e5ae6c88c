// Package ledger implements the append-only record of downloaded artifacts.
//
// The file format is one entry per line:
//
//	<canonical basename>\t<RFC 3339 timestamp>\n
//
// Only the first column is used for lookups. Existing lines are never rewritten.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"dropscan-go/internal/ds"
)

// DefaultFileName is the ledger file created in the target directory.
const DefaultFileName = "dropscan.sync"

const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// FileLedger is a ledger backed by a flat text file.
type FileLedger struct {
	mu      sync.Mutex
	path    string
	clock   ds.Clock
	entries map[string]bool
}

// Open loads the ledger at path. A missing file is an empty ledger; the file
// is created on the first Append.
func Open(path string, clock ds.Clock) (*FileLedger, error) {
	l := &FileLedger{path: path, clock: clock, entries: make(map[string]bool)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name, _, _ := strings.Cut(scanner.Text(), "\t")
		name = strings.TrimSpace(name)
		if name != "" {
			l.entries[name] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return l, nil
}

func (l *FileLedger) Path() string { return l.path }

// Len returns the number of distinct names in the ledger.
func (l *FileLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *FileLedger) Contains(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[name]
}

// Append writes one entry and syncs the file before returning.
func (l *FileLedger) Append(name string) error {
	if name == "" || strings.ContainsAny(name, "\t\n") {
		return fmt.Errorf("invalid ledger name: %q", name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger for append: %w", err)
	}

	line := name + "\t" + l.clock.Now().Format(timestampLayout) + "\n"
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("writing ledger entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing ledger: %w", err)
	}

	l.entries[name] = true
	return nil
}

// MemoryLedger keeps entries in memory only. Use in tests and dry runs.
type MemoryLedger struct {
	mu      sync.Mutex
	entries []string
}

func NewMemoryLedger(names ...string) *MemoryLedger {
	return &MemoryLedger{entries: append([]string{}, names...)}
}

func (l *MemoryLedger) Contains(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Contains(l.entries, name)
}

func (l *MemoryLedger) Append(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, name)
	return nil
}

// Entries returns every appended name in order, duplicates included.
func (l *MemoryLedger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.entries...)
}

var (
	_ ds.Ledger = (*FileLedger)(nil)
	_ ds.Ledger = (*MemoryLedger)(nil)
)
