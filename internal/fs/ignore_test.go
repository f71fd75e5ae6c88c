package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("drops blank lines and comments", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# scans I keep by hand", "*.txt"})
		if len(m.rules) != 1 {
			t.Fatalf("expected 1 rule, got %d", len(m.rules))
		}
		if m.rules[0].glob != "*.txt" {
			t.Errorf("expected *.txt, got %s", m.rules[0].glob)
		}
	})

	t.Run("globs with a slash match the path", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"*.txt", "archive/*.pdf"})
		if m.rules[0].fullPath {
			t.Error("*.txt should match basenames")
		}
		if !m.rules[1].fullPath {
			t.Error("archive/*.pdf should match paths")
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name  string
		globs []string
		path  string
		want  bool
	}{
		{"in-flight download", DefaultIgnorePatterns, ".tmp-123456", true},
		{"ledger file", DefaultIgnorePatterns, "dropscan.sync", true},
		{"ignore file itself", DefaultIgnorePatterns, filepath.Join("mail", IgnoreFileName), true},
		{"canonical artifact is visible", DefaultIgnorePatterns, "2021-03-04_AB12_pdf.pdf", false},
		{"basename glob in subfolder", []string{"*.txt"}, filepath.Join("Max", "notes.txt"), true},
		{"path glob", []string{"archive/*.pdf"}, filepath.Join("archive", "2020-01-01_XY.pdf"), true},
		{"path glob wrong folder", []string{"archive/*.pdf"}, filepath.Join("mail", "2020-01-01_XY.pdf"), false},
		{"malformed glob never matches", []string{"[", "*.txt"}, "a.txt", true},
		{"no globs", nil, "anything.pdf", false},
		{"empty path", []string{"*.pdf"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewIgnoreMatcher(tt.globs).Match(tt.path)
			if got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	t.Run("nil matcher ignores nothing", func(t *testing.T) {
		var m *IgnoreMatcher
		if m.Match("x.pdf") {
			t.Error("nil matcher should not match")
		}
	})
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("returns raw lines", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, IgnoreFileName)
		if err := os.WriteFile(path, []byte("*.txt\n# comment\n\narchive/*\n"), 0644); err != nil {
			t.Fatalf("writing ignore file: %v", err)
		}

		globs, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if len(globs) != 4 {
			t.Fatalf("expected 4 raw lines, got %d", len(globs))
		}
		if m := NewIgnoreMatcher(globs); len(m.rules) != 2 {
			t.Errorf("expected 2 rules, got %d", len(m.rules))
		}
	})

	t.Run("missing file yields nothing", func(t *testing.T) {
		t.Parallel()
		globs, err := ParseIgnoreFile(filepath.Join(t.TempDir(), IgnoreFileName))
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if globs != nil {
			t.Errorf("expected nil, got %v", globs)
		}
	})
}

func TestLoadIgnoreMatcher(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, IgnoreFileName), []byte("*.txt\n"), 0644); err != nil {
		t.Fatalf("writing ignore file: %v", err)
	}

	m, err := LoadIgnoreMatcher(dir, []string{"*.zip"})
	if err != nil {
		t.Fatalf("LoadIgnoreMatcher() error = %v", err)
	}
	for _, name := range []string{".tmp-1", "a.zip", "b.txt"} {
		if !m.Match(name) {
			t.Errorf("expected %s to be ignored", name)
		}
	}
	if m.Match("2021-03-04_AB12.pdf") {
		t.Error("artifact should not be ignored")
	}
}
