package ledger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dropscan-go/internal/ledger"
	"dropscan-go/internal/testutil"
)

func TestOpen(t *testing.T) {
	t.Run("missing file is an empty ledger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ledger.DefaultFileName)
		l, err := ledger.Open(path, testutil.FixedClock())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if l.Len() != 0 {
			t.Errorf("Len() = %d", l.Len())
		}
		if testutil.Exists(path) {
			t.Error("Open() created the file")
		}
	})

	t.Run("reads first column only", func(t *testing.T) {
		path := testutil.WriteFile(t, filepath.Join(t.TempDir(), ledger.DefaultFileName),
			"2021-03-04_AB12_envelope.jpg\t2021-03-05T10:00:00.123456\n"+
				"\n"+
				"2021-03-04_AB12_pdf.pdf\n"+
				"2021-03-04_AB12_envelope.jpg\t2021-03-06T10:00:00\n")
		l, err := ledger.Open(path, testutil.FixedClock())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if l.Len() != 2 {
			t.Errorf("Len() = %d, want 2", l.Len())
		}
		for _, name := range []string{"2021-03-04_AB12_envelope.jpg", "2021-03-04_AB12_pdf.pdf"} {
			if !l.Contains(name) {
				t.Errorf("Contains(%q) = false", name)
			}
		}
		if l.Contains("2021-03-04_AB12.pdf") {
			t.Error("Contains() matched a name that was never appended")
		}
	})
}

func TestFileLedger_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), ledger.DefaultFileName)
	testutil.WriteFile(t, path, "old.jpg\t2020-01-01T00:00:00\n")

	l, err := ledger.Open(path, testutil.FixedClock())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := l.Append("2021-03-04_AB12_pdf.pdf"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading ledger: %v", err)
	}
	want := "old.jpg\t2020-01-01T00:00:00\n2021-03-04_AB12_pdf.pdf\t2021-03-10T09:00:00.000000Z\n"
	if string(data) != want {
		t.Errorf("ledger file = %q, want %q", data, want)
	}

	reopened, err := ledger.Open(path, testutil.FixedClock())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if !reopened.Contains("2021-03-04_AB12_pdf.pdf") || !reopened.Contains("old.jpg") {
		t.Error("entries lost after reopen")
	}

	t.Run("rejects names that would corrupt the file", func(t *testing.T) {
		for _, bad := range []string{"", "a\tb", "a\nb"} {
			if err := l.Append(bad); err == nil {
				t.Errorf("Append(%q) succeeded", bad)
			}
		}
		data, _ := os.ReadFile(path)
		if n := strings.Count(string(data), "\n"); n != 2 {
			t.Errorf("ledger has %d lines, want 2", n)
		}
	})
}

func TestMemoryLedger(t *testing.T) {
	l := ledger.NewMemoryLedger("a.jpg")
	l.Append("b.pdf")
	l.Append("b.pdf")
	if !l.Contains("a.jpg") || !l.Contains("b.pdf") || l.Contains("c.pdf") {
		t.Error("unexpected Contains() result")
	}
	if got := l.Entries(); len(got) != 3 {
		t.Errorf("Entries() = %v", got)
	}
}
