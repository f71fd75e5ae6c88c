package ds_test

import (
	"path/filepath"
	"slices"
	"testing"

	"dropscan-go/internal/ds"
	"dropscan-go/internal/testutil"
)

func TestLocalIndex_BuildOrReuse(t *testing.T) {
	lister := testutil.NewStaticLister().
		Add("/mail", "2021-03-04_AB12.pdf", "notes.txt").
		Add("/mail/Max", "2021-02-01_CD34_pdf.pdf")
	index := ds.NewLocalIndex(lister, ds.NewNopLogger())

	files, err := index.BuildOrReuse([]string{"/mail", "/mail/Max"})
	if err != nil {
		t.Fatalf("BuildOrReuse() error = %v", err)
	}
	want := []string{"/mail/2021-03-04_AB12.pdf", "/mail/notes.txt", "/mail/Max/2021-02-01_CD34_pdf.pdf"}
	if !slices.Equal(files, want) {
		t.Fatalf("BuildOrReuse() = %v, want %v", files, want)
	}
	if lister.Calls != 2 {
		t.Fatalf("expected 2 listings, got %d", lister.Calls)
	}

	t.Run("same set in another order is reused", func(t *testing.T) {
		if _, err := index.BuildOrReuse([]string{"/mail/Max/", "/mail", "/mail"}); err != nil {
			t.Fatalf("BuildOrReuse() error = %v", err)
		}
		if lister.Calls != 2 {
			t.Errorf("expected cached listing, got %d calls", lister.Calls)
		}
	})

	t.Run("different set is rebuilt", func(t *testing.T) {
		files, err := index.BuildOrReuse([]string{"/mail"})
		if err != nil {
			t.Fatalf("BuildOrReuse() error = %v", err)
		}
		if lister.Calls != 3 || len(files) != 2 {
			t.Errorf("expected rebuild with 2 files, got %d calls and %v", lister.Calls, files)
		}
	})
}

func TestLocalIndex_Find(t *testing.T) {
	lister := testutil.NewStaticLister().
		Add("/a", "2021-03-04_AB12-D.pdf").
		Add("/b", "2021-03-04_AB12.pdf", "2021-03-04_AB123.pdf")
	index := ds.NewLocalIndex(lister, ds.NewNopLogger())
	if _, err := index.BuildOrReuse([]string{"/a", "/b"}); err != nil {
		t.Fatalf("BuildOrReuse() error = %v", err)
	}

	m := sampleMailing("AB12")
	matches := index.Find(ds.MatchPattern(m, ds.KindFull))
	if len(matches) != 2 {
		t.Fatalf("Find() = %v, want 2 matches", matches)
	}

	t.Run("first in index order wins", func(t *testing.T) {
		if got := index.FindFirst(ds.MatchPattern(m, ds.KindFull)); got != filepath.Join("/a", "2021-03-04_AB12-D.pdf") {
			t.Errorf("FindFirst() = %q", got)
		}
	})

	t.Run("no match", func(t *testing.T) {
		if got := index.FindFirst(ds.MatchPattern(m, ds.KindEnvelope)); got != "" {
			t.Errorf("FindFirst() = %q, want empty", got)
		}
	})
}
