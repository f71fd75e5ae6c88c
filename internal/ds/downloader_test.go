package ds_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"dropscan-go/internal/ds"
	"dropscan-go/internal/testutil"
)

func TestDownloader_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("stores under canonical name", func(t *testing.T) {
		dir := t.TempDir()
		m := testutil.NewMailing("1", "AB12", created, ds.StatusScanned)
		catalog := testutil.NewFakeCatalog().Serve(ds.FilterScanned, m)
		d := ds.NewDownloader(catalog, dir, ds.NewNopLogger())

		res := d.Fetch(ctx, m, ds.KindEnvelope)
		if res.Status != ds.FetchStored {
			t.Fatalf("Fetch() status = %s, err = %v", res.Status, res.Err)
		}
		if want := filepath.Join(dir, "2021-03-04_AB12_envelope.jpg"); res.Path != want {
			t.Errorf("Fetch() path = %q, want %q", res.Path, want)
		}
		if got := testutil.ReadFile(t, res.Path); got != "envelope AB12" {
			t.Errorf("payload = %q", got)
		}
	})

	t.Run("pdf before scanning is unavailable", func(t *testing.T) {
		dir := t.TempDir()
		m := testutil.NewMailing("1", "AB12", created, ds.StatusReceived)
		catalog := testutil.NewFakeCatalog().Serve(ds.FilterReceived, m)
		d := ds.NewDownloader(catalog, dir, ds.NewNopLogger())

		res := d.Fetch(ctx, m, ds.KindPDF)
		if res.Status != ds.FetchUnavailable || res.Err != nil {
			t.Fatalf("Fetch() = %s, %v; want unavailable", res.Status, res.Err)
		}
		if catalog.DownloadCount() != 0 {
			t.Error("unavailable artifact was requested")
		}
	})

	t.Run("uses existing recipient folder", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteFile(t, filepath.Join(dir, "Max", "keep"), "")
		m := testutil.NewMailing("1", "AB12", created, ds.StatusScanned)
		catalog := testutil.NewFakeCatalog().Serve(ds.FilterScanned, m)
		d := ds.NewDownloader(catalog, dir, ds.NewNopLogger())

		res := d.Fetch(ctx, m, ds.KindPDF)
		if want := filepath.Join(dir, "Max", "2021-03-04_AB12_pdf.pdf"); res.Path != want {
			t.Errorf("Fetch() path = %q, want %q", res.Path, want)
		}
	})

	t.Run("transport failure leaves nothing behind", func(t *testing.T) {
		dir := t.TempDir()
		m := testutil.NewMailing("1", "AB12", created, ds.StatusScanned)
		catalog := testutil.NewFakeCatalog().Serve(ds.FilterScanned, m)
		catalog.FailURLs[m.EnvelopeURL] = true
		d := ds.NewDownloader(catalog, dir, ds.NewNopLogger())

		res := d.Fetch(ctx, m, ds.KindEnvelope)
		if res.Status != ds.FetchFailed || res.Err == nil {
			t.Fatalf("Fetch() = %s, %v; want failed", res.Status, res.Err)
		}
		if names := testutil.Names(t, dir); len(names) != 0 {
			t.Errorf("expected empty folder, got %v", names)
		}
	})

	t.Run("never overwrites", func(t *testing.T) {
		dir := t.TempDir()
		existing := testutil.WriteFile(t, filepath.Join(dir, "2021-03-04_AB12_envelope.jpg"), "mine")
		m := testutil.NewMailing("1", "AB12", created, ds.StatusScanned)
		catalog := testutil.NewFakeCatalog().Serve(ds.FilterScanned, m)
		d := ds.NewDownloader(catalog, dir, ds.NewNopLogger())

		res := d.Fetch(ctx, m, ds.KindEnvelope)
		if res.Status != ds.FetchFailed || !errors.Is(res.Err, ds.ErrDestinationExists) {
			t.Fatalf("Fetch() = %s, %v; want destination exists", res.Status, res.Err)
		}
		if testutil.ReadFile(t, existing) != "mine" {
			t.Error("existing file was overwritten")
		}
	})

	t.Run("merged and archive kinds cannot be fetched", func(t *testing.T) {
		m := testutil.NewMailing("1", "AB12", created, ds.StatusScanned)
		d := ds.NewDownloader(testutil.NewFakeCatalog(), t.TempDir(), ds.NewNopLogger())
		for _, kind := range []ds.Kind{ds.KindFull, ds.KindArchive} {
			if res := d.Fetch(ctx, m, kind); res.Status != ds.FetchFailed {
				t.Errorf("Fetch(%s) = %s, want failed", kind, res.Status)
			}
		}
	})

	t.Run("explicit destination", func(t *testing.T) {
		dir := t.TempDir()
		m := testutil.NewMailing("1", "AB12", created, ds.StatusScanned)
		catalog := testutil.NewFakeCatalog().Serve(ds.FilterScanned, m)
		d := ds.NewDownloader(catalog, dir, ds.NewNopLogger())

		dest := filepath.Join(dir, "demo_pdf.pdf")
		if res := d.FetchTo(ctx, m, ds.KindPDF, dest); res.Status != ds.FetchStored {
			t.Fatalf("FetchTo() = %s, %v", res.Status, res.Err)
		}
		if !slices.Equal(testutil.Names(t, dir), []string{"demo_pdf.pdf"}) {
			t.Errorf("unexpected files %v", testutil.Names(t, dir))
		}
	})
}
