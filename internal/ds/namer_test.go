package ds_test

import (
	"path/filepath"
	"testing"
	"time"

	"dropscan-go/internal/ds"
)

var created = time.Date(2021, 3, 4, 10, 15, 0, 0, time.UTC)

func sampleMailing(barcode string) *ds.Mailing {
	return &ds.Mailing{
		ID:        "m-" + barcode,
		Barcode:   barcode,
		Status:    ds.StatusScanned,
		CreatedAt: created,
	}
}

func TestName(t *testing.T) {
	m := sampleMailing("AB12")
	tests := []struct {
		kind ds.Kind
		want string
	}{
		{ds.KindThumbnail, "2021-03-04_AB12_thumb.jpg"},
		{ds.KindEnvelope, "2021-03-04_AB12_envelope.jpg"},
		{ds.KindPDF, "2021-03-04_AB12_pdf.pdf"},
		{ds.KindFull, "2021-03-04_AB12.pdf"},
		{ds.KindArchive, "2021-03-04_AB12_zip.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := ds.Name(m, tt.kind); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("uses the reported offset for the date", func(t *testing.T) {
		late := sampleMailing("AB12")
		late.CreatedAt = time.Date(2021, 3, 4, 23, 30, 0, 0, time.FixedZone("CET", 3600))
		if got := ds.Name(late, ds.KindFull); got != "2021-03-04_AB12.pdf" {
			t.Errorf("Name() = %q", got)
		}
	})
}

func TestMatchPattern_RoundTrip(t *testing.T) {
	m := sampleMailing("AB12")
	for _, kind := range []ds.Kind{ds.KindThumbnail, ds.KindEnvelope, ds.KindPDF, ds.KindFull} {
		name := ds.Name(m, kind)
		tagged := []string{name}
		for _, tag := range []ds.Tag{ds.TagForwarded, ds.TagDestroyed, ds.TagForwardRequested} {
			n, ok := ds.TaggedName(name, m.Barcode, tag)
			if !ok {
				t.Fatalf("TaggedName(%q, %c) reported no change", name, tag)
			}
			tagged = append(tagged, n)
		}

		mt := ds.MatchPattern(m, kind)
		for _, n := range tagged {
			if !mt.Match(n) {
				t.Errorf("MatchPattern(%s) rejects %q", kind, n)
			}
			if !mt.Match(filepath.Join("Max", n)) {
				t.Errorf("MatchPattern(%s) rejects %q in a subfolder", kind, n)
			}
		}
	}
}

func TestMatchPattern(t *testing.T) {
	m := sampleMailing("AB12")
	tests := []struct {
		name string
		kind ds.Kind
		file string
		want bool
	}{
		{"canonical full", ds.KindFull, "2021-03-04_AB12.pdf", true},
		{"multi tag block", ds.KindFull, "2021-03-04_AB12-DF.pdf", true},
		{"user prefix with space", ds.KindFull, "Invoice AB12.pdf", true},
		{"barcode at start", ds.KindFull, "AB12-D.pdf", true},
		{"longer barcode containing ours", ds.KindFull, "2021-03-04_XAB12.pdf", false},
		{"our barcode as prefix of another", ds.KindFull, "2021-03-04_AB123.pdf", false},
		{"pdf kind is not full", ds.KindFull, "2021-03-04_AB12_pdf.pdf", false},
		{"full is not pdf kind", ds.KindPDF, "2021-03-04_AB12.pdf", false},
		{"tagged source pdf", ds.KindPDF, "2021-03-04_AB12-R_pdf.pdf", true},
		{"envelope extension", ds.KindEnvelope, "2021-03-04_AB12_envelope.pdf", false},
		{"transient page", ds.KindPDF, "2021-03-04_AB12_envelope.jpg.pdf", false},
		{"lower case block is not tags", ds.KindFull, "2021-03-04_AB12-d.pdf", false},
		{"barcode repeated", ds.KindFull, "AB12 copy 2021-03-04_AB12.pdf", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ds.MatchPattern(m, tt.kind).Match(tt.file); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.file, got, tt.want)
			}
		})
	}

	t.Run("empty barcode matches nothing", func(t *testing.T) {
		if ds.MatchPattern(sampleMailing(""), ds.KindFull).Match("2021-03-04_.pdf") {
			t.Error("empty barcode should not match")
		}
	})
}

func TestBarcodeMatcher(t *testing.T) {
	tests := []struct {
		file string
		want bool
	}{
		{"2021-03-04_AB12_envelope.jpg", true},
		{"AB12.pdf", true},
		{"scan AB12 letter.pdf", true},
		{"AB123.pdf", false},
		{"XAB12.pdf", false},
		{"AB12", false},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			if got := ds.BarcodeMatcher("AB12").Match(tt.file); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.file, got, tt.want)
			}
		})
	}
}

func TestExtensionMatcher(t *testing.T) {
	mt := ds.ExtensionMatcher("AB12", "pdf")
	if !mt.Match("2021-03-04_AB12-F.pdf") || !mt.Match("2021-03-04_AB12_pdf.pdf") {
		t.Error("expected pdf files to match")
	}
	if mt.Match("2021-03-04_AB12_envelope.jpg") {
		t.Error("jpg should not match a pdf matcher")
	}
}
