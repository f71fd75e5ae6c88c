package pdf_test

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"dropscan-go/internal/pdf"
)

func writeJPEG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 60))
	for x := 0; x < 40; x++ {
		for y := 0; y < 60; y++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatalf("encoding jpeg: %v", err)
	}
}

func TestMerger(t *testing.T) {
	dir := t.TempDir()
	envelope := filepath.Join(dir, "2021-03-04_AB12_envelope.jpg")
	letter := filepath.Join(dir, "letter.jpg")
	writeJPEG(t, envelope, color.White)
	writeJPEG(t, letter, color.Black)

	m := pdf.NewMerger()

	page := envelope + ".pdf"
	if err := m.ImageToPDF(envelope, page); err != nil {
		t.Fatalf("ImageToPDF() error = %v", err)
	}
	source := filepath.Join(dir, "2021-03-04_AB12_pdf.pdf")
	if err := m.ImageToPDF(letter, source); err != nil {
		t.Fatalf("ImageToPDF() error = %v", err)
	}

	target := filepath.Join(dir, "2021-03-04_AB12.pdf")
	if err := m.Merge([]string{page, source}, target); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	n, err := pdf.PageCount(target)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("merged document has %d pages, want 2", n)
	}
}

func TestMerger_Errors(t *testing.T) {
	dir := t.TempDir()
	m := pdf.NewMerger()

	if err := m.ImageToPDF(filepath.Join(dir, "missing.jpg"), filepath.Join(dir, "out.pdf")); err == nil {
		t.Error("ImageToPDF() succeeded for a missing image")
	}
	if err := m.Merge(nil, filepath.Join(dir, "out.pdf")); err == nil {
		t.Error("Merge() succeeded without inputs")
	}
}
