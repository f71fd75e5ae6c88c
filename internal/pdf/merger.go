// Package pdf turns envelope scans into PDF pages and concatenates documents.
package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"dropscan-go/internal/ds"
)

func init() {
	// Keep pdfcpu from creating its config directory under the user's home.
	api.DisableConfigDir()
}

// Merger implements ds.DocumentMerger with pdfcpu.
type Merger struct {
	conf *model.Configuration
}

func NewMerger() *Merger {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Merger{conf: conf}
}

// ImageToPDF writes a one-page document showing the image.
func (m *Merger) ImageToPDF(imagePath, pdfPath string) error {
	if err := api.ImportImagesFile([]string{imagePath}, pdfPath, pdfcpu.DefaultImportConfig(), m.conf); err != nil {
		return fmt.Errorf("importing image %s: %w", imagePath, err)
	}
	return nil
}

// Merge concatenates inputs, in order, into a new file at outPath.
func (m *Merger) Merge(inputs []string, outPath string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("nothing to merge")
	}
	if err := api.MergeCreateFile(inputs, outPath, false, m.conf); err != nil {
		return fmt.Errorf("merging %d documents: %w", len(inputs), err)
	}
	return nil
}

// PageCount returns the number of pages of the document at path.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("counting pages: %w", err)
	}
	return n, nil
}

var _ ds.DocumentMerger = (*Merger)(nil)
