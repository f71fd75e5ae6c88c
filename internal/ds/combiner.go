package ds

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DocumentMerger renders images to PDF pages and concatenates PDF files.
type DocumentMerger interface {
	ImageToPDF(imagePath, pdfPath string) error
	Merge(inputs []string, outPath string) error
}

type CombineStatus int

const (
	CombineCombined CombineStatus = iota
	CombineSkipped
	CombineFailed
)

func (s CombineStatus) String() string {
	switch s {
	case CombineCombined:
		return "combined"
	case CombineSkipped:
		return "skipped"
	case CombineFailed:
		return "failed"
	default:
		return fmt.Sprintf("combine(%d)", int(s))
	}
}

type CombineResult struct {
	Status CombineStatus
	Path   string // merged document, set for Combined and Skipped
	Err    error
}

// Combiner merges an envelope scan and its PDF into one document.
type Combiner struct {
	merger DocumentMerger
	logger Logger
}

func NewCombiner(merger DocumentMerger, logger Logger) *Combiner {
	return &Combiner{merger: merger, logger: logger}
}

// FullPath returns the merged document path for a source PDF path: the "_pdf"
// suffix is removed from the name, anything else (tag block, folder) is kept.
func FullPath(pdfPath string) (string, bool) {
	dir, base := filepath.Split(pdfPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	suffix := KindPDF.Suffix()
	if !strings.HasSuffix(stem, suffix) {
		return "", false
	}
	return filepath.Join(dir, strings.TrimSuffix(stem, suffix)+ext), true
}

// Combine writes the envelope page followed by the PDF pages into the merged
// document. Sources are deleted only once the merged file exists; an existing
// merged file is never overwritten.
func (c *Combiner) Combine(envelopePath, pdfPath string) CombineResult {
	target, ok := FullPath(pdfPath)
	if !ok {
		return CombineResult{Status: CombineFailed, Err: fmt.Errorf("not a source pdf name: %s", pdfPath)}
	}

	if _, err := os.Lstat(target); err == nil {
		c.logger.Warn("merged document already exists, not combining", "target", target)
		return CombineResult{Status: CombineSkipped, Path: target}
	}

	page := envelopePath + ".pdf"
	defer os.Remove(page)

	if err := c.merger.ImageToPDF(envelopePath, page); err != nil {
		return CombineResult{Status: CombineFailed, Err: fmt.Errorf("converting envelope: %w", err)}
	}

	if err := c.merger.Merge([]string{page, pdfPath}, target); err != nil {
		os.Remove(target)
		return CombineResult{Status: CombineFailed, Err: fmt.Errorf("merging into %s: %w", filepath.Base(target), err)}
	}

	if info, err := os.Stat(target); err != nil || !info.Mode().IsRegular() {
		return CombineResult{Status: CombineFailed, Err: fmt.Errorf("merged document missing after merge: %s", target)}
	}

	for _, src := range []string{envelopePath, pdfPath} {
		if err := os.Remove(src); err != nil {
			c.logger.Warn("removing combined source", "path", src, "error", err)
		}
	}

	c.logger.Info("documents combined", "target", target)
	return CombineResult{Status: CombineCombined, Path: target}
}
