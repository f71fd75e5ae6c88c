package ds

import (
	"fmt"
	"os"
	"path/filepath"
)

// Tagger renames local artifacts so their tag block reflects the mailing status.
type Tagger struct {
	logger Logger
}

func NewTagger(logger Logger) *Tagger {
	return &Tagger{logger: logger}
}

// ApplyTag renames the file at path to carry the tag required by the mailing's
// status. It returns the new path, or "" when nothing was renamed: no tag is
// required, the tag is already present, the file is missing, or the target
// name is taken by another file.
func (t *Tagger) ApplyTag(m *Mailing, path string) (string, error) {
	tag, ok := RequiredTag(m.Status)
	if !ok {
		return "", nil
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", nil
	}

	newBase, changed := TaggedName(filepath.Base(path), m.Barcode, tag)
	if !changed {
		return "", nil
	}
	newPath := filepath.Join(filepath.Dir(path), newBase)

	if _, err := os.Lstat(newPath); err == nil {
		t.logger.Warn("tag rename skipped, target exists", "from", path, "to", newPath)
		return "", nil
	}

	if err := os.Rename(path, newPath); err != nil {
		return "", fmt.Errorf("renaming %s: %w", path, err)
	}

	t.logger.Info("file tagged", "from", path, "to", newPath)
	return newPath, nil
}

// TaggedName inserts or updates the tag block that follows the last occurrence
// of barcode in base. It reports false when the barcode is absent or the tag
// set already satisfies tag.
func TaggedName(base, barcode string, tag Tag) (string, bool) {
	positions := barcodePositions(base, barcode)
	if barcode == "" || len(positions) == 0 {
		return "", false
	}
	end := positions[len(positions)-1] + len(barcode)

	block, rest := splitTagBlock(base[end:])
	current := ParseTagBlock(block)
	updated := current.With(tag)
	if updated == current {
		return "", false
	}

	return base[:end] + updated.Block() + rest, true
}
