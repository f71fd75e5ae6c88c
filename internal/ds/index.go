package ds

import (
	"fmt"
	"path/filepath"
	"slices"
)

// FileLister lists the files directly inside one folder (no recursion).
type FileLister interface {
	ListFiles(folder string) ([]string, error)
}

// LocalIndex is a flat listing of the files in a set of search folders.
// It is rebuilt whenever it is asked about a different folder set and reused
// otherwise. One index belongs to one sync session; it is never shared globally.
type LocalIndex struct {
	lister FileLister
	logger Logger
	key    []string
	files  []string
	built  bool
}

func NewLocalIndex(lister FileLister, logger Logger) *LocalIndex {
	return &LocalIndex{lister: lister, logger: logger}
}

// BuildOrReuse returns the file list for folders, listing the filesystem only
// when the folder set differs from the one the cached list was built from.
// Folder order determines index order; duplicates are listed once.
func (x *LocalIndex) BuildOrReuse(folders []string) ([]string, error) {
	ordered := uniqueFolders(folders)
	key := slices.Clone(ordered)
	slices.Sort(key)

	if x.built && slices.Equal(key, x.key) {
		return x.files, nil
	}

	var files []string
	for _, folder := range ordered {
		listed, err := x.lister.ListFiles(folder)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", folder, err)
		}
		files = append(files, listed...)
	}

	x.key = key
	x.files = files
	x.built = true
	x.logger.Debug("local index built", "folders", len(ordered), "files", len(files))
	return files, nil
}

// Files returns the cached list.
func (x *LocalIndex) Files() []string {
	return x.files
}

// Find returns every indexed file accepted by the matcher, in index order.
func (x *LocalIndex) Find(m *Matcher) []string {
	var matches []string
	for _, f := range x.files {
		if m.Match(f) {
			matches = append(matches, f)
		}
	}
	return matches
}

// FindFirst returns the first match in index order, or "" if there is none.
// More than one match is ambiguous local state: it is logged, never fatal.
func (x *LocalIndex) FindFirst(m *Matcher) string {
	matches := x.Find(m)
	if len(matches) == 0 {
		return ""
	}
	if len(matches) > 1 {
		x.logger.Warn("multiple local files for one artifact", "barcode", m.barcode, "files", matches, "using", matches[0])
	}
	return matches[0]
}

func uniqueFolders(folders []string) []string {
	seen := make(map[string]bool, len(folders))
	var out []string
	for _, f := range folders {
		f = filepath.Clean(f)
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
