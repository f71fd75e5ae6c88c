package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// OSFileLister lists regular files on the real filesystem.
type OSFileLister struct {
	ignore *IgnoreMatcher
}

// NewOSFileLister creates a lister. ignore may be nil.
func NewOSFileLister(ignore *IgnoreMatcher) *OSFileLister {
	return &OSFileLister{ignore: ignore}
}

// ListFiles returns the paths of the regular files directly inside folder,
// sorted by name. A missing folder is an error.
func (l *OSFileLister) ListFiles(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		rel := filepath.Join(filepath.Base(folder), entry.Name())
		if l.ignore.Match(rel) {
			continue
		}
		paths = append(paths, filepath.Join(folder, entry.Name()))
	}
	return paths, nil
}

// SubFolders returns root and every directory below it, parents before children.
// Hidden directories are skipped.
func SubFolders(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && len(d.Name()) > 0 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		dirs = append(dirs, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return dirs, nil
}

// ChildFolders returns the directories directly inside root, skipping hidden ones.
func ChildFolders(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && entry.Name()[0] != '.' {
			dirs = append(dirs, filepath.Join(root, entry.Name()))
		}
	}
	return dirs, nil
}
