package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-folder ignore file, one glob per line.
const IgnoreFileName = ".dropscanignore"

// DefaultIgnorePatterns hide in-flight downloads and the tool's own files from the local index.
var DefaultIgnorePatterns = []string{".tmp-*", IgnoreFileName, "*.sync"}

// rule is one parsed ignore glob.
type rule struct {
	glob     string
	fullPath bool // match the slash-separated path instead of the basename
}

// IgnoreMatcher decides which listed files are invisible to the sync engine.
// Globs without '/' apply to the basename; globs with '/' apply to the path
// relative to the listed folder's parent.
type IgnoreMatcher struct {
	rules []rule
}

// NewIgnoreMatcher parses raw globs. Blank lines and '#' comments are dropped.
func NewIgnoreMatcher(globs []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, g := range globs {
		g = strings.TrimSpace(g)
		if g == "" || strings.HasPrefix(g, "#") {
			continue
		}
		m.rules = append(m.rules, rule{glob: g, fullPath: strings.Contains(g, "/")})
	}
	return m
}

// Match reports whether path is ignored.
func (m *IgnoreMatcher) Match(path string) bool {
	if m == nil {
		return false
	}
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, r := range m.rules {
		subject := base
		if r.fullPath {
			subject = slashed
		}
		// filepath.Match only fails on malformed globs; those never match.
		if ok, err := filepath.Match(r.glob, subject); err == nil && ok {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads the globs of an ignore file.
// A missing file yields no globs and no error.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var globs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		globs = append(globs, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return globs, nil
}

// LoadIgnoreMatcher combines the default globs, configured globs and the
// ignore file found in dir (if any).
func LoadIgnoreMatcher(dir string, configured []string) (*IgnoreMatcher, error) {
	fromFile, err := ParseIgnoreFile(filepath.Join(dir, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	globs := append([]string{}, DefaultIgnorePatterns...)
	globs = append(globs, configured...)
	globs = append(globs, fromFile...)
	return NewIgnoreMatcher(globs), nil
}
