package ds

import (
	"path/filepath"
	"strings"
)

const dateLayout = "2006-01-02"

// Name returns the canonical filename of an artifact:
//
//	<YYYY-MM-DD>_<barcode>[_<suffix>].<ext>
//
// The date is the calendar date of CreatedAt in the offset the portal reported.
func Name(m *Mailing, kind Kind) string {
	return m.CreatedAt.Format(dateLayout) + "_" + m.Barcode + kind.Suffix() + "." + kind.Ext()
}

type matchMode int

const (
	matchArtifact  matchMode = iota // barcode, tag block, suffix, extension, end
	matchBarcode                    // barcode followed by a boundary character
	matchExtension                  // barcode anywhere before a fixed extension
)

// Matcher recognises local files that belong to one mailing. It works on the
// basename only and is built from explicit tokens rather than a pattern string:
//
//	boundary · barcode · [ "-" tags ] · suffix · "." ext
//
// A boundary is the start of the basename or one of '-', '_', '.', ' '.
type Matcher struct {
	mode    matchMode
	barcode string
	suffix  string
	ext     string
}

// MatchPattern returns a matcher for every plain or decorated variant of Name(m, kind).
func MatchPattern(m *Mailing, kind Kind) *Matcher {
	return &Matcher{mode: matchArtifact, barcode: m.Barcode, suffix: kind.Suffix(), ext: kind.Ext()}
}

// BarcodeMatcher matches any file carrying the barcode as a separate token,
// regardless of artifact kind.
func BarcodeMatcher(barcode string) *Matcher {
	return &Matcher{mode: matchBarcode, barcode: barcode}
}

// ExtensionMatcher matches any file carrying the barcode whose name ends in ext.
func ExtensionMatcher(barcode, ext string) *Matcher {
	return &Matcher{mode: matchExtension, barcode: barcode, ext: ext}
}

// Match reports whether path names a file of this matcher's mailing.
func (mt *Matcher) Match(path string) bool {
	if mt.barcode == "" {
		return false
	}
	base := filepath.Base(path)
	for _, pos := range barcodePositions(base, mt.barcode) {
		if mt.matchRest(base[pos+len(mt.barcode):]) {
			return true
		}
	}
	return false
}

func (mt *Matcher) matchRest(rest string) bool {
	switch mt.mode {
	case matchBarcode:
		return rest != "" && isBoundary(rest[0])
	case matchExtension:
		return strings.HasSuffix(rest, "."+mt.ext)
	default:
		_, rest = splitTagBlock(rest)
		return rest == mt.suffix+"."+mt.ext
	}
}

// barcodePositions returns every index in base where barcode starts on a boundary.
func barcodePositions(base, barcode string) []int {
	var positions []int
	for i := 0; i+len(barcode) <= len(base); {
		j := strings.Index(base[i:], barcode)
		if j < 0 {
			break
		}
		pos := i + j
		if pos == 0 || isBoundary(base[pos-1]) {
			positions = append(positions, pos)
		}
		i = pos + 1
	}
	return positions
}

func isBoundary(c byte) bool {
	return c == '-' || c == '_' || c == '.' || c == ' '
}

// splitTagBlock splits a leading "-<TAGS>" block off s. The block is a dash
// followed by any run of dashes and upper-case letters.
func splitTagBlock(s string) (block, rest string) {
	if s == "" || s[0] != '-' {
		return "", s
	}
	i := 1
	for i < len(s) && (s[i] == '-' || (s[i] >= 'A' && s[i] <= 'Z')) {
		i++
	}
	return s[:i], s[i:]
}
