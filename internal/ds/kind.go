package ds

import "fmt"

// Kind identifies one artifact of a mailing. Each mailing has at most one local file per kind.
type Kind int

const (
	KindThumbnail Kind = iota
	KindEnvelope
	KindPDF
	KindFull
	KindArchive // recognised in filenames, not downloadable
)

var kindNames = map[Kind]string{
	KindThumbnail: "thumb",
	KindEnvelope:  "envelope",
	KindPDF:       "pdf",
	KindFull:      "full",
	KindArchive:   "zip",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// ParseKind maps a kind name ("thumb", "envelope", "pdf", "full", "zip") to a Kind.
func ParseKind(name string) (Kind, error) {
	k, ok := kindByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown artifact kind: %q", name)
	}
	return k, nil
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Suffix is the filename part that follows the barcode (and tag block).
// The merged document carries no suffix.
func (k Kind) Suffix() string {
	if k == KindFull {
		return ""
	}
	return "_" + k.String()
}

// Ext is the file extension without the dot.
func (k Kind) Ext() string {
	switch k {
	case KindThumbnail, KindEnvelope:
		return "jpg"
	default:
		return "pdf"
	}
}
