package ds

import "strings"

// Tag is a single-letter status marker embedded in a filename after the barcode.
type Tag byte

const (
	TagForwarded        Tag = 'F'
	TagForwardRequested Tag = 'R'
	TagDestroyed        Tag = 'D'
)

// RequiredTag returns the tag a file of a mailing in status s must carry.
func RequiredTag(s Status) (Tag, bool) {
	switch s {
	case StatusForwarded:
		return TagForwarded, true
	case StatusForwardRequested:
		return TagForwardRequested, true
	case StatusDestroyed, StatusDestroyRequested:
		return TagDestroyed, true
	default:
		return 0, false
	}
}

// TagSet is the ordered letter run of a "-<TAGS>" block, without the dash.
type TagSet string

// ParseTagBlock turns a "-<TAGS>" block into a TagSet. Dashes inside the block are dropped.
func ParseTagBlock(block string) TagSet {
	return TagSet(strings.ReplaceAll(block, "-", ""))
}

func (t TagSet) Has(tag Tag) bool {
	return strings.IndexByte(string(t), byte(tag)) >= 0
}

// With returns the set with tag appended. F and R are mutually exclusive:
// whenever both would be present, R is dropped.
func (t TagSet) With(tag Tag) TagSet {
	s := string(t)
	if !t.Has(tag) {
		s += string(tag)
	}
	if strings.IndexByte(s, byte(TagForwarded)) >= 0 {
		s = strings.ReplaceAll(s, string(TagForwardRequested), "")
	}
	return TagSet(s)
}

// Block renders the set as a filename block, "" for the empty set.
func (t TagSet) Block() string {
	if t == "" {
		return ""
	}
	return "-" + string(t)
}
