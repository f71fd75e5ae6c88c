package ds

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status is the processing state of a mailing as reported by the portal.
type Status int

const (
	StatusUnknown Status = iota
	StatusReceived
	StatusScanned
	StatusForwarded
	StatusForwardRequested
	StatusDestroyed
	StatusDestroyRequested
)

var statusNames = map[Status]string{
	StatusReceived:         "received",
	StatusScanned:          "scanned",
	StatusForwarded:        "forwarded",
	StatusForwardRequested: "forward_requested",
	StatusDestroyed:        "destroyed",
	StatusDestroyRequested: "destroy_requested",
}

var statusByName = func() map[string]Status {
	m := make(map[string]Status, len(statusNames))
	for s, name := range statusNames {
		m[name] = s
	}
	return m
}()

// ParseStatus maps the portal's wire string to a Status.
// Unrecognised strings yield StatusUnknown so a new remote state never aborts a sync.
func ParseStatus(name string) Status {
	return statusByName[name]
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}

// Forwardable reports whether a mailing in this state can still join a forwarding batch.
func (s Status) Forwardable() bool {
	return s == StatusReceived || s == StatusScanned
}

// ListFilter selects one inbox of the portal's mailing list.
type ListFilter int

const (
	FilterReceived ListFilter = iota
	FilterScanned
	FilterForwarded
	FilterDestroyed
)

var filterNames = map[ListFilter]string{
	FilterReceived:  "received",
	FilterScanned:   "scanned",
	FilterForwarded: "forwarded",
	FilterDestroyed: "destroyed",
}

// AllFilters lists every inbox in the order the portal shows them.
var AllFilters = []ListFilter{FilterReceived, FilterScanned, FilterForwarded, FilterDestroyed}

func (f ListFilter) String() string {
	if name, ok := filterNames[f]; ok {
		return name
	}
	return fmt.Sprintf("filter(%d)", int(f))
}

// Mailing is one scanned-mail item as listed by the portal.
// It is a snapshot for a single sync pass and is never cached across runs.
type Mailing struct {
	ID                string
	Barcode           string
	Status            Status
	CreatedAt         time.Time
	ScannedAt         time.Time // zero until the letter has been opened and scanned
	Recipient         string
	ThumbnailURL      string
	EnvelopeURL       string
	ForwardingBatchID string
}

// IsScanned reports whether the PDF of this mailing can be downloaded.
func (m *Mailing) IsScanned() bool {
	return !m.ScannedAt.IsZero()
}

// RecipientFolder returns the first word of the recipient name, used as an
// optional sort folder for downloads.
func (m *Mailing) RecipientFolder() string {
	fields := strings.Fields(m.Recipient)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Batch is a forwarding batch: a set of mailings to be physically re-mailed together.
type Batch struct {
	ID           string
	SentAt       time.Time
	RequestedFor time.Time
	MailingIDs   []string
}

// IsSent reports whether the batch already left the scan center.
func (b *Batch) IsSent() bool {
	return !b.SentAt.IsZero()
}

// Contains reports whether the mailing is already a member of the batch.
func (b *Batch) Contains(mailingID string) bool {
	return slices.Contains(b.MailingIDs, mailingID)
}
