package testutil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"dropscan-go/internal/ds"
)

// FakeCatalog is an in-memory portal. Artifacts are served from Payloads,
// keyed by the URL ArtifactURL hands out.
type FakeCatalog struct {
	mu sync.Mutex

	Mailings map[ds.ListFilter][]*ds.Mailing
	Payloads map[string]string
	Batches  []*ds.Batch
	// FailURLs makes Download fail for these URLs.
	FailURLs map[string]bool
	// FailAdd makes AddToBatch fail for these mailing IDs.
	FailAdd map[string]bool

	LoginErr error

	Downloads  []string
	Added      []string // "<mailingID>@<batchID>"
	LoggedInAs string
}

func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Mailings: make(map[ds.ListFilter][]*ds.Mailing),
		Payloads: make(map[string]string),
		FailURLs: make(map[string]bool),
		FailAdd:  make(map[string]bool),
	}
}

// Serve adds m to the list for filter and registers payloads for its
// envelope, thumbnail and (once scanned) PDF.
func (c *FakeCatalog) Serve(filter ds.ListFilter, m *ds.Mailing) *FakeCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.EnvelopeURL == "" {
		m.EnvelopeURL = "fake://envelope/" + m.ID
	}
	if m.ThumbnailURL == "" {
		m.ThumbnailURL = "fake://thumb/" + m.ID
	}
	c.Mailings[filter] = append(c.Mailings[filter], m)
	c.Payloads[m.EnvelopeURL] = "envelope " + m.Barcode
	c.Payloads[m.ThumbnailURL] = "thumb " + m.Barcode
	c.Payloads[PDFURL(m)] = "pdf " + m.Barcode
	return c
}

// PDFURL is the URL FakeCatalog hands out for a mailing's PDF.
func PDFURL(m *ds.Mailing) string {
	return "fake://pdf/" + m.ID
}

// DownloadCount returns how many downloads were attempted.
func (c *FakeCatalog) DownloadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Downloads)
}

func (c *FakeCatalog) List(ctx context.Context, filter ds.ListFilter) ([]*ds.Mailing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ds.Mailing{}, c.Mailings[filter]...), nil
}

func (c *FakeCatalog) ArtifactURL(m *ds.Mailing, kind ds.Kind) (string, bool) {
	switch kind {
	case ds.KindThumbnail:
		return m.ThumbnailURL, m.ThumbnailURL != ""
	case ds.KindEnvelope:
		return m.EnvelopeURL, m.EnvelopeURL != ""
	case ds.KindPDF:
		return PDFURL(m), m.IsScanned()
	default:
		return "", false
	}
}

func (c *FakeCatalog) Download(ctx context.Context, url string, w io.Writer) error {
	c.mu.Lock()
	c.Downloads = append(c.Downloads, url)
	fail := c.FailURLs[url]
	payload, ok := c.Payloads[url]
	c.mu.Unlock()

	if fail {
		return fmt.Errorf("GET %s: status 500", url)
	}
	if !ok {
		return fmt.Errorf("GET %s: status 404", url)
	}
	_, err := io.Copy(w, strings.NewReader(payload))
	return err
}

func (c *FakeCatalog) ListBatches(ctx context.Context) ([]*ds.Batch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ds.Batch{}, c.Batches...), nil
}

func (c *FakeCatalog) AddToBatch(ctx context.Context, mailingID, batchID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailAdd[mailingID] {
		return fmt.Errorf("POST request_forward %s: status 422", mailingID)
	}
	c.Added = append(c.Added, mailingID+"@"+batchID)
	return nil
}

// NewMailing builds a mailing the way the portal lists it.
func NewMailing(id, barcode string, created time.Time, status ds.Status) *ds.Mailing {
	m := &ds.Mailing{
		ID:        id,
		Barcode:   barcode,
		Status:    status,
		CreatedAt: created,
		Recipient: "Max Mustermann",
	}
	if status != ds.StatusReceived {
		m.ScannedAt = created.Add(2 * time.Hour)
	}
	return m
}

var _ ds.Catalog = (*FakeCatalog)(nil)

// Login records the user and fails with LoginErr when set.
func (c *FakeCatalog) Login(ctx context.Context, user, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.LoginErr != nil {
		return c.LoginErr
	}
	c.LoggedInAs = user
	return nil
}
