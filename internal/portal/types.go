package portal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"dropscan-go/internal/ds"
)

// flexID accepts identifiers sent as JSON numbers or strings.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("parsing id %s: %w", data, err)
	}
	*id = flexID(n.String())
	return nil
}

// flexTime accepts RFC 3339 timestamps and plain dates; null and "" are the zero time.
type flexTime struct {
	time.Time
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parsing time %s: %w", data, err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported time format: %q", s)
}

type scanboxJSON struct {
	ID         flexID `json:"id"`
	Recipients []struct {
		Name string `json:"name"`
	} `json:"recipients"`
}

type mailingJSON struct {
	ID                flexID   `json:"id"`
	Barcode           string   `json:"barcode"`
	Status            string   `json:"status"`
	CreatedAt         flexTime `json:"created_at"`
	ScannedAt         flexTime `json:"scanned_at"`
	Recipient         string   `json:"recipient"`
	ThumbnailURL      string   `json:"envelope_thumbnail_url"`
	EnvelopeURL       string   `json:"envelope_url"`
	ForwardingBatchID flexID   `json:"forwarding_batch_id"`
}

func (m *mailingJSON) toMailing() *ds.Mailing {
	return &ds.Mailing{
		ID:                string(m.ID),
		Barcode:           m.Barcode,
		Status:            ds.ParseStatus(m.Status),
		CreatedAt:         m.CreatedAt.Time,
		ScannedAt:         m.ScannedAt.Time,
		Recipient:         m.Recipient,
		ThumbnailURL:      m.ThumbnailURL,
		EnvelopeURL:       m.EnvelopeURL,
		ForwardingBatchID: string(m.ForwardingBatchID),
	}
}

type batchJSON struct {
	ID           flexID   `json:"id"`
	SentAt       flexTime `json:"sent_at"`
	RequestedFor flexTime `json:"requested_for"`
	Mailings     []flexID `json:"mailings"`
}

func (b *batchJSON) toBatch() *ds.Batch {
	ids := make([]string, len(b.Mailings))
	for i, id := range b.Mailings {
		ids[i] = string(id)
	}
	return &ds.Batch{
		ID:           string(b.ID),
		SentAt:       b.SentAt.Time,
		RequestedFor: b.RequestedFor.Time,
		MailingIDs:   ids,
	}
}

type requestForwardJSON struct {
	ForwardingBatchID any `json:"forwarding_batch_id"`
}

// idValue sends numeric identifiers back as JSON numbers.
func idValue(id string) any {
	if id == "" {
		return id
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return id
		}
	}
	return json.Number(id)
}
