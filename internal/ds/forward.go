package ds

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrNoUnsentBatch is returned when there is no open forwarding batch to add to.
var ErrNoUnsentBatch = errors.New("no unsent forwarding batch")

type AddResult int

const (
	AddAdded AddResult = iota
	AddAlreadyMember
)

func (r AddResult) String() string {
	if r == AddAlreadyMember {
		return "already member"
	}
	return "added"
}

// Forwarder adds mailings to forwarding batches.
type Forwarder struct {
	catalog BatchCatalog
	lister  FileLister
	journal Journal
	logger  Logger
	clock   Clock
}

func NewForwarder(catalog BatchCatalog, lister FileLister, logger Logger, clock Clock) *Forwarder {
	return &Forwarder{catalog: catalog, lister: lister, logger: logger, clock: clock}
}

// SetJournal records a forwarded event for every mailing added by
// ForwardFolders or ForwardOlderThan.
func (f *Forwarder) SetJournal(j Journal) {
	f.journal = j
}

// UnsentBatches returns the batches that were not sent yet, earliest requested first.
func (f *Forwarder) UnsentBatches(ctx context.Context) ([]*Batch, error) {
	batches, err := f.catalog.ListBatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing forwarding batches: %w", err)
	}

	var unsent []*Batch
	for _, b := range batches {
		if !b.IsSent() {
			unsent = append(unsent, b)
		}
	}
	slices.SortStableFunc(unsent, func(a, b *Batch) int {
		return cmp.Compare(a.RequestedFor.Unix(), b.RequestedFor.Unix())
	})
	return unsent, nil
}

func (f *Forwarder) firstUnsent(ctx context.Context) (*Batch, error) {
	unsent, err := f.UnsentBatches(ctx)
	if err != nil {
		return nil, err
	}
	if len(unsent) == 0 {
		return nil, ErrNoUnsentBatch
	}
	return unsent[0], nil
}

// AddToBatch adds a mailing to batch, or to the first unsent batch when batch is nil.
func (f *Forwarder) AddToBatch(ctx context.Context, mailingID string, batch *Batch) (AddResult, error) {
	if batch == nil {
		var err error
		if batch, err = f.firstUnsent(ctx); err != nil {
			return 0, err
		}
	}

	if batch.Contains(mailingID) {
		f.logger.Info("mailing already in batch", "mailing", mailingID, "batch", batch.ID)
		return AddAlreadyMember, nil
	}

	if err := f.catalog.AddToBatch(ctx, mailingID, batch.ID); err != nil {
		return 0, fmt.Errorf("adding mailing %s to batch %s: %w", mailingID, batch.ID, err)
	}
	batch.MailingIDs = append(batch.MailingIDs, mailingID)

	f.logger.Info("mailing added to batch", "mailing", mailingID, "batch", batch.ID)
	return AddAdded, nil
}

// ForwardFolders adds every received or scanned mailing that has a file in
// one of folders to the first unsent batch. Mailings already assigned to a
// batch are left out. It returns the number added.
func (f *Forwarder) ForwardFolders(ctx context.Context, mailings []*Mailing, folders []string) (int, error) {
	index := NewLocalIndex(f.lister, f.logger)
	if _, err := index.BuildOrReuse(folders); err != nil {
		return 0, fmt.Errorf("building forward index: %w", err)
	}

	return f.forwardWhere(ctx, mailings, func(m *Mailing) bool {
		return len(index.Find(BarcodeMatcher(m.Barcode))) > 0
	})
}

// ForwardOlderThan adds every received or scanned mailing created more than
// days ago to the first unsent batch. It returns the number added.
func (f *Forwarder) ForwardOlderThan(ctx context.Context, mailings []*Mailing, days int) (int, error) {
	cutoff := f.clock.Now().AddDate(0, 0, -days)
	return f.forwardWhere(ctx, mailings, func(m *Mailing) bool {
		return m.CreatedAt.Before(cutoff)
	})
}

func (f *Forwarder) forwardWhere(ctx context.Context, mailings []*Mailing, want func(*Mailing) bool) (int, error) {
	var candidates []*Mailing
	for _, m := range slices.Backward(mailings) {
		if m.ForwardingBatchID != "" {
			continue
		}
		if m.Status.Forwardable() && want(m) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	batch, err := f.firstUnsent(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	var errs []error
	for _, m := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := f.AddToBatch(ctx, m.ID, batch)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if res == AddAdded {
			added++
			f.record(m, batch)
		}
	}
	return added, errors.Join(errs...)
}

func (f *Forwarder) record(m *Mailing, batch *Batch) {
	if f.journal == nil {
		return
	}
	e := &Event{
		MailingID: m.ID,
		Barcode:   m.Barcode,
		Kind:      KindFull,
		Action:    ActionForwarded,
		Detail:    "batch " + batch.ID,
		At:        f.clock.Now(),
	}
	if err := f.journal.RecordEvent(e); err != nil {
		f.logger.Warn("recording forward event", "error", err)
	}
}
