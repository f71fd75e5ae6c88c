package ds

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Action is the decision the sync engine took for one artifact.
type Action string

const (
	ActionSkipExisting   Action = "skip-existing"
	ActionSkipLedger     Action = "skip-ledger"
	ActionDownloaded     Action = "downloaded"
	ActionUnavailable    Action = "unavailable"
	ActionFailed         Action = "failed"
	ActionCombined       Action = "combined"
	ActionCombineSkipped Action = "combine-skipped"
	ActionCombineFailed  Action = "combine-failed"
	ActionTagged         Action = "tagged"
	ActionComplete       Action = "complete"
	ActionForwarded      Action = "forwarded"
	ActionPostProcessed  Action = "post-processed"
)

// Event records one per-artifact decision.
type Event struct {
	MailingID string
	Barcode   string
	Kind      Kind
	Action    Action
	Path      string
	Detail    string
	At        time.Time
}

// Journal persists sync events. It is informational: the ledger remains the
// source of truth for what was already handled.
type Journal interface {
	RecordEvent(e *Event) error
}

// PostProcessor runs after a new document landed on disk.
type PostProcessor interface {
	Run(ctx context.Context, path string) error
}

// SyncOptions controls one sync pass.
type SyncOptions struct {
	SearchFolders []string
	Thumbnails    bool
	NoCombine     bool
	IgnoreLedger  bool // ledger lookups miss; successful downloads are still appended
}

// SyncReport summarises one sync pass.
type SyncReport struct {
	Events     []*Event
	Mailings   int
	Downloaded int
	Combined   int
	Tagged     int
	Failed     int
}

func (r *SyncReport) add(e *Event) {
	r.Events = append(r.Events, e)
	switch e.Action {
	case ActionDownloaded:
		r.Downloaded++
	case ActionCombined:
		r.Combined++
	case ActionTagged:
		r.Tagged++
	case ActionFailed, ActionCombineFailed:
		r.Failed++
	}
}

// Syncer drives the one-way mirror: for every mailing it decides per artifact
// whether to skip, download, combine or tag.
type Syncer struct {
	lister     FileLister
	ledger     Ledger
	downloader *Downloader
	combiner   *Combiner
	tagger     *Tagger
	journal    Journal
	post       PostProcessor
	logger     Logger
	clock      Clock
}

// NewSyncer creates a Syncer. journal may be nil.
func NewSyncer(lister FileLister, ledger Ledger, downloader *Downloader, combiner *Combiner, journal Journal, logger Logger, clock Clock) *Syncer {
	return &Syncer{
		lister:     lister,
		ledger:     ledger,
		downloader: downloader,
		combiner:   combiner,
		tagger:     NewTagger(logger),
		journal:    journal,
		logger:     logger,
		clock:      clock,
	}
}

// SetPostProcessor installs a hook that runs for every newly stored document.
func (s *Syncer) SetPostProcessor(p PostProcessor) {
	s.post = p
}

// Sync processes mailings oldest first. mailings must be in the portal's
// newest-first order. Per-artifact failures are reported in the returned
// report; an error is returned only when the run cannot continue.
func (s *Syncer) Sync(ctx context.Context, mailings []*Mailing, opts SyncOptions) (*SyncReport, error) {
	index := NewLocalIndex(s.lister, s.logger)
	if _, err := index.BuildOrReuse(opts.SearchFolders); err != nil {
		return nil, fmt.Errorf("building local index: %w", err)
	}

	report := &SyncReport{}
	for _, m := range slices.Backward(mailings) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Mailings++
		if err := s.syncMailing(ctx, index, m, opts, report); err != nil {
			return report, err
		}
	}

	s.logger.Info("sync finished",
		"mailings", report.Mailings,
		"downloaded", report.Downloaded,
		"combined", report.Combined,
		"tagged", report.Tagged,
		"failed", report.Failed,
	)
	return report, nil
}

func (s *Syncer) kinds(opts SyncOptions) []Kind {
	kinds := []Kind{KindEnvelope, KindPDF}
	if opts.Thumbnails {
		kinds = append(kinds, KindThumbnail)
	}
	return kinds
}

func (s *Syncer) syncMailing(ctx context.Context, index *LocalIndex, m *Mailing, opts SyncOptions, report *SyncReport) error {
	if full := index.FindFirst(MatchPattern(m, KindFull)); full != "" {
		s.record(report, m, KindFull, ActionComplete, full, "")
		s.tag(report, m, KindFull, full)
		return nil
	}

	local := make(map[Kind]string)
	for _, kind := range s.kinds(opts) {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := index.FindFirst(MatchPattern(m, kind))
		name := Name(m, kind)
		stored := false

		switch {
		case path != "":
			s.record(report, m, kind, ActionSkipExisting, path, "")
		case !opts.IgnoreLedger && s.ledger.Contains(name):
			s.record(report, m, kind, ActionSkipLedger, "", name)
			continue
		default:
			res := s.downloader.Fetch(ctx, m, kind)
			switch res.Status {
			case FetchUnavailable:
				s.record(report, m, kind, ActionUnavailable, "", "")
				continue
			case FetchFailed:
				s.logger.Error("download failed", "barcode", m.Barcode, "kind", kind.String(), "error", res.Err)
				s.record(report, m, kind, ActionFailed, "", res.Err.Error())
				continue
			}
			if err := s.ledger.Append(name); err != nil {
				return fmt.Errorf("appending %s to ledger: %w", name, err)
			}
			path = res.Path
			stored = true
			s.record(report, m, kind, ActionDownloaded, path, "")
		}

		local[kind] = path
		tagKind := kind

		if kind == KindPDF && !opts.NoCombine && local[KindEnvelope] != "" {
			res := s.combiner.Combine(local[KindEnvelope], path)
			switch res.Status {
			case CombineCombined:
				s.record(report, m, KindFull, ActionCombined, res.Path, "")
				delete(local, KindEnvelope)
				delete(local, KindPDF)
				local[KindFull] = res.Path
				path = res.Path
				tagKind = KindFull
			case CombineSkipped:
				s.record(report, m, KindFull, ActionCombineSkipped, res.Path, "")
			case CombineFailed:
				s.logger.Error("combine failed", "barcode", m.Barcode, "error", res.Err)
				s.record(report, m, KindFull, ActionCombineFailed, "", res.Err.Error())
			}
		}

		if renamed := s.tag(report, m, tagKind, path); renamed != "" {
			path = renamed
			local[tagKind] = renamed
		}

		if stored && kind == KindPDF {
			s.postProcess(ctx, report, m, tagKind, path)
		}
	}
	return nil
}

// tag applies the status tag and returns the new path, "" if nothing changed.
func (s *Syncer) tag(report *SyncReport, m *Mailing, kind Kind, path string) string {
	renamed, err := s.tagger.ApplyTag(m, path)
	if err != nil {
		s.logger.Error("tagging failed", "path", path, "error", err)
		return ""
	}
	if renamed != "" {
		s.record(report, m, kind, ActionTagged, renamed, path)
	}
	return renamed
}

func (s *Syncer) postProcess(ctx context.Context, report *SyncReport, m *Mailing, kind Kind, path string) {
	if s.post == nil {
		return
	}
	if err := s.post.Run(ctx, path); err != nil {
		s.logger.Warn("post-processing failed", "path", path, "error", err)
		return
	}
	s.record(report, m, kind, ActionPostProcessed, path, "")
}

func (s *Syncer) record(report *SyncReport, m *Mailing, kind Kind, action Action, path, detail string) {
	e := &Event{
		MailingID: m.ID,
		Barcode:   m.Barcode,
		Kind:      kind,
		Action:    action,
		Path:      path,
		Detail:    detail,
		At:        s.clock.Now(),
	}
	report.add(e)
	s.logger.Debug("sync event", "barcode", m.Barcode, "kind", kind.String(), "action", string(action), "path", path)
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordEvent(e); err != nil {
		s.logger.Warn("recording sync event", "error", err)
	}
}
