package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"dropscan-go/internal/config"
	"dropscan-go/internal/credential"
	"dropscan-go/internal/database"
	"dropscan-go/internal/ds"
	"dropscan-go/internal/fs"
	"dropscan-go/internal/ledger"
	"dropscan-go/internal/pdf"
	"dropscan-go/internal/portal"
)

// Demo output files, written to the target directory.
const (
	DemoEnvelopeFile = "demo_envelope.jpg"
	DemoPDFFile      = "demo_pdf.pdf"
)

// Portal is the remote side of the application: the catalog plus the login handshake.
type Portal interface {
	ds.Catalog
	Login(ctx context.Context, user, password string) error
}

// Options carries command-line overrides of the config.
type Options struct {
	Credentials credential.Credentials
	ListCount   int // 0 keeps the configured count
	Proxy       string
	Verbosity   int
}

// Deps are the collaborators of DSApp. NewDSApp builds the real ones.
type Deps struct {
	Portal      Portal
	Journal     *database.SQLiteJournal // nil disables the journal
	Merger      ds.DocumentMerger
	Credentials *credential.Resolver // nil means the flags must be complete
	Logger      ds.Logger
	Clock       ds.Clock
	RunID       string
}

// DSApp is the application layer between the CLI and the sync engine.
// It constructs all dependencies from config, exposes high-level operations
// and manages the journal lifecycle on Close.
type DSApp struct {
	cfg      *config.Config
	portal   Portal
	journal  *database.SQLiteJournal
	merger   ds.DocumentMerger
	resolver *credential.Resolver
	flags    credential.Credentials
	logger   ds.Logger
	clock    ds.Clock
	op       *SyncOperation
	logFile  *os.File
}

// NewDSApp creates a fully wired DSApp from the given config.
// operation identifies the CLI command being run (e.g. "Sync", "Forward").
// The caller must call Close when done.
func NewDSApp(cfg *config.Config, operation string, opts Options) (*DSApp, error) {
	clock := ds.RealClock{}
	runID := ds.UUIDGenerator{}.New()

	slogger, logFile, err := newLogger(cfg.LogDir, runID, LevelForVerbosity(opts.Verbosity))
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	popts := portal.Options{
		BaseURL:            cfg.Portal.BaseURL,
		ListCount:          cfg.Portal.ListCount,
		Proxy:              cfg.Portal.Proxy,
		Timeout:            cfg.Portal.Timeout(),
		InsecureSkipVerify: cfg.Portal.InsecureSkipVerify,
	}
	if opts.ListCount > 0 {
		popts.ListCount = opts.ListCount
	}
	if opts.Proxy != "" {
		popts.Proxy = opts.Proxy
	}
	client, err := portal.NewClient(popts, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating portal client: %w", err)
	}

	journal, err := database.NewJournalFromConfig(cfg.Database, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := journal.CheckMigrations(); err != nil {
		journal.Close()
		logFile.Close()
		return nil, fmt.Errorf("journal schema out of date: %w", err)
	}

	resolver := &credential.Resolver{
		File:   cfg.Credentials.File,
		Prompt: credential.TerminalPrompt(os.Stderr),
	}
	if cfg.Credentials.UseKeyring {
		ring, err := credential.OpenKeyring(filepath.Join(cfg.BaseDir, "keyring"))
		if err != nil {
			logger.Warn("keyring unavailable", "error", err)
		} else {
			resolver.Store = ring
		}
	}

	flags := opts.Credentials
	if flags.User == "" {
		flags.User = cfg.Portal.User
	}

	a := New(cfg, operation, flags, Deps{
		Portal:      client,
		Journal:     journal,
		Merger:      pdf.NewMerger(),
		Credentials: resolver,
		Logger:      logger,
		Clock:       clock,
		RunID:       runID,
	})
	a.logFile = logFile
	return a, nil
}

// New creates a DSApp from explicit dependencies.
func New(cfg *config.Config, operation string, flags credential.Credentials, deps Deps) *DSApp {
	return &DSApp{
		cfg:      cfg,
		portal:   deps.Portal,
		journal:  deps.Journal,
		merger:   deps.Merger,
		resolver: deps.Credentials,
		flags:    flags,
		logger:   deps.Logger,
		clock:    deps.Clock,
		op:       NewSyncOperation(deps.RunID, operation, ""),
	}
}

// Operation returns the operation record of this run.
func (a *DSApp) Operation() *SyncOperation {
	return a.op
}

// persistOperation saves the operation to the journal, giving it an auto-increment ID.
// This should only be called for commands that change local files or batches.
func (a *DSApp) persistOperation(params any) error {
	if a.op.Persisted() || a.journal == nil {
		return nil
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encoding operation parameters: %w", err)
		}
		a.op.Parameters = string(data)
	}
	id, err := a.journal.CreateOperation(a.op.RunID, a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = id
	return nil
}

// eventJournal returns the journal bound to the current operation, or nil.
func (a *DSApp) eventJournal() ds.Journal {
	if a.journal == nil || !a.op.Persisted() {
		return nil
	}
	return a.journal.ForOperation(a.op.ID)
}

// Login resolves the credentials and logs into the portal. Failure is fatal
// for every command that needs the portal.
func (a *DSApp) Login(ctx context.Context) error {
	creds := &a.flags
	if a.resolver != nil {
		resolved, err := a.resolver.Resolve(a.flags)
		if err != nil {
			return a.op.Fail(fmt.Errorf("resolving credentials: %w", err))
		}
		creds = resolved
	} else if !creds.Complete() {
		return a.op.Fail(errors.New("user and password required"))
	}

	if err := a.portal.Login(ctx, creds.User, creds.Password); err != nil {
		return a.op.Fail(fmt.Errorf("logging in as %s: %w", creds.User, err))
	}
	a.logger.Info("logged in", "user", creds.User)
	return nil
}

// mailingLists holds the four portal inboxes of one run.
type mailingLists struct {
	byFilter map[ds.ListFilter][]*ds.Mailing
}

// all returns every mailing, newest first within each inbox, in the order the
// sync walks them backwards: scanned first, destroyed last.
func (l *mailingLists) all() []*ds.Mailing {
	var out []*ds.Mailing
	for _, f := range []ds.ListFilter{ds.FilterDestroyed, ds.FilterForwarded, ds.FilterReceived, ds.FilterScanned} {
		out = append(out, l.byFilter[f]...)
	}
	return out
}

// forwardable returns the scanned and received inboxes.
func (l *mailingLists) forwardable() []*ds.Mailing {
	return append(append([]*ds.Mailing{}, l.byFilter[ds.FilterScanned]...), l.byFilter[ds.FilterReceived]...)
}

func (a *DSApp) listAll(ctx context.Context) (*mailingLists, error) {
	lists := &mailingLists{byFilter: make(map[ds.ListFilter][]*ds.Mailing)}
	for _, f := range ds.AllFilters {
		mailings, err := a.portal.List(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("listing %s mailings: %w", f, err)
		}
		lists.byFilter[f] = mailings
	}
	return lists, nil
}

// SyncRequest holds the per-run sync switches. They add to the config.
type SyncRequest struct {
	Thumbnails   bool     `json:"thumbnails,omitempty"`
	NoCombine    bool     `json:"no_combine,omitempty"`
	IgnoreLedger bool     `json:"ignore_ledger,omitempty"`
	Dirs         []string `json:"dirs,omitempty"`
	Recursive    bool     `json:"recursive,omitempty"`
	ForwardDirs  []string `json:"forward_dirs,omitempty"`
	ForwardOlder int      `json:"forward_older"` // days; negative disables
}

// SyncResult summarises a sync run including the forwarding step.
type SyncResult struct {
	Report    *ds.SyncReport
	Forwarded int
}

// Sync mirrors every mailing into the target directory, then optionally adds
// mailings to the first unsent forwarding batch.
func (a *DSApp) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	if err := a.persistOperation(req); err != nil {
		return nil, err
	}
	res, err := a.sync(ctx, req)
	return res, a.op.Fail(err)
}

func (a *DSApp) sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	target := a.cfg.Sync.TargetDir
	if err := os.MkdirAll(target, 0755); err != nil {
		return nil, fmt.Errorf("creating target directory: %w", err)
	}

	lister, err := a.lister(target)
	if err != nil {
		return nil, err
	}
	folders, err := a.searchFolders(target, req.Dirs, req.ForwardDirs, req.Recursive)
	if err != nil {
		return nil, err
	}

	ledgerPath := a.cfg.Sync.LedgerPath
	if ledgerPath == "" {
		ledgerPath = filepath.Join(target, ledger.DefaultFileName)
	}
	l, err := ledger.Open(ledgerPath, a.clock)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	lists, err := a.listAll(ctx)
	if err != nil {
		return nil, err
	}

	journal := a.eventJournal()
	downloader := ds.NewDownloader(a.portal, target, a.logger)
	combiner := ds.NewCombiner(a.merger, a.logger)
	syncer := ds.NewSyncer(lister, l, downloader, combiner, journal, a.logger, a.clock)
	if script := a.cfg.Sync.PostProcessScript; script != "" {
		syncer.SetPostProcessor(ds.NewCommandHook(script, target, a.logger))
	}

	report, err := syncer.Sync(ctx, lists.all(), ds.SyncOptions{
		SearchFolders: folders,
		Thumbnails:    req.Thumbnails || a.cfg.Sync.Thumbnails,
		NoCombine:     req.NoCombine || !a.cfg.Sync.Combine,
		IgnoreLedger:  req.IgnoreLedger,
	})
	result := &SyncResult{Report: report}
	if err != nil {
		return result, fmt.Errorf("syncing: %w", err)
	}

	forwarder := ds.NewForwarder(a.portal, lister, a.logger, a.clock)
	forwarder.SetJournal(journal)

	if len(req.ForwardDirs) > 0 {
		n, err := forwarder.ForwardFolders(ctx, lists.forwardable(), req.ForwardDirs)
		result.Forwarded += n
		if err := a.forwardError(err); err != nil {
			return result, err
		}
	}
	if req.ForwardOlder >= 0 {
		n, err := forwarder.ForwardOlderThan(ctx, lists.forwardable(), req.ForwardOlder)
		result.Forwarded += n
		if err := a.forwardError(err); err != nil {
			return result, err
		}
	}
	return result, nil
}

// forwardError downgrades a missing batch to a warning.
func (a *DSApp) forwardError(err error) error {
	if errors.Is(err, ds.ErrNoUnsentBatch) {
		a.logger.Warn("no unsent forwarding batch, create one in the web interface")
		return nil
	}
	if err != nil {
		return fmt.Errorf("forwarding: %w", err)
	}
	return nil
}

func (a *DSApp) lister(target string) (*fs.OSFileLister, error) {
	ignore, err := fs.LoadIgnoreMatcher(target, a.cfg.Filesystem.Ignore)
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}
	return fs.NewOSFileLister(ignore), nil
}

// searchFolders returns the folders checked for existing files: the target,
// its recipient subfolders, configured and requested dirs, and with recursive
// every folder below the target.
func (a *DSApp) searchFolders(target string, dirs, forwardDirs []string, recursive bool) ([]string, error) {
	folders := []string{target}

	children, err := fs.ChildFolders(target)
	if err != nil {
		return nil, fmt.Errorf("listing recipient folders: %w", err)
	}
	folders = append(folders, children...)
	folders = append(folders, a.cfg.Sync.SearchDirs...)
	folders = append(folders, dirs...)
	folders = append(folders, forwardDirs...)

	if recursive || a.cfg.Sync.Recursive {
		all, err := fs.SubFolders(target)
		if err != nil {
			return nil, fmt.Errorf("listing subfolders: %w", err)
		}
		folders = append(folders, all...)
	}
	return folders, nil
}

// Batches returns the unsent forwarding batches.
func (a *DSApp) Batches(ctx context.Context) ([]*ds.Batch, error) {
	return ds.NewForwarder(a.portal, nil, a.logger, a.clock).UnsentBatches(ctx)
}

// ForwardMailing adds one mailing to the first unsent forwarding batch.
func (a *DSApp) ForwardMailing(ctx context.Context, mailingID string) (ds.AddResult, error) {
	if err := a.persistOperation(map[string]string{"mailing_id": mailingID}); err != nil {
		return 0, err
	}
	res, err := ds.NewForwarder(a.portal, nil, a.logger, a.clock).AddToBatch(ctx, mailingID, nil)
	return res, a.op.Fail(err)
}

// CheckDuplicates reports mailings with more than one local file of the same type.
func (a *DSApp) CheckDuplicates(ctx context.Context, dirs []string, recursive bool) ([]*ds.Duplicate, error) {
	target := a.cfg.Sync.TargetDir
	lister, err := a.lister(target)
	if err != nil {
		return nil, err
	}
	folders, err := a.searchFolders(target, dirs, nil, recursive)
	if err != nil {
		return nil, err
	}
	lists, err := a.listAll(ctx)
	if err != nil {
		return nil, err
	}
	return ds.CheckDuplicates(lister, a.logger, lists.all(), folders)
}

// Demo lists every inbox with the local envelope of each mailing and
// downloads envelope and PDF of the oldest scanned mailing to the demo files.
func (a *DSApp) Demo(ctx context.Context, w io.Writer) error {
	target := a.cfg.Sync.TargetDir
	lister, err := a.lister(target)
	if err != nil {
		return err
	}
	folders, err := a.searchFolders(target, nil, nil, false)
	if err != nil {
		return err
	}
	index := ds.NewLocalIndex(lister, a.logger)
	if _, err := index.BuildOrReuse(folders); err != nil {
		return fmt.Errorf("building local index: %w", err)
	}

	lists, err := a.listAll(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "=== Mailings ===")
	for _, f := range ds.AllFilters {
		fmt.Fprintf(w, "INBOX: %s\n", f)
		for i, m := range lists.byFilter[f] {
			local := index.FindFirst(ds.MatchPattern(m, ds.KindEnvelope))
			if local == "" {
				local = "-"
			}
			fmt.Fprintf(w, "%2d: %s %s local envelope: %s\n", i, m.CreatedAt.Format("2006-01-02 15:04"), m.Barcode, local)
		}
	}

	scanned := lists.byFilter[ds.FilterScanned]
	if len(scanned) == 0 {
		fmt.Fprintln(w, "no scanned mailing to download")
		return nil
	}
	oldest := scanned[len(scanned)-1]

	fmt.Fprintf(w, "=== Download of %s to %s / %s ===\n", oldest.Barcode, DemoEnvelopeFile, DemoPDFFile)
	downloader := ds.NewDownloader(a.portal, target, a.logger)
	var errs []error
	for _, d := range []struct {
		kind ds.Kind
		name string
	}{
		{ds.KindEnvelope, DemoEnvelopeFile},
		{ds.KindPDF, DemoPDFFile},
	} {
		res := downloader.FetchTo(ctx, oldest, d.kind, filepath.Join(target, d.name))
		fmt.Fprintf(w, "%s: %s %s\n", d.kind, res.Status, res.Path)
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// History returns the most recent operations from the journal.
func (a *DSApp) History(limit int) ([]*database.Operation, error) {
	if a.journal == nil {
		return nil, errors.New("journal disabled")
	}
	return a.journal.ListOperations(limit)
}

// Events returns the events recorded for one run.
func (a *DSApp) Events(runID string) ([]*ds.Event, error) {
	if a.journal == nil {
		return nil, errors.New("journal disabled")
	}
	op, err := a.journal.FindOperation(runID)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, fmt.Errorf("no run with id %s", runID)
	}
	return a.journal.EventsForOperation(op.ID)
}

// Close finalizes the operation and closes all resources.
func (a *DSApp) Close() error {
	var firstErr error

	if a.journal != nil {
		if a.op.Persisted() {
			if err := a.journal.FinishOperation(a.op.ID, a.op.Status); err != nil {
				firstErr = fmt.Errorf("finishing operation: %w", err)
			}
		}
		if err := a.journal.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing journal: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
