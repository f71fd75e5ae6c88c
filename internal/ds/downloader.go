package ds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ArtifactSource resolves and streams artifact payloads.
type ArtifactSource interface {
	// ArtifactURL returns the download URL of the artifact, or false when the
	// portal does not offer it (yet).
	ArtifactURL(m *Mailing, kind Kind) (string, bool)
	// Download writes the payload at url to w. A non-success status is an error.
	Download(ctx context.Context, url string, w io.Writer) error
}

// FetchStatus is the outcome of a single artifact download.
type FetchStatus int

const (
	FetchStored      FetchStatus = iota // payload written to Path
	FetchUnavailable                    // expected pre-scan state, not an error
	FetchFailed                         // transport or local write failure, see Err
)

func (s FetchStatus) String() string {
	switch s {
	case FetchStored:
		return "stored"
	case FetchUnavailable:
		return "unavailable"
	case FetchFailed:
		return "failed"
	default:
		return fmt.Sprintf("fetch(%d)", int(s))
	}
}

type FetchResult struct {
	Status FetchStatus
	Path   string
	Err    error
}

// ErrDestinationExists is returned when a download would overwrite a local file.
var ErrDestinationExists = errors.New("destination file already exists")

// Downloader fetches artifacts into the target directory.
type Downloader struct {
	source    ArtifactSource
	targetDir string
	logger    Logger
}

func NewDownloader(source ArtifactSource, targetDir string, logger Logger) *Downloader {
	return &Downloader{source: source, targetDir: targetDir, logger: logger}
}

// DestinationDir returns <target>/<recipient first name> if that folder
// already exists, otherwise the target directory itself.
func (d *Downloader) DestinationDir(m *Mailing) string {
	if folder := m.RecipientFolder(); folder != "" {
		dir := filepath.Join(d.targetDir, folder)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return d.targetDir
}

// Fetch downloads one artifact under its canonical name.
func (d *Downloader) Fetch(ctx context.Context, m *Mailing, kind Kind) FetchResult {
	dest := filepath.Join(d.DestinationDir(m), Name(m, kind))
	return d.FetchTo(ctx, m, kind, dest)
}

// FetchTo downloads one artifact to an explicit destination path.
func (d *Downloader) FetchTo(ctx context.Context, m *Mailing, kind Kind, dest string) FetchResult {
	switch kind {
	case KindFull, KindArchive:
		return FetchResult{Status: FetchFailed, Err: fmt.Errorf("artifact kind %s cannot be downloaded", kind)}
	case KindPDF:
		if !m.IsScanned() {
			return FetchResult{Status: FetchUnavailable}
		}
	}

	url, ok := d.source.ArtifactURL(m, kind)
	if !ok {
		return FetchResult{Status: FetchUnavailable}
	}

	if _, err := os.Lstat(dest); err == nil {
		return FetchResult{Status: FetchFailed, Err: fmt.Errorf("%w: %s", ErrDestinationExists, dest)}
	}

	d.logger.Debug("downloading artifact", "barcode", m.Barcode, "kind", kind.String(), "dest", dest)
	if err := d.writeFile(ctx, url, dest); err != nil {
		return FetchResult{Status: FetchFailed, Err: err}
	}

	d.logger.Info("artifact stored", "barcode", m.Barcode, "kind", kind.String(), "path", dest)
	return FetchResult{Status: FetchStored, Path: dest}
}

// writeFile streams url into a temp file next to destPath and renames it into place.
func (d *Downloader) writeFile(ctx context.Context, url, destPath string) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := d.source.Download(ctx, url, tmpFile); err != nil {
		tmpFile.Close()
		return fmt.Errorf("downloading %s: %w", filepath.Base(destPath), err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
