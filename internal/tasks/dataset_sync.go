package tasks

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"flight_spotter/internal/metrics"
	"flight_spotter/internal/reference"
)

const (
	// ArchiveName is the file name of the FAA releasable aircraft download
	ArchiveName = "ReleasableAircraft.zip"

	// DefaultMaxAge is how old the local archive may get before it is downloaded again
	DefaultMaxAge = 24 * time.Hour
)

// DatasetSync keeps a local copy of the FAA releasable aircraft archive no older than maxAge.
// It only replaces the file on disk; a running process keeps the index it loaded at startup.
type DatasetSync struct {
	url        string
	dir        string
	interval   time.Duration
	maxAge     time.Duration
	httpClient *http.Client
}

func NewDatasetSync(url, dir string, interval time.Duration) *DatasetSync {
	return &DatasetSync{
		url:        url,
		dir:        dir,
		interval:   interval,
		maxAge:     DefaultMaxAge,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (s *DatasetSync) Name() string {
	return "faa-dataset-sync"
}

func (s *DatasetSync) Interval() time.Duration {
	return s.interval
}

// ArchivePath is where the archive is kept
func (s *DatasetSync) ArchivePath() string {
	return filepath.Join(s.dir, ArchiveName)
}

// Run downloads the archive when it is missing or stale
func (s *DatasetSync) Run(ctx context.Context) error {
	downloaded, err := s.Sync(ctx)
	switch {
	case err != nil:
		metrics.DatasetSyncs.WithLabelValues("error").Inc()
		return err
	case downloaded:
		metrics.DatasetSyncs.WithLabelValues("downloaded").Inc()
	default:
		metrics.DatasetSyncs.WithLabelValues("fresh").Inc()
	}
	return nil
}

// Sync reports whether a new archive was written
func (s *DatasetSync) Sync(ctx context.Context) (bool, error) {
	fi, err := os.Stat(s.ArchivePath())
	if err == nil {
		if time.Since(fi.ModTime()) < s.maxAge {
			return false, nil
		}
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat %s: %w", s.ArchivePath(), err)
	}

	slog.Info("Downloading FAA registration archive", "url", s.url, "dir", s.dir)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create dataset directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".download-*.zip")
	if err != nil {
		return false, fmt.Errorf("failed to create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := s.download(ctx, tmp)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close temp archive: %w", closeErr)
	}
	if err != nil {
		return false, err
	}

	if err := checkArchive(tmp.Name()); err != nil {
		return false, err
	}

	if err := os.Rename(tmp.Name(), s.ArchivePath()); err != nil {
		return false, fmt.Errorf("failed to replace archive: %w", err)
	}

	slog.Info("FAA registration archive updated", "path", s.ArchivePath(), "bytes", written)
	return true, nil
}

func (s *DatasetSync) download(ctx context.Context, out io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	// the registry rejects requests without a browser-like user agent
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; flight_spotter)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to download archive: unexpected status code %d", resp.StatusCode)
	}

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to write archive: %w", err)
	}
	return n, nil
}

// checkArchive rejects a download that is not a zip holding both reference files
func checkArchive(path string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("downloaded archive is not a valid zip: %w", err)
	}
	defer r.Close()

	found := map[string]bool{}
	for _, f := range r.File {
		found[f.Name] = true
	}
	for _, name := range []string{reference.MasterFileName, reference.AcftRefFileName} {
		if !found[name] {
			return fmt.Errorf("downloaded archive is missing %s", name)
		}
	}
	return nil
}
