package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DefaultRungs is the format-selector ladder, tried in order. Each rung is
// more permissive than the one before it: first an MP4-only selection that
// avoids a re-encode, then any best video+audio pair, then whatever single
// format the site offers.
var DefaultRungs = []string{
	"bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
	"bestvideo+bestaudio/best",
	"best",
}

// MinFileSize is the smallest byte count accepted as a real video. Error
// pages and stub files come in under this.
const MinFileSize = 1024

// videoExts are the container extensions scanned for when the fetcher does
// not report an output path.
var videoExts = map[string]bool{
	".mp4": true, ".mkv": true, ".webm": true, ".mov": true,
	".avi": true, ".flv": true, ".m4v": true,
}

// Downloader walks the format ladder until a rung yields a usable file.
type Downloader struct {
	fetcher  Fetcher
	workDir  func(prefix string) (string, error)
	rungs    []string
	minSize  int64
	log      *zap.Logger
	progress func(percent float64)
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithRungs overrides the format ladder.
func WithRungs(rungs []string) DownloaderOption {
	return func(d *Downloader) { d.rungs = rungs }
}

// WithMinSize overrides the minimum accepted file size (for testing).
func WithMinSize(n int64) DownloaderOption {
	return func(d *Downloader) { d.minSize = n }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) DownloaderOption {
	return func(d *Downloader) { d.log = log }
}

// WithProgress sets a download progress callback.
func WithProgress(fn func(percent float64)) DownloaderOption {
	return func(d *Downloader) { d.progress = fn }
}

// NewDownloader creates a Downloader. workDir must return a fresh private
// directory per call; each ladder rung downloads into its own.
func NewDownloader(fetcher Fetcher, workDir func(prefix string) (string, error), opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		fetcher: fetcher,
		workDir: workDir,
		rungs:   DefaultRungs,
		minSize: MinFileSize,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download acquires the video at url, trying each ladder rung in order.
// The work directory of the successful rung is kept alive because the
// result file lives inside it; failed rungs are cleaned up immediately.
func (d *Downloader) Download(ctx context.Context, url string) (*Result, error) {
	var failures []string

	for i, rung := range d.rungs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d.log.Info("download attempt",
			zap.Int("rung", i+1),
			zap.Int("rungs", len(d.rungs)),
			zap.String("format", rung))

		path, err := d.tryRung(ctx, url, rung)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			d.log.Warn("download attempt failed",
				zap.Int("rung", i+1),
				zap.Error(err))
			failures = append(failures, fmt.Sprintf("format %q: %v", rung, err))
			continue
		}

		return &Result{Path: path, Format: rung, Attempts: i + 1}, nil
	}

	return nil, fmt.Errorf("%w: all %d format selectors failed:\n  %s",
		ErrAcquisition, len(d.rungs), strings.Join(failures, "\n  "))
}

// tryRung runs one fetch into a fresh work directory and validates the
// outcome. On failure the work directory is removed.
func (d *Downloader) tryRung(ctx context.Context, url, rung string) (string, error) {
	dir, err := d.workDir("download")
	if err != nil {
		return "", err
	}

	req := Request{
		URL:            url,
		Format:         rung,
		OutputTemplate: filepath.Join(dir, "%(title)s.%(ext)s"),
		Progress:       d.progress,
	}

	reported, err := d.fetcher.Fetch(ctx, req)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}

	path, err := d.locate(dir, reported)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}
	return path, nil
}

// locate finds the downloaded file: the reported path when it checks out,
// otherwise the largest known video file in the work directory.
func (d *Downloader) locate(dir, reported string) (string, error) {
	if reported != "" {
		if info, err := os.Stat(reported); err == nil {
			if info.Size() < d.minSize {
				return "", fmt.Errorf("%w: %s is %d bytes", ErrEmptyDownload, reported, info.Size())
			}
			return reported, nil
		}
		// The reported name can go stale after merging; fall through to
		// the directory scan.
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read work dir: %w", err)
	}

	var best string
	var bestSize int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".part") || !videoExts[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(dir, name)
			bestSize = info.Size()
		}
	}

	if best == "" {
		return "", fmt.Errorf("%w: no video file produced in %s", ErrAcquisition, dir)
	}
	if bestSize < d.minSize {
		return "", fmt.Errorf("%w: %s is %d bytes", ErrEmptyDownload, best, bestSize)
	}
	return best, nil
}
