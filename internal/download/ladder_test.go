package download

// Notes:
// - The Downloader is tested with a scripted Fetcher: each call either fails
//   or drops a file of a chosen size into the attempt's work directory.
// - Work-directory lifecycle (kept on success, removed on failure) is part
//   of the contract and asserted explicitly.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// scriptedFetcher replays a sequence of canned outcomes, one per call.
type scriptedFetcher struct {
	mu    sync.Mutex
	calls []Request
	steps []fetchStep
}

type fetchStep struct {
	err      error
	fileName string // file to create in the work dir; empty means none
	fileSize int
	report   bool // whether to return the created file's path
}

func (f *scriptedFetcher) Fetch(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	n := len(f.calls) - 1
	f.mu.Unlock()

	if n >= len(f.steps) {
		return "", errors.New("no step scripted for this call")
	}
	step := f.steps[n]
	if step.err != nil {
		return "", step.err
	}

	var path string
	if step.fileName != "" {
		path = filepath.Join(filepath.Dir(req.OutputTemplate), step.fileName)
		if err := os.WriteFile(path, make([]byte, step.fileSize), 0o644); err != nil {
			return "", err
		}
	}
	if step.report {
		return path, nil
	}
	return "", nil
}

func (f *scriptedFetcher) formats() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Format
	}
	return out
}

func newTestDownloader(t *testing.T, fetcher Fetcher, opts ...DownloaderOption) *Downloader {
	t.Helper()

	base := t.TempDir()
	counter := 0
	workDir := func(prefix string) (string, error) {
		counter++
		dir := filepath.Join(base, prefix, "attempt", string(rune('a'+counter)))
		return dir, os.MkdirAll(dir, 0o755)
	}
	return NewDownloader(fetcher, workDir, opts...)
}

func TestDownload_FirstRungSucceeds(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{steps: []fetchStep{
		{fileName: "video.mp4", fileSize: 4096, report: true},
	}}
	d := newTestDownloader(t, fetcher)

	res, err := d.Download(context.Background(), "https://example.com/watch?v=x")
	if err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}

	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
	if res.Format != DefaultRungs[0] {
		t.Errorf("Format = %q, want first rung", res.Format)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Errorf("result file missing: %v", err)
	}
}

func TestDownload_FallsThroughLadder(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{steps: []fetchStep{
		{err: errors.New("requested format not available")},
		{err: errors.New("requested format not available")},
		{fileName: "video.webm", fileSize: 4096, report: true},
	}}
	d := newTestDownloader(t, fetcher)

	res, err := d.Download(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}

	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
	if got := fetcher.formats(); len(got) != 3 || got[0] != DefaultRungs[0] || got[2] != DefaultRungs[2] {
		t.Errorf("formats tried = %v, want the ladder in order", got)
	}
}

func TestDownload_AllRungsFail(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{steps: []fetchStep{
		{err: errors.New("network unreachable")},
		{err: errors.New("requested format not available")},
		{err: errors.New("HTTP Error 403")},
	}}
	d := newTestDownloader(t, fetcher)

	_, err := d.Download(context.Background(), "https://example.com/v")
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("Download() error = %v, want ErrAcquisition", err)
	}

	// Each rung's failure reason survives in the final error.
	for _, reason := range []string{"network unreachable", "requested format not available", "HTTP Error 403"} {
		if !strings.Contains(err.Error(), reason) {
			t.Errorf("error %q missing rung failure %q", err, reason)
		}
	}
}

func TestDownload_TinyFileReentersLadder(t *testing.T) {
	t.Parallel()

	// First rung produces an error-page stub under the size floor; the
	// ladder must treat it as a failure and continue.
	fetcher := &scriptedFetcher{steps: []fetchStep{
		{fileName: "video.mp4", fileSize: 100, report: true},
		{fileName: "video.mp4", fileSize: 4096, report: true},
	}}
	d := newTestDownloader(t, fetcher)

	res, err := d.Download(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}
	if res.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", res.Attempts)
	}
}

func TestDownload_LocatesLargestWhenUnreported(t *testing.T) {
	t.Parallel()

	// The fetcher drops a file but reports nothing; the downloader must
	// scan the work dir and pick the largest video file.
	fetcher := &scriptedFetcher{steps: []fetchStep{
		{fileName: "video.mkv", fileSize: 4096, report: false},
	}}
	d := newTestDownloader(t, fetcher)

	res, err := d.Download(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}
	if filepath.Base(res.Path) != "video.mkv" {
		t.Errorf("Path = %q, want the scanned video.mkv", res.Path)
	}
}

func TestDownload_IgnoresPartialFiles(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{steps: []fetchStep{
		{fileName: "video.mp4.part", fileSize: 9999, report: false},
		{fileName: "video.mp4", fileSize: 4096, report: true},
	}}
	d := newTestDownloader(t, fetcher)

	res, err := d.Download(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}
	if res.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2 (.part file must not count)", res.Attempts)
	}
	if strings.HasSuffix(res.Path, ".part") {
		t.Errorf("Path = %q, want a finished file", res.Path)
	}
}

func TestDownload_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &scriptedFetcher{}
	d := newTestDownloader(t, fetcher)

	_, err := d.Download(ctx, "https://example.com/v")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Download() error = %v, want context.Canceled", err)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetcher ran %d times on a cancelled context, want 0", len(fetcher.calls))
	}
}

func TestDownload_CustomRungs(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{steps: []fetchStep{
		{fileName: "v.mp4", fileSize: 4096, report: true},
	}}
	d := newTestDownloader(t, fetcher, WithRungs([]string{"worst"}))

	res, err := d.Download(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}
	if res.Format != "worst" {
		t.Errorf("Format = %q, want %q", res.Format, "worst")
	}
}
