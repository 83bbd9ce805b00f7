// Package paths owns the on-disk layout of a dubbing run: where intermediate
// files go, how final outputs are named, and how both get cleaned up.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrLayout indicates the working directories could not be prepared.
var ErrLayout = errors.New("cannot prepare working directories")

// Manager hands out paths under a temp directory for intermediates and an
// output directory for final results. Intermediate names carry a UUID so
// concurrent runs never collide.
type Manager struct {
	temp   string
	output string
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithNow sets the clock used for output naming (for testing).
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates both directories if needed and returns a Manager.
func NewManager(tempDir, outputDir string, opts ...Option) (*Manager, error) {
	m := &Manager{temp: tempDir, output: outputDir, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}

	for _, dir := range []string{tempDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLayout, dir, err)
		}
	}
	return m, nil
}

// TempDir returns the intermediate-file directory.
func (m *Manager) TempDir() string { return m.temp }

// OutputDir returns the final-output directory.
func (m *Manager) OutputDir() string { return m.output }

// TempPath returns a unique path for an intermediate file. ext is accepted
// with or without the leading dot, so "wav" and ".wav" name the same file.
func (m *Manager) TempPath(prefix, ext string) string {
	name := fmt.Sprintf("%s_%s%s", sanitize(prefix), uuid.NewString(), extSuffix(ext))
	return filepath.Join(m.temp, name)
}

// WorkDir creates and returns a unique subdirectory for an operation that
// produces files with unpredictable names, like a video download.
func (m *Manager) WorkDir(prefix string) (string, error) {
	dir := filepath.Join(m.temp, fmt.Sprintf("%s_%s", sanitize(prefix), uuid.NewString()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrLayout, dir, err)
	}
	return dir, nil
}

// OutputPath returns a timestamped path for a final result. The short UUID
// suffix disambiguates runs started within the same second. ext is accepted
// with or without the leading dot.
func (m *Manager) OutputPath(stem, ext string) string {
	ts := m.now().Format("20060102_150405")
	short := uuid.NewString()[:8]
	name := fmt.Sprintf("%s_%s_%s%s", sanitize(stem), ts, short, extSuffix(ext))
	return filepath.Join(m.output, name)
}

// extSuffix normalizes a file extension to its ".ext" form. Empty stays
// empty.
func extSuffix(ext string) string {
	if ext == "" {
		return ""
	}
	return "." + strings.TrimPrefix(ext, ".")
}

// CleanupTemp removes everything under the temp directory. The directory
// itself survives so a following run can reuse it.
func (m *Manager) CleanupTemp() error {
	entries, err := os.ReadDir(m.temp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read temp dir: %w", err)
	}

	var firstErr error
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(m.temp, e.Name())); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PruneOutputs deletes the oldest files in the output directory, keeping at
// most keep files. keep <= 0 disables pruning. Returns the removed paths.
func (m *Manager) PruneOutputs(keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}

	entries, err := os.ReadDir(m.output)
	if err != nil {
		return nil, fmt.Errorf("read output dir: %w", err)
	}

	type dated struct {
		path string
		mod  time.Time
	}
	var files []dated
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, dated{filepath.Join(m.output, e.Name()), info.ModTime()})
	}

	if len(files) <= keep {
		return nil, nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })

	var removed []string
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f.path); err != nil {
			return removed, fmt.Errorf("prune %s: %w", f.path, err)
		}
		removed = append(removed, f.path)
	}
	return removed, nil
}

// sanitize strips path separators and whitespace from a name fragment so it
// is safe to embed in a filename.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", " ", "_",
		"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
	)
	s = replacer.Replace(s)
	if s == "" {
		s = "file"
	}
	return s
}
