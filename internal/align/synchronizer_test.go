package align

// Notes:
// - The reconciliation branches are pure argument builders, so the decision
//   procedure is tested through the argv each branch produces.
// - The runner fake writes real output files; verification and scratch
//   cleanup are checked against the filesystem.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeProber struct {
	durations map[string]time.Duration
	scratch   time.Duration // reported for files not in the map
	hasAudio  bool
	audioErr  error
}

func (f *fakeProber) Duration(ctx context.Context, file string) (time.Duration, error) {
	if d, ok := f.durations[file]; ok {
		return d, nil
	}
	if f.scratch > 0 {
		return f.scratch, nil
	}
	return 0, errors.New("unknown file")
}

func (f *fakeProber) HasAudio(ctx context.Context, file string) (bool, error) {
	return f.hasAudio, f.audioErr
}

// fakeRunner records every argv and writes outSize bytes to the last arg.
type fakeRunner struct {
	calls   [][]string
	outSize int
	failOn  int // 1-based call index to fail at, 0 means never
}

func (f *fakeRunner) run(ctx context.Context, ffmpegPath string, args []string, timeout time.Duration) error {
	f.calls = append(f.calls, append([]string(nil), args...))
	if f.failOn > 0 && len(f.calls) == f.failOn {
		return errors.New("ffmpeg exploded")
	}
	size := f.outSize
	if size == 0 {
		size = 4096
	}
	return os.WriteFile(args[len(args)-1], make([]byte, size), 0o644)
}

type testPather struct {
	dir string
	n   int
}

func (p *testPather) TempPath(prefix, ext string) string {
	p.n++
	return filepath.Join(p.dir, fmt.Sprintf("%s_%d%s", prefix, p.n, ext))
}

func (p *testPather) OutputPath(stem, ext string) string {
	p.n++
	return filepath.Join(p.dir, fmt.Sprintf("%s_out_%d%s", stem, p.n, ext))
}

func newTestSync(t *testing.T, videoDur, audioDur time.Duration, runner *fakeRunner) (*Synchronizer, string, string, *testPather) {
	t.Helper()

	dir := t.TempDir()
	video := filepath.Join(dir, "input.mp4")
	audio := filepath.Join(dir, "speech.wav")
	for _, f := range []string{video, audio} {
		if err := os.WriteFile(f, make([]byte, 5000), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	probe := &fakeProber{
		durations: map[string]time.Duration{video: videoDur, audio: audioDur},
		scratch:   videoDur,
		hasAudio:  true,
	}
	pather := &testPather{dir: t.TempDir()}
	s := NewSynchronizer("/usr/bin/ffmpeg", pather,
		WithRun(runner.run),
		WithProbe(probe),
		WithLogger(zap.NewNop()))
	return s, video, audio, pather
}

func hasArgPair(args []string, flag, value string) bool {
	for i, a := range args {
		if a == flag && i+1 < len(args) && args[i+1] == value {
			return true
		}
	}
	return false
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestSync_SmallDiffHardTrims(t *testing.T) {
	t.Parallel()

	// 10.3s audio against 10.0s video: inside the threshold, trim only.
	runner := &fakeRunner{}
	s, video, audio, _ := newTestSync(t, 10*time.Second, 10300*time.Millisecond, runner)

	out, err := s.Sync(context.Background(), video, audio)
	if err != nil {
		t.Fatalf("Sync() unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("Sync() returned empty path")
	}

	if len(runner.calls) != 3 {
		t.Fatalf("ran %d commands, want reconcile + fades + mux", len(runner.calls))
	}

	reconcile := runner.calls[0]
	if got := argValue(reconcile, "-t"); got != "10.000" {
		t.Errorf("trim length = %q, want 10.000", got)
	}
	if argValue(reconcile, "-af") != "" {
		t.Errorf("small diff should trim without a fade filter, got %v", reconcile)
	}
}

func TestSync_AudioLongerTrimsWithFade(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s, video, audio, _ := newTestSync(t, 10*time.Second, 12*time.Second, runner)

	if _, err := s.Sync(context.Background(), video, audio); err != nil {
		t.Fatalf("Sync() unexpected error: %v", err)
	}

	reconcile := runner.calls[0]
	if got := argValue(reconcile, "-t"); got != "10.000" {
		t.Errorf("trim length = %q, want 10.000", got)
	}
	// Fade out over the last 0.15s of the kept audio.
	if got := argValue(reconcile, "-af"); got != "afade=t=out:st=9.850:d=0.150" {
		t.Errorf("fade filter = %q", got)
	}
}

func TestSync_AudioShorterPadsWithSilence(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s, video, audio, _ := newTestSync(t, 10*time.Second, 8*time.Second, runner)

	if _, err := s.Sync(context.Background(), video, audio); err != nil {
		t.Fatalf("Sync() unexpected error: %v", err)
	}

	reconcile := runner.calls[0]
	if got := argValue(reconcile, "-t"); got != "2.000" {
		t.Errorf("silence length = %q, want 2.000", got)
	}
	if !hasArgPair(reconcile, "-i", "anullsrc=r=44100:cl=mono") {
		t.Errorf("silence source missing: %v", reconcile)
	}

	filter := argValue(reconcile, "-filter_complex")
	if !strings.Contains(filter, "afade=t=out:st=7.850:d=0.150") {
		t.Errorf("filter %q should fade the original out at its end", filter)
	}
	if !strings.Contains(filter, "afade=t=in:st=0:d=0.150") {
		t.Errorf("filter %q should fade the silence in", filter)
	}
	if !strings.Contains(filter, "concat=n=2:v=0:a=1") {
		t.Errorf("filter %q should concat audio and silence", filter)
	}
}

func TestSync_BoundaryFadesAndMux(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s, video, audio, _ := newTestSync(t, 10*time.Second, 10*time.Second, runner)

	out, err := s.Sync(context.Background(), video, audio)
	if err != nil {
		t.Fatalf("Sync() unexpected error: %v", err)
	}

	fades := runner.calls[1]
	if got := argValue(fades, "-af"); got != "afade=t=in:st=0:d=0.150,afade=t=out:st=9.850:d=0.150" {
		t.Errorf("boundary fades = %q", got)
	}

	mux := runner.calls[2]
	if mux[len(mux)-1] != out {
		t.Errorf("mux writes to %q, Sync returned %q", mux[len(mux)-1], out)
	}
	for flag, want := range map[string]string{
		"-c:v": "copy",
		"-c:a": "aac",
		"-b:a": "192k",
		"-ar":  "44100",
	} {
		if got := argValue(mux, flag); got != want {
			t.Errorf("mux %s = %q, want %q", flag, got, want)
		}
	}
	if !hasArgPair(mux, "-map", "0:v") || !hasArgPair(mux, "-map", "1:a") {
		t.Errorf("mux should map video from input 0 and audio from input 1: %v", mux)
	}
}

func TestSync_BoundaryFadeTracksReconciledLength(t *testing.T) {
	t.Parallel()

	// 9.7s audio against 10s video sits inside the threshold, but the hard
	// trim cannot extend it: the written track stays 9.7s and the closing
	// fade must anchor there, not at the video's end.
	runner := &fakeRunner{}
	s, video, audio, _ := newTestSync(t, 10*time.Second, 9700*time.Millisecond, runner)
	s.probe.(*fakeProber).scratch = 9700 * time.Millisecond

	if _, err := s.Sync(context.Background(), video, audio); err != nil {
		t.Fatalf("Sync() unexpected error: %v", err)
	}

	fades := runner.calls[1]
	if got := argValue(fades, "-af"); got != "afade=t=in:st=0:d=0.150,afade=t=out:st=9.550:d=0.150" {
		t.Errorf("boundary fades = %q, want fade out starting at 9.550", got)
	}
}

func TestSync_CleansScratchFiles(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s, video, audio, pather := newTestSync(t, 10*time.Second, 10*time.Second, runner)

	out, err := s.Sync(context.Background(), video, audio)
	if err != nil {
		t.Fatalf("Sync() unexpected error: %v", err)
	}

	entries, err := os.ReadDir(pather.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || filepath.Join(pather.dir, entries[0].Name()) != out {
		t.Errorf("scratch dir should hold only the final output, got %v", entries)
	}
}

func TestSync_MissingInputs(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s, video, audio, _ := newTestSync(t, 10*time.Second, 10*time.Second, runner)

	if _, err := s.Sync(context.Background(), "/nonexistent.mp4", audio); !errors.Is(err, ErrInputMissing) {
		t.Errorf("missing video: error = %v, want ErrInputMissing", err)
	}
	if _, err := s.Sync(context.Background(), video, "/nonexistent.wav"); !errors.Is(err, ErrInputMissing) {
		t.Errorf("missing audio: error = %v, want ErrInputMissing", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("ffmpeg should not run with missing inputs")
	}
}

func TestSync_TinyOutputRejected(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{outSize: 100}
	s, video, audio, _ := newTestSync(t, 10*time.Second, 10*time.Second, runner)

	_, err := s.Sync(context.Background(), video, audio)
	if !errors.Is(err, ErrSync) {
		t.Errorf("Sync() error = %v, want ErrSync for tiny output", err)
	}
}

func TestSync_RunFailureWrapsErrSync(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{failOn: 1}
	s, video, audio, _ := newTestSync(t, 10*time.Second, 12*time.Second, runner)

	_, err := s.Sync(context.Background(), video, audio)
	if !errors.Is(err, ErrSync) {
		t.Errorf("Sync() error = %v, want ErrSync", err)
	}
}

func TestSync_MissingAudioTrackOnlyWarns(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s, video, audio, _ := newTestSync(t, 10*time.Second, 10*time.Second, runner)
	s.probe.(*fakeProber).hasAudio = false

	if _, err := s.Sync(context.Background(), video, audio); err != nil {
		t.Errorf("missing audio track should not fail the sync: %v", err)
	}
}

func TestFadeOutFilter_ShortTrack(t *testing.T) {
	t.Parallel()

	// A track shorter than the fade ramps from zero instead of a negative
	// start time.
	if got := fadeOutFilter(100 * time.Millisecond); got != "afade=t=out:st=0.000:d=0.150" {
		t.Errorf("fadeOutFilter(100ms) = %q", got)
	}
}
