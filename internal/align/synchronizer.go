// Package align reconciles the synthesized audio track with the original
// video's duration and muxes the two into the final output file.
//
// The video stream is never stretched or retimed. Only the audio is
// trimmed or padded: speed-adjusting video produces visible motion
// artifacts, so mismatches are always absorbed on the audio side.
package align

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-dub/internal/ffmpeg"
)

const (
	// Threshold is the duration mismatch below which audio and video are
	// treated as already aligned.
	Threshold = 500 * time.Millisecond

	// Fade softens hard cuts and joins so they do not click.
	Fade = 150 * time.Millisecond

	// minOutputBytes rejects output files too small to be a real video.
	minOutputBytes = 1024

	// muxTimeout bounds how long FFmpeg gets to finalize after a
	// cancellation before being killed.
	muxTimeout = 5 * time.Second
)

// runFn executes an FFmpeg command; injectable for tests.
type runFn func(ctx context.Context, ffmpegPath string, args []string, timeout time.Duration) error

// prober reads media durations and stream layout. Implemented by
// ffmpeg.Probe.
type prober interface {
	Duration(ctx context.Context, file string) (time.Duration, error)
	HasAudio(ctx context.Context, file string) (bool, error)
}

// pather hands out scratch and final output paths. Implemented by
// paths.Manager.
type pather interface {
	TempPath(prefix, ext string) string
	OutputPath(stem, ext string) string
}

// Synchronizer aligns a synthesized audio track to a video and muxes them.
// It holds no per-call state; Sync may be called repeatedly.
type Synchronizer struct {
	ffmpegPath string
	run        runFn
	probe      prober
	paths      pather
	log        *zap.Logger
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithRun sets a custom FFmpeg runner (for testing).
func WithRun(fn runFn) Option {
	return func(s *Synchronizer) { s.run = fn }
}

// WithProbe sets a custom media probe (for testing).
func WithProbe(p prober) Option {
	return func(s *Synchronizer) { s.probe = p }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Synchronizer) { s.log = log }
}

// NewSynchronizer creates a Synchronizer using the FFmpeg binary at
// ffmpegPath and writing outputs through paths.
func NewSynchronizer(ffmpegPath string, paths pather, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		ffmpegPath: ffmpegPath,
		run:        ffmpeg.RunGraceful,
		paths:      paths,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.probe == nil {
		s.probe = ffmpeg.NewProbe(ffmpegPath, nil)
	}
	return s
}

// Sync reconciles audioPath's duration against videoPath's and muxes the
// result into a new output file, whose path is returned.
func (s *Synchronizer) Sync(ctx context.Context, videoPath, audioPath string) (string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return "", fmt.Errorf("%w: video %s", ErrInputMissing, videoPath)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("%w: audio %s", ErrInputMissing, audioPath)
	}

	videoDur, err := s.probe.Duration(ctx, videoPath)
	if err != nil {
		return "", fmt.Errorf("%w: probing video: %v", ErrSync, err)
	}
	audioDur, err := s.probe.Duration(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: probing audio: %v", ErrSync, err)
	}

	diff := audioDur - videoDur
	s.log.Info("reconciling durations",
		zap.Duration("video", videoDur),
		zap.Duration("audio", audioDur),
		zap.Duration("diff", diff))

	reconciled := s.paths.TempPath("sync_reconciled", ".wav")
	faded := s.paths.TempPath("sync_faded", ".wav")
	defer func() {
		for _, f := range []string{reconciled, faded} {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				s.log.Warn("cannot remove scratch file", zap.String("path", f), zap.Error(err))
			}
		}
	}()

	var args []string
	switch {
	case diff >= -Threshold && diff <= Threshold:
		// Close enough. A hard trim to the exact video length is all the
		// equalization needed; the boundary fades below cover the cut.
		args = trimArgs(audioPath, reconciled, videoDur, false)
	case diff > 0:
		s.log.Info("audio longer than video, trimming", zap.Duration("excess", diff))
		args = trimArgs(audioPath, reconciled, videoDur, true)
	default:
		s.log.Info("audio shorter than video, padding with silence", zap.Duration("shortfall", -diff))
		args = padArgs(audioPath, reconciled, audioDur, -diff)
	}
	if err := s.run(ctx, s.ffmpegPath, args, muxTimeout); err != nil {
		return "", fmt.Errorf("%w: reconciling audio: %v", ErrSync, err)
	}

	// The fade-out must anchor on the track FFmpeg actually wrote: a trim
	// with -t never extends audio shorter than the video, so the video
	// length can overshoot the real end.
	reconciledDur, err := s.probe.Duration(ctx, reconciled)
	if err != nil {
		return "", fmt.Errorf("%w: probing reconciled audio: %v", ErrSync, err)
	}

	if err := s.run(ctx, s.ffmpegPath, boundaryFadeArgs(reconciled, faded, reconciledDur), muxTimeout); err != nil {
		return "", fmt.Errorf("%w: boundary fades: %v", ErrSync, err)
	}

	outPath := s.paths.OutputPath("dubbed", ".mp4")
	if err := s.run(ctx, s.ffmpegPath, muxArgs(videoPath, faded, outPath), muxTimeout); err != nil {
		return "", fmt.Errorf("%w: muxing: %v", ErrSync, err)
	}

	if err := verifyOutput(outPath); err != nil {
		return "", err
	}

	// Best effort: a result without an audio track is suspicious but the
	// file itself is fine, so only warn.
	if hasAudio, err := s.probe.HasAudio(ctx, outPath); err != nil {
		s.log.Warn("cannot verify audio track in output", zap.Error(err))
	} else if !hasAudio {
		s.log.Warn("output has no audio track", zap.String("path", outPath))
	}

	s.log.Info("synchronization complete", zap.String("output", outPath))
	return outPath, nil
}

// trimArgs cuts audio to exactly target length. With fadeOut set the last
// Fade of the kept audio ramps down so the cut does not click.
func trimArgs(audioPath, outPath string, target time.Duration, fadeOut bool) []string {
	args := []string{
		"-i", audioPath,
		"-t", ffmpeg.FormatSeconds(target),
	}
	if fadeOut {
		args = append(args, "-af", fadeOutFilter(target))
	}
	return append(args, pcmArgs(outPath)...)
}

// padArgs extends audio by shortfall of generated silence, fading the
// original out and the silence in at the join.
func padArgs(audioPath, outPath string, audioDur, shortfall time.Duration) []string {
	filter := fmt.Sprintf(
		"[0:a]%s[a0];[1:a]afade=t=in:st=0:d=%s[a1];[a0][a1]concat=n=2:v=0:a=1[joined]",
		fadeOutFilter(audioDur), ffmpeg.FormatSeconds(Fade))

	args := []string{
		"-i", audioPath,
		"-f", "lavfi",
		"-t", ffmpeg.FormatSeconds(shortfall),
		"-i", "anullsrc=r=44100:cl=mono",
		"-filter_complex", filter,
		"-map", "[joined]",
	}
	return append(args, pcmArgs(outPath)...)
}

// boundaryFadeArgs applies the final fade-in/fade-out at the assembled
// track's absolute start and end.
func boundaryFadeArgs(inPath, outPath string, total time.Duration) []string {
	filter := fmt.Sprintf("afade=t=in:st=0:d=%s,%s",
		ffmpeg.FormatSeconds(Fade), fadeOutFilter(total))
	args := []string{
		"-i", inPath,
		"-af", filter,
	}
	return append(args, pcmArgs(outPath)...)
}

// muxArgs combines the original video stream (copied, timing untouched)
// with the reconciled audio encoded as AAC.
func muxArgs(videoPath, audioPath, outPath string) []string {
	return []string{
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", "44100",
		"-ac", "1",
		"-y", outPath,
	}
}

// fadeOutFilter ramps the last Fade of a track of the given length down to
// silence. Tracks shorter than the fade ramp from their start.
func fadeOutFilter(total time.Duration) string {
	start := total - Fade
	if start < 0 {
		start = 0
	}
	return fmt.Sprintf("afade=t=out:st=%s:d=%s",
		ffmpeg.FormatSeconds(start), ffmpeg.FormatSeconds(Fade))
}

func pcmArgs(outPath string) []string {
	return []string{
		"-acodec", "pcm_s16le",
		"-ar", "44100",
		"-ac", "1",
		"-y", outPath,
	}
}

func verifyOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: output not written", ErrSync)
	}
	if info.Size() < minOutputBytes {
		return fmt.Errorf("%w: output is empty (%d bytes)", ErrSync, info.Size())
	}
	return nil
}
