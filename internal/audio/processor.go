// Package audio wraps the FFmpeg operations the pipeline needs on audio
// files: track extraction, format conversion, silence generation and
// gap-padded concatenation.
//
// All intermediate audio is mono 16-bit PCM WAV at 44.1 kHz. WAV keeps
// concatenation lossless; the sample rate matches what both the speech
// engine and the final AAC encode expect.
package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-dub/internal/ffmpeg"
)

const (
	// SampleRate is the sample rate of every intermediate WAV file.
	SampleRate = 44100

	// MP3Bitrate is used when compressing audio for upload.
	MP3Bitrate = "192k"

	// shutdownTimeout bounds how long FFmpeg gets to finalize a file after
	// a cancellation before being killed.
	shutdownTimeout = 5 * time.Second
)

// runFn executes an FFmpeg command; injectable for tests.
type runFn func(ctx context.Context, ffmpegPath string, args []string, timeout time.Duration) error

// Processor runs audio operations through FFmpeg.
type Processor struct {
	ffmpegPath string
	run        runFn
	probe      *ffmpeg.Probe
	log        *zap.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithRun sets a custom FFmpeg runner (for testing).
func WithRun(fn runFn) ProcessorOption {
	return func(p *Processor) { p.run = fn }
}

// WithProbe sets a custom media probe (for testing).
func WithProbe(probe *ffmpeg.Probe) ProcessorOption {
	return func(p *Processor) { p.probe = probe }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) ProcessorOption {
	return func(p *Processor) { p.log = log }
}

// NewProcessor creates a Processor using the FFmpeg binary at ffmpegPath.
func NewProcessor(ffmpegPath string, opts ...ProcessorOption) *Processor {
	p := &Processor{
		ffmpegPath: ffmpegPath,
		run:        ffmpeg.RunGraceful,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.probe == nil {
		p.probe = ffmpeg.NewProbe(ffmpegPath, nil)
	}
	return p
}

// ExtractWAV pulls the audio track out of a video file as mono PCM WAV.
func (p *Processor) ExtractWAV(ctx context.Context, videoPath, outPath string) error {
	if _, err := os.Stat(videoPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, videoPath)
	}

	p.log.Debug("extracting audio track",
		zap.String("video", videoPath),
		zap.String("out", outPath))

	args := []string{
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(SampleRate),
		"-ac", "1",
		"-y", outPath,
	}
	if err := p.run(ctx, p.ffmpegPath, args, shutdownTimeout); err != nil {
		return fmt.Errorf("%w: extract %s: %v", ErrProcessing, videoPath, err)
	}
	return p.verifyOutput(outPath)
}

// ConvertMP3 compresses a WAV file to MP3. Used before uploading audio to
// the transcription service, where a PCM file would be needlessly large.
func (p *Processor) ConvertMP3(ctx context.Context, wavPath, outPath string) error {
	if _, err := os.Stat(wavPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, wavPath)
	}

	args := []string{
		"-i", wavPath,
		"-codec:a", "libmp3lame",
		"-b:a", MP3Bitrate,
		"-y", outPath,
	}
	if err := p.run(ctx, p.ffmpegPath, args, shutdownTimeout); err != nil {
		return fmt.Errorf("%w: convert %s: %v", ErrProcessing, wavPath, err)
	}
	return p.verifyOutput(outPath)
}

// Silence writes a WAV file containing d of silence.
func (p *Processor) Silence(ctx context.Context, d time.Duration, outPath string) error {
	if d <= 0 {
		return fmt.Errorf("%w: silence duration must be positive, got %v", ErrProcessing, d)
	}

	args := []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=mono", SampleRate),
		"-t", ffmpeg.FormatSeconds(d),
		"-acodec", "pcm_s16le",
		"-y", outPath,
	}
	if err := p.run(ctx, p.ffmpegPath, args, shutdownTimeout); err != nil {
		return fmt.Errorf("%w: generate silence: %v", ErrProcessing, err)
	}
	return p.verifyOutput(outPath)
}

// ConcatWithGaps joins WAV files in order, inserting gap of silence between
// consecutive inputs. All inputs must share the intermediate WAV format so
// the concat demuxer can stream-copy them.
func (p *Processor) ConcatWithGaps(ctx context.Context, inputs []string, gap time.Duration, outPath string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: no input files to concatenate", ErrProcessing)
	}
	for _, in := range inputs {
		if _, err := os.Stat(in); err != nil {
			return fmt.Errorf("%w: %s", ErrFileNotFound, in)
		}
	}

	dir := filepath.Dir(outPath)

	var gapPath string
	if gap > 0 && len(inputs) > 1 {
		gapPath = filepath.Join(dir, filepath.Base(outPath)+".gap.wav")
		if err := p.Silence(ctx, gap, gapPath); err != nil {
			return err
		}
		defer func() { _ = os.Remove(gapPath) }()
	}

	listPath := filepath.Join(dir, filepath.Base(outPath)+".list")
	if err := os.WriteFile(listPath, []byte(concatList(inputs, gapPath)), 0o644); err != nil {
		return fmt.Errorf("%w: write concat list: %v", ErrProcessing, err)
	}
	defer func() { _ = os.Remove(listPath) }()

	p.log.Debug("concatenating audio",
		zap.Int("inputs", len(inputs)),
		zap.Duration("gap", gap),
		zap.String("out", outPath))

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y", outPath,
	}
	if err := p.run(ctx, p.ffmpegPath, args, shutdownTimeout); err != nil {
		return fmt.Errorf("%w: concatenate: %v", ErrProcessing, err)
	}
	return p.verifyOutput(outPath)
}

// Duration returns the duration of an audio or video file.
func (p *Processor) Duration(ctx context.Context, path string) (time.Duration, error) {
	d, err := p.probe.Duration(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	return d, nil
}

// concatList renders the concat demuxer file: each input on a "file" line,
// with the gap file interleaved between consecutive inputs.
func concatList(inputs []string, gapPath string) string {
	var b strings.Builder
	for i, in := range inputs {
		if i > 0 && gapPath != "" {
			fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(gapPath))
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(in))
	}
	return b.String()
}

// escapeConcatPath escapes single quotes for the concat demuxer's quoting
// rules: a quote ends the string, so it becomes '\''.
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

// verifyOutput confirms FFmpeg actually produced a non-empty file. A WAV
// header alone is 44 bytes, so anything at or below that holds no audio.
func (p *Processor) verifyOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: output %s missing: %v", ErrProcessing, path, err)
	}
	if info.Size() <= 44 {
		return fmt.Errorf("%w: output %s is empty (%d bytes)", ErrProcessing, path, info.Size())
	}
	return nil
}
