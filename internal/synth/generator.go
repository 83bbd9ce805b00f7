package synth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-dub/internal/textchunk"
)

const (
	// MaxChunkChars bounds fragment length. XTTS degrades past roughly 250
	// characters, so oversized sentences are sliced mid-sentence.
	MaxChunkChars = 250

	// minFragmentBytes rejects fragment files too small to hold audio.
	minFragmentBytes = 100

	// gapDuration is the pause inserted between joined fragments.
	gapDuration = 300 * time.Millisecond

	// placeholderDuration is the silent output for speechless input.
	placeholderDuration = 100 * time.Millisecond
)

// concatenator joins fragment WAVs and produces silences. Implemented by
// audio.Processor.
type concatenator interface {
	Silence(ctx context.Context, d time.Duration, outPath string) error
	ConcatWithGaps(ctx context.Context, inputs []string, gap time.Duration, outPath string) error
}

// tempPather hands out collision-free scratch paths. Implemented by
// paths.Manager.
type tempPather interface {
	TempPath(prefix, ext string) string
}

// Generator synthesizes a full text by chunking it, speaking each chunk
// through the engine and joining the fragments with short silences.
type Generator struct {
	engine   Engine
	audio    concatenator
	temp     tempPather
	voiceWAV string
	log      *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorLogger sets the logger. Defaults to a no-op logger.
func WithGeneratorLogger(log *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.log = log }
}

// NewGenerator creates a Generator. voiceWAV is the speaker reference file
// passed to every engine call; empty means the engine's default voice.
func NewGenerator(engine Engine, audio concatenator, temp tempPather, voiceWAV string, opts ...GeneratorOption) *Generator {
	g := &Generator{
		engine:   engine,
		audio:    audio,
		temp:     temp,
		voiceWAV: voiceWAV,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ValidateVoice checks that a speaker reference file exists and is a WAV.
// An empty path is fine and means the engine's default voice.
func ValidateVoice(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrVoiceMissing, path)
	}
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return fmt.Errorf("%w: %s is not a WAV file", ErrVoiceMissing, path)
	}
	return nil
}

// Generate synthesizes text in the given language and returns the path of
// the combined WAV. Input that cleans down to nothing yields a short silent
// placeholder so downstream stages still have a file to work with.
func (g *Generator) Generate(ctx context.Context, text, language string) (string, error) {
	if err := ValidateVoice(g.voiceWAV); err != nil {
		return "", err
	}

	cleaned := textchunk.CleanForSpeech(text)
	chunks := textchunk.SplitHard(cleaned, MaxChunkChars)
	if len(chunks) == 0 {
		g.log.Warn("no speakable text, emitting silent placeholder")
		out := g.temp.TempPath("tts_silent", ".wav")
		if err := g.audio.Silence(ctx, placeholderDuration, out); err != nil {
			return "", fmt.Errorf("%w: placeholder: %v", ErrSynthesis, err)
		}
		return out, nil
	}

	g.log.Info("synthesizing speech",
		zap.Int("chunks", len(chunks)),
		zap.String("language", language))

	var fragments []string
	defer func() {
		for _, f := range fragments {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				g.log.Warn("cannot remove fragment", zap.String("path", f), zap.Error(err))
			}
		}
	}()

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out := g.temp.TempPath("tts_chunk", ".wav")
		fragments = append(fragments, out)

		if err := g.engine.Synthesize(ctx, Request{
			Text:     chunk,
			Language: language,
			VoiceWAV: g.voiceWAV,
			OutPath:  out,
		}); err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if err := verifyFragment(out); err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		g.log.Debug("chunk synthesized", zap.Int("chunk", i+1), zap.Int("total", len(chunks)))
	}

	combined := g.temp.TempPath("tts_combined", ".wav")
	if err := g.audio.ConcatWithGaps(ctx, fragments, gapDuration, combined); err != nil {
		return "", fmt.Errorf("%w: joining fragments: %v", ErrSynthesis, err)
	}
	return combined, nil
}

func verifyFragment(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: fragment not written", ErrSynthesis)
	}
	if info.Size() < minFragmentBytes {
		return fmt.Errorf("%w: fragment is empty (%d bytes)", ErrSynthesis, info.Size())
	}
	return nil
}
