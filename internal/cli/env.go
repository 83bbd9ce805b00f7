package cli

import (
	"context"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-dub/internal/align"
	"github.com/alnah/go-dub/internal/audio"
	"github.com/alnah/go-dub/internal/config"
	"github.com/alnah/go-dub/internal/download"
	"github.com/alnah/go-dub/internal/ffmpeg"
	"github.com/alnah/go-dub/internal/paths"
	"github.com/alnah/go-dub/internal/synth"
	"github.com/alnah/go-dub/internal/transcribe"
	"github.com/alnah/go-dub/internal/translate"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stderr io.Writer
	Getenv func(string) string
	Log    *zap.Logger

	// Setup
	LoadConfig  func(path string) (config.Config, error)
	ResolveTool func(tool ffmpeg.Tool) (string, error)
	NewPaths    func(tempDir, outputDir string) (PathManager, error)

	// Stage factories
	NewAcquirer    func(deps AcquirerDeps) Acquirer
	NewAudio       func(ffmpegPath string, log *zap.Logger) AudioProcessor
	NewTranscriber func(apiKey string, log *zap.Logger) Transcriber
	NewTranslator  func(provider, apiKey, model string, log *zap.Logger) translate.Translator
	NewSpeech      func(deps SpeechDeps) Speech
	NewAligner     func(ffmpegPath string, pm PathManager, log *zap.Logger) Aligner
}

// PathManager manages the temp and output directory layout.
// Implemented by paths.Manager.
type PathManager interface {
	TempPath(prefix, ext string) string
	WorkDir(prefix string) (string, error)
	OutputPath(stem, ext string) string
	CleanupTemp() error
	PruneOutputs(keep int) ([]string, error)
}

// Acquirer downloads the source video.
type Acquirer interface {
	Download(ctx context.Context, url string) (*download.Result, error)
}

// AudioProcessor runs the FFmpeg audio operations the pipeline needs.
type AudioProcessor interface {
	ExtractWAV(ctx context.Context, videoPath, outPath string) error
	ConvertMP3(ctx context.Context, wavPath, outPath string) error
	Silence(ctx context.Context, d time.Duration, outPath string) error
	ConcatWithGaps(ctx context.Context, inputs []string, gap time.Duration, outPath string) error
}

// Transcriber converts speech audio into a diarized transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts transcribe.Options) (*transcribe.Transcript, error)
}

// Speech synthesizes a full text into one audio file.
type Speech interface {
	Generate(ctx context.Context, text, language string) (string, error)
}

// Aligner reconciles audio with video duration and muxes the result.
type Aligner interface {
	Sync(ctx context.Context, videoPath, audioPath string) (string, error)
}

// AcquirerDeps carries what the download stage needs.
type AcquirerDeps struct {
	YTDLPPath string
	WorkDir   func(prefix string) (string, error)
	Formats   []string
	MinBytes  int64
	Progress  func(percent float64)
	Log       *zap.Logger
}

// SpeechDeps carries what the synthesis stage needs. Engine selects the
// backend and must be validated before the factory is called.
type SpeechDeps struct {
	Engine      string
	ServerURL   string
	CommandPath string
	Model       string
	Voice       string
	Audio       AudioProcessor
	Paths       PathManager
	Log         *zap.Logger
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithLog sets the base logger.
func WithLog(log *zap.Logger) EnvOption {
	return func(e *Env) { e.Log = log }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stderr: os.Stderr,
		Getenv: os.Getenv,
		Log:    zap.NewNop(),

		LoadConfig:  config.Load,
		ResolveTool: defaultResolveTool,
		NewPaths: func(tempDir, outputDir string) (PathManager, error) {
			return paths.NewManager(tempDir, outputDir)
		},

		NewAcquirer:    defaultNewAcquirer,
		NewAudio:       defaultNewAudio,
		NewTranscriber: defaultNewTranscriber,
		NewTranslator:  defaultNewTranslator,
		NewSpeech:      defaultNewSpeech,
		NewAligner:     defaultNewAligner,
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

func defaultResolveTool(tool ffmpeg.Tool) (string, error) {
	return ffmpeg.NewResolver().Resolve(tool)
}

func defaultNewAcquirer(deps AcquirerDeps) Acquirer {
	fetcher := download.NewYTDLPFetcher(deps.YTDLPPath, deps.Log)
	opts := []download.DownloaderOption{
		download.WithLogger(deps.Log),
	}
	if len(deps.Formats) > 0 {
		opts = append(opts, download.WithRungs(deps.Formats))
	}
	if deps.MinBytes > 0 {
		opts = append(opts, download.WithMinSize(deps.MinBytes))
	}
	if deps.Progress != nil {
		opts = append(opts, download.WithProgress(deps.Progress))
	}
	return download.NewDownloader(fetcher, deps.WorkDir, opts...)
}

func defaultNewAudio(ffmpegPath string, log *zap.Logger) AudioProcessor {
	return audio.NewProcessor(ffmpegPath, audio.WithLogger(log))
}

func defaultNewTranscriber(apiKey string, log *zap.Logger) Transcriber {
	return transcribe.NewClient(apiKey, transcribe.WithClientLogger(log))
}

func defaultNewTranslator(provider, apiKey, model string, log *zap.Logger) translate.Translator {
	if provider == ProviderOpenAI {
		opts := []translate.OpenAIOption{translate.WithOpenAILogger(log)}
		if model != "" {
			opts = append(opts, translate.WithOpenAIModel(model))
		}
		return translate.NewOpenAI(apiKey, opts...)
	}
	return translate.NewGoogle(translate.WithGoogleLogger(log))
}

func defaultNewSpeech(deps SpeechDeps) Speech {
	var engine synth.Engine
	if deps.Engine == EngineCommand {
		opts := []synth.CommandOption{synth.WithCommandLogger(deps.Log)}
		if deps.Model != "" {
			opts = append(opts, synth.WithCommandModel(deps.Model))
		}
		engine = synth.NewCommandEngine(deps.CommandPath, opts...)
	} else {
		engine = synth.NewServerEngine(deps.ServerURL, synth.WithServerLogger(deps.Log))
	}
	return synth.NewGenerator(engine, deps.Audio, deps.Paths, deps.Voice,
		synth.WithGeneratorLogger(deps.Log))
}

func defaultNewAligner(ffmpegPath string, pm PathManager, log *zap.Logger) Aligner {
	return align.NewSynchronizer(ffmpegPath, pm, align.WithLogger(log))
}
