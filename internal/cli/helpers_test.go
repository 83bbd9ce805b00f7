package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/alnah/go-dub/internal/config"
	"github.com/alnah/go-dub/internal/ffmpeg"
	"github.com/alnah/go-dub/internal/translate"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	paths       *mockPathManager
	acquirer    *mockAcquirer
	audio       *mockAudio
	transcriber *mockTranscriber
	translator  *mockTranslator
	speech      *mockSpeech
	aligner     *mockAligner

	// Factory arguments recorded for assertions.
	acquirerDeps AcquirerDeps
	speechDeps   SpeechDeps
	provider     string
	model        string
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

// testEnvOptions configures a test environment.
type testEnvOptions struct {
	stderr io.Writer
	getenv func(string) string
	config config.Config
	cfgErr error
}

// testEnvOption configures testEnv.
type testEnvOption func(*testEnvOptions)

func withTestStderr(w io.Writer) testEnvOption {
	return func(o *testEnvOptions) { o.stderr = w }
}

func withTestGetenv(fn func(string) string) testEnvOption {
	return func(o *testEnvOptions) { o.getenv = fn }
}

func withTestConfig(cfg config.Config) testEnvOption {
	return func(o *testEnvOptions) { o.config = cfg }
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions.
func testEnv(t *testing.T, opts ...testEnvOption) (*Env, *testMocks) {
	t.Helper()

	options := &testEnvOptions{
		stderr: &syncBuffer{},
		getenv: defaultTestEnv,
		config: testConfig(t),
	}
	for _, opt := range opts {
		opt(options)
	}

	mocks := &testMocks{
		paths:       &mockPathManager{Dir: t.TempDir()},
		acquirer:    &mockAcquirer{},
		audio:       &mockAudio{},
		transcriber: &mockTranscriber{},
		translator:  &mockTranslator{},
		speech:      &mockSpeech{},
		aligner:     &mockAligner{},
	}

	env := &Env{
		Stderr: options.stderr,
		Getenv: options.getenv,
		Log:    zap.NewNop(),
		LoadConfig: func(path string) (config.Config, error) {
			return options.config, options.cfgErr
		},
		ResolveTool: func(tool ffmpeg.Tool) (string, error) {
			return "/usr/bin/" + tool.Name, nil
		},
		NewPaths: func(tempDir, outputDir string) (PathManager, error) {
			return mocks.paths, nil
		},
		NewAcquirer: func(deps AcquirerDeps) Acquirer {
			mocks.acquirerDeps = deps
			return mocks.acquirer
		},
		NewAudio: func(ffmpegPath string, log *zap.Logger) AudioProcessor {
			return mocks.audio
		},
		NewTranscriber: func(apiKey string, log *zap.Logger) Transcriber {
			return mocks.transcriber
		},
		NewTranslator: func(provider, apiKey, model string, log *zap.Logger) translate.Translator {
			mocks.provider = provider
			mocks.model = model
			return mocks.translator
		},
		NewSpeech: func(deps SpeechDeps) Speech {
			mocks.speechDeps = deps
			return mocks.speech
		},
		NewAligner: func(ffmpegPath string, pm PathManager, log *zap.Logger) Aligner {
			return mocks.aligner
		},
	}

	return env, mocks
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// testConfig returns the defaults with a real voice reference WAV filled in,
// since a run refuses to start without one.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	voice := filepath.Join(t.TempDir(), "voice.wav")
	if err := os.WriteFile(voice, []byte("RIFF fake wav"), 0o644); err != nil {
		t.Fatalf("failed to create voice file: %v", err)
	}
	cfg.TTS.Voice = voice
	return cfg
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// defaultTestEnv returns API keys for both services.
func defaultTestEnv(key string) string {
	switch key {
	case EnvAssemblyAIKey:
		return "test-assemblyai-key"
	case EnvOpenAIKey:
		return "test-openai-key"
	default:
		return ""
	}
}
