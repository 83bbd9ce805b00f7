package cli

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/alnah/go-dub/internal/download"
	"github.com/alnah/go-dub/internal/transcribe"
)

// ---------------------------------------------------------------------------
// Mock PathManager
// ---------------------------------------------------------------------------

type mockPathManager struct {
	Dir string

	mu           sync.Mutex
	tempPaths    []string
	cleanupCalls int
	pruneCalls   []int
}

func (m *mockPathManager) TempPath(prefix, ext string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := filepath.Join(m.Dir, prefix+ext)
	m.tempPaths = append(m.tempPaths, p)
	return p
}

func (m *mockPathManager) WorkDir(prefix string) (string, error) {
	return m.Dir, nil
}

func (m *mockPathManager) OutputPath(stem, ext string) string {
	return filepath.Join(m.Dir, stem+ext)
}

func (m *mockPathManager) CleanupTemp() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupCalls++
	return nil
}

func (m *mockPathManager) PruneOutputs(keep int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneCalls = append(m.pruneCalls, keep)
	return nil, nil
}

func (m *mockPathManager) CleanupCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanupCalls
}

func (m *mockPathManager) PruneCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.pruneCalls...)
}

// ---------------------------------------------------------------------------
// Mock Acquirer
// ---------------------------------------------------------------------------

type mockAcquirer struct {
	DownloadFunc func(ctx context.Context, url string) (*download.Result, error)

	mu   sync.Mutex
	urls []string
}

func (m *mockAcquirer) Download(ctx context.Context, url string) (*download.Result, error) {
	m.mu.Lock()
	m.urls = append(m.urls, url)
	m.mu.Unlock()

	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, url)
	}
	return &download.Result{Path: "/work/video.mp4", Format: "best", Attempts: 1}, nil
}

func (m *mockAcquirer) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.urls...)
}

// ---------------------------------------------------------------------------
// Mock AudioProcessor
// ---------------------------------------------------------------------------

type mockAudio struct {
	ExtractWAVFunc func(ctx context.Context, videoPath, outPath string) error
	ConvertMP3Func func(ctx context.Context, wavPath, outPath string) error

	mu       sync.Mutex
	extracts [][2]string
	converts [][2]string
}

func (m *mockAudio) ExtractWAV(ctx context.Context, videoPath, outPath string) error {
	m.mu.Lock()
	m.extracts = append(m.extracts, [2]string{videoPath, outPath})
	m.mu.Unlock()

	if m.ExtractWAVFunc != nil {
		return m.ExtractWAVFunc(ctx, videoPath, outPath)
	}
	return nil
}

func (m *mockAudio) ConvertMP3(ctx context.Context, wavPath, outPath string) error {
	m.mu.Lock()
	m.converts = append(m.converts, [2]string{wavPath, outPath})
	m.mu.Unlock()

	if m.ConvertMP3Func != nil {
		return m.ConvertMP3Func(ctx, wavPath, outPath)
	}
	return nil
}

func (m *mockAudio) Silence(ctx context.Context, d time.Duration, outPath string) error {
	return nil
}

func (m *mockAudio) ConcatWithGaps(ctx context.Context, inputs []string, gap time.Duration, outPath string) error {
	return nil
}

func (m *mockAudio) Extracts() [][2]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]string(nil), m.extracts...)
}

func (m *mockAudio) Converts() [][2]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]string(nil), m.converts...)
}

// ---------------------------------------------------------------------------
// Mock Transcriber
// ---------------------------------------------------------------------------

type mockTranscriber struct {
	TranscribeFunc func(ctx context.Context, audioPath string, opts transcribe.Options) (*transcribe.Transcript, error)

	mu    sync.Mutex
	paths []string
	opts  []transcribe.Options
}

func (m *mockTranscriber) Transcribe(ctx context.Context, audioPath string, opts transcribe.Options) (*transcribe.Transcript, error) {
	m.mu.Lock()
	m.paths = append(m.paths, audioPath)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audioPath, opts)
	}
	return &transcribe.Transcript{
		Text: "hello world",
		Utterances: []transcribe.Utterance{
			{Speaker: "A", Text: "hello world"},
		},
	}, nil
}

func (m *mockTranscriber) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

func (m *mockTranscriber) Opts() []transcribe.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]transcribe.Options(nil), m.opts...)
}

// ---------------------------------------------------------------------------
// Mock Translator
// ---------------------------------------------------------------------------

type mockTranslator struct {
	TranslateFunc func(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	mu    sync.Mutex
	texts []string
}

func (m *mockTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, text, sourceLang, targetLang)
	}
	return "[" + targetLang + "] " + text, nil
}

func (m *mockTranslator) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// ---------------------------------------------------------------------------
// Mock Speech
// ---------------------------------------------------------------------------

type mockSpeech struct {
	GenerateFunc func(ctx context.Context, text, language string) (string, error)

	mu    sync.Mutex
	texts []string
	langs []string
}

func (m *mockSpeech) Generate(ctx context.Context, text, language string) (string, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.langs = append(m.langs, language)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, text, language)
	}
	return "/tmp/speech.wav", nil
}

func (m *mockSpeech) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

func (m *mockSpeech) Langs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.langs...)
}

// ---------------------------------------------------------------------------
// Mock Aligner
// ---------------------------------------------------------------------------

type mockAligner struct {
	SyncFunc func(ctx context.Context, videoPath, audioPath string) (string, error)

	mu    sync.Mutex
	pairs [][2]string
}

func (m *mockAligner) Sync(ctx context.Context, videoPath, audioPath string) (string, error) {
	m.mu.Lock()
	m.pairs = append(m.pairs, [2]string{videoPath, audioPath})
	m.mu.Unlock()

	if m.SyncFunc != nil {
		return m.SyncFunc(ctx, videoPath, audioPath)
	}
	return "/out/dubbed.mp4", nil
}

func (m *mockAligner) Pairs() [][2]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]string(nil), m.pairs...)
}
