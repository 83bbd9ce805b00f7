package synth

// Notes:
// - The server engine is tested with a scripted doer so tests can assert
//   the exact /api/tts query the Coqui server expects.

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-dub/internal/apierr"
)

type serverStep struct {
	status int
	body   string
	err    error
}

type scriptedServerDoer struct {
	steps    []serverStep
	requests []*http.Request
}

func (d *scriptedServerDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)

	if len(d.steps) == 0 {
		return nil, errors.New("scriptedServerDoer: no steps left")
	}
	step := d.steps[0]
	d.steps = d.steps[1:]

	if step.err != nil {
		return nil, step.err
	}
	return &http.Response{
		StatusCode: step.status,
		Body:       io.NopCloser(strings.NewReader(step.body)),
	}, nil
}

func newTestServerEngine(doer *scriptedServerDoer) *ServerEngine {
	return NewServerEngine("http://tts.local:5002",
		WithServerHTTPClient(doer),
		WithServerRetry(apierr.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   time.Millisecond,
		}),
	)
}

func TestServerEngine_Request(t *testing.T) {
	t.Parallel()

	wavBytes := strings.Repeat("R", 2000)
	doer := &scriptedServerDoer{steps: []serverStep{
		{status: http.StatusOK, body: wavBytes},
	}}
	engine := newTestServerEngine(doer)

	out := filepath.Join(t.TempDir(), "frag.wav")
	err := engine.Synthesize(context.Background(), Request{
		Text:     "Hallo Welt",
		Language: "de-DE",
		VoiceWAV: "/voices/speaker.wav",
		OutPath:  out,
	})
	if err != nil {
		t.Fatalf("Synthesize() unexpected error: %v", err)
	}

	req := doer.requests[0]
	if req.URL.Path != "/api/tts" {
		t.Errorf("path = %q, want /api/tts", req.URL.Path)
	}
	q := req.URL.Query()
	for key, want := range map[string]string{
		"text":        "Hallo Welt",
		"language_id": "de",
		"speaker_wav": "/voices/speaker.wav",
	} {
		if got := q.Get(key); got != want {
			t.Errorf("query %s = %q, want %q", key, got, want)
		}
	}

	data, readErr := os.ReadFile(out)
	if readErr != nil {
		t.Fatalf("output not written: %v", readErr)
	}
	if string(data) != wavBytes {
		t.Errorf("output holds %d bytes, want the response body", len(data))
	}
}

func TestServerEngine_OmitsEmptyVoice(t *testing.T) {
	t.Parallel()

	doer := &scriptedServerDoer{steps: []serverStep{
		{status: http.StatusOK, body: "audio"},
	}}
	engine := newTestServerEngine(doer)

	out := filepath.Join(t.TempDir(), "frag.wav")
	if err := engine.Synthesize(context.Background(), Request{Text: "hi", Language: "en", OutPath: out}); err != nil {
		t.Fatalf("Synthesize() unexpected error: %v", err)
	}

	if doer.requests[0].URL.Query().Has("speaker_wav") {
		t.Errorf("speaker_wav should be omitted when no voice is set")
	}
}

func TestServerEngine_RetriesServerError(t *testing.T) {
	t.Parallel()

	doer := &scriptedServerDoer{steps: []serverStep{
		{status: http.StatusServiceUnavailable},
		{status: http.StatusOK, body: "audio bytes"},
	}}
	engine := newTestServerEngine(doer)

	out := filepath.Join(t.TempDir(), "frag.wav")
	if err := engine.Synthesize(context.Background(), Request{Text: "hi", Language: "en", OutPath: out}); err != nil {
		t.Fatalf("Synthesize() unexpected error: %v", err)
	}
	if len(doer.requests) != 2 {
		t.Errorf("got %d requests, want 2 (one retry)", len(doer.requests))
	}
}

func TestServerEngine_BadRequestFails(t *testing.T) {
	t.Parallel()

	doer := &scriptedServerDoer{steps: []serverStep{
		{status: http.StatusBadRequest},
	}}
	engine := newTestServerEngine(doer)

	out := filepath.Join(t.TempDir(), "frag.wav")
	err := engine.Synthesize(context.Background(), Request{Text: "hi", Language: "en", OutPath: out})
	if !errors.Is(err, ErrSynthesis) {
		t.Errorf("Synthesize() error = %v, want ErrSynthesis", err)
	}
	if len(doer.requests) != 1 {
		t.Errorf("got %d requests, want 1 (no retry on 400)", len(doer.requests))
	}
}
