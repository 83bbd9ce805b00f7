package synth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-dub/internal/apierr"
	"github.com/alnah/go-dub/internal/lang"
)

// httpDoer abstracts the HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ServerEngine talks to a running Coqui TTS server. The server loads the
// model once, so per-fragment calls are cheap compared to the CLI engine.
type ServerEngine struct {
	baseURL string
	http    httpDoer
	retry   apierr.RetryConfig
	log     *zap.Logger
}

var _ Engine = (*ServerEngine)(nil)

// ServerOption configures a ServerEngine.
type ServerOption func(*ServerEngine)

// WithServerHTTPClient sets the HTTP client implementation.
func WithServerHTTPClient(h httpDoer) ServerOption {
	return func(e *ServerEngine) { e.http = h }
}

// WithServerRetry sets the retry policy.
func WithServerRetry(cfg apierr.RetryConfig) ServerOption {
	return func(e *ServerEngine) { e.retry = cfg }
}

// WithServerLogger sets the logger. Defaults to a no-op logger.
func WithServerLogger(log *zap.Logger) ServerOption {
	return func(e *ServerEngine) { e.log = log }
}

// NewServerEngine creates an engine against a TTS server at baseURL,
// e.g. "http://localhost:5002".
func NewServerEngine(baseURL string, opts ...ServerOption) *ServerEngine {
	e := &ServerEngine{
		baseURL: baseURL,
		// Synthesis is slow for long fragments, so the timeout is generous.
		http: &http.Client{Timeout: 5 * time.Minute},
		retry: apierr.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  time.Second,
			MaxDelay:   10 * time.Second,
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Synthesize implements Engine. It issues a GET against the server's
// /api/tts endpoint and writes the returned WAV bytes to req.OutPath.
func (e *ServerEngine) Synthesize(ctx context.Context, req Request) error {
	params := url.Values{
		"text":        {req.Text},
		"language_id": {lang.BaseCode(req.Language)},
	}
	if req.VoiceWAV != "" {
		params.Set("speaker_wav", req.VoiceWAV)
	}

	_, err := apierr.RetryWithBackoff(ctx, e.retry, func() (struct{}, error) {
		return struct{}{}, e.request(ctx, params, req.OutPath)
	}, apierr.IsRetryable)
	if err != nil {
		return fmt.Errorf("%w: tts server: %v", ErrSynthesis, err)
	}
	return nil
}

func (e *ServerEngine) request(ctx context.Context, params url.Values, outPath string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tts?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := e.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if sentinel := apierr.FromStatusCode(resp.StatusCode); sentinel != nil {
		return fmt.Errorf("status %d: %w", resp.StatusCode, sentinel)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(outPath)
		return fmt.Errorf("write output: %w", err)
	}
	return out.Close()
}
