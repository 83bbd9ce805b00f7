package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-dub/internal/apierr"
	"github.com/alnah/go-dub/internal/lang"
)

// googleEndpoint is the unauthenticated web-client translation endpoint.
const googleEndpoint = "https://translate.googleapis.com/translate_a/single"

// httpDoer abstracts the HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Google translates through the free Google Translate web endpoint. It
// needs no credentials but is rate limited, so requests are retried with
// backoff on throttling.
type Google struct {
	endpoint string
	http     httpDoer
	retry    apierr.RetryConfig
	log      *zap.Logger
}

var _ Translator = (*Google)(nil)

// GoogleOption configures a Google translator.
type GoogleOption func(*Google)

// WithGoogleEndpoint overrides the endpoint (for testing).
func WithGoogleEndpoint(url string) GoogleOption {
	return func(g *Google) { g.endpoint = url }
}

// WithGoogleHTTPClient sets the HTTP client implementation.
func WithGoogleHTTPClient(h httpDoer) GoogleOption {
	return func(g *Google) { g.http = h }
}

// WithGoogleRetry sets the retry policy.
func WithGoogleRetry(cfg apierr.RetryConfig) GoogleOption {
	return func(g *Google) { g.retry = cfg }
}

// WithGoogleLogger sets the logger. Defaults to a no-op logger.
func WithGoogleLogger(log *zap.Logger) GoogleOption {
	return func(g *Google) { g.log = log }
}

// NewGoogle creates a Google translator.
func NewGoogle(opts ...GoogleOption) *Google {
	g := &Google{
		endpoint: googleEndpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		retry: apierr.RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Translate implements Translator.
func (g *Google) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	source := lang.BaseCode(sourceLang)
	if source == "" {
		source = "auto"
	}
	target := lang.BaseCode(targetLang)
	if target == "" {
		return "", fmt.Errorf("%w: target language is required", ErrTranslation)
	}

	params := url.Values{
		"client": {"gtx"},
		"sl":     {source},
		"tl":     {target},
		"dt":     {"t"},
		"q":      {text},
	}

	result, err := apierr.RetryWithBackoff(ctx, g.retry, func() (string, error) {
		return g.request(ctx, params)
	}, apierr.IsRetryable)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslation, err)
	}
	return result, nil
}

func (g *Google) request(ctx context.Context, params url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if sentinel := apierr.FromStatusCode(resp.StatusCode); sentinel != nil {
		return "", fmt.Errorf("status %d: %w", resp.StatusCode, sentinel)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return decodeGoogleResponse(body)
}

// decodeGoogleResponse extracts the translated text from the endpoint's
// undocumented nested-array format: the first element is a list of
// segments, each segment a list whose first element is the translated
// string.
func decodeGoogleResponse(body []byte) (string, error) {
	var root []any
	if err := json.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(root) == 0 {
		return "", fmt.Errorf("empty response")
	}

	segments, ok := root[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected response shape")
	}

	var b strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			b.WriteString(s)
		}
	}
	return b.String(), nil
}
