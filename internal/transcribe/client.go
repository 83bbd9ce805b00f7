package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-dub/internal/apierr"
)

// DefaultBaseURL is the AssemblyAI v2 API endpoint.
const DefaultBaseURL = "https://api.assemblyai.com/v2"

// httpDoer abstracts the HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the AssemblyAI HTTP API. Requests are retried with
// exponential backoff on transient failures.
type Client struct {
	baseURL string
	apiKey  string
	http    httpDoer
	retry   apierr.RetryConfig
	log     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets the HTTP client implementation.
func WithHTTPClient(h httpDoer) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithRetry sets the retry policy for API requests.
func WithRetry(cfg apierr.RetryConfig) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// WithClientLogger sets the logger. Defaults to a no-op logger.
func WithClientLogger(log *zap.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates a Client authenticated with apiKey.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 2 * time.Minute},
		retry: apierr.RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// submitRequest is the transcription job payload.
type submitRequest struct {
	AudioURL         string `json:"audio_url"`
	LanguageCode     string `json:"language_code,omitempty"`
	SpeakerLabels    bool   `json:"speaker_labels"`
	SpeakersExpected int    `json:"speakers_expected,omitempty"`
	Punctuate        bool   `json:"punctuate"`
	FormatText       bool   `json:"format_text"`
}

// transcriptResponse is the job status document the API returns.
type transcriptResponse struct {
	ID            string      `json:"id"`
	Status        string      `json:"status"`
	Error         string      `json:"error,omitempty"`
	Text          string      `json:"text,omitempty"`
	Utterances    []Utterance `json:"utterances,omitempty"`
	AudioDuration float64     `json:"audio_duration,omitempty"` // seconds
	Confidence    float64     `json:"confidence,omitempty"`
	Words         []Word      `json:"words,omitempty"`
}

// Upload sends a local audio file to the service and returns the URL the
// transcription job must reference.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrTranscription, path, err)
	}

	c.log.Debug("uploading audio",
		zap.String("path", path),
		zap.Int("bytes", len(data)))

	type uploadResponse struct {
		UploadURL string `json:"upload_url"`
	}

	resp, err := apierr.RetryWithBackoff(ctx, c.retry, func() (uploadResponse, error) {
		var out uploadResponse
		err := c.do(ctx, http.MethodPost, "/upload", "application/octet-stream", bytes.NewReader(data), &out)
		return out, err
	}, apierr.IsRetryable)
	if err != nil {
		return "", fmt.Errorf("%w: upload: %v", ErrTranscription, err)
	}
	if resp.UploadURL == "" {
		return "", fmt.Errorf("%w: upload returned no URL", ErrTranscription)
	}
	return resp.UploadURL, nil
}

// Submit creates a transcription job for an uploaded audio URL and returns
// the job ID.
func (c *Client) Submit(ctx context.Context, audioURL string, opts Options) (string, error) {
	payload := submitRequest{
		AudioURL:         audioURL,
		LanguageCode:     opts.LanguageCode,
		SpeakerLabels:    true,
		SpeakersExpected: opts.SpeakersExpected,
		Punctuate:        true,
		FormatText:       true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrTranscription, err)
	}

	resp, err := apierr.RetryWithBackoff(ctx, c.retry, func() (transcriptResponse, error) {
		var out transcriptResponse
		err := c.do(ctx, http.MethodPost, "/transcript", "application/json", bytes.NewReader(body), &out)
		return out, err
	}, apierr.IsRetryable)
	if err != nil {
		return "", fmt.Errorf("%w: submit: %v", ErrTranscription, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: submit returned no job ID", ErrTranscription)
	}

	c.log.Debug("transcription job submitted", zap.String("id", resp.ID))
	return resp.ID, nil
}

// Get fetches the current status document of a job. Unlike Upload and
// Submit it does not retry internally: the poll loop owns transport-error
// handling so each network round trip consumes a poll attempt.
func (c *Client) Get(ctx context.Context, id string) (*transcriptResponse, error) {
	var out transcriptResponse
	if err := c.do(ctx, http.MethodGet, "/transcript/"+id, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do runs one HTTP round trip, classifying failures into apierr sentinels.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if sentinel := apierr.FromStatusCode(resp.StatusCode); sentinel != nil {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d (%s): %w",
			method, path, resp.StatusCode, bytes.TrimSpace(msg), sentinel)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
