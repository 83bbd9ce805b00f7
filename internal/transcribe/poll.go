package transcribe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Job statuses the API reports.
const (
	statusQueued     = "queued"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusError      = "error"
)

// PollConfig controls the polling loop of a transcription job.
type PollConfig struct {
	// Interval is the wait between status checks.
	Interval time.Duration
	// MaxAttempts bounds the number of status checks.
	MaxAttempts int
	// TransportBackoff multiplies Interval after a transport error, giving
	// a flaky network more room before the next check.
	TransportBackoff float64
	// Sleep waits for d or until ctx is done; injectable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPollConfig polls every 5 seconds for up to an hour.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:         5 * time.Second,
		MaxAttempts:      720,
		TransportBackoff: 2,
	}
}

func (p *PollConfig) normalize() {
	if p.Interval <= 0 {
		p.Interval = 5 * time.Second
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 720
	}
	if p.TransportBackoff < 1 {
		p.TransportBackoff = 1
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poll checks the job status until it is terminal or the attempt budget runs
// out. Every status check consumes one attempt, including checks that fail
// at the transport level and checks that return a status we do not know.
func (c *Client) Poll(ctx context.Context, id string, cfg PollConfig) (*transcriptResponse, error) {
	cfg.normalize()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		resp, err := c.Get(ctx, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// Transient network trouble: keep polling, but wait longer so
			// a struggling connection is not hammered.
			c.log.Warn("transcript status check failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			wait := time.Duration(float64(cfg.Interval) * cfg.TransportBackoff)
			if err := cfg.Sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		switch resp.Status {
		case statusCompleted:
			return resp, nil

		case statusError:
			return nil, fmt.Errorf("%w: service reported: %s", ErrTranscription, resp.Error)

		case statusQueued, statusProcessing:
			// Keep waiting.

		default:
			c.log.Warn("unrecognized transcript status",
				zap.String("status", resp.Status),
				zap.Int("attempt", attempt))
		}

		if err := cfg.Sleep(ctx, cfg.Interval); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: job %s not finished after %d checks",
		ErrPollTimeout, id, cfg.MaxAttempts)
}
