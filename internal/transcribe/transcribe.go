package transcribe

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/alnah/go-dub/internal/lang"
)

// Options configures a transcription job.
type Options struct {
	// LanguageCode is the ISO 639-1 code of the spoken language. Empty lets
	// the service detect it.
	LanguageCode string
	// SpeakersExpected hints the diarizer at the number of speakers.
	// Zero leaves it to the service.
	SpeakersExpected int
	// DefaultGender is assigned to every speaker for voice selection.
	DefaultGender string
	// Poll controls the status polling loop.
	Poll PollConfig
}

// Transcribe uploads the audio file and runs a transcription job to
// completion. The result always has at least one utterance: when the
// service returns flat text without diarization, the whole text becomes a
// single utterance from speaker "A".
func (c *Client) Transcribe(ctx context.Context, audioPath string, opts Options) (*Transcript, error) {
	opts.LanguageCode = lang.BaseCode(opts.LanguageCode)

	audioURL, err := c.Upload(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	id, err := c.Submit(ctx, audioURL, opts)
	if err != nil {
		return nil, err
	}

	c.log.Info("waiting for transcription", zap.String("id", id))

	resp, err := c.Poll(ctx, id, opts.Poll)
	if err != nil {
		return nil, err
	}

	t := &Transcript{
		Utterances:   resp.Utterances,
		Text:         resp.Text,
		LanguageCode: opts.LanguageCode,
	}

	if len(t.Utterances) == 0 {
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: job %s", ErrNoSpeech, id)
		}
		// No diarization: treat the whole transcript as one speaker
		// spanning the reported audio duration.
		t.Utterances = []Utterance{{
			Speaker:    "A",
			Text:       text,
			End:        int(resp.AudioDuration * 1000),
			Confidence: resp.Confidence,
			Words:      resp.Words,
		}}
	}

	for i := range t.Utterances {
		t.Utterances[i].Gender = opts.DefaultGender
	}

	c.log.Info("transcription complete",
		zap.Int("utterances", len(t.Utterances)),
		zap.Int("speakers", len(SpeakerProfiles(t.Utterances, opts.DefaultGender))))

	return t, nil
}
