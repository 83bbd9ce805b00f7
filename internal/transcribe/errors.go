package transcribe

import "errors"

// ErrTranscription indicates the transcription service failed or returned an
// unusable result.
var ErrTranscription = errors.New("transcription failed")

// ErrNoSpeech indicates the service completed but found nothing to
// transcribe.
var ErrNoSpeech = errors.New("no speech detected")

// ErrPollTimeout indicates the transcript did not reach a terminal status
// within the polling budget.
var ErrPollTimeout = errors.New("transcription polling timed out")
