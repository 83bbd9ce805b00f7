// Package synth turns translated text into speech. A Generator splits the
// text into model-sized chunks, synthesizes each through an Engine and joins
// the fragments with short silences. Two engines exist: an HTTP client for a
// running Coqui TTS server and a subprocess wrapper around the tts CLI.
package synth

import "context"

// Request describes one synthesis call: the text to speak, the language it
// is in, the speaker reference WAV to clone and where to write the result.
type Request struct {
	Text     string
	Language string
	VoiceWAV string
	OutPath  string
}

// Engine synthesizes one fragment of speech into Request.OutPath.
type Engine interface {
	Synthesize(ctx context.Context, req Request) error
}
