package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrAPIKeyMissing indicates ASSEMBLYAI_API_KEY is not set.
	ErrAPIKeyMissing = errors.New("ASSEMBLYAI_API_KEY environment variable not set")

	// ErrOpenAIKeyMissing indicates OPENAI_API_KEY is not set.
	ErrOpenAIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

	// ErrInvalidURL indicates the video URL is not a usable HTTP(S) URL.
	ErrInvalidURL = errors.New("invalid video URL")

	// ErrUnknownProvider indicates an unrecognized translation provider name.
	ErrUnknownProvider = errors.New("unknown translation provider")

	// ErrUnknownEngine indicates an unrecognized synthesis engine name.
	ErrUnknownEngine = errors.New("unknown synthesis engine")
)

// Translation provider names.
const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
)

// Synthesis engine names.
const (
	EngineServer  = "server"
	EngineCommand = "command"
)
