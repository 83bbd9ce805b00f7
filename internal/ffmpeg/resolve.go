package ffmpeg

import (
	"fmt"
)

// Tool identifies an external binary the pipeline shells out to.
type Tool struct {
	// Name is the binary name looked up on PATH.
	Name string
	// EnvVar optionally overrides the lookup with an explicit path.
	EnvVar string
	// Install is shown in the error message when the tool is missing.
	Install string
}

// The two external tools the pipeline depends on.
var (
	FFmpeg = Tool{
		Name:    "ffmpeg",
		EnvVar:  "FFMPEG_PATH",
		Install: "install FFmpeg from https://ffmpeg.org/download.html or your package manager",
	}
	YTDLP = Tool{
		Name:    "yt-dlp",
		EnvVar:  "YTDLP_PATH",
		Install: "install yt-dlp from https://github.com/yt-dlp/yt-dlp or via pip",
	}
)

// ---------------------------------------------------------------------------
// Resolver - testable binary resolution with dependency injection
// ---------------------------------------------------------------------------

// Resolver locates external binaries.
type Resolver struct {
	reader fileReader
	env    envProvider
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileReader sets the file reader implementation.
func WithFileReader(r fileReader) ResolverOption {
	return func(res *Resolver) { res.reader = r }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(res *Resolver) { res.env = e }
}

// NewResolver creates a Resolver with the given options.
// Uses production defaults if no options are provided.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		reader: osFileReader{},
		env:    osEnvProvider{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds a tool's binary using the following precedence:
//  1. The tool's environment variable (error if set but invalid)
//  2. System PATH
func (r *Resolver) Resolve(tool Tool) (string, error) {
	if envPath := r.env.Getenv(tool.EnvVar); envPath != "" {
		if _, err := r.reader.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but no binary exists there",
				ErrNotFound, tool.EnvVar, envPath)
		}
		return envPath, nil
	}

	if path, err := r.env.LookPath(tool.Name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w: %s is not on PATH (%s, or set %s)",
		ErrNotFound, tool.Name, tool.Install, tool.EnvVar)
}
