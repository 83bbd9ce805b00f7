package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-dub/internal/align"
	"github.com/alnah/go-dub/internal/apierr"
	"github.com/alnah/go-dub/internal/audio"
	"github.com/alnah/go-dub/internal/cli"
	"github.com/alnah/go-dub/internal/config"
	"github.com/alnah/go-dub/internal/download"
	"github.com/alnah/go-dub/internal/ffmpeg"
	"github.com/alnah/go-dub/internal/interrupt"
	"github.com/alnah/go-dub/internal/lang"
	"github.com/alnah/go-dub/internal/logging"
	"github.com/alnah/go-dub/internal/synth"
	"github.com/alnah/go-dub/internal/transcribe"
	"github.com/alnah/go-dub/internal/translate"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes, one per pipeline stage so wrapping scripts can tell a flaky
// download from a failed synthesis.
const (
	ExitOK              = 0
	ExitGeneral         = 1
	ExitUsage           = 2
	ExitSetup           = 3
	ExitValidation      = 4
	ExitAcquisition     = 5
	ExitAudio           = 6
	ExitTranscription   = 7
	ExitTranslation     = 8
	ExitSynthesis       = 9
	ExitSynchronization = 10
	ExitInterrupt       = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	var verbose bool

	// Logging options come from the config file; flags only force verbosity.
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitSetup)
	}

	log, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Verbose: verboseRequested(os.Args[1:]),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitSetup)
	}
	defer closeLog()

	// First Ctrl+C cancels the pipeline so cleanup can run; a second press
	// within two seconds aborts outright.
	handler, ctx := interrupt.NewHandler(context.Background())
	defer handler.Stop()

	secrets, err := config.LoadSecrets()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitSetup)
	}

	env := cli.NewEnv(cli.WithLog(log), cli.WithGetenv(secrets.Getenv))

	rootCmd := &cobra.Command{
		Use:     "dub",
		Short:   "Dub online videos into another language",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(cli.RunCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// verboseRequested peeks at the raw arguments before cobra parses them, so
// the logger can be built ahead of command execution.
func verboseRequested(args []string) bool {
	for _, a := range args {
		if a == "--verbose" || a == "-v" {
			return true
		}
		if a == "--" {
			return false
		}
	}
	return false
}

// exitCode maps errors to stage exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Context cancellation means the user interrupted the run.
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors: Cobra flag/arg parsing errors.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup: missing tools or credentials.
	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, cli.ErrAPIKeyMissing) ||
		errors.Is(err, cli.ErrOpenAIKeyMissing) {
		return ExitSetup
	}

	// Validation: bad user input, checked before any stage runs.
	if errors.Is(err, cli.ErrInvalidURL) || errors.Is(err, cli.ErrUnknownProvider) ||
		errors.Is(err, cli.ErrUnknownEngine) || errors.Is(err, lang.ErrInvalid) ||
		errors.Is(err, lang.ErrSynthesisUnsupported) || errors.Is(err, synth.ErrVoiceMissing) {
		return ExitValidation
	}

	// Stage errors, in pipeline order.
	if errors.Is(err, download.ErrAcquisition) || errors.Is(err, download.ErrEmptyDownload) {
		return ExitAcquisition
	}
	if errors.Is(err, audio.ErrProcessing) || errors.Is(err, audio.ErrFileNotFound) ||
		errors.Is(err, ffmpeg.ErrProbe) {
		return ExitAudio
	}
	if errors.Is(err, transcribe.ErrTranscription) || errors.Is(err, transcribe.ErrNoSpeech) ||
		errors.Is(err, transcribe.ErrPollTimeout) {
		return ExitTranscription
	}
	if errors.Is(err, translate.ErrTranslation) {
		return ExitTranslation
	}
	if errors.Is(err, synth.ErrSynthesis) {
		return ExitSynthesis
	}
	if errors.Is(err, align.ErrSync) || errors.Is(err, align.ErrInputMissing) {
		return ExitSynchronization
	}

	// API transport errors outside a stage wrap (should not happen, every
	// stage wraps its own sentinel) still get a sensible code.
	if errors.Is(err, apierr.ErrAuthFailed) {
		return ExitSetup
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate
// Cobra usage errors. Cobra doesn't expose typed errors, so string matching
// is the only reliable approach. Stable across Cobra versions (tested v1.8+).
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
