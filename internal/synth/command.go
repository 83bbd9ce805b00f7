package synth

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/alnah/go-dub/internal/lang"
)

// DefaultModel is the multilingual voice-cloning model the tts CLI loads.
const DefaultModel = "tts_models/multilingual/multi-dataset/xtts_v2"

// commandRunFn runs the tts binary. Injectable for testing.
type commandRunFn func(ctx context.Context, bin string, args []string) error

// CommandEngine shells out to the Coqui tts CLI for each fragment. The CLI
// reloads the model on every call, so this engine is slow but needs no
// running server.
type CommandEngine struct {
	bin   string
	model string
	run   commandRunFn
	log   *zap.Logger
}

var _ Engine = (*CommandEngine)(nil)

// CommandOption configures a CommandEngine.
type CommandOption func(*CommandEngine)

// WithCommandModel overrides the model name passed to the CLI.
func WithCommandModel(model string) CommandOption {
	return func(e *CommandEngine) { e.model = model }
}

// WithCommandRun sets the subprocess runner (for testing).
func WithCommandRun(run commandRunFn) CommandOption {
	return func(e *CommandEngine) { e.run = run }
}

// WithCommandLogger sets the logger. Defaults to a no-op logger.
func WithCommandLogger(log *zap.Logger) CommandOption {
	return func(e *CommandEngine) { e.log = log }
}

// NewCommandEngine creates an engine around the tts binary at binPath.
func NewCommandEngine(binPath string, opts ...CommandOption) *CommandEngine {
	e := &CommandEngine{
		bin:   binPath,
		model: DefaultModel,
		run:   runCommand,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Synthesize implements Engine.
func (e *CommandEngine) Synthesize(ctx context.Context, req Request) error {
	args := []string{
		"--text", req.Text,
		"--model_name", e.model,
		"--language_idx", lang.BaseCode(req.Language),
		"--out_path", req.OutPath,
	}
	if req.VoiceWAV != "" {
		args = append(args, "--speaker_wav", req.VoiceWAV)
	}

	e.log.Debug("running tts CLI", zap.String("out", req.OutPath))
	if err := e.run(ctx, e.bin, args); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: tts CLI: %v", ErrSynthesis, err)
	}
	return nil
}

func runCommand(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := lastLine(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return err
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
