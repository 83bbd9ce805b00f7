package cli

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/alnah/go-dub/internal/config"
	"github.com/alnah/go-dub/internal/ffmpeg"
	"github.com/alnah/go-dub/internal/lang"
	"github.com/alnah/go-dub/internal/synth"
	"github.com/alnah/go-dub/internal/transcribe"
	"github.com/alnah/go-dub/internal/translate"
)

// Environment variable names for API keys.
const (
	EnvAssemblyAIKey = "ASSEMBLYAI_API_KEY"
	EnvOpenAIKey     = "OPENAI_API_KEY"
)

// dubFlags collects the run command's flag values.
type dubFlags struct {
	sourceLang string
	targetLang string
	voice      string
	speakers   int
	output     string
	engine     string
	provider   string
	keepTemp   bool
	configPath string
}

// RunCmd creates the run command, the full dubbing pipeline.
// The env parameter provides injectable dependencies for testing.
func RunCmd(env *Env) *cobra.Command {
	var flags dubFlags

	cmd := &cobra.Command{
		Use:   "run <video-url>",
		Short: "Download a video and dub it into another language",
		Long: `Download a video, transcribe its speech, translate the transcript and
replace the audio track with synthesized speech in the target language.

The pipeline runs five stages in order: acquisition (yt-dlp), transcription
(AssemblyAI), translation (Google or OpenAI), synthesis (Coqui TTS) and
synchronization (FFmpeg mux). Intermediate files live in a temp area that
is cleaned up afterwards unless --keep-temp is set.

Synthesis clones a voice from a reference WAV, so either --voice or the
[tts] voice config entry must point at one. ASSEMBLYAI_API_KEY must be
set. OPENAI_API_KEY is needed only with --provider openai.`,
		Example: `  dub run https://youtube.com/watch?v=xyz
  dub run https://youtube.com/watch?v=xyz -t fr --voice ./speaker.wav
  dub run https://youtube.com/watch?v=xyz -l en -t de --speakers 2
  dub run https://youtube.com/watch?v=xyz --provider openai --engine command
  dub run https://youtube.com/watch?v=xyz -o ./dubbed.mp4 --keep-temp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDub(cmd, env, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.sourceLang, "source-lang", "l", "", "Spoken language (ISO 639-1, empty = auto-detect)")
	cmd.Flags().StringVarP(&flags.targetLang, "target-lang", "t", "de", "Language to dub into")
	cmd.Flags().StringVar(&flags.voice, "voice", "", "Speaker reference WAV for voice cloning")
	cmd.Flags().IntVar(&flags.speakers, "speakers", 0, "Expected speaker count hint for diarization (0 = auto)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Final video path (default: managed output directory)")
	cmd.Flags().StringVar(&flags.engine, "engine", "", "Synthesis engine: server, command (default from config)")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "Translation provider: google, openai (default from config)")
	cmd.Flags().BoolVar(&flags.keepTemp, "keep-temp", false, "Keep intermediate files for inspection")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Config file path (default: ~/.config/go-dub/config.toml)")

	return cmd
}

// runDub executes the dubbing pipeline.
// Validation order: URL -> config -> languages -> provider/engine -> voice -> API keys
func runDub(cmd *cobra.Command, env *Env, videoURL string, flags dubFlags) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	// 1. URL is a usable HTTP(S) URL
	if err := validateURL(videoURL); err != nil {
		return err
	}

	// 2. Config loads; flags override file values
	cfg, err := env.LoadConfig(flags.configPath)
	if err != nil {
		return err
	}
	provider := firstNonEmpty(flags.provider, cfg.Translate.Provider)
	engine := firstNonEmpty(flags.engine, cfg.TTS.Engine)
	voice := firstNonEmpty(flags.voice, cfg.TTS.Voice)
	speakers := flags.speakers
	if speakers == 0 {
		speakers = cfg.Transcribe.SpeakersExpected
	}

	// 3. Languages: source may be empty (auto-detect), target must be
	// synthesizable
	if err := lang.Validate(flags.sourceLang); err != nil {
		return err
	}
	if err := lang.ValidateSynthesis(flags.targetLang); err != nil {
		return err
	}

	// 4. Provider and engine names
	if provider != ProviderGoogle && provider != ProviderOpenAI {
		return fmt.Errorf("%w: %q (use google or openai)", ErrUnknownProvider, provider)
	}
	if engine != EngineServer && engine != EngineCommand {
		return fmt.Errorf("%w: %q (use server or command)", ErrUnknownEngine, engine)
	}

	// 5. Voice reference is configured, exists and is a WAV
	if voice == "" {
		return fmt.Errorf("%w: set --voice or [tts] voice in the config", synth.ErrVoiceMissing)
	}
	if err := synth.ValidateVoice(voice); err != nil {
		return err
	}

	// 6. API keys present
	assemblyKey := env.Getenv(EnvAssemblyAIKey)
	if assemblyKey == "" {
		return fmt.Errorf("%w (set it with: export %s=...)", ErrAPIKeyMissing, EnvAssemblyAIKey)
	}
	openaiKey := env.Getenv(EnvOpenAIKey)
	if provider == ProviderOpenAI && openaiKey == "" {
		return fmt.Errorf("%w (set it with: export %s=sk-...)", ErrOpenAIKeyMissing, EnvOpenAIKey)
	}

	// === SETUP ===

	ffmpegPath, err := env.ResolveTool(ffmpeg.FFmpeg)
	if err != nil {
		return err
	}
	ytdlpPath, err := env.ResolveTool(ffmpeg.YTDLP)
	if err != nil {
		return err
	}

	pm, err := env.NewPaths(cfg.Paths.TempDir, cfg.Paths.OutputDir)
	if err != nil {
		return err
	}

	// Cleanup runs on every exit: success, stage failure or interrupt.
	defer func() {
		if flags.keepTemp {
			fmt.Fprintln(env.Stderr, "Keeping temp files (--keep-temp)")
		} else if err := pm.CleanupTemp(); err != nil {
			fmt.Fprintf(env.Stderr, "Warning: temp cleanup failed: %v\n", err)
		}
		if removed, err := pm.PruneOutputs(cfg.Paths.KeepOutputs); err != nil {
			fmt.Fprintf(env.Stderr, "Warning: output pruning failed: %v\n", err)
		} else if len(removed) > 0 {
			fmt.Fprintf(env.Stderr, "Pruned %d old output(s)\n", len(removed))
		}
	}()

	// === ACQUISITION ===

	bar := newBar(env.Stderr, 100, "Downloading")
	acquirer := env.NewAcquirer(AcquirerDeps{
		YTDLPPath: ytdlpPath,
		WorkDir:   pm.WorkDir,
		Formats:   cfg.Download.Formats,
		MinBytes:  cfg.Download.MinFileBytes,
		Progress:  func(percent float64) { _ = bar.Set(int(percent)) },
		Log:       env.Log.Named("download"),
	})

	result, err := acquirer.Download(ctx, videoURL)
	if err != nil {
		return err
	}
	_ = bar.Finish()
	fmt.Fprintf(env.Stderr, "\nDownloaded (%d attempt(s)): %s\n", result.Attempts, result.Path)

	// === AUDIO EXTRACTION ===

	fmt.Fprintln(env.Stderr, "Extracting audio...")
	proc := env.NewAudio(ffmpegPath, env.Log.Named("audio"))

	audioWAV := pm.TempPath("audio", ".wav")
	if err := proc.ExtractWAV(ctx, result.Path, audioWAV); err != nil {
		return err
	}

	uploadPath := audioWAV
	if cfg.Transcribe.UploadMP3 {
		mp3 := pm.TempPath("upload", ".mp3")
		if err := proc.ConvertMP3(ctx, audioWAV, mp3); err != nil {
			return err
		}
		uploadPath = mp3
	}

	// === TRANSCRIPTION ===

	fmt.Fprintln(env.Stderr, "Transcribing...")
	transcriber := env.NewTranscriber(assemblyKey, env.Log.Named("transcribe"))

	transcript, err := transcriber.Transcribe(ctx, uploadPath, transcribe.Options{
		LanguageCode:     flags.sourceLang,
		SpeakersExpected: speakers,
		DefaultGender:    cfg.Transcribe.DefaultGender,
		Poll:             pollConfig(cfg.Transcribe),
	})
	if err != nil {
		return err
	}

	speakerCount := len(transcribe.SpeakerProfiles(transcript.Utterances, cfg.Transcribe.DefaultGender))
	fmt.Fprintf(env.Stderr, "Transcribed %d utterance(s) from %d speaker(s)\n",
		len(transcript.Utterances), speakerCount)

	// === TRANSLATION ===

	texts := make([]string, len(transcript.Utterances))
	for i, u := range transcript.Utterances {
		texts[i] = u.Text
	}

	translator := env.NewTranslator(provider, openaiKey, cfg.Translate.Model, env.Log.Named("translate"))

	bar = newBar(env.Stderr, len(texts), "Translating")
	translated, err := translate.All(ctx, translator, texts, flags.sourceLang, flags.targetLang,
		func(done, total int) { _ = bar.Set(done) })
	if err != nil {
		return err
	}
	_ = bar.Finish()
	fmt.Fprintln(env.Stderr)

	var parts []string
	for _, t := range translated {
		if t != "" {
			parts = append(parts, t)
		}
	}
	fullText := strings.Join(parts, " ")

	// === SYNTHESIS ===

	fmt.Fprintln(env.Stderr, "Synthesizing speech...")
	speech := env.NewSpeech(SpeechDeps{
		Engine:      engine,
		ServerURL:   cfg.TTS.ServerURL,
		CommandPath: cfg.TTS.CommandPath,
		Model:       cfg.TTS.Model,
		Voice:       voice,
		Audio:       proc,
		Paths:       pm,
		Log:         env.Log.Named("synth"),
	})

	speechWAV, err := speech.Generate(ctx, fullText, flags.targetLang)
	if err != nil {
		return err
	}

	// === SYNCHRONIZATION ===

	fmt.Fprintln(env.Stderr, "Synchronizing...")
	aligner := env.NewAligner(ffmpegPath, pm, env.Log.Named("align"))

	finalPath, err := aligner.Sync(ctx, result.Path, speechWAV)
	if err != nil {
		return err
	}

	// === DELIVER ===

	if flags.output != "" {
		if err := moveFile(finalPath, flags.output); err != nil {
			return fmt.Errorf("cannot move output to %s: %w", flags.output, err)
		}
		finalPath = flags.output
	}

	fmt.Fprintf(env.Stderr, "Done: %s\n", finalPath)
	return nil
}

// validateURL accepts absolute HTTP(S) URLs with a host.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return nil
}

func pollConfig(cfg config.Transcribe) transcribe.PollConfig {
	p := transcribe.DefaultPollConfig()
	if cfg.PollIntervalSeconds > 0 {
		p.Interval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}
	if cfg.PollMaxAttempts > 0 {
		p.MaxAttempts = cfg.PollMaxAttempts
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// moveFile renames, falling back to copy+delete across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src) // #nosec G304 -- paths come from our own output dir and user flags
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) // #nosec G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func newBar(w io.Writer, max int, description string) *progressbar.ProgressBar {
	if max <= 0 {
		max = 1
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
