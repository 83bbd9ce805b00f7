// Package config loads user configuration: tunables from a TOML file under
// the user config directory, secrets from the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Config keys settable through `dub config set`.
const (
	KeyOutputDir = "output-dir"
)

// Environment variable fallbacks.
const (
	EnvOutputDir = "DUB_OUTPUT_DIR"
)

// Paths contains directory configuration.
type Paths struct {
	TempDir     string `toml:"temp_dir"`
	OutputDir   string `toml:"output_dir"`
	KeepOutputs int    `toml:"keep_outputs"`
}

// Download contains video acquisition configuration.
type Download struct {
	Formats      []string `toml:"formats"`
	MinFileBytes int64    `toml:"min_file_bytes"`
}

// Transcribe contains speech-to-text configuration.
type Transcribe struct {
	SpeakersExpected    int    `toml:"speakers_expected"`
	DefaultGender       string `toml:"default_gender"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	PollMaxAttempts     int    `toml:"poll_max_attempts"`
	UploadMP3           bool   `toml:"upload_mp3"`
}

// Translate contains translation configuration.
type Translate struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
}

// TTS contains speech synthesis configuration.
type TTS struct {
	Engine      string `toml:"engine"`
	ServerURL   string `toml:"server_url"`
	CommandPath string `toml:"command_path"`
	Voice       string `toml:"voice"`
	Model       string `toml:"model"`
}

// Log contains logging configuration.
type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Config is the full user configuration.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Download   Download   `toml:"download"`
	Transcribe Transcribe `toml:"transcribe"`
	Translate  Translate  `toml:"translate"`
	TTS        TTS        `toml:"tts"`
	Log        Log        `toml:"log"`
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir:     "~/.cache/go-dub/temp",
			OutputDir:   "~/.local/share/go-dub/output",
			KeepOutputs: 5,
		},
		Download: Download{
			MinFileBytes: 1024,
		},
		Transcribe: Transcribe{
			DefaultGender:       "male",
			PollIntervalSeconds: 5,
			PollMaxAttempts:     720,
			UploadMP3:           true,
		},
		Translate: Translate{
			Provider: "google",
		},
		TTS: TTS{
			Engine:      "server",
			ServerURL:   "http://localhost:5002",
			CommandPath: "tts",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Dir returns the configuration directory. XDG_CONFIG_HOME is honored
// when set, otherwise ~/.config/go-dub.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "go-dub"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "go-dub"), nil
}

// DefaultPath returns the full path of the config file.
func DefaultPath() (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.toml"), nil
}

// Load reads the config file at path (DefaultPath when empty) on top of the
// defaults. A missing file is not an error. The output directory falls back
// to DUB_OUTPUT_DIR when the file leaves it empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the user's own flags or config dir
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	case err != nil:
		return cfg, fmt.Errorf("cannot read config %s: %w", path, err)
	default:
		fileCfg := Default()
		if err := toml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("cannot parse config %s: %w", path, err)
		}
		cfg = fileCfg
	}

	cfg.normalize()
	return cfg, nil
}

// normalize fills blanked-out fields, expands ~ prefixes and applies the
// environment fallback for the output directory.
func (c *Config) normalize() {
	def := Default()

	if c.Paths.TempDir == "" {
		c.Paths.TempDir = def.Paths.TempDir
	}
	if c.Paths.OutputDir == "" {
		if env := os.Getenv(EnvOutputDir); env != "" {
			c.Paths.OutputDir = env
		} else {
			c.Paths.OutputDir = def.Paths.OutputDir
		}
	}
	if c.Paths.KeepOutputs < 0 {
		c.Paths.KeepOutputs = 0
	}
	c.Paths.TempDir = expandHome(c.Paths.TempDir)
	c.Paths.OutputDir = expandHome(c.Paths.OutputDir)

	if c.Download.MinFileBytes <= 0 {
		c.Download.MinFileBytes = def.Download.MinFileBytes
	}
	if c.Transcribe.DefaultGender == "" {
		c.Transcribe.DefaultGender = def.Transcribe.DefaultGender
	}
	if c.Transcribe.PollIntervalSeconds <= 0 {
		c.Transcribe.PollIntervalSeconds = def.Transcribe.PollIntervalSeconds
	}
	if c.Transcribe.PollMaxAttempts <= 0 {
		c.Transcribe.PollMaxAttempts = def.Transcribe.PollMaxAttempts
	}
	if c.Translate.Provider == "" {
		c.Translate.Provider = def.Translate.Provider
	}
	if c.TTS.Engine == "" {
		c.TTS.Engine = def.TTS.Engine
	}
	if c.TTS.ServerURL == "" {
		c.TTS.ServerURL = def.TTS.ServerURL
	}
	if c.TTS.CommandPath == "" {
		c.TTS.CommandPath = def.TTS.CommandPath
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Get returns the value of a settable key from the config at path.
func Get(path, key string) (string, error) {
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	switch key {
	case KeyOutputDir:
		return cfg.Paths.OutputDir, nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// Set writes a settable key into the config file at path (DefaultPath when
// empty), creating the file and its directory when missing. Other values
// in the file are preserved.
func Set(path, key, value string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	// Re-read the raw file rather than Load() so only values the user
	// actually wrote get persisted back.
	var cfg Config
	if data, err := os.ReadFile(path); err == nil { // #nosec G304
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("cannot parse config %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot read config %s: %w", path, err)
	}

	switch key {
	case KeyOutputDir:
		cfg.Paths.OutputDir = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

// Init writes the annotated sample config to path (DefaultPath when empty)
// unless a file already exists there.
func Init(path string) (string, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return "", err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return "", fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return path, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
