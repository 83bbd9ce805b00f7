package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
)

// Secrets holds API credentials. They come from the environment only,
// never from the config file, so they cannot end up in a dotfile backup.
type Secrets struct {
	AssemblyAIKey string `envconfig:"ASSEMBLYAI_API_KEY"`
	OpenAIKey     string `envconfig:"OPENAI_API_KEY"`
}

// LoadSecrets reads credentials from the environment. Missing keys are not
// an error here; each stage validates the keys it actually needs.
func LoadSecrets() (Secrets, error) {
	var s Secrets
	if err := envconfig.Process("", &s); err != nil {
		return Secrets{}, fmt.Errorf("cannot read environment: %w", err)
	}
	return s, nil
}

// Getenv looks keys up in the loaded secrets, so commands see the same
// values whether they came from the process environment or a .env file
// loaded after startup.
func (s Secrets) Getenv(key string) string {
	switch key {
	case "ASSEMBLYAI_API_KEY":
		return s.AssemblyAIKey
	case "OPENAI_API_KEY":
		return s.OpenAIKey
	default:
		return os.Getenv(key)
	}
}
