// Package config loads runtime settings from an optional .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix namespaces every environment variable, e.g. VIBECOOK_PORT.
const Prefix = "VIBECOOK"

// Config holds all application configuration.
type Config struct {
	// Server settings
	Env            string   `envconfig:"ENV" default:"development"`
	Port           string   `envconfig:"PORT" default:"8080"`
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES" default:"127.0.0.1"`
	HSTSMaxAge     int      `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode        string   `envconfig:"CSP_MODE" default:"relaxed"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE" default:".vibecook-logs/vibecook.log"`

	// Candidate selection
	StorePath     string `envconfig:"STORE_PATH" default:".vibecook/store.db"`
	MaxCandidates int    `envconfig:"MAX_CANDIDATES" default:"3"`

	// Recipe API base URL. Empty uses the built-in recipes.
	RecipeAPI string `envconfig:"RECIPE_API"`

	// Speech settings
	OpenAIAPIKey   string        `envconfig:"OPENAI_API_KEY"`
	WhisperBin     string        `envconfig:"WHISPER_BIN" default:"whisper-cli"`
	WhisperModel   string        `envconfig:"WHISPER_MODEL" default:"bin/ggml-small.bin"`
	ChunkDuration  time.Duration `envconfig:"CHUNK_DURATION" default:"1500ms"`
	ListenTimeout  time.Duration `envconfig:"LISTEN_TIMEOUT" default:"15s"`
	VocabularyFile string        `envconfig:"VOCABULARY_FILE"`
}

// Load reads .env from the working directory (if present) and then the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses the environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would fail later in a less obvious way.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxCandidates < 1 {
		errs = append(errs, fmt.Errorf("MAX_CANDIDATES must be at least 1, got %d", c.MaxCandidates))
	}
	if c.ChunkDuration <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_DURATION must be positive, got %s", c.ChunkDuration))
	}
	if c.ListenTimeout < 0 {
		errs = append(errs, fmt.Errorf("LISTEN_TIMEOUT must not be negative, got %s", c.ListenTimeout))
	}
	switch c.CSPMode {
	case "strict", "relaxed":
	default:
		errs = append(errs, fmt.Errorf("CSP_MODE must be strict or relaxed, got %q", c.CSPMode))
	}
	return errors.Join(errs...)
}

// Production reports whether the server runs behind a real deployment.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// BuildCSP constructs the Content Security Policy for the given mode.
func BuildCSP(mode string) string {
	if mode == "strict" {
		return "default-src 'self'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"script-src 'self'; " +
			"img-src 'self' https: data:; " +
			"media-src 'self' blob:; " +
			"object-src 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'"
	}

	return "default-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"script-src 'self' 'unsafe-inline'; " +
		"img-src 'self' https: data:; " +
		"media-src 'self' blob:"
}
