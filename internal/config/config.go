package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	openAIAPIKeyEnvVar = "OPENAI_API_KEY"
	geminiAPIKeyEnvVar = "GEMINI_API_KEY"

	defaultVaultSubdir = "Documents/Obsidian/YouTube Summaries"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8000"`

	Provider     string `env:"SUMMARY_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL"     envDefault:"gpt-5-mini-2025-08-07"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL"     envDefault:"gemini-2.5-flash"`

	TranscriptLanguages []string      `env:"TRANSCRIPT_LANGUAGES" envDefault:"en"  envSeparator:","`
	TranscriptTimeout   time.Duration `env:"TRANSCRIPT_TIMEOUT"   envDefault:"30s"`

	ObsidianEnabled       bool   `env:"OBSIDIAN_ENABLED"         envDefault:"true"`
	ObsidianVaultPath     string `env:"OBSIDIAN_VAULT_PATH"`
	ObsidianUseVideoTitle bool   `env:"OBSIDIAN_USE_VIDEO_TITLE"`

	HistoryDBPath    string        `env:"HISTORY_DB_PATH"`
	HistoryRetention time.Duration `env:"HISTORY_RETENTION" envDefault:"720h"`
}

// LoadConfig reads the process environment once. The result is passed to
// every component explicitly.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err = cfg.normalize(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) normalize() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("SUMMARY_PROVIDER must be %q or %q, got %q",
			ProviderOpenAI, ProviderGemini, c.Provider)
	}

	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)
	c.GeminiAPIKey = strings.TrimSpace(c.GeminiAPIKey)

	languages := make([]string, 0, len(c.TranscriptLanguages))
	for _, lang := range c.TranscriptLanguages {
		if lang = strings.TrimSpace(lang); lang != "" {
			languages = append(languages, lang)
		}
	}
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	c.TranscriptLanguages = languages

	if c.HistoryRetention < 0 {
		return fmt.Errorf("HISTORY_RETENTION must not be negative, got %s", c.HistoryRetention)
	}

	c.ObsidianVaultPath = strings.TrimSpace(c.ObsidianVaultPath)
	if c.ObsidianVaultPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		c.ObsidianVaultPath = filepath.Join(home, filepath.FromSlash(defaultVaultSubdir))
	}

	c.HistoryDBPath = strings.TrimSpace(c.HistoryDBPath)

	return nil
}

// APIKey returns the credential of the selected generation provider.
func (c Config) APIKey() string {
	if c.Provider == ProviderGemini {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}

// APIKeyEnvVar names the variable that carries the credential for the
// selected provider.
func (c Config) APIKeyEnvVar() string {
	if c.Provider == ProviderGemini {
		return geminiAPIKeyEnvVar
	}
	return openAIAPIKeyEnvVar
}

func (c Config) HistoryEnabled() bool {
	return c.HistoryDBPath != ""
}
