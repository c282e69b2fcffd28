package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Provider string        `yaml:"provider"`
	Gemini   GeminiConfig  `yaml:"gemini"`
	OpenAI   OpenAIConfig  `yaml:"openai"`
	Retry    RetryConfig   `yaml:"retry"`
	Batch    BatchConfig   `yaml:"batch"`
	Paths    PathsConfig   `yaml:"paths"`
	Server   ServerConfig  `yaml:"server"`
	Logging  LoggingConfig `yaml:"logging"`
}

type GeminiConfig struct {
	TranscribeModel string `yaml:"transcribe_model"`
	SummaryModel    string `yaml:"summary_model"`
	APIKeyEnv       string `yaml:"api_key_env"`
	BaseURL         string `yaml:"base_url"`
}

type OpenAIConfig struct {
	TranscribeModel string `yaml:"transcribe_model"`
	SummaryModel    string `yaml:"summary_model"`
	APIKeyEnv       string `yaml:"api_key_env"`
	BaseURL         string `yaml:"base_url"`
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

type BatchConfig struct {
	InterFileDelay time.Duration `yaml:"inter_file_delay"`
}

type PathsConfig struct {
	Input string `yaml:"input"`
	Temp  string `yaml:"temp"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads the YAML file at path, loads any .env file in the working
// directory and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	LoadEnv()
	return &cfg, nil
}

// Default returns a validated configuration with every field at its default.
func Default() *Config {
	cfg := &Config{}
	// Validate cannot fail on an empty config; it only fills defaults.
	_ = cfg.Validate()
	LoadEnv()
	return cfg
}

// LoadEnv loads variables from a .env file if one exists. Variables that are
// already set in the process environment win.
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
}

func (c *Config) Validate() error {
	if c.Provider == "" {
		c.Provider = ProviderGemini
	}
	if c.Provider != ProviderGemini && c.Provider != ProviderOpenAI {
		return fmt.Errorf("provider must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.Provider)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must not be negative")
	}
	if c.Retry.InitialDelay < 0 {
		return fmt.Errorf("retry.initial_delay must not be negative")
	}
	if c.Batch.InterFileDelay < 0 {
		return fmt.Errorf("batch.inter_file_delay must not be negative")
	}

	if c.Gemini.TranscribeModel == "" {
		c.Gemini.TranscribeModel = "gemini-3-pro-preview"
	}
	if c.Gemini.SummaryModel == "" {
		c.Gemini.SummaryModel = "gemini-3-flash-preview"
	}
	if c.Gemini.APIKeyEnv == "" {
		c.Gemini.APIKeyEnv = "API_KEY"
	}
	if c.OpenAI.TranscribeModel == "" {
		c.OpenAI.TranscribeModel = "whisper-1"
	}
	if c.OpenAI.SummaryModel == "" {
		c.OpenAI.SummaryModel = "gpt-4o-mini"
	}
	if c.OpenAI.APIKeyEnv == "" {
		c.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = 2 * time.Second
	}
	if c.Batch.InterFileDelay == 0 {
		c.Batch.InterFileDelay = time.Second
	}
	if c.Paths.Input == "" {
		c.Paths.Input = "data/input"
	}
	if c.Paths.Temp == "" {
		c.Paths.Temp = os.TempDir()
	}
	if c.Server.Address == "" {
		c.Server.Address = "127.0.0.1:8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}
