// Package config loads doctran settings from flags, environment, an optional
// .env file and an optional TOML config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/valpere/doctran/internal/language"
	"github.com/valpere/doctran/internal/translator"
)

const (
	EnvPrefix = "DOCTRAN"
	FileName  = ".doctran"
	FileType  = "toml"
)

// PlannerConfig selects the LLM that drives agent mode.
type PlannerConfig struct {
	Provider string `mapstructure:"provider" toml:"provider"`
	Model    string `mapstructure:"model" toml:"model"`
	APIKey   string `mapstructure:"api_key" toml:"api_key"`
	BaseURL  string `mapstructure:"base_url" toml:"base_url"`
	MaxSteps int    `mapstructure:"max_steps" toml:"max_steps"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	DBPath   string `mapstructure:"db" toml:"db"`
	Disabled bool   `mapstructure:"disabled" toml:"disabled"`
}

type Config struct {
	Language string                   `mapstructure:"language" toml:"language"`
	NoChecks bool                     `mapstructure:"no_checks" toml:"no_checks"`
	Verbose  bool                     `mapstructure:"verbose" toml:"verbose"`
	Backend  translator.BackendConfig `mapstructure:"backend" toml:"backend"`
	Planner  PlannerConfig            `mapstructure:"planner" toml:"planner"`
	History  HistoryConfig            `mapstructure:"history" toml:"history"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Language: language.Default,
		Backend: translator.BackendConfig{
			Provider: translator.DefaultProvider,
			Timeout:  120 * time.Second,
		},
		Planner: PlannerConfig{
			Provider: "openai",
			MaxSteps: 10,
		},
		History: HistoryConfig{
			DBPath: "./data/doctran.db",
		},
	}
}

// NewViper returns a viper instance with every key registered with its
// default, so that environment variables are picked up on Unmarshal.
func NewViper() *viper.Viper {
	d := Default()
	v := viper.New()

	v.SetDefault("language", d.Language)
	v.SetDefault("no_checks", d.NoChecks)
	v.SetDefault("verbose", d.Verbose)

	v.SetDefault("backend.provider", d.Backend.Provider)
	v.SetDefault("backend.model_template", d.Backend.ModelTemplate)
	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.hub_url", d.Backend.HubURL)
	v.SetDefault("backend.api_key", d.Backend.APIKey)
	v.SetDefault("backend.credentials", d.Backend.Credentials)
	v.SetDefault("backend.timeout", d.Backend.Timeout.String())

	v.SetDefault("planner.provider", d.Planner.Provider)
	v.SetDefault("planner.model", d.Planner.Model)
	v.SetDefault("planner.api_key", d.Planner.APIKey)
	v.SetDefault("planner.base_url", d.Planner.BaseURL)
	v.SetDefault("planner.max_steps", d.Planner.MaxSteps)

	v.SetDefault("history.db", d.History.DBPath)
	v.SetDefault("history.disabled", d.History.Disabled)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the .env file and the config file into v and decodes the
// result. cfgFile may be empty, in which case .doctran.toml is searched in
// the home directory and the working directory and may be absent.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	// .env is optional; variables may come from the environment directly.
	_ = godotenv.Load()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType(FileType)
		v.SetConfigName(FileName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.normalize()
	cfg.applyEnvFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize lower-cases provider names so flags and files may use any case.
func (c *Config) normalize() {
	c.Backend.Provider = strings.ToLower(strings.TrimSpace(c.Backend.Provider))
	c.Planner.Provider = strings.ToLower(strings.TrimSpace(c.Planner.Provider))
}

// applyEnvFallbacks fills API keys from the variables each vendor's own
// tooling uses when no doctran-specific key is set.
func (c *Config) applyEnvFallbacks() {
	if c.Backend.APIKey == "" {
		switch c.Backend.Provider {
		case "huggingface":
			c.Backend.APIKey = firstEnv("HF_TOKEN", "HUGGINGFACE_API_KEY")
		case "openai":
			c.Backend.APIKey = firstEnv("OPENAI_API_KEY")
		}
	}
	if c.Backend.Credentials == "" && c.Backend.Provider == "google" {
		c.Backend.Credentials = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if c.Planner.APIKey == "" {
		switch c.Planner.Provider {
		case "openai":
			c.Planner.APIKey = firstEnv("OPENAI_API_KEY")
		case "gemini":
			c.Planner.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
		}
	}
}

// Validate normalises provider names, then checks them and the numeric
// limits.
func (c *Config) Validate() error {
	c.normalize()

	if !slices.Contains(translator.Providers(), c.Backend.Provider) {
		return fmt.Errorf("config: unknown backend provider %q (available: %s)",
			c.Backend.Provider, strings.Join(translator.Providers(), ", "))
	}
	if c.Planner.Provider != "openai" && c.Planner.Provider != "gemini" {
		return fmt.Errorf("config: unknown planner provider %q (available: openai, gemini)", c.Planner.Provider)
	}
	if c.Planner.MaxSteps <= 0 {
		return fmt.Errorf("config: planner.max_steps must be positive, got %d", c.Planner.MaxSteps)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("config: backend.timeout must not be negative")
	}
	return nil
}

// Write stores cfg as TOML at path. An existing file is never overwritten.
// Secrets are left out of the written file.
func Write(path string, cfg Config) error {
	cfg.Backend.APIKey = ""
	cfg.Planner.APIKey = ""

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return f.Close()
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
