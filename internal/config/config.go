// Package config loads and validates application configuration from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerlight/ledgerlight/internal/common"
	"github.com/ledgerlight/ledgerlight/internal/llm"
	"github.com/ledgerlight/ledgerlight/internal/model"
	"github.com/ledgerlight/ledgerlight/internal/policy"
)

// Config is the fully resolved application configuration.
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	DatabasePath      string
	DefaultCurrency   string
	LogLevel          string
	LogFormat         string
	Temperature       float64
	DefaultConfidence float64
	AutoAccept        float64
	Review            float64
	RetryMultiplier   float64
	MaxTokens         int
	RateLimit         int
	RetryMaxAttempts  int
	Timeout           time.Duration
	CacheTTL          time.Duration
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	SessionTTL        time.Duration
	SessionSweep      time.Duration
}

// SetDefaults registers every configuration default on the viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.cache_ttl", "1h")
	v.SetDefault("llm.default_confidence", 0.5)

	v.SetDefault("policy.auto_accept", 0.85)
	v.SetDefault("policy.review", 0.60)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", "1s")
	v.SetDefault("retry.max_delay", "30s")
	v.SetDefault("retry.multiplier", 2.0)

	v.SetDefault("session.ttl", "15m")
	v.SetDefault("session.sweep_interval", "1m")

	v.SetDefault("storage.database", "~/.local/share/ledgerlight/ledgerlight.db")
	v.SetDefault("currency", "USD")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads the configuration out of the viper instance.
func Load(v *viper.Viper) *Config {
	return &Config{
		Provider:          v.GetString("llm.provider"),
		APIKey:            v.GetString("llm.api_key"),
		Model:             v.GetString("llm.model"),
		Temperature:       v.GetFloat64("llm.temperature"),
		MaxTokens:         v.GetInt("llm.max_tokens"),
		Timeout:           v.GetDuration("llm.timeout"),
		RateLimit:         v.GetInt("llm.rate_limit"),
		CacheTTL:          v.GetDuration("llm.cache_ttl"),
		DefaultConfidence: v.GetFloat64("llm.default_confidence"),
		AutoAccept:        v.GetFloat64("policy.auto_accept"),
		Review:            v.GetFloat64("policy.review"),
		RetryMaxAttempts:  v.GetInt("retry.max_attempts"),
		RetryInitialDelay: v.GetDuration("retry.initial_delay"),
		RetryMaxDelay:     v.GetDuration("retry.max_delay"),
		RetryMultiplier:   v.GetFloat64("retry.multiplier"),
		SessionTTL:        v.GetDuration("session.ttl"),
		SessionSweep:      v.GetDuration("session.sweep_interval"),
		DatabasePath:      ExpandPath(v.GetString("storage.database")),
		DefaultCurrency:   v.GetString("currency"),
		LogLevel:          v.GetString("logging.level"),
		LogFormat:         v.GetString("logging.format"),
	}
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("%w: unknown provider %q", common.ErrInvalidConfig, c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: llm.api_key is required", common.ErrInvalidConfig)
	}
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}
	if c.DefaultConfidence < 0 || c.DefaultConfidence > 1 {
		return fmt.Errorf("%w: llm.default_confidence must be within [0,1]", common.ErrInvalidConfig)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1", common.ErrInvalidConfig)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: session.ttl must be positive", common.ErrInvalidConfig)
	}
	if _, err := model.ParseCurrency(c.DefaultCurrency); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: storage.database is required", common.ErrInvalidConfig)
	}
	return nil
}

// LLM converts to the provider client configuration.
func (c *Config) LLM() llm.Config {
	return llm.Config{
		Provider:          c.Provider,
		APIKey:            c.APIKey,
		Model:             c.Model,
		Temperature:       c.Temperature,
		MaxTokens:         c.MaxTokens,
		Timeout:           c.Timeout,
		RateLimit:         c.RateLimit,
		CacheTTL:          c.CacheTTL,
		DefaultConfidence: c.DefaultConfidence,
	}
}

// Thresholds converts to the confidence policy watermarks.
func (c *Config) Thresholds() policy.Thresholds {
	return policy.Thresholds{AutoAccept: c.AutoAccept, Review: c.Review}
}

// Retry converts to the engine retry options.
func (c *Config) Retry() common.RetryOptions {
	return common.RetryOptions{
		MaxAttempts:  c.RetryMaxAttempts,
		InitialDelay: c.RetryInitialDelay,
		MaxDelay:     c.RetryMaxDelay,
		Multiplier:   c.RetryMultiplier,
	}
}

// Currency returns the parsed default currency. Call Validate first.
func (c *Config) Currency() model.Currency {
	currency, err := model.ParseCurrency(c.DefaultCurrency)
	if err != nil {
		return model.DefaultCurrency
	}
	return currency
}

// ExpandPath expands ~ and $VAR references in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}
	return os.ExpandEnv(path)
}
