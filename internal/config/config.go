// Package config loads and validates application configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Kalshi   KalshiConfig   `mapstructure:"kalshi"`
	Signals  SignalsConfig  `mapstructure:"signals"`
	Sections SectionsConfig `mapstructure:"sections"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// KalshiConfig holds Kalshi API configuration.
type KalshiConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Limit          int           `mapstructure:"limit"`
	Enrich         bool          `mapstructure:"enrich"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	DemoFallback   bool          `mapstructure:"demo_fallback"`
	DemoOnly       bool          `mapstructure:"demo_only"`
}

// SignalsConfig holds signal-computation configuration.
type SignalsConfig struct {
	WindowHours      int    `mapstructure:"window_hours"`
	ConfidencePolicy string `mapstructure:"confidence_policy"` // "linear" or "exponential"
}

// SectionsConfig holds editorial-section configuration.
type SectionsConfig struct {
	TopStories          int     `mapstructure:"top_stories"`
	SectionSize         int     `mapstructure:"section_size"`
	MostRead            int     `mapstructure:"most_read"`
	Developing          int     `mapstructure:"developing"`
	VolatilityThreshold float64 `mapstructure:"volatility_threshold"`
	DeltaThreshold      float64 `mapstructure:"delta_threshold"`
}

// StorageConfig holds snapshot persistence configuration.
type StorageConfig struct {
	DBPath    string        `mapstructure:"db_path"`
	Retention time.Duration `mapstructure:"retention"`
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// MetricsConfig holds Prometheus instrumentation configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// TelegramConfig holds Telegram digest configuration.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("MARKETPRESS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("kalshi.base_url", "https://api.elections.kalshi.com/trade-api/v2")
	v.SetDefault("kalshi.limit", 100)
	v.SetDefault("kalshi.enrich", true)
	v.SetDefault("kalshi.poll_interval", "5m")
	v.SetDefault("kalshi.timeout", "30s")
	v.SetDefault("kalshi.max_retries", 3)
	v.SetDefault("kalshi.retry_delay_base", "1s")
	v.SetDefault("kalshi.demo_fallback", true)
	v.SetDefault("kalshi.demo_only", false)

	v.SetDefault("signals.window_hours", 24)
	v.SetDefault("signals.confidence_policy", "linear")

	v.SetDefault("sections.top_stories", 10)
	v.SetDefault("sections.section_size", 15)
	v.SetDefault("sections.most_read", 10)
	v.SetDefault("sections.developing", 10)
	v.SetDefault("sections.volatility_threshold", 0.05)
	v.SetDefault("sections.delta_threshold", 0.05)

	v.SetDefault("storage.db_path", "")
	v.SetDefault("storage.retention", "168h") // 7 days keeps the delta_7d reference alive

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	if c.Kalshi.BaseURL == "" {
		return fmt.Errorf("kalshi.base_url is required")
	}
	if c.Kalshi.Limit < 1 || c.Kalshi.Limit > 500 {
		return fmt.Errorf("kalshi.limit must be between 1 and 500")
	}
	if c.Kalshi.PollInterval < 1*time.Minute {
		return fmt.Errorf("kalshi.poll_interval must be at least 1 minute")
	}
	if c.Kalshi.MaxRetries < 1 {
		return fmt.Errorf("kalshi.max_retries must be at least 1")
	}

	if c.Signals.WindowHours < 1 {
		return fmt.Errorf("signals.window_hours must be at least 1")
	}
	if c.Signals.ConfidencePolicy != "linear" && c.Signals.ConfidencePolicy != "exponential" {
		return fmt.Errorf("signals.confidence_policy must be one of: linear, exponential")
	}

	if c.Sections.TopStories < 1 {
		return fmt.Errorf("sections.top_stories must be at least 1")
	}
	if c.Sections.SectionSize < 1 {
		return fmt.Errorf("sections.section_size must be at least 1")
	}
	if c.Sections.MostRead < 1 {
		return fmt.Errorf("sections.most_read must be at least 1")
	}
	if c.Sections.Developing < 1 {
		return fmt.Errorf("sections.developing must be at least 1")
	}
	if c.Sections.VolatilityThreshold < 0 {
		return fmt.Errorf("sections.volatility_threshold must not be negative")
	}
	if c.Sections.DeltaThreshold < 0 {
		return fmt.Errorf("sections.delta_threshold must not be negative")
	}

	if c.Storage.Retention < 1*time.Hour {
		return fmt.Errorf("storage.retention must be at least 1 hour")
	}

	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required when server is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
