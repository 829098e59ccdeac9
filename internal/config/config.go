// Package config loads and validates watcher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Scrape      ScrapeConfig      `mapstructure:"scrape"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Expedition  ExpeditionConfig  `mapstructure:"expedition"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ScrapeConfig governs the poll loop and page access.
type ScrapeConfig struct {
	BossURL         string `mapstructure:"boss_url"`
	BossViewURL     string `mapstructure:"boss_view_url"`
	Cookie          string `mapstructure:"cookie"`
	UserAgent       string `mapstructure:"user_agent"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	FetchDetails    bool   `mapstructure:"fetch_details"`
}

// AlertsConfig tunes transition classification and notification debounce.
type AlertsConfig struct {
	ApproachThresholdSeconds int  `mapstructure:"approach_threshold_seconds"`
	ActiveCooldownSeconds    int  `mapstructure:"active_cooldown_seconds"`
	FailureThreshold         int  `mapstructure:"failure_threshold"`
	TestPing                 bool `mapstructure:"test_ping"`
}

// TelegramConfig holds bot credentials. Empty token disables notifications.
type TelegramConfig struct {
	Token          string `mapstructure:"token"`
	ChatID         string `mapstructure:"chat_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DiagnosticsConfig controls failure page dumps.
type DiagnosticsConfig struct {
	DumpDir      string `mapstructure:"dump_dir"`
	DumpMaxBytes int    `mapstructure:"dump_max_bytes"`
	DumpEnabled  bool   `mapstructure:"dump_enabled"`
}

// ExpeditionConfig configures the headless quest clicker.
type ExpeditionConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	QuestsURL            string `mapstructure:"quests_url"`
	ClickIntervalSeconds int    `mapstructure:"click_interval_seconds"`
	NavTimeoutSeconds    int    `mapstructure:"nav_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOSSWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (X11; Linux x86_64) bosswatch/0.1")
	v.SetDefault("scrape.interval_seconds", 30)
	v.SetDefault("scrape.timeout_seconds", 15)
	v.SetDefault("scrape.fetch_details", false)
	v.SetDefault("alerts.approach_threshold_seconds", 300)
	v.SetDefault("alerts.active_cooldown_seconds", 600)
	v.SetDefault("alerts.failure_threshold", 3)
	v.SetDefault("alerts.test_ping", false)
	v.SetDefault("telegram.timeout_seconds", 10)
	v.SetDefault("diagnostics.dump_dir", "dumps")
	v.SetDefault("diagnostics.dump_max_bytes", 1<<20)
	v.SetDefault("diagnostics.dump_enabled", true)
	v.SetDefault("expedition.enabled", false)
	v.SetDefault("expedition.click_interval_seconds", 300)
	v.SetDefault("expedition.nav_timeout_seconds", 15)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scrape.BossURL == "" {
		return fmt.Errorf("scrape.boss_url must be set")
	}
	if c.Scrape.IntervalSeconds <= 0 {
		return fmt.Errorf("scrape.interval_seconds must be > 0")
	}
	if c.Scrape.TimeoutSeconds <= 0 {
		return fmt.Errorf("scrape.timeout_seconds must be > 0")
	}
	if c.Scrape.FetchDetails && c.Scrape.BossViewURL == "" {
		return fmt.Errorf("scrape.boss_view_url must be set when fetch_details is enabled")
	}
	if c.Alerts.FailureThreshold <= 0 {
		return fmt.Errorf("alerts.failure_threshold must be > 0")
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id must be set when a token is configured")
	}
	if c.Expedition.Enabled && c.Expedition.QuestsURL == "" {
		return fmt.Errorf("expedition.quests_url must be set when expedition is enabled")
	}
	return nil
}

// PollInterval converts the scrape cadence into a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Scrape.IntervalSeconds) * time.Second
}

// ApproachThreshold is the countdown value below which a boss counts as
// approaching.
func (c Config) ApproachThreshold() time.Duration {
	return time.Duration(c.Alerts.ApproachThresholdSeconds) * time.Second
}

// ActiveCooldown is the dedupe window for repeat active alerts.
func (c Config) ActiveCooldown() time.Duration {
	return time.Duration(c.Alerts.ActiveCooldownSeconds) * time.Second
}
