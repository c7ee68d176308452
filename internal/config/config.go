// Package config loads and defaults the logwatcher configuration file.
// Full schema validation (the jsonschema contract the original project
// enforced) is treated as an external concern; this loader applies
// defaults and checks the handful of range and pattern-reference
// invariants the core itself depends on to behave correctly. It does
// not check that the top-level sections are present.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Patterns          map[string]string   `yaml:"patterns"`
	FilePatterns      map[string][]string `yaml:"file_patterns"`
	Settings          Settings            `yaml:"settings"`
	Notifications     Notifications       `yaml:"notifications"`
	NotificationRules map[string][]string `yaml:"notification_rules"`
	Health            Health              `yaml:"health"`
}

// Settings holds the tunables shared across the pipeline.
type Settings struct {
	Encoding              string `yaml:"encoding"`
	ReadChunkSize         int    `yaml:"read_chunk_size"`
	NotificationRateLimit int    `yaml:"notification_rate_limit"`
	MaxFileSize           int64  `yaml:"max_file_size"`
	BufferSize            int    `yaml:"buffer_size"`
	MaxRetries            int    `yaml:"max_retries"`
}

// RateLimitWindow returns the notification rate limit as a duration.
func (s Settings) RateLimitWindow() time.Duration {
	return time.Duration(s.NotificationRateLimit) * time.Second
}

// Notifications holds the per-channel delivery configuration.
type Notifications struct {
	Email    EmailConfig    `yaml:"email"`
	Slack    WebhookConfig  `yaml:"slack"`
	Teams    WebhookConfig  `yaml:"teams"`
	Telegram TelegramConfig `yaml:"telegram"`
	Syslog   SyslogConfig   `yaml:"syslog"`
}

// EmailConfig configures the SMTP sink.
type EmailConfig struct {
	Enabled    bool     `yaml:"enabled"`
	SMTPServer string   `yaml:"smtp_server"`
	SMTPPort   int      `yaml:"smtp_port"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	ToAddress  []string `yaml:"to_address"`
}

// WebhookConfig configures a generic JSON webhook sink (Slack, Teams).
type WebhookConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// TelegramConfig configures the Telegram bot API sink.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// SyslogConfig configures the remote syslog sink.
type SyslogConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Facility string `yaml:"facility"`
	Protocol string `yaml:"protocol"` // "udp" or "tcp"
	Tag      string `yaml:"tag"`
}

// Health configures the optional metrics/health HTTP and WebSocket
// surface exposed by internal/dashboard. Disabled unless explicitly
// enabled, so existing configs remain valid without this section.
type Health struct {
	Enabled       bool   `yaml:"enabled"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	CheckInterval int    `yaml:"check_interval_seconds"`
}

// CheckIntervalDuration returns the health poll interval as a duration.
func (h Health) CheckIntervalDuration() time.Duration {
	return time.Duration(h.CheckInterval) * time.Second
}

// Load reads and defaults a configuration file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration populated with the documented
// defaults and empty pattern/notification maps.
func Default() *Config {
	return &Config{
		Patterns:          map[string]string{},
		FilePatterns:      map[string][]string{},
		NotificationRules: map[string][]string{},
		Settings: Settings{
			Encoding:              "utf-8",
			ReadChunkSize:         4096,
			NotificationRateLimit: 60,
			MaxFileSize:           100_000_000,
			BufferSize:            20,
			MaxRetries:            3,
		},
		Health: Health{
			Enabled:       false,
			Host:          "localhost",
			Port:          8090,
			CheckInterval: 60,
		},
	}
}

// applyDefaults fills in zero-valued fields a YAML document left
// unset.
func applyDefaults(cfg *Config) {
	if cfg.Settings.Encoding == "" {
		cfg.Settings.Encoding = "utf-8"
	}
	if cfg.Settings.ReadChunkSize == 0 {
		cfg.Settings.ReadChunkSize = 4096
	}
	if cfg.Settings.BufferSize == 0 {
		cfg.Settings.BufferSize = 20
	}
	if cfg.Settings.MaxRetries == 0 {
		cfg.Settings.MaxRetries = 3
	}
	if cfg.Health.Host == "" {
		cfg.Health.Host = "localhost"
	}
	if cfg.Health.Port == 0 {
		cfg.Health.Port = 8090
	}
	if cfg.Health.CheckInterval == 0 {
		cfg.Health.CheckInterval = 60
	}
	if cfg.Patterns == nil {
		cfg.Patterns = map[string]string{}
	}
	if cfg.FilePatterns == nil {
		cfg.FilePatterns = map[string][]string{}
	}
	if cfg.NotificationRules == nil {
		cfg.NotificationRules = map[string][]string{}
	}
}

// Validate checks the range invariants, non-empty regexes, and
// pattern references the pipeline relies on. It does not check that
// the top-level sections are present and is deliberately not a full
// schema validator.
func (c *Config) Validate() error {
	if c.Settings.ReadChunkSize < 1024 {
		return fmt.Errorf("settings.read_chunk_size must be >= 1024, got %d", c.Settings.ReadChunkSize)
	}
	if c.Settings.NotificationRateLimit < 0 {
		return fmt.Errorf("settings.notification_rate_limit must be >= 0, got %d", c.Settings.NotificationRateLimit)
	}
	if c.Settings.BufferSize < 1 {
		return fmt.Errorf("settings.buffer_size must be >= 1, got %d", c.Settings.BufferSize)
	}
	if c.Settings.MaxRetries < 1 {
		return fmt.Errorf("settings.max_retries must be >= 1, got %d", c.Settings.MaxRetries)
	}
	for name, pattern := range c.Patterns {
		if pattern == "" {
			return fmt.Errorf("pattern %q has an empty regex", name)
		}
	}
	for path, names := range c.FilePatterns {
		for _, name := range names {
			if _, ok := c.Patterns[name]; !ok {
				return fmt.Errorf("file_patterns[%q] references unknown pattern %q", path, name)
			}
		}
	}
	return nil
}

// MonitoredPaths returns every path listed in file_patterns, sorted,
// so the order is stable across calls.
func (c *Config) MonitoredPaths() []string {
	paths := make([]string, 0, len(c.FilePatterns))
	for path := range c.FilePatterns {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
