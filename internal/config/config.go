// Package config provides YAML-based configuration loading for the signal
// manager engine.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Config is the top-level engine configuration, loaded from a run's
// config.yaml.
type Config struct {
	SignalNumbersPath string          `yaml:"signal_numbers_path"`
	RulesPath         string          `yaml:"rules_path"`
	LogPath           string          `yaml:"log_path"`
	Ingress           IngressConfig   `yaml:"ingress"`
	Replay            ReplayConfig    `yaml:"replay"`
	Audit             AuditConfig     `yaml:"audit"`
	Notify            NotifyConfig    `yaml:"notify"`
	Dashboard         DashboardConfig `yaml:"dashboard"`
	Digest            DigestConfig    `yaml:"digest"`
}

// IngressConfig selects and configures the IPC transport.
type IngressConfig struct {
	Transport    string `yaml:"transport"` // "stdio", "stdio-nullable" or "websocket"
	WebSocketURL string `yaml:"websocket_url"`
}

// ReplayConfig controls whether the engine replays a prior trace log before
// accepting live ingress.
type ReplayConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TraceLogPath string `yaml:"trace_log_path"`
}

// AuditConfig controls the optional GORM-backed audit trail.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"` // "sqlite" or "mysql"
	DSN     string `yaml:"dsn"`
}

// NotifyConfig controls the optional Slack/Discord alert adapter.
type NotifyConfig struct {
	Platform string        `yaml:"platform"` // "slack" or "discord"
	Channel  string        `yaml:"channel"`
	Slack    SlackConfig   `yaml:"slack"`
	Discord  DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack-specific credentials.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"` // xoxb-...
	AppToken string `yaml:"app_token"` // xapp-...
}

// DiscordConfig holds Discord-specific credentials.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DashboardConfig controls the optional HTTP/SSE dashboard.
type DashboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"` // default ":8080"
}

// DigestConfig controls the optional cron-scheduled state recap, posted
// through the same alerter as notify.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // standard 5-field cron expression, or an "@every"-style descriptor
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Ingress.Transport == "" {
		c.Ingress.Transport = "stdio"
	}
	if c.LogPath == "" {
		c.LogPath = "vsm.log"
	}
	if c.Audit.Enabled && c.Audit.Driver == "" {
		c.Audit.Driver = "sqlite"
	}
	if c.Audit.Enabled && c.Audit.Driver == "sqlite" && c.Audit.DSN == "" {
		c.Audit.DSN = "vsm_audit.db"
	}
	if c.Dashboard.Enabled && c.Dashboard.Addr == "" {
		c.Dashboard.Addr = ":8080"
	}
	c.Audit.DSN = resolveEnvVars(c.Audit.DSN)
	c.Notify.Slack.BotToken = resolveEnvVars(c.Notify.Slack.BotToken)
	c.Notify.Slack.AppToken = resolveEnvVars(c.Notify.Slack.AppToken)
	c.Notify.Discord.BotToken = resolveEnvVars(c.Notify.Discord.BotToken)
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.SignalNumbersPath == "" {
		errs = append(errs, "signal_numbers_path is required")
	}
	if c.RulesPath == "" {
		errs = append(errs, "rules_path is required")
	}
	switch c.Ingress.Transport {
	case "stdio", "stdio-nullable":
	case "websocket":
		if c.Ingress.WebSocketURL == "" {
			errs = append(errs, "ingress.websocket_url is required when ingress.transport is websocket")
		}
	default:
		errs = append(errs, fmt.Sprintf("ingress.transport %q is not supported (use stdio, stdio-nullable or websocket)", c.Ingress.Transport))
	}
	if c.Replay.Enabled && c.Replay.TraceLogPath == "" {
		errs = append(errs, "replay.trace_log_path is required when replay.enabled is true")
	}
	if c.Audit.Enabled {
		switch c.Audit.Driver {
		case "sqlite", "mysql":
		default:
			errs = append(errs, fmt.Sprintf("audit.driver %q is not supported (use sqlite or mysql)", c.Audit.Driver))
		}
	}
	if c.Notify.Platform != "" {
		switch c.Notify.Platform {
		case "slack":
			if c.Notify.Slack.BotToken == "" {
				errs = append(errs, "notify.slack.bot_token is required when notify.platform is slack")
			}
			if c.Notify.Slack.AppToken == "" {
				errs = append(errs, "notify.slack.app_token is required when notify.platform is slack")
			}
		case "discord":
			if c.Notify.Discord.BotToken == "" {
				errs = append(errs, "notify.discord.bot_token is required when notify.platform is discord")
			}
		default:
			errs = append(errs, fmt.Sprintf("notify.platform %q is not supported (use slack or discord)", c.Notify.Platform))
		}
		if c.Notify.Channel == "" {
			errs = append(errs, "notify.channel is required")
		}
	}
	if c.Digest.Enabled {
		if c.Digest.Cron == "" {
			errs = append(errs, "digest.cron is required when digest.enabled is true")
		}
		if c.Notify.Platform == "" {
			errs = append(errs, "notify.platform is required when digest.enabled is true")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// resolveEnvVars replaces ${VAR_NAME} tokens in s with the corresponding
// environment variable value. Unset variables resolve to empty string.
func resolveEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarRe.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}
