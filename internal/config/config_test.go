package config

import (
	"os"
	"strings"
	"testing"
)

const fullYAML = `
signal_numbers_path: signals.csv
rules_path: rules.yaml
log_path: run.log

ingress:
  transport: websocket
  websocket_url: ws://localhost:9000/ingress

replay:
  enabled: true
  trace_log_path: prior.log

audit:
  enabled: true
  driver: mysql
  dsn: vsm:pass@tcp(127.0.0.1:3306)/vsm

notify:
  platform: slack
  channel: C0123456
  slack:
    bot_token: xoxb-test
    app_token: xapp-test

dashboard:
  enabled: true
  addr: ":9090"

digest:
  enabled: true
  cron: "@every 1m"
`

const minimalYAML = `
signal_numbers_path: signals.csv
rules_path: rules.yaml
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SignalNumbersPath != "signals.csv" {
		t.Errorf("SignalNumbersPath = %q", cfg.SignalNumbersPath)
	}
	if cfg.Ingress.Transport != "websocket" || cfg.Ingress.WebSocketURL != "ws://localhost:9000/ingress" {
		t.Errorf("Ingress = %+v", cfg.Ingress)
	}
	if !cfg.Replay.Enabled || cfg.Replay.TraceLogPath != "prior.log" {
		t.Errorf("Replay = %+v", cfg.Replay)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Driver != "mysql" {
		t.Errorf("Audit = %+v", cfg.Audit)
	}
	if cfg.Notify.Platform != "slack" || cfg.Notify.Slack.BotToken != "xoxb-test" {
		t.Errorf("Notify = %+v", cfg.Notify)
	}
	if !cfg.Dashboard.Enabled || cfg.Dashboard.Addr != ":9090" {
		t.Errorf("Dashboard = %+v", cfg.Dashboard)
	}
	if !cfg.Digest.Enabled || cfg.Digest.Cron != "@every 1m" {
		t.Errorf("Digest = %+v", cfg.Digest)
	}
}

func TestParse_DigestRequiresCronAndNotifyPlatform(t *testing.T) {
	yaml := minimalYAML + "\ndigest:\n  enabled: true\n"
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected an error for digest.enabled without cron or notify.platform")
	}
	if !strings.Contains(err.Error(), "digest.cron") {
		t.Errorf("error = %v, want mention of digest.cron", err)
	}
	if !strings.Contains(err.Error(), "notify.platform") {
		t.Errorf("error = %v, want mention of notify.platform", err)
	}
}

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Ingress.Transport != "stdio" {
		t.Errorf("Ingress.Transport = %q, want stdio (default)", cfg.Ingress.Transport)
	}
	if cfg.LogPath != "vsm.log" {
		t.Errorf("LogPath = %q, want vsm.log (default)", cfg.LogPath)
	}
	if cfg.Audit.Enabled || cfg.Notify.Platform != "" || cfg.Dashboard.Enabled {
		t.Errorf("optional sections should stay disabled by default: %+v / %+v / %+v", cfg.Audit, cfg.Notify, cfg.Dashboard)
	}
}

func TestParse_MissingRequiredFields(t *testing.T) {
	_, err := Parse([]byte("log_path: run.log\n"))
	if err == nil {
		t.Fatal("expected validation error for missing signal_numbers_path/rules_path")
	}
	if !strings.Contains(err.Error(), "signal_numbers_path") || !strings.Contains(err.Error(), "rules_path") {
		t.Errorf("error = %v, want both missing fields named", err)
	}
}

func TestParse_WebsocketTransportRequiresURL(t *testing.T) {
	yaml := "signal_numbers_path: s.csv\nrules_path: r.yaml\ningress:\n  transport: websocket\n"
	_, err := Parse([]byte(yaml))
	if err == nil || !strings.Contains(err.Error(), "websocket_url") {
		t.Errorf("error = %v, want websocket_url required", err)
	}
}

func TestParse_UnsupportedTransport(t *testing.T) {
	yaml := "signal_numbers_path: s.csv\nrules_path: r.yaml\ningress:\n  transport: carrier-pigeon\n"
	_, err := Parse([]byte(yaml))
	if err == nil || !strings.Contains(err.Error(), "carrier-pigeon") {
		t.Errorf("error = %v, want unsupported transport named", err)
	}
}

func TestParse_SlackNotifyRequiresTokens(t *testing.T) {
	yaml := "signal_numbers_path: s.csv\nrules_path: r.yaml\nnotify:\n  platform: slack\n  channel: C1\n"
	_, err := Parse([]byte(yaml))
	if err == nil || !strings.Contains(err.Error(), "bot_token") {
		t.Errorf("error = %v, want missing slack tokens named", err)
	}
}

func TestResolveEnvVars_SubstitutesFromEnvironment(t *testing.T) {
	os.Setenv("VSM_TEST_TOKEN", "secret-value")
	defer os.Unsetenv("VSM_TEST_TOKEN")

	yaml := "signal_numbers_path: s.csv\nrules_path: r.yaml\nnotify:\n  platform: slack\n  channel: C1\n  slack:\n    bot_token: ${VSM_TEST_TOKEN}\n    app_token: xapp\n"
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Notify.Slack.BotToken != "secret-value" {
		t.Errorf("BotToken = %q, want env var substituted", cfg.Notify.Slack.BotToken)
	}
}
