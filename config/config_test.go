package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/theopenlane/urlscout/internal/checks"
)

func loadWithoutFile(t *testing.T) *Config {
	t.Helper()

	empty := ""

	cfg, err := Load(&empty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadWithoutFile(t)

	if cfg.Server.Listen != ":8080" {
		t.Errorf("expected default listen :8080, got %s", cfg.Server.Listen)
	}
	if cfg.Server.MaxBodySize != 100*1024 {
		t.Errorf("expected default max body size 102400, got %d", cfg.Server.MaxBodySize)
	}
	if cfg.Server.ScanLimit != 30 || cfg.Server.ScanWindow != time.Minute {
		t.Errorf("expected scan limit 30 per 1m, got %d per %v", cfg.Server.ScanLimit, cfg.Server.ScanWindow)
	}
	if cfg.Scanner.Budget != 30*time.Second {
		t.Errorf("expected default budget 30s, got %v", cfg.Scanner.Budget)
	}
	if cfg.Scanner.RegistrationMode != "whois+rdap" {
		t.Errorf("expected default registration mode whois+rdap, got %s", cfg.Scanner.RegistrationMode)
	}
	if !cfg.Scanner.Fingerprint {
		t.Error("expected fingerprinting enabled by default")
	}
	if cfg.Scoring.Low != 20 || cfg.Scoring.High != 50 {
		t.Errorf("expected thresholds 20/50, got %d/%d", cfg.Scoring.Low, cfg.Scoring.High)
	}
	if cfg.Checks.MinDomainAge != 180*24*time.Hour {
		t.Errorf("expected min domain age 180 days, got %v", cfg.Checks.MinDomainAge)
	}
	if cfg.Reputation.Backend != "memory" {
		t.Errorf("expected memory backend, got %s", cfg.Reputation.Backend)
	}
	if cfg.Slack.WebhookURL != "" {
		t.Error("expected slack to be unconfigured by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	data := []byte(`
server:
  listen: ":9090"
scanner:
  budget: 45s
checks:
  disabled:
    - robots_restriction
  weights:
    blacklist: 80
scoring:
  low: 25
  high: 60
reputation:
  backend: sqlite
  dsn: "file::memory:?cache=shared"
`)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(&path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Listen != ":9090" {
		t.Errorf("expected listen :9090, got %s", cfg.Server.Listen)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected unset keys to keep defaults, got read timeout %v", cfg.Server.ReadTimeout)
	}
	if cfg.Scanner.Budget != 45*time.Second {
		t.Errorf("expected budget 45s, got %v", cfg.Scanner.Budget)
	}
	if len(cfg.Checks.Disabled) != 1 || cfg.Checks.Disabled[0] != checks.IDRobotsRestriction {
		t.Errorf("unexpected disabled checks: %v", cfg.Checks.Disabled)
	}
	if cfg.Scoring.Low != 25 || cfg.Scoring.High != 60 {
		t.Errorf("expected thresholds 25/60, got %d/%d", cfg.Scoring.Low, cfg.Scoring.High)
	}

	policy, err := cfg.Checks.Policy()
	if err != nil {
		t.Fatalf("unexpected policy error: %v", err)
	}

	if policy.Weight(checks.IDBlacklist) != 80 {
		t.Errorf("expected blacklist weight 80, got %d", policy.Weight(checks.IDBlacklist))
	}
	if policy.Weight(checks.IDHTTPS) != 15 {
		t.Errorf("expected https weight to keep its default, got %d", policy.Weight(checks.IDHTTPS))
	}

	backend := cfg.Reputation.BackendConfig()
	if backend.Backend != "sqlite" || backend.DSN == "" {
		t.Errorf("unexpected backend config: %+v", backend)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("URLSCOUT_SERVER__LISTEN", ":7070")
	t.Setenv("URLSCOUT_SCANNER__BUDGET", "12s")
	t.Setenv("URLSCOUT_SLACK__WEBHOOK_URL", "https://hooks.slack.com/services/T/B/X")
	t.Setenv("URLSCOUT_SCORING__HIGH", "70")

	cfg := loadWithoutFile(t)

	if cfg.Server.Listen != ":7070" {
		t.Errorf("expected listen :7070, got %s", cfg.Server.Listen)
	}
	if cfg.Scanner.Budget != 12*time.Second {
		t.Errorf("expected budget 12s, got %v", cfg.Scanner.Budget)
	}
	if cfg.Slack.WebhookURL == "" {
		t.Error("expected slack webhook from environment")
	}
	if cfg.Scoring.High != 70 {
		t.Errorf("expected high threshold 70, got %d", cfg.Scoring.High)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := Load(&path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Listen != ":8080" {
		t.Errorf("expected default listen, got %s", cfg.Server.Listen)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")

	if err := os.WriteFile(path, []byte("server: [unterminated"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(&path); !errors.Is(err, ErrConfigLoad) {
		t.Errorf("expected ErrConfigLoad, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted thresholds", func(c *Config) { c.Scoring.Low, c.Scoring.High = 60, 40 }},
		{"zero budget", func(c *Config) { c.Scanner.Budget = 0 }},
		{"unknown registration mode", func(c *Config) { c.Scanner.RegistrationMode = "finger" }},
		{"unknown backend", func(c *Config) { c.Reputation.Backend = "redis" }},
		{"postgres without dsn", func(c *Config) { c.Reputation.Backend = "postgres" }},
		{"unknown disabled check", func(c *Config) { c.Checks.Disabled = []string{"nope"} }},
		{"unknown weight", func(c *Config) { c.Checks.Weights = map[string]int{"nope": 1} }},
		{"negative weight", func(c *Config) { c.Checks.Weights = map[string]int{checks.IDHTTPS: -1} }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := loadWithoutFile(t)
			tc.mutate(cfg)

			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestEnvKey(t *testing.T) {
	if got := envKey("URLSCOUT_REPUTATION__SNAPSHOT_TTL"); got != "reputation.snapshot_ttl" {
		t.Errorf("expected reputation.snapshot_ttl, got %s", got)
	}
}
