// Package config loads urlscout configuration from a YAML file and URLSCOUT_ environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mcuadros/go-defaults"

	"github.com/theopenlane/urlscout/internal/checks"
	"github.com/theopenlane/urlscout/internal/probe"
	"github.com/theopenlane/urlscout/internal/reputation"
	"github.com/theopenlane/urlscout/internal/scoring"
)

const (
	// EnvPrefix is the prefix of every environment override
	EnvPrefix = "URLSCOUT_"
	// envNestingDelim separates nested keys in environment variable names
	envNestingDelim = "__"
	// DefaultConfigFilePath is used when no --config flag is given
	DefaultConfigFilePath = "./config/.config.yaml"
)

// Config holds service configuration
type Config struct {
	// Server configures the HTTP API
	Server Server `json:"server" koanf:"server"`
	// Scanner configures the scan budget and network probes
	Scanner Scanner `json:"scanner" koanf:"scanner"`
	// Checks tunes the heuristic checks
	Checks Checks `json:"checks" koanf:"checks"`
	// Scoring holds the verdict thresholds
	Scoring scoring.Thresholds `json:"scoring" koanf:"scoring"`
	// Reputation configures the reputation list store and blacklist feeds
	Reputation Reputation `json:"reputation" koanf:"reputation"`
	// Slack configures malicious verdict notifications
	Slack Slack `json:"slack" koanf:"slack"`
}

// Server holds HTTP server settings
type Server struct {
	// Debug enables debug logging
	Debug bool `json:"debug" koanf:"debug" default:"false"`
	// Pretty enables human readable logging output
	Pretty bool `json:"pretty" koanf:"pretty" default:"false"`
	// Listen is the address the API binds to
	Listen string `json:"listen" koanf:"listen" default:":8080"`
	// ReadTimeout bounds reading a request
	ReadTimeout time.Duration `json:"read_timeout" koanf:"read_timeout" default:"30s"`
	// WriteTimeout bounds writing a response and must exceed the scan budget
	WriteTimeout time.Duration `json:"write_timeout" koanf:"write_timeout" default:"60s"`
	// RequestTimeout cancels handlers that run longer
	RequestTimeout time.Duration `json:"request_timeout" koanf:"request_timeout" default:"60s"`
	// ShutdownGracePeriod is how long in-flight requests get on shutdown
	ShutdownGracePeriod time.Duration `json:"shutdown_grace_period" koanf:"shutdown_grace_period" default:"10s"`
	// MaxBodySize caps request bodies in bytes
	MaxBodySize int64 `json:"max_body_size" koanf:"max_body_size" default:"102400"`
	// ScanLimit is how many scans a client may start per scan window, 0 disables limiting
	ScanLimit int `json:"scan_limit" koanf:"scan_limit" default:"30"`
	// ScanWindow is the sliding window the scan limit applies to
	ScanWindow time.Duration `json:"scan_window" koanf:"scan_window" default:"1m"`
}

// Scanner holds the scan budget and probe settings
type Scanner struct {
	// Budget is the wall-clock limit of a whole scan
	Budget time.Duration `json:"budget" koanf:"budget" default:"30s"`
	// CheckGrace is the time checks get when the budget expires during probing
	CheckGrace time.Duration `json:"check_grace" koanf:"check_grace" default:"1s"`
	// NotifyTimeout bounds delivery of a malicious verdict notification
	NotifyTimeout time.Duration `json:"notify_timeout" koanf:"notify_timeout" default:"10s"`
	// HTTPTimeout bounds the page fetch including redirects
	HTTPTimeout time.Duration `json:"http_timeout" koanf:"http_timeout" default:"10s"`
	// RobotsTimeout bounds the robots.txt fetch
	RobotsTimeout time.Duration `json:"robots_timeout" koanf:"robots_timeout" default:"5s"`
	// TLSTimeout bounds the certificate inspection
	TLSTimeout time.Duration `json:"tls_timeout" koanf:"tls_timeout" default:"10s"`
	// DNSTimeout bounds DNS resolution
	DNSTimeout time.Duration `json:"dns_timeout" koanf:"dns_timeout" default:"5s"`
	// WhoisTimeout bounds the registration lookup
	WhoisTimeout time.Duration `json:"whois_timeout" koanf:"whois_timeout" default:"10s"`
	// MaxRedirects is the longest redirect chain followed
	MaxRedirects int `json:"max_redirects" koanf:"max_redirects" default:"10"`
	// MaxBodyBytes caps the page body read
	MaxBodyBytes int64 `json:"max_body_bytes" koanf:"max_body_bytes" default:"2097152"`
	// UserAgent overrides the fetch user agent
	UserAgent string `json:"user_agent" koanf:"user_agent"`
	// DNSServer is the resolver queried for records
	DNSServer string `json:"dns_server" koanf:"dns_server" default:"8.8.8.8:53"`
	// DNSCacheTTL is how long DNS answers are reused
	DNSCacheTTL time.Duration `json:"dns_cache_ttl" koanf:"dns_cache_ttl" default:"5m"`
	// RegistrationMode is whois, rdap or whois+rdap
	RegistrationMode string `json:"registration_mode" koanf:"registration_mode" default:"whois+rdap"`
	// RequiredHeaders replaces the security headers a page is expected to send
	RequiredHeaders []string `json:"required_headers" koanf:"required_headers"`
	// Fingerprint enables technology detection on fetched pages
	Fingerprint bool `json:"fingerprint" koanf:"fingerprint" default:"true"`
}

// Checks tunes the heuristic check battery
type Checks struct {
	// Disabled lists check IDs that are skipped entirely
	Disabled []string `json:"disabled" koanf:"disabled"`
	// Weights overrides the score a failing check adds
	Weights map[string]int `json:"weights" koanf:"weights"`
	// MinDomainAge is the registration age below which a domain is flagged
	MinDomainAge time.Duration `json:"min_domain_age" koanf:"min_domain_age" default:"4320h"`
	// MaxDomainLength is the longest acceptable second-level label
	MaxDomainLength int `json:"max_domain_length" koanf:"max_domain_length" default:"20"`
	// MaxSubdomainDepth is the most subdomain labels allowed
	MaxSubdomainDepth int `json:"max_subdomain_depth" koanf:"max_subdomain_depth" default:"2"`
	// MaxHyphens is the most hyphens a host may carry
	MaxHyphens int `json:"max_hyphens" koanf:"max_hyphens" default:"3"`
}

// Reputation configures the reputation list store
type Reputation struct {
	// Backend is memory, sqlite or postgres
	Backend string `json:"backend" koanf:"backend" default:"memory"`
	// DSN is the database connection string for sqlite and postgres
	DSN string `json:"dsn" koanf:"dsn" sensitive:"true"`
	// SeedFile replaces the bundled starter lists
	SeedFile string `json:"seed_file" koanf:"seed_file"`
	// SeedEmpty populates a database backend whose lists are all empty
	SeedEmpty bool `json:"seed_empty" koanf:"seed_empty" default:"true"`
	// SnapshotTTL is how long a fully readable snapshot is reused
	SnapshotTTL time.Duration `json:"snapshot_ttl" koanf:"snapshot_ttl" default:"30s"`
	// ReadTimeout bounds each list read
	ReadTimeout time.Duration `json:"read_timeout" koanf:"read_timeout" default:"3s"`
	// FeedConfig is the path to the blacklist feed definitions, empty disables hydration
	FeedConfig string `json:"feed_config" koanf:"feed_config"`
	// StorageDir keeps raw feed downloads
	StorageDir string `json:"storage_dir" koanf:"storage_dir" default:"data/feeds"`
	// FeedWorkers caps concurrent feed downloads
	FeedWorkers int `json:"feed_workers" koanf:"feed_workers" default:"4"`
	// FeedTimeout bounds a single feed download
	FeedTimeout time.Duration `json:"feed_timeout" koanf:"feed_timeout" default:"90s"`
	// AutoHydrate downloads the feeds when the server starts
	AutoHydrate bool `json:"auto_hydrate" koanf:"auto_hydrate" default:"false"`
}

// Slack configures the webhook notifier
type Slack struct {
	// WebhookURL is the incoming webhook, empty disables notifications
	WebhookURL string `json:"webhook_url" koanf:"webhook_url" sensitive:"true"`
	// Username is the name the alert is posted as
	Username string `json:"username" koanf:"username" default:"urlscout"`
	// ReportURL links alerts to a report viewer, the scan ID is appended
	ReportURL string `json:"report_url" koanf:"report_url"`
	// MaxReasons caps the failing checks listed in an alert
	MaxReasons int `json:"max_reasons" koanf:"max_reasons" default:"5"`
	// RequestTimeout bounds a webhook delivery
	RequestTimeout time.Duration `json:"request_timeout" koanf:"request_timeout" default:"10s"`
}

// Load reads the config file when present, applies URLSCOUT_ environment
// overrides on top of the defaults and validates the result. Nested keys are
// separated by a double underscore, e.g. URLSCOUT_SERVER__LISTEN.
func Load(cfgFile *string) (*Config, error) {
	k := koanf.New(".")

	conf := &Config{}
	defaults.SetDefaults(conf)

	path := DefaultConfigFilePath
	if cfgFile != nil {
		path = *cfgFile
	}

	if path != "" {
		_, err := os.Stat(path)

		switch {
		case err == nil:
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrConfigLoad, path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %s: %v", ErrConfigLoad, path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrConfigLoad, err)
	}

	if err := k.Unmarshal("", conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigUnmarshal, err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// envKey maps URLSCOUT_SERVER__READ_TIMEOUT to server.read_timeout
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))

	return strings.ReplaceAll(key, envNestingDelim, ".")
}

// Validate reports the first setting that would keep the service from starting
func (c *Config) Validate() error {
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("%w: scoring: %v", ErrInvalidConfig, err)
	}

	if c.Scanner.Budget <= 0 {
		return fmt.Errorf("%w: scanner.budget must be positive", ErrInvalidConfig)
	}

	if !slices.Contains([]string{probe.ModeWhois, probe.ModeRDAP, probe.ModeWhoisThenRDAP}, c.Scanner.RegistrationMode) {
		return fmt.Errorf("%w: scanner.registration_mode %q", ErrInvalidConfig, c.Scanner.RegistrationMode)
	}

	switch strings.ToLower(c.Reputation.Backend) {
	case reputation.BackendMemory, reputation.BackendSQLite:
	case reputation.BackendPostgres:
		if c.Reputation.DSN == "" {
			return fmt.Errorf("%w: reputation.dsn is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: reputation.backend %q", ErrInvalidConfig, c.Reputation.Backend)
	}

	for _, id := range c.Checks.Disabled {
		if !slices.Contains(checks.IDs(), id) {
			return fmt.Errorf("%w: checks.disabled: %w: %q", ErrInvalidConfig, checks.ErrUnknownCheck, id)
		}
	}

	if _, err := c.Checks.Policy(); err != nil {
		return fmt.Errorf("%w: checks: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Policy builds the check policy from the defaults and the configured overrides
func (c Checks) Policy() (checks.Policy, error) {
	policy := checks.DefaultPolicy()

	if c.MinDomainAge > 0 {
		policy.MinDomainAge = c.MinDomainAge
	}

	if c.MaxDomainLength > 0 {
		policy.MaxDomainLength = c.MaxDomainLength
	}

	if c.MaxSubdomainDepth > 0 {
		policy.MaxSubdomainDepth = c.MaxSubdomainDepth
	}

	if c.MaxHyphens > 0 {
		policy.MaxHyphens = c.MaxHyphens
	}

	return policy.WithWeights(c.Weights)
}

// BackendConfig converts the reputation settings into store options
func (r Reputation) BackendConfig() reputation.BackendConfig {
	return reputation.BackendConfig{
		Backend:   r.Backend,
		DSN:       r.DSN,
		SeedFile:  r.SeedFile,
		SeedEmpty: r.SeedEmpty,
	}
}
