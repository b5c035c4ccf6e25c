package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/theopenlane/urlscout/config"
	"github.com/theopenlane/urlscout/internal/content"
	"github.com/theopenlane/urlscout/internal/probe"
	"github.com/theopenlane/urlscout/internal/reputation"
	"github.com/theopenlane/urlscout/internal/scanner"
	"github.com/theopenlane/urlscout/internal/slack"
)

// setupReputation opens the configured store and wraps it in a snapshot manager
func setupReputation(ctx context.Context, cfg *config.Config) (*reputation.Manager, error) {
	store, err := reputation.OpenStore(ctx, cfg.Reputation.BackendConfig())
	if err != nil {
		return nil, fmt.Errorf("opening %s reputation store: %w", cfg.Reputation.Backend, err)
	}

	opts := []reputation.Option{
		reputation.WithSnapshotTTL(cfg.Reputation.SnapshotTTL),
		reputation.WithReadTimeout(cfg.Reputation.ReadTimeout),
		reputation.WithStorageDir(cfg.Reputation.StorageDir),
		reputation.WithFeedWorkers(cfg.Reputation.FeedWorkers),
		reputation.WithHTTPClient(&http.Client{Timeout: cfg.Reputation.FeedTimeout}),
	}

	if cfg.Reputation.FeedConfig != "" {
		feeds, err := reputation.LoadFeedConfig(cfg.Reputation.FeedConfig)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("loading feed config from %s: %w", cfg.Reputation.FeedConfig, err)
		}

		opts = append(opts, reputation.WithFeeds(feeds))
	}

	manager, err := reputation.NewManager(store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initializing reputation manager: %w", err)
	}

	log.Info().Str("backend", cfg.Reputation.Backend).Msg("reputation store configured")

	return manager, nil
}

// setupProber builds the network probe from the scanner settings
func setupProber(cfg *config.Config) *probe.Prober {
	sc := cfg.Scanner

	resolver := probe.NewDNSClient(
		probe.WithDNSServer(sc.DNSServer),
		probe.WithDNSQueryTimeout(sc.DNSTimeout),
		probe.WithDNSCacheTTL(sc.DNSCacheTTL),
	)

	registration := probe.NewRegistrationClient(
		probe.WithRegistrationMode(sc.RegistrationMode),
		probe.WithWhoisQueryTimeout(sc.WhoisTimeout),
	)

	return probe.New(
		probe.WithResolver(resolver),
		probe.WithRegistrationLookup(registration),
		probe.WithTLSInspector(probe.NewTLSXInspector(sc.TLSTimeout)),
		probe.WithHTTPTimeout(sc.HTTPTimeout),
		probe.WithRobotsTimeout(sc.RobotsTimeout),
		probe.WithTLSTimeout(sc.TLSTimeout),
		probe.WithDNSTimeout(sc.DNSTimeout),
		probe.WithWhoisTimeout(sc.WhoisTimeout),
		probe.WithMaxRedirects(sc.MaxRedirects),
		probe.WithMaxBodyBytes(sc.MaxBodyBytes),
		probe.WithUserAgent(sc.UserAgent),
	)
}

// setupAnalyzer builds the content analyzer
func setupAnalyzer(cfg *config.Config) *content.Analyzer {
	opts := []content.Option{content.WithRequiredHeaders(cfg.Scanner.RequiredHeaders)}

	if !cfg.Scanner.Fingerprint {
		opts = append(opts, content.WithoutFingerprinting())
	}

	return content.NewAnalyzer(opts...)
}

// setupSlack initializes the Slack webhook client from config, returning nil when unconfigured
func setupSlack(cfg *config.Config) *slack.Client {
	if cfg.Slack.WebhookURL == "" {
		log.Info().Msg("slack notifications not configured, skipping")
		return nil
	}

	client, err := slack.New(
		cfg.Slack.WebhookURL,
		slack.WithHTTPClient(&http.Client{Timeout: cfg.Slack.RequestTimeout}),
		slack.WithUsername(cfg.Slack.Username),
		slack.WithReportURL(cfg.Slack.ReportURL),
		slack.WithMaxReasons(cfg.Slack.MaxReasons),
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize slack client")
		return nil
	}

	log.Info().Msg("slack notifications configured")

	return client
}

// setupScanner wires the probe, analyzer, reputation snapshots and notifier into a scanner
func setupScanner(cfg *config.Config, manager *reputation.Manager, notify bool) (*scanner.Scanner, error) {
	policy, err := cfg.Checks.Policy()
	if err != nil {
		return nil, err
	}

	opts := []scanner.ScanOption{
		scanner.WithBudget(cfg.Scanner.Budget),
		scanner.WithCheckGrace(cfg.Scanner.CheckGrace),
		scanner.WithNotifyTimeout(cfg.Scanner.NotifyTimeout),
		scanner.WithPolicy(policy),
		scanner.WithThresholds(cfg.Scoring),
		scanner.WithDisabledChecks(cfg.Checks.Disabled...),
		scanner.WithProber(setupProber(cfg)),
		scanner.WithAnalyzer(setupAnalyzer(cfg)),
		scanner.WithSnapshotSource(manager),
	}

	if notify {
		if client := setupSlack(cfg); client != nil {
			opts = append(opts, scanner.WithNotifier(client))
		}
	}

	return scanner.New(opts...)
}
