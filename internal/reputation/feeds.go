package reputation

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"
	"github.com/rs/zerolog/log"
	"github.com/theopenlane/httpsling"
)

const feedReasonPrefix = "feed:"

// LoadFeedConfig reads a feed configuration from disk.
func LoadFeedConfig(path string) (FeedConfig, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return FeedConfig{}, err
	}
	defer file.Close() //nolint:errcheck

	return DecodeFeedConfig(file)
}

// DecodeFeedConfig parses a feed configuration from an arbitrary reader.
func DecodeFeedConfig(r io.Reader) (FeedConfig, error) {
	var cfg FeedConfig
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return FeedConfig{}, err
	}

	for i := range cfg.Feeds {
		cfg.Feeds[i].Name = strings.TrimSpace(cfg.Feeds[i].Name)
		if cfg.Feeds[i].Name == "" || cfg.Feeds[i].URL == "" {
			return FeedConfig{}, fmt.Errorf("feed %d: name and url are required", i)
		}
	}

	return cfg, nil
}

// Hydrate downloads all configured blacklist feeds and replaces the feed
// overlay merged into subsequent snapshots. A feed that fails to download
// falls back to its last cached copy on disk.
func (m *Manager) Hydrate(ctx context.Context) (HydrationSummary, error) {
	summary := HydrationSummary{
		StartedAt:  time.Now().UTC(),
		TotalFeeds: len(m.feeds.Feeds),
	}

	if len(m.feeds.Feeds) == 0 {
		return summary, ErrNoFeedsDefined
	}

	if err := os.MkdirAll(m.storageDir, 0o750); err != nil {
		return summary, fmt.Errorf("create storage dir: %w", err)
	}

	overlay := make(map[string]Entry)

	var mu sync.Mutex

	swg := sizedwaitgroup.New(m.feedWorkers)

	for _, feed := range m.feeds.Feeds {
		if ctx.Err() != nil {
			break
		}

		swg.Add()

		go func(feed Feed) {
			defer swg.Done()

			start := time.Now()
			feedSummary := FeedSummary{Name: feed.Name, URL: feed.URL}

			domains, err := m.downloadAndParse(ctx, feed, filepath.Join(m.storageDir, feed.Name+".txt"))

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				feedSummary.Error = err.Error()
				summary.ErrorsEncountered = true

				log.Warn().Err(err).Str("feed", feed.Name).Msg("feed hydration encountered an error")
			}

			for _, d := range domains {
				if _, exists := overlay[d]; !exists {
					overlay[d] = Entry{
						Value:    d,
						Reason:   feedReasonPrefix + feed.Name,
						Category: feed.Category,
					}
				}
			}

			if len(domains) > 0 {
				feedSummary.Domains = len(domains)
				feedSummary.LastUpdated = time.Now().UTC()
			}

			if err == nil || len(domains) > 0 {
				feedSummary.Downloaded = true
				summary.SuccessfulFeeds++
			} else {
				summary.FailedFeeds++
			}

			feedSummary.Duration = time.Since(start)
			summary.Feeds = append(summary.Feeds, feedSummary)
		}(feed)
	}

	swg.Wait()

	summary.CompletedAt = time.Now().UTC()
	summary.TotalDomains = len(overlay)

	if len(overlay) == 0 && summary.SuccessfulFeeds == 0 {
		return summary, ErrNoUsableHydrationData
	}

	m.mu.Lock()
	m.overlay = overlay
	m.hydrated = summary.CompletedAt
	m.mu.Unlock()

	m.Invalidate()

	return summary, nil
}

func (m *Manager) downloadAndParse(ctx context.Context, feed Feed, dest string) ([]string, error) {
	if err := m.fetchFeed(ctx, feed, dest); err != nil {
		if _, statErr := os.Stat(dest); statErr == nil {
			log.Info().Err(err).Str("feed", feed.Name).Msg("using cached feed copy")

			domains, parseErr := parseFeedFile(dest)
			if parseErr != nil {
				return nil, fmt.Errorf("download failed (%v) and cached ingest failed: %w", err, parseErr)
			}

			return domains, fmt.Errorf("download failed, used cached copy: %w", err)
		}

		return nil, err
	}

	return parseFeedFile(dest)
}

func (m *Manager) fetchFeed(ctx context.Context, feed Feed, dest string) error {
	tmp, err := os.CreateTemp(m.storageDir, feed.Name+"-*.tmp")
	if err != nil {
		return err
	}

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	requester := httpsling.MustNew(
		httpsling.URL(feed.URL),
		httpsling.Method(http.MethodGet),
		httpsling.WithHTTPClient(m.httpClient),
	)

	resp, _, err := requester.ReceiveTo(ctx, tmp)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedFeedStatus, resp.StatusCode)
	}

	if err := tmp.Sync(); err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), dest)
}

// parseFeedFile returns the distinct domains found in a downloaded feed
func parseFeedFile(path string) ([]string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck

	seen := make(map[string]struct{})
	var domains []string

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		d := parseDomainIndicator(scanner.Text())
		if d == "" {
			continue
		}

		if _, ok := seen[d]; ok {
			continue
		}

		seen[d] = struct{}{}
		domains = append(domains, d)
	}

	return domains, scanner.Err()
}
