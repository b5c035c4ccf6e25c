package reputation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFeedBody = `# sample feed
0.0.0.0 phish.example.net
127.0.0.1 phish.example.net
https://login.bad-bank.example.org/verify
*.wild.example.com
10.0.0.1
! adblock comment
`

func TestDecodeFeedConfig(t *testing.T) {
	cfg, err := DecodeFeedConfig(strings.NewReader(`{"feeds":[{"name":" phishing ","url":"https://feeds.example.com/list.txt","category":"phishing"}]}`))
	require.NoError(t, err)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "phishing", cfg.Feeds[0].Name)

	_, err = DecodeFeedConfig(strings.NewReader(`{"feeds":[{"name":"missing-url"}]}`))
	require.Error(t, err)
}

func TestHydrate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(testFeedBody))
	}))
	t.Cleanup(server.Close)

	m, err := NewManager(NewMemoryStore(Dataset{}),
		WithFeeds(FeedConfig{Feeds: []Feed{{Name: "sample", URL: server.URL, Category: "phishing"}}}),
		WithStorageDir(t.TempDir()),
	)
	require.NoError(t, err)

	ctx := context.Background()

	before, err := m.Snapshot(ctx)
	require.NoError(t, err)

	summary, err := m.Hydrate(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SuccessfulFeeds)
	assert.Equal(t, 3, summary.TotalDomains)
	assert.False(t, summary.ErrorsEncountered)
	assert.False(t, m.LastHydrated().IsZero())

	after, err := m.Snapshot(ctx)
	require.NoError(t, err)
	assert.Greater(t, after.Version(), before.Version())

	entry, ok := after.Blacklisted("phish.example.net")
	require.True(t, ok)
	assert.Equal(t, "feed:sample", entry.Reason)

	_, ok = after.Blacklisted("login.bad-bank.example.org")
	assert.True(t, ok)

	_, ok = after.Blacklisted("deep.wild.example.com")
	assert.True(t, ok)

	_, ok = before.Blacklisted("phish.example.net")
	assert.False(t, ok)
}

func TestHydrateFallsBackToCachedCopy(t *testing.T) {
	var fail atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		_, _ = w.Write([]byte(testFeedBody))
	}))
	t.Cleanup(server.Close)

	m, err := NewManager(NewMemoryStore(Dataset{}),
		WithFeeds(FeedConfig{Feeds: []Feed{{Name: "sample", URL: server.URL}}}),
		WithStorageDir(t.TempDir()),
	)
	require.NoError(t, err)

	_, err = m.Hydrate(context.Background())
	require.NoError(t, err)

	fail.Store(true)

	summary, err := m.Hydrate(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.ErrorsEncountered)
	assert.Equal(t, 3, summary.TotalDomains)
	require.Len(t, summary.Feeds, 1)
	assert.Contains(t, summary.Feeds[0].Error, "cached copy")
}

func TestHydrateErrors(t *testing.T) {
	t.Run("no feeds", func(t *testing.T) {
		m, err := NewManager(NewMemoryStore(Dataset{}))
		require.NoError(t, err)

		_, err = m.Hydrate(context.Background())
		require.ErrorIs(t, err, ErrNoFeedsDefined)
	})

	t.Run("nothing usable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		t.Cleanup(server.Close)

		m, err := NewManager(NewMemoryStore(Dataset{}),
			WithFeeds(FeedConfig{Feeds: []Feed{{Name: "gone", URL: server.URL}}}),
			WithStorageDir(t.TempDir()),
		)
		require.NoError(t, err)

		_, err = m.Hydrate(context.Background())
		require.ErrorIs(t, err, ErrNoUsableHydrationData)
	})
}
