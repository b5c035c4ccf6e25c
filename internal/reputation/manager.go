package reputation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultSnapshotTTL   = 30 * time.Second
	defaultReadTimeout   = 3 * time.Second
	defaultStorageDir    = "data/feeds"
	defaultFeedTimeout   = 90 * time.Second
	defaultFeedWorkers   = 4
	defaultHistoryLimit  = 100
	historyWriteTimeout  = 5 * time.Second
	unavailableListDelim = ", "
)

// Manager serves immutable snapshots of the reputation lists, caching them for
// a short TTL, and applies operator changes through the backing store.
type Manager struct {
	store Store

	mu        sync.RWMutex
	current   *Snapshot
	expires   time.Time
	version   uint64
	gen       uint64
	overlay   map[string]Entry
	hydrated  time.Time
	refreshMu sync.Mutex

	ttl         time.Duration
	readTimeout time.Duration

	feeds       FeedConfig
	httpClient  *http.Client
	storageDir  string
	feedWorkers int

	now func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithSnapshotTTL sets how long a fully readable snapshot is reused.
func WithSnapshotTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithReadTimeout bounds each list read against the store.
func WithReadTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.readTimeout = timeout
		}
	}
}

// WithFeeds configures the remote blacklist feeds used by Hydrate.
func WithFeeds(cfg FeedConfig) Option {
	return func(m *Manager) {
		m.feeds = cfg
	}
}

// WithHTTPClient supplies a custom HTTP client for feed downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithStorageDir overrides the directory used to persist raw feed downloads.
func WithStorageDir(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.storageDir = path
		}
	}
}

// WithFeedWorkers caps the number of feeds downloaded at once.
func WithFeedWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.feedWorkers = n
		}
	}
}

// WithClock overrides the time source, used by tests to expire snapshots.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a manager over the given store.
func NewManager(store Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	m := &Manager{
		store:       store,
		ttl:         defaultSnapshotTTL,
		readTimeout: defaultReadTimeout,
		httpClient:  &http.Client{Timeout: defaultFeedTimeout},
		storageDir:  defaultStorageDir,
		feedWorkers: defaultFeedWorkers,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Snapshot returns the current snapshot. When some lists cannot be read the
// snapshot still covers the readable ones and the error wraps ErrStoreUnavailable.
// Partial snapshots are never cached so the next scan retries the store.
func (m *Manager) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := m.cached(); snap != nil {
		return snap, nil
	}

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	if snap := m.cached(); snap != nil {
		return snap, nil
	}

	m.mu.RLock()
	gen := m.gen
	m.mu.RUnlock()

	data, failed := m.readLists(ctx)

	m.mu.Lock()
	m.version++
	snap := NewSnapshot(m.version, data, failed...).withBlacklistOverlay(m.overlay)

	// a change that landed while the lists were being read invalidates this build
	if len(failed) == 0 && gen == m.gen {
		m.current = snap
		m.expires = m.now().Add(m.ttl)
	}
	m.mu.Unlock()

	if len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, name := range failed {
			names = append(names, string(name))
		}

		return snap, fmt.Errorf("%w: %s", ErrStoreUnavailable, strings.Join(names, unavailableListDelim))
	}

	return snap, nil
}

func (m *Manager) cached() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current != nil && m.now().Before(m.expires) {
		return m.current
	}

	return nil
}

// readLists reads every list concurrently, each under its own timeout
func (m *Manager) readLists(ctx context.Context) (Dataset, []ListName) {
	var (
		data   Dataset
		failed []ListName
		mu     sync.Mutex
		wg     sync.WaitGroup
	)

	for _, name := range Lists {
		wg.Go(func() {
			readCtx, cancel := context.WithTimeout(ctx, m.readTimeout)
			defer cancel()

			entries, err := m.store.ReadList(readCtx, name)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				log.Warn().Err(err).Str("list", string(name)).Msg("reputation list unavailable")
				failed = append(failed, name)

				return
			}

			data.Set(name, entries)
		})
	}

	wg.Wait()

	slices.SortFunc(failed, func(a, b ListName) int {
		return slices.Index(Lists, a) - slices.Index(Lists, b)
	})

	return data, failed
}

// Invalidate drops the cached snapshot so the next call rebuilds it.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.current = nil
	m.gen++
	m.mu.Unlock()
}

// RecordConfigChange appends an audit entry. Failures are logged, never returned,
// so a broken history table cannot block scans or list edits.
func (m *Manager) RecordConfigChange(ctx context.Context, entry HistoryEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if entry.At.IsZero() {
		entry.At = m.now().UTC()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()

	if err := m.store.AppendHistory(writeCtx, entry); err != nil {
		log.Error().Err(err).Str("list", string(entry.List)).Str("action", string(entry.Action)).Str("value", entry.Value).Msg("failed to record reputation change")
	}
}

// Entries returns the stored entries of a list, disabled ones included.
func (m *Manager) Entries(ctx context.Context, list ListName) ([]Entry, error) {
	return m.store.ReadList(ctx, list)
}

// AddEntry creates or replaces an entry and records the change.
func (m *Manager) AddEntry(ctx context.Context, list ListName, entry Entry, actor string) (Entry, error) {
	normalized, err := Normalize(list, entry)
	if err != nil {
		return Entry{}, err
	}

	previous, err := m.store.Upsert(ctx, list, normalized)
	if err != nil {
		return Entry{}, fmt.Errorf("writing %s entry %q: %w", list, normalized.Value, err)
	}

	action := ActionAdd
	if previous != nil {
		action = ActionUpdate
	}

	current := normalized
	m.RecordConfigChange(ctx, HistoryEntry{
		List:     list,
		Action:   action,
		Value:    normalized.Value,
		Previous: previous,
		Current:  &current,
		Actor:    actor,
	})

	m.Invalidate()

	return normalized, nil
}

// RemoveEntry deletes an entry and records the change.
func (m *Manager) RemoveEntry(ctx context.Context, list ListName, value, actor string) error {
	normalized, err := Normalize(list, Entry{Value: value})
	if err != nil {
		return err
	}

	previous, err := m.store.Remove(ctx, list, normalized.Value)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return err
		}

		return fmt.Errorf("removing %s entry %q: %w", list, normalized.Value, err)
	}

	m.RecordConfigChange(ctx, HistoryEntry{
		List:     list,
		Action:   ActionRemove,
		Value:    normalized.Value,
		Previous: previous,
		Actor:    actor,
	})

	m.Invalidate()

	return nil
}

// Import upserts every entry of the dataset and returns how many were written.
func (m *Manager) Import(ctx context.Context, ds Dataset, actor string) (int, error) {
	written := 0

	defer m.Invalidate()

	for _, list := range Lists {
		for _, e := range ds.List(list) {
			normalized, err := Normalize(list, e)
			if err != nil {
				log.Warn().Err(err).Str("list", string(list)).Str("value", e.Value).Msg("skipping invalid import entry")
				continue
			}

			previous, err := m.store.Upsert(ctx, list, normalized)
			if err != nil {
				return written, fmt.Errorf("importing %s entry %q: %w", list, normalized.Value, err)
			}

			current := normalized
			m.RecordConfigChange(ctx, HistoryEntry{
				List:     list,
				Action:   ActionImport,
				Value:    normalized.Value,
				Previous: previous,
				Current:  &current,
				Actor:    actor,
			})

			written++
		}
	}

	return written, nil
}

// Export returns every stored list.
func (m *Manager) Export(ctx context.Context) (Dataset, error) {
	var ds Dataset

	for _, list := range Lists {
		entries, err := m.store.ReadList(ctx, list)
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, list, err)
		}

		ds.Set(list, entries)
	}

	return ds, nil
}

// History returns recent audit entries, newest first.
func (m *Manager) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	return m.store.History(ctx, limit)
}

// LastHydrated reports when feeds were last merged, zero if never.
func (m *Manager) LastHydrated() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.hydrated
}

// Close closes the backing store.
func (m *Manager) Close() error {
	return m.store.Close()
}
