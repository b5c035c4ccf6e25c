package reputation

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// Store is the persistence boundary for reputation lists and their change history.
// Each list is read independently so one failing collection does not hide the others.
type Store interface {
	// ReadList returns every entry of a list, disabled ones included
	ReadList(ctx context.Context, name ListName) ([]Entry, error)
	// Upsert writes an entry and returns the value it replaced, if any
	Upsert(ctx context.Context, name ListName, entry Entry) (*Entry, error)
	// Remove deletes an entry and returns it; ErrEntryNotFound when absent
	Remove(ctx context.Context, name ListName, value string) (*Entry, error)
	// AppendHistory records an audit entry
	AppendHistory(ctx context.Context, entry HistoryEntry) error
	// History returns the most recent audit entries, newest first
	History(ctx context.Context, limit int) ([]HistoryEntry, error)
	// Close releases backend resources
	Close() error
}

// MemoryStore keeps lists in process memory. It backs the default
// configuration, seeded from the bundled dataset or a seed file.
type MemoryStore struct {
	mu      sync.RWMutex
	lists   map[ListName]map[string]Entry
	history []HistoryEntry
}

// NewMemoryStore creates an in-memory store populated with the dataset.
func NewMemoryStore(seed Dataset) *MemoryStore {
	s := &MemoryStore{
		lists: make(map[ListName]map[string]Entry, len(Lists)),
	}

	now := time.Now().UTC()

	for _, name := range Lists {
		s.lists[name] = make(map[string]Entry)

		for _, e := range seed.List(name) {
			normalized, err := Normalize(name, e)
			if err != nil {
				continue
			}

			if normalized.UpdatedAt.IsZero() {
				normalized.UpdatedAt = now
			}

			s.lists[name][normalized.Value] = normalized
		}
	}

	return s
}

// ReadList returns every entry of a list sorted by value.
func (s *MemoryStore) ReadList(ctx context.Context, name ListName) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.lists[name]
	if !ok {
		return nil, ErrUnknownList
	}

	out := make([]Entry, 0, len(list))
	for _, e := range list {
		e.Domains = slices.Clone(e.Domains)
		out = append(out, e)
	}

	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Value, b.Value) })

	return out, nil
}

// Upsert writes an entry and returns the previous value.
func (s *MemoryStore) Upsert(ctx context.Context, name ListName, entry Entry) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.lists[name]
	if !ok {
		return nil, ErrUnknownList
	}

	var previous *Entry
	if existing, found := list[entry.Value]; found {
		previous = &existing
	}

	entry.Domains = slices.Clone(entry.Domains)
	entry.UpdatedAt = time.Now().UTC()
	list[entry.Value] = entry

	return previous, nil
}

// Remove deletes an entry.
func (s *MemoryStore) Remove(ctx context.Context, name ListName, value string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.lists[name]
	if !ok {
		return nil, ErrUnknownList
	}

	existing, found := list[value]
	if !found {
		return nil, ErrEntryNotFound
	}

	delete(list, value)

	return &existing, nil
}

// AppendHistory records an audit entry.
func (s *MemoryStore) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.history = append(s.history, entry)
	s.mu.Unlock()

	return nil
}

// History returns the newest entries first.
func (s *MemoryStore) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.history)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]HistoryEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.history[i])
	}

	return out, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
