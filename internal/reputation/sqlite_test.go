package reputation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	store, err := OpenSQLite(context.Background(), dsn)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	previous, err := store.Upsert(ctx, ListBrands, Entry{Value: "paypal", Category: "payments", Domains: []string{"paypal.com", "paypal.me"}})
	require.NoError(t, err)
	assert.Nil(t, previous)

	previous, err = store.Upsert(ctx, ListBrands, Entry{Value: "paypal", Category: "fintech", Domains: []string{"paypal.com"}})
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Equal(t, "payments", previous.Category)
	assert.Equal(t, []string{"paypal.com", "paypal.me"}, previous.Domains)

	entries, err := store.ReadList(ctx, ListBrands)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fintech", entries[0].Category)
	assert.Equal(t, []string{"paypal.com"}, entries[0].Domains)
	assert.False(t, entries[0].UpdatedAt.IsZero())

	other, err := store.ReadList(ctx, ListKeywords)
	require.NoError(t, err)
	assert.Empty(t, other)

	removed, err := store.Remove(ctx, ListBrands, "paypal")
	require.NoError(t, err)
	assert.Equal(t, "fintech", removed.Category)

	_, err = store.Remove(ctx, ListBrands, "paypal")
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestSQLiteStoreHistory(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	current := &Entry{Value: "tk", Reason: "abuse"}

	for i := range 3 {
		require.NoError(t, store.AppendHistory(ctx, HistoryEntry{
			ID:      uuid.NewString(),
			List:    ListSuspiciousTLDs,
			Action:  ActionAdd,
			Value:   fmt.Sprintf("v%d", i),
			Current: current,
			Actor:   "tester",
			At:      base.Add(time.Duration(i) * time.Minute),
		}))
	}

	history, err := store.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "v2", history[0].Value)
	assert.Equal(t, "v1", history[1].Value)
	assert.Nil(t, history[0].Previous)
	require.NotNil(t, history[0].Current)
	assert.Equal(t, "abuse", history[0].Current.Reason)
	assert.Equal(t, ListSuspiciousTLDs, history[0].List)
}

func TestSQLiteStoreBacksManager(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, seedIfEmpty(ctx, store, testDataset()))

	m, err := NewManager(store)
	require.NoError(t, err)

	snap, err := m.Snapshot(ctx)
	require.NoError(t, err)

	_, ok := snap.Blacklisted("evil.example.com")
	assert.True(t, ok)
	assert.True(t, snap.BrandOwns("paypal", "www.paypal.me"))

	// a second seed is a no-op once data exists
	_, err = m.AddEntry(ctx, ListKeywords, Entry{Value: "wallet"}, "")
	require.NoError(t, err)
	require.NoError(t, seedIfEmpty(ctx, store, Dataset{Keywords: []Entry{{Value: "other"}}}))

	keywords, err := m.Entries(ctx, ListKeywords)
	require.NoError(t, err)
	assert.Len(t, keywords, 3)
}
