package checkpoint

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "checkpoint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAddDiscoveredIgnoresKnownVideos(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	added, err := store.AddDiscovered(ctx, []Video{
		{ID: "a", URL: "https://www.youtube.com/watch?v=a", Title: "A"},
		{ID: "b", URL: "https://www.youtube.com/watch?v=b", Title: "B"},
		{ID: ""},
	})
	require.NoError(t, err)
	require.Equal(t, 2, added)

	added, err = store.AddDiscovered(ctx, []Video{
		{ID: "b", URL: "https://www.youtube.com/watch?v=b", Title: "B renamed"},
		{ID: "c", URL: "https://www.youtube.com/watch?v=c"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, added)

	v, ok, err := store.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "B", v.Title)
	require.False(t, v.DiscoveredAt.IsZero())
}

func TestPendingOrdersByPublicationAndSkipsPublished(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.AddDiscovered(ctx, []Video{
		{ID: "late", URL: "u-late", PublishedAt: base.Add(2 * time.Hour)},
		{ID: "early", URL: "u-early", PublishedAt: base.Add(500 * time.Millisecond)},
		{ID: "done", URL: "u-done", PublishedAt: base},
	})
	require.NoError(t, err)
	require.NoError(t, store.MarkPublished(ctx, Video{ID: "done", URL: "u-done"}, "page-1"))

	pending, err := store.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "early", pending[0].ID)
	require.Equal(t, "late", pending[1].ID)
	require.True(t, pending[0].PublishedAt.Equal(base.Add(500*time.Millisecond)))

	limited, err := store.Pending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestMarkPublishedInsertsUnknownVideo(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	published, err := store.IsPublished(ctx, "fresh")
	require.NoError(t, err)
	require.False(t, published)

	require.NoError(t, store.MarkPublished(ctx, Video{ID: "fresh", URL: "u", Title: "Fresh"}, "page-9"))

	published, err = store.IsPublished(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, published)

	v, ok, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "page-9", v.DocumentID)
	require.True(t, v.Published())
	require.False(t, v.ProcessedAt.IsZero())

	require.Error(t, store.MarkPublished(ctx, Video{ID: "x"}, ""))
}

func TestChannelCheckpoint(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, ok, err := store.ChannelCheckedAt(ctx, "UC1")
	require.NoError(t, err)
	require.False(t, ok)

	at := time.Date(2026, 10, 18, 8, 30, 0, 0, time.UTC)
	require.NoError(t, store.SetChannelChecked(ctx, "UC1", "Channel", at))
	require.NoError(t, store.SetChannelChecked(ctx, "UC1", "Channel", at.Add(time.Hour)))

	got, ok, err := store.ChannelCheckedAt(ctx, "UC1")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Equal(at.Add(time.Hour)))
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	ctx := context.Background()
	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.MarkPublished(ctx, Video{ID: "keep", URL: "u"}, "page"))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	published, err := reopened.IsPublished(ctx, "keep")
	require.NoError(t, err)
	require.True(t, published)
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	ctx := context.Background()
	store, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = store.db.ExecContext(ctx, "UPDATE schema_version SET version = 99")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = Open(ctx, path)
	require.True(t, errors.Is(err, ErrSchemaMismatch), "got %v", err)
}

func TestAcquireLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "tubenote.lock")
	first, err := AcquireLock(path)
	require.NoError(t, err)

	_, err = AcquireLock(path)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Release())
	second, err := AcquireLock(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}
