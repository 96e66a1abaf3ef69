package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pennlabs/clubs/internal/database/testutil"
	"github.com/pennlabs/clubs/internal/models"
)

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)

	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "greeting", []byte("hello"), time.Minute))

	value, ok, err := store.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), value)

	// Setting an existing key replaces the value.
	require.NoError(t, store.Set(ctx, "greeting", []byte("goodbye"), time.Minute))
	value, ok, err = store.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("goodbye"), value)

	require.NoError(t, store.Delete(ctx, "greeting"))
	_, ok, err = store.Get(ctx, "greeting")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreExpiry(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)

	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "ephemeral", []byte("x"), time.Minute))
	require.NoError(t, db.Model(&models.CacheEntry{}).
		Where("key = ?", "ephemeral").
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	// Expired entries read as misses and are removed lazily.
	_, ok, err := store.Get(ctx, "ephemeral")
	require.NoError(t, err)
	require.False(t, ok)

	var count int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)

	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stale", []byte("x"), time.Minute))
	require.NoError(t, store.Set(ctx, "fresh", []byte("y"), time.Hour))
	// Entries without an expiry survive the sweep.
	require.NoError(t, store.Set(ctx, "pinned", []byte("z"), 0))

	require.NoError(t, db.Model(&models.CacheEntry{}).
		Where("key = ?", "stale").
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	purged, err := store.PurgeExpired(ctx, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	_, ok, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = store.Get(ctx, "pinned")
	require.NoError(t, err)
	require.True(t, ok)
}
