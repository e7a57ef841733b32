package memory

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/groundwater-trends/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(region string, at time.Time) domain.RegionSnapshot {
	return domain.RegionSnapshot{Region: region, Start: "2024-01-01", GeneratedAt: at}
}

func TestSnapshotStore_LoadAndLatest(t *testing.T) {
	store, err := NewSnapshotStore(4)
	require.NoError(t, err)

	t0 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.LoadBatch(context.Background(), []domain.RegionSnapshot{
		snapshot("north", t0),
		snapshot("south", t0),
	}))

	got, ok := store.Latest("north")
	require.True(t, ok)
	assert.Equal(t, t0, got.GeneratedAt)

	_, ok = store.Latest("east")
	assert.False(t, ok)
}

func TestSnapshotStore_ReplacesRegion(t *testing.T) {
	store, err := NewSnapshotStore(4)
	require.NoError(t, err)

	t0 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(15 * time.Minute)
	require.NoError(t, store.LoadBatch(context.Background(), []domain.RegionSnapshot{snapshot("north", t0)}))
	require.NoError(t, store.LoadBatch(context.Background(), []domain.RegionSnapshot{snapshot("north", t1)}))

	got, ok := store.Latest("north")
	require.True(t, ok)
	assert.Equal(t, t1, got.GeneratedAt)
	assert.Equal(t, []string{"north"}, store.Regions())
}

func TestSnapshotStore_EvictsLeastRecentlyUsed(t *testing.T) {
	store, err := NewSnapshotStore(2)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, store.LoadBatch(context.Background(), []domain.RegionSnapshot{
		snapshot("a", now),
		snapshot("b", now),
	}))
	_, _ = store.Latest("a") // promote "a"
	require.NoError(t, store.LoadBatch(context.Background(), []domain.RegionSnapshot{snapshot("c", now)}))

	_, ok := store.Latest("b")
	assert.False(t, ok, "b should have been evicted")
	_, ok = store.Latest("a")
	assert.True(t, ok)
	_, ok = store.Latest("c")
	assert.True(t, ok)
}

func TestNewSnapshotStore_InvalidSize(t *testing.T) {
	_, err := NewSnapshotStore(0)
	require.Error(t, err)
}
