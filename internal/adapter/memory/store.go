// Package memory keeps the latest snapshot per region in process memory.
package memory

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/groundwater-trends/internal/domain"
)

// SnapshotStore holds the most recent snapshot for up to maxRegions regions,
// evicting the least recently touched region beyond that. It implements
// pipeline.SnapshotLoader and is safe for concurrent use.
type SnapshotStore struct {
	cache *lru.Cache[string, domain.RegionSnapshot]
}

// NewSnapshotStore creates a store bounded to maxRegions entries.
func NewSnapshotStore(maxRegions int) (*SnapshotStore, error) {
	cache, err := lru.New[string, domain.RegionSnapshot](maxRegions)
	if err != nil {
		return nil, fmt.Errorf("create snapshot cache: %w", err)
	}
	return &SnapshotStore{cache: cache}, nil
}

// LoadBatch replaces the stored snapshot of every region in snapshots.
func (s *SnapshotStore) LoadBatch(_ context.Context, snapshots []domain.RegionSnapshot) error {
	for _, snap := range snapshots {
		s.cache.Add(snap.Region, snap)
	}
	return nil
}

// Latest returns the stored snapshot for region.
func (s *SnapshotStore) Latest(region string) (domain.RegionSnapshot, bool) {
	return s.cache.Get(region)
}

// Regions lists the regions currently held, oldest first.
func (s *SnapshotStore) Regions() []string {
	return s.cache.Keys()
}
