// Package memory provides an in-memory snapshot store, the default backend
// for sessions that do not need persistence across process restarts.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/smallnest/topictree/store"
)

// MemorySnapshotStore implements store.SnapshotStore with a mutex-guarded map.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*store.Snapshot
}

// NewMemorySnapshotStore creates an empty in-memory snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		snapshots: make(map[string]*store.Snapshot),
	}
}

// Save stores a snapshot, overwriting any snapshot with the same ID.
func (s *MemorySnapshotStore) Save(ctx context.Context, snapshot *store.Snapshot) error {
	if snapshot == nil || snapshot.ID == "" {
		return fmt.Errorf("snapshot must have an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.ID] = snapshot
	return nil
}

// Load retrieves a snapshot by ID.
func (s *MemorySnapshotStore) Load(ctx context.Context, id string) (*store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[id]
	if !ok {
		return nil, fmt.Errorf("snapshot not found: %s", id)
	}
	return snapshot, nil
}

// List returns all stored snapshots, oldest first.
func (s *MemorySnapshotStore) List(ctx context.Context) ([]*store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots := make([]*store.Snapshot, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		snapshots = append(snapshots, snapshot)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

// Delete removes a snapshot. Deleting a missing snapshot is a no-op.
func (s *MemorySnapshotStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, id)
	return nil
}

var _ store.SnapshotStore = (*MemorySnapshotStore)(nil)
