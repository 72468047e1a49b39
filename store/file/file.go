// Package file provides a snapshot store that keeps one JSON file per
// snapshot in a directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/smallnest/topictree/store"
)

// FileSnapshotStore implements store.SnapshotStore on a directory of
// <id>.json files.
type FileSnapshotStore struct {
	mu   sync.Mutex
	path string
}

// NewFileSnapshotStore creates a file-backed snapshot store rooted at path,
// creating the directory if it does not exist.
func NewFileSnapshotStore(path string) (*FileSnapshotStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("unable to create snapshot directory: %w", err)
	}
	return &FileSnapshotStore{path: path}, nil
}

func (s *FileSnapshotStore) filename(id string) string {
	return filepath.Join(s.path, id+".json")
}

// Save stores a snapshot, overwriting any snapshot with the same ID.
func (s *FileSnapshotStore) Save(ctx context.Context, snapshot *store.Snapshot) error {
	if snapshot == nil || snapshot.ID == "" {
		return fmt.Errorf("snapshot must have an ID")
	}
	if strings.ContainsAny(snapshot.ID, `/\`) {
		return fmt.Errorf("invalid snapshot ID: %s", snapshot.ID)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.filename(snapshot.ID), data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return nil
}

// Load retrieves a snapshot by ID.
func (s *FileSnapshotStore) Load(ctx context.Context, id string) (*store.Snapshot, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.filename(id))
	s.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot not found: %s", id)
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snapshot store.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

// List returns all stored snapshots, oldest first.
func (s *FileSnapshotStore) List(ctx context.Context) ([]*store.Snapshot, error) {
	s.mu.Lock()
	entries, err := os.ReadDir(s.path)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var snapshots []*store.Snapshot
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		snapshot, err := s.Load(ctx, id)
		if err != nil {
			// A file deleted between ReadDir and Load is not an error.
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

// Delete removes a snapshot. Deleting a missing snapshot is a no-op.
func (s *FileSnapshotStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.filename(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot file: %w", err)
	}
	return nil
}

var _ store.SnapshotStore = (*FileSnapshotStore)(nil)
