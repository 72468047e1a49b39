// Package store defines the session snapshot format and the interface for
// snapshot archival backends. Snapshots are a read-only export of session
// state; saving or loading one never mutates a live session.
package store

import (
	"context"
	"time"

	"github.com/smallnest/topictree/netgraph"
	"github.com/smallnest/topictree/tree"
)

// Snapshot is a point-in-time export of a session: the keyword network, the
// forest of keyword trees, and the collected papers.
type Snapshot struct {
	ID         string                `json:"id"`
	Network    *netgraph.Network     `json:"network"`
	Trees      tree.Forest           `json:"trees"`
	Collection []tree.CollectedPaper `json:"collection"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// SnapshotStore is the interface for snapshot persistence backends.
type SnapshotStore interface {
	// Save stores a snapshot, overwriting any snapshot with the same ID.
	Save(ctx context.Context, snapshot *Snapshot) error

	// Load retrieves a snapshot by ID.
	Load(ctx context.Context, id string) (*Snapshot, error)

	// List returns all stored snapshots, oldest first.
	List(ctx context.Context) ([]*Snapshot, error)

	// Delete removes a snapshot.
	Delete(ctx context.Context, id string) error
}
