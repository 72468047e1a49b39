package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/smallnest/topictree/store"
	"github.com/smallnest/topictree/tree"
)

// Snapshot exports the session's forest, network and collection as a
// read-only snapshot. The live session is not touched.
func (o *Orchestrator) Snapshot() *store.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	return &store.Snapshot{
		ID:         uuid.New().String(),
		Network:    o.state.Network,
		Trees:      o.state.Forest,
		Collection: append([]tree.CollectedPaper(nil), o.state.Collected...),
		CreatedAt:  time.Now(),
	}
}

// Restore re-hydrates a session from a snapshot: forest, network and
// collection are taken from the snapshot, the selection is rebuilt from the
// network's nodes, and the mutation budget starts fresh.
func (o *Orchestrator) Restore(snapshot *store.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state.Forest = snapshot.Trees
	o.state.Network = snapshot.Network
	o.state.Collected = snapshot.Collection
	o.state.LiteratureNode = nil
	o.state.Busy = false
	o.state.Progress = ""
	o.state.Err = ""

	var selection []string
	if snapshot.Network != nil {
		for _, n := range snapshot.Network.Nodes {
			selection = append(selection, n.ID)
		}
	}
	o.state.Selection = selection
	o.gate.Reset()
}
