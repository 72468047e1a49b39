// Package collab holds the contracts against the generative-AI collaborator
// and the clients that implement them. Every call has a strict output shape:
// a response the model got wrong structurally is a hard failure, never a
// partial success. Content-level noise (an unknown keyword in a connection,
// a paper without a url) is filtered by the caller instead.
package collab

import (
	"context"

	"github.com/smallnest/topictree/netgraph"
	"github.com/smallnest/topictree/tree"
)

// Keyword is one generated keyword with its optional classification.
type Keyword struct {
	Keyword string     `json:"keyword"`
	Label   tree.Label `json:"label,omitempty"`
}

// TreeResult is the outcome of a tree-generation call: the root keyword as
// the model echoed it, plus its first level of children in generation order.
type TreeResult struct {
	Keyword  string
	Children []Keyword
}

// Collaborator is the external AI service boundary. Implementations must
// return errors for structurally invalid responses and must not retry on
// their own; retry policy belongs to the user.
type Collaborator interface {
	// GenerateTree produces the first level of a keyword tree for a root
	// keyword. A response without a children array is an error, not an
	// empty tree.
	GenerateTree(ctx context.Context, rootKeyword string) (*TreeResult, error)

	// ExpandNode produces child keywords for an existing node's keyword.
	ExpandNode(ctx context.Context, parentKeyword string) ([]Keyword, error)

	// GenerateNetwork produces relationship edges over the given keywords.
	// Callers must post-filter the result against the same keyword list;
	// implementations return the raw edge set.
	GenerateNetwork(ctx context.Context, keywords []string) ([]netgraph.Edge, error)

	// FindLiterature produces literature references for a keyword. Entries
	// without a well-typed title and url are dropped silently.
	FindLiterature(ctx context.Context, keyword string) ([]tree.Paper, error)
}
