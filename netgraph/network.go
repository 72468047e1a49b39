package netgraph

// Node is one keyword in the relationship network. The id and the label are
// both the keyword string itself.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Edge is a model-reported relationship between two selected keywords.
// From and To must each match a keyword that was in the request; Label is
// free text describing the relationship and may be empty.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Network is the relationship graph over the currently selected keywords.
type Network struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// FilterEdges drops every edge whose From or To is not an exact member of
// keywords. The model is free to invent keywords; those edges are discarded
// silently rather than treated as an error. Self-edges survive as long as
// the keyword is selected.
func FilterEdges(edges []Edge, keywords []string) []Edge {
	member := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		member[k] = struct{}{}
	}
	filtered := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if _, ok := member[e.From]; !ok {
			continue
		}
		if _, ok := member[e.To]; !ok {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

// Build assembles a Network from the current selection and a raw edge list.
// One node per selected keyword, in selection order; edges are filtered
// against the same selection.
func Build(keywords []string, edges []Edge) *Network {
	nodes := make([]Node, 0, len(keywords))
	for _, k := range keywords {
		nodes = append(nodes, Node{ID: k, Label: k})
	}
	return &Network{
		Nodes: nodes,
		Edges: FilterEdges(edges, keywords),
	}
}
