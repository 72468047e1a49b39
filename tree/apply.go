package tree

// Patch is a partial update for a single node. Nil fields are left
// untouched; non-nil fields replace the node's value wholesale.
type Patch struct {
	Loading    *bool
	Label      *Label
	Children   *[]*Node
	Literature *[]Paper
}

// Bool returns a *bool for use in a Patch literal.
func Bool(v bool) *bool { return &v }

// Children returns a children pointer for use in a Patch literal.
func Children(nodes []*Node) *[]*Node { return &nodes }

// Literature returns a literature pointer for use in a Patch literal.
func Literature(papers []Paper) *[]Paper { return &papers }

// Apply returns a new forest in which the node with the given id has the
// patch merged in. Only the matched node and its ancestors are recreated;
// every node off the root-to-target path keeps its identity, so consumers
// can detect the change by pointer comparison. If no node has the id, the
// forest is returned as-is, same top-level identity.
func Apply(forest Forest, targetID string, patch Patch) Forest {
	for i, root := range forest {
		updated, ok := applyNode(root, targetID, patch)
		if !ok {
			continue
		}
		next := make(Forest, len(forest))
		copy(next, forest)
		next[i] = updated
		return next
	}
	return forest
}

// applyNode walks depth-first below n. On a match it returns a rebuilt copy
// of n with only the changed child slot replaced; siblings are shared.
func applyNode(n *Node, targetID string, patch Patch) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	if n.ID == targetID {
		return patch.merge(n), true
	}
	for i, child := range n.Children {
		updated, ok := applyNode(child, targetID, patch)
		if !ok {
			continue
		}
		clone := *n
		children := make([]*Node, len(n.Children))
		copy(children, n.Children)
		children[i] = updated
		clone.Children = children
		return &clone, true
	}
	return nil, false
}

func (p Patch) merge(n *Node) *Node {
	clone := *n
	if p.Loading != nil {
		clone.Loading = *p.Loading
	}
	if p.Label != nil {
		clone.Label = *p.Label
	}
	if p.Children != nil {
		clone.Children = *p.Children
	}
	if p.Literature != nil {
		clone.Literature = *p.Literature
	}
	return &clone
}
