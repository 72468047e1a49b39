package tree

import (
	"fmt"
	"strings"
)

// Label classifies a keyword by its standing in the literature.
// An empty Label means the model did not classify the keyword.
type Label string

const (
	LabelHot     Label = "hot"
	LabelClassic Label = "classic"
	LabelNiche   Label = "niche"
)

// Valid reports whether l is one of the known labels or empty.
func (l Label) Valid() bool {
	switch l {
	case "", LabelHot, LabelClassic, LabelNiche:
		return true
	}
	return false
}

// Paper is a single literature reference attached to a keyword.
// Title and URL are mandatory; everything else is best-effort model output.
type Paper struct {
	Title     string   `json:"title"`
	Authors   []string `json:"authors,omitempty"`
	Year      int      `json:"year,omitempty"`
	Abstract  string   `json:"abstract,omitempty"`
	Citations int      `json:"citations,omitempty"`
	URL       string   `json:"url"`
}

// CollectedPaper pairs a paper with the keyword it was found under.
type CollectedPaper struct {
	Paper         Paper  `json:"paper"`
	SourceKeyword string `json:"sourceKeyword"`
}

// Node is one keyword in a tree. Nodes are treated as immutable values:
// every update goes through Apply, which recreates the path from the root
// to the changed node and shares everything else.
type Node struct {
	ID         string  `json:"id"`
	Keyword    string  `json:"keyword"`
	Label      Label   `json:"label,omitempty"`
	Children   []*Node `json:"children"`
	Literature []Paper `json:"literature,omitempty"`
	Loading    bool    `json:"-"`
}

// Forest is the ordered collection of root trees, one per searched keyword.
type Forest []*Node

// RootID derives the id of a root node from its keyword and its position
// among the searched keywords. Ids are stable for the lifetime of the node.
func RootID(keyword string, index int) string {
	return fmt.Sprintf("%s-%d", Slug(keyword), index)
}

// ChildID derives a child id from the parent id, the child keyword and the
// sibling index. Parent ids are embedded so ids stay unique across the
// whole forest, not just among siblings.
func ChildID(parentID, keyword string, index int) string {
	return fmt.Sprintf("%s/%s-%d", parentID, Slug(keyword), index)
}

// Slug normalizes a keyword for use inside a node id.
func Slug(keyword string) string {
	s := strings.ToLower(strings.TrimSpace(keyword))
	s = strings.Join(strings.Fields(s), "-")
	return s
}

// Find returns the node with the given id, or nil if the forest has none.
func (f Forest) Find(id string) *Node {
	for _, root := range f {
		if n := findNode(root, id); n != nil {
			return n
		}
	}
	return nil
}

func findNode(n *Node, id string) *Node {
	if n == nil {
		return nil
	}
	if n.ID == id {
		return n
	}
	for _, child := range n.Children {
		if found := findNode(child, id); found != nil {
			return found
		}
	}
	return nil
}

// FindRoot returns the root tree whose keyword matches, or -1.
// Matching is by keyword, not id: a refreshed tree keeps its slot.
func (f Forest) FindRoot(keyword string) int {
	for i, root := range f {
		if root.Keyword == keyword {
			return i
		}
	}
	return -1
}

// Count returns the total number of nodes in the forest.
func (f Forest) Count() int {
	total := 0
	for _, root := range f {
		total += countNodes(root)
	}
	return total
}

func countNodes(n *Node) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, child := range n.Children {
		total += countNodes(child)
	}
	return total
}
