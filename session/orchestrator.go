// Package session owns the state of one interactive research session: the
// forest of keyword trees, the keyword network, the literature panel cursor,
// selections, collected papers, and the mutation budget. All mutation goes
// through the Orchestrator, which serializes state access behind one lock
// while collaborator calls run outside it, so independent node operations
// can be in flight concurrently. Every resolution patches the then-current
// forest through tree.Apply rather than a snapshot captured at call time.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/smallnest/topictree/collab"
	"github.com/smallnest/topictree/log"
	"github.com/smallnest/topictree/netgraph"
	"github.com/smallnest/topictree/tree"
)

// State is the orchestrator's session state. Accessors return it by value;
// the contained forest and network are immutable, so sharing is safe.
type State struct {
	Forest         tree.Forest
	Network        *netgraph.Network
	LiteratureNode *tree.Node
	Selection      []string
	Collected      []tree.CollectedPaper
	Busy           bool
	Progress       string
	Err            string
}

// Orchestrator drives a session against the AI collaborator.
type Orchestrator struct {
	mu     sync.Mutex
	state  State
	gate   *BudgetGate
	collab collab.Collaborator
	logger log.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMutationLimit overrides DefaultMutationLimit.
func WithMutationLimit(limit int) Option {
	return func(o *Orchestrator) {
		o.gate = NewBudgetGate(limit)
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator over the given collaborator.
func New(c collab.Collaborator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gate:   NewBudgetGate(DefaultMutationLimit),
		collab: c,
		logger: log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns a copy of the current session state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// MutationsUsed returns the consumed mutation budget.
func (o *Orchestrator) MutationsUsed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gate.Used()
}

// MutationLimit returns the session's mutation ceiling.
func (o *Orchestrator) MutationLimit() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gate.Limit()
}

// StartSearch clears the session and builds a fresh forest and network for
// the given keywords. One tree-generation call per keyword plus one network
// call run concurrently; if any fails, nothing is committed. Collected
// papers deliberately survive a new search.
func (o *Orchestrator) StartSearch(ctx context.Context, keywords []string) (err error) {
	keywords = cleanKeywords(keywords)
	if len(keywords) == 0 {
		return o.reject(validationf("enter at least one keyword to search"))
	}

	o.begin("Generating keyword trees...")
	defer func() { o.settle(err) }()

	type treeResult struct {
		index  int
		result *collab.TreeResult
		err    error
	}

	results := make(chan treeResult, len(keywords))
	var wg sync.WaitGroup
	for i, keyword := range keywords {
		wg.Add(1)
		go func(idx int, kw string) {
			defer wg.Done()
			result, callErr := o.collab.GenerateTree(ctx, kw)
			results <- treeResult{index: idx, result: result, err: callErr}
		}(i, keyword)
	}

	// The network request runs alongside the tree requests. A single
	// keyword cannot have inter-keyword edges, so that case short-circuits
	// to an empty edge list without a collaborator call.
	var edges []netgraph.Edge
	var edgesErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		if len(keywords) < 2 {
			return
		}
		edges, edgesErr = o.collab.GenerateNetwork(ctx, keywords)
	}()

	wg.Wait()
	close(results)

	trees := make([]*collab.TreeResult, len(keywords))
	for res := range results {
		if res.err != nil && err == nil {
			err = &CollaboratorError{Op: "search", Err: res.err}
		}
		trees[res.index] = res.result
	}
	if err == nil && edgesErr != nil {
		err = &CollaboratorError{Op: "search", Err: edgesErr}
	}
	if err != nil {
		o.logger.Error("search failed: %v", err)
		return err
	}

	forest := make(tree.Forest, len(keywords))
	for i, keyword := range keywords {
		forest[i] = buildTree(trees[i], keyword, i)
	}
	network := netgraph.Build(keywords, edges)

	o.mu.Lock()
	o.state.Forest = forest
	o.state.Network = network
	o.state.Selection = append([]string(nil), keywords...)
	o.state.LiteratureNode = nil
	o.gate.Reset()
	o.mu.Unlock()

	o.logger.Info("search committed: %d trees, %d edges", len(forest), len(network.Edges))
	return nil
}

// SelectNodeForLiterature moves the literature panel cursor to the node and,
// unless the node already has cached literature or a lookup in flight,
// fetches references for its keyword. If the cursor has moved to another
// node by the time the lookup resolves, the forest still receives the
// result but the visible panel is left alone.
func (o *Orchestrator) SelectNodeForLiterature(ctx context.Context, nodeID string) (err error) {
	o.mu.Lock()
	node := o.state.Forest.Find(nodeID)
	if node == nil {
		o.mu.Unlock()
		return o.reject(validationf("unknown node %q", nodeID))
	}
	o.state.LiteratureNode = node
	if node.Literature != nil || node.Loading {
		// Cached or already being fetched; the cursor move is all there is.
		o.state.Err = ""
		o.mu.Unlock()
		return nil
	}
	o.state.Forest = tree.Apply(o.state.Forest, nodeID, tree.Patch{Loading: tree.Bool(true)})
	o.state.LiteratureNode = o.state.Forest.Find(nodeID)
	keyword := node.Keyword
	o.mu.Unlock()

	o.begin("Looking up literature for \"" + keyword + "\"...")
	defer func() { o.settle(err) }()

	papers, callErr := o.collab.FindLiterature(ctx, keyword)

	o.mu.Lock()
	patch := tree.Patch{Loading: tree.Bool(false)}
	if callErr == nil {
		patch.Literature = tree.Literature(papers)
	}
	o.state.Forest = tree.Apply(o.state.Forest, nodeID, patch)
	// Refresh the panel only if it still points at this node; a stale
	// resolution must not overwrite what the user is looking at now.
	if o.state.LiteratureNode != nil && o.state.LiteratureNode.ID == nodeID {
		o.state.LiteratureNode = o.state.Forest.Find(nodeID)
	}
	o.mu.Unlock()

	if callErr != nil {
		return &CollaboratorError{Op: "literature lookup", Err: callErr}
	}
	return nil
}

// ExpandNode asks the collaborator for subtopics of the node's keyword and
// replaces the node's children with the result. Budget-gated: the check
// happens before any call, and the budget is consumed only on success.
func (o *Orchestrator) ExpandNode(ctx context.Context, nodeID, keyword string) (err error) {
	o.mu.Lock()
	if gateErr := o.gate.Check(); gateErr != nil {
		o.mu.Unlock()
		return o.reject(gateErr)
	}
	node := o.state.Forest.Find(nodeID)
	if node == nil {
		o.mu.Unlock()
		return o.reject(validationf("unknown node %q", nodeID))
	}
	if keyword == "" {
		keyword = node.Keyword
	}
	o.state.Forest = tree.Apply(o.state.Forest, nodeID, tree.Patch{Loading: tree.Bool(true)})
	o.mu.Unlock()

	o.begin("Expanding \"" + keyword + "\"...")
	defer func() { o.settle(err) }()

	expansions, callErr := o.collab.ExpandNode(ctx, keyword)

	o.mu.Lock()
	patch := tree.Patch{Loading: tree.Bool(false)}
	if callErr == nil {
		children := make([]*tree.Node, 0, len(expansions))
		for i, exp := range expansions {
			children = append(children, &tree.Node{
				ID:       tree.ChildID(nodeID, exp.Keyword, i),
				Keyword:  exp.Keyword,
				Label:    exp.Label,
				Children: []*tree.Node{},
			})
		}
		patch.Children = tree.Children(children)
	}
	o.state.Forest = tree.Apply(o.state.Forest, nodeID, patch)
	if callErr == nil {
		o.gate.Consume()
	}
	o.mu.Unlock()

	if callErr != nil {
		return &CollaboratorError{Op: "expand node", Err: callErr}
	}
	return nil
}

// ToggleSelection adds or removes a keyword from the network selection set.
// Selection order is preserved; no collaborator call is made.
func (o *Orchestrator) ToggleSelection(keyword string, selected bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Err = ""

	idx := -1
	for i, k := range o.state.Selection {
		if k == keyword {
			idx = i
			break
		}
	}
	switch {
	case selected && idx < 0:
		o.state.Selection = append(o.state.Selection, keyword)
	case !selected && idx >= 0:
		o.state.Selection = append(o.state.Selection[:idx:idx], o.state.Selection[idx+1:]...)
	}
}

// RegenerateNetwork rebuilds the keyword network from the current selection.
// Requires at least two selected keywords; budget-gated like ExpandNode.
func (o *Orchestrator) RegenerateNetwork(ctx context.Context) (err error) {
	o.mu.Lock()
	if len(o.state.Selection) < 2 {
		o.mu.Unlock()
		return o.reject(validationf("select at least 2 keywords to generate a network"))
	}
	if gateErr := o.gate.Check(); gateErr != nil {
		o.mu.Unlock()
		return o.reject(gateErr)
	}
	requested := append([]string(nil), o.state.Selection...)
	o.mu.Unlock()

	o.begin("Regenerating keyword network...")
	defer func() { o.settle(err) }()

	edges, callErr := o.collab.GenerateNetwork(ctx, requested)
	if callErr != nil {
		return &CollaboratorError{Op: "regenerate network", Err: callErr}
	}

	o.mu.Lock()
	// Nodes come from the selection as it stands now, not as requested;
	// the edge filter against the current selection handles any drift.
	current := append([]string(nil), o.state.Selection...)
	o.state.Network = netgraph.Build(current, edges)
	o.gate.Consume()
	o.mu.Unlock()
	return nil
}

// ToggleCollect adds the paper to the collection, or removes it if a paper
// with the same title is already collected.
func (o *Orchestrator) ToggleCollect(paper tree.Paper, sourceKeyword string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Err = ""

	for i, c := range o.state.Collected {
		if c.Paper.Title == paper.Title {
			o.state.Collected = append(o.state.Collected[:i:i], o.state.Collected[i+1:]...)
			return
		}
	}
	o.state.Collected = append(o.state.Collected, tree.CollectedPaper{
		Paper:         paper,
		SourceKeyword: sourceKeyword,
	})
}

// RefreshTree regenerates the whole tree for one searched keyword, leaving
// every other tree untouched. Not budget-gated.
func (o *Orchestrator) RefreshTree(ctx context.Context, keyword string) (err error) {
	o.mu.Lock()
	if o.state.Forest.FindRoot(keyword) < 0 {
		o.mu.Unlock()
		return o.reject(validationf("no tree for keyword %q", keyword))
	}
	o.mu.Unlock()

	o.begin("Refreshing tree for \"" + keyword + "\"...")
	defer func() { o.settle(err) }()

	result, callErr := o.collab.GenerateTree(ctx, keyword)
	if callErr != nil {
		return &CollaboratorError{Op: "refresh tree", Err: callErr}
	}

	o.mu.Lock()
	// Re-resolve the slot at resolution time; the forest may have changed
	// while the call was in flight.
	if idx := o.state.Forest.FindRoot(keyword); idx >= 0 {
		next := make(tree.Forest, len(o.state.Forest))
		copy(next, o.state.Forest)
		next[idx] = buildTree(result, keyword, idx)
		o.state.Forest = next
		if o.state.LiteratureNode != nil && o.state.Forest.Find(o.state.LiteratureNode.ID) == nil {
			o.state.LiteratureNode = nil
		}
	}
	o.mu.Unlock()
	return nil
}

// begin marks the session busy with a progress message and clears the error
// slot. Called before any collaborator call is issued.
func (o *Orchestrator) begin(progress string) {
	o.mu.Lock()
	o.state.Err = ""
	o.state.Busy = true
	o.state.Progress = progress
	o.mu.Unlock()
	o.logger.Debug("%s", progress)
}

// settle releases the busy flag on every exit path and records the failure,
// if any, in the single error slot.
func (o *Orchestrator) settle(err error) {
	o.mu.Lock()
	o.state.Busy = false
	o.state.Progress = ""
	if err != nil {
		o.state.Err = err.Error()
	}
	o.mu.Unlock()
}

// reject records a validation failure without touching the busy flag;
// the operation never started.
func (o *Orchestrator) reject(err error) error {
	o.mu.Lock()
	o.state.Err = err.Error()
	o.mu.Unlock()
	return err
}

func buildTree(result *collab.TreeResult, keyword string, index int) *tree.Node {
	rootID := tree.RootID(keyword, index)
	children := make([]*tree.Node, 0, len(result.Children))
	for i, kw := range result.Children {
		children = append(children, &tree.Node{
			ID:       tree.ChildID(rootID, kw.Keyword, i),
			Keyword:  kw.Keyword,
			Label:    kw.Label,
			Children: []*tree.Node{},
		})
	}
	return &tree.Node{ID: rootID, Keyword: keyword, Children: children}
}

func cleanKeywords(keywords []string) []string {
	cleaned := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	return cleaned
}
