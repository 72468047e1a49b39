package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/topictree/collab"
	"github.com/smallnest/topictree/netgraph"
	"github.com/smallnest/topictree/store"
	"github.com/smallnest/topictree/tree"
)

// fakeCollab is a scriptable collaborator; unset functions fall back to
// canned successful answers.
type fakeCollab struct {
	treeFn    func(keyword string) (*collab.TreeResult, error)
	expandFn  func(keyword string) ([]collab.Keyword, error)
	networkFn func(keywords []string) ([]netgraph.Edge, error)
	litFn     func(keyword string) ([]tree.Paper, error)

	treeCalls    atomic.Int32
	expandCalls  atomic.Int32
	networkCalls atomic.Int32
	litCalls     atomic.Int32
}

func (f *fakeCollab) GenerateTree(ctx context.Context, keyword string) (*collab.TreeResult, error) {
	f.treeCalls.Add(1)
	if f.treeFn != nil {
		return f.treeFn(keyword)
	}
	return &collab.TreeResult{
		Keyword: keyword,
		Children: []collab.Keyword{
			{Keyword: keyword + " subtopic", Label: tree.LabelHot},
		},
	}, nil
}

func (f *fakeCollab) ExpandNode(ctx context.Context, keyword string) ([]collab.Keyword, error) {
	f.expandCalls.Add(1)
	if f.expandFn != nil {
		return f.expandFn(keyword)
	}
	return []collab.Keyword{{Keyword: keyword + " deeper"}}, nil
}

func (f *fakeCollab) GenerateNetwork(ctx context.Context, keywords []string) ([]netgraph.Edge, error) {
	f.networkCalls.Add(1)
	if f.networkFn != nil {
		return f.networkFn(keywords)
	}
	return nil, nil
}

func (f *fakeCollab) FindLiterature(ctx context.Context, keyword string) ([]tree.Paper, error) {
	f.litCalls.Add(1)
	if f.litFn != nil {
		return f.litFn(keyword)
	}
	return []tree.Paper{{Title: "Paper on " + keyword, URL: "https://example.com/" + tree.Slug(keyword)}}, nil
}

func searched(t *testing.T, fake *fakeCollab, keywords ...string) *Orchestrator {
	t.Helper()
	o := New(fake)
	require.NoError(t, o.StartSearch(context.Background(), keywords))
	return o
}

func TestStartSearchCommitsForestAndNetwork(t *testing.T) {
	fake := &fakeCollab{
		networkFn: func(keywords []string) ([]netgraph.Edge, error) {
			return []netgraph.Edge{
				{From: "A", To: "B", Label: "related"},
				{From: "A", To: "C"},
			}, nil
		},
	}
	o := searched(t, fake, "A", "B")

	state := o.State()
	require.Len(t, state.Forest, 2)
	assert.Equal(t, "a-0", state.Forest[0].ID)
	assert.Equal(t, "b-1", state.Forest[1].ID)
	require.Len(t, state.Forest[0].Children, 1)
	assert.Equal(t, "a-0/a-subtopic-0", state.Forest[0].Children[0].ID)

	require.NotNil(t, state.Network)
	assert.Len(t, state.Network.Nodes, 2)
	// (A,C) drops out: C was not part of the search.
	require.Len(t, state.Network.Edges, 1)
	assert.Equal(t, "B", state.Network.Edges[0].To)

	assert.Equal(t, []string{"A", "B"}, state.Selection)
	assert.False(t, state.Busy)
	assert.Empty(t, state.Progress)
	assert.Empty(t, state.Err)
	assert.Equal(t, 0, o.MutationsUsed())
}

func TestStartSearchEmptyKeywordsIsValidationError(t *testing.T) {
	fake := &fakeCollab{}
	o := New(fake)

	err := o.StartSearch(context.Background(), []string{"  ", ""})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Zero(t, fake.treeCalls.Load())
	assert.Zero(t, fake.networkCalls.Load())
	assert.NotEmpty(t, o.State().Err)
	assert.False(t, o.State().Busy)
}

func TestStartSearchIsAllOrNothing(t *testing.T) {
	fake := &fakeCollab{
		treeFn: func(keyword string) (*collab.TreeResult, error) {
			if keyword == "B" {
				return nil, errors.New("model unavailable")
			}
			return &collab.TreeResult{Keyword: keyword}, nil
		},
	}
	o := New(fake)

	err := o.StartSearch(context.Background(), []string{"A", "B"})

	require.Error(t, err)
	var cErr *CollaboratorError
	assert.ErrorAs(t, err, &cErr)
	state := o.State()
	assert.Nil(t, state.Forest)
	assert.Nil(t, state.Network)
	assert.NotEmpty(t, state.Err)
	assert.False(t, state.Busy)
	assert.Empty(t, state.Progress)
}

func TestStartSearchSingleKeywordSkipsNetworkCall(t *testing.T) {
	fake := &fakeCollab{}
	o := searched(t, fake, "neural networks")

	assert.Zero(t, fake.networkCalls.Load())
	state := o.State()
	require.Len(t, state.Forest, 1)
	require.NotNil(t, state.Network)
	require.Len(t, state.Network.Nodes, 1)
	assert.Equal(t, "neural networks", state.Network.Nodes[0].ID)
	assert.Empty(t, state.Network.Edges)
}

func TestStartSearchPreservesCollectedPapers(t *testing.T) {
	fake := &fakeCollab{}
	o := searched(t, fake, "A")
	o.ToggleCollect(tree.Paper{Title: "Kept", URL: "https://example.com/kept"}, "A")

	require.NoError(t, o.StartSearch(context.Background(), []string{"B"}))

	collected := o.State().Collected
	require.Len(t, collected, 1)
	assert.Equal(t, "Kept", collected[0].Paper.Title)
}

func TestExpandNodeReplacesChildren(t *testing.T) {
	fake := &fakeCollab{
		expandFn: func(keyword string) ([]collab.Keyword, error) {
			return []collab.Keyword{
				{Keyword: "first", Label: tree.LabelNiche},
				{Keyword: "second"},
			}, nil
		},
	}
	o := searched(t, fake, "A")
	child := o.State().Forest[0].Children[0]

	require.NoError(t, o.ExpandNode(context.Background(), child.ID, child.Keyword))

	expanded := o.State().Forest.Find(child.ID)
	require.NotNil(t, expanded)
	assert.False(t, expanded.Loading)
	require.Len(t, expanded.Children, 2)
	assert.Equal(t, child.ID+"/first-0", expanded.Children[0].ID)
	assert.Equal(t, tree.LabelNiche, expanded.Children[0].Label)
	assert.Equal(t, 1, o.MutationsUsed())
}

func TestExpandNodeFailureKeepsChildrenAndBudget(t *testing.T) {
	fake := &fakeCollab{
		expandFn: func(keyword string) ([]collab.Keyword, error) {
			return nil, errors.New("boom")
		},
	}
	o := searched(t, fake, "A")
	root := o.State().Forest[0]
	childID := root.Children[0].ID

	err := o.ExpandNode(context.Background(), root.ID, root.Keyword)

	require.Error(t, err)
	state := o.State()
	node := state.Forest.Find(root.ID)
	assert.False(t, node.Loading)
	// Existing children are untouched by a failed expansion.
	require.Len(t, node.Children, 1)
	assert.Equal(t, childID, node.Children[0].ID)
	assert.Equal(t, 0, o.MutationsUsed())
	assert.NotEmpty(t, state.Err)
	assert.False(t, state.Busy)
}

func TestExpandNodeUnknownID(t *testing.T) {
	fake := &fakeCollab{}
	o := searched(t, fake, "A")

	err := o.ExpandNode(context.Background(), "missing", "")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Zero(t, fake.expandCalls.Load())
}

func TestBudgetGateRejectsAfterLimit(t *testing.T) {
	fake := &fakeCollab{}
	o := New(fake, WithMutationLimit(2))
	require.NoError(t, o.StartSearch(context.Background(), []string{"A"}))
	root := o.State().Forest[0]

	require.NoError(t, o.ExpandNode(context.Background(), root.ID, root.Keyword))
	require.NoError(t, o.ExpandNode(context.Background(), root.ID, root.Keyword))
	callsBefore := fake.expandCalls.Load()

	err := o.ExpandNode(context.Background(), root.ID, root.Keyword)

	var bErr *BudgetExceededError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, 2, bErr.Limit)
	assert.Contains(t, err.Error(), "2")
	// Rejected before any collaborator call.
	assert.Equal(t, callsBefore, fake.expandCalls.Load())
	// The rejected node never went into loading state.
	assert.False(t, o.State().Forest.Find(root.ID).Loading)
}

func TestBudgetResetsOnNewSearch(t *testing.T) {
	fake := &fakeCollab{}
	o := New(fake, WithMutationLimit(1))
	require.NoError(t, o.StartSearch(context.Background(), []string{"A"}))
	root := o.State().Forest[0]
	require.NoError(t, o.ExpandNode(context.Background(), root.ID, root.Keyword))
	require.Error(t, o.ExpandNode(context.Background(), root.ID, root.Keyword))

	require.NoError(t, o.StartSearch(context.Background(), []string{"A"}))

	assert.Equal(t, 0, o.MutationsUsed())
	root = o.State().Forest[0]
	assert.NoError(t, o.ExpandNode(context.Background(), root.ID, root.Keyword))
}

func TestRegenerateNetworkRequiresTwoSelections(t *testing.T) {
	fake := &fakeCollab{}
	o := searched(t, fake, "A")
	callsBefore := fake.networkCalls.Load()

	err := o.RegenerateNetwork(context.Background())

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, callsBefore, fake.networkCalls.Load())
	assert.Equal(t, 0, o.MutationsUsed())
}

func TestRegenerateNetworkFiltersEdges(t *testing.T) {
	fake := &fakeCollab{
		networkFn: func(keywords []string) ([]netgraph.Edge, error) {
			return []netgraph.Edge{
				{From: "A", To: "B"},
				{From: "A", To: "C"},
				{From: "B", To: "B"},
			}, nil
		},
	}
	o := searched(t, fake, "A", "B")

	require.NoError(t, o.RegenerateNetwork(context.Background()))

	net := o.State().Network
	require.NotNil(t, net)
	// Exactly {(A,B), (B,B)}: C is unselected, self-edges are fine.
	require.Len(t, net.Edges, 2)
	assert.Equal(t, netgraph.Edge{From: "A", To: "B"}, net.Edges[0])
	assert.Equal(t, netgraph.Edge{From: "B", To: "B"}, net.Edges[1])
	assert.Equal(t, 1, o.MutationsUsed())
}

func TestToggleSelection(t *testing.T) {
	fake := &fakeCollab{}
	o := searched(t, fake, "A", "B")

	o.ToggleSelection("C", true)
	assert.Equal(t, []string{"A", "B", "C"}, o.State().Selection)

	o.ToggleSelection("B", false)
	assert.Equal(t, []string{"A", "C"}, o.State().Selection)

	// Toggling an absent keyword off is a no-op.
	o.ToggleSelection("Z", false)
	assert.Equal(t, []string{"A", "C"}, o.State().Selection)

	// Toggling a present keyword on is a no-op too.
	o.ToggleSelection("A", true)
	assert.Equal(t, []string{"A", "C"}, o.State().Selection)
}

func TestToggleCollectIsItsOwnInverse(t *testing.T) {
	fake := &fakeCollab{}
	o := New(fake)
	p1 := tree.Paper{Title: "One", URL: "https://example.com/1"}
	p2 := tree.Paper{Title: "Two", URL: "https://example.com/2"}

	o.ToggleCollect(p1, "A")
	o.ToggleCollect(p2, "B")
	o.ToggleCollect(p1, "A")

	collected := o.State().Collected
	require.Len(t, collected, 1)
	assert.Equal(t, "Two", collected[0].Paper.Title)
	assert.Equal(t, "B", collected[0].SourceKeyword)
}

func TestToggleCollectDedupesByTitle(t *testing.T) {
	fake := &fakeCollab{}
	o := New(fake)
	p := tree.Paper{Title: "Same", URL: "https://example.com/a"}
	sameTitle := tree.Paper{Title: "Same", URL: "https://example.com/b"}

	o.ToggleCollect(p, "A")
	o.ToggleCollect(sameTitle, "B")

	assert.Empty(t, o.State().Collected)
}

func TestSelectNodeForLiteratureCachesResult(t *testing.T) {
	fake := &fakeCollab{}
	o := searched(t, fake, "A")
	node := o.State().Forest[0].Children[0]

	require.NoError(t, o.SelectNodeForLiterature(context.Background(), node.ID))

	state := o.State()
	fetched := state.Forest.Find(node.ID)
	require.NotNil(t, fetched.Literature)
	require.Len(t, fetched.Literature, 1)
	assert.False(t, fetched.Loading)
	require.NotNil(t, state.LiteratureNode)
	assert.Equal(t, node.ID, state.LiteratureNode.ID)
	assert.False(t, state.LiteratureNode.Loading)

	// A second select serves from cache without another call.
	calls := fake.litCalls.Load()
	require.NoError(t, o.SelectNodeForLiterature(context.Background(), node.ID))
	assert.Equal(t, calls, fake.litCalls.Load())
}

func TestSelectNodeForLiteratureFailureClearsLoading(t *testing.T) {
	fake := &fakeCollab{
		litFn: func(keyword string) ([]tree.Paper, error) {
			return nil, errors.New("lookup failed")
		},
	}
	o := searched(t, fake, "A")
	node := o.State().Forest[0].Children[0]

	err := o.SelectNodeForLiterature(context.Background(), node.ID)

	require.Error(t, err)
	state := o.State()
	n := state.Forest.Find(node.ID)
	assert.False(t, n.Loading)
	assert.Nil(t, n.Literature)
	// The panel copy has its loading flag cleared too.
	require.NotNil(t, state.LiteratureNode)
	assert.False(t, state.LiteratureNode.Loading)
	assert.NotEmpty(t, state.Err)
	assert.False(t, state.Busy)
}

func TestStaleLiteratureResolutionDoesNotMoveCursor(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	fake := &fakeCollab{}
	fake.litFn = func(keyword string) ([]tree.Paper, error) {
		if keyword == "A subtopic" {
			once.Do(func() { close(entered) })
			<-release
		}
		return []tree.Paper{{Title: "On " + keyword, URL: "https://example.com/" + tree.Slug(keyword)}}, nil
	}
	o := searched(t, fake, "A", "B")
	nodeX := o.State().Forest[0].Children[0] // keyword "A subtopic"
	nodeY := o.State().Forest[1].Children[0] // keyword "B subtopic"

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = o.SelectNodeForLiterature(context.Background(), nodeX.ID)
	}()

	<-entered
	// The user moves on to another node while X's lookup is in flight.
	require.NoError(t, o.SelectNodeForLiterature(context.Background(), nodeY.ID))
	close(release)
	wg.Wait()

	state := o.State()
	// X's late result still lands in the forest for later use...
	x := state.Forest.Find(nodeX.ID)
	require.NotNil(t, x.Literature)
	assert.Equal(t, "On A subtopic", x.Literature[0].Title)
	// ...but the visible panel still shows Y.
	require.NotNil(t, state.LiteratureNode)
	assert.Equal(t, nodeY.ID, state.LiteratureNode.ID)
	assert.Equal(t, "On B subtopic", state.LiteratureNode.Literature[0].Title)
}

func TestRefreshTreeReplacesOnlyMatchingRoot(t *testing.T) {
	fake := &fakeCollab{}
	o := searched(t, fake, "A", "B")
	before := o.State().Forest
	fake.treeFn = func(keyword string) (*collab.TreeResult, error) {
		return &collab.TreeResult{
			Keyword:  keyword,
			Children: []collab.Keyword{{Keyword: "fresh"}},
		}, nil
	}

	require.NoError(t, o.RefreshTree(context.Background(), "B"))

	after := o.State().Forest
	require.Len(t, after, 2)
	// A's tree keeps its identity; B's is rebuilt in place.
	assert.Same(t, before[0], after[0])
	assert.NotSame(t, before[1], after[1])
	assert.Equal(t, "b-1", after[1].ID)
	require.Len(t, after[1].Children, 1)
	assert.Equal(t, "fresh", after[1].Children[0].Keyword)
}

func TestRefreshTreeFailureLeavesForestUntouched(t *testing.T) {
	fake := &fakeCollab{}
	o := searched(t, fake, "A")
	before := o.State().Forest
	fake.treeFn = func(keyword string) (*collab.TreeResult, error) {
		return nil, errors.New("nope")
	}

	err := o.RefreshTree(context.Background(), "A")

	require.Error(t, err)
	after := o.State().Forest
	assert.Same(t, before[0], after[0])
	assert.NotEmpty(t, o.State().Err)
}

func TestRefreshTreeUnknownKeyword(t *testing.T) {
	fake := &fakeCollab{}
	o := searched(t, fake, "A")
	callsBefore := fake.treeCalls.Load()

	err := o.RefreshTree(context.Background(), "Z")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, callsBefore, fake.treeCalls.Load())
}

func TestRefreshTreeIsNotBudgetGated(t *testing.T) {
	fake := &fakeCollab{}
	o := New(fake, WithMutationLimit(0))
	require.NoError(t, o.StartSearch(context.Background(), []string{"A"}))

	assert.NoError(t, o.RefreshTree(context.Background(), "A"))
	assert.Equal(t, 0, o.MutationsUsed())
}

func TestBusyIsSetWhileCallInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	fake := &fakeCollab{
		expandFn: func(keyword string) ([]collab.Keyword, error) {
			close(entered)
			<-release
			return nil, nil
		},
	}
	o := searched(t, fake, "A")
	root := o.State().Forest[0]

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = o.ExpandNode(context.Background(), root.ID, root.Keyword)
	}()

	<-entered
	state := o.State()
	assert.True(t, state.Busy)
	assert.NotEmpty(t, state.Progress)
	close(release)
	wg.Wait()

	state = o.State()
	assert.False(t, state.Busy)
	assert.Empty(t, state.Progress)
}

func TestErrorSlotIsSingleAndClearedOnNextOperation(t *testing.T) {
	fake := &fakeCollab{
		expandFn: func(keyword string) ([]collab.Keyword, error) {
			return nil, errors.New("first failure")
		},
	}
	o := searched(t, fake, "A")
	root := o.State().Forest[0]

	require.Error(t, o.ExpandNode(context.Background(), root.ID, root.Keyword))
	assert.Contains(t, o.State().Err, "first failure")

	fake.expandFn = func(keyword string) ([]collab.Keyword, error) {
		return nil, errors.New("second failure")
	}
	require.Error(t, o.ExpandNode(context.Background(), root.ID, root.Keyword))
	assert.Contains(t, o.State().Err, "second failure")
	assert.NotContains(t, o.State().Err, "first failure")

	fake.expandFn = nil
	require.NoError(t, o.ExpandNode(context.Background(), root.ID, root.Keyword))
	assert.Empty(t, o.State().Err)
}

func TestConcurrentOperationsOnDifferentNodes(t *testing.T) {
	// Expanding under tree A while fetching literature under tree B must
	// not lose either update, whatever the interleaving.
	fake := &fakeCollab{}
	o := searched(t, fake, "A", "B")
	nodeA := o.State().Forest[0].Children[0]
	nodeB := o.State().Forest[1].Children[0]

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = o.ExpandNode(context.Background(), nodeA.ID, nodeA.Keyword)
	}()
	go func() {
		defer wg.Done()
		_ = o.SelectNodeForLiterature(context.Background(), nodeB.ID)
	}()
	wg.Wait()

	state := o.State()
	a := state.Forest.Find(nodeA.ID)
	b := state.Forest.Find(nodeB.ID)
	assert.NotEmpty(t, a.Children)
	assert.NotNil(t, b.Literature)
	assert.False(t, a.Loading)
	assert.False(t, b.Loading)
}

func TestSnapshotRoundTrip(t *testing.T) {
	fake := &fakeCollab{
		networkFn: func(keywords []string) ([]netgraph.Edge, error) {
			return []netgraph.Edge{{From: "A", To: "B", Label: "related"}}, nil
		},
	}
	o := searched(t, fake, "A", "B")
	node := o.State().Forest[0].Children[0]
	require.NoError(t, o.SelectNodeForLiterature(context.Background(), node.ID))
	o.ToggleCollect(tree.Paper{Title: "Collected", URL: "https://example.com/c"}, "A")

	snapshot := o.Snapshot()
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)

	var decoded store.Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))

	restored := New(&fakeCollab{})
	restored.Restore(&decoded)

	want := o.State()
	got := restored.State()
	assert.Equal(t, jsonRoundTrip(t, want.Forest), jsonRoundTrip(t, got.Forest))
	assert.Equal(t, want.Network, got.Network)
	assert.Equal(t, want.Collected, got.Collected)
	assert.Equal(t, want.Selection, got.Selection)
}

// jsonRoundTrip normalizes a value through JSON so transient fields drop out
// of the comparison.
func jsonRoundTrip(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestBudgetGateUnit(t *testing.T) {
	g := NewBudgetGate(2)
	require.NoError(t, g.Check())
	g.Consume()
	require.NoError(t, g.Check())
	g.Consume()

	err := g.Check()
	var bErr *BudgetExceededError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, 2, bErr.Limit)
	assert.Equal(t, 2, g.Used())

	g.Reset()
	assert.NoError(t, g.Check())
	assert.Equal(t, 0, g.Used())
	assert.Equal(t, 2, g.Limit())
}

func TestExpandSharesUnrelatedSubtrees(t *testing.T) {
	fake := &fakeCollab{}
	o := searched(t, fake, "A", "B")
	before := o.State().Forest
	nodeA := before[0].Children[0]

	require.NoError(t, o.ExpandNode(context.Background(), nodeA.ID, nodeA.Keyword))

	after := o.State().Forest
	// Tree B is untouched and keeps pointer identity.
	assert.Same(t, before[1], after[1])
	assert.NotSame(t, before[0], after[0])
}

var _ collab.Collaborator = (*fakeCollab)(nil)

func ExampleOrchestrator_StartSearch() {
	o := New(&fakeCollab{})
	if err := o.StartSearch(context.Background(), []string{"graph theory"}); err != nil {
		fmt.Println("search failed:", err)
		return
	}
	state := o.State()
	fmt.Println(len(state.Forest), "tree(s),", len(state.Network.Nodes), "network node(s)")
	// Output: 1 tree(s), 1 network node(s)
}
