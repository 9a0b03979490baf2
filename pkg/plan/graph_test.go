package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant/pkg/proto"
)

func buildBuyGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewFromTemplate(NewLibrary(), proto.IntentBuy)
	require.NoError(t, err)
	return g
}

func TestStartNode(t *testing.T) {
	g := buildBuyGraph(t)

	start, err := g.StartNode()
	require.NoError(t, err)
	assert.Equal(t, "start", start.ID)
	assert.Equal(t, proto.NodeKindSystem, start.Kind)
}

func TestNextNodes(t *testing.T) {
	g := buildBuyGraph(t)

	next, err := g.NextNodes("start")
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "gather_requirements", next[0].ID)

	_, err = g.NextNodes("no_such_node")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	// Terminal nodes have no successors.
	next, err = g.NextNodes("end")
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestInsertBeforePreservesConditions(t *testing.T) {
	g := buildBuyGraph(t)

	validate := &Node{ID: "validate_user", Kind: proto.NodeKindSystem, Description: "Validate user account"}
	require.NoError(t, g.InsertBefore("search_products", validate))

	// The incoming edge keeps its original condition but now targets the
	// inserted node.
	next, err := g.NextNodes("gather_requirements")
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "validate_user", next[0].ID)

	var redirected, added *Edge
	edges := g.Edges()
	for i := range edges {
		switch {
		case edges[i].From == "gather_requirements" && edges[i].To == "validate_user":
			redirected = &edges[i]
		case edges[i].From == "validate_user" && edges[i].To == "search_products":
			added = &edges[i]
		}
	}
	require.NotNil(t, redirected)
	assert.Equal(t, "has_requirements", redirected.Condition)
	require.NotNil(t, added)
	assert.Equal(t, proto.ConditionAlways, added.Condition)
}

func TestInsertAfterPreservesConditions(t *testing.T) {
	g := buildBuyGraph(t)

	audit := &Node{ID: "log_search", Kind: proto.NodeKindSystem, Description: "Record search for audit"}
	require.NoError(t, g.InsertAfter("search_products", audit))

	next, err := g.NextNodes("search_products")
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "log_search", next[0].ID)

	next, err = g.NextNodes("log_search")
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "select_product", next[0].ID)
}

func TestInsertBeforeReplacesIncomingEdge(t *testing.T) {
	g := buildBuyGraph(t)

	validate := &Node{ID: "validate_user", Kind: proto.NodeKindSystem}
	require.NoError(t, g.InsertBefore("gather_requirements", validate))

	assert.True(t, g.IsValidPath([]string{"start", "validate_user", "gather_requirements"}))
	// The direct edge no longer exists.
	assert.False(t, g.IsValidPath([]string{"start", "gather_requirements"}))
}

func TestStartNodeFallbacks(t *testing.T) {
	// No "start" node: first node without incoming edges wins.
	g := NewGraph("adhoc")
	require.NoError(t, g.AddNode(&Node{ID: "first", Kind: proto.NodeKindSystem}))
	require.NoError(t, g.AddNode(&Node{ID: "second", Kind: proto.NodeKindSystem}))
	require.NoError(t, g.AddEdge("first", "second", proto.ConditionAlways))

	n, err := g.StartNode()
	require.NoError(t, err)
	assert.Equal(t, "first", n.ID)

	// Fully cyclic graph: degenerate fallback to declaration order.
	c := NewGraph("loop")
	require.NoError(t, c.AddNode(&Node{ID: "a", Kind: proto.NodeKindSystem}))
	require.NoError(t, c.AddNode(&Node{ID: "b", Kind: proto.NodeKindSystem}))
	require.NoError(t, c.AddEdge("a", "b", proto.ConditionAlways))
	require.NoError(t, c.AddEdge("b", "a", proto.ConditionAlways))

	n, err = c.StartNode()
	require.NoError(t, err)
	assert.Equal(t, "a", n.ID)

	_, err = NewGraph("empty").StartNode()
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestInsertAnchorMissing(t *testing.T) {
	g := buildBuyGraph(t)

	err := g.InsertBefore("ghost", &Node{ID: "x", Kind: proto.NodeKindSystem})
	assert.ErrorIs(t, err, ErrNodeNotFound)

	err = g.InsertAfter("ghost", &Node{ID: "x", Kind: proto.NodeKindSystem})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestInsertThenRemoveRestoresWalkability(t *testing.T) {
	g := buildBuyGraph(t)
	before := g.Len()

	extra := &Node{ID: "validate_user", Kind: proto.NodeKindSystem}
	require.NoError(t, g.InsertBefore("search_products", extra))
	require.Equal(t, before+1, g.Len())

	require.True(t, g.Remove("validate_user"))
	assert.Equal(t, before, g.Len())

	// The bypass edge reconnects the original neighbors; the template's
	// main path is walkable again.
	assert.True(t, g.IsValidPath([]string{
		"start", "gather_requirements", "search_products",
		"select_product", "confirm_purchase", "end",
	}))
}

func TestRemoveAddsBypassEdges(t *testing.T) {
	g := buildBuyGraph(t)

	require.True(t, g.Remove("select_product"))
	assert.Nil(t, g.Node("select_product"))

	var bypass *Edge
	edges := g.Edges()
	for i := range edges {
		if edges[i].From == "search_products" && edges[i].To == "confirm_purchase" {
			bypass = &edges[i]
		}
	}
	require.NotNil(t, bypass)
	assert.Equal(t, proto.ConditionBypass, bypass.Condition)
}

func TestRemoveMissingNode(t *testing.T) {
	g := buildBuyGraph(t)
	assert.False(t, g.Remove("no_such_node"))
	assert.Equal(t, 6, g.Len())
}

func TestAddParallelBranch(t *testing.T) {
	g := buildBuyGraph(t)

	branches := []*Node{
		{ID: "check_stock", Kind: proto.NodeKindSystem},
		{ID: "check_price", Kind: proto.NodeKindSystem},
	}
	ids, err := g.AddParallelBranch("search_products", "select_product", branches)
	require.NoError(t, err)
	assert.Equal(t, []string{"check_stock", "check_price"}, ids)

	// Branch nodes are chained: from -> n1 -> n2 -> to, with the final
	// edge labeled merge.
	assert.True(t, g.IsValidPath([]string{"search_products", "check_stock", "check_price", "select_product"}))

	var last *Edge
	edges := g.Edges()
	for i := range edges {
		if edges[i].From == "check_price" && edges[i].To == "select_product" {
			last = &edges[i]
		}
	}
	require.NotNil(t, last)
	assert.Equal(t, proto.ConditionMerge, last.Condition)

	var first *Edge
	for i := range edges {
		if edges[i].From == "search_products" && edges[i].To == "check_stock" {
			first = &edges[i]
		}
	}
	require.NotNil(t, first)
	assert.Equal(t, proto.ConditionBranch, first.Condition)
}

func TestAddParallelBranchAnchorsMissing(t *testing.T) {
	g := buildBuyGraph(t)

	_, err := g.AddParallelBranch("ghost", "end", []*Node{{ID: "x", Kind: proto.NodeKindSystem}})
	assert.ErrorIs(t, err, ErrNodeNotFound)

	ids, err := g.AddParallelBranch("start", "end", nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIsValidPath(t *testing.T) {
	g := buildBuyGraph(t)

	assert.True(t, g.IsValidPath([]string{"start", "gather_requirements", "search_products"}))
	assert.True(t, g.IsValidPath([]string{"start"}))
	assert.False(t, g.IsValidPath(nil))
	assert.False(t, g.IsValidPath([]string{"start", "search_products"}))
	assert.False(t, g.IsValidPath([]string{"start", "ghost"}))
}

func TestExecutionOrderRespectsEdges(t *testing.T) {
	g := buildBuyGraph(t)

	order := g.ExecutionOrder()
	require.Len(t, order, g.Len())

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}
	for _, e := range g.Edges() {
		assert.Less(t, position[e.From], position[e.To],
			"edge %s -> %s violates execution order", e.From, e.To)
	}
}

func TestExecutionOrderCycleFallback(t *testing.T) {
	g := NewGraph("cyclic")
	require.NoError(t, g.AddNode(&Node{ID: "a", Kind: proto.NodeKindSystem}))
	require.NoError(t, g.AddNode(&Node{ID: "b", Kind: proto.NodeKindSystem}))
	require.NoError(t, g.AddEdge("a", "b", proto.ConditionAlways))
	require.NoError(t, g.AddEdge("b", "a", proto.ConditionAlways))

	assert.ErrorIs(t, g.Validate(), ErrCycle)

	// Degraded mode: declaration order, every node exactly once.
	order := g.ExecutionOrder()
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestDuplicateNodeRejected(t *testing.T) {
	g := buildBuyGraph(t)
	err := g.AddNode(&Node{ID: "start", Kind: proto.NodeKindSystem})
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestSnapshot(t *testing.T) {
	g := buildBuyGraph(t)

	snap := g.Snapshot()
	assert.Equal(t, string(proto.IntentBuy), snap.TemplateID)
	require.Len(t, snap.Nodes, 6)
	assert.Equal(t, "start", snap.Nodes[0].ID)
	assert.Len(t, snap.Edges, 5)
}
