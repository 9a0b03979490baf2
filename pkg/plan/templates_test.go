package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant/pkg/proto"
)

func TestBuiltinTemplateShapes(t *testing.T) {
	lib := NewLibrary()

	tests := []struct {
		intent proto.Intent
		nodes  int
		edges  int
	}{
		{proto.IntentBuy, 6, 5},
		{proto.IntentOrder, 5, 4},
		{proto.IntentRecommend, 5, 4},
		{proto.IntentReturn, 5, 4},
		{proto.IntentUnknown, 3, 2}, // falls back to DEFAULT
	}

	for _, tc := range tests {
		g, err := NewFromTemplate(lib, tc.intent)
		require.NoError(t, err, "intent %s", tc.intent)
		assert.Equal(t, tc.nodes, g.Len(), "intent %s node count", tc.intent)
		assert.Len(t, g.Edges(), tc.edges, "intent %s edge count", tc.intent)

		start, err := g.StartNode()
		require.NoError(t, err)
		assert.Equal(t, "start", start.ID)
		require.NotNil(t, g.Node("end"))
		assert.Equal(t, proto.NodeKindTerminal, g.Node("end").Kind)

		require.NoError(t, g.Validate(), "builtin template %s must be acyclic", tc.intent)
	}
}

func TestBuyTemplateMainPath(t *testing.T) {
	g, err := NewFromTemplate(NewLibrary(), proto.IntentBuy)
	require.NoError(t, err)

	assert.True(t, g.IsValidPath([]string{
		"start", "gather_requirements", "search_products",
		"select_product", "confirm_purchase", "end",
	}))
}

func TestGraphsFromSameTemplateAreIndependent(t *testing.T) {
	lib := NewLibrary()

	g1, err := NewFromTemplate(lib, proto.IntentBuy)
	require.NoError(t, err)
	g2, err := NewFromTemplate(lib, proto.IntentBuy)
	require.NoError(t, err)

	require.True(t, g1.Remove("select_product"))
	g1.Node("start").Description = "mutated"

	assert.NotNil(t, g2.Node("select_product"))
	assert.Equal(t, "Entry point for buy flow", g2.Node("start").Description)
	assert.Equal(t, 6, g2.Len())
}

func TestRegisterOverridesBuiltin(t *testing.T) {
	lib := NewLibrary()

	custom := &Template{
		ID: string(proto.IntentOrder),
		Nodes: []*Node{
			{ID: "start", Kind: proto.NodeKindSystem},
			{ID: "end", Kind: proto.NodeKindTerminal},
		},
		Edges: []Edge{{From: "start", To: "end", Condition: proto.ConditionAlways}},
	}
	require.NoError(t, lib.Register(custom))

	g, err := NewFromTemplate(lib, proto.IntentOrder)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
}

func TestRegisterRejectsBrokenTemplate(t *testing.T) {
	lib := NewLibrary()

	err := lib.Register(&Template{
		ID:    "BROKEN",
		Nodes: []*Node{{ID: "a", Kind: proto.NodeKindSystem}},
		Edges: []Edge{{From: "a", To: "ghost"}},
	})
	assert.ErrorIs(t, err, ErrNodeNotFound)

	err = lib.Register(&Template{
		ID: "BROKEN",
		Nodes: []*Node{
			{ID: "a", Kind: proto.NodeKindSystem},
			{ID: "a", Kind: proto.NodeKindSystem},
		},
	})
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	yamlTemplate := `id: GIFT
nodes:
  - id: start
    kind: system
  - id: pick_gift
    kind: clarification
    produced_outputs: [gift_idea]
  - id: end
    kind: terminal
edges:
  - from: start
    to: pick_gift
    condition: always
  - from: pick_gift
    to: end
    condition: always
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gift.yaml"), []byte(yamlTemplate), 0o644))

	lib := NewLibrary()
	require.NoError(t, lib.LoadDir(dir))
	assert.Contains(t, lib.IDs(), "GIFT")

	// Missing directory is tolerated.
	require.NoError(t, lib.LoadDir(filepath.Join(dir, "missing")))
}
