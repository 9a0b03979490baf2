// Package plan implements the mutable plan graph: a directed acyclic
// graph of conversation steps instantiated from intent-keyed templates
// and rewritten in place as the conversation evolves.
package plan

import (
	"errors"
	"fmt"

	"assistant/pkg/logx"
	"assistant/pkg/proto"
)

var (
	// ErrNodeNotFound indicates a referenced node is not in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode indicates a node ID is already present.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrCycle indicates the graph contains a cycle.
	ErrCycle = errors.New("plan graph contains a cycle")
)

// Node is a single step in a plan.
type Node struct {
	ID              string          `json:"id" yaml:"id"`
	Kind            proto.NodeKind  `json:"kind" yaml:"kind"`
	Description     string          `json:"description,omitempty" yaml:"description,omitempty"`
	RequiredInputs  []string        `json:"required_inputs,omitempty" yaml:"required_inputs,omitempty"`
	ProducedOutputs []string        `json:"produced_outputs,omitempty" yaml:"produced_outputs,omitempty"`
	AgentType       proto.AgentType `json:"agent_type,omitempty" yaml:"agent_type,omitempty"` // only for NodeKindAgent
}

// Edge is a directed, condition-labeled connection between two nodes.
// Conditions are opaque labels; the engine only attaches its own
// well-known labels when it rewrites topology.
type Edge struct {
	From      string `json:"from" yaml:"from"`
	To        string `json:"to" yaml:"to"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Graph is a mutable plan. It is not safe for concurrent mutation; the
// orchestrator owns one graph per conversation and mutates it between
// turns only.
type Graph struct {
	TemplateID string

	nodes map[string]*Node
	order []string // node IDs in declaration order, cycle fallback uses this
	edges []Edge

	logger *logx.Logger
}

// NewGraph creates an empty plan graph.
func NewGraph(templateID string) *Graph {
	return &Graph{
		TemplateID: templateID,
		nodes:      make(map[string]*Node),
		logger:     logx.NewLogger("plan"),
	}
}

// AddNode adds a node to the graph. The node ID must be unique.
func (g *Graph) AddNode(node *Node) error {
	if node == nil || node.ID == "" {
		return fmt.Errorf("add node: missing node ID")
	}
	if _, exists := g.nodes[node.ID]; exists {
		return fmt.Errorf("add node %q: %w", node.ID, ErrDuplicateNode)
	}
	g.nodes[node.ID] = node
	g.order = append(g.order, node.ID)
	return nil
}

// AddEdge connects two existing nodes with a condition label.
func (g *Graph) AddEdge(from, to, condition string) error {
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("add edge from %q: %w", from, ErrNodeNotFound)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("add edge to %q: %w", to, ErrNodeNotFound)
	}
	g.edges = append(g.edges, Edge{From: from, To: to, Condition: condition})
	return nil
}

// Node returns the node with the given ID, or nil when absent.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// StartNodeID is the conventional entry-point node ID.
const StartNodeID = "start"

// StartNode returns the entry point of the plan: the node named "start"
// when present, otherwise the first declared node without incoming edges,
// otherwise the first declared node. The fallbacks are a documented
// degenerate case for hand-built graphs, not an error; only an empty
// graph fails.
func (g *Graph) StartNode() (*Node, error) {
	if n, ok := g.nodes[StartNodeID]; ok {
		return n, nil
	}
	incoming := make(map[string]int, len(g.nodes))
	for _, e := range g.edges {
		incoming[e.To]++
	}
	for _, id := range g.order {
		if incoming[id] == 0 {
			return g.nodes[id], nil
		}
	}
	if len(g.order) > 0 {
		return g.nodes[g.order[0]], nil
	}
	return nil, fmt.Errorf("start node of empty graph: %w", ErrNodeNotFound)
}

// NextNodes returns the direct successors of a node, in edge order.
func (g *Graph) NextNodes(id string) ([]*Node, error) {
	if _, ok := g.nodes[id]; !ok {
		return nil, fmt.Errorf("next nodes of %q: %w", id, ErrNodeNotFound)
	}
	var next []*Node
	for _, e := range g.edges {
		if e.From == id {
			next = append(next, g.nodes[e.To])
		}
	}
	return next, nil
}

// Edges returns a copy of the graph's edges.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// InsertBefore splices a new node in front of target. Incoming edges of
// target are redirected to the new node with their condition labels
// preserved; the new node connects to target with ConditionAlways.
func (g *Graph) InsertBefore(targetID string, node *Node) error {
	if _, ok := g.nodes[targetID]; !ok {
		return fmt.Errorf("insert before %q: %w", targetID, ErrNodeNotFound)
	}
	if err := g.AddNode(node); err != nil {
		return err
	}
	for i := range g.edges {
		if g.edges[i].To == targetID {
			g.edges[i].To = node.ID
		}
	}
	g.edges = append(g.edges, Edge{From: node.ID, To: targetID, Condition: proto.ConditionAlways})
	return nil
}

// InsertAfter splices a new node behind source. Outgoing edges of source
// are redirected to originate from the new node with their condition
// labels preserved; source connects to the new node with ConditionAlways.
func (g *Graph) InsertAfter(sourceID string, node *Node) error {
	if _, ok := g.nodes[sourceID]; !ok {
		return fmt.Errorf("insert after %q: %w", sourceID, ErrNodeNotFound)
	}
	if err := g.AddNode(node); err != nil {
		return err
	}
	for i := range g.edges {
		if g.edges[i].From == sourceID {
			g.edges[i].From = node.ID
		}
	}
	g.edges = append(g.edges, Edge{From: sourceID, To: node.ID, Condition: proto.ConditionAlways})
	return nil
}

// Remove deletes a node and reconnects each predecessor to each successor
// with a ConditionBypass edge. Returns false when the node was absent;
// removal of a missing node is not an error.
func (g *Graph) Remove(id string) bool {
	if _, ok := g.nodes[id]; !ok {
		return false
	}

	var preds, succs []string
	kept := g.edges[:0]
	for _, e := range g.edges {
		switch {
		case e.To == id:
			preds = append(preds, e.From)
		case e.From == id:
			succs = append(succs, e.To)
		default:
			kept = append(kept, e)
		}
	}
	g.edges = kept

	for _, p := range preds {
		for _, s := range succs {
			g.edges = append(g.edges, Edge{From: p, To: s, Condition: proto.ConditionBypass})
		}
	}

	delete(g.nodes, id)
	for i, nid := range g.order {
		if nid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return true
}

// AddParallelBranch chains branch nodes between two existing nodes: from
// connects to the first branch node and each branch node to the next with
// ConditionBranch; the last branch node connects to to with
// ConditionMerge. Returns the inserted node IDs in order.
func (g *Graph) AddParallelBranch(fromID, toID string, nodes []*Node) ([]string, error) {
	if _, ok := g.nodes[fromID]; !ok {
		return nil, fmt.Errorf("parallel branch from %q: %w", fromID, ErrNodeNotFound)
	}
	if _, ok := g.nodes[toID]; !ok {
		return nil, fmt.Errorf("parallel branch to %q: %w", toID, ErrNodeNotFound)
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
		ids = append(ids, node.ID)
	}

	prev := fromID
	for _, id := range ids {
		g.edges = append(g.edges, Edge{From: prev, To: id, Condition: proto.ConditionBranch})
		prev = id
	}
	g.edges = append(g.edges, Edge{From: prev, To: toID, Condition: proto.ConditionMerge})
	return ids, nil
}

// IsValidPath reports whether the sequence of node IDs is walkable: every
// node exists and every consecutive pair is connected by an edge.
func (g *Graph) IsValidPath(path []string) bool {
	if len(path) == 0 {
		return false
	}
	for _, id := range path {
		if _, ok := g.nodes[id]; !ok {
			return false
		}
	}
	for i := 0; i < len(path)-1; i++ {
		if !g.hasEdge(path[i], path[i+1]) {
			return false
		}
	}
	return true
}

func (g *Graph) hasEdge(from, to string) bool {
	for _, e := range g.edges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// ExecutionOrder returns a topological ordering of the node IDs. When the
// graph contains a cycle the declaration order is returned instead and a
// graph-integrity warning is logged; execution still proceeds.
func (g *Graph) ExecutionOrder() []string {
	order, err := g.topoSort()
	if err != nil {
		g.logger.Warn("graph integrity: %v; falling back to declaration order for plan %q", err, g.TemplateID)
		fallback := make([]string, len(g.order))
		copy(fallback, g.order)
		return fallback
	}
	return order
}

func (g *Graph) topoSort() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for _, id := range g.order {
		indegree[id] = 0
	}
	for _, e := range g.edges {
		indegree[e.To]++
	}

	// Kahn's algorithm, seeded in declaration order for deterministic output.
	var queue []string
	for _, id := range g.order {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)
		for _, e := range g.edges {
			if e.From != id {
				continue
			}
			indegree[e.To]--
			if indegree[e.To] == 0 {
				queue = append(queue, e.To)
			}
		}
	}

	if len(sorted) != len(g.nodes) {
		return nil, ErrCycle
	}
	return sorted, nil
}

// Validate checks referential integrity and acyclicity. Construction from
// a template calls this and logs violations without failing, so legacy
// templates keep working; callers wanting strictness check the error.
func (g *Graph) Validate() error {
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return fmt.Errorf("edge %q -> %q: %w", e.From, e.To, ErrNodeNotFound)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return fmt.Errorf("edge %q -> %q: %w", e.From, e.To, ErrNodeNotFound)
		}
	}
	if _, err := g.topoSort(); err != nil {
		return err
	}
	return nil
}

// Snapshot is a serializable structural dump of a graph.
type Snapshot struct {
	TemplateID string  `json:"template_id"`
	Nodes      []*Node `json:"nodes"`
	Edges      []Edge  `json:"edges"`
}

// Snapshot returns the full structure of the graph for persistence,
// debugging, and external inspection. Nodes appear in declaration order.
func (g *Graph) Snapshot() *Snapshot {
	snap := &Snapshot{
		TemplateID: g.TemplateID,
		Nodes:      make([]*Node, 0, len(g.nodes)),
		Edges:      g.Edges(),
	}
	for _, id := range g.order {
		snap.Nodes = append(snap.Nodes, g.nodes[id])
	}
	return snap
}
