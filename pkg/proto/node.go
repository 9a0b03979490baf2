package proto

import "fmt"

// NodeKind is the closed set of plan node kinds. Every switch over
// NodeKind should be exhaustive over these four values.
type NodeKind string

const (
	// NodeKindSystem is an internal bookkeeping step that always succeeds.
	NodeKindSystem NodeKind = "system"

	// NodeKindClarification gathers information from the user; it succeeds
	// only once its produced outputs are resolvable from context.
	NodeKindClarification NodeKind = "clarification"

	// NodeKindAgent delegates work to a downstream task agent.
	NodeKindAgent NodeKind = "agent"

	// NodeKindTerminal marks the end of a flow.
	NodeKindTerminal NodeKind = "terminal"
)

// ParseNodeKind converts a string to a NodeKind.
func ParseNodeKind(s string) (NodeKind, error) {
	switch NodeKind(s) {
	case NodeKindSystem, NodeKindClarification, NodeKindAgent, NodeKindTerminal:
		return NodeKind(s), nil
	default:
		return "", fmt.Errorf("unknown node kind: %q", s)
	}
}

func (k NodeKind) String() string {
	return string(k)
}

// Well-known edge condition labels. Conditions are opaque strings to the
// graph engine; these are the labels the engine itself attaches when it
// rewrites topology.
const (
	// ConditionAlways labels edges created by node insertion.
	ConditionAlways = "always"

	// ConditionBypass labels reconnection edges created by node removal.
	ConditionBypass = "bypass"

	// ConditionBranch labels the fan-out edges of a parallel branch.
	ConditionBranch = "branch"

	// ConditionMerge labels the final edge of a parallel branch.
	ConditionMerge = "merge"
)
