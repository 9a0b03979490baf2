// Package gateway provides uniform, validated, logged invocation of
// task agents. Requests are validated against a per-agent-type context
// table before dispatch; responses are validated against the same
// table's expected outputs; every invocation is logged and counted.
package gateway

import "assistant/pkg/proto"

// Requirements declares the context contract of one agent type.
type Requirements struct {
	RequiredContext []string
	OptionalContext []string
	ExpectedOutputs []string
}

// requirementsTable is the static contract lookup, keyed by agent type.
var requirementsTable = map[proto.AgentType]Requirements{
	proto.AgentTypeBuy: {
		RequiredContext: []string{"intent"},
		OptionalContext: []string{"category", "subcategory", "budget", "preferences"},
		ExpectedOutputs: []string{"search_results", "product_options"},
	},
	proto.AgentTypeOrder: {
		RequiredContext: []string{"order_id"},
		OptionalContext: []string{"user_id"},
		ExpectedOutputs: []string{"order_details", "order_status"},
	},
	proto.AgentTypeRecommend: {
		RequiredContext: []string{"category"},
		OptionalContext: []string{"budget", "preferences", "comparison_items"},
		ExpectedOutputs: []string{"recommendations", "reasoning"},
	},
	proto.AgentTypeReturn: {
		RequiredContext: []string{"order_id"},
		OptionalContext: []string{"return_reason", "items"},
		ExpectedOutputs: []string{"return_status", "return_id"},
	},
}

// RequirementsFor returns the context contract for an agent type.
// Unknown types get an empty contract.
func RequirementsFor(agentType proto.AgentType) Requirements {
	return requirementsTable[agentType]
}
