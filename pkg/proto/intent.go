// Package proto defines the shared protocol types of the assistant:
// user intents, plan node kinds, agent contracts, and the orchestrator
// state machine.
package proto

import (
	"fmt"
	"strings"
)

// Intent classifies what the user is trying to accomplish in a turn.
type Intent string

const (
	// IntentBuy represents a purchase flow.
	IntentBuy Intent = "BUY"

	// IntentOrder represents an order status lookup.
	IntentOrder Intent = "ORDER"

	// IntentRecommend represents a recommendation request.
	IntentRecommend Intent = "RECOMMEND"

	// IntentReturn represents a return/refund flow.
	IntentReturn Intent = "RETURN"

	// IntentUnknown is used when no intent could be determined.
	IntentUnknown Intent = "UNKNOWN"
)

// AllIntents lists every recognized intent, excluding IntentUnknown.
func AllIntents() []Intent {
	return []Intent{IntentBuy, IntentOrder, IntentRecommend, IntentReturn}
}

// ParseIntent converts a string to an Intent, case-insensitively.
// Unrecognized values map to IntentUnknown.
func ParseIntent(s string) Intent {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(IntentBuy):
		return IntentBuy
	case string(IntentOrder):
		return IntentOrder
	case string(IntentRecommend):
		return IntentRecommend
	case string(IntentReturn):
		return IntentReturn
	default:
		return IntentUnknown
	}
}

func (i Intent) String() string {
	return string(i)
}

// AgentType identifies a downstream task agent. Agent types mirror
// intents one-to-one today, but the two remain distinct types so a plan
// node can bind to an agent independently of how the turn was classified.
type AgentType string

const (
	AgentTypeBuy       AgentType = "BUY"
	AgentTypeOrder     AgentType = "ORDER"
	AgentTypeRecommend AgentType = "RECOMMEND"
	AgentTypeReturn    AgentType = "RETURN"
)

// ValidateAgentType returns an error for agent types outside the known set.
func ValidateAgentType(t AgentType) error {
	switch t {
	case AgentTypeBuy, AgentTypeOrder, AgentTypeRecommend, AgentTypeReturn:
		return nil
	default:
		return fmt.Errorf("unknown agent type: %q", string(t))
	}
}

// AgentTypeForIntent maps an intent to the agent that serves it.
func AgentTypeForIntent(i Intent) (AgentType, bool) {
	switch i {
	case IntentBuy:
		return AgentTypeBuy, true
	case IntentOrder:
		return AgentTypeOrder, true
	case IntentRecommend:
		return AgentTypeRecommend, true
	case IntentReturn:
		return AgentTypeReturn, true
	default:
		return "", false
	}
}

func (t AgentType) String() string {
	return string(t)
}
