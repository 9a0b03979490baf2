// Package extractor defines the intent/entity extraction contract and
// provides two implementations: a deterministic rule-based extractor and
// an LLM-backed one. The orchestrator only depends on the interface.
package extractor

import (
	"context"

	"assistant/pkg/convo"
	"assistant/pkg/proto"
)

// Entities are the structured values an extractor pulls from a message.
// Absent values are zero; the orchestrator's context merge skips them.
type Entities struct {
	Category        string         `json:"category,omitempty"`
	Subcategory     string         `json:"subcategory,omitempty"`
	Product         string         `json:"product,omitempty"`
	Specifications  map[string]any `json:"specifications,omitempty"`
	Budget          string         `json:"budget,omitempty"`
	Quantity        int            `json:"quantity,omitempty"`
	OrderID         string         `json:"order_id,omitempty"`
	Urgency         string         `json:"urgency,omitempty"`
	ComparisonItems []string       `json:"comparison_items,omitempty"`
	Preferences     []string       `json:"preferences,omitempty"`
}

// ToMap flattens the entities into context-merge form. Zero values are
// included; the context merge policy drops them.
func (e *Entities) ToMap() map[string]any {
	m := map[string]any{
		"category":    e.Category,
		"subcategory": e.Subcategory,
		"product":     e.Product,
		"budget":      e.Budget,
		"order_id":    e.OrderID,
		"urgency":     e.Urgency,
	}
	if e.Quantity > 0 {
		m["quantity"] = e.Quantity
	}
	if len(e.Specifications) > 0 {
		m[convo.SpecificationsKey] = e.Specifications
	}
	if len(e.ComparisonItems) > 0 {
		m["comparison_items"] = e.ComparisonItems
	}
	if len(e.Preferences) > 0 {
		m["preferences"] = e.Preferences
	}
	return m
}

// Result is one extraction outcome.
type Result struct {
	Intent              proto.Intent `json:"intent"`
	Confidence          float64      `json:"confidence"`
	Entities            Entities     `json:"entities"`
	ClarificationNeeded []string     `json:"clarification_needed,omitempty"`
	Reasoning           string       `json:"reasoning,omitempty"`
}

// Extractor maps a raw user message plus recent history to intent,
// entities, and confidence.
type Extractor interface {
	Extract(ctx context.Context, message string, recentHistory []convo.Message) (*Result, error)
}
