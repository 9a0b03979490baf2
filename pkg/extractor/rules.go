package extractor

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"assistant/pkg/convo"
	"assistant/pkg/proto"
)

// RuleBased is a deterministic keyword extractor. It is the offline
// default and the fallback when an LLM-backed extractor fails.
type RuleBased struct{}

// NewRuleBased creates the rule-based extractor.
func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

var (
	budgetRe     = regexp.MustCompile(`\$\s?(\d+(?:,\d{3})*(?:\.\d+)?)`)
	orderTokenRe = regexp.MustCompile(`(?i)\b(ord[_-]?\d+\w*)\b`)
	orderWordRe  = regexp.MustCompile(`(?i)\border\s*(?:id|number)?\s*[:#]?\s*(\d+\w*)\b`)
	quantityRe   = regexp.MustCompile(`(?i)\b(\d+)\s+(?:items?|units?|pieces?)\b`)
)

var intentKeywords = []struct {
	intent   proto.Intent
	keywords []string
}{
	{proto.IntentReturn, []string{"return", "refund", "exchange", "send back"}},
	{proto.IntentOrder, []string{"track", "order status", "where is my order", "my order", "shipment", "delivery status"}},
	{proto.IntentRecommend, []string{"recommend", "suggest", "recommendation", "options", "what should i"}},
	{proto.IntentBuy, []string{"buy", "purchase", "shop", "looking for", "want a", "want to get", "need a"}},
}

var categoryKeywords = map[string]string{
	"laptop":     "electronics",
	"phone":      "electronics",
	"tablet":     "electronics",
	"headphones": "electronics",
	"camera":     "electronics",
	"tv":         "electronics",
	"book":       "books",
	"novel":      "books",
	"bike":       "sports",
	"tennis":     "sports",
	"running":    "sports",
}

// Extract classifies the message by keyword tables and captures entities
// with simple patterns. It never returns an error.
func (r *RuleBased) Extract(_ context.Context, message string, _ []convo.Message) (*Result, error) {
	text := strings.ToLower(message)

	result := &Result{
		Intent:     proto.IntentUnknown,
		Confidence: 0.3,
		Reasoning:  "keyword match",
	}

	for _, candidate := range intentKeywords {
		for _, kw := range candidate.keywords {
			if strings.Contains(text, kw) {
				result.Intent = candidate.intent
				result.Confidence = 0.8
				break
			}
		}
		if result.Intent != proto.IntentUnknown {
			break
		}
	}

	for kw, category := range categoryKeywords {
		if strings.Contains(text, kw) {
			result.Entities.Category = category
			result.Entities.Subcategory = kw
			break
		}
	}

	if m := budgetRe.FindStringSubmatch(message); m != nil {
		result.Entities.Budget = "$" + m[1]
	}
	if m := orderTokenRe.FindStringSubmatch(message); m != nil {
		result.Entities.OrderID = strings.ToUpper(m[1])
	} else if m := orderWordRe.FindStringSubmatch(message); m != nil {
		result.Entities.OrderID = strings.ToUpper(m[1])
	}
	if m := quantityRe.FindStringSubmatch(message); m != nil {
		if qty, err := strconv.Atoi(m[1]); err == nil {
			result.Entities.Quantity = qty
		}
	}

	result.ClarificationNeeded = clarificationsFor(result)
	return result, nil
}

// clarificationsFor lists the context keys the flow will need but the
// message did not provide.
func clarificationsFor(result *Result) []string {
	var missing []string
	switch result.Intent {
	case proto.IntentBuy:
		if result.Entities.Category == "" {
			missing = append(missing, "category")
		}
		if result.Entities.Subcategory == "" {
			missing = append(missing, "subcategory")
		}
		if result.Entities.Budget == "" {
			missing = append(missing, "budget")
		}
	case proto.IntentRecommend:
		if result.Entities.Category == "" {
			missing = append(missing, "category")
		}
		if len(result.Entities.Preferences) == 0 {
			missing = append(missing, "preferences")
		}
	case proto.IntentOrder, proto.IntentReturn:
		if result.Entities.OrderID == "" {
			missing = append(missing, "order_id")
		}
	}
	return missing
}
