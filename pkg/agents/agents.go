// Package agents provides the local task agent implementations that
// back the invocation gateway: product search, order lookup,
// recommendations, and returns. They operate purely on request context,
// which keeps them deterministic and suitable for offline sessions; a
// deployment with real backends swaps them out behind the same
// interface.
package agents

import (
	"context"
	"fmt"

	"assistant/pkg/gateway"
	"assistant/pkg/proto"
)

// DefaultSet returns the full set of local agents keyed by type.
func DefaultSet() map[proto.AgentType]gateway.Agent {
	return map[proto.AgentType]gateway.Agent{
		proto.AgentTypeBuy:       &BuyAgent{},
		proto.AgentTypeOrder:     &OrderAgent{},
		proto.AgentTypeRecommend: &RecommendAgent{},
		proto.AgentTypeReturn:    &ReturnAgent{},
	}
}

func contextString(req *proto.AgentRequest, key string) string {
	if v, ok := req.Context[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// BuyAgent searches the catalog for products matching the accumulated
// requirements.
type BuyAgent struct{}

func (a *BuyAgent) Execute(_ context.Context, req *proto.AgentRequest) (*proto.AgentResponse, error) {
	category := contextString(req, "category")
	subcategory := contextString(req, "subcategory")
	if category == "" || subcategory == "" {
		return proto.NewFailureResponse("Missing category or subcategory for product search"), nil
	}

	return &proto.AgentResponse{
		Status: proto.StatusSuccess,
		Result: map[string]any{
			"search_results": []any{
				map[string]any{"name": fmt.Sprintf("Sample %s", subcategory), "price": "$299"},
				map[string]any{"name": fmt.Sprintf("Premium %s", subcategory), "price": "$599"},
			},
			"product_options": []any{
				fmt.Sprintf("Sample %s", subcategory),
				fmt.Sprintf("Premium %s", subcategory),
			},
			"product_count": 2,
		},
		ContextUpdates: map[string]any{"products_searched": true},
		NextActions:    []string{"select_product"},
	}, nil
}

// OrderAgent looks up an order by ID.
type OrderAgent struct{}

func (a *OrderAgent) Execute(_ context.Context, req *proto.AgentRequest) (*proto.AgentResponse, error) {
	orderID := contextString(req, "order_id")
	if orderID == "" {
		return proto.NewFailureResponse("Order ID required for order lookup"), nil
	}

	return &proto.AgentResponse{
		Status: proto.StatusSuccess,
		Result: map[string]any{
			"order_details": map[string]any{
				"order_id": orderID,
				"status":   "shipped",
				"items":    []any{"Sample Product"},
			},
			"order_status": "shipped",
		},
		ContextUpdates: map[string]any{"order_found": true},
	}, nil
}

// RecommendAgent produces category-scoped recommendations.
type RecommendAgent struct{}

func (a *RecommendAgent) Execute(_ context.Context, req *proto.AgentRequest) (*proto.AgentResponse, error) {
	category := contextString(req, "category")
	if category == "" {
		return proto.NewFailureResponse("Category required for recommendations"), nil
	}

	return &proto.AgentResponse{
		Status: proto.StatusSuccess,
		Result: map[string]any{
			"recommendations": []any{
				map[string]any{"name": fmt.Sprintf("Top %s Choice", category), "rating": 4.8},
				map[string]any{"name": fmt.Sprintf("Budget %s Option", category), "rating": 4.2},
			},
			"reasoning": "Based on popularity and reviews",
		},
		ContextUpdates: map[string]any{"recommendations_generated": true},
	}, nil
}

// ReturnAgent opens a return for an order.
type ReturnAgent struct{}

func (a *ReturnAgent) Execute(_ context.Context, req *proto.AgentRequest) (*proto.AgentResponse, error) {
	orderID := contextString(req, "order_id")
	if orderID == "" {
		return proto.NewFailureResponse("Order ID required for return processing"), nil
	}

	return &proto.AgentResponse{
		Status: proto.StatusSuccess,
		Result: map[string]any{
			"return_id":     fmt.Sprintf("RET_%s_001", orderID),
			"return_status": "approved",
			"refund_amount": "$299",
		},
		ContextUpdates: map[string]any{"return_initiated": true},
	}, nil
}
