package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant/pkg/proto"
)

func TestBuyAgent(t *testing.T) {
	agent := &BuyAgent{}

	resp, err := agent.Execute(context.Background(), proto.NewAgentRequest("t1", map[string]any{
		"category":    "electronics",
		"subcategory": "laptop",
	}))
	require.NoError(t, err)
	require.Equal(t, proto.StatusSuccess, resp.Status)
	assert.Equal(t, 2, resp.Result["product_count"])
	assert.Equal(t, true, resp.ContextUpdates["products_searched"])
	assert.Equal(t, []string{"select_product"}, resp.NextActions)

	resp, err = agent.Execute(context.Background(), proto.NewAgentRequest("t2", map[string]any{
		"category": "electronics",
	}))
	require.NoError(t, err)
	assert.Equal(t, proto.StatusFailure, resp.Status)
	assert.Contains(t, resp.Error, "subcategory")
}

func TestOrderAgent(t *testing.T) {
	agent := &OrderAgent{}

	resp, err := agent.Execute(context.Background(), proto.NewAgentRequest("t1", map[string]any{
		"order_id": "ORD123",
	}))
	require.NoError(t, err)
	require.Equal(t, proto.StatusSuccess, resp.Status)

	details, ok := resp.Result["order_details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ORD123", details["order_id"])
	assert.Equal(t, "shipped", resp.Result["order_status"])

	resp, err = agent.Execute(context.Background(), proto.NewAgentRequest("t2", map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, proto.StatusFailure, resp.Status)
}

func TestRecommendAgent(t *testing.T) {
	agent := &RecommendAgent{}

	resp, err := agent.Execute(context.Background(), proto.NewAgentRequest("t1", map[string]any{
		"category": "books",
	}))
	require.NoError(t, err)
	require.Equal(t, proto.StatusSuccess, resp.Status)
	assert.NotEmpty(t, resp.Result["recommendations"])
	assert.Equal(t, "Based on popularity and reviews", resp.Result["reasoning"])

	resp, err = agent.Execute(context.Background(), proto.NewAgentRequest("t2", map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, proto.StatusFailure, resp.Status)
}

func TestReturnAgent(t *testing.T) {
	agent := &ReturnAgent{}

	resp, err := agent.Execute(context.Background(), proto.NewAgentRequest("t1", map[string]any{
		"order_id": "ORD9",
	}))
	require.NoError(t, err)
	require.Equal(t, proto.StatusSuccess, resp.Status)
	assert.Equal(t, "RET_ORD9_001", resp.Result["return_id"])
	assert.Equal(t, "approved", resp.Result["return_status"])
}

func TestDefaultSetCoversAllAgentTypes(t *testing.T) {
	set := DefaultSet()
	for _, at := range []proto.AgentType{
		proto.AgentTypeBuy, proto.AgentTypeOrder, proto.AgentTypeRecommend, proto.AgentTypeReturn,
	} {
		assert.Contains(t, set, at)
	}
}
