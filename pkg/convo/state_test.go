package convo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkCompletedEvictsFromFailed(t *testing.T) {
	s := NewState()

	s.MarkFailed("search_products", "missing category")
	assert.True(t, s.FailedNodes["search_products"])

	s.MarkCompleted("search_products")
	assert.True(t, s.IsCompleted("search_products"))
	assert.False(t, s.FailedNodes["search_products"])
}

func TestMarkFailedRecordsHistory(t *testing.T) {
	s := NewState()
	s.MarkFailed("fetch_order", "order not found")

	require.Len(t, s.ExecutionHistory, 1)
	ev := s.ExecutionHistory[0]
	assert.Equal(t, EventNodeFailed, ev.Type)
	assert.Equal(t, "fetch_order", ev.Data["node"])
	assert.Equal(t, "order not found", ev.Data["error"])
	assert.Equal(t, 1, ev.PlanVersion)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestIncrementPlanVersionKeepsProgress(t *testing.T) {
	s := NewState()
	s.MarkCompleted("start")
	s.MarkFailed("search_products", "boom")

	s.IncrementPlanVersion()

	assert.Equal(t, 2, s.PlanVersion)
	assert.True(t, s.IsCompleted("start"))
	assert.True(t, s.FailedNodes["search_products"])

	last := s.ExecutionHistory[len(s.ExecutionHistory)-1]
	assert.Equal(t, EventPlanModified, last.Type)
	assert.Equal(t, 2, last.Data["new_version"])
}

func TestIncrementPlanVersionWithReset(t *testing.T) {
	s := NewState()
	s.ResetOnVersionBump = true
	s.MarkCompleted("start")
	s.MarkFailed("search_products", "boom")

	s.IncrementPlanVersion()

	assert.Equal(t, 2, s.PlanVersion)
	assert.Empty(t, s.CompletedNodes)
	assert.Empty(t, s.FailedNodes)
}

func TestArtifacts(t *testing.T) {
	s := NewState()
	s.AddArtifact("search_products_result", map[string]any{"product_count": 2})

	got, ok := s.Artifact("search_products_result").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, got["product_count"])
	assert.Nil(t, s.Artifact("missing"))
}
