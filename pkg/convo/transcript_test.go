package convo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant/pkg/proto"
)

func TestTranscriptFlow(t *testing.T) {
	tr := NewTranscript("")
	require.NotEmpty(t, tr.SessionID)

	welcome := tr.Start()
	assert.Contains(t, welcome, "What can I help you with today?")

	id := tr.AddUserMessage("I want to buy a laptop")
	assert.True(t, strings.HasPrefix(id, "msg_"))

	tr.AddSystemResponse("Sure, what's your budget?", "clarification")
	tr.AddAgentInteraction("BUY", "success")

	summary := tr.Summarize()
	assert.Equal(t, 4, summary.TotalMessages)
	assert.Equal(t, 1, summary.UserMessages)
	assert.Equal(t, 2, summary.SystemMessages)
	assert.Equal(t, 1, summary.AgentInteractions)
}

func TestRecentWindowSkipsInternalAgentEntries(t *testing.T) {
	tr := NewTranscript("s1")
	tr.AddUserMessage("hello")
	tr.AddAgentInteraction("ORDER", "success")
	tr.AddSystemResponse("Your order shipped.", "response")

	window := tr.RecentWindow(6)
	require.Len(t, window, 2)
	assert.Equal(t, RoleUser, window[0].Role)
	assert.Equal(t, RoleSystem, window[1].Role)

	// Window limits apply before filtering.
	window = tr.RecentWindow(1)
	require.Len(t, window, 1)
	assert.Equal(t, RoleSystem, window[0].Role)
}

func TestClarificationMessages(t *testing.T) {
	tr := NewTranscript("s1")

	msg := tr.RequestClarification([]string{"budget"})
	assert.Equal(t, "What's your budget range for this purchase?", msg)
	assert.Equal(t, TranscriptWaiting, tr.State)

	msg = tr.RequestClarification([]string{"category", "budget"})
	assert.Contains(t, msg, "I need a bit more information:")
	assert.Contains(t, msg, "What type of product are you looking for?")

	msg = tr.RequestClarification([]string{"unknown_key"})
	assert.Equal(t, "I need more information about: unknown_key", msg)

	msg = tr.RequestClarification([]string{"a", "b", "c", "d"})
	assert.Contains(t, msg, "more details to help you better")
}

func TestEndReasons(t *testing.T) {
	tests := []struct {
		reason   EndReason
		fragment string
	}{
		{EndCompleted, "complete your request"},
		{EndUserExit, "Have a great day"},
		{EndError, "encountered an issue"},
		{EndTimeout, "timed out"},
	}
	for _, tc := range tests {
		tr := NewTranscript("s1")
		msg := tr.End(tc.reason)
		assert.Contains(t, msg, tc.fragment, "reason %s", tc.reason)
		assert.Equal(t, TranscriptCompleted, tr.State)
	}
}

func TestGoalLifecycle(t *testing.T) {
	g := NewGoal("help user buy a laptop", CategoryForIntent(proto.IntentBuy))
	assert.Equal(t, GoalDiscovery, g.Category)
	assert.Equal(t, GoalActive, g.Status)
	assert.NotEmpty(t, g.SuccessCriteria)

	g.UpdateProgress(0.5)
	assert.InDelta(t, 0.5, g.ProgressScore, 0.0001)
	assert.Equal(t, GoalActive, g.Status)

	g.UpdateProgress(1.7) // clamped
	assert.InDelta(t, 1.0, g.ProgressScore, 0.0001)
	assert.Equal(t, GoalAchieved, g.Status)
}

func TestGoalCategories(t *testing.T) {
	assert.Equal(t, GoalDiscovery, CategoryForIntent(proto.IntentRecommend))
	assert.Equal(t, GoalOrder, CategoryForIntent(proto.IntentOrder))
	assert.Equal(t, GoalReturn, CategoryForIntent(proto.IntentReturn))
	assert.Equal(t, GoalGeneral, CategoryForIntent(proto.IntentUnknown))
}
