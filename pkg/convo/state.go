package convo

import (
	"time"
)

// Event is one entry in the execution history.
type Event struct {
	Timestamp   time.Time      `json:"timestamp"`
	Type        string         `json:"event_type"`
	Data        map[string]any `json:"data,omitempty"`
	PlanVersion int            `json:"plan_version"`
}

// Well-known execution history event types.
const (
	EventNodeCompleted = "node_completed"
	EventNodeFailed    = "node_failed"
	EventPlanModified  = "plan_modified"
	EventAgentInvoked  = "agent_invoked"
)

// State tracks plan execution progress across turns. A node ID is never
// simultaneously completed and failed; MarkCompleted always evicts from
// the failed set.
type State struct {
	CurrentNode        string          `json:"current_node,omitempty"`
	CompletedNodes     map[string]bool `json:"completed_nodes"`
	FailedNodes        map[string]bool `json:"failed_nodes"`
	Artifacts          map[string]any  `json:"artifacts"`
	ExecutionHistory   []Event         `json:"execution_history"`
	PlanVersion        int             `json:"plan_version"`
	ConversationActive bool            `json:"conversation_active"`

	// ResetOnVersionBump clears the completed/failed sets when the plan
	// version is bumped, giving per-version isolation. Off by default:
	// progress persists across plan rewrites.
	ResetOnVersionBump bool `json:"reset_on_version_bump,omitempty"`
}

// NewState creates execution state for plan version 1.
func NewState() *State {
	return &State{
		CompletedNodes:     make(map[string]bool),
		FailedNodes:        make(map[string]bool),
		Artifacts:          make(map[string]any),
		PlanVersion:        1,
		ConversationActive: true,
	}
}

// MarkCompleted records a node as done and unconditionally removes it
// from the failed set, so a previously failed step recovers without a
// manual reset.
func (s *State) MarkCompleted(nodeID string) {
	s.CompletedNodes[nodeID] = true
	delete(s.FailedNodes, nodeID)
}

// MarkFailed records a node failure with its error in the history.
func (s *State) MarkFailed(nodeID, errText string) {
	s.FailedNodes[nodeID] = true
	s.AddToHistory(EventNodeFailed, map[string]any{"node": nodeID, "error": errText})
}

// IsCompleted reports whether the node has completed.
func (s *State) IsCompleted(nodeID string) bool {
	return s.CompletedNodes[nodeID]
}

// AddArtifact stores a result produced by a step for later reference.
func (s *State) AddArtifact(key string, value any) {
	s.Artifacts[key] = value
}

// Artifact returns a stored artifact, or nil.
func (s *State) Artifact(key string) any {
	return s.Artifacts[key]
}

// AddToHistory appends a timestamped event tagged with the current plan
// version.
func (s *State) AddToHistory(eventType string, data map[string]any) {
	s.ExecutionHistory = append(s.ExecutionHistory, Event{
		Timestamp:   time.Now().UTC(),
		Type:        eventType,
		Data:        data,
		PlanVersion: s.PlanVersion,
	})
}

// IncrementPlanVersion bumps the version counter and records it. The
// completed/failed sets are kept unless ResetOnVersionBump is set.
func (s *State) IncrementPlanVersion() {
	s.PlanVersion++
	s.AddToHistory(EventPlanModified, map[string]any{"new_version": s.PlanVersion})
	if s.ResetOnVersionBump {
		s.CompletedNodes = make(map[string]bool)
		s.FailedNodes = make(map[string]bool)
	}
}
