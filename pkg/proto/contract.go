package proto

import (
	"encoding/json"
	"fmt"
	"time"
)

// ResponseStatus is the outcome reported by a task agent.
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusFailure ResponseStatus = "failure"
	StatusPartial ResponseStatus = "partial"
)

// ValidateResponseStatus returns an error for statuses outside the contract.
func ValidateResponseStatus(s ResponseStatus) error {
	switch s {
	case StatusSuccess, StatusFailure, StatusPartial:
		return nil
	default:
		return fmt.Errorf("invalid response status: %q", string(s))
	}
}

// AgentRequest is the envelope sent to a task agent.
type AgentRequest struct {
	TraceID    string         `json:"trace_id"`
	Context    map[string]any `json:"context"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Timeout    time.Duration  `json:"timeout,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewAgentRequest creates a request with the default 30s timeout.
func NewAgentRequest(traceID string, context map[string]any) *AgentRequest {
	if context == nil {
		context = make(map[string]any)
	}
	return &AgentRequest{
		TraceID:  traceID,
		Context:  context,
		Timeout:  30 * time.Second,
		Metadata: make(map[string]any),
	}
}

// AgentResponse is the envelope returned by a task agent.
type AgentResponse struct {
	Status         ResponseStatus `json:"status"`
	Result         map[string]any `json:"result,omitempty"`
	ContextUpdates map[string]any `json:"context_updates,omitempty"`
	NextActions    []string       `json:"next_actions,omitempty"`
	Error          string         `json:"error,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NewFailureResponse builds a failure response with the given error text.
func NewFailureResponse(errText string) *AgentResponse {
	return &AgentResponse{
		Status:   StatusFailure,
		Error:    errText,
		Metadata: make(map[string]any),
	}
}

// Succeeded reports whether the response indicates full success.
func (r *AgentResponse) Succeeded() bool {
	return r.Status == StatusSuccess
}

// SetMetadata stores a metadata value, allocating the map on first use.
func (r *AgentResponse) SetMetadata(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

// EncodedSize returns the JSON-encoded byte length, used for invocation logs.
func EncodedSize(v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(data)
}
