package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"assistant/pkg/eventlog"
	"assistant/pkg/logx"
	"assistant/pkg/proto"
)

// Agent executes one task agent request. Implementations return a
// response even on domain failures; an error return is reserved for
// transport-level problems and is converted to a failure response by the
// invoker.
type Agent interface {
	Execute(ctx context.Context, req *proto.AgentRequest) (*proto.AgentResponse, error)
}

// DefaultTimeout bounds a dispatch when the request does not carry one.
const DefaultTimeout = 30 * time.Second

// InvocationRecord is one entry of the in-memory invocation log.
type InvocationRecord struct {
	Timestamp      time.Time       `json:"timestamp"`
	AgentType      proto.AgentType `json:"agent_type"`
	TraceID        string          `json:"trace_id"`
	RequestSize    int             `json:"request_size"`
	ResponseStatus string          `json:"response_status"`
	ResponseSize   int             `json:"response_size"`
	DurationMS     int64           `json:"duration_ms"`
	Success        bool            `json:"success"`
}

// Stats aggregates the invocation log.
type Stats struct {
	TotalInvocations      int                       `json:"total_invocations"`
	SuccessfulInvocations int                       `json:"successful_invocations"`
	SuccessRate           float64                   `json:"success_rate"`
	AverageDurationMS     float64                   `json:"average_duration_ms"`
	AgentUsage            map[proto.AgentType]int   `json:"agent_usage"`
}

// Invoker validates, dispatches, and logs agent invocations.
type Invoker struct {
	mu     sync.Mutex
	agents map[proto.AgentType]Agent
	log    []InvocationRecord

	events *eventlog.Writer // optional
	logger *logx.Logger
}

// NewInvoker creates a gateway over the given agent implementations.
// The event writer may be nil; invocations are then only logged in memory.
func NewInvoker(agents map[proto.AgentType]Agent, events *eventlog.Writer) *Invoker {
	if agents == nil {
		agents = make(map[proto.AgentType]Agent)
	}
	return &Invoker{
		agents: agents,
		events: events,
		logger: logx.NewLogger("gateway"),
	}
}

// Register adds or replaces the implementation for an agent type.
func (inv *Invoker) Register(agentType proto.AgentType, agent Agent) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.agents[agentType] = agent
}

// InvokeAgent validates the request, dispatches it, validates the
// response, and logs the invocation. It never returns an error and never
// panics: every failure mode becomes a failure response.
func (inv *Invoker) InvokeAgent(ctx context.Context, agentType proto.AgentType, req *proto.AgentRequest) *proto.AgentResponse {
	start := time.Now()

	if errs := validateRequest(agentType, req); len(errs) > 0 {
		resp := proto.NewFailureResponse("Request validation failed: " + strings.Join(errs, ", "))
		resp.SetMetadata("validation_errors", errs)
		inv.record(agentType, req, resp, start)
		return resp
	}

	resp := inv.dispatch(ctx, agentType, req)

	if warnings := validateResponse(agentType, resp); len(warnings) > 0 {
		resp.SetMetadata("validation_warnings", warnings)
	}

	inv.record(agentType, req, resp, start)
	return resp
}

func (inv *Invoker) dispatch(ctx context.Context, agentType proto.AgentType, req *proto.AgentRequest) (resp *proto.AgentResponse) {
	inv.mu.Lock()
	agent, ok := inv.agents[agentType]
	inv.mu.Unlock()
	if !ok {
		return proto.NewFailureResponse(fmt.Sprintf("Unknown agent type: %s", agentType))
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Agents are external code as far as the session is concerned; a
	// panic must degrade to a failure response, never unwind the turn.
	defer func() {
		if r := recover(); r != nil {
			inv.logger.Error("agent %s panicked: %v", agentType, r)
			resp = proto.NewFailureResponse(fmt.Sprintf("Agent invocation error: %v", r))
			resp.SetMetadata("panic", true)
		}
	}()

	result, err := agent.Execute(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return proto.NewFailureResponse(fmt.Sprintf("Agent %s timed out after %s", agentType, timeout))
		}
		return proto.NewFailureResponse(fmt.Sprintf("Agent invocation error: %v", err))
	}
	if result == nil {
		return proto.NewFailureResponse(fmt.Sprintf("Agent %s returned no response", agentType))
	}
	return result
}

func validateRequest(agentType proto.AgentType, req *proto.AgentRequest) []string {
	var errs []string
	if req == nil {
		return []string{"request is nil"}
	}
	if req.TraceID == "" {
		errs = append(errs, "missing trace_id")
	}
	if req.Context == nil {
		errs = append(errs, "context must be a key/value map")
		return errs
	}

	reqs := RequirementsFor(agentType)
	var missing []string
	for _, key := range reqs.RequiredContext {
		if v, ok := req.Context[key]; !ok || v == nil {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		errs = append(errs, "missing required context keys: "+strings.Join(missing, ", "))
	}
	return errs
}

func validateResponse(agentType proto.AgentType, resp *proto.AgentResponse) []string {
	var warnings []string
	if err := proto.ValidateResponseStatus(resp.Status); err != nil {
		warnings = append(warnings, err.Error())
		return warnings
	}
	if resp.Status == proto.StatusFailure && resp.Error == "" {
		warnings = append(warnings, "failure response without error message")
	}
	if resp.Status == proto.StatusSuccess {
		for _, key := range RequirementsFor(agentType).ExpectedOutputs {
			if _, ok := resp.Result[key]; !ok {
				warnings = append(warnings, "Missing expected output: "+key)
			}
		}
	}
	return warnings
}

func (inv *Invoker) record(agentType proto.AgentType, req *proto.AgentRequest, resp *proto.AgentResponse, start time.Time) {
	duration := time.Since(start)
	rec := InvocationRecord{
		Timestamp:      start.UTC(),
		AgentType:      agentType,
		ResponseStatus: string(resp.Status),
		RequestSize:    proto.EncodedSize(req),
		ResponseSize:   proto.EncodedSize(resp),
		DurationMS:     duration.Milliseconds(),
		Success:        resp.Succeeded(),
	}
	if req != nil {
		rec.TraceID = req.TraceID
	}

	inv.mu.Lock()
	inv.log = append(inv.log, rec)
	inv.mu.Unlock()

	invocationsTotal.WithLabelValues(string(agentType), string(resp.Status)).Inc()
	invocationDuration.WithLabelValues(string(agentType)).Observe(duration.Seconds())

	if inv.events != nil {
		ev := &eventlog.Event{
			Kind:       eventlog.KindAgentInvocation,
			TraceID:    rec.TraceID,
			AgentType:  string(agentType),
			Status:     string(resp.Status),
			DurationMS: rec.DurationMS,
			Data: map[string]any{
				"request_size":  rec.RequestSize,
				"response_size": rec.ResponseSize,
			},
		}
		if err := inv.events.WriteEvent(ev); err != nil {
			inv.logger.Warn("failed to write invocation event: %v", err)
		}
	}

	inv.logger.Debug("invoked %s trace=%s status=%s in %dms", agentType, rec.TraceID, resp.Status, rec.DurationMS)
}

// InvocationLog returns a copy of the invocation records.
func (inv *Invoker) InvocationLog() []InvocationRecord {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]InvocationRecord, len(inv.log))
	copy(out, inv.log)
	return out
}

// GetStats aggregates the invocation log.
func (inv *Invoker) GetStats() Stats {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	stats := Stats{
		TotalInvocations: len(inv.log),
		AgentUsage:       make(map[proto.AgentType]int),
	}
	if len(inv.log) == 0 {
		return stats
	}

	var totalDuration int64
	for _, rec := range inv.log {
		if rec.Success {
			stats.SuccessfulInvocations++
		}
		stats.AgentUsage[rec.AgentType]++
		totalDuration += rec.DurationMS
	}
	stats.SuccessRate = float64(stats.SuccessfulInvocations) / float64(stats.TotalInvocations)
	stats.AverageDurationMS = float64(totalDuration) / float64(stats.TotalInvocations)
	return stats
}
