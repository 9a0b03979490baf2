package orch

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"assistant/pkg/convo"
	"assistant/pkg/plan"
	"assistant/pkg/proto"
)

// maxExecutionSteps bounds one turn's plan walk so a malformed plan can
// never loop forever.
const maxExecutionSteps = 20

type runStatus string

const (
	runCompleted runStatus = "completed"
	runFailed    runStatus = "failed"
	runRunning   runStatus = "running"
)

// runOutcome is the aggregate classification of one execution pass.
type runOutcome struct {
	status        runStatus
	clarification bool     // failure attributable to a clarification node
	missing       []string // keys driving the clarification reply
	executed      int
}

// executePlan walks pending nodes in execution order, dispatching each
// according to its kind, until the flow terminates, a node fails, or
// the step bound is hit.
func (o *Orchestrator) executePlan(ctx context.Context) *runOutcome {
	outcome := &runOutcome{status: runRunning}

	for _, id := range o.graph.ExecutionOrder() {
		if outcome.executed >= maxExecutionSteps {
			o.logger.Warn("execution step bound reached at node %q", id)
			break
		}
		if o.execState.IsCompleted(id) {
			continue
		}
		node := o.graph.Node(id)
		if node == nil {
			continue
		}
		o.execState.CurrentNode = id
		outcome.executed++

		switch node.Kind {
		case proto.NodeKindSystem:
			o.execState.MarkCompleted(id)
			o.execState.AddToHistory(convo.EventNodeCompleted, map[string]any{"node": id})

		case proto.NodeKindClarification:
			missing := o.context.MissingKeys(node.ProducedOutputs)
			if len(missing) > 0 {
				o.execState.MarkFailed(id, "missing: "+strings.Join(missing, ", "))
				outcome.status = runFailed
				outcome.clarification = true
				outcome.missing = missing
				return outcome
			}
			o.execState.MarkCompleted(id)
			o.execState.AddToHistory(convo.EventNodeCompleted, map[string]any{"node": id})

		case proto.NodeKindAgent:
			if !o.executeAgentNode(ctx, node) {
				outcome.status = runFailed
				return outcome
			}

		case proto.NodeKindTerminal:
			o.execState.MarkCompleted(id)
			o.execState.AddToHistory(convo.EventNodeCompleted, map[string]any{"node": id})
			outcome.status = runCompleted
			return outcome
		}
	}

	return outcome
}

// executeAgentNode dispatches one agent node through the gateway and
// folds the response back into session state.
func (o *Orchestrator) executeAgentNode(ctx context.Context, node *plan.Node) bool {
	req := proto.NewAgentRequest("trace_"+uuid.NewString()[:8], o.requestContext())
	if o.opts.AgentTimeout > 0 {
		req.Timeout = o.opts.AgentTimeout
	}
	req.Metadata["node_id"] = node.ID
	req.Metadata["session_id"] = o.transcript.SessionID

	o.execState.AddToHistory(convo.EventAgentInvoked, map[string]any{
		"node":       node.ID,
		"agent_type": string(node.AgentType),
		"trace_id":   req.TraceID,
	})

	resp := o.opts.Invoker.InvokeAgent(ctx, node.AgentType, req)
	o.transcript.AddAgentInteraction(string(node.AgentType), string(resp.Status))

	if !resp.Succeeded() {
		o.logger.Warn("agent node %q failed: %s", node.ID, resp.Error)
		o.execState.MarkFailed(node.ID, resp.Error)
		return false
	}

	o.context.MergeFacts(resp.ContextUpdates)
	o.execState.AddArtifact(node.ID+"_result", resp.Result)
	o.execState.MarkCompleted(node.ID)
	o.execState.AddToHistory(convo.EventNodeCompleted, map[string]any{
		"node":     node.ID,
		"trace_id": req.TraceID,
	})
	return true
}

// requestContext flattens the context store into the flat key/value map
// the agent contract expects. Facts win over user intent, which wins
// over assumptions.
func (o *Orchestrator) requestContext() map[string]any {
	merged := make(map[string]any, len(o.context.Facts)+len(o.context.Assumptions)+len(o.context.UserIntent))
	for k, v := range o.context.Assumptions {
		merged[k] = v
	}
	for k, v := range o.context.UserIntent {
		merged[k] = v
	}
	for k, v := range o.context.Facts {
		merged[k] = v
	}
	return merged
}
