// Package orch implements the turn-based conversation orchestrator: a
// state machine that records user messages, runs the extractor, decides
// the plan, executes it through the agent gateway, and synthesizes the
// next user-visible reply. One orchestrator instance exclusively owns
// one session's context, plan, and execution state; the loop is
// single-threaded by design.
package orch

import (
	"context"
	"errors"
	"time"

	"assistant/pkg/convo"
	"assistant/pkg/eventlog"
	"assistant/pkg/extractor"
	"assistant/pkg/gateway"
	"assistant/pkg/logx"
	"assistant/pkg/persistence"
	"assistant/pkg/plan"
	"assistant/pkg/proto"
	"assistant/pkg/state"
)

// ErrSessionExpired indicates the session deadline or turn ceiling was
// reached.
var ErrSessionExpired = errors.New("session expired")

// maxTransitionHistory bounds the recorded transition ring.
const maxTransitionHistory = 50

const apologyMessage = "I apologize, but I encountered an issue processing your request. " +
	"Could you please try again?"

// Transition is one recorded state machine move.
type Transition struct {
	From proto.State `json:"from"`
	To   proto.State `json:"to"`
	At   time.Time   `json:"at"`
}

// TurnResult is the outcome of processing one user message.
type TurnResult struct {
	Message   string      // user-visible reply
	Status    proto.State // status reached during the turn
	Done      bool        // the session is eligible to end
	EndReason convo.EndReason
}

// Options wires an orchestrator's collaborators. Templates, Invoker,
// and Extractor are required; the rest are optional.
type Options struct {
	Templates plan.TemplateProvider
	Invoker   *gateway.Invoker
	Extractor extractor.Extractor
	Events    *eventlog.Writer
	Snapshots *state.Store
	Store     *persistence.SessionStore

	// AgentTimeout overrides the default per-agent-call timeout.
	AgentTimeout time.Duration

	// ResetOnVersionBump clears execution progress when the plan is
	// replaced, giving per-version isolation.
	ResetOnVersionBump bool
}

// Orchestrator drives one conversation session.
type Orchestrator struct {
	opts   Options
	logger *logx.Logger

	status      proto.State
	transitions []Transition

	transcript *convo.Transcript
	context    *convo.Context
	execState  *convo.State
	goal       *convo.Goal

	graph      *plan.Graph
	planIntent proto.Intent

	turnCount int
}

// New creates an orchestrator in READY with a fresh session.
func New(opts Options) *Orchestrator {
	execState := convo.NewState()
	execState.ResetOnVersionBump = opts.ResetOnVersionBump

	return &Orchestrator{
		opts:       opts,
		logger:     logx.NewLogger("orchestrator"),
		status:     proto.StateReady,
		transcript: convo.NewTranscript(""),
		context:    convo.NewContext(),
		execState:  execState,
		planIntent: proto.IntentUnknown,
	}
}

// SessionID returns the session identifier.
func (o *Orchestrator) SessionID() string {
	return o.transcript.SessionID
}

// Status returns the current state machine status.
func (o *Orchestrator) Status() proto.State {
	return o.status
}

// Transitions returns a copy of the recorded transition history.
func (o *Orchestrator) Transitions() []Transition {
	out := make([]Transition, len(o.transitions))
	copy(out, o.transitions)
	return out
}

// Transcript exposes the session transcript.
func (o *Orchestrator) Transcript() *convo.Transcript {
	return o.transcript
}

// Context exposes the session context store.
func (o *Orchestrator) Context() *convo.Context {
	return o.context
}

// Goal returns the session goal, or nil before an intent is recognized.
func (o *Orchestrator) Goal() *convo.Goal {
	return o.goal
}

// TurnCount returns the number of processed turns.
func (o *Orchestrator) TurnCount() int {
	return o.turnCount
}

// Start records and returns the welcome message.
func (o *Orchestrator) Start() string {
	return o.transcript.Start()
}

// transitionTo moves the state machine, recording the move. Invalid
// transitions are logged and refused; the caller keeps the old status.
func (o *Orchestrator) transitionTo(to proto.State) {
	if !proto.CanTransition(o.status, to) {
		o.logger.Warn("refusing invalid transition %s -> %s", o.status, to)
		return
	}
	o.transitions = append(o.transitions, Transition{From: o.status, To: to, At: time.Now().UTC()})
	if len(o.transitions) > maxTransitionHistory {
		o.transitions = o.transitions[len(o.transitions)-maxTransitionHistory:]
	}
	o.logger.Debug("transition %s -> %s", o.status, to)
	o.status = to
}

// forceReady resets the status to READY regardless of the transition
// table. Used only by boundary recovery; every state may return to
// READY, so this records a normal transition when it can.
func (o *Orchestrator) forceReady() {
	if proto.CanTransition(o.status, proto.StateReady) {
		o.transitionTo(proto.StateReady)
		return
	}
	o.status = proto.StateReady
}

// ProcessTurn runs the per-turn algorithm for one user message. Any
// panic or error inside the turn is caught at this boundary, converted
// into an apology, and the orchestrator returns to READY so the session
// stays resumable.
func (o *Orchestrator) ProcessTurn(ctx context.Context, message string) (result *TurnResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("turn failed: %v", r)
			o.forceReady()
			o.transcript.AddSystemResponse(apologyMessage, "error")
			result = &TurnResult{Message: apologyMessage, Status: proto.StateError}
		}
		o.afterTurn(result, start)
	}()

	o.turnCount++
	o.transcript.AddUserMessage(message)
	o.transitionTo(proto.StateAnalyzing)

	extracted, err := o.opts.Extractor.Extract(ctx, message, o.transcript.RecentWindow(6))
	if err != nil {
		o.logger.Error("extraction failed: %v", err)
		o.forceReady()
		o.transcript.AddSystemResponse(apologyMessage, "error")
		return &TurnResult{Message: apologyMessage, Status: proto.StateError}
	}
	o.logger.Debug("extracted intent=%s confidence=%.2f", extracted.Intent, extracted.Confidence)

	o.mergeExtraction(extracted)
	o.decidePlan(extracted)

	if o.graph == nil {
		// No plan could be built; ask for direction.
		o.forceReady()
		msg := o.transcript.RequestClarification(extracted.ClarificationNeeded)
		return &TurnResult{Message: msg, Status: proto.StateReady}
	}

	if missing := o.planBlockers(); len(missing) > 0 {
		// Prerequisites are missing before any node could run.
		o.transitionTo(proto.StateGathering)
		clarify := extracted.ClarificationNeeded
		if len(clarify) == 0 {
			clarify = missing
		}
		msg := o.transcript.RequestClarification(clarify)
		o.transitionTo(proto.StateReady)
		return &TurnResult{Message: msg, Status: proto.StateGathering}
	}

	o.transitionTo(proto.StateExecuting)
	outcome := o.executePlan(ctx)
	o.updateGoalProgress()

	return o.synthesizeReply(outcome)
}

// mergeExtraction folds the extractor result into the context store.
func (o *Orchestrator) mergeExtraction(res *extractor.Result) {
	o.context.MergeFacts(res.Entities.ToMap())
	if len(res.ClarificationNeeded) > 0 {
		o.context.Merge(map[string]any{
			"clarification_needed": res.ClarificationNeeded,
		}, convo.SectionAssumptions)
	}
	if res.Intent != proto.IntentUnknown {
		o.context.Merge(map[string]any{
			"intent":     string(res.Intent),
			"confidence": res.Confidence,
		}, convo.SectionUserIntent)
	}
}

// decidePlan creates a plan when none exists or the recognized intent
// changed. An unchanged intent keeps the existing plan so progress and
// already-answered questions carry over.
func (o *Orchestrator) decidePlan(res *extractor.Result) {
	intent := res.Intent
	switch {
	case o.graph == nil:
	case intent == proto.IntentUnknown:
		return
	case intent == o.planIntent:
		return
	}

	graph, err := plan.NewFromTemplate(o.opts.Templates, intent)
	if err != nil {
		o.logger.Error("failed to build plan for intent %s: %v", intent, err)
		return
	}

	if o.graph != nil {
		o.execState.IncrementPlanVersion()
		o.logger.Info("plan replaced: %s -> %s (version %d)",
			o.planIntent, intent, o.execState.PlanVersion)
	}
	o.graph = graph
	o.planIntent = intent

	if o.goal == nil && intent != proto.IntentUnknown {
		category := convo.CategoryForIntent(intent)
		o.goal = convo.NewGoal("Help the user "+string(intent)+" successfully", category)
	}
}

// planBlockers returns the required inputs of the next pending node
// that cannot be resolved from context. Clarification nodes are never
// blockers: they run precisely to surface what is missing.
func (o *Orchestrator) planBlockers() []string {
	for _, id := range o.graph.ExecutionOrder() {
		if o.execState.IsCompleted(id) {
			continue
		}
		node := o.graph.Node(id)
		if node == nil || node.Kind == proto.NodeKindClarification {
			return nil
		}
		return o.context.MissingKeys(node.RequiredInputs)
	}
	return nil
}

// updateGoalProgress advances the goal score from the completed
// fraction of the plan.
func (o *Orchestrator) updateGoalProgress() {
	if o.goal == nil || o.graph == nil || o.graph.Len() == 0 {
		return
	}
	completed := 0
	for _, id := range o.graph.ExecutionOrder() {
		if o.execState.IsCompleted(id) {
			completed++
		}
	}
	o.goal.UpdateProgress(float64(completed) / float64(o.graph.Len()))
}

// synthesizeReply maps an execution outcome to the next user-visible
// message and status.
func (o *Orchestrator) synthesizeReply(outcome *runOutcome) *TurnResult {
	switch outcome.status {
	case runCompleted:
		o.transitionTo(proto.StateGoalAchieved)
		if o.goal != nil {
			o.goal.MarkAchieved()
		}
		msg := "Great! I've completed your request successfully. Is there anything else you need?"
		o.transcript.AddSystemResponse(msg, "goal_achieved")
		o.transitionTo(proto.StateReady)
		return &TurnResult{
			Message:   msg,
			Status:    proto.StateGoalAchieved,
			Done:      true,
			EndReason: convo.EndCompleted,
		}

	case runFailed:
		if outcome.clarification {
			o.transitionTo(proto.StateGathering)
			msg := o.transcript.RequestClarification(outcome.missing)
			o.transitionTo(proto.StateReady)
			return &TurnResult{Message: msg, Status: proto.StateGathering}
		}
		o.transitionTo(proto.StateReplanning)
		msg := "I ran into a problem completing that. Could you rephrase or try again?"
		o.transcript.AddSystemResponse(msg, "execution_failed")
		o.transitionTo(proto.StateReady)
		return &TurnResult{Message: msg, Status: proto.StateReplanning}

	default:
		msg := "I'm still working on your request. Give me a moment..."
		o.transcript.AddSystemResponse(msg, "processing")
		o.transitionTo(proto.StateReady)
		return &TurnResult{Message: msg, Status: proto.StateExecuting}
	}
}

// afterTurn persists the session snapshot, transcript tail, and turn
// event. Persistence failures are logged, never surfaced to the user.
func (o *Orchestrator) afterTurn(result *TurnResult, start time.Time) {
	if result == nil {
		return
	}

	if o.opts.Snapshots != nil {
		snap := &state.Snapshot{
			SessionID:      o.transcript.SessionID,
			State:          o.status,
			PlanVersion:    o.execState.PlanVersion,
			CurrentNode:    o.execState.CurrentNode,
			CompletedNodes: completedList(o.execState),
			ContextSnapshot: map[string]any{
				"facts":       o.context.Snapshot()["facts"],
				"assumptions": o.context.Snapshot()["assumptions"],
			},
		}
		if err := o.opts.Snapshots.Save(snap); err != nil {
			o.logger.Warn("failed to save session snapshot: %v", err)
		}
	}

	if o.opts.Store != nil {
		rec := &persistence.SessionRecord{
			SessionID:   o.transcript.SessionID,
			State:       o.status,
			Intent:      o.planIntent,
			PlanVersion: o.execState.PlanVersion,
			EndReason:   string(result.EndReason),
		}
		if err := o.opts.Store.UpsertSession(rec); err != nil {
			o.logger.Warn("failed to persist session: %v", err)
		}
		msgs := o.transcript.Messages()
		for i := len(msgs) - 1; i >= 0 && i >= len(msgs)-2; i-- {
			if err := o.opts.Store.RecordMessage(o.transcript.SessionID, msgs[i]); err != nil {
				o.logger.Warn("failed to persist message: %v", err)
				break
			}
		}
		if err := o.opts.Store.SaveContextSnapshot(
			o.transcript.SessionID, o.execState.PlanVersion, o.context.Snapshot()["facts"],
		); err != nil {
			o.logger.Warn("failed to persist context snapshot: %v", err)
		}
	}

	if o.opts.Events != nil {
		ev := &eventlog.Event{
			Kind:       eventlog.KindTurn,
			SessionID:  o.transcript.SessionID,
			Status:     string(result.Status),
			DurationMS: time.Since(start).Milliseconds(),
			Data: map[string]any{
				"turn":         o.turnCount,
				"plan_version": o.execState.PlanVersion,
			},
		}
		if err := o.opts.Events.WriteEvent(ev); err != nil {
			o.logger.Warn("failed to write turn event: %v", err)
		}
	}
}

func completedList(s *convo.State) []string {
	out := make([]string, 0, len(s.CompletedNodes))
	for id := range s.CompletedNodes {
		out = append(out, id)
	}
	return out
}

// End closes the transcript with the reason's closing message and
// returns it.
func (o *Orchestrator) End(reason convo.EndReason) string {
	msg := o.transcript.End(reason)
	o.forceReady()

	if o.opts.Events != nil {
		_ = o.opts.Events.WriteEvent(&eventlog.Event{
			Kind:      eventlog.KindSession,
			SessionID: o.transcript.SessionID,
			Status:    string(reason),
			Data:      map[string]any{"turns": o.turnCount},
		})
	}
	if o.opts.Store != nil {
		_ = o.opts.Store.UpsertSession(&persistence.SessionRecord{
			SessionID:   o.transcript.SessionID,
			State:       o.status,
			Intent:      o.planIntent,
			PlanVersion: o.execState.PlanVersion,
			EndReason:   string(reason),
		})
	}
	return msg
}
