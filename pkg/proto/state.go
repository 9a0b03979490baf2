package proto

import (
	"errors"
	"fmt"
)

// State is the conversation orchestrator's processing state. The
// orchestrator is READY between turns; the remaining states describe
// where within a turn the pipeline currently is.
type State string

const (
	StateReady        State = "ready"
	StateAnalyzing    State = "analyzing"
	StateGathering    State = "gathering_specifications"
	StateConfirming   State = "confirming_requirements"
	StateExecuting    State = "executing_agent"
	StateGoalAchieved State = "goal_achieved"
	StateReplanning   State = "re_planning"
	StateError        State = "error"
)

// ErrInvalidTransition indicates a state transition outside the table.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions is the closed transition table. Every in-turn state
// may fall to StateError, and every state may return to StateReady so a
// fresh turn can begin after any outcome.
var validTransitions = map[State][]State{
	StateReady:        {StateAnalyzing, StateError},
	StateAnalyzing:    {StateGathering, StateConfirming, StateExecuting, StateReplanning, StateGoalAchieved, StateReady, StateError},
	StateGathering:    {StateReady, StateExecuting, StateError},
	StateConfirming:   {StateReady, StateExecuting, StateError},
	StateExecuting:    {StateGoalAchieved, StateReplanning, StateGathering, StateReady, StateError},
	StateGoalAchieved: {StateReady, StateError},
	StateReplanning:   {StateAnalyzing, StateReady, StateError},
	StateError:        {StateReady},
}

// ValidateState returns an error for states outside the known set.
func ValidateState(s State) error {
	if _, ok := validTransitions[s]; !ok {
		return fmt.Errorf("unknown state: %q", string(s))
	}
	return nil
}

// CanTransition reports whether moving from one state to another is legal.
// Self-transitions are always allowed.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseState converts a string to a State.
func ParseState(s string) (State, error) {
	state := State(s)
	if err := ValidateState(state); err != nil {
		return "", err
	}
	return state, nil
}

func (s State) String() string {
	return string(s)
}

// Terminal reports whether the state ends the current turn's processing.
func (s State) Terminal() bool {
	return s == StateGoalAchieved || s == StateError
}
