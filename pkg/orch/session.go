package orch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"assistant/pkg/config"
	"assistant/pkg/convo"
	"assistant/pkg/logx"
)

// Session layers the loop-level controls above the per-turn algorithm:
// a hard turn ceiling, a wall-clock deadline checked before accepting
// input, and a closed set of exit phrases that end the loop even
// without a goal-achieved signal.
type Session struct {
	orch        *Orchestrator
	maxTurns    int
	deadline    time.Time
	exitPhrases map[string]bool
	logger      *logx.Logger
}

// NewSession wraps an orchestrator with the configured controls.
func NewSession(o *Orchestrator, cfg config.SessionConfig) *Session {
	phrases := make(map[string]bool, len(cfg.ExitPhrases))
	for _, p := range cfg.ExitPhrases {
		phrases[strings.ToLower(strings.TrimSpace(p))] = true
	}
	return &Session{
		orch:        o,
		maxTurns:    cfg.MaxTurns,
		deadline:    time.Now().Add(cfg.Timeout),
		exitPhrases: phrases,
		logger:      logx.NewLogger("session"),
	}
}

// Orchestrator returns the wrapped orchestrator.
func (s *Session) Orchestrator() *Orchestrator {
	return s.orch
}

// IsExitPhrase reports whether the message, normalized, is one of the
// configured exit phrases.
func (s *Session) IsExitPhrase(message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.TrimRight(normalized, ".!?")
	return s.exitPhrases[normalized]
}

// Expired reports whether the wall-clock deadline or turn ceiling has
// been reached.
func (s *Session) Expired() error {
	if time.Now().After(s.deadline) {
		return fmt.Errorf("deadline reached: %w", ErrSessionExpired)
	}
	if s.orch.TurnCount() >= s.maxTurns {
		return fmt.Errorf("turn ceiling %d reached: %w", s.maxTurns, ErrSessionExpired)
	}
	return nil
}

// HandleMessage applies the session controls to one message, then
// delegates to the orchestrator. The returned result carries the end
// reason when the session should terminate.
func (s *Session) HandleMessage(ctx context.Context, message string) *TurnResult {
	if err := s.Expired(); err != nil {
		s.logger.Info("session %s expired: %v", s.orch.SessionID(), err)
		return &TurnResult{
			Message:   s.orch.End(convo.EndTimeout),
			Status:    s.orch.Status(),
			Done:      true,
			EndReason: convo.EndTimeout,
		}
	}

	if s.IsExitPhrase(message) {
		return &TurnResult{
			Message:   s.orch.End(convo.EndUserExit),
			Status:    s.orch.Status(),
			Done:      true,
			EndReason: convo.EndUserExit,
		}
	}

	return s.orch.ProcessTurn(ctx, message)
}

// Run drives an interactive read/reply loop until the session ends or
// input is exhausted. The welcome message is written first; each reply
// is written as a single line block.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, s.orch.Start())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			s.orch.End(convo.EndUserExit)
			return scanner.Err()
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}

		result := s.HandleMessage(ctx, message)
		fmt.Fprintln(out, result.Message)

		if result.Done {
			if result.EndReason == convo.EndCompleted {
				// Goal achieved still prints the closing line.
				fmt.Fprintln(out, s.orch.End(convo.EndCompleted))
			}
			return nil
		}
	}
}
