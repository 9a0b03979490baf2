package convo

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
	RoleAgent  Role = "agent"
)

// TranscriptState tracks the transcript lifecycle.
type TranscriptState string

const (
	TranscriptActive    TranscriptState = "active"
	TranscriptWaiting   TranscriptState = "waiting"
	TranscriptCompleted TranscriptState = "completed"
)

// EndReason explains why a conversation ended.
type EndReason string

const (
	EndCompleted EndReason = "completed"
	EndUserExit  EndReason = "user_exit"
	EndError     EndReason = "error"
	EndTimeout   EndReason = "timeout"
)

// Message is a single transcript entry.
type Message struct {
	ID        string         `json:"message_id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Transcript records the conversation history for one session.
type Transcript struct {
	SessionID string
	State     TranscriptState
	messages  []Message
}

// NewTranscript creates an active transcript. An empty sessionID gets a
// generated one.
func NewTranscript(sessionID string) *Transcript {
	if sessionID == "" {
		sessionID = "session_" + uuid.NewString()[:8]
	}
	return &Transcript{
		SessionID: sessionID,
		State:     TranscriptActive,
	}
}

func (t *Transcript) add(role Role, content string, metadata map[string]any) string {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	id := "msg_" + uuid.NewString()[:8]
	metadata["message_id"] = id
	t.messages = append(t.messages, Message{
		ID:        id,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	})
	return id
}

// Start records and returns the welcome message.
func (t *Transcript) Start() string {
	welcome := "Welcome! I can help you:\n" +
		"- buy products and search for items\n" +
		"- track orders and check payment status\n" +
		"- get product recommendations\n" +
		"- process returns and exchanges\n\n" +
		"What can I help you with today?"
	t.add(RoleSystem, welcome, map[string]any{
		"message_type": "welcome",
		"session_id":   t.SessionID,
	})
	return welcome
}

// AddUserMessage appends a user message and returns its ID.
func (t *Transcript) AddUserMessage(content string) string {
	return t.add(RoleUser, content, nil)
}

// AddSystemResponse appends an assistant-visible response and returns its ID.
func (t *Transcript) AddSystemResponse(content, responseType string) string {
	return t.add(RoleSystem, content, map[string]any{"response_type": responseType})
}

// AddAgentInteraction logs an agent call in the transcript. Agent
// entries are internal; RecentWindow skips them unless flagged visible.
func (t *Transcript) AddAgentInteraction(agentType string, status string) string {
	return t.add(RoleAgent, fmt.Sprintf("[%s Agent] Processing request...", agentType), map[string]any{
		"message_type": "agent_interaction",
		"agent_type":   agentType,
		"status":       status,
	})
}

// clarificationPrompts maps missing context keys to user-friendly prompts.
var clarificationPrompts = map[string]string{
	"category":      "What type of product are you looking for? (electronics, books, sports, etc.)",
	"subcategory":   "Could you be more specific about the product category?",
	"budget":        "What's your budget range for this purchase?",
	"order_id":      "Please provide your order ID so I can look it up.",
	"return_reason": "Could you tell me why you'd like to return this item?",
	"preferences":   "What features or specifications are important to you?",
	"product":       "Which specific product are you interested in?",
	"quantity":      "How many items do you need?",
}

// RequestClarification records and returns a clarification message built
// from the missing keys, and moves the transcript to waiting.
func (t *Transcript) RequestClarification(missing []string) string {
	msg := clarificationMessage(missing)
	t.add(RoleSystem, msg, map[string]any{
		"message_type":      "clarification_request",
		"missing_info":      missing,
		"awaiting_response": true,
	})
	t.State = TranscriptWaiting
	return msg
}

func clarificationMessage(missing []string) string {
	switch {
	case len(missing) == 1:
		if prompt, ok := clarificationPrompts[missing[0]]; ok {
			return prompt
		}
		return fmt.Sprintf("I need more information about: %s", missing[0])
	case len(missing) > 0 && len(missing) <= 3:
		lines := make([]string, 0, len(missing))
		for _, key := range missing {
			prompt, ok := clarificationPrompts[key]
			if !ok {
				prompt = key
			}
			lines = append(lines, "- "+prompt)
		}
		return "I need a bit more information:\n" + strings.Join(lines, "\n")
	default:
		return "I need some more details to help you better. " +
			"Could you provide more specific information about what you're looking for?"
	}
}

// End records the closing message for the given reason and completes the
// transcript.
func (t *Transcript) End(reason EndReason) string {
	var closing string
	switch reason {
	case EndCompleted:
		closing = "Great! I've helped you complete your request. Is there anything else you need?"
	case EndUserExit:
		closing = "Thank you for using our service. Have a great day!"
	case EndError:
		closing = "I apologize, but I encountered an issue. Please try again or contact support."
	case EndTimeout:
		closing = "This session has timed out. Please start a new conversation if you need help."
	default:
		closing = "Thank you for using our service."
	}
	t.add(RoleSystem, closing, map[string]any{
		"message_type":     "conversation_end",
		"reason":           string(reason),
		"session_duration": t.Duration().String(),
	})
	t.State = TranscriptCompleted
	return closing
}

// Messages returns a copy of the transcript entries.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// RecentWindow returns up to n recent user-visible messages for the
// extractor's recent_history input. Internal agent entries are skipped
// unless their metadata marks them user_visible.
func (t *Transcript) RecentWindow(n int) []Message {
	start := len(t.messages) - n
	if start < 0 {
		start = 0
	}
	var window []Message
	for _, msg := range t.messages[start:] {
		if msg.Role == RoleAgent {
			if visible, _ := msg.Metadata["user_visible"].(bool); !visible {
				continue
			}
		}
		window = append(window, msg)
	}
	return window
}

// Duration is the elapsed time between first and last message.
func (t *Transcript) Duration() time.Duration {
	if len(t.messages) < 2 {
		return 0
	}
	return t.messages[len(t.messages)-1].Timestamp.Sub(t.messages[0].Timestamp)
}

// Summary holds per-session message counts.
type Summary struct {
	SessionID         string          `json:"session_id"`
	State             TranscriptState `json:"state"`
	TotalMessages     int             `json:"total_messages"`
	UserMessages      int             `json:"user_messages"`
	SystemMessages    int             `json:"system_messages"`
	AgentInteractions int             `json:"agent_interactions"`
	Duration          time.Duration   `json:"duration"`
}

// Summarize returns the conversation summary.
func (t *Transcript) Summarize() Summary {
	s := Summary{
		SessionID:     t.SessionID,
		State:         t.State,
		TotalMessages: len(t.messages),
		Duration:      t.Duration(),
	}
	for _, msg := range t.messages {
		switch msg.Role {
		case RoleUser:
			s.UserMessages++
		case RoleSystem:
			s.SystemMessages++
		case RoleAgent:
			s.AgentInteractions++
		}
	}
	return s
}
