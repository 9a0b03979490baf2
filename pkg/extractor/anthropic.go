package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"assistant/pkg/convo"
	"assistant/pkg/logx"
	"assistant/pkg/proto"
)

// DefaultClaudeModel is the model used when none is configured.
const DefaultClaudeModel = "claude-sonnet-4-5"

const extractionSystemPrompt = `You are an intent and entity extraction engine for a shopping assistant.
Given the latest user message and recent conversation history, respond with ONLY a JSON object, no prose:
{
  "intent": "BUY" | "ORDER" | "RECOMMEND" | "RETURN" | "UNKNOWN",
  "confidence": 0.0-1.0,
  "entities": {
    "category": "", "subcategory": "", "product": "",
    "specifications": {}, "budget": "", "quantity": 0,
    "order_id": "", "urgency": "",
    "comparison_items": [], "preferences": []
  },
  "clarification_needed": [],
  "reasoning": ""
}
Omit entity fields you cannot determine. clarification_needed lists the context keys still required to proceed.`

// Claude is an LLM-backed extractor using the Anthropic API. Any API or
// parse failure falls back to the rule-based extractor so a turn is
// never lost to extraction trouble.
type Claude struct {
	client   anthropic.Client
	model    anthropic.Model
	fallback Extractor
	logger   *logx.Logger
}

// NewClaude creates a Claude-backed extractor. An empty model selects
// DefaultClaudeModel.
func NewClaude(apiKey, model string) *Claude {
	if model == "" {
		model = DefaultClaudeModel
	}
	return &Claude{
		client:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:    anthropic.Model(model),
		fallback: NewRuleBased(),
		logger:   logx.NewLogger("extractor"),
	}
}

// Extract asks the model for a strict-JSON extraction of the message.
func (c *Claude) Extract(ctx context.Context, message string, recentHistory []convo.Message) (*Result, error) {
	params := anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   1024,
		Temperature: anthropic.Float(0),
		Messages:    buildMessages(message, recentHistory),
	}
	params.System = []anthropic.TextBlockParam{
		{Text: extractionSystemPrompt, Type: "text"},
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.logger.Warn("extraction API call failed, using rule-based fallback: %v", err)
		return c.fallback.Extract(ctx, message, recentHistory)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}

	result, err := parseExtraction(sb.String())
	if err != nil {
		c.logger.Warn("unparseable extraction output, using rule-based fallback: %v", err)
		return c.fallback.Extract(ctx, message, recentHistory)
	}
	return result, nil
}

func buildMessages(message string, recentHistory []convo.Message) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, msg := range recentHistory {
		role := anthropic.MessageParamRoleAssistant
		if msg.Role == convo.RoleUser {
			role = anthropic.MessageParamRoleUser
		}
		messages = append(messages, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
		})
	}
	messages = append(messages, anthropic.MessageParam{
		Role:    anthropic.MessageParamRoleUser,
		Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(message)},
	})
	return messages
}

// parseExtraction decodes model output into a Result, tolerating code
// fences and leading prose around the JSON object.
func parseExtraction(raw string) (*Result, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if start := strings.Index(cleaned, "{"); start > 0 {
		cleaned = cleaned[start:]
	}
	if end := strings.LastIndex(cleaned, "}"); end >= 0 && end < len(cleaned)-1 {
		cleaned = cleaned[:end+1]
	}

	var wire struct {
		Intent              string   `json:"intent"`
		Confidence          float64  `json:"confidence"`
		Entities            Entities `json:"entities"`
		ClarificationNeeded []string `json:"clarification_needed"`
		Reasoning           string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, fmt.Errorf("decode extraction JSON: %w", err)
	}

	return &Result{
		Intent:              proto.ParseIntent(wire.Intent),
		Confidence:          wire.Confidence,
		Entities:            wire.Entities,
		ClarificationNeeded: wire.ClarificationNeeded,
		Reasoning:           wire.Reasoning,
	}, nil
}
