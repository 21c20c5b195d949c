package llm

import (
	"context"
	"encoding/json"

	"github.com/kaptinlin/jsonrepair"

	"tourgate/internal/tools"
)

// Message is one turn of conversation in provider wire order.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a provider-requested tool invocation. Arguments holds the parsed
// object; RawArguments preserves what the provider actually sent.
type ToolCall struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Arguments    map[string]any `json:"arguments"`
	RawArguments string         `json:"-"`
}

// CompletionRequest carries one round of the tool loop to the provider.
type CompletionRequest struct {
	Messages    []Message
	Tools       []tools.Definition
	Temperature float64
	MaxTokens   int
}

// TokenUsage reports provider token accounting.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the provider's answer for one round.
type CompletionResponse struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
	Usage      TokenUsage
}

// Client is the chat-completion provider contract.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Model() string
}

// ParseArguments decodes tool-call argument JSON, attempting a repair pass for
// the malformed output some models emit. A payload that cannot be recovered
// degrades to an empty object: a bad tool call must not crash the round.
func ParseArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err == nil && args != nil {
		return args
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return map[string]any{}
	}
	if err := json.Unmarshal([]byte(repaired), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}
