package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"tourgate/internal/config"
	"tourgate/internal/llm"
	"tourgate/internal/logging"
	"tourgate/internal/metrics"
	"tourgate/internal/tools"
)

// FallbackAnswer is returned when the provider yields neither text nor tool
// calls, so the caller never sees empty content.
const FallbackAnswer = "I could not generate a response. Please rephrase your question and try again."

const systemPrompt = "You are the data assistant of an island tourism dashboard. " +
	"Answer questions about visitor numbers, expenditure, occupancy and stays using the available tools. " +
	"Call tools to retrieve data before answering; never invent figures. " +
	"When a tool reports an error, explain the problem to the user in plain language."

// Turn is one externally-supplied conversation turn. The server is stateless
// across requests: the client resends its history each call.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolEvent summarizes one tool invocation for the response payload.
type ToolEvent struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	OK        bool           `json:"ok"`
}

// Outcome is the final product of one chat request.
type Outcome struct {
	Message    string      `json:"message"`
	ToolEvents []ToolEvent `json:"toolEvents"`
	Model      string      `json:"model"`
	Rounds     int         `json:"rounds"`
}

// Engine drives the bounded multi-round tool loop against the provider.
// Rounds are strictly sequential; the tool calls inside one round run in
// parallel and the round completes only when all of them settle.
type Engine struct {
	client       llm.Client
	executor     *tools.Executor
	roundCap     int
	historyLimit int
	temperature  float64
	maxTokens    int
	logger       logging.Logger
}

// NewEngine wires the provider client and the shared tool executor.
func NewEngine(client llm.Client, executor *tools.Executor, chatCfg config.ChatConfig, llmCfg config.LLMConfig) *Engine {
	return &Engine{
		client:       client,
		executor:     executor,
		roundCap:     chatCfg.RoundCap,
		historyLimit: chatCfg.HistoryLimit,
		temperature:  llmCfg.Temperature,
		maxTokens:    llmCfg.MaxTokens,
		logger:       logging.NewComponentLogger("ChatEngine"),
	}
}

// Run executes the loop for one inbound chat request.
func (e *Engine) Run(ctx context.Context, turns []Turn) (*Outcome, error) {
	messages := e.seedMessages(turns)
	registry := e.executor.Registry().List()

	outcome := &Outcome{Model: e.client.Model(), ToolEvents: []ToolEvent{}}

	for round := 1; round <= e.roundCap; round++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		outcome.Rounds = round
		metrics.ObserveChatRound()
		e.logger.Debug("=== Round %d/%d === messages=%d", round, e.roundCap, len(messages))

		resp, err := e.client.Complete(ctx, llm.CompletionRequest{
			Messages:    messages,
			Tools:       registry,
			Temperature: e.temperature,
			MaxTokens:   e.maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("provider round %d failed: %w", round, err)
		}

		if len(resp.ToolCalls) == 0 {
			outcome.Message = finalAnswer(resp.Content)
			e.logger.Info("Loop done after %d round(s), %d tool event(s)", round, len(outcome.ToolEvents))
			return outcome, nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		results := e.executeRound(ctx, resp.ToolCalls)
		for i, result := range results {
			call := resp.ToolCalls[i]
			outcome.ToolEvents = append(outcome.ToolEvents, ToolEvent{
				Name:      call.Name,
				Arguments: call.Arguments,
				OK:        result.OK,
			})
			messages = append(messages, toolMessage(call, result))
		}
	}

	// Round cap reached: ask nothing further, surface the best text we have.
	e.logger.Warn("Round cap (%d) reached, extracting final answer", e.roundCap)
	outcome.Message = finalAnswer(lastAssistantContent(messages))
	return outcome, nil
}

// executeRound runs every tool call of one provider response concurrently and
// waits for all of them. A failed call yields an error result at its index,
// never a round abort.
func (e *Engine) executeRound(ctx context.Context, calls []llm.ToolCall) []tools.Result {
	results := make([]tools.Result, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc llm.ToolCall) {
			defer wg.Done()
			results[idx] = e.executor.Execute(ctx, tools.Call{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: tc.Arguments,
			})
		}(i, call)
	}
	wg.Wait()

	for i, result := range results {
		if result.OK {
			e.logger.Debug("Tool %d (%s) succeeded", i, calls[i].Name)
		} else {
			e.logger.Warn("Tool %d (%s) failed: %s: %s", i, calls[i].Name, result.ErrorKind, result.Detail)
		}
	}

	return results
}

// seedMessages builds the provider message list: system prompt plus the most
// recent client-supplied turns with sanitized roles.
func (e *Engine) seedMessages(turns []Turn) []llm.Message {
	if len(turns) > e.historyLimit {
		turns = turns[len(turns)-e.historyLimit:]
	}

	messages := make([]llm.Message, 0, len(turns)+1)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, turn := range turns {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		if role != "user" && role != "assistant" {
			continue
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	return messages
}

// toolMessage folds one tool result back into the conversation, matching the
// provider's call id. The envelope serializes success and failure alike, so a
// failed call becomes structured content the model can explain.
func toolMessage(call llm.ToolCall, result tools.Result) llm.Message {
	encoded, err := json.Marshal(result)
	if err != nil {
		encoded = []byte(fmt.Sprintf(`{"tool":%q,"ok":false,"error":{"type":"internal","message":"result serialization failed"}}`, call.Name))
	}
	return llm.Message{
		Role:       "tool",
		Content:    string(encoded),
		ToolCallID: call.ID,
	}
}

func finalAnswer(content string) string {
	if trimmed := strings.TrimSpace(content); trimmed != "" {
		return trimmed
	}
	return FallbackAnswer
}

func lastAssistantContent(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "assistant" && strings.TrimSpace(messages[i].Content) != "" {
			return messages[i].Content
		}
	}
	return ""
}
