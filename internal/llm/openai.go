package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/seralba/vitala-health-agent/internal/config"
	"github.com/seralba/vitala-health-agent/internal/httpkit"
)

// Client talks to an OpenAI-compatible chat-completions API.
type Client struct {
	baseURL    string
	apiKey     string
	logger     *slog.Logger
	httpClient *http.Client
}

// NewClient creates a chat client. The timeout bounds one full request;
// the agent loop additionally passes per-turn contexts.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(timeout),
		),
	}
}

// Wire types for the OpenAI chat completions API. Arguments travel as a
// JSON-encoded string on the wire; the unified types use a map.

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
		// Arguments is a JSON-encoded string per the OpenAI spec, but
		// some compatible backends send a bare object. RawMessage
		// defers the distinction to fromWire.
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []wireMessage    `json:"messages"`
	Tools       []map[string]any `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

type chatCompletion struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Chat sends the conversation to the backend and normalizes the reply.
// When tools is non-empty the model may answer with a tool call instead
// of text; passing nil tools forces a plain text synthesis.
//
// Every failure mode (transport error, timeout, auth, rate limit,
// server error, unparseable body) wraps
// [httpkit.ErrServiceUnavailable] so the caller can treat the turn as
// fully failed and retryable.
func (c *Client) Chat(ctx context.Context, model string, messages []Message, tools []ToolSpec) (*ChatResponse, error) {
	req := chatRequest{
		Model:       model,
		Messages:    toWire(messages),
		Temperature: 0.7,
		MaxTokens:   500,
	}
	if len(tools) > 0 {
		req.Tools = toolsToWire(tools)
		req.ToolChoice = "auto"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Log(ctx, config.LevelTrace, "chat request", "payload", string(body))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpkit.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 512)
		return nil, fmt.Errorf("%w: backend returned status %d: %s", httpkit.ErrServiceUnavailable, resp.StatusCode, errBody)
	}

	var completion chatCompletion
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", httpkit.ErrServiceUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: backend returned no choices", httpkit.ErrServiceUnavailable)
	}

	choice := completion.Choices[0]
	msg, err := fromWire(choice.Message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpkit.ErrServiceUnavailable, err)
	}

	out := &ChatResponse{
		Model:        completion.Model,
		Message:      msg,
		FinishReason: choice.FinishReason,
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
		Duration:     time.Since(start),
	}

	c.logger.Debug("chat completed",
		"model", out.Model,
		"finish_reason", out.FinishReason,
		"tool_calls", len(out.Message.ToolCalls),
		"input_tokens", out.InputTokens,
		"output_tokens", out.OutputTokens,
		"duration", out.Duration,
	)

	return out, nil
}

// toWire converts unified messages to the OpenAI wire shape, encoding
// tool-call arguments back to JSON strings.
func toWire(messages []Message) []wireMessage {
	wire := make([]wireMessage, len(messages))
	for i, m := range messages {
		wm := wireMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Arguments)
			if err != nil {
				args = []byte("{}")
			}
			quoted, err := json.Marshal(string(args))
			if err != nil {
				quoted = []byte(`"{}"`)
			}
			wtc := wireToolCall{ID: tc.ID, Type: "function"}
			wtc.Function.Name = tc.Name
			wtc.Function.Arguments = quoted
			wm.ToolCalls = append(wm.ToolCalls, wtc)
		}
		wire[i] = wm
	}
	return wire
}

// fromWire normalizes a wire message, parsing tool-call argument
// strings into maps. Some providers send arguments as a bare object
// rather than an encoded string; both are accepted.
func fromWire(wm wireMessage) (Message, error) {
	m := Message{
		Role:       wm.Role,
		Content:    wm.Content,
		ToolCallID: wm.ToolCallID,
	}
	for _, wtc := range wm.ToolCalls {
		tc := ToolCall{ID: wtc.ID, Name: wtc.Function.Name}
		args, err := parseArguments(wtc.Function.Arguments)
		if err != nil {
			return m, fmt.Errorf("parse tool arguments for %q: %v", tc.Name, err)
		}
		tc.Arguments = args
		m.ToolCalls = append(m.ToolCalls, tc)
	}
	return m, nil
}

// parseArguments accepts both wire encodings of tool-call arguments:
// a JSON-encoded string (OpenAI) or a bare object (several compatible
// backends). Empty input yields an empty map.
func parseArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if encoded == "" {
			return map[string]any{}, nil
		}
		raw = json.RawMessage(encoded)
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func toolsToWire(tools []ToolSpec) []map[string]any {
	wire := make([]map[string]any, len(tools))
	for i, t := range tools {
		wire[i] = map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		}
	}
	return wire
}
