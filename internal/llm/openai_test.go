package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seralba/vitala-health-agent/internal/httpkit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completionBody(message map[string]any) map[string]any {
	return map[string]any{
		"model": "test-model",
		"choices": []map[string]any{
			{"message": message, "finish_reason": "stop"},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
	}
}

func TestChat_TextResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s, want /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req struct {
			Model    string           `json:"model"`
			Messages []map[string]any `json:"messages"`
			Tools    []map[string]any `json:"tools"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}
		if len(req.Tools) != 0 {
			t.Errorf("tools sent = %d, want none for nil tools", len(req.Tools))
		}

		json.NewEncoder(w).Encode(completionBody(map[string]any{
			"role":    "assistant",
			"content": "Stay hydrated!",
		}))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "test-key", 10*time.Second, testLogger())

	resp, err := c.Chat(context.Background(), "test-model", []Message{
		{Role: "user", Content: "any tips?"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Message.Content != "Stay hydrated!" {
		t.Errorf("content = %q, want %q", resp.Message.Content, "Stay hydrated!")
	}
	if resp.ToolCall() != nil {
		t.Error("ToolCall() != nil for a plain text response")
	}
	if resp.InputTokens != 10 || resp.OutputTokens != 5 {
		t.Errorf("tokens = %d/%d, want 10/5", resp.InputTokens, resp.OutputTokens)
	}
}

func TestChat_ToolCallStringArguments(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Arguments as a JSON-encoded string, the standard encoding.
		json.NewEncoder(w).Encode(completionBody(map[string]any{
			"role":    "assistant",
			"content": "",
			"tool_calls": []map[string]any{
				{
					"id":   "call_1",
					"type": "function",
					"function": map[string]any{
						"name":      "calculate_bmi",
						"arguments": `{"weight_kg": 70, "height_cm": 175}`,
					},
				},
			},
		}))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", 10*time.Second, testLogger())

	resp, err := c.Chat(context.Background(), "m", []Message{{Role: "user", Content: "bmi?"}}, []ToolSpec{
		{Name: "calculate_bmi", Parameters: map[string]any{"type": "object"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	tc := resp.ToolCall()
	if tc == nil {
		t.Fatal("ToolCall() = nil, want the bmi call")
	}
	if tc.Name != "calculate_bmi" || tc.ID != "call_1" {
		t.Errorf("ToolCall() = %+v", tc)
	}
	if got := tc.Arguments["weight_kg"]; got != 70.0 {
		t.Errorf("weight_kg = %v (%T), want 70", got, got)
	}
}

func TestChat_ToolCallObjectArguments(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Some compatible backends send a bare object.
		json.NewEncoder(w).Encode(completionBody(map[string]any{
			"role": "assistant",
			"tool_calls": []map[string]any{
				{
					"id":   "call_2",
					"type": "function",
					"function": map[string]any{
						"name":      "log_symptom",
						"arguments": map[string]any{"description": "headache"},
					},
				},
			},
		}))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", 10*time.Second, testLogger())

	resp, err := c.Chat(context.Background(), "m", []Message{{Role: "user", Content: "log it"}}, []ToolSpec{
		{Name: "log_symptom", Parameters: map[string]any{"type": "object"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	tc := resp.ToolCall()
	if tc == nil {
		t.Fatal("ToolCall() = nil, want the log_symptom call")
	}
	if got := tc.Arguments["description"]; got != "headache" {
		t.Errorf("description = %v, want headache", got)
	}
}

func TestChat_BackendStatusError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", status)
		}))

		c := NewClient(ts.URL, "k", 10*time.Second, testLogger())
		_, err := c.Chat(context.Background(), "m", []Message{{Role: "user", Content: "hi"}}, nil)
		if !errors.Is(err, httpkit.ErrServiceUnavailable) {
			t.Errorf("status %d: Chat() error = %v, want ErrServiceUnavailable", status, err)
		}
		ts.Close()
	}
}

func TestChat_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"model": "m", "choices": []any{}})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", 10*time.Second, testLogger())
	_, err := c.Chat(context.Background(), "m", []Message{{Role: "user", Content: "hi"}}, nil)
	if !errors.Is(err, httpkit.ErrServiceUnavailable) {
		t.Errorf("Chat() error = %v, want ErrServiceUnavailable", err)
	}
}

func TestChat_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "k", time.Second, testLogger())
	_, err := c.Chat(context.Background(), "m", []Message{{Role: "user", Content: "hi"}}, nil)
	if !errors.Is(err, httpkit.ErrServiceUnavailable) {
		t.Errorf("Chat() error = %v, want ErrServiceUnavailable", err)
	}
}

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{"encoded string", `"{\"a\": 1}"`, map[string]any{"a": 1.0}},
		{"bare object", `{"a": 1}`, map[string]any{"a": 1.0}},
		{"empty string", `""`, map[string]any{}},
		{"empty object", `{}`, map[string]any{}},
		{"null", `null`, map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArguments(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("parseArguments(%s) error = %v", tt.raw, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseArguments(%s) = %v, want %v", tt.raw, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("parseArguments(%s)[%s] = %v, want %v", tt.raw, k, got[k], v)
				}
			}
		})
	}

	if _, err := parseArguments(json.RawMessage(`[1, 2]`)); err == nil {
		t.Error("parseArguments(array) succeeded, want error")
	}
}

func TestToWire_RoundTripsToolCallArguments(t *testing.T) {
	msgs := []Message{
		{Role: "assistant", ToolCalls: []ToolCall{
			{ID: "c1", Name: "calculate_bmi", Arguments: map[string]any{"weight_kg": 70.0}},
		}},
	}

	wire := toWire(msgs)
	if len(wire) != 1 || len(wire[0].ToolCalls) != 1 {
		t.Fatalf("toWire() = %+v, want one message with one call", wire)
	}

	// The wire encoding must be a JSON string holding an object.
	var encoded string
	if err := json.Unmarshal(wire[0].ToolCalls[0].Function.Arguments, &encoded); err != nil {
		t.Fatalf("arguments not a JSON string: %v", err)
	}

	back, err := fromWire(wire[0])
	if err != nil {
		t.Fatalf("fromWire() error = %v", err)
	}
	if got := back.ToolCalls[0].Arguments["weight_kg"]; got != 70.0 {
		t.Errorf("round-tripped weight_kg = %v, want 70", got)
	}
}

func TestParseArguments_NullVariant(t *testing.T) {
	got, err := parseArguments(nil)
	if err != nil {
		t.Fatalf("parseArguments(nil) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("parseArguments(nil) = %v, want empty map", got)
	}
}
