// Package agent implements the core agent loop: one conversational
// turn from user message to final answer, with optional retrieval
// context and at most one tool round-trip.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/seralba/vitala-health-agent/internal/knowledge"
	"github.com/seralba/vitala-health-agent/internal/llm"
	"github.com/seralba/vitala-health-agent/internal/session"
	"github.com/seralba/vitala-health-agent/internal/tools"
)

// systemPrompt tells the model how to behave and when to reach for
// tools.
const systemPrompt = `You are Vitala, a helpful AI health assistant with access to specialized tools.

Your capabilities:
- Calculate BMI and health metrics
- Recommend daily water intake based on weight and activity
- Log and review the user's symptoms
- Set up medication reminders
- Search for possible conditions based on symptoms
- Provide general health advice

When a user asks about BMI, water intake, medication reminders, or symptoms,
USE YOUR TOOLS to provide accurate calculations and recommendations.

Always be empathetic and remind users you're not a replacement for
professional medical care. For serious symptoms or concerns, always advise
consulting a healthcare provider.`

// Backend is the language-model collaborator. Satisfied by
// *llm.Client; tests substitute fakes.
type Backend interface {
	Chat(ctx context.Context, model string, messages []llm.Message, tools []llm.ToolSpec) (*llm.ChatResponse, error)
}

// Config holds the loop's collaborators and settings.
type Config struct {
	Backend  Backend
	Model    string
	Registry *tools.Registry
	Sessions *session.Manager

	// Retriever is nil when RAG is disabled.
	Retriever *knowledge.Retriever
	TopK      int

	// Timeout bounds one full turn, both backend calls included.
	Timeout time.Duration
}

// Loop orchestrates conversational turns.
type Loop struct {
	logger    *slog.Logger
	backend   Backend
	model     string
	registry  *tools.Registry
	sessions  *session.Manager
	retriever *knowledge.Retriever
	topK      int
	timeout   time.Duration
}

// NewLoop creates an agent loop.
func NewLoop(cfg Config, logger *slog.Logger) *Loop {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Loop{
		logger:    logger,
		backend:   cfg.Backend,
		model:     cfg.Model,
		registry:  cfg.Registry,
		sessions:  cfg.Sessions,
		retriever: cfg.Retriever,
		topK:      cfg.TopK,
		timeout:   timeout,
	}
}

// Model returns the configured chat model name.
func (l *Loop) Model() string {
	return l.model
}

// Sessions returns the session manager.
func (l *Loop) Sessions() *session.Manager {
	return l.sessions
}

// Respond runs one conversational turn for the session and returns the
// final natural-language answer.
//
// Every write (history messages, symptom-log entries) is staged on a
// turn and committed only at the end, so a backend or retrieval
// failure leaves the session exactly as it was: the turn is fully
// failed and the user can simply retry.
func (l *Loop) Respond(ctx context.Context, sess *session.Session, userMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	l.logger.Info("turn started", "session", sess.ID, "message_len", len(userMessage))

	turn := sess.Begin()
	ctx = tools.WithTurn(ctx, turn)

	system, err := l.buildSystemPrompt(ctx, userMessage)
	if err != nil {
		return "", err
	}

	turn.Append(llm.Message{Role: "user", Content: userMessage})

	resp, err := l.backend.Chat(ctx, l.model, withSystem(system, turn.History()), l.registry.Specs())
	if err != nil {
		l.logger.Error("model call failed", "session", sess.ID, "error", err)
		return "", fmt.Errorf("model call: %w", err)
	}

	final := resp.Message.Content

	// At most one tool round-trip per turn. If the model asks for a
	// tool again on the follow-up call, its content stands as the
	// answer; no recursion.
	if tc := resp.ToolCall(); tc != nil {
		final, err = l.resolveToolCall(ctx, turn, system, resp.Message)
		if err != nil {
			return "", err
		}
	}

	turn.Append(llm.Message{Role: "assistant", Content: final})
	turn.Commit()
	l.sessions.Persist(turn)

	l.logger.Info("turn completed",
		"session", sess.ID,
		"duration", time.Since(start),
		"reply_len", len(final),
	)

	return final, nil
}

// resolveToolCall executes the model's requested tool and asks the
// backend to synthesize a natural-language answer from the result.
func (l *Loop) resolveToolCall(ctx context.Context, turn *session.Turn, system string, assistant llm.Message) (string, error) {
	tc := assistant.ToolCalls[0]

	l.logger.Info("tool requested",
		"session", turn.SessionID(),
		"tool", tc.Name,
		"arguments", tc.Arguments,
	)

	result := l.registry.Execute(ctx, tc.Name, tc.Arguments)
	if !result.OK {
		l.logger.Warn("tool failed", "session", turn.SessionID(), "tool", tc.Name, "kind", result.Kind)
	}

	turn.Append(assistant)
	turn.Append(llm.Message{
		Role:       "tool",
		Content:    result.ForModel(),
		ToolCallID: tc.ID,
	})

	// Synthesis call carries no tool specs, so the outcome is text.
	resp, err := l.backend.Chat(ctx, l.model, withSystem(system, turn.History()), nil)
	if err != nil {
		l.logger.Error("synthesis call failed", "session", turn.SessionID(), "error", err)
		return "", fmt.Errorf("model call: %w", err)
	}

	return resp.Message.Content, nil
}

// buildSystemPrompt assembles the system message, prepending retrieved
// reference passages when RAG is enabled.
func (l *Loop) buildSystemPrompt(ctx context.Context, query string) (string, error) {
	if l.retriever == nil {
		return systemPrompt, nil
	}

	results, err := l.retriever.Search(ctx, query, l.topK)
	if err != nil {
		l.logger.Error("retrieval failed", "error", err)
		return "", fmt.Errorf("retrieve context: %w", err)
	}
	if len(results) == 0 {
		return systemPrompt, nil
	}

	var b strings.Builder
	b.WriteString("Reference information:\n")
	for _, r := range results {
		b.WriteString("- ")
		b.WriteString(r.Passage.Text)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(systemPrompt)

	l.logger.Debug("context augmented", "passages", len(results))
	return b.String(), nil
}

// withSystem prepends the system message to a history copy.
func withSystem(system string, history []llm.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	return append(messages, history...)
}
