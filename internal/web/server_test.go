package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/seralba/vitala-health-agent/internal/agent"
	"github.com/seralba/vitala-health-agent/internal/llm"
	"github.com/seralba/vitala-health-agent/internal/session"
	"github.com/seralba/vitala-health-agent/internal/tools"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type cannedBackend struct{ reply string }

func (b *cannedBackend) Chat(ctx context.Context, model string, messages []llm.Message, specs []llm.ToolSpec) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{
		Message:      llm.Message{Role: "assistant", Content: b.reply},
		FinishReason: "stop",
	}, nil
}

func testWebServer(t *testing.T) *Server {
	t.Helper()
	registry, err := tools.NewHealthRegistry(testLogger())
	if err != nil {
		t.Fatalf("NewHealthRegistry() error = %v", err)
	}
	loop := agent.NewLoop(agent.Config{
		Backend:  &cannedBackend{reply: "hello"},
		Model:    "test-model",
		Registry: registry,
		Sessions: session.NewManager(nil, testLogger()),
	}, testLogger())
	return NewServer(loop, testLogger())
}

func TestHandleChatPage(t *testing.T) {
	srv := testWebServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest("GET", "/chat", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Vitala") {
		t.Errorf("page missing the brand name: %q", body)
	}
	if !strings.Contains(body, "/ws") {
		t.Errorf("page missing the websocket endpoint: %q", body)
	}
}

func TestRenderMarkdown(t *testing.T) {
	got := renderMarkdown("**bold** advice")
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("renderMarkdown() = %q, want strong tag", got)
	}

	got = renderMarkdown("- one\n- two")
	if !strings.Contains(got, "<li>") {
		t.Errorf("renderMarkdown() = %q, want list items", got)
	}
}
