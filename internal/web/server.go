// Package web serves the browser chat frontend.
package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/seralba/vitala-health-agent/internal/agent"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Server renders the chat page and handles the WebSocket chat channel.
type Server struct {
	logger    *slog.Logger
	loop      *agent.Loop
	templates map[string]*template.Template
	brandName string
}

// NewServer creates the web frontend server.
func NewServer(loop *agent.Loop, logger *slog.Logger) *Server {
	return &Server{
		logger:    logger,
		loop:      loop,
		templates: loadTemplates(),
		brandName: "Vitala",
	}
}

// RegisterRoutes attaches the web routes to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /chat", s.handleChat)
	mux.HandleFunc("GET /ws", s.handleWS)
}

// loadTemplates parses the layout and each page template. Each page
// template is a clone of the layout with the page-specific blocks
// overridden. Panics on syntax errors so that startup fails fast.
func loadTemplates() map[string]*template.Template {
	layout := template.Must(
		template.New("layout.html").ParseFS(templateFiles, "templates/layout.html"),
	)

	pages := []string{"chat.html"}
	result := make(map[string]*template.Template, len(pages))

	for _, page := range pages {
		t := template.Must(layout.Clone())
		template.Must(t.ParseFS(templateFiles, "templates/"+page))
		result[page] = t
	}

	return result
}

// render executes a named page template inside the shared layout.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	t, ok := s.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.logger.Error("template render failed", "template", name, "error", err)
	}
}

// PageData carries the fields every page template expects.
type PageData struct {
	BrandName string
}

// ChatData is the template context for the chat page.
type ChatData struct {
	PageData
}

// handleChat renders the chat page wrapped in the shared layout.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.render(w, "chat.html", ChatData{
		PageData: PageData{BrandName: s.brandName},
	})
}
