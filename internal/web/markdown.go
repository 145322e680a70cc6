package web

import (
	"bytes"

	"github.com/yuin/goldmark"
)

// renderMarkdown converts the assistant's markdown reply to HTML for
// the chat page. On conversion failure the raw text is returned so the
// user still sees the answer.
func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return md
	}
	return buf.String()
}
