// ABOUTME: JSON envelope helpers and markdown rendering for post content
// ABOUTME: All success bodies carry result:"ok", all failures carry an error key

package web

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yuin/goldmark"
)

// envelope is the generic JSON response body
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{"error": msg})
}

// renderMarkdown converts post content to HTML for the detail response.
// Rendering failures degrade to an empty fragment rather than failing the
// request.
func (h *Handlers) renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		h.logger.Error("rendering markdown failed", "error", err)
		return ""
	}
	return buf.String()
}
