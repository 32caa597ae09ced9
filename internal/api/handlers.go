package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// toolInfo is one entry of GET /api/tools.
type toolInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
	ReadOnly    bool   `json:"read_only"`
}

// handleHealth reports liveness and the server identity.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{
		"status":    "ok",
		"name":      s.cfg.MCP.Name,
		"version":   s.cfg.MCP.Version,
		"transport": s.cfg.MCP.Transport,
	})
}

// handleListTools lists the registered tools in registration order.
func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	out := make([]toolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		ro := t.Tool.Annotations.ReadOnlyHint
		out = append(out, toolInfo{
			Name:        t.Tool.Name,
			Title:       t.Tool.Annotations.Title,
			Description: t.Tool.Description,
			ReadOnly:    ro != nil && *ro,
		})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}
