package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// LoggingMiddleware logs every tool call with its duration and outcome.
func LoggingMiddleware(log *slog.Logger) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := time.Now()
			res, err := next(ctx, req)

			attrs := []any{
				"tool", req.Params.Name,
				"duration", time.Since(start),
			}
			switch {
			case err != nil:
				log.Error("tool call failed", append(attrs, "error", err)...)
			case res != nil && res.IsError:
				log.Warn("tool call returned error", append(attrs, "message", resultText(res))...)
			default:
				log.Debug("tool call", attrs...)
			}
			return res, err
		}
	}
}

// resultText joins the text content of a result.
func resultText(res *mcp.CallToolResult) string {
	var out string
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			out += tc.Text
		}
	}
	return out
}
