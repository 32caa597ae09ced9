// Package stockmcp is a Go SDK for calling the tools of a stock MCP server
// served over streamable HTTP.
package stockmcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// Version is reported to the server as the client version.
const Version = "1.0.0"

// ToolError is returned by CallText when the tool reports an error result.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Message)
}

// Client provides a Go SDK for interacting with a stock MCP server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcp        *client.Client
}

// NewClient creates a new client for the MCP endpoint at baseURL, e.g.
// http://localhost:8080/mcp.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Connect opens the transport and performs the MCP initialize handshake.
func (c *Client) Connect(ctx context.Context) error {
	if c.mcp != nil {
		return nil
	}
	mc, err := client.NewStreamableHttpClient(c.baseURL,
		transport.WithHTTPBasicClient(c.httpClient),
	)
	if err != nil {
		return fmt.Errorf("creating client for %s: %w", c.baseURL, err)
	}
	if err := mc.Start(ctx); err != nil {
		mc.Close()
		return fmt.Errorf("starting transport: %w", err)
	}

	var req mcp.InitializeRequest
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "stockmcp-go", Version: Version}
	if _, err := mc.Initialize(ctx, req); err != nil {
		mc.Close()
		return fmt.Errorf("initializing session: %w", err)
	}

	c.mcp = mc
	return nil
}

// Close ends the session.
func (c *Client) Close() error {
	if c.mcp == nil {
		return nil
	}
	err := c.mcp.Close()
	c.mcp = nil
	return err
}

// ListTools returns the tools the server exposes.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	res, err := c.mcp.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	return res.Tools, nil
}

// CallText calls a tool and returns its text content. An error result is
// returned as a *ToolError.
func (c *Client) CallText(ctx context.Context, tool string, args map[string]any) (string, error) {
	if err := c.Connect(ctx); err != nil {
		return "", err
	}

	var req mcp.CallToolRequest
	req.Params.Name = tool
	req.Params.Arguments = args

	res, err := c.mcp.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", tool, err)
	}

	var sb strings.Builder
	for _, content := range res.Content {
		if tc, ok := mcp.AsTextContent(content); ok {
			sb.WriteString(tc.Text)
		}
	}
	if res.IsError {
		return "", &ToolError{Tool: tool, Message: sb.String()}
	}
	return sb.String(), nil
}

// IsToolError reports whether err is an error result returned by a tool.
func IsToolError(err error) bool {
	var te *ToolError
	return errors.As(err, &te)
}
