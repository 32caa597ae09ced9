// Package tools defines the MCP tools that expose brokerage operations and
// binds them to a broker and an order engine.
package tools

import (
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"stockmcp/internal/broker"
	"stockmcp/internal/engine"
)

// Options tunes a Registry.
type Options struct {
	// ReadOnly omits every tool that places or cancels orders.
	ReadOnly bool
	Logger   *slog.Logger
	// Now overrides the clock used for default bar windows.
	Now func() time.Time
}

// Registry owns the tool definitions and their handlers.
type Registry struct {
	broker   broker.Broker
	engine   *engine.Engine
	readOnly bool
	log      *slog.Logger
	now      func() time.Time
}

// NewRegistry creates a Registry backed by b for reads and e for order
// mutations.
func NewRegistry(b broker.Broker, e *engine.Engine, opts Options) *Registry {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		broker:   b,
		engine:   e,
		readOnly: opts.ReadOnly,
		log:      log.With("component", "tools"),
		now:      now,
	}
}

type definition struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
	mutates bool
}

func (r *Registry) definitions() []definition {
	return []definition{
		{tool: getStockPriceTool(), handler: r.getStockPrice},
		{tool: getAccountTool(), handler: r.getAccount},
		{tool: getCashTool(), handler: r.getCash},
		{tool: getAssetInfoTool(), handler: r.getAssetInfo},
		{tool: getOrdersTool(), handler: r.getOrders},
		{tool: getPositionsTool(), handler: r.getPositions},
		{tool: placeOrderTool(), handler: r.placeOrder, mutates: true},
		{tool: getQuoteTool(), handler: r.getQuote},
		{tool: cancelOrderTool(), handler: r.cancelOrder, mutates: true},
		{tool: placeLimitOrderTool(), handler: r.placeLimitOrder, mutates: true},
		{tool: getPortfolioValueTool(), handler: r.getPortfolioValue},
		{tool: getMarketStatusTool(), handler: r.getMarketStatus},
		{tool: getHistoricalDataTool(), handler: r.getHistoricalData},
		{tool: placeStopOrderTool(), handler: r.placeStopOrder, mutates: true},
		{tool: placeStopLimitOrderTool(), handler: r.placeStopLimitOrder, mutates: true},
	}
}

// Tools returns the enabled tools in registration order.
func (r *Registry) Tools() []server.ServerTool {
	defs := r.definitions()
	out := make([]server.ServerTool, 0, len(defs))
	for _, d := range defs {
		if d.mutates && r.readOnly {
			continue
		}
		out = append(out, server.ServerTool{Tool: d.tool, Handler: d.handler})
	}
	return out
}

// Register adds the enabled tools to s.
func (r *Registry) Register(s *server.MCPServer) {
	tools := r.Tools()
	s.AddTools(tools...)
	r.log.Info("tools registered", "count", len(tools), "read_only", r.readOnly)
}

// normalizeSymbol upper-cases and trims a ticker.
func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func requireSymbol(req mcp.CallToolRequest) (string, error) {
	s, err := req.RequireString("symbol")
	if err != nil {
		return "", err
	}
	s = normalizeSymbol(s)
	if s == "" {
		return "", errSymbolRequired
	}
	return s, nil
}
