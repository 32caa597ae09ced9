package tools

import (
	"context"
	"encoding/json"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/mark3labs/mcp-go/mcp"

	"stockmcp/internal/domain"
)

func getPositionsTool() mcp.Tool {
	return mcp.NewTool("get-positions",
		mcp.WithDescription("Get all current stock positions (long and short)"),
		mcp.WithTitleAnnotation("Get Positions"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (r *Registry) getPositions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	positions, err := r.broker.GetPositions(ctx)
	if err != nil {
		return failure("fetching positions", err), nil
	}
	if len(positions) == 0 {
		return mcp.NewToolResultText("No current positions"), nil
	}

	summaries := make([]domain.PositionSummary, 0, len(positions))
	for _, p := range positions {
		s, err := summarizePosition(p)
		if err != nil {
			return failure("fetching positions", err), nil
		}
		summaries = append(summaries, s)
	}
	return indentedResult(summaries), nil
}

// summarizePosition projects a position through the SDK's JSON form. Amounts
// come out as normalized decimal strings ("10.50" becomes "10.5") and a
// missing market value or P&L stays null.
func summarizePosition(p alpaca.Position) (domain.PositionSummary, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return domain.PositionSummary{}, err
	}
	var wire struct {
		Symbol       string  `json:"symbol"`
		Qty          string  `json:"qty"`
		Side         string  `json:"side"`
		MarketValue  *string `json:"market_value"`
		UnrealizedPL *string `json:"unrealized_pl"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.PositionSummary{}, err
	}
	return domain.PositionSummary{
		Symbol:       wire.Symbol,
		Quantity:     wire.Qty,
		Side:         wire.Side,
		MarketValue:  wire.MarketValue,
		UnrealizedPL: wire.UnrealizedPL,
	}, nil
}
