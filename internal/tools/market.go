package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"stockmcp/internal/domain"
)

var errSymbolRequired = errors.New("symbol is required")

// DefaultBarsLimit is the get-historical-data limit when none is given.
const DefaultBarsLimit = 100

func symbolParam() mcp.ToolOption {
	return mcp.WithString("symbol",
		mcp.Required(),
		mcp.Description("Stock ticker symbol, e.g. AAPL"),
	)
}

func getStockPriceTool() mcp.Tool {
	return mcp.NewTool("get-stock-price",
		mcp.WithDescription("Get the current price of a stock"),
		mcp.WithTitleAnnotation("Get Stock Price"),
		mcp.WithReadOnlyHintAnnotation(true),
		symbolParam(),
	)
}

func getAssetInfoTool() mcp.Tool {
	return mcp.NewTool("get-stock-asset-info",
		mcp.WithDescription("Retrieve detailed asset information about a stock"),
		mcp.WithTitleAnnotation("Get Stock Asset Info"),
		mcp.WithReadOnlyHintAnnotation(true),
		symbolParam(),
	)
}

func getQuoteTool() mcp.Tool {
	return mcp.NewTool("get-quote",
		mcp.WithDescription("Get the quote for a stock"),
		mcp.WithTitleAnnotation("Get Quote"),
		mcp.WithReadOnlyHintAnnotation(true),
		symbolParam(),
	)
}

func getMarketStatusTool() mcp.Tool {
	return mcp.NewTool("get-market-status",
		mcp.WithDescription("Get the market status"),
		mcp.WithTitleAnnotation("Get Market Status"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func getHistoricalDataTool() mcp.Tool {
	return mcp.NewTool("get-historical-data",
		mcp.WithDescription("Get historical price bars for a stock"),
		mcp.WithTitleAnnotation("Get Historical Data"),
		mcp.WithReadOnlyHintAnnotation(true),
		symbolParam(),
		mcp.WithString("timeframe",
			mcp.Description("Bar aggregation period"),
			mcp.Enum(domain.TimeFrames...),
			mcp.DefaultString(string(domain.TimeFrame1Day)),
		),
		mcp.WithString("start",
			mcp.Description("Start of the window, RFC 3339 or YYYY-MM-DD. Defaults to 30 days ago"),
		),
		mcp.WithString("end",
			mcp.Description("End of the window, RFC 3339 or YYYY-MM-DD. Defaults to now"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of bars"),
			mcp.DefaultNumber(DefaultBarsLimit),
			mcp.Min(1),
		),
	)
}

// getStockPrice renders "SYM: $PRICE (as of TS)" from the latest trade.
func (r *Registry) getStockPrice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbol, err := requireSymbol(req)
	if err != nil {
		return invalid(err), nil
	}

	snap, err := r.broker.GetSnapshot(ctx, symbol)
	if err != nil {
		return failure("fetching price for "+symbol, err), nil
	}
	if snap == nil || snap.LatestTrade == nil {
		return mcp.NewToolResultText("No trading data available for " + symbol), nil
	}

	trade := snap.LatestTrade
	return mcp.NewToolResultText(fmt.Sprintf("%s: $%s (as of %s)",
		symbol,
		strconv.FormatFloat(trade.Price, 'f', -1, 64),
		trade.Timestamp.UTC().Format(time.RFC3339Nano),
	)), nil
}

func (r *Registry) getAssetInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbol, err := requireSymbol(req)
	if err != nil {
		return invalid(err), nil
	}
	asset, err := r.broker.GetAsset(ctx, symbol)
	if err != nil {
		return failure("fetching asset info for "+symbol, err), nil
	}
	return jsonResult(asset), nil
}

func (r *Registry) getQuote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbol, err := requireSymbol(req)
	if err != nil {
		return invalid(err), nil
	}
	quote, err := r.broker.GetLatestQuote(ctx, symbol)
	if err != nil {
		return failure("fetching quote for "+symbol, err), nil
	}
	return jsonResult(quote), nil
}

func (r *Registry) getMarketStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clock, err := r.broker.GetClock(ctx)
	if err != nil {
		return failure("fetching market status", err), nil
	}
	return jsonResult(clock), nil
}

func (r *Registry) getHistoricalData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := r.barsQuery(req)
	if err != nil {
		return invalid(err), nil
	}

	bars, err := r.broker.GetBars(ctx, q)
	if err != nil {
		return failure("fetching historical data", err), nil
	}
	if len(bars) == 0 {
		return mcp.NewToolResultText("No historical data found for " + q.Symbol), nil
	}
	return indentedResult(bars), nil
}

func (r *Registry) barsQuery(req mcp.CallToolRequest) (domain.BarsQuery, error) {
	symbol, err := requireSymbol(req)
	if err != nil {
		return domain.BarsQuery{}, err
	}

	tf := domain.BarTimeFrame(req.GetString("timeframe", string(domain.TimeFrame1Day)))
	if !tf.Valid() {
		return domain.BarsQuery{}, fmt.Errorf("timeframe must be one of %v, got %q", domain.TimeFrames, tf)
	}

	start, err := parseTime(req.GetString("start", ""))
	if err != nil {
		return domain.BarsQuery{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseTime(req.GetString("end", ""))
	if err != nil {
		return domain.BarsQuery{}, fmt.Errorf("end: %w", err)
	}

	limit := req.GetInt("limit", DefaultBarsLimit)
	if limit <= 0 {
		return domain.BarsQuery{}, fmt.Errorf("limit must be positive, got %d", limit)
	}

	q := domain.BarsQuery{
		Symbol:    symbol,
		TimeFrame: tf,
		Start:     start,
		End:       end,
		Limit:     limit,
	}.WithDefaults(r.now())
	if !q.Start.Before(q.End) {
		return domain.BarsQuery{}, fmt.Errorf("start %s is not before end %s",
			q.Start.Format(time.RFC3339), q.End.Format(time.RFC3339))
	}
	return q, nil
}

// parseTime accepts RFC 3339 timestamps or bare dates. Empty input yields the
// zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}
