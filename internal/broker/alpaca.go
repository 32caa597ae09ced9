package broker

import (
	"context"
	"fmt"
	"strings"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"stockmcp/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*AlpacaBroker)(nil)

// AlpacaBroker implements the Broker interface using the Alpaca trading and
// market-data APIs.
type AlpacaBroker struct {
	trading *alpaca.Client
	data    *marketdata.Client
	feed    marketdata.Feed
}

// AlpacaOptions configures an AlpacaBroker. Empty URLs fall back to the SDK
// defaults.
type AlpacaOptions struct {
	APIKey    string
	APISecret string
	BaseURL   string
	DataURL   string
	Feed      string
}

// NewAlpacaBroker creates a new AlpacaBroker configured with the given
// credentials and API endpoints.
func NewAlpacaBroker(opts AlpacaOptions) *AlpacaBroker {
	tradingOpts := alpaca.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.BaseURL != "" {
		tradingOpts.BaseURL = opts.BaseURL
	}

	dataOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		dataOpts.BaseURL = opts.DataURL
	}

	return &AlpacaBroker{
		trading: alpaca.NewClient(tradingOpts),
		data:    marketdata.NewClient(dataOpts),
		feed:    marketdata.Feed(opts.Feed),
	}
}

// Name returns "alpaca".
func (b *AlpacaBroker) Name() string {
	return "alpaca"
}

// GetAccount returns the account from GET /v2/account.
func (b *AlpacaBroker) GetAccount(ctx context.Context) (*alpaca.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.trading.GetAccount()
}

// GetPositions returns all positions from GET /v2/positions.
func (b *AlpacaBroker) GetPositions(ctx context.Context) ([]alpaca.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.trading.GetPositions()
}

// GetOrders lists orders via GET /v2/orders.
func (b *AlpacaBroker) GetOrders(ctx context.Context, status string, limit int) ([]alpaca.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.trading.GetOrders(alpaca.GetOrdersRequest{
		Status: status,
		Limit:  limit,
	})
}

// PlaceOrder submits an order via POST /v2/orders.
func (b *AlpacaBroker) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*alpaca.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.trading.PlaceOrder(toPlaceOrderRequest(req))
}

// CancelOrder requests cancellation via DELETE /v2/orders/{orderID}.
func (b *AlpacaBroker) CancelOrder(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.trading.CancelOrder(orderID)
}

// GetAsset returns the asset via GET /v2/assets/{symbol}.
func (b *AlpacaBroker) GetAsset(ctx context.Context, symbol string) (*alpaca.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.trading.GetAsset(symbol)
}

// GetClock returns the market clock via GET /v2/clock.
func (b *AlpacaBroker) GetClock(ctx context.Context) (*alpaca.Clock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.trading.GetClock()
}

// GetSnapshot returns the stock snapshot for a symbol.
func (b *AlpacaBroker) GetSnapshot(ctx context.Context, symbol string) (*marketdata.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.data.GetSnapshot(symbol, marketdata.GetSnapshotRequest{Feed: b.feed})
}

// GetLatestQuote returns the latest quote for a symbol.
func (b *AlpacaBroker) GetLatestQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.data.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{Feed: b.feed})
}

// GetBars fetches historical bars, following pagination up to q.Limit bars.
func (b *AlpacaBroker) GetBars(ctx context.Context, q domain.BarsQuery) ([]marketdata.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tf, err := TimeFrameFor(q.TimeFrame)
	if err != nil {
		return nil, err
	}

	return b.data.GetBars(strings.ToUpper(q.Symbol), marketdata.GetBarsRequest{
		TimeFrame:  tf,
		Start:      q.Start,
		End:        q.End,
		TotalLimit: q.Limit,
		Feed:       b.feed,
	})
}

// TimeFrameFor maps a tool time frame label to the market-data time frame.
func TimeFrameFor(tf domain.BarTimeFrame) (marketdata.TimeFrame, error) {
	switch tf {
	case domain.TimeFrame1Min:
		return marketdata.NewTimeFrame(1, marketdata.Min), nil
	case domain.TimeFrame5Min:
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case domain.TimeFrame15Min:
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case domain.TimeFrame1Hour:
		return marketdata.NewTimeFrame(1, marketdata.Hour), nil
	case domain.TimeFrame1Day, "":
		return marketdata.NewTimeFrame(1, marketdata.Day), nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("unsupported time frame %q", tf)
	}
}

// toPlaceOrderRequest converts tool parameters into the SDK request. Prices
// are only set for the order types that use them.
func toPlaceOrderRequest(req domain.OrderRequest) alpaca.PlaceOrderRequest {
	qty := decimal.NewFromFloat(req.Qty)

	out := alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          alpaca.Side(req.Side),
		Type:          alpaca.OrderType(req.Type),
		TimeInForce:   alpaca.TimeInForce(req.TimeInForce),
		ClientOrderID: req.ClientOrderID,
	}

	switch req.Type {
	case domain.OrderTypeLimit:
		out.LimitPrice = decimalPtr(req.LimitPrice)
	case domain.OrderTypeStop:
		out.StopPrice = decimalPtr(req.StopPrice)
	case domain.OrderTypeStopLimit:
		out.LimitPrice = decimalPtr(req.LimitPrice)
		out.StopPrice = decimalPtr(req.StopPrice)
	}
	return out
}

func decimalPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}
