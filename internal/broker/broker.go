// Package broker defines the Broker interface and provides implementations
// backed by the Alpaca API and by an in-memory simulator.
package broker

import (
	"context"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"stockmcp/internal/domain"
)

// Broker abstracts the upstream brokerage. Each method is exactly one
// upstream call; results are the SDK's own types.
type Broker interface {
	// Name returns the broker identifier (e.g. "alpaca", "simulator").
	Name() string

	// GetAccount returns a snapshot of the account.
	GetAccount(ctx context.Context) (*alpaca.Account, error)

	// GetPositions returns all open positions, long and short.
	GetPositions(ctx context.Context) ([]alpaca.Position, error)

	// GetOrders lists orders with the given status ("open", "closed", "all"),
	// newest first, at most limit entries.
	GetOrders(ctx context.Context, status string, limit int) ([]alpaca.Order, error)

	// PlaceOrder submits a new order.
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (*alpaca.Order, error)

	// CancelOrder requests cancellation of an open order by its ID.
	CancelOrder(ctx context.Context, orderID string) error

	// GetAsset returns the asset record for a symbol.
	GetAsset(ctx context.Context, symbol string) (*alpaca.Asset, error)

	// GetClock returns the market clock.
	GetClock(ctx context.Context) (*alpaca.Clock, error)

	// GetSnapshot returns the latest trade, quote and bars for a symbol.
	GetSnapshot(ctx context.Context, symbol string) (*marketdata.Snapshot, error)

	// GetLatestQuote returns the latest NBBO quote for a symbol.
	GetLatestQuote(ctx context.Context, symbol string) (*marketdata.Quote, error)

	// GetBars returns historical bars for the query window.
	GetBars(ctx context.Context, q domain.BarsQuery) ([]marketdata.Bar, error)
}
