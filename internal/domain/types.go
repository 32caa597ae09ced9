// Package domain holds the tool-facing parameter types. Upstream entities
// (account, position, order, asset, quote, bar, clock) are the Alpaca SDK
// types and are not redefined here.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Valid reports whether s is a supported side.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// TimeInForce controls how long an order stays working.
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceOPG TimeInForce = "opg"
	TimeInForceIOC TimeInForce = "ioc"
)

// TimesInForce lists the accepted values in schema order.
var TimesInForce = []string{"day", "gtc", "opg", "ioc"}

// Valid reports whether t is a supported time in force.
func (t TimeInForce) Valid() bool {
	switch t {
	case TimeInForceDay, TimeInForceGTC, TimeInForceOPG, TimeInForceIOC:
		return true
	}
	return false
}

// BarTimeFrame is the label of a bar aggregation period.
type BarTimeFrame string

const (
	TimeFrame1Min  BarTimeFrame = "1Min"
	TimeFrame5Min  BarTimeFrame = "5Min"
	TimeFrame15Min BarTimeFrame = "15Min"
	TimeFrame1Hour BarTimeFrame = "1Hour"
	TimeFrame1Day  BarTimeFrame = "1Day"
)

// TimeFrames lists the accepted values in schema order.
var TimeFrames = []string{"1Min", "5Min", "15Min", "1Hour", "1Day"}

// Valid reports whether tf is a supported time frame label.
func (tf BarTimeFrame) Valid() bool {
	for _, v := range TimeFrames {
		if string(tf) == v {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// OrderRequest carries the parameters of an order tool call.
type OrderRequest struct {
	Symbol        string
	Qty           float64
	Side          OrderSide
	Type          OrderType
	TimeInForce   TimeInForce
	LimitPrice    float64
	StopPrice     float64
	ClientOrderID string
}

// Validate checks the fields every order type needs plus the prices its type
// requires.
func (r *OrderRequest) Validate() error {
	if r.Symbol == "" {
		return errors.New("symbol is required")
	}
	if r.Qty <= 0 {
		return fmt.Errorf("quantity must be positive, got %v", r.Qty)
	}
	if !r.Side.Valid() {
		return fmt.Errorf("side must be buy or sell, got %q", r.Side)
	}
	if !r.TimeInForce.Valid() {
		return fmt.Errorf("time_in_force must be one of day, gtc, opg, ioc, got %q", r.TimeInForce)
	}

	switch r.Type {
	case OrderTypeMarket:
	case OrderTypeLimit:
		if r.LimitPrice <= 0 {
			return errors.New("limit price must be positive")
		}
	case OrderTypeStop:
		if r.StopPrice <= 0 {
			return errors.New("stop price must be positive")
		}
	case OrderTypeStopLimit:
		if r.LimitPrice <= 0 || r.StopPrice <= 0 {
			return errors.New("stop and limit prices must be positive")
		}
	default:
		return fmt.Errorf("unsupported order type %q", r.Type)
	}
	return nil
}

// BarsQuery describes a historical bars lookup. Zero Start/End mean "use the
// default window".
type BarsQuery struct {
	Symbol    string
	TimeFrame BarTimeFrame
	Start     time.Time
	End       time.Time
	Limit     int
}

// DefaultBarsWindow is how far back a bars query reaches when no start is given.
const DefaultBarsWindow = 30 * 24 * time.Hour

// WithDefaults fills an empty window relative to now.
func (q BarsQuery) WithDefaults(now time.Time) BarsQuery {
	if q.End.IsZero() {
		q.End = now
	}
	if q.Start.IsZero() {
		q.Start = now.Add(-DefaultBarsWindow)
	}
	if q.TimeFrame == "" {
		q.TimeFrame = TimeFrame1Day
	}
	if q.Limit <= 0 {
		q.Limit = 100
	}
	return q
}

// ---------------------------------------------------------------------------
// Views
// ---------------------------------------------------------------------------

// PositionSummary is the reduced position shape returned by get-positions.
// Amounts keep the upstream decimal strings; market value and unrealized P&L
// are null when the upstream has no price.
type PositionSummary struct {
	Symbol       string  `json:"symbol"`
	Quantity     string  `json:"quantity"`
	Side         string  `json:"side"`
	MarketValue  *string `json:"market_value"`
	UnrealizedPL *string `json:"unrealized_pl"`
}
