package broker

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stockmcp/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*SimulatorBroker)(nil)

//go:embed simulator_fixture.json
var defaultFixture []byte

// Fixture seeds a SimulatorBroker. Account, positions and assets use the
// REST API's JSON shape so they decode into the SDK types unchanged.
type Fixture struct {
	Account   json.RawMessage    `json:"account"`
	Positions json.RawMessage    `json:"positions"`
	Assets    json.RawMessage    `json:"assets"`
	Prices    map[string]float64 `json:"prices"`
}

// SimulatorBroker implements the Broker interface for dry runs and tests.
// It keeps submitted orders in memory without making external API calls.
// Orders are never filled.
type SimulatorBroker struct {
	mu        sync.Mutex
	account   alpaca.Account
	positions []alpaca.Position
	assets    map[string]alpaca.Asset
	prices    map[string]float64
	orders    []map[string]any

	now func() time.Time
}

// NewSimulatorBroker creates a SimulatorBroker seeded with the built-in
// fixture.
func NewSimulatorBroker() *SimulatorBroker {
	b, err := NewSimulatorBrokerFromFixture(defaultFixture)
	if err != nil {
		panic(fmt.Sprintf("broker: decoding built-in fixture: %v", err))
	}
	return b
}

// NewSimulatorBrokerFromFixture creates a SimulatorBroker from a JSON fixture
// document.
func NewSimulatorBrokerFromFixture(data []byte) (*SimulatorBroker, error) {
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}

	b := &SimulatorBroker{
		assets: make(map[string]alpaca.Asset),
		prices: make(map[string]float64),
		now:    time.Now,
	}

	if len(fx.Account) > 0 {
		if err := json.Unmarshal(fx.Account, &b.account); err != nil {
			return nil, fmt.Errorf("decoding fixture account: %w", err)
		}
	}
	if len(fx.Positions) > 0 {
		if err := json.Unmarshal(fx.Positions, &b.positions); err != nil {
			return nil, fmt.Errorf("decoding fixture positions: %w", err)
		}
	}
	if len(fx.Assets) > 0 {
		var assets []alpaca.Asset
		if err := json.Unmarshal(fx.Assets, &assets); err != nil {
			return nil, fmt.Errorf("decoding fixture assets: %w", err)
		}
		for _, a := range assets {
			b.assets[strings.ToUpper(a.Symbol)] = a
		}
	}
	for sym, p := range fx.Prices {
		b.prices[strings.ToUpper(sym)] = p
	}
	return b, nil
}

// SetClock replaces the simulator's time source.
func (b *SimulatorBroker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// SetPositions replaces the simulated positions.
func (b *SimulatorBroker) SetPositions(positions []alpaca.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions = positions
}

// Name returns "simulator".
func (b *SimulatorBroker) Name() string {
	return "simulator"
}

// GetAccount returns the seeded account.
func (b *SimulatorBroker) GetAccount(_ context.Context) (*alpaca.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct := b.account
	return &acct, nil
}

// GetPositions returns a copy of the simulated positions.
func (b *SimulatorBroker) GetPositions(_ context.Context) ([]alpaca.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]alpaca.Position, len(b.positions))
	copy(out, b.positions)
	return out, nil
}

// GetOrders returns recorded orders, newest first. "open" matches orders
// that are still new, "closed" matches canceled ones.
func (b *SimulatorBroker) GetOrders(_ context.Context, status string, limit int) ([]alpaca.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []alpaca.Order
	for i := len(b.orders) - 1; i >= 0; i-- {
		doc := b.orders[i]
		st, _ := doc["status"].(string)
		switch status {
		case "open":
			if st != "new" {
				continue
			}
		case "closed":
			if st == "new" {
				continue
			}
		}

		o, err := decodeOrder(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// PlaceOrder records the order as accepted ("new").
func (b *SimulatorBroker) PlaceOrder(_ context.Context, req domain.OrderRequest) (*alpaca.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	symbol := strings.ToUpper(req.Symbol)
	if _, ok := b.assets[symbol]; !ok {
		return nil, fmt.Errorf("asset %q not found", req.Symbol)
	}

	now := b.now().UTC().Format(time.RFC3339Nano)
	doc := map[string]any{
		"id":              uuid.NewString(),
		"client_order_id": req.ClientOrderID,
		"created_at":      now,
		"updated_at":      now,
		"submitted_at":    now,
		"symbol":          symbol,
		"asset_class":     "us_equity",
		"qty":             decimal.NewFromFloat(req.Qty).String(),
		"filled_qty":      "0",
		"type":            string(req.Type),
		"order_type":      string(req.Type),
		"side":            string(req.Side),
		"time_in_force":   string(req.TimeInForce),
		"status":          "new",
		"extended_hours":  false,
	}
	if req.Type == domain.OrderTypeLimit || req.Type == domain.OrderTypeStopLimit {
		doc["limit_price"] = decimal.NewFromFloat(req.LimitPrice).String()
	}
	if req.Type == domain.OrderTypeStop || req.Type == domain.OrderTypeStopLimit {
		doc["stop_price"] = decimal.NewFromFloat(req.StopPrice).String()
	}
	b.orders = append(b.orders, doc)

	return decodeOrder(doc)
}

// CancelOrder marks the specified order as canceled.
func (b *SimulatorBroker) CancelOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, doc := range b.orders {
		if doc["id"] != orderID {
			continue
		}
		if doc["status"] != "new" {
			return fmt.Errorf("order %s is not cancelable (status %v)", orderID, doc["status"])
		}
		doc["status"] = "canceled"
		now := b.now().UTC().Format(time.RFC3339Nano)
		doc["canceled_at"] = now
		doc["updated_at"] = now
		return nil
	}
	return fmt.Errorf("order %s not found", orderID)
}

// GetAsset returns the seeded asset for symbol.
func (b *SimulatorBroker) GetAsset(_ context.Context, symbol string) (*alpaca.Asset, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.assets[strings.ToUpper(symbol)]
	if !ok {
		return nil, fmt.Errorf("asset %q not found", symbol)
	}
	return &a, nil
}

// GetClock reports the regular US session (09:30-16:00 ET, Monday to Friday)
// relative to the simulator's time source. Holidays are ignored.
func (b *SimulatorBroker) GetClock(_ context.Context) (*alpaca.Clock, error) {
	b.mu.Lock()
	now := b.now()
	b.mu.Unlock()

	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("loading ET timezone: %w", err)
	}
	now = now.In(et)

	sessionOpen := func(d time.Time) time.Time {
		return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, et)
	}
	sessionClose := func(d time.Time) time.Time {
		return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, et)
	}
	weekday := func(d time.Time) bool {
		return d.Weekday() != time.Saturday && d.Weekday() != time.Sunday
	}

	isOpen := weekday(now) && !now.Before(sessionOpen(now)) && now.Before(sessionClose(now))

	nextOpen := sessionOpen(now)
	for !nextOpen.After(now) || !weekday(nextOpen) {
		nextOpen = sessionOpen(nextOpen.AddDate(0, 0, 1))
	}
	nextClose := sessionClose(now)
	for !nextClose.After(now) || !weekday(nextClose) {
		nextClose = sessionClose(nextClose.AddDate(0, 0, 1))
	}

	return &alpaca.Clock{
		Timestamp: now,
		IsOpen:    isOpen,
		NextOpen:  nextOpen,
		NextClose: nextClose,
	}, nil
}

// GetSnapshot builds a snapshot around the seeded price. Symbols without a
// price return a nil snapshot, matching an upstream symbol with no data.
func (b *SimulatorBroker) GetSnapshot(_ context.Context, symbol string) (*marketdata.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	price, ok := b.prices[strings.ToUpper(symbol)]
	if !ok {
		return nil, nil
	}
	now := b.now().UTC()
	quote := b.quoteAt(price, now)
	return &marketdata.Snapshot{
		LatestTrade: &marketdata.Trade{
			Timestamp: now,
			Price:     price,
			Exchange:  "V",
		},
		LatestQuote: &quote,
	}, nil
}

// GetLatestQuote returns a one-cent-wide quote around the seeded price.
func (b *SimulatorBroker) GetLatestQuote(_ context.Context, symbol string) (*marketdata.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	price, ok := b.prices[strings.ToUpper(symbol)]
	if !ok {
		return nil, fmt.Errorf("no quote found for %s", symbol)
	}
	q := b.quoteAt(price, b.now().UTC())
	return &q, nil
}

func (b *SimulatorBroker) quoteAt(price float64, ts time.Time) marketdata.Quote {
	return marketdata.Quote{
		Timestamp:   ts,
		BidExchange: "V",
		BidPrice:    round2(price - 0.01),
		AskExchange: "V",
		AskPrice:    round2(price + 0.01),
	}
}

// GetBars synthesizes deterministic bars across the query window, ending at
// the seeded price. Unknown symbols yield no bars.
func (b *SimulatorBroker) GetBars(_ context.Context, q domain.BarsQuery) ([]marketdata.Bar, error) {
	step, err := stepFor(q.TimeFrame)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	price, ok := b.prices[strings.ToUpper(q.Symbol)]
	b.mu.Unlock()
	if !ok || !q.End.After(q.Start) {
		return nil, nil
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToUpper(q.Symbol)))
	seed := float64(h.Sum32()%1000) / 1000

	start := q.Start.UTC().Truncate(step)
	if start.Before(q.Start) {
		start = start.Add(step)
	}

	var bars []marketdata.Bar
	for ts, i := start, 0; !ts.After(q.End); ts, i = ts.Add(step), i+1 {
		if q.Limit > 0 && len(bars) == q.Limit {
			break
		}
		drift := math.Sin(float64(i)/5+seed*math.Pi) * 0.02 * price
		open := round2(price + drift)
		closePx := round2(price + drift*0.9)
		bars = append(bars, marketdata.Bar{
			Timestamp:  ts,
			Open:       open,
			High:       round2(math.Max(open, closePx) * 1.005),
			Low:        round2(math.Min(open, closePx) * 0.995),
			Close:      closePx,
			Volume:     uint64(10000 + i*37),
			TradeCount: uint64(100 + i),
			VWAP:       round2((open + closePx) / 2),
		})
	}
	return bars, nil
}

func stepFor(tf domain.BarTimeFrame) (time.Duration, error) {
	switch tf {
	case domain.TimeFrame1Min:
		return time.Minute, nil
	case domain.TimeFrame5Min:
		return 5 * time.Minute, nil
	case domain.TimeFrame15Min:
		return 15 * time.Minute, nil
	case domain.TimeFrame1Hour:
		return time.Hour, nil
	case domain.TimeFrame1Day, "":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported time frame %q", tf)
	}
}

func decodeOrder(doc map[string]any) (*alpaca.Order, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var o alpaca.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("decoding simulated order: %w", err)
	}
	return &o, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
