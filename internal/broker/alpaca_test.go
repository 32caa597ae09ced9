package broker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockmcp/internal/domain"
)

// recordedRequest is what the fake upstream saw.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
	KeyID  string
}

// fakeUpstream serves canned Alpaca responses and records every request.
type fakeUpstream struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeUpstream) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		KeyID:  r.Header.Get("APCA-API-KEY-ID"),
	}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v2/orders":
		_, _ = io.WriteString(w, `[]`)
	case r.Method == http.MethodPost && r.URL.Path == "/v2/orders":
		_, _ = io.WriteString(w, `{"id":"ord-1","client_order_id":"mcp-abc","symbol":"AAPL","qty":"10","side":"buy","type":"limit","time_in_force":"gtc","limit_price":"180.5","status":"new"}`)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/v2/orders/"):
		w.WriteHeader(http.StatusNoContent)
	case strings.HasSuffix(r.URL.Path, "/bars"):
		bar := `{"t":"2024-03-13T14:00:00Z","o":184.1,"h":185.2,"l":183.9,"c":185,"v":1200,"n":40,"vw":184.7}`
		if strings.Contains(r.URL.Path, "/AAPL/") {
			_, _ = io.WriteString(w, `{"symbol":"AAPL","bars":[`+bar+`],"next_page_token":null}`)
			return
		}
		_, _ = io.WriteString(w, `{"bars":{"AAPL":[`+bar+`]},"next_page_token":null}`)
	default:
		http.NotFound(w, r)
	}
}

func newFakeAlpaca(t *testing.T) (*AlpacaBroker, *fakeUpstream) {
	t.Helper()
	up := &fakeUpstream{}
	ts := httptest.NewServer(up)
	t.Cleanup(ts.Close)

	b := NewAlpacaBroker(AlpacaOptions{
		APIKey:    "test-key",
		APISecret: "test-secret",
		BaseURL:   ts.URL,
		DataURL:   ts.URL,
		Feed:      "iex",
	})
	return b, up
}

func TestAlpacaGetOrdersForwardsQuery(t *testing.T) {
	b, up := newFakeAlpaca(t)

	orders, err := b.GetOrders(context.Background(), "all", 10)
	require.NoError(t, err)
	assert.Empty(t, orders)

	req := up.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/v2/orders", req.Path)
	assert.Equal(t, "all", req.Query.Get("status"))
	assert.Equal(t, "10", req.Query.Get("limit"))
	assert.Equal(t, "test-key", req.KeyID)
}

func TestAlpacaPlaceOrderForwardsBody(t *testing.T) {
	b, up := newFakeAlpaca(t)

	order, err := b.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol: "AAPL", Qty: 10, Side: domain.OrderSideBuy,
		Type: domain.OrderTypeLimit, TimeInForce: domain.TimeInForceGTC,
		LimitPrice: 180.5, ClientOrderID: "mcp-abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", order.ID)

	req := up.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v2/orders", req.Path)
	assert.Equal(t, "AAPL", req.Body["symbol"])
	assert.Equal(t, "10", req.Body["qty"])
	assert.Equal(t, "buy", req.Body["side"])
	assert.Equal(t, "limit", req.Body["type"])
	assert.Equal(t, "gtc", req.Body["time_in_force"])
	assert.Equal(t, "180.5", req.Body["limit_price"])
	assert.Equal(t, "mcp-abc", req.Body["client_order_id"])
	assert.Nil(t, req.Body["stop_price"])

	_, err = b.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol: "MSFT", Qty: 2, Side: domain.OrderSideSell,
		Type: domain.OrderTypeStopLimit, TimeInForce: domain.TimeInForceDay,
		StopPrice: 402, LimitPrice: 401.25, ClientOrderID: "mcp-def",
	})
	require.NoError(t, err)

	req = up.last(t)
	assert.Equal(t, "stop_limit", req.Body["type"])
	assert.Equal(t, "402", req.Body["stop_price"])
	assert.Equal(t, "401.25", req.Body["limit_price"])
	assert.Equal(t, "mcp-def", req.Body["client_order_id"])
}

func TestAlpacaCancelOrderUsesDelete(t *testing.T) {
	b, up := newFakeAlpaca(t)

	require.NoError(t, b.CancelOrder(context.Background(), "ord-1"))

	req := up.last(t)
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/v2/orders/ord-1", req.Path)
}

func TestAlpacaGetBarsForwardsQuery(t *testing.T) {
	b, up := newFakeAlpaca(t)

	start := time.Date(2024, 3, 12, 13, 30, 0, 0, time.UTC)
	end := time.Date(2024, 3, 13, 20, 0, 0, 0, time.UTC)
	bars, err := b.GetBars(context.Background(), domain.BarsQuery{
		Symbol:    "aapl",
		TimeFrame: domain.TimeFrame5Min,
		Start:     start,
		End:       end,
		Limit:     3,
	})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 185.0, bars[0].Close)

	req := up.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.True(t, strings.HasSuffix(req.Path, "/bars"), req.Path)
	assert.Equal(t, "5Min", req.Query.Get("timeframe"))
	assert.Equal(t, "iex", req.Query.Get("feed"))
	assert.Equal(t, "3", req.Query.Get("limit"))

	gotStart, err := time.Parse(time.RFC3339, req.Query.Get("start"))
	require.NoError(t, err)
	assert.True(t, gotStart.Equal(start))
	gotEnd, err := time.Parse(time.RFC3339, req.Query.Get("end"))
	require.NoError(t, err)
	assert.True(t, gotEnd.Equal(end))

	if !strings.Contains(req.Path, "/AAPL/") {
		assert.Equal(t, "AAPL", req.Query.Get("symbols"))
	}
}
