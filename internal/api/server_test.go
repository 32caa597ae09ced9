package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"stockmcp/internal/broker"
	"stockmcp/internal/config"
	"stockmcp/internal/engine"
	"stockmcp/internal/tools"
)

func newTestServer(t *testing.T, readOnly bool) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Alpaca.Broker = "simulator"
	cfg.MCP.Transport = config.TransportHTTP
	cfg.Trading.ReadOnly = readOnly

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sim := broker.NewSimulatorBroker()
	eng := engine.NewEngine(sim, engine.NewRiskManager(0), cfg.Trading.ClientIDPrefix)
	reg := tools.NewRegistry(sim, eng, tools.Options{ReadOnly: readOnly, Logger: log})
	return NewServer(cfg, reg, log)
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t, false)
	require.NotNil(t, s)
	assert.Len(t, s.MCP().ListTools(), 15)

	ro := newTestServer(t, true)
	assert.Len(t, ro.MCP().ListTools(), 10)
	assert.Len(t, ro.MCP().ListTools(), len(ro.tools))
	assert.Nil(t, ro.MCP().GetTool("place-order"))
}

func TestHealthz(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, false).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "stock-server", body["name"])
}

func TestListToolsEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, false).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/tools")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got []toolInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 15)
	assert.Equal(t, "get-stock-price", got[0].Name)
	assert.Equal(t, "Get Stock Price", got[0].Title)
	assert.True(t, got[0].ReadOnly)
	assert.Equal(t, "place-order", got[6].Name)
	assert.False(t, got[6].ReadOnly)

	resp, err = http.Post(ts.URL+"/api/tools", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStreamableHTTP(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, false).Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := client.NewStreamableHttpClient(ts.URL + "/mcp")
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Start(ctx))

	var initReq mcp.InitializeRequest
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "api-test", Version: "0.0.1"}
	info, err := c.Initialize(ctx, initReq)
	require.NoError(t, err)
	assert.Equal(t, "stock-server", info.ServerInfo.Name)

	list, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Tools, 15)

	var callReq mcp.CallToolRequest
	callReq.Params.Name = "get-cash"
	res, err := c.CallTool(ctx, callReq)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	assert.Equal(t, `"100000 USD"`, text.Text)
}

func TestServeStdio(t *testing.T) {
	s := newTestServer(t, true)

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.ServeStdio(ctx, inR, outW) }()

	send := func(msg string) {
		_, err := io.WriteString(inW, msg+"\n")
		require.NoError(t, err)
	}
	lines := bufio.NewScanner(outR)
	lines.Buffer(make([]byte, 0, 64*1024), 1<<20)
	readResponse := func(id int) map[string]any {
		for lines.Scan() {
			var msg map[string]any
			require.NoError(t, json.Unmarshal(lines.Bytes(), &msg))
			if v, ok := msg["id"].(float64); ok && int(v) == id {
				return msg
			}
		}
		t.Fatalf("no response for id %d: %v", id, lines.Err())
		return nil
	}

	send(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"stdio-test","version":"0.0.1"}}}`)
	initResp := readResponse(1)
	assert.Contains(t, initResp, "result")

	send(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	send(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get-portfolio-value","arguments":{}}}`)
	resp := readResponse(2)
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok, resp)
	content := result["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, `"101850"`, content[0].(map[string]any)["text"])

	cancel()
	inW.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stdio server did not stop")
	}
}

func TestGRPCHealth(t *testing.T) {
	s := newTestServer(t, false)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s.ServeGRPC(ln)

	conn, err := grpc.NewClient(ln.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hc := healthpb.NewHealthClient(conn)
	resp, err := hc.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	s.health.shutdown()
	resp, err = hc.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	require.NoError(t, s.Shutdown(ctx))
}

func TestServeHTTPShutdown(t *testing.T) {
	s := newTestServer(t, false)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.ServeHTTP(ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.ErrorIs(t, <-done, http.ErrServerClosed)
}

func TestListenAndServeCancelledContext(t *testing.T) {
	s := newTestServer(t, false)
	s.cfg.Server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancellation")
	}

	s.mu.Lock()
	assert.True(t, s.closed)
	assert.Nil(t, s.httpServer)
	s.mu.Unlock()
}

func TestServeHTTPAfterShutdown(t *testing.T) {
	s := newTestServer(t, false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	assert.ErrorIs(t, s.ServeHTTP(ln), http.ErrServerClosed)

	// The listener was released rather than left serving.
	_, err = net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, err)
}

func TestListenAndServeUnknownTransport(t *testing.T) {
	s := newTestServer(t, false)
	s.cfg.MCP.Transport = "carrier-pigeon"
	assert.ErrorContains(t, s.ListenAndServe(context.Background()), "unknown transport")
}
