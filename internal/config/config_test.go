package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable applyEnvOverrides looks at.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ALPACA_KEY", "ALPACA_SECRET", "ALPACA_API_KEY", "ALPACA_API_SECRET",
		"ALPACA_BASE_URL", "ALPACA_DATA_URL", "ALPACA_FEED", "ALPACA_PAPER",
		"LOG_LEVEL", "LOG_FORMAT", "MCP_TRANSPORT", "MCP_HTTP_ADDR",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stockmcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9000"
  grpc_port: 9090
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
  feed: "sip"
  paper: false
logging:
  level: "debug"
  format: "text"
trading:
  read_only: true
  max_order_qty: 25
mcp:
  transport: "http"
  endpoint_path: "/rpc"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 9090, cfg.Server.GRPCPort)
	assert.Equal(t, "test-key", cfg.Alpaca.APIKey)
	assert.Equal(t, "test-secret", cfg.Alpaca.APISecret)
	assert.Equal(t, "sip", cfg.Alpaca.Feed)
	assert.False(t, cfg.Alpaca.Paper)
	assert.Equal(t, LiveBaseURL, cfg.Alpaca.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.Trading.ReadOnly)
	assert.Equal(t, 25.0, cfg.Trading.MaxOrderQty)
	assert.Equal(t, TransportHTTP, cfg.MCP.Transport)
	assert.Equal(t, "/rpc", cfg.MCP.EndpointPath)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, "stock-server", cfg.MCP.Name)
	assert.Equal(t, "mcp", cfg.Trading.ClientIDPrefix)
	assert.Equal(t, "alpaca", cfg.Alpaca.Broker)
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Alpaca.Paper)
	assert.Equal(t, PaperBaseURL, cfg.Alpaca.BaseURL)
	assert.Equal(t, "iex", cfg.Alpaca.Feed)
	assert.Equal(t, TransportStdio, cfg.MCP.Transport)
	assert.Equal(t, "/mcp", cfg.MCP.EndpointPath)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
`)

	t.Setenv("ALPACA_KEY", "legacy-key")
	t.Setenv("ALPACA_PAPER", "false")
	t.Setenv("MCP_TRANSPORT", "http")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "legacy-key", cfg.Alpaca.APIKey)
	assert.Equal(t, "yaml-secret", cfg.Alpaca.APISecret, "secret should remain from YAML")
	assert.False(t, cfg.Alpaca.Paper)
	assert.Equal(t, LiveBaseURL, cfg.Alpaca.BaseURL)
	assert.Equal(t, TransportHTTP, cfg.MCP.Transport)
}

func TestLoadEnvPriority(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALPACA_KEY", "legacy-key")
	t.Setenv("ALPACA_API_KEY", "api-key")
	t.Setenv("APCA_API_KEY_ID", "canonical-key")
	t.Setenv("ALPACA_BASE_URL", "http://localhost:1234")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "canonical-key", cfg.Alpaca.APIKey)
	assert.Equal(t, "http://localhost:1234", cfg.Alpaca.BaseURL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Alpaca.APIKey = "k"
		cfg.Alpaca.APISecret = "s"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with credentials", func(*Config) {}, false},
		{"missing key", func(c *Config) { c.Alpaca.APIKey = "" }, true},
		{"simulator needs no credentials", func(c *Config) {
			c.Alpaca.Broker = "simulator"
			c.Alpaca.APIKey, c.Alpaca.APISecret = "", ""
		}, false},
		{"unknown broker", func(c *Config) { c.Alpaca.Broker = "ib" }, true},
		{"unknown transport", func(c *Config) { c.MCP.Transport = "sse" }, true},
		{"unknown log level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"negative max qty", func(c *Config) { c.Trading.MaxOrderQty = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
