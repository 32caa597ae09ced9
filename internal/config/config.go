package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the stock MCP server.
type Config struct {
	Server  Server        `yaml:"server"`
	Alpaca  Alpaca        `yaml:"alpaca"`
	Logging Logging       `yaml:"logging"`
	Trading TradingConfig `yaml:"trading"`
	MCP     MCP           `yaml:"mcp"`
}

// Server holds network listener configuration for the HTTP transport.
type Server struct {
	Addr     string `yaml:"addr"`
	GRPCPort int    `yaml:"grpc_port"`
}

// Alpaca holds credentials and endpoints for the Alpaca broker API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
	Paper     bool   `yaml:"paper"`
	// Broker selects the upstream implementation: "alpaca" or "simulator".
	Broker string `yaml:"broker"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TradingConfig defines order-side guard rails.
type TradingConfig struct {
	ReadOnly       bool    `yaml:"read_only"`
	MaxOrderQty    float64 `yaml:"max_order_qty"`
	ClientIDPrefix string  `yaml:"client_id_prefix"`
}

// MCP configures the protocol server itself.
type MCP struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version"`
	Transport    string `yaml:"transport"`
	EndpointPath string `yaml:"endpoint_path"`
	Instructions string `yaml:"instructions"`
}

const (
	PaperBaseURL = "https://paper-api.alpaca.markets"
	LiveBaseURL  = "https://api.alpaca.markets"

	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Server: Server{Addr: ":8080"},
		Alpaca: Alpaca{
			Feed:   "iex",
			Paper:  true,
			Broker: "alpaca",
		},
		Logging: Logging{Level: "info", Format: "json"},
		Trading: TradingConfig{ClientIDPrefix: "mcp"},
		MCP: MCP{
			Name:         "stock-server",
			Version:      "1.0.0",
			Transport:    TransportStdio,
			EndpointPath: "/mcp",
		},
	}
}

// Load reads the YAML configuration file at the given path on top of the
// defaults, and then applies environment variable overrides. An empty path
// skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Alpaca.BaseURL == "" {
		cfg.Alpaca.BaseURL = LiveBaseURL
		if cfg.Alpaca.Paper {
			cfg.Alpaca.BaseURL = PaperBaseURL
		}
	}

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALPACA_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
	if v := os.Getenv("ALPACA_FEED"); v != "" {
		cfg.Alpaca.Feed = v
	}
	if v := os.Getenv("ALPACA_PAPER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Alpaca.Paper = b
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("MCP_TRANSPORT"); v != "" {
		cfg.MCP.Transport = v
	}
	if v := os.Getenv("MCP_HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	// Standard Alpaca env vars (highest priority, canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// Validate reports the first configuration problem that would prevent the
// server from starting.
func (c *Config) Validate() error {
	if c.Alpaca.Broker != "simulator" {
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			return errors.New("alpaca api key and secret are required")
		}
	}
	switch c.Alpaca.Broker {
	case "alpaca", "simulator":
	default:
		return fmt.Errorf("unknown broker %q", c.Alpaca.Broker)
	}

	switch c.MCP.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unknown transport %q", c.MCP.Transport)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	if c.Trading.MaxOrderQty < 0 {
		return fmt.Errorf("trading.max_order_qty must not be negative, got %v", c.Trading.MaxOrderQty)
	}
	return nil
}
