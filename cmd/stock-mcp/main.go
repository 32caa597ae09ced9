package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"stockmcp/internal/broker"
	"stockmcp/internal/config"
	"stockmcp/internal/engine"
	"stockmcp/internal/tools"
	"stockmcp/internal/util"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stock-mcp",
		Short:         "MCP tool server for Alpaca brokerage operations",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadDotEnv(".env")
		},
	}

	serve := newServeCmd()
	root.AddCommand(serve, newToolsCmd(), newCallCmd(), newVersionCmd())

	// Running without a subcommand serves.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stock-mcp %s\n", version)
		},
	}
}

// loadDotEnv loads KEY=VALUE pairs from path into the environment. A missing
// file is not an error; variables already set win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// configPath returns the flag value, falling back to STOCK_MCP_CONFIG.
func configPath(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("STOCK_MCP_CONFIG")
}

// newBroker selects the broker implementation named in the config.
func newBroker(cfg *config.Config) (broker.Broker, error) {
	switch cfg.Alpaca.Broker {
	case "simulator":
		return broker.NewSimulatorBroker(), nil
	case "alpaca", "":
		return broker.NewAlpacaBroker(broker.AlpacaOptions{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
			BaseURL:   cfg.Alpaca.BaseURL,
			DataURL:   cfg.Alpaca.DataURL,
			Feed:      cfg.Alpaca.Feed,
		}), nil
	default:
		return nil, fmt.Errorf("unknown broker %q", cfg.Alpaca.Broker)
	}
}

// newRegistry wires a broker, the order engine and the tool registry.
func newRegistry(cfg *config.Config, b broker.Broker, log *slog.Logger) *tools.Registry {
	eng := engine.NewEngine(b, engine.NewRiskManager(cfg.Trading.MaxOrderQty), cfg.Trading.ClientIDPrefix)
	return tools.NewRegistry(b, eng, tools.Options{
		ReadOnly: cfg.Trading.ReadOnly,
		Logger:   log,
	})
}

func newLogger(cfg *config.Config) *slog.Logger {
	return util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
}
