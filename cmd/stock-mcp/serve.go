package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stockmcp/internal/api"
	"stockmcp/internal/config"
	"stockmcp/internal/util"
)

type serveFlags struct {
	config    string
	transport string
	addr      string
	logLevel  string
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the brokerage tools over MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServeConfig(f)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&f.config, "config", "", "path to YAML config (default $STOCK_MCP_CONFIG)")
	cmd.Flags().StringVar(&f.transport, "transport", "", "transport: stdio or http")
	cmd.Flags().StringVar(&f.addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	return cmd
}

// loadServeConfig layers flags over file and environment configuration.
func loadServeConfig(f serveFlags) (*config.Config, error) {
	cfg, err := config.Load(configPath(f.config))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if f.transport != "" {
		cfg.MCP.Transport = f.transport
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(cfg)
	util.SetDefault(logger)

	b, err := newBroker(cfg)
	if err != nil {
		return err
	}
	reg := newRegistry(cfg, b, logger)

	logger.Info("starting stock MCP server",
		"version", version,
		"broker", b.Name(),
		"transport", cfg.MCP.Transport,
		"read_only", cfg.Trading.ReadOnly,
		"paper", cfg.Alpaca.Paper,
	)
	return api.NewServer(cfg, reg, logger).ListenAndServe(ctx)
}
