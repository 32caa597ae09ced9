package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"stockmcp/internal/broker"
	"stockmcp/internal/config"
)

func newToolsCmd() *cobra.Command {
	var cfgFlag string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the server registers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath(cfgFlag))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			printTools(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgFlag, "config", "", "path to YAML config (default $STOCK_MCP_CONFIG)")
	return cmd
}

// printTools lists tool names and descriptions. Definitions do not depend on
// the broker, so the simulator stands in and no credentials are needed.
func printTools(w io.Writer, cfg *config.Config) {
	reg := newRegistry(cfg, broker.NewSimulatorBroker(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, t := range reg.Tools() {
		table.Append([]string{t.Tool.Name, t.Tool.Description})
	}
	table.Render()
}
