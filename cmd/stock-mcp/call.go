package main

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"stockmcp/pkg/stockmcp"
)

func newCallCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "call <tool> [key=value...]",
		Short: "Call a tool on a running HTTP server",
		Example: "  stock-mcp call get-stock-price symbol=AAPL\n" +
			"  stock-mcp call place-limit-order symbol=AAPL quantity=1 side=buy price=150 time_in_force=day",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(contextOrBackground(cmd.Context()), timeout)
			defer cancel()

			c := stockmcp.NewClient(url)
			defer c.Close()

			tools, err := c.ListTools(ctx)
			if err != nil {
				return err
			}
			tool, ok := findTool(tools, args[0])
			if !ok {
				return fmt.Errorf("unknown tool %q", args[0])
			}

			toolArgs, err := parseToolArgs(args[1:], tool.InputSchema.Properties)
			if err != nil {
				return err
			}

			text, err := c.CallText(ctx, tool.Name, toolArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8080/mcp", "MCP endpoint URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "call timeout")
	return cmd
}

func findTool(tools []mcp.Tool, name string) (mcp.Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return mcp.Tool{}, false
}

// parseToolArgs turns key=value pairs into tool arguments, typed by the tool's
// input schema. Properties declared as strings are always sent as strings and
// declared numbers must parse as finite numbers. Undeclared keys are sent as
// numbers when they look like one.
func parseToolArgs(pairs []string, props map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not key=value", p)
		}

		switch propertyType(props, k) {
		case "string":
			out[k] = v
		case "number", "integer":
			f, ok := parseFinite(v)
			if !ok {
				return nil, fmt.Errorf("argument %q must be a number, got %q", k, v)
			}
			out[k] = f
		default:
			if f, ok := parseFinite(v); ok {
				out[k] = f
				continue
			}
			out[k] = v
		}
	}
	return out, nil
}

// propertyType returns the JSON schema type declared for key, or "".
func propertyType(props map[string]any, key string) string {
	prop, ok := props[key].(map[string]any)
	if !ok {
		return ""
	}
	typ, _ := prop["type"].(string)
	return typ
}

// parseFinite parses v as a float, rejecting NaN and infinities which JSON
// cannot carry.
func parseFinite(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
