package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func getAccountTool() mcp.Tool {
	return mcp.NewTool("get-account",
		mcp.WithDescription("Get the account information"),
		mcp.WithTitleAnnotation("Get Account"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func getCashTool() mcp.Tool {
	return mcp.NewTool("get-cash",
		mcp.WithDescription("Get the cash information"),
		mcp.WithTitleAnnotation("Get Cash"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func getPortfolioValueTool() mcp.Tool {
	return mcp.NewTool("get-portfolio-value",
		mcp.WithDescription("Get the portfolio value"),
		mcp.WithTitleAnnotation("Get Portfolio Value"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (r *Registry) getAccount(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	acct, err := r.broker.GetAccount(ctx)
	if err != nil {
		return failure("fetching account", err), nil
	}
	return jsonResult(acct), nil
}

// getCash returns the balance as a JSON string such as "100000 USD".
func (r *Registry) getCash(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	acct, err := r.broker.GetAccount(ctx)
	if err != nil {
		return failure("fetching cash", err), nil
	}
	return jsonResult(acct.Cash.String() + " " + acct.Currency), nil
}

func (r *Registry) getPortfolioValue(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	acct, err := r.broker.GetAccount(ctx)
	if err != nil {
		return failure("fetching portfolio value", err), nil
	}
	return jsonResult(acct.PortfolioValue.String()), nil
}
