package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"stockmcp/internal/domain"
)

var errOrderIDRequired = errors.New("order_id is required")

// Orders listed by get-orders.
const (
	ordersStatus = "all"
	ordersLimit  = 10
)

// orderParams are the parameters shared by every order placement tool.
func orderParams(priceParams ...mcp.ToolOption) []mcp.ToolOption {
	opts := []mcp.ToolOption{
		symbolParam(),
		mcp.WithNumber("quantity",
			mcp.Required(),
			mcp.Description("Number of shares"),
		),
		mcp.WithString("side",
			mcp.Required(),
			mcp.Description("Order side"),
			mcp.Enum(string(domain.OrderSideBuy), string(domain.OrderSideSell)),
		),
	}
	opts = append(opts, priceParams...)
	return append(opts, mcp.WithString("time_in_force",
		mcp.Required(),
		mcp.Description("How long the order stays working"),
		mcp.Enum(domain.TimesInForce...),
	))
}

func priceParam(name, desc string) mcp.ToolOption {
	return mcp.WithNumber(name, mcp.Required(), mcp.Description(desc))
}

func orderTool(name, title, desc string, priceParams ...mcp.ToolOption) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(desc),
		mcp.WithTitleAnnotation(title),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	}
	return mcp.NewTool(name, append(opts, orderParams(priceParams...)...)...)
}

func getOrdersTool() mcp.Tool {
	return mcp.NewTool("get-orders",
		mcp.WithDescription("Get all orders (open, filled, canceled)"),
		mcp.WithTitleAnnotation("Get Orders"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func placeOrderTool() mcp.Tool {
	return orderTool("place-order", "Make Order", "Make an order")
}

func placeLimitOrderTool() mcp.Tool {
	return orderTool("place-limit-order", "Place Limit Order", "Place a limit order",
		priceParam("price", "Limit price"))
}

func placeStopOrderTool() mcp.Tool {
	return orderTool("place-stop-order", "Place Stop Order", "Place a stop order",
		priceParam("price", "Stop price"))
}

func placeStopLimitOrderTool() mcp.Tool {
	return orderTool("place-stop-limit-order", "Place Stop Limit Order", "Place a stop limit order",
		priceParam("stop_price", "Stop trigger price"),
		priceParam("limit_price", "Limit price once triggered"))
}

func cancelOrderTool() mcp.Tool {
	return mcp.NewTool("cancel-order",
		mcp.WithDescription("Cancel an order"),
		mcp.WithTitleAnnotation("Cancel Order"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("order_id",
			mcp.Required(),
			mcp.Description("Id of the order to cancel"),
		),
	)
}

func (r *Registry) getOrders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orders, err := r.broker.GetOrders(ctx, ordersStatus, ordersLimit)
	if err != nil {
		return failure("fetching orders", err), nil
	}
	if len(orders) == 0 {
		return mcp.NewToolResultText("No orders found"), nil
	}
	return indentedResult(orders), nil
}

func (r *Registry) placeOrder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return r.submit(ctx, req, domain.OrderTypeMarket)
}

func (r *Registry) placeLimitOrder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return r.submit(ctx, req, domain.OrderTypeLimit)
}

func (r *Registry) placeStopOrder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return r.submit(ctx, req, domain.OrderTypeStop)
}

func (r *Registry) placeStopLimitOrder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return r.submit(ctx, req, domain.OrderTypeStopLimit)
}

func (r *Registry) submit(ctx context.Context, req mcp.CallToolRequest, typ domain.OrderType) (*mcp.CallToolResult, error) {
	order, err := orderRequest(req, typ)
	if err != nil {
		return invalid(err), nil
	}

	placed, err := r.engine.SubmitOrder(ctx, order)
	if err != nil {
		return failure("placing order", err), nil
	}
	r.log.Info("order submitted",
		"id", placed.ID,
		"client_order_id", placed.ClientOrderID,
		"symbol", order.Symbol,
		"type", typ,
	)
	return jsonResult(placed), nil
}

// orderRequest reads the arguments of an order tool. Price arguments are read
// only for the types that take them; validation is left to the engine.
func orderRequest(req mcp.CallToolRequest, typ domain.OrderType) (domain.OrderRequest, error) {
	symbol, err := requireSymbol(req)
	if err != nil {
		return domain.OrderRequest{}, err
	}
	qty, err := req.RequireFloat("quantity")
	if err != nil {
		return domain.OrderRequest{}, err
	}
	side, err := req.RequireString("side")
	if err != nil {
		return domain.OrderRequest{}, err
	}
	tif, err := req.RequireString("time_in_force")
	if err != nil {
		return domain.OrderRequest{}, err
	}

	order := domain.OrderRequest{
		Symbol:      symbol,
		Qty:         qty,
		Side:        domain.OrderSide(side),
		Type:        typ,
		TimeInForce: domain.TimeInForce(tif),
	}

	switch typ {
	case domain.OrderTypeLimit:
		if order.LimitPrice, err = req.RequireFloat("price"); err != nil {
			return domain.OrderRequest{}, err
		}
	case domain.OrderTypeStop:
		if order.StopPrice, err = req.RequireFloat("price"); err != nil {
			return domain.OrderRequest{}, err
		}
	case domain.OrderTypeStopLimit:
		if order.StopPrice, err = req.RequireFloat("stop_price"); err != nil {
			return domain.OrderRequest{}, err
		}
		if order.LimitPrice, err = req.RequireFloat("limit_price"); err != nil {
			return domain.OrderRequest{}, err
		}
	}
	return order, nil
}

// cancelOrder acknowledges the request; the upstream returns no body.
func (r *Registry) cancelOrder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("order_id")
	if err != nil {
		return invalid(err), nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid(errOrderIDRequired), nil
	}
	if err := r.engine.CancelOrder(ctx, id); err != nil {
		return failure("canceling order "+id, err), nil
	}
	r.log.Info("order cancel requested", "id", id)
	return jsonResult(struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	}{OrderID: id, Status: "cancel_requested"}), nil
}
