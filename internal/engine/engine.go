// Package engine sits between the order tools and the broker: it validates
// order requests, applies the risk check and tags orders with a client id.
package engine

import (
	"context"
	"errors"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/google/uuid"

	"stockmcp/internal/broker"
	"stockmcp/internal/domain"
)

// Engine forwards order mutations to a broker after pre-trade checks.
type Engine struct {
	broker         broker.Broker
	riskChecker    *RiskManager
	clientIDPrefix string
}

// NewEngine creates a new Engine wired with the given dependencies.
// clientIDPrefix may be empty, in which case generated ids are bare UUIDs.
func NewEngine(b broker.Broker, riskChecker *RiskManager, clientIDPrefix string) *Engine {
	return &Engine{
		broker:         b,
		riskChecker:    riskChecker,
		clientIDPrefix: clientIDPrefix,
	}
}

// SubmitOrder validates the order, checks it against risk rules, assigns a
// client order id when none is set, and submits it to the broker.
func (e *Engine) SubmitOrder(ctx context.Context, order domain.OrderRequest) (*alpaca.Order, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if err := e.riskChecker.CheckOrder(&order); err != nil {
		return nil, err
	}

	if order.ClientOrderID == "" {
		order.ClientOrderID = e.newClientOrderID()
	}

	return e.broker.PlaceOrder(ctx, order)
}

// CancelOrder requests cancellation of an open order.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return errors.New("order id is required")
	}
	return e.broker.CancelOrder(ctx, orderID)
}

func (e *Engine) newClientOrderID() string {
	id := uuid.NewString()
	if e.clientIDPrefix == "" {
		return id
	}
	return e.clientIDPrefix + "-" + id
}
