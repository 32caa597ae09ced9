package engine

import (
	"fmt"

	"stockmcp/internal/domain"
)

// RiskManager enforces pre-trade limits on order size.
type RiskManager struct {
	maxOrderQty float64
}

// NewRiskManager creates a RiskManager. maxOrderQty caps the quantity of a
// single order; zero disables the check.
func NewRiskManager(maxOrderQty float64) *RiskManager {
	return &RiskManager{maxOrderQty: maxOrderQty}
}

// CheckOrder rejects orders above the configured quantity cap. A nil
// RiskManager accepts everything.
func (rm *RiskManager) CheckOrder(order *domain.OrderRequest) error {
	if rm == nil || rm.maxOrderQty == 0 {
		return nil
	}
	if order.Qty > rm.maxOrderQty {
		return fmt.Errorf("quantity %v exceeds the configured maximum of %v", order.Qty, rm.maxOrderQty)
	}
	return nil
}
