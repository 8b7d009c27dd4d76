// Package order is the downstream boundary of checkout: once a session
// reaches its terminal step, the cart snapshot is handed here exactly once.
package order

import (
	"context"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

type ShippingInfo struct {
	FullName   string `json:"full_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// PaymentResult is what the payment provider handed back; the core never
// sees card data.
type PaymentResult struct {
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
}

type Creator interface {
	CreateOrder(ctx context.Context, snapshot *domain.Cart, shipping ShippingInfo, payment PaymentResult) (string, error)
}
