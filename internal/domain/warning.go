package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type WarningType string

const (
	WarningPriceChanged   WarningType = "price_changed"
	WarningOutOfStock     WarningType = "out_of_stock"
	WarningQuantityCapped WarningType = "quantity_capped"
)

// CartWarning is derived state: recomputed from the cart and the latest
// product data, never persisted.
type CartWarning struct {
	Type     WarningType `json:"type"`
	ItemKey  string      `json:"item_key"`
	Message  string      `json:"message"`
	Previous string      `json:"previous"`
	Current  string      `json:"current"`
}

// ProductSnapshot is the catalog's current view of one product variant.
type ProductSnapshot struct {
	Price decimal.Decimal
	Stock int32
}

// ComputeWarnings compares each cart line against the latest product
// snapshot. Lines with no snapshot produce nothing: missing data is not
// evidence of unavailability. Output order follows cart item order, so
// identical inputs always yield identical output.
func ComputeWarnings(cart *Cart, snapshots map[ItemKey]ProductSnapshot) []CartWarning {
	var warnings []CartWarning
	for _, item := range cart.Items {
		snap, ok := snapshots[item.Key()]
		if !ok {
			continue
		}

		if snap.Stock < item.Quantity {
			if snap.Stock > 0 {
				warnings = append(warnings, CartWarning{
					Type:     WarningQuantityCapped,
					ItemKey:  item.Key().String(),
					Message:  fmt.Sprintf("only %d of %q available, quantity reduced", snap.Stock, item.ProductName),
					Previous: fmt.Sprint(item.Quantity),
					Current:  fmt.Sprint(snap.Stock),
				})
			} else {
				warnings = append(warnings, CartWarning{
					Type:     WarningOutOfStock,
					ItemKey:  item.Key().String(),
					Message:  fmt.Sprintf("%q is out of stock", item.ProductName),
					Previous: fmt.Sprint(item.Quantity),
					Current:  "0",
				})
			}
		}

		if !snap.Price.Equal(item.UnitPrice) {
			warnings = append(warnings, CartWarning{
				Type:     WarningPriceChanged,
				ItemKey:  item.Key().String(),
				Message:  fmt.Sprintf("price of %q changed from %s to %s", item.ProductName, item.UnitPrice, snap.Price),
				Previous: item.UnitPrice.String(),
				Current:  snap.Price.String(),
			})
		}
	}
	return warnings
}
