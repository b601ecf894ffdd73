package service

import (
	"github.com/kopikita-pos/api/internal/model"
	"github.com/shopspring/decimal"
)

// Pricing is the financial result of pricing an order at creation time.
type Pricing struct {
	Subtotal float64
	Total    float64
}

// PriceOrder computes subtotal and total for a set of line items. Pure: no
// rounding is applied here, currency rounding happens only in aggregated
// reporting. The discount is subtracted only when positive; it is otherwise
// unvalidated, so a discount larger than the subtotal yields a negative total.
func PriceOrder(items []model.LineItem, discount float64) Pricing {
	subtotal := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
	}

	total := subtotal
	if discount > 0 {
		total = subtotal.Sub(decimal.NewFromFloat(discount))
	}

	sub, _ := subtotal.Float64()
	tot, _ := total.Float64()
	return Pricing{Subtotal: sub, Total: tot}
}
