package models

import "github.com/shopspring/decimal"

// Pricing holds the shipping and tax rules applied when an order is placed.
type Pricing struct {
	TaxRate               float64
	ShippingFlat          float64
	FreeShippingThreshold float64
}

// Totals are the computed money fields of an order, rounded to cents.
type Totals struct {
	Subtotal     float64
	ShippingCost float64
	Tax          float64
	Total        float64
}

var hundred = decimal.NewFromInt(100)

// Compute sums the line items and applies shipping and tax.
func (p Pricing) Compute(items []OrderItem) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)

	shipping := decimal.NewFromFloat(p.ShippingFlat)
	if p.FreeShippingThreshold > 0 && subtotal.GreaterThanOrEqual(decimal.NewFromFloat(p.FreeShippingThreshold)) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(decimal.NewFromFloat(p.TaxRate)).Round(2)
	total := subtotal.Add(shipping).Add(tax)

	return Totals{
		Subtotal:     subtotal.InexactFloat64(),
		ShippingCost: shipping.Round(2).InexactFloat64(),
		Tax:          tax.InexactFloat64(),
		Total:        total.Round(2).InexactFloat64(),
	}
}

// ToMinorUnits converts a currency amount to its smallest unit (cents).
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}
