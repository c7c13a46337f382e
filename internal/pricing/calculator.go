// Package pricing computes what a customer pays for a product.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// EffectivePrice applies discount (a percentage) to base and rounds to cents.
// A present discount applies whether or not the product is flagged on sale;
// onSale only decides membership in the sale listing. Out-of-range discounts
// are applied as given.
func EffectivePrice(base decimal.Decimal, onSale bool, discount *decimal.Decimal) decimal.Decimal {
	if discount == nil {
		return base.Round(2)
	}
	factor := decimal.NewFromInt(1).Sub(discount.Div(hundred))
	return base.Mul(factor).Round(2)
}
