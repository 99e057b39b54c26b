package domain

import "github.com/shopspring/decimal"

// Availability is the derived storefront state of a product.
type Availability string

const (
	Available  Availability = "available"
	OutOfStock Availability = "out-of-stock"
)

// DeriveAvailability reports available only for an enabled product with stock.
func DeriveAvailability(enabled bool, stock int) Availability {
	if enabled && stock > 0 {
		return Available
	}
	return OutOfStock
}

var hundred = decimal.NewFromInt(100)

// DiscountPercent computes (mrp-price)/mrp*100. ok is false when mrp is not
// positive, price is negative or price exceeds mrp.
func DiscountPercent(mrp, price decimal.Decimal) (percent decimal.Decimal, ok bool) {
	if !mrp.IsPositive() || price.IsNegative() || mrp.LessThan(price) {
		return decimal.Zero, false
	}
	percent = mrp.Sub(price).Div(mrp).Mul(hundred)
	if percent.IsNegative() {
		percent = decimal.Zero
	}
	return percent, true
}
