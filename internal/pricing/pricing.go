// Package pricing computes discounted unit prices and line totals.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/domain"
)

var one = decimal.NewFromInt(1)

// DiscountedUnitPrice returns basePrice × (1 − discountFraction).
// The fraction must lie in [0, 1].
func DiscountedUnitPrice(basePrice, discountFraction decimal.Decimal) (decimal.Decimal, error) {
	if basePrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: base price %s is negative", domain.ErrInvalidArgument, basePrice)
	}
	if discountFraction.IsNegative() || discountFraction.GreaterThan(one) {
		return decimal.Zero, fmt.Errorf("%w: discount %s outside [0, 1]", domain.ErrInvalidArgument, discountFraction)
	}
	return basePrice.Mul(one.Sub(discountFraction)), nil
}

func LineTotal(unitPrice decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, fmt.Errorf("%w: quantity %d must be positive", domain.ErrInvalidArgument, quantity)
	}
	if unitPrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: unit price %s is negative", domain.ErrInvalidArgument, unitPrice)
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))), nil
}
