// Package pricing implements per-line discount and subtotal calculation.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported discount variants.
type DiscountType string

const (
	// DiscountNone applies no discount.
	DiscountNone DiscountType = "NONE"
	// DiscountPercent reduces the line subtotal by a percentage in [0, 100].
	DiscountPercent DiscountType = "PERCENT"
	// DiscountAmount subtracts a currency amount from the line subtotal.
	DiscountAmount DiscountType = "AMOUNT"
)

// Discount pairs a discount variant with its value. The value is a
// percentage for PERCENT, a currency amount for AMOUNT and ignored for NONE.
type Discount struct {
	Type  DiscountType
	Value decimal.Decimal
}

// None returns the zero discount.
func None() Discount {
	return Discount{Type: DiscountNone}
}

var (
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = errors.New("pricing: quantity must be positive")
	// ErrInvalidPrice indicates a negative unit price.
	ErrInvalidPrice = errors.New("pricing: unit price must be >= 0")
	// ErrInvalidDiscount indicates a discount outside its allowed range.
	ErrInvalidDiscount = errors.New("pricing: discount out of range")
)

var hundred = decimal.NewFromInt(100)

// Valid reports whether t names a known discount variant.
func (t DiscountType) Valid() bool {
	switch t {
	case DiscountNone, DiscountPercent, DiscountAmount:
		return true
	}
	return false
}

// Apply computes the final per-unit price and line subtotal for a quantity
// sold at unitPrice under the given discount. Currency values carry two
// decimal places; the per-unit price is rounded once so that
// finalUnit * quantity reconstructs the returned subtotal exactly.
func Apply(unitPrice decimal.Decimal, quantity int, d Discount) (finalUnit, subtotal decimal.Decimal, err error) {
	if quantity < 1 {
		return decimal.Zero, decimal.Zero, ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return decimal.Zero, decimal.Zero, ErrInvalidPrice
	}

	qty := decimal.NewFromInt(int64(quantity))
	gross := unitPrice.Mul(qty)

	var raw decimal.Decimal
	switch d.Type {
	case DiscountNone:
		raw = gross
	case DiscountPercent:
		if d.Value.IsNegative() || d.Value.GreaterThan(hundred) {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: percent %s not in [0, 100]", ErrInvalidDiscount, d.Value)
		}
		raw = gross.Mul(hundred.Sub(d.Value)).Div(hundred)
	case DiscountAmount:
		if d.Value.IsNegative() || d.Value.GreaterThan(gross) {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: amount %s exceeds line subtotal %s", ErrInvalidDiscount, d.Value, gross)
		}
		raw = gross.Sub(d.Value)
	default:
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: unknown type %q", ErrInvalidDiscount, d.Type)
	}

	finalUnit = raw.DivRound(qty, 2)
	subtotal = finalUnit.Mul(qty)
	return finalUnit, subtotal, nil
}
