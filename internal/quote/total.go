package quote

import (
	"fmt"
	"math"

	"github.com/cockroachdb/apd/v3"
)

// LineItem is the wire shape accepted by the total calculator.
type LineItem struct {
	UnitPrice float64 `json:"unit_price"`
	Quantity  float64 `json:"quantity"`
}

// Total sums unit_price*quantity over items and rounds the result half-up on
// the cent. Arithmetic runs in decimal, not binary floating point, so inputs
// like 10.005 round the way an invoice reader expects.
func Total(items []LineItem) (float64, int, error) {
	ctx := apd.BaseContext.WithPrecision(30)
	ctx.Rounding = apd.RoundHalfUp

	sum := new(apd.Decimal)
	for i, it := range items {
		if math.IsNaN(it.UnitPrice) || math.IsInf(it.UnitPrice, 0) ||
			math.IsNaN(it.Quantity) || math.IsInf(it.Quantity, 0) {
			return 0, 0, fmt.Errorf("item %d: unit_price and quantity must be finite numbers", i)
		}
		price := new(apd.Decimal)
		if _, err := price.SetFloat64(it.UnitPrice); err != nil {
			return 0, 0, fmt.Errorf("item %d: invalid unit_price: %w", i, err)
		}
		qty := new(apd.Decimal)
		if _, err := qty.SetFloat64(it.Quantity); err != nil {
			return 0, 0, fmt.Errorf("item %d: invalid quantity: %w", i, err)
		}
		line := new(apd.Decimal)
		if _, err := ctx.Mul(line, price, qty); err != nil {
			return 0, 0, fmt.Errorf("item %d: multiply: %w", i, err)
		}
		if _, err := ctx.Add(sum, sum, line); err != nil {
			return 0, 0, fmt.Errorf("item %d: accumulate: %w", i, err)
		}
	}

	if _, err := ctx.Quantize(sum, sum, -2); err != nil {
		return 0, 0, fmt.Errorf("round total: %w", err)
	}
	total, err := sum.Float64()
	if err != nil {
		return 0, 0, fmt.Errorf("total out of range: %w", err)
	}
	return total, len(items), nil
}
