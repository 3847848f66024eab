// Package money holds the decimal helpers shared by pricing, the cart and the
// sale workflow. All amounts are kept as shopspring decimals and rounded to
// two places only at the boundaries that display or transmit them.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const Places int32 = 2

var hundred = decimal.NewFromInt(100)

// Round rounds half away from zero to two decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Parse reads a decimal amount from its wire representation.
func Parse(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return d, nil
}

// Clamp bounds d to [lo, hi].
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// Split is a tax-inclusive amount broken into its net and tax parts.
type Split struct {
	Gross decimal.Decimal `json:"gross"`
	Net   decimal.Decimal `json:"net"`
	Tax   decimal.Decimal `json:"tax"`
}

// SplitInclusive extracts the tax contained in a gross amount at the given
// percentage rate: tax = gross*rate/(100+rate), net = gross*100/(100+rate).
// A non-positive rate yields no tax.
func SplitInclusive(gross, ratePercent decimal.Decimal) Split {
	if !ratePercent.IsPositive() {
		return Split{Gross: gross, Net: gross, Tax: decimal.Zero}
	}
	divisor := hundred.Add(ratePercent)
	tax := Round(gross.Mul(ratePercent).Div(divisor))
	return Split{
		Gross: gross,
		Net:   gross.Sub(tax),
		Tax:   tax,
	}
}
