// Package pricing resolves the price of one unit of a product under a pricing
// mode. Standard prices are taken from the stock snapshot as reported by the
// server. Wholesale prices are derived from the product's base price pair so
// that the wholesale to standard ratio is the same for every unit.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/internal/catalog"
	"github.com/angelmondragon/beverage-pos/internal/snapshot"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
	"github.com/angelmondragon/beverage-pos/pkg/money"
)

// BasePrice returns the product's base-unit price for mode. A product
// without a wholesale price falls back to its standard price.
func BasePrice(product catalog.Product, mode enums.PricingMode) decimal.Decimal {
	if mode == enums.PricingModeWholesale && product.HasWholesale() {
		return product.WholesalePrice.Decimal
	}
	return product.StandardPrice
}

// UnitPrice resolves the price of one unit under mode. It always returns a
// usable, non-negative price.
func UnitPrice(product catalog.Product, unit snapshot.UnitStock, mode enums.PricingMode) decimal.Decimal {
	price := resolve(product, unit, mode)
	if !price.IsPositive() {
		return BasePrice(product, mode)
	}
	return price
}

func resolve(product catalog.Product, unit snapshot.UnitStock, mode enums.PricingMode) decimal.Decimal {
	standardUnit := unit.Price
	if !standardUnit.IsPositive() {
		return decimal.Zero
	}
	if mode != enums.PricingModeWholesale || !product.HasWholesale() {
		return standardUnit
	}

	standardBase := product.StandardPrice
	if !standardBase.IsPositive() {
		return standardUnit
	}
	wholesaleBase := product.WholesalePrice.Decimal
	ratio := wholesaleBase.Div(standardBase)

	var wholesale decimal.Decimal
	if unit.IsBaseUnit {
		wholesale = standardBase.Mul(ratio)
	} else {
		// Effective factor comes from the snapshot's price, not the nominal
		// conversion factor.
		unitRatio := standardUnit.Div(standardBase)
		wholesale = wholesaleBase.Mul(unitRatio)
	}

	wholesale = money.Round(wholesale)
	if wholesale.IsNegative() {
		return standardUnit
	}
	return wholesale
}
