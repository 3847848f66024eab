package catalog

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

// Product is the read-only catalog view of a sellable item. Stock mirrors the
// server's on-hand quantity in base units at catalog load time.
type Product struct {
	ID             int64
	Name           string
	SKU            string
	CategoryID     int64
	BaseUnit       Unit
	StandardPrice  decimal.Decimal
	WholesalePrice decimal.NullDecimal
	Stock          decimal.Decimal
	TaxRate        decimal.Decimal
	PackagingPrice decimal.NullDecimal
	IsActive       bool
	Units          *ConversionTable
}

// HasWholesale reports whether a positive wholesale base price is set.
func (p Product) HasWholesale() bool {
	return p.WholesalePrice.Valid && p.WholesalePrice.Decimal.IsPositive()
}

// HasPackaging reports whether the product carries a packaging deposit.
func (p Product) HasPackaging() bool {
	return p.PackagingPrice.Valid && p.PackagingPrice.Decimal.IsPositive()
}

// NewProduct validates the compatible units and attaches the conversion table.
func NewProduct(p Product, units []CompatibleUnit) (Product, error) {
	if p.ID == 0 {
		return Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if p.StandardPrice.IsNegative() {
		return Product{}, pkgerrors.New(pkgerrors.CodeValidation, "standard price must not be negative").
			WithDetails(map[string]any{"product_id": p.ID})
	}
	table, err := NewConversionTable(p.ID, p.BaseUnit, units)
	if err != nil {
		return Product{}, err
	}
	p.Units = table
	return p, nil
}
