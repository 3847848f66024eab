package snapshot

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitStock is the server's unreserved view of one unit of a product.
type UnitStock struct {
	UnitID            int64           `json:"id"`
	Name              string          `json:"name"`
	Symbol            string          `json:"symbol"`
	Price             decimal.Decimal `json:"price"`
	IsBaseUnit        bool            `json:"is_base_unit"`
	ConversionFactor  decimal.Decimal `json:"conversion_factor"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	IsAvailable       bool            `json:"is_available"`
}

// ProductSnapshot is the stock of one product as reported at FetchedAt.
type ProductSnapshot struct {
	ProductID   int64       `json:"product_id"`
	ProductName string      `json:"product_name"`
	BaseUnitID  int64       `json:"base_unit_id"`
	Units       []UnitStock `json:"available_units"`
	FetchedAt   time.Time   `json:"fetched_at"`
}

// Stock returns the on-hand quantity in base units.
func (p ProductSnapshot) Stock() decimal.Decimal {
	if base, ok := p.BaseUnit(); ok {
		return base.AvailableQuantity
	}
	return decimal.Zero
}

// BaseUnit returns the base-unit entry.
func (p ProductSnapshot) BaseUnit() (UnitStock, bool) {
	for _, u := range p.Units {
		if u.IsBaseUnit || (p.BaseUnitID != 0 && u.UnitID == p.BaseUnitID) {
			return u, true
		}
	}
	return UnitStock{}, false
}

// Unit returns the entry for unitID.
func (p ProductSnapshot) Unit(unitID int64) (UnitStock, bool) {
	for _, u := range p.Units {
		if u.UnitID == unitID {
			return u, true
		}
	}
	return UnitStock{}, false
}
