package catalog

import (
	"sort"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

// Unit is a measurement unit a product can be sold in.
type Unit struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	IsBaseUnit bool   `json:"is_base_unit"`
}

// CompatibleUnit links a product to a unit. One unit of it equals
// ConversionFactor base units.
type CompatibleUnit struct {
	ProductID        int64           `json:"product_id"`
	Unit             Unit            `json:"unit"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	IsDefault        bool            `json:"is_default"`
	IsActive         bool            `json:"is_active"`
}

// Validate rejects non-positive factors and base units whose factor is not 1.
func (cu CompatibleUnit) Validate() error {
	if !cu.ConversionFactor.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "conversion factor must be positive").
			WithDetails(map[string]any{"product_id": cu.ProductID, "unit_id": cu.Unit.ID, "conversion_factor": cu.ConversionFactor.String()})
	}
	if cu.Unit.IsBaseUnit && !cu.ConversionFactor.Equal(decimal.NewFromInt(1)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "base unit conversion factor must be 1").
			WithDetails(map[string]any{"product_id": cu.ProductID, "unit_id": cu.Unit.ID, "conversion_factor": cu.ConversionFactor.String()})
	}
	return nil
}

// ConversionTable is the immutable per-product unit to base-unit mapping.
type ConversionTable struct {
	productID  int64
	baseUnitID int64
	entries    map[int64]CompatibleUnit
	order      []int64
}

// NewConversionTable validates units and builds the table. The base unit is
// always present with factor 1, synthesized when the input omits it. Inactive
// units are skipped.
func NewConversionTable(productID int64, base Unit, units []CompatibleUnit) (*ConversionTable, error) {
	if base.ID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no base unit").
			WithDetails(map[string]any{"product_id": productID})
	}
	base.IsBaseUnit = true

	t := &ConversionTable{
		productID:  productID,
		baseUnitID: base.ID,
		entries:    make(map[int64]CompatibleUnit, len(units)+1),
	}

	defaults := 0
	for _, cu := range units {
		if !cu.IsActive {
			continue
		}
		cu.ProductID = productID
		if cu.Unit.ID == base.ID {
			cu.Unit.IsBaseUnit = true
		} else if cu.Unit.IsBaseUnit {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "only the product base unit may be flagged as base").
				WithDetails(map[string]any{"product_id": productID, "unit_id": cu.Unit.ID})
		}
		if err := cu.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t.entries[cu.Unit.ID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate compatible unit").
				WithDetails(map[string]any{"product_id": productID, "unit_id": cu.Unit.ID})
		}
		if cu.IsDefault {
			defaults++
		}
		t.entries[cu.Unit.ID] = cu
		t.order = append(t.order, cu.Unit.ID)
	}
	if defaults > 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "more than one default unit").
			WithDetails(map[string]any{"product_id": productID, "defaults": defaults})
	}

	if _, ok := t.entries[base.ID]; !ok {
		t.entries[base.ID] = CompatibleUnit{
			ProductID:        productID,
			Unit:             base,
			ConversionFactor: decimal.NewFromInt(1),
			IsActive:         true,
		}
		t.order = append(t.order, base.ID)
	}

	// base first, then ascending factor
	sort.SliceStable(t.order, func(i, j int) bool {
		a, b := t.entries[t.order[i]], t.entries[t.order[j]]
		if a.Unit.IsBaseUnit != b.Unit.IsBaseUnit {
			return a.Unit.IsBaseUnit
		}
		return a.ConversionFactor.LessThan(b.ConversionFactor)
	})
	return t, nil
}

func (t *ConversionTable) ProductID() int64  { return t.productID }
func (t *ConversionTable) BaseUnitID() int64 { return t.baseUnitID }

// Factor returns the unit's conversion factor to the base unit.
func (t *ConversionTable) Factor(unitID int64) (decimal.Decimal, bool) {
	cu, ok := t.entries[unitID]
	if !ok {
		return decimal.Zero, false
	}
	return cu.ConversionFactor, true
}

// IsBase reports whether unitID is the product's base unit.
func (t *ConversionTable) IsBase(unitID int64) bool {
	return unitID == t.baseUnitID
}

// Unit returns the compatible unit entry for unitID.
func (t *ConversionTable) Unit(unitID int64) (CompatibleUnit, bool) {
	cu, ok := t.entries[unitID]
	return cu, ok
}

// Units returns every compatible unit, base unit first.
func (t *ConversionTable) Units() []CompatibleUnit {
	out := make([]CompatibleUnit, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.entries[id])
	}
	return out
}

// DefaultUnit picks the default-flagged unit, else the base unit, else the
// first unit.
func (t *ConversionTable) DefaultUnit() CompatibleUnit {
	for _, id := range t.order {
		if t.entries[id].IsDefault {
			return t.entries[id]
		}
	}
	if base, ok := t.entries[t.baseUnitID]; ok {
		return base
	}
	return t.entries[t.order[0]]
}

// ToBase converts a quantity in unitID into base units.
func (t *ConversionTable) ToBase(unitID int64, qty decimal.Decimal) (decimal.Decimal, error) {
	factor, ok := t.Factor(unitID)
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "unit is not compatible with product").
			WithDetails(map[string]any{"product_id": t.productID, "unit_id": unitID})
	}
	return qty.Mul(factor), nil
}
