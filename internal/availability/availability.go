// Package availability computes how much of each unit of a product can still
// be sold given the last stock snapshot and the reservations held by a cart.
//
// Every unit draws from one base-unit pool: reserving cartons reduces the
// pieces that remain, and the other way round. Results are recomputed on
// every call and never cached.
package availability

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/internal/catalog"
	"github.com/angelmondragon/beverage-pos/internal/snapshot"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

// Reservation is a quantity of one unit held by the cart.
type Reservation struct {
	UnitID   int64
	Quantity decimal.Decimal
}

// UnitAvailability is the still purchasable quantity of one unit.
type UnitAvailability struct {
	UnitID            int64           `json:"unit_id"`
	Name              string          `json:"name"`
	Symbol            string          `json:"symbol"`
	IsBaseUnit        bool            `json:"is_base_unit"`
	ConversionFactor  decimal.Decimal `json:"conversion_factor"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	IsAvailable       bool            `json:"is_available"`
}

// Result is the availability of every unit of one product.
type Result struct {
	ProductID     int64              `json:"product_id"`
	Stock         decimal.Decimal    `json:"stock"`
	ReservedBase  decimal.Decimal    `json:"reserved_base"`
	RemainingBase decimal.Decimal    `json:"remaining_base"`
	Units         []UnitAvailability `json:"units"`
}

// ForUnit returns the entry for unitID.
func (r Result) ForUnit(unitID int64) (UnitAvailability, bool) {
	for _, u := range r.Units {
		if u.UnitID == unitID {
			return u, true
		}
	}
	return UnitAvailability{}, false
}

// Compute applies reservations to the snapshot. Units the conversion table
// does not know are reported unavailable and their reservations are ignored.
func Compute(snap snapshot.ProductSnapshot, table *catalog.ConversionTable, reservations []Reservation) Result {
	stock := snap.Stock()
	if stock.IsNegative() {
		stock = decimal.Zero
	}

	reserved := decimal.Zero
	for _, r := range reservations {
		factor, ok := table.Factor(r.UnitID)
		if !ok || !r.Quantity.IsPositive() {
			continue
		}
		reserved = reserved.Add(r.Quantity.Mul(factor))
	}

	remaining := stock.Sub(reserved)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	res := Result{
		ProductID:     table.ProductID(),
		Stock:         stock,
		ReservedBase:  reserved,
		RemainingBase: remaining,
	}

	seen := make(map[int64]struct{})
	for _, cu := range table.Units() {
		seen[cu.Unit.ID] = struct{}{}
		qty := remaining
		if !table.IsBase(cu.Unit.ID) {
			qty = remaining.Div(cu.ConversionFactor).Floor()
		}
		res.Units = append(res.Units, UnitAvailability{
			UnitID:            cu.Unit.ID,
			Name:              cu.Unit.Name,
			Symbol:            cu.Unit.Symbol,
			IsBaseUnit:        table.IsBase(cu.Unit.ID),
			ConversionFactor:  cu.ConversionFactor,
			AvailableQuantity: qty,
			IsAvailable:       qty.IsPositive(),
		})
	}

	for _, u := range snap.Units {
		if _, ok := seen[u.UnitID]; ok {
			continue
		}
		res.Units = append(res.Units, UnitAvailability{
			UnitID:            u.UnitID,
			Name:              u.Name,
			Symbol:            u.Symbol,
			ConversionFactor:  u.ConversionFactor,
			AvailableQuantity: decimal.Zero,
		})
	}
	return res
}

// SnapshotReader is the read side of the snapshot store.
type SnapshotReader interface {
	Get(productID int64) (snapshot.ProductSnapshot, bool)
}

// Lookup computes availability for a catalog product. It fails with
// STALE_SNAPSHOT while no snapshot was loaded for the product, which callers
// must not confuse with zero stock.
func Lookup(reader SnapshotReader, product catalog.Product, reservations []Reservation) (Result, error) {
	snap, ok := reader.Get(product.ID)
	if !ok {
		return Result{}, StaleSnapshot(product.ID)
	}
	return Compute(snap, product.Units, reservations), nil
}

// StaleSnapshot reports that stock for productID is still loading.
func StaleSnapshot(productID int64) error {
	return pkgerrors.New(pkgerrors.CodeStaleSnapshot, "stock snapshot not loaded").
		WithDetails(map[string]any{"product_id": productID})
}
