// Package cart is the reservation ledger of one in-progress sale. Lines are
// soft, terminal-local holds against the last stock snapshot; nothing here is
// visible to the inventory service until the sale is submitted.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/internal/availability"
	"github.com/angelmondragon/beverage-pos/internal/catalog"
	"github.com/angelmondragon/beverage-pos/internal/pricing"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

// Key identifies a line. Lines with equal keys are merged.
type Key struct {
	ProductID int64             `json:"product_id"`
	UnitID    int64             `json:"unit_id"`
	Mode      enums.PricingMode `json:"price_mode"`
}

// Line is one reservation. UnitPrice is stamped when the line is created and
// does not follow later snapshot price changes.
type Line struct {
	Key
	ProductName      string          `json:"product_name"`
	UnitName         string          `json:"unit_name"`
	UnitSymbol       string          `json:"unit_symbol"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
}

// Subtotal is quantity times unit price.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// BaseQuantity is the line quantity in base units.
func (l Line) BaseQuantity() decimal.Decimal {
	return l.ConversionFactor.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ProductLookup resolves catalog products.
type ProductLookup interface {
	Get(productID int64) (catalog.Product, bool)
}

// Ledger is not safe for concurrent use; callers serialize access per session.
type Ledger struct {
	products  ProductLookup
	snapshots availability.SnapshotReader
	mode      enums.CommitMode

	lines     []Line
	packaging *packagingBook
}

// New builds an empty ledger.
func New(products ProductLookup, snapshots availability.SnapshotReader, mode enums.CommitMode) *Ledger {
	if !mode.IsValid() {
		mode = enums.CommitModeComplete
	}
	return &Ledger{
		products:  products,
		snapshots: snapshots,
		mode:      mode,
		packaging: newPackagingBook(),
	}
}

// CommitMode returns the mode the next sale will be committed with.
func (l *Ledger) CommitMode() enums.CommitMode { return l.mode }

// SetCommitMode switches between complete and pending. Switching to complete
// fails with RESERVATION_EXCEEDED, leaving the mode unchanged, when lines
// built in pending mode already reserve more than a product's stock.
func (l *Ledger) SetCommitMode(mode enums.CommitMode) error {
	if !mode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid commit mode").
			WithDetails(map[string]any{"commit_mode": string(mode)})
	}
	if mode == enums.CommitModeComplete && l.mode != mode {
		if err := l.VerifyStock(); err != nil {
			return err
		}
	}
	l.mode = mode
	return nil
}

// VerifyStock checks that, for every product in the ledger, the reserved
// base quantity fits in the snapshot stock.
func (l *Ledger) VerifyStock() error {
	seen := make(map[int64]bool, len(l.lines))
	for _, line := range l.lines {
		if seen[line.ProductID] {
			continue
		}
		seen[line.ProductID] = true
		product, err := l.product(line.ProductID)
		if err != nil {
			return err
		}
		res, err := availability.Lookup(l.snapshots, product, l.Reservations(line.ProductID))
		if err != nil {
			return err
		}
		if res.ReservedBase.GreaterThan(res.Stock) {
			return pkgerrors.New(pkgerrors.CodeReservationExceeded, "cart reserves more than is in stock").
				WithDetails(map[string]any{
					"product_id": line.ProductID,
					"unit_id":    product.BaseUnit.ID,
					"requested":  res.ReservedBase.String(),
					"available":  res.Stock.String(),
				})
		}
	}
	return nil
}

// Lines returns a copy of the lines in insertion order.
func (l *Ledger) Lines() []Line {
	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}

// Len returns the number of lines.
func (l *Ledger) Len() int { return len(l.lines) }

// IsEmpty reports whether the ledger holds no lines.
func (l *Ledger) IsEmpty() bool { return len(l.lines) == 0 }

// Line returns the line with key.
func (l *Ledger) Line(key Key) (Line, bool) {
	if i := l.index(key); i >= 0 {
		return l.lines[i], true
	}
	return Line{}, false
}

// Reservations returns the reservations held against productID.
func (l *Ledger) Reservations(productID int64) []availability.Reservation {
	var out []availability.Reservation
	for _, line := range l.lines {
		if line.ProductID != productID {
			continue
		}
		out = append(out, availability.Reservation{UnitID: line.UnitID, Quantity: decimal.NewFromInt(int64(line.Quantity))})
	}
	return out
}

// Availability computes the live availability of productID under this ledger.
func (l *Ledger) Availability(productID int64) (availability.Result, error) {
	product, err := l.product(productID)
	if err != nil {
		return availability.Result{}, err
	}
	return availability.Lookup(l.snapshots, product, l.Reservations(productID))
}

// Add reserves one more unit. In complete mode it fails with
// RESERVATION_EXCEEDED, leaving the ledger unchanged, when the unit has
// nothing left. Pending mode never checks stock and, without a snapshot for
// the unit, prices it from the catalog.
func (l *Ledger) Add(productID, unitID int64, mode enums.PricingMode) (Line, error) {
	if !mode.IsValid() {
		return Line{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing mode").
			WithDetails(map[string]any{"price_mode": string(mode)})
	}
	product, err := l.product(productID)
	if err != nil {
		return Line{}, err
	}
	cu, ok := product.Units.Unit(unitID)
	if !ok {
		return Line{}, unitNotCompatible(productID, unitID)
	}
	key := Key{ProductID: productID, UnitID: unitID, Mode: mode}
	price := pricing.BasePrice(product, mode).Mul(cu.ConversionFactor)
	snap, hasSnap := l.snapshots.Get(productID)
	unitStock, hasUnit := snap.Unit(unitID)
	switch {
	case hasSnap && hasUnit:
		price = pricing.UnitPrice(product, unitStock, mode)
	case l.mode == enums.CommitModePending:
		// catalog price, stock is not consulted
	case !hasSnap:
		return Line{}, availability.StaleSnapshot(productID)
	default:
		return Line{}, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found in stock information").
			WithDetails(map[string]any{"product_id": productID, "unit_id": unitID})
	}

	current := 0
	if i := l.index(key); i >= 0 {
		current = l.lines[i].Quantity
	}

	if l.mode == enums.CommitModeComplete {
		res := availability.Compute(snap, product.Units, l.Reservations(productID))
		avail, _ := res.ForUnit(unitID)
		if avail.AvailableQuantity.LessThan(decimal.NewFromInt(1)) {
			return Line{}, reservationExceeded(key, current+1, avail.AvailableQuantity.Add(decimal.NewFromInt(int64(current))))
		}
	}

	if i := l.index(key); i >= 0 {
		l.lines[i].Quantity++
		l.syncPackaging(product)
		return l.lines[i], nil
	}

	line := Line{
		Key:              key,
		ProductName:      product.Name,
		UnitName:         cu.Unit.Name,
		UnitSymbol:       cu.Unit.Symbol,
		Quantity:         1,
		UnitPrice:        price,
		ConversionFactor: cu.ConversionFactor,
		TaxRate:          product.TaxRate,
	}
	l.lines = append(l.lines, line)
	l.syncPackaging(product)
	return line, nil
}

// SetQuantity replaces a line's quantity. Zero removes the line. In complete
// mode the new quantity may not exceed what is available plus what the line
// already holds.
func (l *Ledger) SetQuantity(key Key, quantity int) error {
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative").
			WithDetails(map[string]any{"quantity": quantity})
	}
	if quantity == 0 {
		l.Remove(key)
		return nil
	}
	i := l.index(key)
	if i < 0 {
		return lineNotFound(key)
	}
	product, err := l.product(key.ProductID)
	if err != nil {
		return err
	}
	current := l.lines[i].Quantity

	if l.mode == enums.CommitModeComplete && quantity > current {
		res, err := availability.Lookup(l.snapshots, product, l.Reservations(key.ProductID))
		if err != nil {
			return err
		}
		avail, _ := res.ForUnit(key.UnitID)
		allowed := avail.AvailableQuantity.Add(decimal.NewFromInt(int64(current)))
		if decimal.NewFromInt(int64(quantity)).GreaterThan(allowed) {
			return reservationExceeded(key, quantity, allowed)
		}
	}

	l.lines[i].Quantity = quantity
	l.syncPackaging(product)
	return nil
}

// Remove deletes the line with key if present.
func (l *Ledger) Remove(key Key) {
	i := l.index(key)
	if i < 0 {
		return
	}
	l.lines = append(l.lines[:i], l.lines[i+1:]...)
	if product, ok := l.products.Get(key.ProductID); ok {
		l.syncPackaging(product)
	} else {
		l.packaging.drop(key.ProductID)
	}
}

// Clear empties the ledger, packaging included.
func (l *Ledger) Clear() {
	l.lines = nil
	l.packaging = newPackagingBook()
}

// ChangePricingMode moves a line to another pricing mode and restamps its
// price from the current snapshot. If a line already exists under the target
// key, the quantities are merged into it.
func (l *Ledger) ChangePricingMode(key Key, mode enums.PricingMode) (Line, error) {
	if !mode.IsValid() {
		return Line{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing mode").
			WithDetails(map[string]any{"price_mode": string(mode)})
	}
	i := l.index(key)
	if i < 0 {
		return Line{}, lineNotFound(key)
	}
	if key.Mode == mode {
		return l.lines[i], nil
	}
	product, err := l.product(key.ProductID)
	if err != nil {
		return Line{}, err
	}
	snap, ok := l.snapshots.Get(key.ProductID)
	if !ok {
		return Line{}, availability.StaleSnapshot(key.ProductID)
	}
	unitStock, ok := snap.Unit(key.UnitID)
	if !ok {
		return Line{}, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found in stock information").
			WithDetails(map[string]any{"product_id": key.ProductID, "unit_id": key.UnitID})
	}

	target := Key{ProductID: key.ProductID, UnitID: key.UnitID, Mode: mode}
	if j := l.index(target); j >= 0 {
		l.lines[j].Quantity += l.lines[i].Quantity
		merged := l.lines[j]
		l.lines = append(l.lines[:i], l.lines[i+1:]...)
		return merged, nil
	}

	l.lines[i].Key = target
	l.lines[i].UnitPrice = pricing.UnitPrice(product, unitStock, mode)
	return l.lines[i], nil
}

func (l *Ledger) index(key Key) int {
	for i, line := range l.lines {
		if line.Key == key {
			return i
		}
	}
	return -1
}

func (l *Ledger) product(productID int64) (catalog.Product, error) {
	product, ok := l.products.Get(productID)
	if !ok {
		return catalog.Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	return product, nil
}

func unitNotCompatible(productID, unitID int64) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "unit is not compatible with product").
		WithDetails(map[string]any{"product_id": productID, "unit_id": unitID})
}

func lineNotFound(key Key) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found").
		WithDetails(map[string]any{"product_id": key.ProductID, "unit_id": key.UnitID, "price_mode": string(key.Mode)})
}

func reservationExceeded(key Key, requested int, available decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeReservationExceeded, "not enough stock available").
		WithDetails(map[string]any{
			"product_id": key.ProductID,
			"unit_id":    key.UnitID,
			"requested":  requested,
			"available":  available.String(),
		})
}
