package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/internal/catalog"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

// PackagingLine is the deposit for the returnable packaging of a product,
// counted in base units. Only consignation lines are charged.
type PackagingLine struct {
	ProductID   int64                 `json:"product_id"`
	ProductName string                `json:"product_name"`
	BaseUnitID  int64                 `json:"base_unit_id"`
	Quantity    decimal.Decimal       `json:"quantity"`
	UnitPrice   decimal.Decimal       `json:"unit_price"`
	Status      enums.PackagingStatus `json:"status"`
	Manual      bool                  `json:"manual"`
}

// Subtotal is the deposit charged for the line.
func (p PackagingLine) Subtotal() decimal.Decimal {
	if p.Status != enums.PackagingStatusConsignation {
		return decimal.Zero
	}
	return p.UnitPrice.Mul(p.Quantity)
}

type packagingBook struct {
	lines map[int64]PackagingLine
	order []int64
}

func newPackagingBook() *packagingBook {
	return &packagingBook{lines: map[int64]PackagingLine{}}
}

func (b *packagingBook) put(line PackagingLine) {
	if _, ok := b.lines[line.ProductID]; !ok {
		b.order = append(b.order, line.ProductID)
	}
	b.lines[line.ProductID] = line
}

func (b *packagingBook) drop(productID int64) {
	if _, ok := b.lines[productID]; !ok {
		return
	}
	delete(b.lines, productID)
	for i, id := range b.order {
		if id == productID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *packagingBook) list() []PackagingLine {
	out := make([]PackagingLine, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.lines[id])
	}
	return out
}

// syncPackaging keeps the product's packaging line in step with its sale
// lines. Manually edited lines keep their quantity until the product leaves
// the cart.
func (l *Ledger) syncPackaging(product catalog.Product) {
	if !product.HasPackaging() {
		return
	}
	base := decimal.Zero
	for _, line := range l.lines {
		if line.ProductID == product.ID {
			base = base.Add(line.BaseQuantity())
		}
	}
	if !base.IsPositive() {
		l.packaging.drop(product.ID)
		return
	}
	existing, ok := l.packaging.lines[product.ID]
	if ok && existing.Manual {
		return
	}
	status := enums.PackagingStatusConsignation
	if ok {
		status = existing.Status
	}
	l.packaging.put(PackagingLine{
		ProductID:   product.ID,
		ProductName: product.Name,
		BaseUnitID:  product.BaseUnit.ID,
		Quantity:    base,
		UnitPrice:   product.PackagingPrice.Decimal,
		Status:      status,
	})
}

// Packaging returns the packaging lines in the order they were created.
func (l *Ledger) Packaging() []PackagingLine {
	return l.packaging.list()
}

// SetPackaging overrides the quantity and status of a product's packaging
// line. The line must exist, that is the product must be in the cart.
func (l *Ledger) SetPackaging(productID int64, quantity decimal.Decimal, status enums.PackagingStatus) (PackagingLine, error) {
	if quantity.IsNegative() {
		return PackagingLine{}, pkgerrors.New(pkgerrors.CodeValidation, "packaging quantity must not be negative").
			WithDetails(map[string]any{"product_id": productID})
	}
	if !status.IsValid() {
		return PackagingLine{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid packaging status").
			WithDetails(map[string]any{"status": string(status)})
	}
	line, ok := l.packaging.lines[productID]
	if !ok {
		return PackagingLine{}, pkgerrors.New(pkgerrors.CodeNotFound, "no packaging line for product").
			WithDetails(map[string]any{"product_id": productID})
	}
	line.Quantity = quantity
	line.Status = status
	line.Manual = true
	l.packaging.put(line)
	return line, nil
}
