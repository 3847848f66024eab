package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/pkg/money"
)

// Totals summarise the ledger. Prices are tax inclusive; Net and Tax split
// the product subtotal with each line's own rate. The payable sale total is
// Subtotal, packaging deposits are settled separately.
type Totals struct {
	Lines      int             `json:"lines"`
	Items      int             `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Net        decimal.Decimal `json:"net"`
	Tax        decimal.Decimal `json:"tax"`
	Packaging  decimal.Decimal `json:"packaging"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// Totals computes the current totals.
func (l *Ledger) Totals() Totals {
	t := Totals{
		Lines:     len(l.lines),
		Subtotal:  decimal.Zero,
		Net:       decimal.Zero,
		Tax:       decimal.Zero,
		Packaging: decimal.Zero,
	}
	for _, line := range l.lines {
		gross := line.Subtotal()
		split := money.SplitInclusive(gross, line.TaxRate)
		t.Items += line.Quantity
		t.Subtotal = t.Subtotal.Add(gross)
		t.Net = t.Net.Add(split.Net)
		t.Tax = t.Tax.Add(split.Tax)
	}
	for _, p := range l.packaging.list() {
		t.Packaging = t.Packaging.Add(p.Subtotal())
	}
	t.Subtotal = money.Round(t.Subtotal)
	t.Packaging = money.Round(t.Packaging)
	t.GrandTotal = t.Subtotal.Add(t.Packaging)
	return t
}
