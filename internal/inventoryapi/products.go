package inventoryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/internal/catalog"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

const (
	productsPath  = "/api/products/?is_active=true"
	maxPageFollow = 200
)

type unitPayload struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	IsBaseUnit bool   `json:"is_base_unit"`
}

func (u unitPayload) toUnit() catalog.Unit {
	return catalog.Unit{ID: u.ID, Name: u.Name, Symbol: u.Symbol, IsBaseUnit: u.IsBaseUnit}
}

type compatibleUnitPayload struct {
	Unit             unitPayload     `json:"unit"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	IsDefault        bool            `json:"is_default"`
	IsActive         *bool           `json:"is_active"`
}

type productPayload struct {
	ID              int64                   `json:"id"`
	Name            string                  `json:"name"`
	SKU             string                  `json:"sku"`
	Category        int64                   `json:"category"`
	BaseUnit        *unitPayload            `json:"base_unit"`
	Price           decimal.Decimal         `json:"price"`
	WholesalePrice  decimal.NullDecimal     `json:"wholesale_price"`
	StockQuantity   decimal.Decimal         `json:"stock_quantity"`
	TaxRate         decimal.NullDecimal     `json:"tax_rate"`
	HasPackaging    bool                    `json:"has_packaging"`
	PackagingPrice  decimal.NullDecimal     `json:"packaging_price"`
	IsActive        bool                    `json:"is_active"`
	CompatibleUnits []compatibleUnitPayload `json:"compatible_units"`
}

type productPage struct {
	Count   int              `json:"count"`
	Next    *string          `json:"next"`
	Results []productPayload `json:"results"`
}

// RejectedProduct is a product the catalog could not accept.
type RejectedProduct struct {
	ProductID int64
	Err       error
}

// ListProducts loads every active product, following pagination. Products
// with an unusable unit configuration are returned as rejected instead of
// failing the whole load.
func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, []RejectedProduct, error) {
	var (
		products []catalog.Product
		rejected []RejectedProduct
	)
	path := productsPath
	for page := 0; path != "" && page < maxPageFollow; page++ {
		var raw json.RawMessage
		if err := c.do(ctx, http.MethodGet, path, nil, &raw, requestOptions{}); err != nil {
			return nil, nil, err
		}
		payloads, next, err := decodeProductPage(raw)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range payloads {
			product, err := p.toProduct()
			if err != nil {
				rejected = append(rejected, RejectedProduct{ProductID: p.ID, Err: err})
				continue
			}
			products = append(products, product)
		}
		path = next
	}
	return products, rejected, nil
}

// decodeProductPage accepts both a bare array and a paginated envelope.
func decodeProductPage(raw json.RawMessage) ([]productPayload, string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []productPayload
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product list")
		}
		return list, "", nil
	}
	var page productPage
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product page")
	}
	next := ""
	if page.Next != nil {
		next = *page.Next
	}
	return page.Results, next, nil
}

func (p productPayload) toProduct() (catalog.Product, error) {
	if p.BaseUnit == nil {
		return catalog.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product has no base unit").
			WithDetails(map[string]any{"product_id": p.ID})
	}
	base := p.BaseUnit.toUnit()
	base.IsBaseUnit = true

	units := make([]catalog.CompatibleUnit, 0, len(p.CompatibleUnits))
	for _, cu := range p.CompatibleUnits {
		active := cu.IsActive == nil || *cu.IsActive
		factor := cu.ConversionFactor
		if cu.Unit.ID == base.ID && factor.IsZero() {
			factor = decimal.NewFromInt(1)
		}
		unit := cu.Unit.toUnit()
		// is_base_unit on the wire is a property of the unit, not of this product.
		unit.IsBaseUnit = unit.ID == base.ID
		units = append(units, catalog.CompatibleUnit{
			ProductID:        p.ID,
			Unit:             unit,
			ConversionFactor: factor,
			IsDefault:        cu.IsDefault,
			IsActive:         active,
		})
	}

	packaging := decimal.NullDecimal{}
	if p.HasPackaging {
		packaging = p.PackagingPrice
	}
	taxRate := decimal.Zero
	if p.TaxRate.Valid {
		taxRate = p.TaxRate.Decimal
	}

	return catalog.NewProduct(catalog.Product{
		ID:             p.ID,
		Name:           p.Name,
		SKU:            p.SKU,
		CategoryID:     p.Category,
		BaseUnit:       base,
		StandardPrice:  p.Price,
		WholesalePrice: p.WholesalePrice,
		Stock:          p.StockQuantity,
		TaxRate:        taxRate,
		PackagingPrice: packaging,
		IsActive:       p.IsActive,
	}, units)
}
