package inventoryapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/beverage-pos/internal/sales"
	"github.com/angelmondragon/beverage-pos/pkg/config"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(config.InventoryConfig{
		BaseURL:        srv.URL + "/",
		APIToken:       "secret",
		RequestTimeout: time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.InventoryConfig{})
	assert.ErrorIs(t, err, errBaseURLRequired)
}

func TestFetchSnapshotsDecodesKeyedResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, bulkStockPath, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body bulkStockRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []int64{100, 200}, body.ProductIDs)

		_, _ = io.WriteString(w, `{
			"100": {
				"product_id": 100,
				"product_name": "Lager 65cl",
				"base_unit": {"id": 1, "name": "Piece", "symbol": "pc"},
				"available_units": [
					{"id": 1, "name": "Piece", "symbol": "pc", "price": 1000.0, "is_base_unit": true, "conversion_factor": 1.0, "available_quantity": 45.0, "is_available": true},
					{"id": 3, "name": "Carton", "symbol": "ctn", "price": 20000.0, "is_base_unit": false, "conversion_factor": 20, "available_quantity": 2.25, "is_available": true}
				]
			}
		}`)
	}))

	snaps, err := client.FetchSnapshots(context.Background(), []int64{100, 200})
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	snap := snaps[100]
	assert.Equal(t, "Lager 65cl", snap.ProductName)
	assert.Equal(t, int64(1), snap.BaseUnitID)
	assert.True(t, snap.Stock().Equal(decimal.NewFromInt(45)))
	carton, ok := snap.Unit(3)
	require.True(t, ok)
	assert.True(t, carton.Price.Equal(decimal.NewFromInt(20000)))
	assert.True(t, carton.ConversionFactor.Equal(decimal.NewFromInt(20)))
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestFetchSnapshotsSkipsEmptyRequest(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected")
	}))
	snaps, err := client.FetchSnapshots(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestErrorsCarryServerMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": "product_ids is required"}`)
	}))

	_, err := client.FetchSnapshots(context.Background(), []int64{1})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "product_ids is required", details["message"])
	assert.Equal(t, http.StatusBadRequest, details["status"])
}

func TestListProductsFollowsPagination(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("is_active"))
		if r.URL.Query().Get("page") == "2" {
			_, _ = io.WriteString(w, `{"count": 3, "next": null, "results": [
				{"id": 300, "name": "Broken", "price": "500.00", "compatible_units": []}
			]}`)
			return
		}
		_, _ = io.WriteString(w, `{"count": 3, "next": "`+srvURL+`/api/products/?is_active=true&page=2", "results": [
			{"id": 100, "name": "Lager 65cl", "sku": "LAG-65", "category": 3,
			 "base_unit": {"id": 1, "name": "Piece", "symbol": "pc", "is_base_unit": true},
			 "price": "1000.00", "wholesale_price": "800.00", "stock_quantity": 45.0, "tax_rate": "20.00",
			 "has_packaging": true, "packaging_price": "300.00", "is_active": true,
			 "compatible_units": [
				{"unit": {"id": 1, "name": "Piece", "symbol": "pc", "is_base_unit": true}, "conversion_factor": "1.0000", "is_default": true, "is_active": true},
				{"unit": {"id": 3, "name": "Carton", "symbol": "ctn", "is_base_unit": false}, "conversion_factor": "20.0000", "is_default": false, "is_active": true}
			 ]},
			{"id": 200, "name": "Water 1.5l", "sku": "WAT-15", "category": 4,
			 "base_unit": {"id": 1, "name": "Piece", "symbol": "pc", "is_base_unit": true},
			 "price": "2500.00", "wholesale_price": null, "stock_quantity": 12, "tax_rate": null,
			 "has_packaging": false, "packaging_price": "100.00", "is_active": true,
			 "compatible_units": [
				{"unit": {"id": 2, "name": "6-Pack", "symbol": "6pk", "is_base_unit": false}, "conversion_factor": 0, "is_active": true}
			 ]}
		]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	client, err := NewClient(config.InventoryConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	products, rejected, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Len(t, rejected, 2)
	assert.Equal(t, int64(200), rejected[0].ProductID, "zero conversion factor")
	assert.Equal(t, int64(300), rejected[1].ProductID, "missing base unit")

	lager := products[0]
	assert.Equal(t, "LAG-65", lager.SKU)
	assert.Equal(t, int64(3), lager.CategoryID)
	assert.True(t, lager.HasWholesale())
	assert.True(t, lager.HasPackaging())
	assert.True(t, lager.TaxRate.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, int64(1), lager.Units.DefaultUnit().Unit.ID)
	factor, ok := lager.Units.Factor(3)
	require.True(t, ok)
	assert.True(t, factor.Equal(decimal.NewFromInt(20)))
}

func TestListProductsAcceptsBareArray(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id": 7, "name": "Soda", "base_unit": {"id": 1, "name": "Piece", "symbol": "pc"}, "price": 700, "has_packaging": false, "is_active": true}]`)
	}))
	products, rejected, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.Len(t, products, 1)
	assert.False(t, products[0].HasPackaging())
}

func TestCreateAndCompleteSale(t *testing.T) {
	var completedPath string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sales/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key-123", r.Header.Get(idempotencyKeyHeader))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sale", body["sale_type"])
		assert.Equal(t, "mobile_money", body["payment_method"])
		items, _ := body["items"].([]any)
		if assert.Len(t, items, 1) {
			item, _ := items[0].(map[string]any)
			assert.Equal(t, float64(100), item["product"])
			assert.Equal(t, "wholesale", item["price_mode"])
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": 55, "sale_number": "S-2026-0055", "status": "pending"}`)
	})
	mux.HandleFunc("/api/sales/55/complete/", func(w http.ResponseWriter, r *http.Request) {
		completedPath = r.URL.Path
		_, _ = io.WriteString(w, `{"status": "completed"}`)
	})
	mux.HandleFunc("/api/sales/56/complete/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": "Insufficient stock for Lager 65cl"}`)
	})
	client := newTestClient(t, mux)

	receipt, err := client.CreateSale(context.Background(), sales.SaleRequest{
		IdempotencyKey: "key-123",
		SaleType:       enums.SaleTypeSale,
		PaymentMethod:  enums.PaymentMethodMobileMoney,
		PaidAmount:     decimal.NewFromInt(4800),
		Items: []sales.SaleItem{{
			Product:   100,
			Quantity:  decimal.NewFromInt(1),
			Unit:      2,
			UnitPrice: decimal.NewFromInt(4800),
			PriceMode: enums.PricingModeWholesale,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(55), receipt.ID)
	assert.Equal(t, "S-2026-0055", receipt.SaleNumber)

	require.NoError(t, client.CompleteSale(context.Background(), receipt.ID))
	assert.Equal(t, "/api/sales/55/complete/", completedPath)

	err = client.CompleteSale(context.Background(), 56)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Insufficient stock")

	assert.True(t, pkgerrors.HasCode(client.CompleteSale(context.Background(), 0), pkgerrors.CodeValidation))
}

func TestCreateSaleWithoutIDIsUnconfirmed(t *testing.T) {
	bodies := map[string]string{
		"key-empty":   `{}`,
		"key-garbled": `<html>created</html>`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sales/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, bodies[r.Header.Get(idempotencyKeyHeader)])
	})
	client := newTestClient(t, mux)

	for key := range bodies {
		_, err := client.CreateSale(context.Background(), sales.SaleRequest{IdempotencyKey: key, SaleType: enums.SaleTypeSale})
		require.Error(t, err, key)
		assert.ErrorIs(t, err, sales.ErrCommitUnconfirmed, key)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, key)
		assert.Equal(t, pkgerrors.CodeDependency, typed.Code(), key)
		details, ok := typed.Details().(map[string]any)
		require.True(t, ok, key)
		assert.Equal(t, http.StatusCreated, details["status"], key)
		assert.Equal(t, key, details["idempotency_key"], key)
	}
}

func TestCreateSaleRejectedIsNotUnconfirmed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sales/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": "customer_name required"}`)
	})
	client := newTestClient(t, mux)

	_, err := client.CreateSale(context.Background(), sales.SaleRequest{IdempotencyKey: "key-400"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, sales.ErrCommitUnconfirmed)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}
