package inventoryapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/angelmondragon/beverage-pos/internal/snapshot"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

const bulkStockPath = "/api/products/bulk-stock-availability/"

var _ snapshot.Source = (*Client)(nil)

type bulkStockRequest struct {
	ProductIDs []int64 `json:"product_ids"`
}

type stockPayload struct {
	ProductID   int64                `json:"product_id"`
	ProductName string               `json:"product_name"`
	BaseUnit    unitPayload          `json:"base_unit"`
	Units       []snapshot.UnitStock `json:"available_units"`
}

// FetchSnapshots asks the inventory service for the stock of productIDs. The
// response is keyed by product id; products the service does not report are
// absent from the result.
func (c *Client) FetchSnapshots(ctx context.Context, productIDs []int64) (map[int64]snapshot.ProductSnapshot, error) {
	out := make(map[int64]snapshot.ProductSnapshot, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var resp map[string]stockPayload
	if err := c.do(ctx, http.MethodPost, bulkStockPath, bulkStockRequest{ProductIDs: productIDs}, &resp, requestOptions{}); err != nil {
		return nil, err
	}

	fetchedAt := time.Now().UTC()
	for key, payload := range resp {
		id := payload.ProductID
		if id == 0 {
			parsed, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode stock availability key").
					WithDetails(map[string]any{"key": key})
			}
			id = parsed
		}
		out[id] = snapshot.ProductSnapshot{
			ProductID:   id,
			ProductName: payload.ProductName,
			BaseUnitID:  payload.BaseUnit.ID,
			Units:       payload.Units,
			FetchedAt:   fetchedAt,
		}
	}
	return out, nil
}
