package inventoryapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/beverage-pos/internal/sales"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

const salesPath = "/api/sales/"

var _ sales.Committer = (*Client)(nil)

// CreateSale submits a sale. The request's idempotency key is forwarded so a
// retried submission does not create a second sale on servers that honour it.
// A 2xx answer without a readable sale id is reported as unconfirmed: the
// server may have created the sale.
func (c *Client) CreateSale(ctx context.Context, req sales.SaleRequest) (sales.SaleReceipt, error) {
	var (
		receipt sales.SaleReceipt
		status  int
	)
	err := c.do(ctx, http.MethodPost, salesPath, req, &receipt, requestOptions{idempotencyKey: req.IdempotencyKey, status: &status})
	switch {
	case err != nil && (status < 200 || status >= 300):
		return sales.SaleReceipt{}, err
	case err != nil:
		return sales.SaleReceipt{}, unconfirmed(status, req.IdempotencyKey, err)
	case receipt.ID <= 0:
		return sales.SaleReceipt{}, unconfirmed(status, req.IdempotencyKey, errors.New("response carried no sale id"))
	}
	return receipt, nil
}

func unconfirmed(status int, idempotencyKey string, cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %w", sales.ErrCommitUnconfirmed, cause),
		"sale creation answered without a sale id").
		WithDetails(map[string]any{"status": status, "idempotency_key": idempotencyKey})
}

// CompleteSale finalizes a created sale, deducting its stock.
func (c *Client) CompleteSale(ctx context.Context, saleID int64) error {
	if saleID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("%s%d/complete/", salesPath, saleID), nil, nil, requestOptions{})
}
