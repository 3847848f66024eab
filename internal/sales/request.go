package sales

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/internal/cart"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
)

// Customer identifies the buyer. Name is required for sales that are not
// settled at the counter.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (c Customer) normalized() Customer {
	return Customer{
		Name:  strings.TrimSpace(c.Name),
		Phone: strings.TrimSpace(c.Phone),
		Email: strings.TrimSpace(c.Email),
	}
}

// Checkout carries the payment information entered at the till. A caller
// retrying the same submission passes the same IdempotencyKey so the server
// does not create the sale twice.
type Checkout struct {
	Customer       Customer            `json:"customer"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	PaymentType    enums.PaymentType   `json:"payment_type"`
	PaidAmount     decimal.Decimal     `json:"paid_amount"`
	IdempotencyKey string              `json:"-"`
}

// SaleRequest is the body of the sale creation call.
type SaleRequest struct {
	IdempotencyKey string              `json:"-"`
	SaleType       enums.SaleType      `json:"sale_type"`
	CustomerName   string              `json:"customer_name"`
	CustomerPhone  string              `json:"customer_phone"`
	CustomerEmail  string              `json:"customer_email"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	PaidAmount     decimal.Decimal     `json:"paid_amount"`
	Items          []SaleItem          `json:"items"`
	PackagingItems []PackagingItem     `json:"packaging_items,omitempty"`
}

// SaleItem is one ledger line as sent to the sale-commit service.
type SaleItem struct {
	Product   int64             `json:"product"`
	Quantity  decimal.Decimal   `json:"quantity"`
	Unit      int64             `json:"unit"`
	UnitPrice decimal.Decimal   `json:"unit_price"`
	PriceMode enums.PricingMode `json:"price_mode"`
}

// PackagingItem is one packaging deposit line, always in the base unit.
type PackagingItem struct {
	Product       int64                 `json:"product"`
	Quantity      decimal.Decimal       `json:"quantity"`
	Unit          int64                 `json:"unit"`
	UnitPrice     decimal.Decimal       `json:"unit_price"`
	Status        enums.PackagingStatus `json:"status"`
	CustomerName  string                `json:"customer_name"`
	CustomerPhone string                `json:"customer_phone"`
}

// SaleReceipt is what the sale-commit service returns on creation.
type SaleReceipt struct {
	ID         int64  `json:"id"`
	SaleNumber string `json:"sale_number"`
	Status     string `json:"status"`
}

// Result summarises a submitted sale. Warning is set when the sale exists on
// the server but could not be completed.
type Result struct {
	State         enums.SaleState     `json:"state"`
	SaleID        int64               `json:"sale_id"`
	SaleNumber    string              `json:"sale_number"`
	CommitMode    enums.CommitMode    `json:"commit_mode"`
	Total         decimal.Decimal     `json:"total"`
	Paid          decimal.Decimal     `json:"paid"`
	Remaining     decimal.Decimal     `json:"remaining"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	DueDate       *time.Time          `json:"due_date,omitempty"`
	Warning       error               `json:"-"`
}

func buildRequest(key string, customer Customer, method enums.PaymentMethod, paid decimal.Decimal, lines []cart.Line, packaging []cart.PackagingLine) SaleRequest {
	req := SaleRequest{
		IdempotencyKey: key,
		SaleType:       enums.SaleTypeSale,
		CustomerName:   customer.Name,
		CustomerPhone:  customer.Phone,
		CustomerEmail:  customer.Email,
		PaymentMethod:  method,
		PaidAmount:     paid,
		Items:          make([]SaleItem, 0, len(lines)),
	}
	for _, line := range lines {
		req.Items = append(req.Items, SaleItem{
			Product:   line.ProductID,
			Quantity:  decimal.NewFromInt(int64(line.Quantity)),
			Unit:      line.UnitID,
			UnitPrice: line.UnitPrice,
			PriceMode: line.Mode,
		})
	}
	for _, p := range packaging {
		if !p.Quantity.IsPositive() {
			continue
		}
		req.PackagingItems = append(req.PackagingItems, PackagingItem{
			Product:       p.ProductID,
			Quantity:      p.Quantity,
			Unit:          p.BaseUnitID,
			UnitPrice:     p.UnitPrice,
			Status:        p.Status,
			CustomerName:  customer.Name,
			CustomerPhone: customer.Phone,
		})
	}
	return req
}

// paymentStatus classifies what is left to pay.
func paymentStatus(total, paid decimal.Decimal) enums.PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return enums.PaymentStatusPaid
	case paid.IsZero():
		return enums.PaymentStatusPending
	default:
		return enums.PaymentStatusPartial
	}
}
