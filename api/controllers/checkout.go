package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/api/middleware"
	"github.com/angelmondragon/beverage-pos/api/responses"
	"github.com/angelmondragon/beverage-pos/api/validators"
	"github.com/angelmondragon/beverage-pos/internal/sales"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
	"github.com/angelmondragon/beverage-pos/pkg/logger"
)

type checkoutCustomer struct {
	Name  string `json:"name" validate:"max=120"`
	Phone string `json:"phone" validate:"max=32"`
	Email string `json:"email" validate:"omitempty,email"`
}

type checkoutRequest struct {
	Customer      checkoutCustomer `json:"customer"`
	PaymentMethod string           `json:"payment_method" validate:"omitempty,payment_method"`
	PaymentType   string           `json:"payment_type" validate:"omitempty,payment_type"`
	PaidAmount    decimal.Decimal  `json:"paid_amount" validate:"amount"`
}

// Checkout submits the session's cart. A sale that was created but could
// not be completed is returned with status 200 and a COMPLETION_FAILED
// warning.
func Checkout(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromRequest(sessions, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := session.Workflow().Submit(r.Context(), sales.Checkout{
			Customer: sales.Customer{
				Name:  validators.SanitizeString(payload.Customer.Name, 120),
				Phone: validators.SanitizeString(payload.Customer.Phone, 32),
				Email: strings.ToLower(validators.SanitizeString(payload.Customer.Email, 254)),
			},
			PaymentMethod:  enums.PaymentMethod(payload.PaymentMethod),
			PaymentType:    enums.PaymentType(payload.PaymentType),
			PaidAmount:     payload.PaidAmount,
			IdempotencyKey: r.Header.Get(middleware.IdempotencyHeader),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessWithWarnings(w, http.StatusOK, result, result.Warning)
	}
}
