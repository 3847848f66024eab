package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/api/responses"
	"github.com/angelmondragon/beverage-pos/api/validators"
	"github.com/angelmondragon/beverage-pos/internal/cart"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
	"github.com/angelmondragon/beverage-pos/pkg/logger"
)

type addItemRequest struct {
	ProductID   int64  `json:"product_id" validate:"required,min=1"`
	UnitID      int64  `json:"unit_id" validate:"required,min=1"`
	PricingMode string `json:"pricing_mode" validate:"omitempty,pricing_mode"`
}

type setQuantityRequest struct {
	ProductID   int64  `json:"product_id" validate:"required,min=1"`
	UnitID      int64  `json:"unit_id" validate:"required,min=1"`
	PricingMode string `json:"pricing_mode" validate:"required,pricing_mode"`
	Quantity    *int   `json:"quantity" validate:"required,min=0"`
}

type pricingModeRequest struct {
	ProductID int64  `json:"product_id" validate:"required,min=1"`
	UnitID    int64  `json:"unit_id" validate:"required,min=1"`
	From      string `json:"from" validate:"required,pricing_mode"`
	To        string `json:"to" validate:"required,pricing_mode"`
}

type commitModeRequest struct {
	CommitMode string `json:"commit_mode" validate:"required,commit_mode"`
}

type packagingRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"amount"`
	Status   string          `json:"status" validate:"required,packaging_status"`
}

func pricingMode(raw string) enums.PricingMode {
	if raw == "" {
		return enums.PricingModeStandard
	}
	return enums.PricingMode(raw)
}

// CartView returns the session's cart.
func CartView(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromRequest(sessions, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.Workflow().View())
	}
}

// Availability returns what is left of every unit of a product once the
// session's own reservations are taken out.
func Availability(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromRequest(sessions, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.PathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := session.Workflow().Availability(productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CartAddItem adds one unit of a product, merging into an existing line.
func CartAddItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromRequest(sessions, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := session.Workflow().Add(r.Context(), payload.ProductID, payload.UnitID, pricingMode(payload.PricingMode)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.Workflow().View())
	}
}

// CartSetQuantity sets the quantity of a line. Zero removes it.
func CartSetQuantity(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromRequest(sessions, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := cart.Key{ProductID: payload.ProductID, UnitID: payload.UnitID, Mode: enums.PricingMode(payload.PricingMode)}
		if err := session.Workflow().SetQuantity(r.Context(), key, *payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.Workflow().View())
	}
}

// CartRemoveItem removes the line named by the query parameters.
func CartRemoveItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromRequest(sessions, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key, err := lineKeyFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := session.Workflow().Remove(r.Context(), key); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.Workflow().View())
	}
}

// CartChangePricingMode moves a line between standard and wholesale pricing.
func CartChangePricingMode(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromRequest(sessions, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload pricingModeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := cart.Key{ProductID: payload.ProductID, UnitID: payload.UnitID, Mode: enums.PricingMode(payload.From)}
		if _, err := session.Workflow().ChangePricingMode(r.Context(), key, enums.PricingMode(payload.To)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.Workflow().View())
	}
}

// CartSetCommitMode switches between complete and pending commits.
func CartSetCommitMode(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromRequest(sessions, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload commitModeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := session.Workflow().SetCommitMode(r.Context(), enums.CommitMode(payload.CommitMode)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.Workflow().View())
	}
}

// CartSetPackaging overrides the packaging line of a product.
func CartSetPackaging(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromRequest(sessions, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.PathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload packagingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := session.Workflow().SetPackaging(r.Context(), productID, payload.Quantity, enums.PackagingStatus(payload.Status)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.Workflow().View())
	}
}

// CartClear empties the cart.
func CartClear(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromRequest(sessions, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := session.Workflow().Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.Workflow().View())
	}
}

func lineKeyFromQuery(r *http.Request) (cart.Key, error) {
	productID, err := validators.QueryID(r, "product_id")
	if err != nil {
		return cart.Key{}, err
	}
	unitID, err := validators.QueryID(r, "unit_id")
	if err != nil {
		return cart.Key{}, err
	}
	mode := pricingMode(validators.SanitizeString(r.URL.Query().Get("pricing_mode"), 16))
	if !mode.IsValid() {
		return cart.Key{}, validators.InvalidField("pricing_mode")
	}
	return cart.Key{ProductID: productID, UnitID: unitID, Mode: mode}, nil
}
