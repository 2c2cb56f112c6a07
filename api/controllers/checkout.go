package controllers

import (
	"net/http"

	"github.com/anandkp/shelfwise-backend/api/middleware"
	"github.com/anandkp/shelfwise-backend/api/responses"
	"github.com/anandkp/shelfwise-backend/api/validators"
	"github.com/anandkp/shelfwise-backend/internal/checkout"
	"github.com/anandkp/shelfwise-backend/pkg/enums"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
)

type replaceCartRequest struct {
	Items []checkout.CartLine `json:"items" validate:"required"`
}

type paymentMethodRequest struct {
	Method string `json:"method" validate:"required,oneof=prepaid cod"`
}

type couponRequest struct {
	Code string `json:"code" validate:"required,max=40"`
}

type verifyConfirmRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type submitResponse struct {
	Order       orderView `json:"order"`
	RedirectURL string    `json:"redirectUrl,omitempty"`
}

// CheckoutGet returns the buyer's current checkout session, creating a
// fresh one when none exists.
func CheckoutGet(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		session, err := svc.Get(r.Context(), middleware.IdentityFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// CheckoutReplaceCart swaps the cart contents wholesale. A changed cart
// rotates the attempt id, so a later submit creates a distinct order.
func CheckoutReplaceCart(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body replaceCartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.ReplaceCart(r.Context(), middleware.IdentityFromContext(r.Context()), body.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

func CheckoutSetAddress(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body checkout.AddressInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.SetAddress(r.Context(), middleware.IdentityFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

func CheckoutSetPaymentMethod(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body paymentMethodRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(body.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		session, err := svc.SetPaymentMethod(r.Context(), middleware.IdentityFromContext(r.Context()), method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

func CheckoutApplyCoupon(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body couponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.ApplyCoupon(r.Context(), middleware.IdentityFromContext(r.Context()), body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

func CheckoutRemoveCoupon(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		session, err := svc.RemoveCoupon(r.Context(), middleware.IdentityFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// CheckoutReview recomputes the full price breakdown from live catalog
// data. Nothing is persisted; submit recomputes again inside the
// transaction.
func CheckoutReview(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		review, err := svc.Review(r.Context(), middleware.IdentityFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, review)
	}
}

func CheckoutVerifyStart(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		if err := svc.StartVerification(r.Context(), middleware.IdentityFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "sent"})
	}
}

func CheckoutVerifyConfirm(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body verifyConfirmRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.ConfirmVerification(r.Context(), middleware.IdentityFromContext(r.Context()), body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// CheckoutSubmit places the order. The response carries the order
// snapshot plus a gateway redirect URL for prepaid orders.
func CheckoutSubmit(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		result, err := svc.Submit(r.Context(), middleware.IdentityFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, submitResponse{
			Order:       toOrderView(result.Order),
			RedirectURL: result.RedirectURL,
		})
	}
}
