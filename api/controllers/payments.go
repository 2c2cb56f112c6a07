package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/anandkp/shelfwise-backend/api/responses"
	"github.com/anandkp/shelfwise-backend/api/validators"
	"github.com/anandkp/shelfwise-backend/internal/payments"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
)

// The initiate endpoint predates the envelope convention: storefront
// clients consume {success, url, merchantTransactionId} directly, so it
// keeps its legacy wire shape instead of the {"data": ...} wrapper.
type initiateRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	OrderID    string          `json:"orderId" validate:"required"`
	PayerPhone string          `json:"payerPhone" validate:"required,len=10,numeric"`
}

type initiateResponse struct {
	Success               bool   `json:"success"`
	URL                   string `json:"url,omitempty"`
	MerchantTransactionID string `json:"merchantTransactionId,omitempty"`
	Error                 string `json:"error,omitempty"`
}

// PaymentsInitiate exchanges an existing pending order for a gateway
// redirect URL. The amount must match the ledger total exactly.
func PaymentsInitiate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var body initiateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			writeInitiateError(w, err)
			return
		}

		result, err := svc.InitiateByOrderNumber(r.Context(), body.OrderID, body.Amount, body.PayerPhone)
		if err != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"order_number": body.OrderID,
				"error":        err.Error(),
			})
			logg.Warn(ctx, "payment initiate failed")
			writeInitiateError(w, err)
			return
		}

		writeRawJSON(w, http.StatusOK, initiateResponse{
			Success:               true,
			URL:                   result.RedirectURL,
			MerchantTransactionID: result.MerchantTransactionID,
		})
	}
}

// writeInitiateError maps typed failures onto the legacy contract:
// client mistakes get {"error": msg}, gateway trouble gets
// {"success": false, "error": msg}.
func writeInitiateError(w http.ResponseWriter, err error) {
	code := pkgerrors.CodeOf(err)
	meta := pkgerrors.MetadataFor(code)

	message := meta.PublicMessage
	if typed := pkgerrors.As(err); typed != nil && meta.HTTPStatus < http.StatusInternalServerError {
		message = typed.Message()
	}

	if code == pkgerrors.CodeDependency {
		writeRawJSON(w, meta.HTTPStatus, initiateResponse{Success: false, Error: message})
		return
	}
	writeRawJSON(w, meta.HTTPStatus, map[string]string{"error": message})
}

// PaymentsCallback receives the asynchronous gateway notification. The
// body is passed through untouched so the signature check covers the
// exact bytes the gateway signed.
func PaymentsCallback(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		rawBody, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable callback body"))
			return
		}

		if err := svc.HandleCallback(r.Context(), rawBody, r.Header.Get("X-VERIFY")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}

func writeRawJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
