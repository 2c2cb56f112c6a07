package controllers

import (
	"net/http"

	"github.com/anandkp/shelfwise-backend/api/responses"
	"github.com/anandkp/shelfwise-backend/api/validators"
	"github.com/anandkp/shelfwise-backend/internal/identity"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
)

type loginRequest struct {
	Phone    string `json:"phone" validate:"required,len=10,numeric"`
	Password string `json:"password" validate:"required,min=8"`
}

type otpStartRequest struct {
	Phone string `json:"phone" validate:"required,len=10,numeric"`
}

type otpConfirmRequest struct {
	Phone string `json:"phone" validate:"required,len=10,numeric"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type authResponse struct {
	Token         string `json:"token"`
	UserID        string `json:"userId"`
	IdentityKind  string `json:"identityKind"`
	PhoneVerified bool   `json:"phoneVerified"`
}

// AuthLogin wires the password login endpoint into the HTTP layer.
func AuthLogin(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}

		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, ident, err := svc.Login(r.Context(), body.Phone, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, authResponse{
			Token:         token,
			UserID:        ident.UserID.String(),
			IdentityKind:  string(ident.Kind),
			PhoneVerified: ident.PhoneVerified,
		})
	}
}

// AuthOTPStart asks the identity service to send a one-time code. The
// response never reveals whether the phone maps to an existing account.
func AuthOTPStart(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}

		var body otpStartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.StartOTP(r.Context(), body.Phone); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "sent"})
	}
}

// AuthOTPConfirm exchanges a delivered code for an access token.
func AuthOTPConfirm(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}

		var body otpConfirmRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, ident, err := svc.ConfirmOTP(r.Context(), body.Phone, body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, authResponse{
			Token:         token,
			UserID:        ident.UserID.String(),
			IdentityKind:  string(ident.Kind),
			PhoneVerified: ident.PhoneVerified,
		})
	}
}
