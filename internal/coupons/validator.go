package coupons

import (
	"fmt"
	"time"

	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	"github.com/anandkp/shelfwise-backend/pkg/enums"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
)

// RejectionReason identifies why a coupon did not apply.
type RejectionReason string

const (
	ReasonInactive     RejectionReason = "inactive"
	ReasonExpired      RejectionReason = "expired"
	ReasonBelowMinimum RejectionReason = "below_minimum"
	ReasonInvalidValue RejectionReason = "invalid_value"
)

// Rejection is the structured detail attached to a coupon validation
// error, shaped for the client UI.
type Rejection struct {
	Code             string          `json:"code"`
	Reason           RejectionReason `json:"reason"`
	ExpiredAt        *time.Time      `json:"expiredAt,omitempty"`
	MinPurchasePaise int64           `json:"minPurchasePaise,omitempty"`
}

// Validate checks a coupon against the current subtotal and instant.
// Checks short-circuit in a fixed order: inactive, expired, below the
// minimum purchase, then value sanity. A percentage value outside
// (0,100] or a non-positive fixed value rejects the coupon outright.
func Validate(coupon *models.Coupon, subtotalPaise int64, now time.Time) error {
	if coupon == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon is required")
	}

	if !coupon.IsActive {
		return reject(coupon.Code, Rejection{Reason: ReasonInactive},
			fmt.Sprintf("coupon %s is no longer active", coupon.Code))
	}

	if coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(now) {
		expiredAt := *coupon.ExpiresAt
		return reject(coupon.Code, Rejection{Reason: ReasonExpired, ExpiredAt: &expiredAt},
			fmt.Sprintf("coupon %s expired on %s", coupon.Code, expiredAt.Format("2 Jan 2006")))
	}

	if subtotalPaise < coupon.MinPurchasePaise {
		return reject(coupon.Code, Rejection{Reason: ReasonBelowMinimum, MinPurchasePaise: coupon.MinPurchasePaise},
			fmt.Sprintf("coupon %s requires a minimum purchase of %d paise", coupon.Code, coupon.MinPurchasePaise))
	}

	switch coupon.Kind {
	case enums.CouponKindPercentage:
		if coupon.Value <= 0 || coupon.Value > 100 {
			return reject(coupon.Code, Rejection{Reason: ReasonInvalidValue},
				fmt.Sprintf("coupon %s has an invalid percentage value", coupon.Code))
		}
	case enums.CouponKindFixed:
		if coupon.Value <= 0 {
			return reject(coupon.Code, Rejection{Reason: ReasonInvalidValue},
				fmt.Sprintf("coupon %s has an invalid discount value", coupon.Code))
		}
	default:
		return reject(coupon.Code, Rejection{Reason: ReasonInvalidValue},
			fmt.Sprintf("coupon %s has an unknown kind", coupon.Code))
	}

	return nil
}

// RejectionOf extracts the structured rejection from a validation
// error, or nil when the error carries none.
func RejectionOf(err error) *Rejection {
	typed := pkgerrors.As(err)
	if typed == nil {
		return nil
	}
	if rejection, ok := typed.Details().(Rejection); ok {
		return &rejection
	}
	return nil
}

func reject(code string, rejection Rejection, message string) error {
	rejection.Code = code
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(rejection)
}
