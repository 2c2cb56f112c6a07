package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/anandkp/shelfwise-backend/api/middleware"
	"github.com/anandkp/shelfwise-backend/api/responses"
	"github.com/anandkp/shelfwise-backend/api/validators"
	internalorders "github.com/anandkp/shelfwise-backend/internal/orders"
	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	"github.com/anandkp/shelfwise-backend/pkg/enums"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
	"github.com/anandkp/shelfwise-backend/pkg/types"
)

// orderView is the buyer-facing shape of a ledger order. Models carry
// gorm tags only; the HTTP layer owns the JSON field names.
type orderView struct {
	OrderNumber       string              `json:"orderNumber"`
	Status            enums.OrderStatus   `json:"status"`
	PaymentStatus     enums.PaymentStatus `json:"paymentStatus"`
	PaymentMethod     enums.PaymentMethod `json:"paymentMethod"`
	SubtotalPaise     int64               `json:"subtotalPaise"`
	ShippingPaise     int64               `json:"shippingPaise"`
	DiscountPaise     int64               `json:"discountPaise"`
	TotalPaise        int64               `json:"totalPaise"`
	AppliedCouponCode string              `json:"appliedCouponCode,omitempty"`
	ShippingAddress   types.Address       `json:"shippingAddress"`
	Items             []orderItemView     `json:"items"`
	CreatedAt         time.Time           `json:"createdAt"`
}

type orderItemView struct {
	ProductID      uuid.UUID `json:"productId"`
	Title          string    `json:"title"`
	UnitPricePaise int64     `json:"unitPricePaise"`
	Quantity       int       `json:"quantity"`
	LineTotalPaise int64     `json:"lineTotalPaise"`
}

func toOrderView(order *models.Order) orderView {
	view := orderView{
		OrderNumber:     order.OrderNumber,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		PaymentMethod:   order.PaymentMethod,
		SubtotalPaise:   order.SubtotalPaise,
		ShippingPaise:   order.ShippingPaise,
		DiscountPaise:   order.DiscountPaise,
		TotalPaise:      order.TotalPaise,
		ShippingAddress: order.ShippingAddress,
		Items:           make([]orderItemView, 0, len(order.Items)),
		CreatedAt:       order.CreatedAt,
	}
	if order.AppliedCouponCode != nil {
		view.AppliedCouponCode = *order.AppliedCouponCode
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, orderItemView{
			ProductID:      item.ProductID,
			Title:          item.Title,
			UnitPricePaise: item.UnitPricePaise,
			Quantity:       item.Quantity,
			LineTotalPaise: item.LineTotalPaise,
		})
	}
	return view
}

// OrdersList returns the authenticated buyer's orders, newest first.
func OrdersList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ident := middleware.IdentityFromContext(r.Context())
		list, err := svc.ListByUser(r.Context(), ident.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(list) > limit {
			list = list[:limit]
		}

		views := make([]orderView, 0, len(list))
		for i := range list {
			views = append(views, toOrderView(&list[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

// OrdersDetail returns one order, scoped to the authenticated buyer so
// order numbers cannot be enumerated across accounts.
func OrdersDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if orderNumber == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		ident := middleware.IdentityFromContext(r.Context())
		order, err := svc.Get(r.Context(), ident.UserID, orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderView(order))
	}
}
