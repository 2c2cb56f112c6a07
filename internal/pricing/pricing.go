package pricing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	"github.com/anandkp/shelfwise-backend/pkg/enums"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
)

// LineItem is a priced cart line at the moment of calculation.
type LineItem struct {
	ProductID      uuid.UUID `json:"productId"`
	Title          string    `json:"title"`
	UnitPricePaise int64     `json:"unitPricePaise"`
	Quantity       int       `json:"quantity"`
	WeightGrams    int       `json:"weightGrams"`
}

// Totals is the complete price breakdown for a cart. All amounts are
// integer paise.
type Totals struct {
	SubtotalPaise int64 `json:"subtotalPaise"`
	ShippingPaise int64 `json:"shippingPaise"`
	DiscountPaise int64 `json:"discountPaise"`
	TotalPaise    int64 `json:"totalPaise"`
}

// ComputeTotals derives the full breakdown from line items, a shipping
// charge, and an optional already-validated coupon. Pure and
// deterministic: the same inputs always produce the same totals.
func ComputeTotals(items []LineItem, shippingPaise int64, coupon *models.Coupon) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if shippingPaise < 0 {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping charge cannot be negative")
	}

	var subtotal int64
	for _, item := range items {
		if item.Quantity <= 0 {
			return Totals{}, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("quantity must be positive for %q", item.Title))
		}
		if item.UnitPricePaise < 0 {
			return Totals{}, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("unit price cannot be negative for %q", item.Title))
		}
		subtotal += item.UnitPricePaise * int64(item.Quantity)
	}

	discount := discountFor(coupon, subtotal)

	total := subtotal + shippingPaise - discount
	if total < 0 {
		total = 0
	}

	return Totals{
		SubtotalPaise: subtotal,
		ShippingPaise: shippingPaise,
		DiscountPaise: discount,
		TotalPaise:    total,
	}, nil
}

// LineTotal returns the paise total for a single line.
func (li LineItem) LineTotal() int64 {
	return li.UnitPricePaise * int64(li.Quantity)
}

// discountFor computes the coupon discount against the subtotal,
// clamped so it never exceeds the subtotal. Percentage discounts use
// half-up rounding on the paise value.
func discountFor(coupon *models.Coupon, subtotalPaise int64) int64 {
	if coupon == nil {
		return 0
	}

	var discount int64
	switch coupon.Kind {
	case enums.CouponKindPercentage:
		pct := decimal.NewFromInt(coupon.Value).Div(decimal.NewFromInt(100))
		discount = decimal.NewFromInt(subtotalPaise).Mul(pct).Round(0).IntPart()
	case enums.CouponKindFixed:
		discount = coupon.Value
	default:
		return 0
	}

	if discount < 0 {
		discount = 0
	}
	if discount > subtotalPaise {
		discount = subtotalPaise
	}
	return discount
}
