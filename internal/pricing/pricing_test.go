package pricing

import (
	"testing"

	"github.com/google/uuid"

	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	"github.com/anandkp/shelfwise-backend/pkg/enums"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
)

func cartOf(prices ...int64) []LineItem {
	items := make([]LineItem, 0, len(prices))
	for _, p := range prices {
		items = append(items, LineItem{
			ProductID:      uuid.New(),
			Title:          "book",
			UnitPricePaise: p,
			Quantity:       1,
			WeightGrams:    300,
		})
	}
	return items
}

func TestComputeTotals_NoCoupon(t *testing.T) {
	t.Parallel()

	items := []LineItem{
		{ProductID: uuid.New(), Title: "algebra", UnitPricePaise: 29900, Quantity: 2, WeightGrams: 400},
		{ProductID: uuid.New(), Title: "atlas", UnitPricePaise: 45000, Quantity: 1, WeightGrams: 900},
	}

	totals, err := ComputeTotals(items, 6000, nil)
	if err != nil {
		t.Fatalf("compute totals: %v", err)
	}
	if totals.SubtotalPaise != 104800 {
		t.Errorf("subtotal = %d, want 104800", totals.SubtotalPaise)
	}
	if totals.DiscountPaise != 0 {
		t.Errorf("discount = %d, want 0", totals.DiscountPaise)
	}
	if totals.TotalPaise != 110800 {
		t.Errorf("total = %d, want 110800", totals.TotalPaise)
	}
}

func TestComputeTotals_PercentageCoupon(t *testing.T) {
	t.Parallel()

	// 10% off a 1000.00 subtotal discounts exactly 100.00.
	coupon := &models.Coupon{Code: "SAVE10", Kind: enums.CouponKindPercentage, Value: 10, MinPurchasePaise: 50000}

	totals, err := ComputeTotals(cartOf(100000), 4000, coupon)
	if err != nil {
		t.Fatalf("compute totals: %v", err)
	}
	if totals.DiscountPaise != 10000 {
		t.Errorf("discount = %d, want 10000", totals.DiscountPaise)
	}
	if totals.TotalPaise != 94000 {
		t.Errorf("total = %d, want 94000", totals.TotalPaise)
	}
}

func TestComputeTotals_PercentageRoundsHalfUp(t *testing.T) {
	t.Parallel()

	// 15% of 999 paise is 149.85, which rounds to 150.
	coupon := &models.Coupon{Code: "SAVE15", Kind: enums.CouponKindPercentage, Value: 15}

	totals, err := ComputeTotals(cartOf(999), 0, coupon)
	if err != nil {
		t.Fatalf("compute totals: %v", err)
	}
	if totals.DiscountPaise != 150 {
		t.Errorf("discount = %d, want 150", totals.DiscountPaise)
	}

	// 33% of 50 paise is 16.5, which rounds to 17.
	coupon = &models.Coupon{Code: "SAVE33", Kind: enums.CouponKindPercentage, Value: 33}
	totals, err = ComputeTotals(cartOf(50), 0, coupon)
	if err != nil {
		t.Fatalf("compute totals: %v", err)
	}
	if totals.DiscountPaise != 17 {
		t.Errorf("discount = %d, want 17", totals.DiscountPaise)
	}
}

func TestComputeTotals_FixedCouponClampedToSubtotal(t *testing.T) {
	t.Parallel()

	// A 50.00 fixed coupon on a 30.00 cart discounts only the subtotal;
	// shipping is still owed.
	coupon := &models.Coupon{Code: "FLAT50", Kind: enums.CouponKindFixed, Value: 5000}

	totals, err := ComputeTotals(cartOf(3000), 4000, coupon)
	if err != nil {
		t.Fatalf("compute totals: %v", err)
	}
	if totals.DiscountPaise != 3000 {
		t.Errorf("discount = %d, want 3000 (clamped)", totals.DiscountPaise)
	}
	if totals.TotalPaise != 4000 {
		t.Errorf("total = %d, want 4000", totals.TotalPaise)
	}
}

func TestComputeTotals_NeverNegative(t *testing.T) {
	t.Parallel()

	coupon := &models.Coupon{Code: "FLAT50", Kind: enums.CouponKindFixed, Value: 5000}

	totals, err := ComputeTotals(cartOf(100), 0, coupon)
	if err != nil {
		t.Fatalf("compute totals: %v", err)
	}
	if totals.TotalPaise != 0 {
		t.Errorf("total = %d, want 0", totals.TotalPaise)
	}
	if totals.DiscountPaise > totals.SubtotalPaise {
		t.Errorf("discount %d exceeds subtotal %d", totals.DiscountPaise, totals.SubtotalPaise)
	}
}

func TestComputeTotals_Deterministic(t *testing.T) {
	t.Parallel()

	items := cartOf(29900, 45000)
	coupon := &models.Coupon{Code: "SAVE10", Kind: enums.CouponKindPercentage, Value: 10}

	first, err := ComputeTotals(items, 6000, coupon)
	if err != nil {
		t.Fatalf("compute totals: %v", err)
	}
	second, err := ComputeTotals(items, 6000, coupon)
	if err != nil {
		t.Fatalf("compute totals: %v", err)
	}
	if first != second {
		t.Errorf("totals not deterministic: %+v vs %+v", first, second)
	}
}

func TestComputeTotals_ValidationErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		items    []LineItem
		shipping int64
	}{
		{name: "empty cart", items: nil, shipping: 0},
		{name: "zero quantity", items: []LineItem{{Title: "x", UnitPricePaise: 100, Quantity: 0}}, shipping: 0},
		{name: "negative price", items: []LineItem{{Title: "x", UnitPricePaise: -1, Quantity: 1}}, shipping: 0},
		{name: "negative shipping", items: cartOf(100), shipping: -1},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ComputeTotals(tc.items, tc.shipping, nil)
			if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
