package orders

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anandkp/shelfwise-backend/pkg/db"
	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	"github.com/anandkp/shelfwise-backend/pkg/enums"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
	"github.com/anandkp/shelfwise-backend/pkg/types"
)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate orders: %v", err)
	}
	client := db.FromConn(conn)
	svc, err := NewService(NewRepository(conn), client, logger.New(logger.Options{Output: io.Discard}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, client
}

func sampleOrder(userID uuid.UUID) *models.Order {
	return &models.Order{
		UserID:            userID,
		CheckoutAttemptID: uuid.NewString(),
		ShippingAddress: types.Address{
			FullName:   "Asha Rao",
			Line1:      "14 MG Road",
			City:       "Bengaluru",
			RegionCode: "KA",
			PostalCode: "560001",
			Phone:      "9876543210",
			Email:      "asha@example.in",
		},
		SubtotalPaise: 104800,
		ShippingPaise: 6000,
		DiscountPaise: 10480,
		TotalPaise:    100320,
		PaymentMethod: enums.PaymentMethodPrepaid,
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Title: "Algebra Basics", UnitPricePaise: 29900, Quantity: 2, WeightGrams: 400, LineTotalPaise: 59800},
			{ProductID: uuid.New(), Title: "World Atlas", UnitPricePaise: 45000, Quantity: 1, WeightGrams: 900, LineTotalPaise: 45000},
		},
	}
}

func createOrder(t *testing.T, svc Service, client *db.Client, order *models.Order) {
	t.Helper()
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Create(context.Background(), tx, order)
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
}

func TestCreate_AssignsNumberAndDefaults(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	order := sampleOrder(uuid.New())
	createOrder(t, svc, client, order)

	if !strings.HasPrefix(order.OrderNumber, "SW-") || len(order.OrderNumber) != len("SW-20250902-XXXXXX") {
		t.Errorf("unexpected order number %q", order.OrderNumber)
	}
	if order.Status != enums.OrderStatusPendingPayment {
		t.Errorf("status = %s, want pending_payment", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		t.Errorf("payment status = %s, want pending", order.PaymentStatus)
	}
}

func TestCreate_PersistedTotalsRoundTrip(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	userID := uuid.New()
	order := sampleOrder(userID)
	createOrder(t, svc, client, order)

	reloaded, err := svc.Get(context.Background(), userID, order.OrderNumber)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if reloaded.SubtotalPaise != 104800 || reloaded.ShippingPaise != 6000 ||
		reloaded.DiscountPaise != 10480 || reloaded.TotalPaise != 100320 {
		t.Errorf("totals did not round-trip: %+v", reloaded)
	}
	if len(reloaded.Items) != 2 {
		t.Errorf("items = %d, want 2", len(reloaded.Items))
	}
	if reloaded.ShippingAddress.City != "Bengaluru" {
		t.Errorf("address did not round-trip: %+v", reloaded.ShippingAddress)
	}
}

func TestCreate_DuplicateAttemptIDConflicts(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	userID := uuid.New()

	first := sampleOrder(userID)
	createOrder(t, svc, client, first)

	second := sampleOrder(userID)
	second.CheckoutAttemptID = first.CheckoutAttemptID
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Create(context.Background(), tx, second)
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate attempt, got %v", err)
	}
}

func TestFindByAttemptID(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	order := sampleOrder(uuid.New())
	createOrder(t, svc, client, order)

	found, err := svc.FindByAttemptID(context.Background(), order.CheckoutAttemptID)
	if err != nil {
		t.Fatalf("find by attempt: %v", err)
	}
	if found.OrderNumber != order.OrderNumber {
		t.Errorf("found %q, want %q", found.OrderNumber, order.OrderNumber)
	}

	_, err = svc.FindByAttemptID(context.Background(), uuid.NewString())
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGet_ScopedToOwner(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	order := sampleOrder(uuid.New())
	createOrder(t, svc, client, order)

	_, err := svc.Get(context.Background(), uuid.New(), order.OrderNumber)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("foreign user should not see the order, got %v", err)
	}
}

func TestSetPaymentStatus_CompletedPlacesOrder(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	order := sampleOrder(uuid.New())
	createOrder(t, svc, client, order)

	updated, err := svc.SetPaymentStatus(context.Background(), order.OrderNumber, enums.PaymentStatusCompleted, "T123")
	if err != nil {
		t.Fatalf("set payment status: %v", err)
	}
	if updated.PaymentStatus != enums.PaymentStatusCompleted {
		t.Errorf("payment status = %s, want completed", updated.PaymentStatus)
	}
	if updated.Status != enums.OrderStatusPlaced {
		t.Errorf("status = %s, want placed", updated.Status)
	}
	if updated.PaymentRef == nil || *updated.PaymentRef != "T123" {
		t.Errorf("payment ref not stored: %v", updated.PaymentRef)
	}
}

func TestSetPaymentStatus_FailedStaysPendingPayment(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	order := sampleOrder(uuid.New())
	createOrder(t, svc, client, order)

	updated, err := svc.SetPaymentStatus(context.Background(), order.OrderNumber, enums.PaymentStatusFailed, "")
	if err != nil {
		t.Fatalf("set payment status: %v", err)
	}
	if updated.PaymentStatus != enums.PaymentStatusFailed {
		t.Errorf("payment status = %s, want failed", updated.PaymentStatus)
	}
	if updated.Status != enums.OrderStatusPendingPayment {
		t.Errorf("status = %s, want pending_payment", updated.Status)
	}
}

func TestSetPaymentStatus_Idempotent(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	order := sampleOrder(uuid.New())
	createOrder(t, svc, client, order)

	if _, err := svc.SetPaymentStatus(context.Background(), order.OrderNumber, enums.PaymentStatusCompleted, "T123"); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	updated, err := svc.SetPaymentStatus(context.Background(), order.OrderNumber, enums.PaymentStatusCompleted, "T123")
	if err != nil {
		t.Fatalf("duplicate apply should be a no-op: %v", err)
	}
	if updated.Status != enums.OrderStatusPlaced {
		t.Errorf("status = %s, want placed", updated.Status)
	}
}

func TestSetPaymentStatus_CrossTransitionConflicts(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	order := sampleOrder(uuid.New())
	createOrder(t, svc, client, order)

	if _, err := svc.SetPaymentStatus(context.Background(), order.OrderNumber, enums.PaymentStatusFailed, ""); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	_, err := svc.SetPaymentStatus(context.Background(), order.OrderNumber, enums.PaymentStatusCompleted, "T999")
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestSetPaymentStatus_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	if _, err := svc.SetPaymentStatus(context.Background(), "", enums.PaymentStatusCompleted, ""); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.SetPaymentStatus(context.Background(), "SW-X", enums.PaymentStatusPending, ""); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for pending target, got %v", err)
	}
	if _, err := svc.SetPaymentStatus(context.Background(), "SW-MISSING", enums.PaymentStatusCompleted, ""); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewOrderNumber_Shape(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 9, 2, 10, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		number, err := NewOrderNumber(now)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !strings.HasPrefix(number, "SW-20250902-") || len(number) != len("SW-20250902-XXXXXX") {
			t.Fatalf("unexpected shape %q", number)
		}
		if seen[number] {
			t.Fatalf("duplicate number %q in 100 draws", number)
		}
		seen[number] = true
	}
}
