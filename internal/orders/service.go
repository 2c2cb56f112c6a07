package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anandkp/shelfwise-backend/pkg/db"
	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	"github.com/anandkp/shelfwise-backend/pkg/enums"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the order ledger: creation of immutable order snapshots
// and the idempotent payment-status transition machine.
type Service interface {
	Create(ctx context.Context, tx *gorm.DB, order *models.Order) error
	Get(ctx context.Context, userID uuid.UUID, orderNumber string) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	FindByAttemptID(ctx context.Context, attemptID string) (*models.Order, error)
	SetPaymentStatus(ctx context.Context, orderNumber string, status enums.PaymentStatus, paymentRef string) (*models.Order, error)
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds an order ledger service with the required dependencies.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

// Create persists the order snapshot inside the caller's transaction,
// assigning the merchant-facing order number. The attempt id's unique
// index is the ledger-side guard against a double submit.
func (s *service) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if order.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if order.CheckoutAttemptID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout attempt id required")
	}
	if len(order.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must have at least one item")
	}
	if order.SubtotalPaise < 0 || order.ShippingPaise < 0 || order.DiscountPaise < 0 || order.TotalPaise < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order amounts cannot be negative")
	}
	if !order.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	if order.OrderNumber == "" {
		number, err := NewOrderNumber(time.Now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating order number")
		}
		order.OrderNumber = number
	}
	if order.Status == "" {
		order.Status = enums.OrderStatusPendingPayment
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = enums.PaymentStatusPending
	}

	if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, "uq_orders_checkout_attempt") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already created for this checkout attempt")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
	}

	s.logg.Info(s.logg.WithOrderNumber(ctx, order.OrderNumber), "order created")
	return nil
}

// Get loads an order scoped to its owner.
func (s *service) Get(ctx context.Context, userID uuid.UUID, orderNumber string) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// FindByOrderNumber loads an order without an ownership scope; used by
// payment reconciliation, which acts on the gateway's transaction id.
func (s *service) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	found, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return found, nil
}

// FindByAttemptID returns the order already created for a checkout
// attempt, so a replayed submit can answer with the existing snapshot.
func (s *service) FindByAttemptID(ctx context.Context, attemptID string) (*models.Order, error) {
	if attemptID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attempt id required")
	}
	order, err := s.repo.FindByAttemptID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order for attempt")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order by attempt")
	}
	return order, nil
}

// SetPaymentStatus applies a payment outcome idempotently. Re-applying
// the current status is a no-op; a completed payment moves the order to
// placed, a failed one leaves it pending_payment for out-of-band
// reconciliation. Cross transitions between terminal outcomes conflict.
func (s *service) SetPaymentStatus(ctx context.Context, orderNumber string, status enums.PaymentStatus, paymentRef string) (*models.Order, error) {
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	if status != enums.PaymentStatusCompleted && status != enums.PaymentStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment status must be completed or failed")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByOrderNumberForUpdate(ctx, orderNumber)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
		}

		if order.PaymentStatus == status {
			// Duplicate callback: nothing to do, no repeated side effects.
			updated = order
			return nil
		}
		if order.PaymentStatus != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment already %s", order.PaymentStatus))
		}

		update := PaymentStateUpdate{
			Status:        order.Status.String(),
			PaymentStatus: status.String(),
		}
		if status == enums.PaymentStatusCompleted {
			update.Status = enums.OrderStatusPlaced.String()
		}
		if paymentRef != "" {
			update.PaymentRef = &paymentRef
		}

		if err := repo.UpdatePaymentState(ctx, order.ID, update); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating payment state")
		}

		order.PaymentStatus = status
		order.Status = enums.OrderStatus(update.Status)
		if update.PaymentRef != nil {
			order.PaymentRef = update.PaymentRef
		}
		updated = order

		logCtx := s.logg.WithFields(s.logg.WithOrderNumber(ctx, orderNumber), map[string]any{
			"paymentStatus": status.String(),
		})
		s.logg.Info(logCtx, "payment status applied")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
