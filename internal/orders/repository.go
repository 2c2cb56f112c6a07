package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anandkp/shelfwise-backend/internal/products"
	"github.com/anandkp/shelfwise-backend/pkg/db/models"
)

// ErrOrderNotFound is returned when no order matches the lookup.
var ErrOrderNotFound = errors.New("order not found")

// Repository manages persistence for the order ledger. Orders are
// write-once at creation except for the payment/status columns, which
// only UpdatePaymentState may touch.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindByOrderNumberForUpdate(ctx context.Context, orderNumber string) (*models.Order, error)
	FindByAttemptID(ctx context.Context, attemptID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	UpdatePaymentState(ctx context.Context, orderID uuid.UUID, update PaymentStateUpdate) error
}

// PaymentStateUpdate is the only mutable slice of an order row.
type PaymentStateUpdate struct {
	Status        string
	PaymentStatus string
	PaymentRef    *string
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return r.findOne(r.db.WithContext(ctx), "order_number = ?", orderNumber)
}

// FindByOrderNumberForUpdate locks the row for a status transition.
func (r *repository) FindByOrderNumberForUpdate(ctx context.Context, orderNumber string) (*models.Order, error) {
	return r.findOne(products.LockForUpdate(r.db.WithContext(ctx)), "order_number = ?", orderNumber)
}

func (r *repository) FindByAttemptID(ctx context.Context, attemptID string) (*models.Order, error) {
	return r.findOne(r.db.WithContext(ctx), "checkout_attempt_id = ?", attemptID)
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var found []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repository) UpdatePaymentState(ctx context.Context, orderID uuid.UUID, update PaymentStateUpdate) error {
	columns := map[string]any{
		"status":         update.Status,
		"payment_status": update.PaymentStatus,
	}
	if update.PaymentRef != nil {
		columns["payment_ref"] = *update.PaymentRef
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(columns).Error
}

func (r *repository) findOne(tx *gorm.DB, query string, arg any) (*models.Order, error) {
	var order models.Order
	if err := tx.Preload("Items").First(&order, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}
