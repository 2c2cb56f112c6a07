package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anandkp/shelfwise-backend/pkg/enums"
	"github.com/anandkp/shelfwise-backend/pkg/types"
)

// Order is the immutable price/inventory snapshot created at checkout
// submit. Everything except status, payment fields, and admin notes is
// write-once. OrderNumber is the merchant-facing identifier handed to the
// payment gateway; it is never reused.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string              `gorm:"column:order_number;uniqueIndex;not null"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	CheckoutAttemptID string              `gorm:"column:checkout_attempt_id;type:uuid;uniqueIndex:uq_orders_checkout_attempt;not null"`
	ShippingAddress   types.Address       `gorm:"column:shipping_address;type:jsonb"`
	SubtotalPaise     int64               `gorm:"column:subtotal_paise;not null"`
	ShippingPaise     int64               `gorm:"column:shipping_paise;not null"`
	DiscountPaise     int64               `gorm:"column:discount_paise;not null;default:0"`
	TotalPaise        int64               `gorm:"column:total_paise;not null"`
	AppliedCouponCode *string             `gorm:"column:applied_coupon_code"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Status            enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending_payment'"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentRef        *string             `gorm:"column:payment_ref"`
	AdminNotes        *string             `gorm:"column:admin_notes"`
	Items             []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
