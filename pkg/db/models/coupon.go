package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anandkp/shelfwise-backend/pkg/enums"
)

// Coupon is an admin-owned discount code, read-only to checkout. Codes are
// stored upper-case and matched case-insensitively. Coupons are never
// consumed by use; they stay valid for any buyer until expiry.
type Coupon struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code             string           `gorm:"column:code;uniqueIndex;not null"`
	Kind             enums.CouponKind `gorm:"column:kind;type:text;not null"`
	Value            int64            `gorm:"column:value;not null"`
	MinPurchasePaise int64            `gorm:"column:min_purchase_paise;not null;default:0"`
	IsActive         bool             `gorm:"column:is_active;not null;default:true"`
	ExpiresAt        *time.Time       `gorm:"column:expires_at"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
