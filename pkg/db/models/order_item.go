package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderItem is the frozen copy of a cart line at order creation,
// independent of later catalog or price changes.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Title          string    `gorm:"column:title;not null"`
	UnitPricePaise int64     `gorm:"column:unit_price_paise;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	WeightGrams    int       `gorm:"column:weight_grams;not null;default:0"`
	LineTotalPaise int64     `gorm:"column:line_total_paise;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
