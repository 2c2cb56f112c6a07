package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog entry. StockQty is mutated only through the
// reservation transaction and admin restock adjustments.
type Product struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SKU            string    `gorm:"column:sku;uniqueIndex;not null"`
	Title          string    `gorm:"column:title;not null"`
	Author         *string   `gorm:"column:author"`
	UnitPricePaise int64     `gorm:"column:unit_price_paise;not null"`
	WeightGrams    int       `gorm:"column:weight_grams;not null;default:0"`
	StockQty       int       `gorm:"column:stock_qty;not null;default:0"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key client-side so sqlite test runs
// behave like Postgres.
func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
